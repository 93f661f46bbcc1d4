// Package memstore is an in-memory uow.UnitOfWork for usecase tests.
// Transactions are serialized by one mutex and run against a copy of the
// data that is only committed when the callback returns nil.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"purchase-order-backend/internal/domain/approval"
	"purchase-order-backend/internal/domain/order"
	"purchase-order-backend/internal/domain/uow"

	"gorm.io/gorm"
)

var _ uow.UnitOfWork = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	data *data
}

func New() *Store {
	return &Store{data: newData()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(tx.repos()); err != nil {
		return err
	}
	s.data = tx
	return nil
}

func (s *Store) WithinOrderTx(ctx context.Context, orderID string, fn func(r uow.Repos, o *order.Order) error) error {
	return s.WithinTx(ctx, func(r uow.Repos) error {
		o, err := r.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		return fn(r, o)
	})
}

// Repos returns repositories that auto-commit each call.
func (s *Store) Repos() uow.Repos {
	return uow.Repos{Orders: &autoOrders{s: s}, Tokens: &autoTokens{s: s}}
}

// Order returns a copy of the stored order, for assertions.
func (s *Store) Order(id string) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.data.orders[id]
	return copyOrder(o), ok
}

// Token returns a copy of the stored token, for assertions.
func (s *Store) Token(token string) (approval.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.tokens[token]
	return t, ok
}

type data struct {
	orders  map[string]order.Order
	tokens  map[string]approval.Token
	tokenID uint64
	itemID  uint64
}

func newData() *data {
	return &data{orders: map[string]order.Order{}, tokens: map[string]approval.Token{}}
}

func (d *data) clone() *data {
	c := &data{
		orders:  make(map[string]order.Order, len(d.orders)),
		tokens:  make(map[string]approval.Token, len(d.tokens)),
		tokenID: d.tokenID,
		itemID:  d.itemID,
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	return c
}

func (d *data) repos() uow.Repos {
	return uow.Repos{Orders: &orders{d: d}, Tokens: &tokens{d: d}}
}

func copyOrder(o order.Order) order.Order {
	if o.Items != nil {
		o.Items = append([]order.LineItem(nil), o.Items...)
	}
	return o
}

// ---- orders ----

type orders struct{ d *data }

func (r *orders) Create(_ context.Context, o *order.Order) error {
	for _, existing := range r.d.orders {
		if existing.Number == o.Number {
			return gorm.ErrDuplicatedKey
		}
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	for i := range o.Items {
		r.d.itemID++
		o.Items[i].ID = r.d.itemID
		o.Items[i].OrderID = o.ID
	}
	r.d.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *orders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := r.d.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (r *orders) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	for id, o := range r.d.orders {
		if o.Number == number {
			return r.GetByID(ctx, id)
		}
	}
	return nil, order.ErrNotFound
}

func (r *orders) GetByIDForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orders) List(_ context.Context, f order.ListFilter) ([]order.Order, int64, error) {
	var out []order.Order
	for _, o := range r.d.orders {
		if f.Status == "" || o.Status == f.Status {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	total := int64(len(out))

	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	start := (page - 1) * limit
	if start >= len(out) {
		return []order.Order{}, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *orders) LastNumberWithPrefix(_ context.Context, prefix string) (string, error) {
	last := ""
	for _, o := range r.d.orders {
		if !strings.HasPrefix(o.Number, prefix) {
			continue
		}
		if len(o.Number) > len(last) || (len(o.Number) == len(last) && o.Number > last) {
			last = o.Number
		}
	}
	return last, nil
}

func (r *orders) SaveStatus(_ context.Context, o *order.Order) error {
	cur, ok := r.d.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	cur.Status = o.Status
	cur.ApproverID = o.ApproverID
	cur.ApprovedBy = o.ApprovedBy
	cur.ApprovedAt = o.ApprovedAt
	cur.ApprovalNote = o.ApprovalNote
	cur.RejectionReason = o.RejectionReason
	cur.StatusUpdatedAt = o.StatusUpdatedAt
	cur.UpdatedAt = time.Now().UTC()
	r.d.orders[o.ID] = cur
	return nil
}

func (r *orders) ReplaceItems(_ context.Context, o *order.Order) error {
	cur, ok := r.d.orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	items := append([]order.LineItem(nil), o.Items...)
	for i := range items {
		r.d.itemID++
		items[i].ID = r.d.itemID
		items[i].OrderID = o.ID
	}
	cur.Items = items
	cur.Total = o.Total
	cur.UpdatedAt = time.Now().UTC()
	r.d.orders[o.ID] = cur
	return nil
}

// ---- tokens ----

type tokens struct{ d *data }

func (r *tokens) Create(_ context.Context, t *approval.Token) error {
	if _, ok := r.d.tokens[t.Token]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.d.tokenID++
	t.ID = r.d.tokenID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	r.d.tokens[t.Token] = *t
	return nil
}

func (r *tokens) GetByToken(_ context.Context, token string) (*approval.Token, error) {
	t, ok := r.d.tokens[token]
	if !ok {
		return nil, approval.ErrTokenNotFound
	}
	return &t, nil
}

func (r *tokens) GetByTokenForUpdate(ctx context.Context, token string) (*approval.Token, error) {
	return r.GetByToken(ctx, token)
}

func (r *tokens) SupersedeActive(_ context.Context, orderID string, at time.Time) (int64, error) {
	var n int64
	for k, t := range r.d.tokens {
		if t.OrderID == orderID && !t.Used && t.SupersededAt == nil {
			ts := at.UTC()
			t.SupersededAt = &ts
			r.d.tokens[k] = t
			n++
		}
	}
	return n, nil
}

func (r *tokens) MarkUsed(_ context.Context, token string, action approval.Action, at time.Time) error {
	t, ok := r.d.tokens[token]
	if !ok || t.Used || t.SupersededAt != nil || at.After(t.ExpiresAt) {
		return approval.ErrTokenUsed
	}
	ts := at.UTC()
	t.Used = true
	t.UsedAt = &ts
	t.Action = &action
	r.d.tokens[token] = t
	return nil
}

func (r *tokens) ListByOrder(_ context.Context, orderID string) ([]approval.Token, error) {
	var out []approval.Token
	for _, t := range r.d.tokens {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
