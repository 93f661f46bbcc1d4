package memstore

import (
	"context"
	"time"

	"purchase-order-backend/internal/domain/approval"
	"purchase-order-backend/internal/domain/order"
)

// autoOrders and autoTokens run each call as its own transaction.

type autoOrders struct{ s *Store }

func (a *autoOrders) with(fn func(r *orders) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	tx := a.s.data.clone()
	if err := fn(&orders{d: tx}); err != nil {
		return err
	}
	a.s.data = tx
	return nil
}

func (a *autoOrders) Create(ctx context.Context, o *order.Order) error {
	return a.with(func(r *orders) error { return r.Create(ctx, o) })
}

func (a *autoOrders) GetByID(ctx context.Context, id string) (out *order.Order, err error) {
	err = a.with(func(r *orders) error { out, err = r.GetByID(ctx, id); return err })
	return out, err
}

func (a *autoOrders) GetByNumber(ctx context.Context, number string) (out *order.Order, err error) {
	err = a.with(func(r *orders) error { out, err = r.GetByNumber(ctx, number); return err })
	return out, err
}

func (a *autoOrders) GetByIDForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return a.GetByID(ctx, id)
}

func (a *autoOrders) List(ctx context.Context, f order.ListFilter) (out []order.Order, total int64, err error) {
	err = a.with(func(r *orders) error { out, total, err = r.List(ctx, f); return err })
	return out, total, err
}

func (a *autoOrders) LastNumberWithPrefix(ctx context.Context, prefix string) (out string, err error) {
	err = a.with(func(r *orders) error { out, err = r.LastNumberWithPrefix(ctx, prefix); return err })
	return out, err
}

func (a *autoOrders) SaveStatus(ctx context.Context, o *order.Order) error {
	return a.with(func(r *orders) error { return r.SaveStatus(ctx, o) })
}

func (a *autoOrders) ReplaceItems(ctx context.Context, o *order.Order) error {
	return a.with(func(r *orders) error { return r.ReplaceItems(ctx, o) })
}

type autoTokens struct{ s *Store }

func (a *autoTokens) with(fn func(r *tokens) error) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	tx := a.s.data.clone()
	if err := fn(&tokens{d: tx}); err != nil {
		return err
	}
	a.s.data = tx
	return nil
}

func (a *autoTokens) Create(ctx context.Context, t *approval.Token) error {
	return a.with(func(r *tokens) error { return r.Create(ctx, t) })
}

func (a *autoTokens) GetByToken(ctx context.Context, token string) (out *approval.Token, err error) {
	err = a.with(func(r *tokens) error { out, err = r.GetByToken(ctx, token); return err })
	return out, err
}

func (a *autoTokens) GetByTokenForUpdate(ctx context.Context, token string) (*approval.Token, error) {
	return a.GetByToken(ctx, token)
}

func (a *autoTokens) SupersedeActive(ctx context.Context, orderID string, at time.Time) (n int64, err error) {
	err = a.with(func(r *tokens) error { n, err = r.SupersedeActive(ctx, orderID, at); return err })
	return n, err
}

func (a *autoTokens) MarkUsed(ctx context.Context, token string, action approval.Action, at time.Time) error {
	return a.with(func(r *tokens) error { return r.MarkUsed(ctx, token, action, at) })
}

func (a *autoTokens) ListByOrder(ctx context.Context, orderID string) (out []approval.Token, err error) {
	err = a.with(func(r *tokens) error { out, err = r.ListByOrder(ctx, orderID); return err })
	return out, err
}
