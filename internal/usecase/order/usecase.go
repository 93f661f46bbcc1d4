package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"purchase-order-backend/internal/adapter/events"
	domain "purchase-order-backend/internal/domain/order"
	"purchase-order-backend/internal/domain/uow"
	"purchase-order-backend/internal/infrastructure/metrics"
	"purchase-order-backend/pkg/id"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidInput = errors.New("invalid input")

// Two requests in the same month can read the same last number; the unique
// index rejects the loser, which retries with a fresh read.
const maxNumberAttempts = 3

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Usecase struct {
	repo    domain.Repository
	uow     uow.UnitOfWork
	now     func() time.Time
	events  events.Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option   { return func(u *Usecase) { u.now = now } }
func WithPublisher(p events.Publisher) Option { return func(u *Usecase) { u.events = p } }
func WithMetrics(m *metrics.Metrics) Option   { return func(u *Usecase) { u.metrics = m } }
func WithLogger(l *zap.Logger) Option         { return func(u *Usecase) { u.log = l } }

func NewUsecase(r domain.Repository, tx uow.UnitOfWork, opts ...Option) *Usecase {
	u := &Usecase{
		repo:   r,
		uow:    tx,
		now:    time.Now,
		events: events.Noop{},
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *Usecase) Create(ctx context.Context, in CreateOrderInput) (*OrderDTO, error) {
	if strings.TrimSpace(in.SupplierName) == "" || strings.TrimSpace(in.RequestedBy) == "" {
		return nil, ErrInvalidInput
	}
	items, err := toItems(in.Items)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "CLP"
	}

	now := u.now().UTC()
	o := &domain.Order{
		ID:              uuid.NewString(),
		Status:          domain.StatusCreated,
		SupplierName:    strings.TrimSpace(in.SupplierName),
		SupplierTaxID:   strings.TrimSpace(in.SupplierTaxID),
		RequestedBy:     strings.TrimSpace(in.RequestedBy),
		Description:     in.Description,
		Currency:        currency,
		StatusUpdatedAt: now,
	}
	if err := o.SetItems(items); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
			last, err := r.Orders.LastNumberWithPrefix(ctx, domain.NumberPrefix(now))
			if err != nil {
				return err
			}
			o.Number = domain.NextNumber(last, now)
			return r.Orders.Create(ctx, o)
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == maxNumberAttempts {
			break
		}
		u.log.Debug("order number taken, retrying", zap.String("number", o.Number), zap.Int("attempt", attempt))
		for i := range o.Items {
			o.Items[i].ID = 0
		}
	}
	if err != nil {
		u.log.Error("create order", zap.Error(err))
		return nil, fmt.Errorf("create order: %w", err)
	}

	u.metrics.OrderCreated()
	dto := ToDTO(o)
	return &dto, nil
}

func (u *Usecase) Get(ctx context.Context, orderID string) (*OrderDTO, error) {
	o, err := u.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(o)
	return &dto, nil
}

func (u *Usecase) GetByNumber(ctx context.Context, number string) (*OrderDTO, error) {
	o, err := u.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	dto := ToDTO(o)
	return &dto, nil
}

func (u *Usecase) List(ctx context.Context, in ListInput) (*ListDTO, error) {
	status := domain.Status(in.Status)
	if status != "" && !status.Valid() {
		return nil, ErrInvalidInput
	}
	page, limit := in.Page, in.Limit
	if page <= 0 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}

	rows, total, err := u.repo.List(ctx, domain.ListFilter{Status: status, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := &ListDTO{Items: make([]OrderDTO, 0, len(rows)), Total: total, Page: page, Limit: limit}
	for i := range rows {
		out.Items = append(out.Items, ToDTO(&rows[i]))
	}
	return out, nil
}

// ReplaceItems is only allowed before the order has been sent for review.
func (u *Usecase) ReplaceItems(ctx context.Context, orderID string, in []LineItemInput) (*OrderDTO, error) {
	items, err := toItems(in)
	if err != nil {
		return nil, err
	}
	var dto OrderDTO
	err = u.uow.WithinOrderTx(ctx, orderID, func(r uow.Repos, o *domain.Order) error {
		if o.Status != domain.StatusCreated {
			return domain.ErrItemsLocked
		}
		if err := o.SetItems(items); err != nil {
			return err
		}
		if err := r.Orders.ReplaceItems(ctx, o); err != nil {
			return err
		}
		dto = ToDTO(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (u *Usecase) Complete(ctx context.Context, orderID string) (*OrderDTO, error) {
	return u.transition(ctx, orderID, domain.StatusCompleted)
}

// Cancel leaves outstanding approval links in place; they fail with
// ErrOrderAlreadyResolved once the order is no longer pending.
func (u *Usecase) Cancel(ctx context.Context, orderID string) (*OrderDTO, error) {
	return u.transition(ctx, orderID, domain.StatusCancelled)
}

func (u *Usecase) transition(ctx context.Context, orderID string, next domain.Status) (*OrderDTO, error) {
	now := u.now().UTC()
	var (
		dto  OrderDTO
		from domain.Status
	)
	err := u.uow.WithinOrderTx(ctx, orderID, func(r uow.Repos, o *domain.Order) error {
		from = o.Status
		if err := o.Transition(next, now); err != nil {
			return err
		}
		if err := r.Orders.SaveStatus(ctx, o); err != nil {
			return err
		}
		dto = ToDTO(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.publish(ctx, dto, from, "")
	return &dto, nil
}

func (u *Usecase) publish(ctx context.Context, o OrderDTO, from domain.Status, actor string) {
	u.metrics.Transition(string(from), o.Status)
	ev := events.StatusChanged{
		EventID: id.NewID32(),
		OrderID: o.ID,
		Number:  o.Number,
		From:    from,
		To:      domain.Status(o.Status),
		Actor:   actor,
		At:      o.StatusUpdatedAt,
	}
	if err := u.events.PublishStatusChanged(ctx, ev); err != nil {
		u.log.Warn("publish status change", zap.String("order", o.Number), zap.Error(err))
	}
}

func toItems(in []LineItemInput) ([]domain.LineItem, error) {
	if len(in) == 0 {
		return nil, domain.ErrNoItems
	}
	items := make([]domain.LineItem, 0, len(in))
	for _, it := range in {
		if strings.TrimSpace(it.Description) == "" ||
			!it.Quantity.IsPositive() ||
			!it.Quantity.Equal(it.Quantity.Round(3)) ||
			it.UnitPrice.IsNegative() ||
			!it.UnitPrice.Equal(it.UnitPrice.Round(2)) {
			return nil, ErrInvalidInput
		}
		items = append(items, domain.LineItem{
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return items, nil
}
