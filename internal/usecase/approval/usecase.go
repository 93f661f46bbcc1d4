package approval

import (
	"context"
	"errors"
	"strings"
	"time"

	"purchase-order-backend/internal/adapter/events"
	"purchase-order-backend/internal/adapter/sharelink"
	domainApproval "purchase-order-backend/internal/domain/approval"
	domainOrder "purchase-order-backend/internal/domain/order"
	"purchase-order-backend/internal/domain/uow"
	"purchase-order-backend/internal/infrastructure/metrics"
	ucOrder "purchase-order-backend/internal/usecase/order"
	"purchase-order-backend/pkg/id"

	"go.uber.org/zap"
)

var ErrMissingActor = errors.New("actor name is required")

const DefaultWindow = 48 * time.Hour

type LinkBuilder interface {
	Build(token string, o *domainOrder.Order, expiresAt time.Time, phone string) sharelink.Link
}

type Usecase struct {
	orderRepo domainOrder.Repository
	tokenRepo domainApproval.Repository
	uow       uow.UnitOfWork
	links     LinkBuilder
	window    time.Duration
	now       func() time.Time
	events    events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

type Option func(*Usecase)

func WithClock(now func() time.Time) Option   { return func(u *Usecase) { u.now = now } }
func WithWindow(d time.Duration) Option       { return func(u *Usecase) { u.window = d } }
func WithPublisher(p events.Publisher) Option { return func(u *Usecase) { u.events = p } }
func WithMetrics(m *metrics.Metrics) Option   { return func(u *Usecase) { u.metrics = m } }
func WithLogger(l *zap.Logger) Option         { return func(u *Usecase) { u.log = l } }

// NewUsecase: pass both repos and a UoW for tx flows.
func NewUsecase(orders domainOrder.Repository, tokens domainApproval.Repository, tx uow.UnitOfWork, links LinkBuilder, opts ...Option) *Usecase {
	u := &Usecase{
		orderRepo: orders,
		tokenRepo: tokens,
		uow:       tx,
		links:     links,
		window:    DefaultWindow,
		now:       time.Now,
		events:    events.Noop{},
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Issue creates a new approval link for a pending order. Older links of the
// same order stop working in the same transaction.
func (u *Usecase) Issue(ctx context.Context, orderID string, opts IssueOptions) (*IssueResult, error) {
	now := u.now().UTC()
	var (
		res  *IssueResult
		from domainOrder.Status
	)
	err := u.uow.WithinOrderTx(ctx, orderID, func(r uow.Repos, o *domainOrder.Order) error {
		if !o.Status.Pending() {
			return domainApproval.ErrInvalidState
		}
		if _, err := r.Tokens.SupersedeActive(ctx, o.ID, now); err != nil {
			return err
		}

		t := &domainApproval.Token{
			Token:     id.NewToken(),
			OrderID:   o.ID,
			IssuedAt:  now,
			ExpiresAt: now.Add(u.window),
		}
		if err := r.Tokens.Create(ctx, t); err != nil {
			return err
		}

		from = o.Status
		if o.Status == domainOrder.StatusCreated {
			if err := o.Transition(domainOrder.StatusInReview, now); err != nil {
				return err
			}
			if err := r.Orders.SaveStatus(ctx, o); err != nil {
				return err
			}
		}

		link := u.links.Build(t.Token, o, t.ExpiresAt, opts.Phone)
		res = &IssueResult{
			Token:       t.Token,
			IssuedAt:    t.IssuedAt,
			ExpiresAt:   t.ExpiresAt,
			URL:         link.URL,
			WhatsAppURL: link.WhatsAppURL,
			Message:     link.Message,
			Order:       ucOrder.ToDTO(o),
		}
		return nil
	})
	if err != nil {
		u.fail("issue", err)
		return nil, err
	}

	u.metrics.TokenIssued()
	if from != domainOrder.Status(res.Order.Status) {
		u.publish(ctx, res.Order, from, "")
	}
	return res, nil
}

// Validate reports whether token can still be used, without consuming it.
func (u *Usecase) Validate(ctx context.Context, token string) (*ReviewDTO, error) {
	now := u.now().UTC()
	t, err := u.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		u.fail("validate", err)
		return nil, err
	}
	if err := t.Check(now); err != nil {
		u.fail("validate", err)
		return nil, err
	}
	o, err := u.orderRepo.GetByID(ctx, t.OrderID)
	if errors.Is(err, domainOrder.ErrNotFound) {
		err = domainApproval.ErrTokenNotFound
	}
	if err != nil {
		u.fail("validate", err)
		return nil, err
	}
	if !o.Status.Pending() {
		u.fail("validate", domainApproval.ErrOrderAlreadyResolved)
		return nil, domainApproval.ErrOrderAlreadyResolved
	}
	return &ReviewDTO{Order: ucOrder.ToDTO(o), IssuedAt: t.IssuedAt, ExpiresAt: t.ExpiresAt}, nil
}

// Resolve applies an approve/reject decision and consumes the token. The order
// row is locked before the token row, the same order Issue and Cancel use, so
// concurrent calls on one order serialize instead of deadlocking.
func (u *Usecase) Resolve(ctx context.Context, in ResolveInput) (*ResolvedDTO, error) {
	if err := domainApproval.Validate(in.Decision); err != nil {
		u.fail("resolve", err)
		return nil, err
	}
	actor := domainOrder.Actor{ID: strings.TrimSpace(in.Actor.ID), Name: strings.TrimSpace(in.Actor.Name)}
	if actor.Name == "" {
		u.fail("resolve", ErrMissingActor)
		return nil, ErrMissingActor
	}

	// Only used to find the order; everything is re-read under lock below.
	located, err := u.tokenRepo.GetByToken(ctx, in.Token)
	if err != nil {
		u.fail("resolve", err)
		return nil, err
	}

	now := u.now().UTC()
	var (
		res  *ResolvedDTO
		from domainOrder.Status
	)
	err = u.uow.WithinOrderTx(ctx, located.OrderID, func(r uow.Repos, o *domainOrder.Order) error {
		t, err := r.Tokens.GetByTokenForUpdate(ctx, in.Token)
		if err != nil {
			return err
		}
		if err := t.Check(now); err != nil {
			return err
		}
		if !o.Status.Pending() {
			return domainApproval.ErrOrderAlreadyResolved
		}

		from = o.Status
		switch d := in.Decision.(type) {
		case domainApproval.Approve:
			err = o.Approve(actor, strings.TrimSpace(d.Note), now)
		case domainApproval.Reject:
			err = o.Reject(actor, strings.TrimSpace(d.Reason), now)
		default:
			err = domainApproval.ErrUnknownAction
		}
		if errors.Is(err, domainOrder.ErrInvalidTransition) {
			return domainApproval.ErrOrderAlreadyResolved
		}
		if err != nil {
			return err
		}

		if err := r.Orders.SaveStatus(ctx, o); err != nil {
			return err
		}
		if err := r.Tokens.MarkUsed(ctx, t.Token, in.Decision.Action(), now); err != nil {
			return err
		}

		res = &ResolvedDTO{Order: ucOrder.ToDTO(o), Action: in.Decision.Action(), ResolvedAt: now}
		return nil
	})
	if errors.Is(err, domainOrder.ErrNotFound) {
		err = domainApproval.ErrTokenNotFound
	}
	if err != nil {
		u.fail("resolve", err)
		return nil, err
	}

	u.metrics.Resolved(string(res.Action))
	u.publish(ctx, res.Order, from, actor.Name)
	return res, nil
}

func (u *Usecase) publish(ctx context.Context, o ucOrder.OrderDTO, from domainOrder.Status, actor string) {
	u.metrics.Transition(string(from), o.Status)
	ev := events.StatusChanged{
		EventID: id.NewID32(),
		OrderID: o.ID,
		Number:  o.Number,
		From:    from,
		To:      domainOrder.Status(o.Status),
		Actor:   actor,
		At:      o.StatusUpdatedAt,
	}
	if err := u.events.PublishStatusChanged(ctx, ev); err != nil {
		u.log.Warn("publish status change", zap.String("order", o.Number), zap.Error(err))
	}
}

func (u *Usecase) fail(op string, err error) {
	reason := FailureReason(err)
	u.metrics.Failed(op, reason)
	if reason == "internal" {
		u.log.Error(op+" approval", zap.Error(err))
		return
	}
	u.log.Debug(op+" approval rejected", zap.String("reason", reason))
}

// FailureReason maps a workflow error to its stable code; anything unknown is
// "internal".
func FailureReason(err error) string {
	switch {
	case errors.Is(err, domainApproval.ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, domainApproval.ErrTokenUsed):
		return "token_used"
	case errors.Is(err, domainApproval.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domainApproval.ErrTokenSuperseded):
		return "token_superseded"
	case errors.Is(err, domainApproval.ErrOrderAlreadyResolved):
		return "order_already_resolved"
	case errors.Is(err, domainApproval.ErrMissingReason):
		return "missing_reason"
	case errors.Is(err, domainApproval.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domainApproval.ErrUnknownAction), errors.Is(err, ErrMissingActor):
		return "validation_failed"
	case errors.Is(err, domainOrder.ErrNotFound):
		return "order_not_found"
	}
	return "internal"
}
