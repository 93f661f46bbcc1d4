package approvalmock

import (
	"context"
	"time"

	domain "purchase-order-backend/internal/domain/approval"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only methods you need are included; add more as tests require.
type Repo struct {
	CreateFn              func(ctx context.Context, t *domain.Token) error
	GetByTokenFn          func(ctx context.Context, token string) (*domain.Token, error)
	GetByTokenForUpdateFn func(ctx context.Context, token string) (*domain.Token, error)
	SupersedeActiveFn     func(ctx context.Context, orderID string, at time.Time) (int64, error)
	MarkUsedFn            func(ctx context.Context, token string, action domain.Action, at time.Time) error
	ListByOrderFn         func(ctx context.Context, orderID string) ([]domain.Token, error)
}

func (m *Repo) Create(ctx context.Context, t *domain.Token) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	return nil
}

func (m *Repo) GetByToken(ctx context.Context, token string) (*domain.Token, error) {
	if m.GetByTokenFn != nil {
		return m.GetByTokenFn(ctx, token)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByTokenForUpdate(ctx context.Context, token string) (*domain.Token, error) {
	if m.GetByTokenForUpdateFn != nil {
		return m.GetByTokenForUpdateFn(ctx, token)
	}
	return nil, context.Canceled
}

func (m *Repo) SupersedeActive(ctx context.Context, orderID string, at time.Time) (int64, error) {
	if m.SupersedeActiveFn != nil {
		return m.SupersedeActiveFn(ctx, orderID, at)
	}
	return 0, nil
}

func (m *Repo) MarkUsed(ctx context.Context, token string, action domain.Action, at time.Time) error {
	if m.MarkUsedFn != nil {
		return m.MarkUsedFn(ctx, token, action, at)
	}
	return nil
}

func (m *Repo) ListByOrder(ctx context.Context, orderID string) ([]domain.Token, error) {
	if m.ListByOrderFn != nil {
		return m.ListByOrderFn(ctx, orderID)
	}
	return nil, context.Canceled
}
