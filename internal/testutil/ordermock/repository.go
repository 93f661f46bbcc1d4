package ordermock

import (
	"context"

	domain "purchase-order-backend/internal/domain/order"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Getters with no func set return context.Canceled; writers default to nil.
type Repo struct {
	CreateFn               func(ctx context.Context, o *domain.Order) error
	GetByIDFn              func(ctx context.Context, id string) (*domain.Order, error)
	GetByNumberFn          func(ctx context.Context, number string) (*domain.Order, error)
	GetByIDForUpdateFn     func(ctx context.Context, id string) (*domain.Order, error)
	ListFn                 func(ctx context.Context, f domain.ListFilter) ([]domain.Order, int64, error)
	LastNumberWithPrefixFn func(ctx context.Context, prefix string) (string, error)
	SaveStatusFn           func(ctx context.Context, o *domain.Order) error
	ReplaceItemsFn         func(ctx context.Context, o *domain.Order) error
}

func (m *Repo) Create(ctx context.Context, o *domain.Order) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, o)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	if m.GetByNumberFn != nil {
		return m.GetByNumberFn(ctx, number)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) List(ctx context.Context, f domain.ListFilter) ([]domain.Order, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, 0, context.Canceled
}

func (m *Repo) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	if m.LastNumberWithPrefixFn != nil {
		return m.LastNumberWithPrefixFn(ctx, prefix)
	}
	return "", nil
}

func (m *Repo) SaveStatus(ctx context.Context, o *domain.Order) error {
	if m.SaveStatusFn != nil {
		return m.SaveStatusFn(ctx, o)
	}
	return nil
}

func (m *Repo) ReplaceItems(ctx context.Context, o *domain.Order) error {
	if m.ReplaceItemsFn != nil {
		return m.ReplaceItemsFn(ctx, o)
	}
	return nil
}
