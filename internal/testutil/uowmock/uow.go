package uowmock

import (
	"context"
	"errors"

	"purchase-order-backend/internal/domain/order"
	"purchase-order-backend/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn      func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinOrderTxFn func(ctx context.Context, orderID string, fn func(r uow.Repos, o *order.Order) error) error
}

// Passthrough runs every callback directly against repos, locking orders
// through repos.Orders.GetByIDForUpdate.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(r uow.Repos) error) error {
			return fn(repos)
		},
		WithinOrderTxFn: func(ctx context.Context, orderID string, fn func(r uow.Repos, o *order.Order) error) error {
			o, err := repos.Orders.GetByIDForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			return fn(repos, o)
		},
	}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinOrderTx(ctx context.Context, orderID string, fn func(r uow.Repos, o *order.Order) error) error {
	if m.WithinOrderTxFn != nil {
		return m.WithinOrderTxFn(ctx, orderID, fn)
	}
	return errUnimplemented
}
