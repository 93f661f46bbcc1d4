package uow

import (
	"context"

	"purchase-order-backend/internal/domain/approval"
	"purchase-order-backend/internal/domain/order"
)

// Repos are bound to the same transaction.
type Repos struct {
	Orders order.Repository
	Tokens approval.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the order row first, then pass it in
	WithinOrderTx(ctx context.Context, orderID string, fn func(r Repos, o *order.Order) error) error
}
