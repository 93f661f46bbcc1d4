package postgres

import (
	"context"

	"purchase-order-backend/internal/domain/approval"
	"purchase-order-backend/internal/domain/order"
	"purchase-order-backend/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinOrderTx(ctx context.Context, orderID string, fn func(r uow.Repos, o *order.Order) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the order row up-front to prevent races
		o, err := r.Orders.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		return fn(r, o)
	})
}

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Orders: &OrderRepository{db: tx},
		Tokens: &ApprovalRepository{db: tx},
	}
}

// Models lists every table owned by this service, in creation order.
func Models() []any {
	return []any{&order.Order{}, &order.LineItem{}, &approval.Token{}}
}
