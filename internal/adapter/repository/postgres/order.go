package postgres

import (
	"context"
	"errors"
	"time"

	orderDomain "purchase-order-backend/internal/domain/order"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) *OrderRepository { return &OrderRepository{db: db} }

func (r *OrderRepository) Create(ctx context.Context, o *orderDomain.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*orderDomain.Order, error) {
	var out orderDomain.Order
	res := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("id = ?", id).
		First(&out)
	return notFound(&out, res.Error)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*orderDomain.Order, error) {
	var out orderDomain.Order
	res := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("number = ?", number).
		First(&out)
	return notFound(&out, res.Error)
}

func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*orderDomain.Order, error) {
	var out orderDomain.Order
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	if res.Error != nil {
		return notFound(nil, res.Error)
	}
	// items are loaded without the lock clause
	if err := r.db.WithContext(ctx).Scopes(orderItemsByPosition).
		Where("order_id = ?", out.ID).Find(&out.Items).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OrderRepository) List(ctx context.Context, f orderDomain.ListFilter) ([]orderDomain.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&orderDomain.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := f.Page, f.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var out []orderDomain.Order
	fetch := r.db.WithContext(ctx).Preload("Items", orderItemsByPosition)
	if f.Status != "" {
		fetch = fetch.Where("status = ?", f.Status)
	}
	err := fetch.
		Order("created_at DESC, number DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

func (r *OrderRepository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&orderDomain.Order{}).
		Where("number LIKE ?", prefix+"%").
		Order("LENGTH(number) DESC, number DESC").
		Limit(1).
		Pluck("number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return "", err
	}
	return numbers[0], nil
}

func (r *OrderRepository) SaveStatus(ctx context.Context, o *orderDomain.Order) error {
	res := r.db.WithContext(ctx).Model(&orderDomain.Order{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{
			"status":            o.Status,
			"approver_id":       o.ApproverID,
			"approved_by":       o.ApprovedBy,
			"approved_at":       o.ApprovedAt,
			"approval_note":     o.ApprovalNote,
			"rejection_reason":  o.RejectionReason,
			"status_updated_at": o.StatusUpdatedAt,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return orderDomain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ReplaceItems(ctx context.Context, o *orderDomain.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", o.ID).Delete(&orderDomain.LineItem{}).Error; err != nil {
		return err
	}
	if len(o.Items) > 0 {
		if err := db.Create(&o.Items).Error; err != nil {
			return err
		}
	}
	res := db.Model(&orderDomain.Order{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{"total": o.Total, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return orderDomain.ErrNotFound
	}
	return nil
}

func orderItemsByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func notFound(o *orderDomain.Order, err error) (*orderDomain.Order, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}
