package postgres

import (
	"context"
	"errors"
	"time"

	approvalDomain "purchase-order-backend/internal/domain/approval"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApprovalRepository struct{ db *gorm.DB }

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository { return &ApprovalRepository{db: db} }

func (r *ApprovalRepository) Create(ctx context.Context, t *approvalDomain.Token) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ApprovalRepository) GetByToken(ctx context.Context, token string) (*approvalDomain.Token, error) {
	var out approvalDomain.Token
	res := r.db.WithContext(ctx).Where("token = ?", token).First(&out)
	return tokenNotFound(&out, res.Error)
}

func (r *ApprovalRepository) GetByTokenForUpdate(ctx context.Context, token string) (*approvalDomain.Token, error) {
	var out approvalDomain.Token
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&out)
	return tokenNotFound(&out, res.Error)
}

func (r *ApprovalRepository) SupersedeActive(ctx context.Context, orderID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&approvalDomain.Token{}).
		Where("order_id = ? AND used = ? AND superseded_at IS NULL", orderID, false).
		Update("superseded_at", at.UTC())
	return res.RowsAffected, res.Error
}

func (r *ApprovalRepository) MarkUsed(ctx context.Context, token string, action approvalDomain.Action, at time.Time) error {
	at = at.UTC()
	res := r.db.WithContext(ctx).Model(&approvalDomain.Token{}).
		Where("token = ? AND used = ? AND superseded_at IS NULL AND expires_at >= ?", token, false, at).
		Updates(map[string]any{"used": true, "used_at": at, "action": action})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return approvalDomain.ErrTokenUsed
	}
	return nil
}

func (r *ApprovalRepository) ListByOrder(ctx context.Context, orderID string) ([]approvalDomain.Token, error) {
	var out []approvalDomain.Token
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("issued_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func tokenNotFound(t *approvalDomain.Token, err error) (*approvalDomain.Token, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, approvalDomain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
