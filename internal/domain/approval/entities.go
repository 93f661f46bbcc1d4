package approval

import (
	"errors"
	"time"
)

// Typed failures of the approval workflow. All of them are user-recoverable
// and must reach the caller as-is.
var (
	ErrTokenNotFound        = errors.New("approval token not found")
	ErrTokenUsed            = errors.New("approval token already used")
	ErrTokenExpired         = errors.New("approval token expired")
	ErrTokenSuperseded      = errors.New("approval token superseded by a newer link")
	ErrOrderAlreadyResolved = errors.New("order is no longer pending approval")
	ErrMissingReason        = errors.New("rejection requires a reason")
	ErrInvalidState         = errors.New("order is not eligible for an approval token")
	ErrUnknownAction        = errors.New("action must be approve or reject")
)

// Table: approval_tokens
type Token struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Token   string `gorm:"column:token;type:char(64);not null;uniqueIndex:ux_approval_tokens_token"`
	OrderID string `gorm:"column:order_id;type:uuid;not null;index"`
	// IssuedAt/ExpiresAt are fixed at issuance; a new window means a new token.
	IssuedAt     time.Time  `gorm:"column:issued_at;not null"`
	ExpiresAt    time.Time  `gorm:"column:expires_at;not null"`
	Used         bool       `gorm:"column:used;not null;default:false"`
	UsedAt       *time.Time `gorm:"column:used_at"`
	Action       *Action    `gorm:"column:action;type:varchar(10)"`
	SupersededAt *time.Time `gorm:"column:superseded_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Token) TableName() string { return "approval_tokens" }

// Check returns the typed failure that prevents the token from being used at now, if any.
// A lapsed window wins over every other state, then used, then superseded.
func (t *Token) Check(now time.Time) error {
	switch {
	case now.After(t.ExpiresAt):
		return ErrTokenExpired
	case t.Used:
		return ErrTokenUsed
	case t.SupersededAt != nil:
		return ErrTokenSuperseded
	}
	return nil
}
