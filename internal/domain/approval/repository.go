package approval

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, t *Token) error

	// GetByToken returns ErrTokenNotFound when no row matches.
	GetByToken(ctx context.Context, token string) (*Token, error)

	// GetByTokenForUpdate locks the token row for the rest of the transaction.
	GetByTokenForUpdate(ctx context.Context, token string) (*Token, error)

	// SupersedeActive retires every unused, not yet superseded token of the order.
	SupersedeActive(ctx context.Context, orderID string, at time.Time) (int64, error)

	// MarkUsed flips used=true only if the token is still consumable at `at`;
	// returns ErrTokenUsed when nothing was updated.
	MarkUsed(ctx context.Context, token string, action Action, at time.Time) error

	ListByOrder(ctx context.Context, orderID string) ([]Token, error)
}
