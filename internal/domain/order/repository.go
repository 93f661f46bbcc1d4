package order

import "context"

type ListFilter struct {
	Status Status
	Page   int
	Limit  int
}

type Repository interface {
	// Create inserts the order together with its items.
	Create(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id string) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// GetByIDForUpdate locks the order row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*Order, error)

	List(ctx context.Context, f ListFilter) ([]Order, int64, error)

	// LastNumberWithPrefix returns the highest number starting with prefix, or "" if none.
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)

	// SaveStatus persists status and decision fields only.
	SaveStatus(ctx context.Context, o *Order) error

	// ReplaceItems swaps the stored items for o.Items and persists o.Total.
	ReplaceItems(ctx context.Context, o *Order) error
}
