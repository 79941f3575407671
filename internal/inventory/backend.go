package inventory

import "context"

// Backend is the durable table of record. Implementations return
// ErrDuplicateKey and ErrNotFound for the matching conditions and wrap any
// other failure with ErrBackendUnavailable.
type Backend interface {
	Ping(ctx context.Context) error
	// Insert stores p and returns it with its final id.
	Insert(ctx context.Context, p Product) (Product, error)
	// List returns every row ordered by id.
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	// Update applies u to row id and returns the row as stored afterwards.
	Update(ctx context.Context, id int64, u ProductUpdate) (Product, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}
