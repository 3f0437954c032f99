package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrConcurrentUpdate is returned by Repository.Save when the cart changed
// since it was read.
var ErrConcurrentUpdate = errors.New("cart was modified concurrently")

// Item is a pending line in a user's cart.
type Item struct {
	ProductID string
	Quantity  int
}

// Cart is the single pending item list owned by a user. Total caches the
// sum of price times quantity as of the last recompute.
type Cart struct {
	UserID    string
	Items     []Item
	Total     decimal.Decimal
	UpdatedAt time.Time

	// Version is zero for a cart that was never stored and is bumped by
	// every Save and Remove.
	Version int
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Store is the contract the order workflow consumes. Get returns an empty
// cart rather than an error when the user has none.
//
// Remove subtracts the given quantities from the matching lines, dropping
// lines that reach zero and the cart once it is empty. Lines added after
// items were read stay in the cart. Removing from a missing cart or line is
// a no-op.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Remove(ctx context.Context, userID string, items []Item) error
}

// Repository adds persisting a modified cart. Save writes c only if the
// stored version equals c.Version and then increments c.Version; otherwise
// it returns ErrConcurrentUpdate.
type Repository interface {
	Store
	Save(ctx context.Context, c *Cart) error
}
