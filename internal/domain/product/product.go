package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned by ConditionalDecrement when the
	// current stock is lower than the requested amount.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports a shortfall detected while validating a
// requested quantity against the current stock.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int
	Image       string
	CreatedAt   time.Time
}

// Catalog is the stock-keeping contract used by the order workflow.
//
// ConditionalDecrement must be atomic per product: it lowers stock by amount
// only if the current stock is at least amount, and returns
// ErrInsufficientStock otherwise. Both mutators return ErrNotFound for an
// unknown product.
type Catalog interface {
	Get(ctx context.Context, id string) (*Product, error)
	ConditionalDecrement(ctx context.Context, id string, amount int) error
	Increment(ctx context.Context, id string, amount int) error
}

// Repository adds browsing and catalog management to Catalog.
type Repository interface {
	Catalog
	List(ctx context.Context, category string) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
}
