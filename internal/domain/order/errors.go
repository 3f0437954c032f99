package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned when placing an order from a cart with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAlreadyDelivered is returned when cancelling a delivered order.
	ErrAlreadyDelivered = errors.New("cannot cancel delivered order")
	// ErrShippingAddressRequired is returned when the address is incomplete.
	ErrShippingAddressRequired = errors.New("shipping address is required")
)

// ProductNotFoundError indicates a cart line references a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// StockConflictError indicates stock for a product dropped between
// validation and reservation. Reservations already applied in the same
// attempt have been rolled back.
type StockConflictError struct {
	ProductID string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock for product %s changed during checkout", e.ProductID)
}

// OrderNotFoundError indicates the requested order does not exist. It is
// only reported to administrators; other callers get auth.ErrNotAuthorized.
type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

// InvalidStatusError indicates a status string outside the closed enum.
type InvalidStatusError struct {
	Value   string
	Payment bool
}

func (e *InvalidStatusError) Error() string {
	if e.Payment {
		return fmt.Sprintf("invalid payment status %q", e.Value)
	}
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// InvalidTransitionError indicates a status change absent from the
// transition table.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}
