package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// statusTransitions lists the allowed next states. Delivered and cancelled
// are terminal; anything before delivery can still be cancelled.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// ParseStatus maps a case-insensitive string onto a known Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusTransitions[st]; !ok {
		return "", &InvalidStatusError{Value: s}
	}
	return st, nil
}

// CanTransitionTo reports whether next is a modelled successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, st := range statusTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0
}

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentFailed:   {PaymentPending, PaymentPaid},
	PaymentPaid:     {PaymentRefunded},
	PaymentRefunded: nil,
}

// ParsePaymentStatus maps a case-insensitive string onto a known PaymentStatus.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := paymentTransitions[st]; !ok {
		return "", &InvalidStatusError{Value: s, Payment: true}
	}
	return st, nil
}

// CanTransitionTo reports whether next is a modelled successor of s.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, st := range paymentTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// Address is a shipping destination.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Validate checks the fields required to ship.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" ||
		strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" ||
		strings.TrimSpace(a.Country) == "" {
		return ErrShippingAddressRequired
	}
	return nil
}

// Item is an immutable line captured at purchase time. It copies name and
// price so later catalog changes do not alter order history.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// PaymentDetails records the settlement that marked an order paid.
type PaymentDetails struct {
	TransactionID string
	PaymentDate   time.Time
}

// Order is a committed purchase.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	TotalAmount     decimal.Decimal
	ShippingAddress Address
	PaymentMethod   string
	Status          Status
	PaymentStatus   PaymentStatus
	IsDelivered     bool
	DeliveredAt     *time.Time
	IsPaid          bool
	PaidAt          *time.Time
	PaymentDetails  *PaymentDetails
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Version is bumped by every successful Repository.Update and guards
	// concurrent status changes.
	Version int
}

var (
	// ErrNotFound is returned by a Repository when no order matches.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyExists is returned by Repository.Create for a duplicate ID.
	ErrAlreadyExists = errors.New("order already exists")
	// ErrConcurrentUpdate is returned by Repository.Update when the stored
	// version no longer matches.
	ErrConcurrentUpdate = errors.New("order was modified concurrently")
)

// Repository defines persistence operations for orders.
//
// Update writes the mutable lifecycle fields only if the stored Version
// equals o.Version, then increments o.Version.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, offset, limit int) ([]Order, int, error)
}

// Transactor runs fn in a single storage transaction. Repositories used
// inside fn must pick the transaction up from the passed context.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// noTx runs fn directly; the workflow then relies on manual compensation.
type noTx struct{}

func (noTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
