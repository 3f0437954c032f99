package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/notification"
	"github.com/xenking/vireon/internal/domain/product"
)

const (
	defaultValidationConcurrency = 8
	defaultPageLimit             = 10
	maxPageLimit                 = 100
)

// Config holds optional collaborators and tuning for the Service.
type Config struct {
	// Transactor wraps reservation and commit in one storage transaction.
	// When nil, partial reservations are compensated manually.
	Transactor Transactor
	// ValidationConcurrency bounds parallel product lookups during
	// validation. Defaults to 8.
	ValidationConcurrency int

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service encapsulates the order workflow: placement, cancellation and
// status changes.
type Service struct {
	products      product.Catalog
	carts         cart.Store
	orders        Repository
	notifications notification.Sink

	tx          Transactor
	concurrency int
	tracer      trace.Tracer
	metrics     *metrics
	now         func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Catalog,
	carts cart.Store,
	orders Repository,
	notifications notification.Sink,
	cfg Config,
) (*Service, error) {
	if cfg.Transactor == nil {
		cfg.Transactor = noTx{}
	}
	if cfg.ValidationConcurrency <= 0 {
		cfg.ValidationConcurrency = defaultValidationConcurrency
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	m, err := newMetrics(cfg.MeterProvider.Meter("vireon/order"))
	if err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}

	return &Service{
		products:      products,
		carts:         carts,
		orders:        orders,
		notifications: notifications,
		tx:            cfg.Transactor,
		concurrency:   cfg.ValidationConcurrency,
		tracer:        cfg.TracerProvider.Tracer("vireon/order"),
		metrics:       m,
		now:           time.Now,
	}, nil
}

// GetOrder returns an order visible to caller.
func (s *Service) GetOrder(ctx context.Context, orderID string, caller auth.Principal) (*Order, error) {
	return s.authorizedOrder(ctx, orderID, caller)
}

// Page selects a window of the admin order listing. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// List is a page of orders.
type List struct {
	Orders []Order
	Total  int
	Page   int
	Pages  int
}

// ListOrders returns the caller's own orders, newest first. Administrators
// get every order, paginated.
func (s *Service) ListOrders(ctx context.Context, caller auth.Principal, page Page) (*List, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrAuthenticationRequired
	}

	if !caller.IsAdmin() {
		orders, err := s.orders.ListByUser(ctx, caller.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "list user orders")
		}
		return &List{Orders: orders, Total: len(orders), Page: 1, Pages: 1}, nil
	}

	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = defaultPageLimit
	}
	page.Limit = min(page.Limit, maxPageLimit)

	orders, total, err := s.orders.List(ctx, (page.Page-1)*page.Limit, page.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return &List{
		Orders: orders,
		Total:  total,
		Page:   page.Page,
		Pages:  (total + page.Limit - 1) / page.Limit,
	}, nil
}

// authorizedOrder loads an order and checks the caller may act on it.
// Non-admin callers cannot tell a missing order from a foreign one.
func (s *Service) authorizedOrder(ctx context.Context, orderID string, caller auth.Principal) (*Order, error) {
	if !caller.Authenticated() {
		return nil, auth.ErrAuthenticationRequired
	}

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if caller.IsAdmin() {
				return nil, &OrderNotFoundError{OrderID: orderID}
			}
			return nil, auth.ErrNotAuthorized
		}
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	if !caller.IsAdmin() && o.UserID != caller.UserID {
		return nil, auth.ErrNotAuthorized
	}
	return o, nil
}
