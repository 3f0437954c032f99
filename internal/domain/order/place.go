package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/notification"
	"github.com/xenking/vireon/internal/domain/product"
)

// Stage names a step of a placement attempt. Stages are recorded as span
// events.
type Stage string

const (
	StageValidating Stage = "validating"
	StageRejected   Stage = "rejected"
	StageReserving  Stage = "reserving"
	StageRolledBack Stage = "rolled_back"
	StageCommitted  Stage = "committed"
	StageNotified   Stage = "notified"
	StageDone       Stage = "done"
)

// maxConflictRetries is how many times a lost stock race is re-validated
// against fresh stock before the conflict is surfaced.
const maxConflictRetries = 1

// sideEffectTimeout bounds the post-commit notification and cart clear.
const sideEffectTimeout = 5 * time.Second

// idempotencyNamespace seeds UUIDv5 order IDs derived from idempotency keys.
var idempotencyNamespace = uuid.MustParse("9b6f0f43-3c1e-5d8a-a7f2-0c9e6d4b1a27")

// errDuplicate signals that a concurrent request with the same idempotency
// key committed first.
var errDuplicate = errors.New("duplicate placement")

// PlaceOrderRequest holds the input for placing an order from the cart.
type PlaceOrderRequest struct {
	ShippingAddress Address
	PaymentMethod   string
	// IdempotencyKey makes retries safe: a repeated key for the same user
	// returns the already committed order instead of placing a new one.
	IdempotencyKey string
}

// PlaceOrder converts the caller's cart into a committed order.
//
// Stock is validated, then reserved with a conditional decrement per
// product, then the order snapshot is persisted. A lost stock race rolls
// back partial reservations and is retried once against fresh stock. After
// commit a notification is appended and the cart cleared; failures of these
// two steps are logged and do not fail the placement.
func (s *Service) PlaceOrder(ctx context.Context, caller auth.Principal, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("user_id", caller.UserID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if !caller.Authenticated() {
		return nil, auth.ErrAuthenticationRequired
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	orderID := uuid.New().String()
	if req.IdempotencyKey != "" {
		orderID = idempotentOrderID(caller.UserID, req.IdempotencyKey)
		existing, err := s.replay(ctx, caller.UserID, orderID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	var (
		o   *Order
		err error
	)
	for attempt := 0; ; attempt++ {
		o, err = s.attempt(ctx, caller.UserID, orderID, req)
		var conflict *StockConflictError
		if errors.As(err, &conflict) && attempt < maxConflictRetries {
			zctx.From(ctx).Info("Stock conflict, revalidating",
				zap.String("product_id", conflict.ProductID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		break
	}
	if errors.Is(err, errDuplicate) || (errors.Is(err, ErrEmptyCart) && req.IdempotencyKey != "") {
		existing, rerr := s.replay(ctx, caller.UserID, orderID)
		if rerr != nil {
			return nil, rerr
		}
		if existing != nil {
			return existing, nil
		}
		if errors.Is(err, errDuplicate) {
			return nil, errors.Errorf("order %s reported duplicate but not found", orderID)
		}
	}
	if err != nil {
		span.AddEvent(string(StageRejected))
		s.metrics.reject(ctx, rejectReason(err))
		return nil, err
	}
	span.AddEvent(string(StageCommitted))

	s.notify(ctx, o.UserID, fmt.Sprintf("Your order #%s has been placed successfully!", o.ID))
	span.AddEvent(string(StageNotified))

	s.clearCart(ctx, o)
	span.AddEvent(string(StageDone))

	s.metrics.placed.Add(ctx, 1)
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

// attempt runs one VALIDATING -> RESERVING -> COMMITTED pass.
func (s *Service) attempt(ctx context.Context, userID, orderID string, req PlaceOrderRequest) (*Order, error) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(string(StageValidating))

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	lines, err := mergeLines(c.Items)
	if err != nil {
		return nil, err
	}
	products, err := s.validate(ctx, lines)
	if err != nil {
		return nil, err
	}
	o := s.snapshot(orderID, userID, req, lines, products)

	span.AddEvent(string(StageReserving))
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		res, err := s.reserve(ctx, lines)
		if err != nil {
			return err
		}
		if err := s.orders.Create(ctx, o); err != nil {
			res.rollback(ctx)
			if errors.Is(err, ErrAlreadyExists) {
				return errDuplicate
			}
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(items []cart.Item) ([]cart.Item, error) {
	lines := make([]cart.Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, item)
	}
	return lines, nil
}

// validate re-fetches every product and checks stock covers the line. No
// state is mutated.
func (s *Service) validate(ctx context.Context, lines []cart.Item) ([]*product.Product, error) {
	products := make([]*product.Product, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			p, err := s.products.Get(gctx, line.ProductID)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return &ProductNotFoundError{ProductID: line.ProductID}
				}
				return errors.Wrapf(err, "get product %s", line.ProductID)
			}
			if p.Stock < line.Quantity {
				return &product.InsufficientStockError{
					ProductID: line.ProductID,
					Available: p.Stock,
					Requested: line.Quantity,
				}
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

// snapshot copies name and price of each product into the order lines.
func (s *Service) snapshot(
	orderID, userID string,
	req PlaceOrderRequest,
	lines []cart.Item,
	products []*product.Product,
) *Order {
	now := s.now().UTC()
	items := make([]Item, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		p := products[i]
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  line.Quantity,
			Subtotal:  subtotal,
		}
		total = total.Add(subtotal)
	}

	return &Order{
		ID:              orderID,
		UserID:          userID,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// replay returns the order already committed under orderID, finishing the
// cart clear a crashed attempt may have skipped. It returns nil when no such
// order exists.
func (s *Service) replay(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	if o.UserID != userID {
		return nil, auth.ErrNotAuthorized
	}

	zctx.From(ctx).Info("Replaying committed order", zap.String("order_id", o.ID))
	s.clearCart(ctx, o)
	return o, nil
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.notifications.Append(ctx, userID, notification.TypeOrderStatus, message); err != nil {
		zctx.From(ctx).Warn("Notification dropped",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// clearCart removes the ordered lines from the cart. Items added after the
// cart was read stay for the next checkout.
func (s *Service) clearCart(ctx context.Context, o *Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	items := make([]cart.Item, len(o.Items))
	for i, item := range o.Items {
		items[i] = cart.Item{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	if err := s.carts.Remove(ctx, o.UserID, items); err != nil {
		zctx.From(ctx).Error("Cart clear failed",
			zap.String("user_id", o.UserID),
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

func idempotentOrderID(userID, key string) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(userID+"\x00"+key)).String()
}

func rejectReason(err error) string {
	var (
		stockErr    *product.InsufficientStockError
		conflictErr *StockConflictError
		notFoundErr *ProductNotFoundError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &conflictErr):
		return "stock_conflict"
	case errors.As(err, &notFoundErr):
		return "product_not_found"
	default:
		return "error"
	}
}
