package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/product"
)

// CancelOrder cancels an order owned by caller and restores the reserved
// stock. Delivered orders cannot be cancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID string, caller auth.Principal) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CancelOrder",
		trace.WithAttributes(attribute.String("order_id", orderID)),
	)
	defer span.End()

	o, err := s.authorizedOrder(ctx, orderID, caller)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusDelivered {
		return nil, ErrAlreadyDelivered
	}
	if err := s.changeStatus(ctx, o, StatusCancelled); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrderStatus moves an order along the fulfilment table. Only
// administrators may call it.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, status string, caller auth.Principal) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateOrderStatus",
		trace.WithAttributes(
			attribute.String("order_id", orderID),
			attribute.String("status", status),
		),
	)
	defer span.End()

	if !caller.Authenticated() {
		return nil, auth.ErrAuthenticationRequired
	}
	if !caller.IsAdmin() {
		return nil, auth.ErrNotAuthorized
	}
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	o, err := s.authorizedOrder(ctx, orderID, caller)
	if err != nil {
		return nil, err
	}
	if next == StatusCancelled && o.Status == StatusDelivered {
		return nil, ErrAlreadyDelivered
	}
	if err := s.changeStatus(ctx, o, next); err != nil {
		return nil, err
	}
	return o, nil
}

// PaymentMetadata carries provider details recorded when a payment settles.
type PaymentMetadata struct {
	TransactionID string
}

// UpdatePaymentStatus moves the payment along its own table. Marking an
// order paid stamps the payment date and transaction details.
func (s *Service) UpdatePaymentStatus(
	ctx context.Context,
	orderID, status string,
	meta PaymentMetadata,
	caller auth.Principal,
) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdatePaymentStatus",
		trace.WithAttributes(
			attribute.String("order_id", orderID),
			attribute.String("payment_status", status),
		),
	)
	defer span.End()

	o, err := s.authorizedOrder(ctx, orderID, caller)
	if err != nil {
		return nil, err
	}
	next, err := ParsePaymentStatus(status)
	if err != nil {
		return nil, err
	}
	if !o.PaymentStatus.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: string(o.PaymentStatus), To: string(next)}
	}

	now := s.now().UTC()
	o.PaymentStatus = next
	o.UpdatedAt = now
	if next == PaymentPaid {
		o.IsPaid = true
		o.PaidAt = &now
		o.PaymentDetails = &PaymentDetails{
			TransactionID: meta.TransactionID,
			PaymentDate:   now,
		}
	}
	if err := s.orders.Update(ctx, o); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "update order %s", o.ID)
	}

	zctx.From(ctx).Info("Payment status changed",
		zap.String("order_id", o.ID),
		zap.String("payment_status", string(next)),
	)
	return o, nil
}

// changeStatus applies a checked status transition. Cancellation restores
// stock for every line within the same transaction as the status write.
func (s *Service) changeStatus(ctx context.Context, o *Order, next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return &InvalidTransitionError{From: string(o.Status), To: string(next)}
	}

	prev := o.Status
	now := s.now().UTC()
	o.Status = next
	o.UpdatedAt = now
	if next == StatusDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &now
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Update(ctx, o); err != nil {
			if errors.Is(err, ErrConcurrentUpdate) {
				return err
			}
			return errors.Wrapf(err, "update order %s", o.ID)
		}
		if next == StatusCancelled {
			return s.restoreStock(ctx, o)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if next == StatusCancelled {
		s.metrics.cancelled.Add(ctx, 1)
	}
	zctx.From(ctx).Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	s.notify(ctx, o.UserID, fmt.Sprintf("Your order #%s is now %s.", o.ID, next))
	return nil
}

// restoreStock returns every line's quantity to the catalog. Products
// removed from the catalog since placement are skipped.
func (s *Service) restoreStock(ctx context.Context, o *Order) error {
	for _, item := range o.Items {
		err := s.products.Increment(ctx, item.ProductID, item.Quantity)
		if errors.Is(err, product.ErrNotFound) {
			zctx.From(ctx).Warn("Skipping stock restore for missing product",
				zap.String("order_id", o.ID),
				zap.String("product_id", item.ProductID),
			)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "restore stock for product %s", item.ProductID)
		}
	}
	return nil
}
