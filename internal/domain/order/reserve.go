package order

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/product"
)

// reservation tracks the decrements applied by one placement attempt so
// they can be reversed.
type reservation struct {
	catalog product.Catalog
	metrics *metrics
	// compensate is false when a storage transaction undoes the
	// decrements on its own.
	compensate bool
	applied    []cart.Item
}

// reserve decrements stock for every line. Lines are applied in product ID
// order so concurrent attempts lock rows in the same order. On the first
// failed decrement everything applied so far is rolled back.
func (s *Service) reserve(ctx context.Context, lines []cart.Item) (*reservation, error) {
	ordered := slices.Clone(lines)
	slices.SortFunc(ordered, func(a, b cart.Item) int {
		return strings.Compare(a.ProductID, b.ProductID)
	})

	_, manual := s.tx.(noTx)
	r := &reservation{
		catalog:    s.products,
		metrics:    s.metrics,
		compensate: manual,
		applied:    make([]cart.Item, 0, len(ordered)),
	}
	for _, line := range ordered {
		err := s.products.ConditionalDecrement(ctx, line.ProductID, line.Quantity)
		if err == nil {
			r.applied = append(r.applied, line)
			continue
		}

		r.rollback(ctx)
		if errors.Is(err, product.ErrInsufficientStock) || errors.Is(err, product.ErrNotFound) {
			s.metrics.conflicts.Add(ctx, 1)
			return nil, &StockConflictError{ProductID: line.ProductID}
		}
		return nil, errors.Wrapf(err, "reserve product %s", line.ProductID)
	}
	return r, nil
}

// rollback reverses applied decrements in reverse order. It runs even if
// ctx is already cancelled.
func (r *reservation) rollback(ctx context.Context) {
	trace.SpanFromContext(ctx).AddEvent(string(StageRolledBack))
	if len(r.applied) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	r.metrics.rollbacks.Add(ctx, 1)

	if r.compensate {
		lg := zctx.From(ctx)
		for i := len(r.applied) - 1; i >= 0; i-- {
			line := r.applied[i]
			if err := r.catalog.Increment(ctx, line.ProductID, line.Quantity); err != nil {
				lg.Error("Stock rollback failed",
					zap.String("product_id", line.ProductID),
					zap.Int("quantity", line.Quantity),
					zap.Error(err),
				)
			}
		}
	}
	r.applied = nil
}
