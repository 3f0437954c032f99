package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	placed    metric.Int64Counter
	rejected  metric.Int64Counter
	conflicts metric.Int64Counter
	rollbacks metric.Int64Counter
	cancelled metric.Int64Counter
}

func newMetrics(m metric.Meter) (*metrics, error) {
	var (
		out metrics
		err error
	)
	for _, c := range []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.placed, "vireon.orders.placed", "Orders committed"},
		{&out.rejected, "vireon.orders.rejected", "Placement attempts that failed, by reason"},
		{&out.conflicts, "vireon.orders.conflicts", "Reservations that lost a stock race"},
		{&out.rollbacks, "vireon.orders.rollbacks", "Partial reservations reversed"},
		{&out.cancelled, "vireon.orders.cancelled", "Orders cancelled with stock restored"},
	} {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, errors.Wrapf(err, "counter %s", c.name)
		}
	}
	return &out, nil
}

func (m *metrics) reject(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
