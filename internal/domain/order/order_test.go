package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vireon/internal/domain/cart"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[Status][]Status{
		StatusPending:    {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped, StatusCancelled},
		StatusShipped:    {StatusDelivered, StatusCancelled},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, st := range allowed[from] {
				if st == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusShipped.Terminal())
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPaid, true},
		{PaymentPending, PaymentFailed, true},
		{PaymentPending, PaymentRefunded, false},
		{PaymentFailed, PaymentPending, true},
		{PaymentFailed, PaymentPaid, true},
		{PaymentPaid, PaymentRefunded, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentRefunded, PaymentPaid, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" Shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("returned")
	var target *InvalidStatusError
	require.ErrorAs(t, err, &target)
	assert.False(t, target.Payment)

	ps, err := ParsePaymentStatus("PAID")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, ps)
}

func TestAddress_Validate(t *testing.T) {
	full := Address{Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
	require.NoError(t, full.Validate())

	missing := full
	missing.City = "  "
	require.ErrorIs(t, missing.Validate(), ErrShippingAddressRequired)
}

func TestMergeLines(t *testing.T) {
	lines, err := mergeLines([]cart.Item{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "b", lines[0].ProductID)
	assert.Equal(t, 4, lines[0].Quantity)

	_, err = mergeLines([]cart.Item{{ProductID: "a", Quantity: -1}})
	var target *InvalidQuantityError
	require.ErrorAs(t, err, &target)
}
