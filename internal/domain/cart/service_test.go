package cart_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/product"
	"github.com/xenking/vireon/internal/storage/memory"
)

func newService(t *testing.T) (*cart.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Products.Upsert(ctx, &product.Product{
		ID: "lamp", Name: "Lamp", Price: decimal.RequireFromString("19.99"), Stock: 5,
	}))
	require.NoError(t, store.Products.Upsert(ctx, &product.Product{
		ID: "mug", Name: "Mug", Price: decimal.RequireFromString("7.50"), Stock: 1,
	}))
	return cart.NewService(store.Carts, store.Products), store
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	c, err := svc.AddItem(ctx, "u1", "lamp", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, decimal.RequireFromString("39.98").Equal(c.Total))

	c, err = svc.AddItem(ctx, "u1", "lamp", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)

	c, err = svc.AddItem(ctx, "u1", "mug", 1)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.True(t, decimal.RequireFromString("67.47").Equal(c.Total), c.Total.String())

	got, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		quantity  int
		check     func(t *testing.T, err error)
	}{
		{
			name:      "zero quantity",
			productID: "lamp",
			quantity:  0,
			check: func(t *testing.T, err error) {
				var target *cart.InvalidQuantityError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name:      "unknown product",
			productID: "ghost",
			quantity:  1,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, product.ErrNotFound)
			},
		},
		{
			name:      "merged quantity over stock",
			productID: "mug",
			quantity:  1,
			check: func(t *testing.T, err error) {
				var target *product.InsufficientStockError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 2, target.Requested)
				assert.Equal(t, 1, target.Available)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newService(t)
			_, err := svc.AddItem(ctx, "u1", "mug", 1)
			require.NoError(t, err)

			_, err = svc.AddItem(ctx, "u1", tt.productID, tt.quantity)
			tt.check(t, err)

			c, err := svc.Get(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, c.Items, 1)
			assert.Equal(t, 1, c.Items[0].Quantity)
		})
	}
}

// racingCarts lets another writer change the cart right before each of the
// first races saves.
type racingCarts struct {
	*memory.Carts
	races int
	saves int
}

func (c *racingCarts) Save(ctx context.Context, saved *cart.Cart) error {
	c.saves++
	if c.races > 0 {
		c.races--
		other, err := c.Carts.Get(ctx, saved.UserID)
		if err != nil {
			return err
		}
		other.UserID = saved.UserID
		other.Items = append(other.Items, cart.Item{ProductID: "mug", Quantity: 1})
		if err := c.Carts.Save(ctx, other); err != nil {
			return err
		}
	}
	return c.Carts.Save(ctx, saved)
}

func TestAddItem_ConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	_, store := newService(t)
	carts := &racingCarts{Carts: store.Carts, races: 1}
	svc := cart.NewService(carts, store.Products)

	c, err := svc.AddItem(ctx, "u1", "lamp", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, carts.saves)
	assert.Equal(t, []cart.Item{
		{ProductID: "mug", Quantity: 1},
		{ProductID: "lamp", Quantity: 2},
	}, c.Items, "the other writer's line survives")
	assert.True(t, decimal.RequireFromString("47.48").Equal(c.Total), c.Total.String())
}

func TestAddItem_ConcurrentWriterGivesUp(t *testing.T) {
	ctx := context.Background()
	_, store := newService(t)
	carts := &racingCarts{Carts: store.Carts, races: 10}
	svc := cart.NewService(carts, store.Products)

	_, err := svc.AddItem(ctx, "u1", "lamp", 1)
	require.ErrorIs(t, err, cart.ErrConcurrentUpdate)
	assert.Equal(t, 3, carts.saves)
}

func TestGet_SkipsMissingProducts(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	require.NoError(t, store.Carts.Save(ctx, &cart.Cart{
		UserID: "u1",
		Items: []cart.Item{
			{ProductID: "lamp", Quantity: 1},
			{ProductID: "ghost", Quantity: 3},
		},
	}))

	c, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
	assert.True(t, decimal.RequireFromString("19.99").Equal(c.Total), c.Total.String())
}
