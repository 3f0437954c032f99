//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/notification"
	"github.com/xenking/vireon/internal/domain/order"
	"github.com/xenking/vireon/internal/domain/product"
	"github.com/xenking/vireon/pkg/health"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "vireon",
				"POSTGRES_PASSWORD": "vireon",
				"POSTGRES_DB":       "vireon",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := pg.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://vireon:vireon@%s:%s/vireon?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	return m.Run()
}

func seedProduct(t *testing.T, id string, stock int) *ProductRepository {
	t.Helper()
	repo := NewProductRepository(testPool)
	require.NoError(t, repo.Upsert(context.Background(), &product.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString("12.50"),
		Category: "Test",
		Stock:    stock,
	}))
	return repo
}

func TestProductRepository_ConditionalDecrement(t *testing.T) {
	ctx := context.Background()
	repo := seedProduct(t, "decrement-1", 5)

	require.NoError(t, repo.ConditionalDecrement(ctx, "decrement-1", 3))
	require.ErrorIs(t, repo.ConditionalDecrement(ctx, "decrement-1", 3), product.ErrInsufficientStock)
	require.ErrorIs(t, repo.ConditionalDecrement(ctx, "missing", 1), product.ErrNotFound)
	require.ErrorIs(t, repo.Increment(ctx, "missing", 1), product.ErrNotFound)

	require.NoError(t, repo.Increment(ctx, "decrement-1", 1))
	p, err := repo.Get(ctx, "decrement-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
	assert.True(t, decimal.RequireFromString("12.50").Equal(p.Price))
}

func TestProductRepository_ConcurrentDecrement(t *testing.T) {
	ctx := context.Background()
	repo := seedProduct(t, "race-1", 5)

	var (
		wg sync.WaitGroup
		ok atomic.Int64
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.ConditionalDecrement(ctx, "race-1", 3) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	p, err := repo.Get(ctx, "race-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, ok.Load())
	assert.Equal(t, 2, p.Stock)
}

func TestTransactor_RollsBackStock(t *testing.T) {
	ctx := context.Background()
	repo := seedProduct(t, "tx-1", 5)
	tx := NewTransactor(testPool)

	boom := errors.New("boom")
	err := tx.InTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.ConditionalDecrement(ctx, "tx-1", 4))
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := repo.Get(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(testPool)

	c, err := repo.Get(ctx, "cart-user")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	saved := &cart.Cart{
		UserID:    "cart-user",
		Items:     []cart.Item{{ProductID: "b", Quantity: 1}, {ProductID: "a", Quantity: 2}},
		Total:     decimal.RequireFromString("3.00"),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, saved))
	assert.Equal(t, 1, saved.Version)
	require.ErrorIs(t, repo.Save(ctx, &cart.Cart{UserID: "cart-user"}), cart.ErrConcurrentUpdate)

	c, err = repo.Get(ctx, "cart-user")
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "b", c.Items[0].ProductID)
	assert.Equal(t, 1, c.Version)

	c.Items = append(c.Items, cart.Item{ProductID: "c", Quantity: 4})
	require.NoError(t, repo.Save(ctx, c))
	require.ErrorIs(t, repo.Save(ctx, saved), cart.ErrConcurrentUpdate, "saved from a stale read")

	require.NoError(t, repo.Remove(ctx, "cart-user", []cart.Item{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 1},
	}))
	c, err = repo.Get(ctx, "cart-user")
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductID: "a", Quantity: 1}, {ProductID: "c", Quantity: 4}}, c.Items)
	assert.Equal(t, 3, c.Version)

	rest := []cart.Item{{ProductID: "a", Quantity: 1}, {ProductID: "c", Quantity: 4}}
	require.NoError(t, repo.Remove(ctx, "cart-user", rest))
	require.NoError(t, repo.Remove(ctx, "cart-user", rest))
	c, err = repo.Get(ctx, "cart-user")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.Version)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	o := &order.Order{
		ID:     "order-1",
		UserID: "order-user",
		Items: []order.Item{{
			ProductID: "p1",
			Name:      "Lamp",
			Price:     decimal.RequireFromString("19.99"),
			Quantity:  2,
			Subtotal:  decimal.RequireFromString("39.98"),
		}},
		TotalAmount:     decimal.RequireFromString("39.98"),
		ShippingAddress: order.Address{Street: "1 Main", City: "Town", PostalCode: "1", Country: "US"},
		PaymentMethod:   "card",
		Status:          order.StatusPending,
		PaymentStatus:   order.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, repo.Create(ctx, o))
	require.ErrorIs(t, repo.Create(ctx, o), order.ErrAlreadyExists)

	got, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress)
	require.Len(t, got.Items, 1)
	assert.True(t, o.Items[0].Subtotal.Equal(got.Items[0].Subtotal))

	stale := *got
	got.Status = order.StatusProcessing
	got.PaymentStatus = order.PaymentPaid
	got.IsPaid = true
	got.PaidAt = &now
	got.PaymentDetails = &order.PaymentDetails{TransactionID: "tx-1", PaymentDate: now}
	require.NoError(t, repo.Update(ctx, got))
	assert.Equal(t, 1, got.Version)
	require.ErrorIs(t, repo.Update(ctx, &stale), order.ErrConcurrentUpdate)

	reloaded, err := repo.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, reloaded.Status)
	require.NotNil(t, reloaded.PaymentDetails)
	assert.Equal(t, "tx-1", reloaded.PaymentDetails.TransactionID)

	mine, err := repo.ListByUser(ctx, "order-user")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestUserAndNotificationRepositories(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(testPool)
	u := &auth.User{
		ID:           "user-1",
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: []byte("hash"),
		Role:         auth.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, users.Create(ctx, u))
	require.ErrorIs(t, users.Create(ctx, u), auth.ErrEmailTaken)

	got, err := users.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, got.Role)

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	notes := NewNotificationRepository(testPool)
	require.NoError(t, notes.Append(ctx, "user-1", notification.TypeOrderStatus, "hello"))
	list, err := notes.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Message)

	st, err := NewStatsRepository(testPool).Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.Users, 1)
}

func TestPoolProbes(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, health.PingCheck(testPool)(ctx))
	require.NoError(t, health.PoolSaturationCheck(testPool)(ctx))
}
