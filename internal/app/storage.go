package app

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/dashboard"
	"github.com/xenking/vireon/internal/domain/notification"
	"github.com/xenking/vireon/internal/domain/order"
	"github.com/xenking/vireon/internal/domain/product"
	"github.com/xenking/vireon/internal/repository"
	"github.com/xenking/vireon/internal/storage/memory"
	"github.com/xenking/vireon/internal/storage/seed"
	"github.com/xenking/vireon/pkg/health"
)

// storage is the set of repositories backing the services.
type storage struct {
	products      product.Repository
	carts         cart.Repository
	orders        order.Repository
	notifications notification.Repository
	users         auth.UserRepository
	stats         dashboard.Source

	// tx is nil for the memory backend; the workflow then compensates
	// reservations manually.
	tx order.Transactor
	// pool is nil when the backend has no external dependency to probe.
	pool interface {
		health.Pinger
		health.PoolStater
	}

	close func()
}

// openStorage connects the configured backend. The memory backend starts
// with the embedded sample catalog.
func openStorage(ctx context.Context, cfg *Config) (*storage, error) {
	if cfg.Storage == StorageMemory {
		s := memory.New()
		products, err := seed.Sample()
		if err != nil {
			return nil, errors.Wrap(err, "load sample catalog")
		}
		if err := seed.Apply(ctx, s.Products, products, nil); err != nil {
			return nil, errors.Wrap(err, "seed memory catalog")
		}
		return &storage{
			products:      s.Products,
			carts:         s.Carts,
			orders:        s.Orders,
			notifications: s.Notifications,
			users:         s.Users,
			stats:         s,
			close:         func() {},
		}, nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	return &storage{
		products:      repository.NewProductRepository(pool),
		carts:         repository.NewCartRepository(pool),
		orders:        repository.NewOrderRepository(pool),
		notifications: repository.NewNotificationRepository(pool),
		users:         repository.NewUserRepository(pool),
		stats:         repository.NewStatsRepository(pool),
		tx:            repository.NewTransactor(pool),
		pool:          pool,
		close:         pool.Close,
	}, nil
}
