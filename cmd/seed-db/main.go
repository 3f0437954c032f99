package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/product"
	"github.com/xenking/vireon/internal/repository"
	"github.com/xenking/vireon/internal/storage/seed"
)

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file, optionally gzipped (.gz); defaults to the embedded sample catalog")
	flag.StringVar(&adminEmail, "admin-email", "", "administrator email to create (or VIREON_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "administrator password (or VIREON_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("VIREON_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("VIREON_ADMIN_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if adminEmail == "" || adminPassword == "" {
		slog.Info("no administrator requested, skipping")
		return nil
	}
	accounts := auth.NewAccounts(repository.NewUserRepository(pool), nil)
	if err := accounts.EnsureAdmin(ctx, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed administrator")
	}
	slog.Info("ensured administrator", slog.String("email", adminEmail))

	return nil
}

func seedProducts(ctx context.Context, repo seed.Upserter, productsFile string) error {
	var (
		products []product.Product
		err      error
	)
	if productsFile == "" {
		slog.Info("using embedded sample catalog")
		products, err = seed.Sample()
	} else {
		slog.Info("reading products file", slog.String("path", productsFile))
		products, err = seed.ReadFile(productsFile)
	}
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	return seed.Apply(ctx, repo, products, func(p *product.Product) {
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name), slog.Int("stock", p.Stock))
	})
}
