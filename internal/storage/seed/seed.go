// Package seed loads product catalogs from JSON, plain or gzipped.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/db"
	"github.com/xenking/vireon/internal/domain/product"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

// Upserter stores catalog entries; product.Repository implements it.
type Upserter interface {
	Upsert(ctx context.Context, p *product.Product) error
}

// Sample returns the embedded catalog.
func Sample() ([]product.Product, error) {
	return Decode(bytes.NewReader(db.SampleProducts))
}

// ReadFile parses the catalog at path. Files ending in .gz are
// decompressed first.
func ReadFile(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return Decode(r)
}

// Decode parses a JSON array of products.
func Decode(r io.Reader) ([]product.Product, error) {
	var raw []productJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	products := make([]product.Product, 0, len(raw))
	for _, p := range raw {
		if p.ID == "" || p.Name == "" {
			return nil, errors.Errorf("product %q: id and name are required", p.ID)
		}
		if p.Stock < 0 || p.Price.IsNegative() {
			return nil, errors.Errorf("product %s: price and stock must not be negative", p.ID)
		}
		products = append(products, product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    p.Category,
			Stock:       p.Stock,
			Image:       p.Image,
		})
	}
	return products, nil
}

// Apply upserts every product, calling done after each one when non-nil.
func Apply(ctx context.Context, repo Upserter, products []product.Product, done func(p *product.Product)) error {
	for i := range products {
		p := &products[i]
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		if done != nil {
			done(p)
		}
	}
	return nil
}
