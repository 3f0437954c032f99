package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vireon/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, category, stock, image, created_at`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE ($1 = '' OR category = $1) ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	incrementStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, category, stock, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			stock = EXCLUDED.stock,
			image = EXCLUDED.image
		RETURNING created_at`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns products ordered by ID. An empty category matches all.
func (r *ProductRepository) List(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listProductsSQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Get returns a single product by its identifier.
func (r *ProductRepository) Get(ctx context.Context, id string) (*product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// ConditionalDecrement lowers stock in a single guarded UPDATE, so the
// check and the write cannot interleave with another buyer.
func (r *ProductRepository) ConditionalDecrement(ctx context.Context, id string, amount int) error {
	q := conn(ctx, r.pool)
	tag, err := q.Exec(ctx, decrementStockSQL, id, amount)
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.missOrShort(ctx, q, id)
}

// Increment raises stock by amount.
func (r *ProductRepository) Increment(ctx context.Context, id string, amount int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, incrementStockSQL, id, amount)
	if err != nil {
		return fmt.Errorf("incrementing stock for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts p or overwrites the product with the same ID.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	err := conn(ctx, r.pool).QueryRow(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Stock, p.Image,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func (r *ProductRepository) missOrShort(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, productExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking product %q: %w", id, err)
	}
	if !exists {
		return product.ErrNotFound
	}
	return product.ErrInsufficientStock
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price,
		&p.Category, &p.Stock, &p.Image, &p.CreatedAt,
	)
	return p, err
}
