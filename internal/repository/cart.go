package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/internal/domain/cart"
)

const (
	getCartSQL = `SELECT total, updated_at, version FROM carts WHERE user_id = $1`

	getCartItemsSQL = `SELECT product_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY position`

	insertCartSQL = `INSERT INTO carts (user_id, total, updated_at, version) VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id) DO NOTHING`

	updateCartSQL = `UPDATE carts SET total = $2, updated_at = $3, version = version + 1
		WHERE user_id = $1 AND version = $4`

	deleteCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1`

	insertCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity, position)
		VALUES ($1, $2, $3, $4)`

	dropCartItemSQL = `DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = $2 AND quantity <= $3`

	shrinkCartItemSQL = `UPDATE cart_items SET quantity = quantity - $3
		WHERE user_id = $1 AND product_id = $2 AND quantity > $3`

	bumpCartSQL = `UPDATE carts SET version = version + 1 WHERE user_id = $1`

	deleteEmptyCartSQL = `DELETE FROM carts WHERE user_id = $1
		AND NOT EXISTS (SELECT 1 FROM cart_items WHERE user_id = $1)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
	tx   *Transactor
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool, tx: NewTransactor(pool)}
}

// Get returns the user's cart, or an empty cart when none is stored.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	q := conn(ctx, r.pool)
	c := &cart.Cart{UserID: userID, Total: decimal.Zero}

	err := q.QueryRow(ctx, getCartSQL, userID).Scan(&c.Total, &c.UpdatedAt, &c.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, nil
		}
		return nil, fmt.Errorf("getting cart for %q: %w", userID, err)
	}

	rows, err := q.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items for %q: %w", userID, err)
	}
	c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var item cart.Item
		err := row.Scan(&item.ProductID, &item.Quantity)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart items for %q: %w", userID, err)
	}
	return c, nil
}

// Save replaces the stored cart and its lines in one transaction, guarded
// by the cart version.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)

		var (
			tag pgconn.CommandTag
			err error
		)
		if c.Version == 0 {
			tag, err = q.Exec(ctx, insertCartSQL, c.UserID, c.Total, c.UpdatedAt)
		} else {
			tag, err = q.Exec(ctx, updateCartSQL, c.UserID, c.Total, c.UpdatedAt, c.Version)
		}
		if err != nil {
			return fmt.Errorf("saving cart for %q: %w", c.UserID, err)
		}
		if tag.RowsAffected() == 0 {
			return cart.ErrConcurrentUpdate
		}

		batch := &pgx.Batch{}
		batch.Queue(deleteCartItemsSQL, c.UserID)
		for i, item := range c.Items {
			batch.Queue(insertCartItemSQL, c.UserID, item.ProductID, item.Quantity, i)
		}
		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("saving cart items for %q: %w", c.UserID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.Version++
	return nil
}

// Remove subtracts items from the user's cart in one transaction. The cart
// row goes away once its last line does.
func (r *CartRepository) Remove(ctx context.Context, userID string, items []cart.Item) error {
	take := make(map[string]int, len(items))
	for _, item := range items {
		take[item.ProductID] += item.Quantity
	}
	return r.tx.InTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for productID, n := range take {
			batch.Queue(dropCartItemSQL, userID, productID, n)
			batch.Queue(shrinkCartItemSQL, userID, productID, n)
		}
		batch.Queue(bumpCartSQL, userID)
		batch.Queue(deleteEmptyCartSQL, userID)
		if err := conn(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("removing cart items for %q: %w", userID, err)
		}
		return nil
	})
}
