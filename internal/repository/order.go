package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vireon/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, total_amount, shipping_address, payment_method,
		status, payment_status, is_delivered, delivered_at, is_paid, paid_at,
		payment_transaction_id, payment_date, version, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderSQL = `UPDATE orders SET
			status = $2,
			payment_status = $3,
			is_delivered = $4,
			delivered_at = $5,
			is_paid = $6,
			paid_at = $7,
			payment_transaction_id = $8,
			payment_date = $9,
			updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $11`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	listUserOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`

	countOrdersSQL = `SELECT count(*) FROM orders`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items and the shipping address are
// serialized to JSON for storage in JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}
	txID, payDate := paymentColumns(o)

	_, err = conn(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.TotalAmount, addressJSON, o.PaymentMethod,
		o.Status, o.PaymentStatus, o.IsDelivered, o.DeliveredAt, o.IsPaid, o.PaidAt,
		txID, payDate, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return order.ErrAlreadyExists
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// Get returns a single order by ID.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Update writes lifecycle fields if the stored version matches o.Version.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	q := conn(ctx, r.pool)
	txID, payDate := paymentColumns(o)

	tag, err := q.Exec(ctx, updateOrderSQL,
		o.ID, o.Status, o.PaymentStatus, o.IsDelivered, o.DeliveredAt, o.IsPaid, o.PaidAt,
		txID, payDate, o.UpdatedAt, o.Version,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, orderExistsSQL, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", o.ID, err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrConcurrentUpdate
	}
	o.Version++
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listUserOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns a window of all orders, newest first, and the total count.
func (r *OrderRepository) List(ctx context.Context, offset, limit int) ([]order.Order, int, error) {
	q := conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, countOrdersSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}
	rows, err := q.Query(ctx, listOrdersSQL, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning orders: %w", err)
	}
	return orders, total, nil
}

func paymentColumns(o *order.Order) (*string, *time.Time) {
	if o.PaymentDetails == nil {
		return nil, nil
	}
	return &o.PaymentDetails.TransactionID, &o.PaymentDetails.PaymentDate
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		itemsJSON   []byte
		addressJSON []byte
		txID        *string
		payDate     *time.Time
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.TotalAmount, &addressJSON, &o.PaymentMethod,
		&o.Status, &o.PaymentStatus, &o.IsDelivered, &o.DeliveredAt, &o.IsPaid, &o.PaidAt,
		&txID, &payDate, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	if payDate != nil {
		o.PaymentDetails = &order.PaymentDetails{PaymentDate: *payDate}
		if txID != nil {
			o.PaymentDetails.TransactionID = *txID
		}
	}
	return o, nil
}
