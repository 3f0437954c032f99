package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vireon/internal/domain/notification"
)

const (
	appendNotificationSQL = `INSERT INTO notifications (id, user_id, type, message)
		VALUES ($1, $2, $3, $4)`

	listNotificationsSQL = `SELECT id, user_id, type, message, created_at FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by
// PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the
// given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Append inserts a notification. It always uses the pool so a failed
// notification cannot abort a surrounding transaction.
func (r *NotificationRepository) Append(ctx context.Context, userID string, typ notification.Type, message string) error {
	_, err := r.pool.Exec(ctx, appendNotificationSQL, uuid.New().String(), userID, typ, message)
	if err != nil {
		return fmt.Errorf("appending notification for %q: %w", userID, err)
	}
	return nil
}

// ListByUser returns up to limit notifications, newest first. A
// non-positive limit returns all of them.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, listNotificationsSQL, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (notification.Notification, error) {
		var n notification.Notification
		err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.CreatedAt)
		return n, err
	})
}
