package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/vireon/internal/domain/notification"
)

var _ notification.Repository = (*Notifications)(nil)

// Notifications is an append-only log per user.
type Notifications struct {
	mu     sync.Mutex
	byUser map[string][]notification.Notification
	now    func() time.Time
}

// NewNotifications returns an empty log.
func NewNotifications() *Notifications {
	return &Notifications{
		byUser: make(map[string][]notification.Notification),
		now:    time.Now,
	}
}

// Append records a notification for the user.
func (r *Notifications) Append(_ context.Context, userID string, typ notification.Type, message string) error {
	n := notification.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		CreatedAt: r.now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[userID] = append(r.byUser[userID], n)
	return nil
}

// ListByUser returns up to limit notifications, newest first. A
// non-positive limit returns all of them.
func (r *Notifications) ListByUser(_ context.Context, userID string, limit int) ([]notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.byUser[userID]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	out := make([]notification.Notification, 0, limit)
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}
