// Package notification defines the append-only user notification log.
package notification

import (
	"context"
	"time"
)

// Type tags the kind of event a notification describes.
type Type string

// TypeOrderStatus is used for order placement and lifecycle events.
const TypeOrderStatus Type = "order_status"

// Notification is a write-once user-facing message.
type Notification struct {
	ID        string
	UserID    string
	Type      Type
	Message   string
	CreatedAt time.Time
}

// Sink records notifications. Callers treat it as best-effort.
type Sink interface {
	Append(ctx context.Context, userID string, typ Type, message string) error
}

// Repository adds reading back a user's notifications, newest first.
type Repository interface {
	Sink
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
}
