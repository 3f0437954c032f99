package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/xenking/vireon/internal/domain/order"
)

var _ order.Repository = (*Orders)(nil)

// Orders stores orders by ID. Stored values are never shared with callers.
type Orders struct {
	mu    sync.RWMutex
	items map[string]*order.Order
}

// NewOrders returns an empty order store.
func NewOrders() *Orders {
	return &Orders{items: make(map[string]*order.Order)}
}

// Create stores a new order.
func (r *Orders) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[o.ID]; ok {
		return order.ErrAlreadyExists
	}
	r.items[o.ID] = cloneOrder(o)
	return nil
}

// Get returns a copy of the order.
func (r *Orders) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.items[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return cloneOrder(o), nil
}

// Update replaces the stored order if its version still matches.
func (r *Orders) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if stored.Version != o.Version {
		return order.ErrConcurrentUpdate
	}
	o.Version++
	r.items[o.ID] = cloneOrder(o)
	return nil
}

// ListByUser returns the user's orders, newest first.
func (r *Orders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []order.Order
	for _, o := range r.items {
		if o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// List returns a window of all orders, newest first, and the total count.
func (r *Orders) List(_ context.Context, offset, limit int) ([]order.Order, int, error) {
	r.mu.RLock()
	all := make([]order.Order, 0, len(r.items))
	for _, o := range r.items {
		all = append(all, *cloneOrder(o))
	}
	r.mu.RUnlock()

	sortNewestFirst(all)
	total := len(all)
	if offset >= total {
		return []order.Order{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func sortNewestFirst(orders []order.Order) {
	slices.SortFunc(orders, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.PaymentDetails != nil {
		d := *o.PaymentDetails
		c.PaymentDetails = &d
	}
	return &c
}
