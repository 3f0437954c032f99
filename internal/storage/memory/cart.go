package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/internal/domain/cart"
)

var _ cart.Repository = (*Carts)(nil)

// Carts stores one cart per user.
type Carts struct {
	mu    sync.Mutex
	items map[string]cart.Cart
}

// NewCarts returns an empty cart store.
func NewCarts() *Carts {
	return &Carts{items: make(map[string]cart.Cart)}
}

// Get returns a copy of the user's cart, or an empty cart.
func (r *Carts) Get(_ context.Context, userID string) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[userID]
	if !ok {
		return &cart.Cart{UserID: userID, Total: decimal.Zero}, nil
	}
	c.Items = slices.Clone(c.Items)
	return &c, nil
}

// Save replaces the user's cart if the stored version still matches.
func (r *Carts) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.items[c.UserID].Version != c.Version {
		return cart.ErrConcurrentUpdate
	}
	stored := *c
	stored.Items = slices.Clone(c.Items)
	stored.Version++
	r.items[c.UserID] = stored
	c.Version = stored.Version
	return nil
}

// Remove subtracts items from the user's cart.
func (r *Carts) Remove(_ context.Context, userID string, items []cart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[userID]
	if !ok {
		return nil
	}
	take := make(map[string]int, len(items))
	for _, item := range items {
		take[item.ProductID] += item.Quantity
	}
	kept := make([]cart.Item, 0, len(c.Items))
	for _, item := range c.Items {
		item.Quantity -= take[item.ProductID]
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		delete(r.items, userID)
		return nil
	}
	c.Items = kept
	c.Version++
	r.items[userID] = c
	return nil
}
