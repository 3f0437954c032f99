// Package memory provides process-local implementations of the domain
// repositories. It backs the "memory" storage mode and the workflow tests.
package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/internal/domain/dashboard"
	"github.com/xenking/vireon/internal/domain/order"
)

var _ dashboard.Source = (*Store)(nil)

// Store groups the in-memory repositories.
type Store struct {
	Products      *Products
	Carts         *Carts
	Orders        *Orders
	Notifications *Notifications
	Users         *Users
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Products:      NewProducts(),
		Carts:         NewCarts(),
		Orders:        NewOrders(),
		Notifications: NewNotifications(),
		Users:         NewUsers(),
	}
}

// Stats counts stored entities and sums revenue of non-cancelled orders.
func (s *Store) Stats(context.Context) (dashboard.Stats, error) {
	st := dashboard.Stats{Revenue: decimal.Zero}

	s.Products.mu.RLock()
	st.Products = len(s.Products.items)
	s.Products.mu.RUnlock()

	s.Users.mu.RLock()
	st.Users = len(s.Users.byID)
	s.Users.mu.RUnlock()

	s.Orders.mu.RLock()
	st.Orders = len(s.Orders.items)
	for _, o := range s.Orders.items {
		if o.Status != order.StatusCancelled {
			st.Revenue = st.Revenue.Add(o.TotalAmount)
		}
	}
	s.Orders.mu.RUnlock()

	return st, nil
}
