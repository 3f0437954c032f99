// Package handler implements the JSON HTTP API on top of the domain
// services.
package handler

import (
	"net/http"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/dashboard"
	"github.com/xenking/vireon/internal/domain/notification"
	"github.com/xenking/vireon/internal/domain/order"
	"github.com/xenking/vireon/internal/domain/product"
)

const (
	defaultNotificationLimit = 50
	maxBodyBytes             = 1 << 20
)

// Deps holds the services the Handler delegates to.
type Deps struct {
	Accounts      *auth.Accounts
	Tokens        *auth.Tokens
	Products      product.Repository
	Carts         *cart.Service
	Orders        *order.Service
	Notifications notification.Repository
	Dashboard     *dashboard.Service
}

// Handler serves the /api routes.
type Handler struct {
	accounts      *auth.Accounts
	tokens        *auth.Tokens
	products      product.Repository
	carts         *cart.Service
	orders        *order.Service
	notifications notification.Repository
	dashboard     *dashboard.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		accounts:      deps.Accounts,
		tokens:        deps.Tokens,
		products:      deps.Products,
		carts:         deps.Carts,
		orders:        deps.Orders,
		notifications: deps.Notifications,
		dashboard:     deps.Dashboard,
	}
}

// Routes adds every API route to mux. Routes that act on behalf of a user
// go through bearer token authentication; the services enforce ownership
// and roles.
func (h *Handler) Routes(mux *http.ServeMux) {
	public := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, fn)
	}
	private := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.authenticate(fn))
	}

	public("POST /api/auth/register", h.Register)
	public("POST /api/auth/login", h.Login)

	public("GET /api/products", h.ListProducts)
	public("GET /api/products/{id}", h.GetProduct)

	private("GET /api/cart", h.GetCart)
	private("POST /api/cart/items", h.AddCartItem)

	private("POST /api/orders", h.PlaceOrder)
	private("GET /api/orders", h.ListOrders)
	private("GET /api/orders/{id}", h.GetOrder)
	private("PATCH /api/orders/{id}/cancel", h.CancelOrder)
	private("PATCH /api/orders/{id}/status", h.UpdateOrderStatus)
	private("PATCH /api/orders/{id}/payment", h.UpdatePaymentStatus)

	private("GET /api/notifications", h.ListNotifications)
	private("GET /api/dashboard/stats", h.DashboardStats)

	mux.Handle("/api/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	}))
}
