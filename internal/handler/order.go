package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/vireon/internal/domain/order"
)

// HeaderIdempotencyKey lets clients retry a checkout without placing a
// second order.
const HeaderIdempotencyKey = "Idempotency-Key"

func decodeAddress(d *jx.Decoder, a *order.Address) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "street":
			a.Street, err = d.Str()
		case "city":
			a.City, err = d.Str()
		case "state":
			a.State, err = d.Str()
		case "postalCode":
			a.PostalCode, err = d.Str()
		case "country":
			a.Country, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

// PlaceOrder checks out the caller's cart.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req := order.PlaceOrderRequest{IdempotencyKey: r.Header.Get(HeaderIdempotencyKey)}
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "shippingAddress":
			err = decodeAddress(d, &req.ShippingAddress)
		case "paymentMethod":
			req.PaymentMethod, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, scopeCheckout, err)
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), principal(r), req)
	if err != nil {
		writeError(w, r, scopeCheckout, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// ListOrders returns the caller's orders, or a page of all orders for an
// administrator.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := order.Page{Page: queryInt(q.Get("page")), Limit: queryInt(q.Get("limit"))}

	list, err := h.orders.ListOrders(r.Context(), principal(r), page)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("orders", func(e *jx.Encoder) {
				e.ArrStart()
				for i := range list.Orders {
					encodeOrder(e, &list.Orders[i])
				}
				e.ArrEnd()
			})
			e.Field("total", func(e *jx.Encoder) { e.Int(list.Total) })
			e.Field("page", func(e *jx.Encoder) { e.Int(list.Page) })
			e.Field("pages", func(e *jx.Encoder) { e.Int(list.Pages) })
		})
	})
}

// GetOrder returns one order visible to the caller.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"), principal(r))
	h.writeOrder(w, r, o, err)
}

// CancelOrder cancels an order and restores its stock.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.CancelOrder(r.Context(), r.PathValue("id"), principal(r))
	h.writeOrder(w, r, o, err)
}

// UpdateOrderStatus moves an order along the fulfilment table.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		var err error
		status, err = d.Str()
		return err
	}); err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}

	o, err := h.orders.UpdateOrderStatus(r.Context(), r.PathValue("id"), status, principal(r))
	h.writeOrder(w, r, o, err)
}

// UpdatePaymentStatus records a payment state change.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var (
		status string
		meta   order.PaymentMetadata
	)
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status", "paymentStatus":
			status, err = d.Str()
		case "transactionId":
			meta.TransactionID, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}

	o, err := h.orders.UpdatePaymentStatus(r.Context(), r.PathValue("id"), status, meta, principal(r))
	h.writeOrder(w, r, o, err)
}

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request, o *order.Order, err error) {
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// queryInt parses a numeric query parameter, treating junk as unset.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
