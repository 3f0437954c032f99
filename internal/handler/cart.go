package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/vireon/internal/domain/auth"
)

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if !p.Authenticated() {
		writeError(w, r, scopeDefault, auth.ErrAuthenticationRequired)
		return
	}
	c, err := h.carts.Get(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	c.UserID = p.UserID
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}

// AddCartItem adds a product to the caller's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if !p.Authenticated() {
		writeError(w, r, scopeDefault, auth.ErrAuthenticationRequired)
		return
	}

	var (
		productID string
		quantity  int
	)
	if err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}

	c, err := h.carts.AddItem(r.Context(), p.UserID, productID, quantity)
	if err != nil {
		writeError(w, r, scopeDefault, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, c) })
}
