package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/order"
	"github.com/xenking/vireon/internal/domain/product"
)

// apiError is the JSON error body: code, message and any identifiers of
// the entities involved.
type apiError struct {
	status int
	msg    string
	fields []apiField
}

type apiField struct {
	key   string
	value func(enc *jx.Encoder)
}

func (e apiError) with(key, value string) apiError {
	e.fields = append(e.fields, apiField{key, func(enc *jx.Encoder) { enc.Str(value) }})
	return e
}

func (e apiError) withInt(key string, value int) apiError {
	e.fields = append(e.fields, apiField{key, func(enc *jx.Encoder) { enc.Int(value) }})
	return e
}

func (e apiError) write(w http.ResponseWriter) {
	writeJSON(w, e.status, func(enc *jx.Encoder) {
		enc.Obj(func(enc *jx.Encoder) {
			enc.Field("code", func(enc *jx.Encoder) { enc.Int(e.status) })
			enc.Field("message", func(enc *jx.Encoder) { enc.Str(e.msg) })
			for _, f := range e.fields {
				enc.Field(f.key, f.value)
			}
		})
	})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	apiError{status: status, msg: msg}.write(w)
}

// scope selects how a missing product is reported.
type scope int

const (
	// scopeDefault reports a missing product as 404. Every route except
	// checkout uses it.
	scopeDefault scope = iota
	// scopeCheckout reports a missing product as 422: the request was fine
	// but the cart refers to something that no longer exists.
	scopeCheckout
)

// writeError maps a domain error to a status and body. Unknown errors are
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, sc scope, err error) {
	apiErr, ok := classify(sc, err)
	if !ok {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		apiErr = apiError{status: http.StatusInternalServerError, msg: "internal server error"}
	}
	apiErr.write(w)
}

func classify(sc scope, err error) (apiError, bool) {
	bad := func(status int) apiError { return apiError{status: status, msg: err.Error()} }

	var (
		bodyErr       *bodyError
		stockErr      *product.InsufficientStockError
		conflictErr   *order.StockConflictError
		missingErr    *order.ProductNotFoundError
		orderErr      *order.OrderNotFoundError
		quantityErr   *order.InvalidQuantityError
		cartQtyErr    *cart.InvalidQuantityError
		statusErr     *order.InvalidStatusError
		transitionErr *order.InvalidTransitionError
		validationErr *auth.ValidationError
	)
	switch {
	case errors.As(err, &bodyErr):
		return bad(http.StatusBadRequest), true
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrShippingAddressRequired):
		return bad(http.StatusBadRequest), true
	case errors.As(err, &quantityErr):
		return bad(http.StatusBadRequest).with("productId", quantityErr.ProductID), true
	case errors.As(err, &cartQtyErr):
		return bad(http.StatusBadRequest).with("productId", cartQtyErr.ProductID), true
	case errors.As(err, &statusErr):
		return bad(http.StatusBadRequest).with("status", statusErr.Value), true
	case errors.As(err, &validationErr):
		return bad(http.StatusBadRequest).with("field", validationErr.Field), true

	case errors.Is(err, auth.ErrAuthenticationRequired),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return bad(http.StatusUnauthorized), true
	case errors.Is(err, auth.ErrNotAuthorized):
		return bad(http.StatusForbidden), true

	case errors.As(err, &stockErr):
		return bad(http.StatusConflict).
			with("productId", stockErr.ProductID).
			withInt("available", stockErr.Available).
			withInt("requested", stockErr.Requested), true
	case errors.As(err, &conflictErr):
		return bad(http.StatusConflict).with("productId", conflictErr.ProductID), true
	case errors.As(err, &transitionErr):
		return bad(http.StatusConflict).with("from", transitionErr.From).with("to", transitionErr.To), true
	case errors.Is(err, order.ErrAlreadyDelivered),
		errors.Is(err, order.ErrConcurrentUpdate),
		errors.Is(err, cart.ErrConcurrentUpdate),
		errors.Is(err, auth.ErrEmailTaken):
		return bad(http.StatusConflict), true

	case errors.As(err, &missingErr):
		status := http.StatusNotFound
		if sc == scopeCheckout {
			status = http.StatusUnprocessableEntity
		}
		return bad(status).with("productId", missingErr.ProductID), true
	case errors.Is(err, product.ErrNotFound):
		if sc == scopeCheckout {
			return bad(http.StatusUnprocessableEntity), true
		}
		return bad(http.StatusNotFound), true
	case errors.As(err, &orderErr):
		return bad(http.StatusNotFound).with("orderId", orderErr.OrderID), true
	}
	return apiError{}, false
}
