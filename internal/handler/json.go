package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/internal/domain/auth"
	"github.com/xenking/vireon/internal/domain/cart"
	"github.com/xenking/vireon/internal/domain/dashboard"
	"github.com/xenking/vireon/internal/domain/notification"
	"github.com/xenking/vireon/internal/domain/order"
	"github.com/xenking/vireon/internal/domain/product"
)

// bodyError reports a missing or malformed JSON request body.
type bodyError struct {
	err error
}

func (e *bodyError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *bodyError) Unwrap() error { return e.err }

// readObject decodes the request body as a JSON object, calling field for
// every key. Unknown keys must be skipped by field.
func readObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &bodyError{err: err}
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		return &bodyError{err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	body(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeUser(e *jx.Encoder, u *auth.User) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(u.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(u.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(u.Email) })
		e.Field("role", func(e *jx.Encoder) { e.Str(string(u.Role)) })
	})
}

func encodeSession(e *jx.Encoder, s *auth.Session) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("token", func(e *jx.Encoder) { e.Str(s.Token) })
		e.Field("user", func(e *jx.Encoder) { encodeUser(e, s.User) })
	})
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		if p.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		}
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
		if p.Image != "" {
			e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		}
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, p.CreatedAt) })
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("userId", func(e *jx.Encoder) { e.Str(c.UserID) })
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, item := range c.Items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("productId", func(e *jx.Encoder) { e.Str(item.ProductID) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
				})
			}
			e.ArrEnd()
		})
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, c.Total) })
		if !c.UpdatedAt.IsZero() {
			e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, c.UpdatedAt) })
		}
	})
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("street", func(e *jx.Encoder) { e.Str(a.Street) })
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		if a.State != "" {
			e.Field("state", func(e *jx.Encoder) { e.Str(a.State) })
		}
		e.Field("postalCode", func(e *jx.Encoder) { e.Str(a.PostalCode) })
		e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("items", func(e *jx.Encoder) {
			e.ArrStart()
			for _, item := range o.Items {
				e.Obj(func(e *jx.Encoder) {
					e.Field("productId", func(e *jx.Encoder) { e.Str(item.ProductID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
					e.Field("price", func(e *jx.Encoder) { encodeMoney(e, item.Price) })
					e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
					e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, item.Subtotal) })
				})
			}
			e.ArrEnd()
		})
		e.Field("totalAmount", func(e *jx.Encoder) { encodeMoney(e, o.TotalAmount) })
		e.Field("shippingAddress", func(e *jx.Encoder) { encodeAddress(e, o.ShippingAddress) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(string(o.PaymentStatus)) })
		e.Field("isDelivered", func(e *jx.Encoder) { e.Bool(o.IsDelivered) })
		if o.DeliveredAt != nil {
			e.Field("deliveredAt", func(e *jx.Encoder) { encodeTime(e, *o.DeliveredAt) })
		}
		e.Field("isPaid", func(e *jx.Encoder) { e.Bool(o.IsPaid) })
		if o.PaidAt != nil {
			e.Field("paidAt", func(e *jx.Encoder) { encodeTime(e, *o.PaidAt) })
		}
		if pd := o.PaymentDetails; pd != nil {
			e.Field("paymentDetails", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("transactionId", func(e *jx.Encoder) { e.Str(pd.TransactionID) })
					e.Field("paymentDate", func(e *jx.Encoder) { encodeTime(e, pd.PaymentDate) })
				})
			})
		}
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updatedAt", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	})
}

func encodeNotification(e *jx.Encoder, n *notification.Notification) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(n.ID) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(n.Type)) })
		e.Field("message", func(e *jx.Encoder) { e.Str(n.Message) })
		e.Field("createdAt", func(e *jx.Encoder) { encodeTime(e, n.CreatedAt) })
	})
}

func encodeStats(e *jx.Encoder, st dashboard.Stats) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("products", func(e *jx.Encoder) { e.Int(st.Products) })
		e.Field("orders", func(e *jx.Encoder) { e.Int(st.Orders) })
		e.Field("users", func(e *jx.Encoder) { e.Int(st.Users) })
		e.Field("revenue", func(e *jx.Encoder) { encodeMoney(e, st.Revenue) })
	})
}
