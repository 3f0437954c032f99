package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vireon/internal/domain/auth"
)

const bearerPrefix = "Bearer "

// authenticate parses the bearer token and attaches the principal to the
// request context. A missing or invalid token is rejected with 401.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			writeError(w, r, scopeDefault, auth.ErrAuthenticationRequired)
			return
		}

		p, err := h.tokens.Parse(strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			zctx.From(r.Context()).Debug("Token rejected", zap.Error(err))
			writeError(w, r, scopeDefault, auth.ErrInvalidToken)
			return
		}

		ctx := auth.WithPrincipal(r.Context(), p)
		ctx = zctx.Base(ctx, zctx.From(ctx).With(zap.String("user_id", p.UserID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal returns the caller attached by authenticate. The zero value is
// returned for public routes and is rejected by the services.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}
