package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// Role enumerates the access levels a principal can hold.
type Role string

const (
	// RoleUser is a regular customer.
	RoleUser Role = "user"
	// RoleAdmin can manage every order and read dashboard data.
	RoleAdmin Role = "admin"
)

var (
	// ErrAuthenticationRequired is returned when an operation needs a caller
	// identity and none was supplied.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrNotAuthorized is returned when the caller is known but lacks the
	// rights for the requested operation.
	ErrNotAuthorized = errors.New("not authorized")
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the principal has the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Authenticated reports whether the principal carries a user identity.
func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Authenticated()
}
