// Package dashboard exposes administrator summary statistics.
package dashboard

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/internal/domain/auth"
)

// Stats summarises the store. Revenue excludes cancelled orders.
type Stats struct {
	Products int
	Orders   int
	Users    int
	Revenue  decimal.Decimal
}

// Source computes Stats from the underlying storage.
type Source interface {
	Stats(ctx context.Context) (Stats, error)
}

// Service guards Source behind the administrator role.
type Service struct {
	src Source
}

// NewService creates a dashboard Service.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// Stats returns the summary for an administrator caller.
func (s *Service) Stats(ctx context.Context, caller auth.Principal) (Stats, error) {
	if !caller.Authenticated() {
		return Stats{}, auth.ErrAuthenticationRequired
	}
	if !caller.IsAdmin() {
		return Stats{}, auth.ErrNotAuthorized
	}
	st, err := s.src.Stats(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "compute stats")
	}
	return st, nil
}
