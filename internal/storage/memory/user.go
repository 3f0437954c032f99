package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/vireon/internal/domain/auth"
)

var _ auth.UserRepository = (*Users)(nil)

// Users stores accounts indexed by ID and email.
type Users struct {
	mu      sync.RWMutex
	byID    map[string]*auth.User
	byEmail map[string]string
}

// NewUsers returns an empty user store.
func NewUsers() *Users {
	return &Users{
		byID:    make(map[string]*auth.User),
		byEmail: make(map[string]string),
	}
}

// Create stores u. Emails are unique.
func (r *Users) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return auth.ErrEmailTaken
	}
	stored := *u
	stored.PasswordHash = slices.Clone(u.PasswordHash)
	r.byID[u.ID] = &stored
	r.byEmail[u.Email] = u.ID
	return nil
}

// FindByEmail returns a copy of the user registered with email.
func (r *Users) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}
