package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return ErrEmailTaken
	}
	m.users[u.Email] = u
	return nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func newTestAccounts() (*Accounts, *Tokens) {
	tokens := NewTokens([]byte("test-secret"), time.Hour, "vireon")
	a := NewAccounts(newMockUserRepo(), tokens)
	a.cost = bcrypt.MinCost
	return a, tokens
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour, "vireon")
	raw, err := tokens.Issue(Principal{UserID: "u1", Email: "a@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	p, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "a@example.com", p.Email)
	assert.True(t, p.IsAdmin())

	_, err = tokens.Issue(Principal{})
	require.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestTokens_Rejects(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokens([]byte("secret"), time.Hour, "vireon")
	issuer.now = func() time.Time { return base }
	raw, err := issuer.Issue(Principal{UserID: "u1", Role: RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		tokens *Tokens
		raw    string
	}{
		{
			name:   "expired",
			tokens: &Tokens{secret: []byte("secret"), issuer: "vireon", now: func() time.Time { return base.Add(2 * time.Hour) }},
			raw:    raw,
		},
		{
			name:   "wrong secret",
			tokens: &Tokens{secret: []byte("other"), issuer: "vireon", now: func() time.Time { return base }},
			raw:    raw,
		},
		{
			name:   "wrong issuer",
			tokens: &Tokens{secret: []byte("secret"), issuer: "elsewhere", now: func() time.Time { return base }},
			raw:    raw,
		},
		{
			name:   "garbage",
			tokens: issuer,
			raw:    "not-a-token",
		},
		{
			name:   "unsigned",
			tokens: issuer,
			raw: func() string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
					RegisteredClaims: jwt.RegisteredClaims{
						Subject:   "u1",
						Issuer:    "vireon",
						ExpiresAt: jwt.NewNumericDate(base.Add(time.Hour)),
					},
				}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tokens.Parse(tt.raw)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAccounts_RegisterLogin(t *testing.T) {
	ctx := context.Background()
	a, tokens := newTestAccounts()

	s, err := a.Register(ctx, "Ana", "  Ana@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", s.User.Email)
	assert.Equal(t, RoleUser, s.User.Role)

	p, err := tokens.Parse(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, p.UserID)

	_, err = a.Register(ctx, "Ana", "ana@example.com", "another1")
	require.ErrorIs(t, err, ErrEmailTaken)

	logged, err := a.Login(ctx, "ANA@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, logged.User.ID)

	_, err = a.Login(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccounts_Validation(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts()

	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{name: "bad email", email: "not-an-email", password: "hunter22", field: "email"},
		{name: "short password", email: "a@example.com", password: "123", field: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, "x", tt.email, tt.password)
			var target *ValidationError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tt.field, target.Field)
		})
	}
}

func TestAccounts_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccounts()

	require.NoError(t, a.EnsureAdmin(ctx, "root@example.com", "changeme"))
	require.NoError(t, a.EnsureAdmin(ctx, "root@example.com", "changeme"))

	s, err := a.Login(ctx, "root@example.com", "changeme")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, s.User.Role)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u1"})
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
	assert.False(t, p.IsAdmin())
}
