package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

var (
	// ErrUserNotFound is returned by a UserRepository when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError describes a rejected registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// Principal returns the identity a token for u should carry.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// UserRepository persists accounts. Create must return ErrEmailTaken for a
// duplicate email and FindByEmail must return ErrUserNotFound when absent.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Session is the result of a successful Register or Login.
type Session struct {
	User  *User
	Token string
}

// Accounts implements registration and login on top of a UserRepository.
type Accounts struct {
	users  UserRepository
	tokens *Tokens
	cost   int
	now    func() time.Time
}

// NewAccounts creates an Accounts service.
func NewAccounts(users UserRepository, tokens *Tokens) *Accounts {
	return &Accounts{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Register creates a regular user and returns a signed session token.
func (a *Accounts) Register(ctx context.Context, name, email, password string) (*Session, error) {
	u, err := a.create(ctx, name, email, password, RoleUser)
	if err != nil {
		return nil, err
	}
	return a.session(u)
}

// EnsureAdmin creates an administrator account unless the email is already
// registered. It is used for bootstrapping a fresh deployment.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password string) error {
	_, err := a.create(ctx, "Administrator", email, password, RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

// Login verifies the password for email and returns a signed session token.
func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find user")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a.session(u)
}

func (a *Accounts) create(ctx context.Context, name, email, password string, role Role) (*User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if len(password) < minPasswordLen {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

func (a *Accounts) session(u *User) (*Session, error) {
	token, err := a.tokens.Issue(u.Principal())
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &Session{User: u, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
