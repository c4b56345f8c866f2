package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

// Users is the account storage used by the backend. Both the SQL and the
// memory store implement it.
type Users interface {
	FindUserByEmail(ctx context.Context, email string) (*store.User, error)
	FindUserByID(ctx context.Context, id string) (*store.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, roles []string) (*store.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
}

// Backend authenticates accounts and issues session tokens.
type Backend struct {
	users  Users
	secret string
	ttl    time.Duration
}

func NewBackend(users Users, secret string) *Backend {
	return &Backend{users: users, secret: secret, ttl: SessionTTL}
}

// Authenticate verifies an email/password pair.
func (b *Backend) Authenticate(ctx context.Context, email, password string) (*metadata.UserContext, error) {
	user, err := b.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return principal(user), nil
}

// Issue signs a session token for user.
func (b *Backend) Issue(user *metadata.UserContext) (string, error) {
	return GenerateAccessToken(user, b.secret, b.ttl)
}

// Resolve turns a session token into a principal.
func (b *Backend) Resolve(token string) (*metadata.UserContext, error) {
	claims, err := ParseAccessToken(token, b.secret)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

// SignUp creates an active account without any roles.
func (b *Backend) SignUp(ctx context.Context, email, password string) (*metadata.UserContext, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := b.users.CreateUser(ctx, email, hash, []string{})
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return principal(user), nil
}

// ChangePassword replaces the password of id after checking the old one.
func (b *Backend) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	user, err := b.users.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return b.users.SetPassword(ctx, id, hash)
}

func principal(u *store.User) *metadata.UserContext {
	return &metadata.UserContext{ID: u.ID, Email: u.Email, Roles: u.Roles}
}
