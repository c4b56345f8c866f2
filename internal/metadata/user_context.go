package metadata

import "context"

// UserContext represents the requesting principal, set by the auth middleware.
// A nil *UserContext is the anonymous principal.
type UserContext struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Authenticated reports whether the principal carries an identity.
func (u *UserContext) Authenticated() bool {
	return u != nil && u.ID != ""
}

// HasRole checks whether the user has a specific role.
func (u *UserContext) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks whether the user has the admin role.
func (u *UserContext) IsAdmin() bool {
	return u.HasRole("admin")
}

type userKey struct{}

// WithUser returns a context carrying the principal.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the principal stored in ctx, or nil for anonymous.
func UserFrom(ctx context.Context) *UserContext {
	user, _ := ctx.Value(userKey{}).(*UserContext)
	return user
}
