package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"fast-frontend/internal/engine"
	"fast-frontend/internal/metadata"
)

// CookieName holds the session token set at login.
const CookieName = "access_token"

// Middleware resolves the request principal from the session cookie or a
// bearer token. Requests without a valid token continue anonymously; the
// login gates decide what anonymous principals may see.
func Middleware(b *Backend) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(CookieName)
		if token == "" {
			header := c.Get(fiber.HeaderAuthorization)
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}
		if token == "" {
			return c.Next()
		}

		user, err := b.Resolve(token)
		if err == nil {
			c.Locals("user", user)
		}
		return c.Next()
	}
}

// RequireAdmin is a Fiber middleware that checks the authenticated user has the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if !user.Authenticated() {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !user.IsAdmin() {
			return engine.ForbiddenError("Admin access required")
		}
		return c.Next()
	}
}

// GetUser extracts the UserContext from a Fiber context.
func GetUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}
