package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/engine"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store/memory"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	user := &metadata.UserContext{ID: "u1", Email: "ann@example.com", Roles: []string{"admin"}}
	token, err := GenerateAccessToken(user, "secret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, user, claims.Principal())

	_, err = ParseAccessToken(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateAccessToken(user, "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, "secret")
	assert.Error(t, err)
}

func TestBackend_Authenticate(t *testing.T) {
	ctx := context.Background()
	users := memory.New()
	b := NewBackend(users, "secret")

	created, err := b.SignUp(ctx, "ann@example.com", "correct horse")
	require.NoError(t, err)
	assert.Empty(t, created.Roles)

	_, err = b.SignUp(ctx, "Ann@Example.com", "another one")
	assert.ErrorIs(t, err, ErrEmailTaken)

	user, err := b.Authenticate(ctx, "ann@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = b.Authenticate(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = b.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestBackend_ChangePassword(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(memory.New(), "secret")
	user, err := b.SignUp(ctx, "ann@example.com", "correct horse")
	require.NoError(t, err)

	assert.ErrorIs(t, b.ChangePassword(ctx, user.ID, "wrong", "battery staple"), ErrInvalidCredentials)
	require.NoError(t, b.ChangePassword(ctx, user.ID, "correct horse", "battery staple"))

	_, err = b.Authenticate(ctx, "ann@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = b.Authenticate(ctx, "ann@example.com", "battery staple")
	assert.NoError(t, err)
}

func TestMiddleware_ResolvesPrincipal(t *testing.T) {
	b := NewBackend(memory.New(), "secret")
	logger, _ := logtest.NewNullLogger()
	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler(logger)})
	app.Use(Middleware(b))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		if user := GetUser(c); user != nil {
			return c.SendString(user.Email)
		}
		return c.SendString("")
	})
	app.Get("/admin", RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	token, err := b.Issue(&metadata.UserContext{ID: "u1", Email: "ann@example.com"})
	require.NoError(t, err)
	admin, err := b.Issue(&metadata.UserContext{ID: "u2", Email: "root@example.com", Roles: []string{"admin"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "anonymous", path: "/whoami", status: 200, body: ""},
		{name: "invalid token stays anonymous", path: "/whoami", cookie: "garbage", status: 200, body: ""},
		{name: "cookie", path: "/whoami", cookie: token, status: 200, body: "ann@example.com"},
		{name: "bearer", path: "/whoami", header: "Bearer " + token, status: 200, body: "ann@example.com"},
		{name: "admin anonymous", path: "/admin", status: 401},
		{name: "admin non-admin", path: "/admin", cookie: token, status: 403},
		{name: "admin", path: "/admin", header: "Bearer " + admin, status: 204},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" || tt.status == 200 {
				buf := make([]byte, 64)
				n, _ := resp.Body.Read(buf)
				assert.Equal(t, tt.body, string(buf[:n]))
			}
		})
	}
}
