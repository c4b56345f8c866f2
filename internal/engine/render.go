package engine

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
)

// Renderer turns a view name and its context into a response. The status
// code is set by the caller before rendering.
type Renderer interface {
	Render(c *fiber.Ctx, view string, data fiber.Map) error
}

// JSONRenderer writes the context as JSON, tagged with the view name.
type JSONRenderer struct{}

func (JSONRenderer) Render(c *fiber.Ctx, view string, data fiber.Map) error {
	data["view"] = view
	return c.JSON(data)
}

// TemplateRenderer renders "frontend/<view>.html" through the fiber view
// engine configured on the app.
type TemplateRenderer struct {
	Prefix string
}

func (r TemplateRenderer) Render(c *fiber.Ctx, view string, data fiber.Map) error {
	return c.Render(r.Prefix+view, map[string]any(data))
}

// NewTemplateEngine loads the Django-syntax templates under dir.
func NewTemplateEngine(dir string, reload bool) *django.Engine {
	engine := django.New(dir, ".html")
	engine.Reload(reload)
	return engine
}

// NewRenderer selects a renderer by name: "html" or "json".
func NewRenderer(name string) (Renderer, error) {
	switch name {
	case "", "html":
		return TemplateRenderer{Prefix: "frontend/"}, nil
	case "json":
		return JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown renderer %q", name)
}

// SiteMeta is the site-wide part of every rendering context.
func SiteMeta(reg *frontend.Registry, user *metadata.UserContext, title string) fiber.Map {
	g := reg.GlobalConfig()
	meta := fiber.Map{
		"title":        title,
		"brand":        g.Brand,
		"logo":         g.Logo,
		"css":          g.CSS,
		"description":  g.Description,
		"navbar":       reg.SidebarFor(user),
		"auth_enabled": g.AuthenticationEnabled(),
		"login_url":    g.LoginURL,
		"root":         g.Root(),
	}
	if user.Authenticated() {
		meta["user"] = user
	}
	return meta
}
