package admin

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"fast-frontend/internal/engine"
	"fast-frontend/internal/frontend"
)

// Handler exposes the resolved frontend registry read-only.
type Handler struct {
	registry *frontend.Registry
}

func NewHandler(reg *frontend.Registry) *Handler {
	return &Handler{registry: reg}
}

// RegisterAdminRoutes mounts the introspection API behind the given
// middleware (authentication and admin role checks).
func RegisterAdminRoutes(app fiber.Router, h *Handler, middleware ...fiber.Handler) {
	admin := app.Group("/_frontend", middleware...)

	admin.Get("/registry", h.ListConfigs)
	admin.Get("/registry/:group/:entity", h.GetConfig)
	admin.Get("/catalog", h.ListModules)
	admin.Get("/sidebar", h.Sidebar)
}

// ConfigView is the JSON form of a resolved entity configuration.
type ConfigView struct {
	Key            string               `json:"key"`
	Module         string               `json:"module"`
	Entity         string               `json:"entity"`
	DisplayFields  []string             `json:"display_fields"`
	FormFields     []string             `json:"form_fields"`
	ReadonlyFields []string             `json:"readonly_fields"`
	SearchFields   []string             `json:"search_fields"`
	SortFields     []string             `json:"sort_fields"`
	FilterFields   []string             `json:"filter_fields"`
	ToolbarActions []ActionView         `json:"toolbar_actions"`
	RowActions     []ActionView         `json:"row_actions"`
	Permissions    frontend.Permissions `json:"permissions"`
	LoginRequired  bool                 `json:"login_required"`
	PageSize       int                  `json:"page_size"`
	DisplayAsCards bool                 `json:"display_as_cards"`
	OwnerField     string               `json:"owner_field,omitempty"`
}

// ActionView reports whether a declared action has a handler.
type ActionView struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func newConfigView(key string, cfg *frontend.EntityConfig) ConfigView {
	v := ConfigView{
		Key:            key,
		Module:         cfg.Entity.Module,
		Entity:         cfg.Entity.Name,
		DisplayFields:  cfg.DisplayFields,
		FormFields:     cfg.FormFields,
		ReadonlyFields: cfg.ReadonlyFields,
		SearchFields:   cfg.SearchFields,
		SortFields:     cfg.SortFields,
		FilterFields:   cfg.FilterFields,
		ToolbarActions: []ActionView{},
		RowActions:     []ActionView{},
		Permissions:    cfg.Permissions,
		LoginRequired:  cfg.LoginRequired,
		PageSize:       cfg.PageSize,
		DisplayAsCards: cfg.DisplayAsCards,
		OwnerField:     cfg.OwnerField(),
	}
	for _, name := range cfg.ToolbarActions {
		_, status := cfg.ToolbarAction(name)
		v.ToolbarActions = append(v.ToolbarActions, ActionView{Name: name, Status: status.String()})
	}
	for _, name := range cfg.RowActions {
		_, status := cfg.RowAction(name)
		v.RowActions = append(v.RowActions, ActionView{Name: name, Status: status.String()})
	}
	return v
}

func (h *Handler) ListConfigs(c *fiber.Ctx) error {
	configs := h.registry.Configs()
	keys := make([]string, 0, len(configs))
	for k := range configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]ConfigView, 0, len(keys))
	for _, k := range keys {
		out = append(out, newConfigView(k, configs[k]))
	}
	return c.JSON(fiber.Map{
		"data": out,
		"meta": fiber.Map{
			"authentication_enabled": h.registry.GlobalConfig().AuthenticationEnabled(),
			"accounts":               h.registry.AccountsConfig() != nil,
		},
	})
}

func (h *Handler) GetConfig(c *fiber.Ctx) error {
	group, name := c.Params("group"), c.Params("entity")
	entity, cfg, err := h.registry.Lookup(group, name)
	if err != nil {
		if errors.Is(err, frontend.ErrNotConfigured) {
			return engine.NotConfiguredError(strings.ToLower(group + "." + name))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": newConfigView(entity.Key(), cfg)})
}

func (h *Handler) ListModules(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.Catalog().Modules()})
}

func (h *Handler) Sidebar(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.Sidebar()})
}
