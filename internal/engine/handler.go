package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

// Handler is the request-handling façade: it gates, resolves the entity
// configuration and delegates to the query engine, the form flow or the
// action dispatcher. Every path ends in an explicit response.
type Handler struct {
	registry   *frontend.Registry
	storage    Storage
	renderer   Renderer
	dispatcher *Dispatcher
	log        logrus.FieldLogger
}

func NewHandler(reg *frontend.Registry, s Storage, r Renderer, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		registry:   reg,
		storage:    s,
		renderer:   r,
		dispatcher: NewDispatcher(s, log),
		log:        log,
	}
}

// EntityView is the navigation identity of an entity in rendering contexts.
type EntityView struct {
	Module      string `json:"module"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
	IDField     string `json:"id_field"`
}

// Column is one list-view column.
type Column struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
}

// Favicon handles /favicon.ico with an empty response, whatever the headers.
func (h *Handler) Favicon(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Home handles / with the principal's grouped navigation.
func (h *Handler) Home(c *fiber.Ctx) error {
	if done, err := h.globalGate(c); done {
		return err
	}
	user := getUser(c)
	return h.renderer.Render(c, "home", fiber.Map{
		"meta":  SiteMeta(h.registry, user, "Home"),
		"cards": h.registry.Cards(user),
	})
}

// Group handles /:group with the navigation of that one group.
func (h *Handler) Group(c *fiber.Ctx) error {
	if done, err := h.globalGate(c); done {
		return err
	}
	user := getUser(c)
	group := c.Params("group")
	cards := frontend.GroupByModule(h.registry.Cards(user), group)
	if len(cards) == 0 {
		return UnknownGroupError(group)
	}
	return h.renderer.Render(c, "home", fiber.Map{
		"meta":  SiteMeta(h.registry, user, cards[0].Group),
		"cards": cards,
	})
}

// List handles /:group/:entity with the searched, filtered, sorted and
// paginated listing.
func (h *Handler) List(c *fiber.Ctx) error {
	cfg, done, err := h.resolve(c)
	if done {
		return err
	}
	if !cfg.Permissions.View {
		return ForbiddenError(fmt.Sprintf("Viewing %s is not permitted", cfg.Entity.Label()))
	}
	data, err := h.listContext(c, cfg)
	if err != nil {
		return err
	}
	return h.renderer.Render(c, "list", data)
}

// Action handles /:group/:entity/:action and /:group/:entity/:action/:id.
func (h *Handler) Action(c *fiber.Ctx) error {
	cfg, done, err := h.resolve(c)
	if done {
		return err
	}
	action, id := c.Params("action"), c.Params("id")

	switch action {
	case frontend.ActionAdd:
		return h.add(c, cfg)
	case frontend.ActionChange:
		return h.change(c, cfg, id)
	case frontend.ActionDelete:
		return h.delete(c, cfg, id)
	}

	listURL := h.entityPath(cfg.Entity)
	if !cfg.Permissions.View {
		return ForbiddenError(fmt.Sprintf("Viewing %s is not permitted", cfg.Entity.Label()))
	}
	if c.Method() != fiber.MethodPost {
		return c.Redirect(listURL, fiber.StatusFound)
	}
	user := getUser(c)
	ctx := metadata.WithUser(c.UserContext(), user)
	if id == "" {
		_, err = h.dispatcher.Toolbar(ctx, cfg, action)
	} else {
		_, err = h.dispatcher.Row(ctx, cfg, user, action, id)
	}
	if err != nil {
		return err
	}
	return SafeRedirect(c, listURL)
}

func (h *Handler) add(c *fiber.Ctx, cfg *frontend.EntityConfig) error {
	if !cfg.Permissions.Add {
		return ForbiddenError(fmt.Sprintf("Adding %s is not permitted", cfg.Entity.Label()))
	}
	form := BuildForm(cfg, nil, h.log)
	if c.Method() != fiber.MethodPost {
		return h.renderForm(c, cfg, form, frontend.ActionAdd, "")
	}
	if !form.Bind(formValues(c)) {
		return h.renderForm(c, cfg, form, frontend.ActionAdd, "")
	}

	user := getUser(c)
	values := form.Cleaned()
	if owner := cfg.OwnerField(); owner != "" && user.Authenticated() {
		if _, set := values[owner]; !set || !user.IsAdmin() {
			values[owner] = user.ID
		}
	}
	if _, err := h.storage.Save(c.UserContext(), cfg.Entity, "", values); err != nil {
		return h.saveFailed(c, cfg, form, frontend.ActionAdd, "", err)
	}
	return SafeRedirect(c, h.entityPath(cfg.Entity))
}

func (h *Handler) change(c *fiber.Ctx, cfg *frontend.EntityConfig, id string) error {
	if !cfg.Permissions.Change {
		return ForbiddenError(fmt.Sprintf("Changing %s is not permitted", cfg.Entity.Label()))
	}
	user := getUser(c)
	row, err := h.scopedRow(c, cfg, id)
	if err != nil {
		return err
	}
	form := BuildForm(cfg, row, h.log)
	if c.Method() != fiber.MethodPost {
		return h.renderForm(c, cfg, form, frontend.ActionChange, id)
	}
	if !form.Bind(formValues(c)) {
		return h.renderForm(c, cfg, form, frontend.ActionChange, id)
	}

	values := form.Cleaned()
	if owner := cfg.OwnerField(); owner != "" && !user.IsAdmin() {
		delete(values, owner)
	}
	if _, err := h.storage.Save(c.UserContext(), cfg.Entity, id, values); err != nil {
		return h.saveFailed(c, cfg, form, frontend.ActionChange, id, err)
	}
	return SafeRedirect(c, h.entityPath(cfg.Entity))
}

func (h *Handler) delete(c *fiber.Ctx, cfg *frontend.EntityConfig, id string) error {
	if !cfg.Permissions.Delete {
		return ForbiddenError(fmt.Sprintf("Deleting %s is not permitted", cfg.Entity.Label()))
	}
	row, err := h.scopedRow(c, cfg, id)
	if err != nil {
		return err
	}
	if c.Method() != fiber.MethodPost {
		return h.renderer.Render(c, "confirm_delete", fiber.Map{
			"meta":   SiteMeta(h.registry, getUser(c), cfg.Entity.Label()),
			"entity": h.entityView(cfg),
			"id":     id,
			"row":    row,
		})
	}
	if err := h.storage.Delete(c.UserContext(), cfg.Entity, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(cfg.Entity.Name, id)
		}
		return fmt.Errorf("delete %s/%s: %w", cfg.Entity.Key(), id, err)
	}
	return c.Redirect(h.entityPath(cfg.Entity), fiber.StatusFound)
}

func (h *Handler) saveFailed(c *fiber.Ctx, cfg *frontend.EntityConfig, form *Form, mode, id string, err error) error {
	switch {
	case errors.Is(err, store.ErrUniqueViolation):
		form.AddError(fmt.Sprintf("%s with these values already exists.", cfg.Entity.Name))
		return h.renderForm(c, cfg, form, mode, id)
	case errors.Is(err, store.ErrNotFound):
		return NotFoundError(cfg.Entity.Name, id)
	}
	return fmt.Errorf("save %s: %w", cfg.Entity.Key(), err)
}

func (h *Handler) renderForm(c *fiber.Ctx, cfg *frontend.EntityConfig, form *Form, mode, id string) error {
	action := h.entityPath(cfg.Entity) + mode
	if id != "" {
		action += "/" + id
	}
	data := fiber.Map{
		"meta":   SiteMeta(h.registry, getUser(c), cfg.Entity.Label()),
		"entity": h.entityView(cfg),
		"form":   form,
		"mode":   mode,
		"id":     id,
		"action": action,
	}
	if form.bound && !form.Valid() {
		c.Status(fiber.StatusUnprocessableEntity)
		data["error"] = FormInvalidError(form.Details())
	}
	return h.renderer.Render(c, "form", data)
}

func (h *Handler) listContext(c *fiber.Ctx, cfg *frontend.EntityConfig) (fiber.Map, error) {
	ctx := c.UserContext()
	user := getUser(c)
	params := ParseListParams(c)

	q, err := Fetch(ctx, h.storage, cfg, user, cfg.DisplayFields)
	if err != nil {
		return nil, err
	}
	q.ApplySearch(cfg.SearchFields, params.Search).
		ApplyFilter(cfg.FilterFields, params.Filters).
		ApplySort(cfg.SortFields, params.Sort)
	page, err := q.Paginate(ctx, params.Page, cfg.PageSize)
	if err != nil {
		return nil, err
	}
	options, err := FilterOptions(ctx, h.storage, cfg, user)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, 0, len(q.Fields))
	for _, name := range q.Fields {
		col := Column{Name: name, Label: name, Sortable: contains(cfg.SortFields, name)}
		if f := cfg.Entity.GetField(name); f != nil {
			col.Label = f.VerboseName()
		}
		columns = append(columns, col)
	}

	data := fiber.Map{
		"meta":             SiteMeta(h.registry, user, cfg.Entity.Label()),
		"entity":           h.entityView(cfg),
		"columns":          columns,
		"page":             page,
		"cells":            tableCells(cfg.Entity, q.Fields, page.Rows),
		"permissions":      cfg.Permissions,
		"params":           params,
		"searchable":       len(cfg.SearchFields) > 0,
		"filter_options":   options,
		"toolbar_actions":  cfg.ToolbarActions,
		"row_actions":      cfg.RowActions,
		"display_as_cards": cfg.DisplayAsCards,
	}
	if cfg.Permissions.Add {
		data["form"] = BuildForm(cfg, nil, h.log)
	}
	return data, nil
}

// RowCells is one list row pre-formatted for templates.
type RowCells struct {
	ID     string   `json:"id"`
	Values []string `json:"values"`
}

func tableCells(e *metadata.Entity, fields []string, rows []store.Row) []RowCells {
	out := make([]RowCells, 0, len(rows))
	for _, r := range rows {
		rc := RowCells{ID: fmt.Sprint(r[e.ID()]), Values: make([]string, 0, len(fields))}
		for _, name := range fields {
			f := e.GetField(name)
			if f == nil {
				rc.Values = append(rc.Values, fmt.Sprint(r[name]))
				continue
			}
			rc.Values = append(rc.Values, formatValue(f, r[name]))
		}
		out = append(out, rc)
	}
	return out
}

// resolve runs the global gate, looks up the entity configuration and runs
// the per-entity gate. done reports that a response or error is final.
func (h *Handler) resolve(c *fiber.Ctx) (cfg *frontend.EntityConfig, done bool, err error) {
	if done, err := h.globalGate(c); done {
		return nil, true, err
	}
	group, name := c.Params("group"), c.Params("entity")
	_, cfg, err = h.registry.Lookup(group, name)
	if err != nil {
		if errors.Is(err, frontend.ErrNotConfigured) {
			return nil, true, NotConfiguredError(strings.ToLower(group + "." + name))
		}
		return nil, true, err
	}
	if done, err := h.gate(c, cfg.LoginRequired); done {
		return nil, true, err
	}
	return cfg, false, nil
}

// globalGate applies the site-wide login requirement identically to every
// method.
func (h *Handler) globalGate(c *fiber.Ctx) (bool, error) {
	return h.gate(c, h.registry.GlobalConfig().LoginRequired)
}

func (h *Handler) gate(c *fiber.Ctx, required bool) (bool, error) {
	g := h.registry.GlobalConfig()
	if required && g.AuthenticationAvailable() && !getUser(c).Authenticated() {
		return true, LoginRedirect(c, g.LoginURL)
	}
	return false, nil
}

func (h *Handler) scopedRow(c *fiber.Ctx, cfg *frontend.EntityConfig, id string) (store.Row, error) {
	if id == "" {
		return nil, NotFoundError(cfg.Entity.Name, id)
	}
	row, err := h.storage.Get(c.UserContext(), cfg.Entity, cfg.Scope(getUser(c)), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError(cfg.Entity.Name, id)
		}
		return nil, fmt.Errorf("get %s/%s: %w", cfg.Entity.Key(), id, err)
	}
	return row, nil
}

func getUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}

func (h *Handler) entityPath(e *metadata.Entity) string {
	return h.registry.GlobalConfig().EntityPath(e)
}

func (h *Handler) entityView(cfg *frontend.EntityConfig) EntityView {
	e := cfg.Entity
	desc := cfg.Description
	if desc == "" {
		desc = e.Description
	}
	return EntityView{
		Module:      e.Module,
		Name:        strings.ToLower(e.Name),
		Label:       e.Label(),
		Description: desc,
		Path:        h.entityPath(e),
		IDField:     e.ID(),
	}
}

// formValues reads a urlencoded or multipart body, first value per key.
func formValues(c *fiber.Ctx) map[string]string {
	values := make(map[string]string)
	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
		return values
	}
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if _, ok := values[key]; !ok {
			values[key] = string(v)
		}
	})
	return values
}
