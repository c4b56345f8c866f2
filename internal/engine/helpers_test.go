package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
	"fast-frontend/internal/store/memory"
)

func testCatalog(t *testing.T) *metadata.Catalog {
	t.Helper()
	c := metadata.NewCatalog()
	require.NoError(t, c.AddModule(&metadata.Module{Name: "app", Label: "Writers", Entities: []*metadata.Entity{{
		Name:              "Author",
		VerboseNamePlural: "Authors",
		PrimaryKey:        metadata.PrimaryKey{Field: "id", Type: "int", Generated: true},
		Fields: []metadata.Field{
			{Name: "id", Type: "int"},
			{Name: "name", Type: "string", Required: true, Unique: true, MaxLength: 100},
			{Name: "title", Type: "string", MaxLength: 3, Choices: []metadata.Choice{
				{Value: "MR", Label: "Mr."}, {Value: "MRS", Label: "Mrs."}, {Value: "MS", Label: "Ms."},
			}},
			{Name: "birth_date", Type: "date", Nullable: true},
			{Name: "checked", Type: "boolean", Default: false},
			{Name: "owner", Type: "string"},
		},
	}}}))
	require.NoError(t, c.AddModule(&metadata.Module{Name: "app2", Entities: []*metadata.Entity{{
		Name:       "People",
		PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "int", Generated: true},
		Fields: []metadata.Field{
			{Name: "id", Type: "int"},
			{Name: "name", Type: "string"},
		},
	}}}))
	return c
}

var seedAuthors = []store.Row{
	{"name": "Ann Smith", "title": "MS", "owner": "u1"},
	{"name": "bob Stone", "title": "MR", "owner": "u2"},
	{"name": "Carol King", "title": "MRS", "owner": "u1"},
	{"name": "Dan Brown", "title": "MR", "owner": "u2"},
	{"name": "Eve Adams", "title": "MS", "owner": "u1"},
	{"name": "Frank Moore", "title": "MR", "owner": "u2"},
	{"name": "Gina Lopez", "title": "MRS", "owner": "u1"},
}

func seedStore(t *testing.T, entity *metadata.Entity) *memory.Store {
	t.Helper()
	s := memory.New()
	for _, r := range seedAuthors {
		_, err := s.Save(context.Background(), entity, "", r)
		require.NoError(t, err)
	}
	return s
}

// authorFrontend records handler invocations.
type authorFrontend struct {
	frontend.ModelFrontend
	opts     frontend.Options
	rowCalls []store.Row
	toolbar  int
	wiped    int
}

func (a *authorFrontend) Options() frontend.Options { return a.opts }

func (a *authorFrontend) RowHandlers() map[string]frontend.RowAction {
	return map[string]frontend.RowAction{
		"change_status": func(_ context.Context, row store.Row) error {
			a.rowCalls = append(a.rowCalls, row)
			return nil
		},
		// present as a handler but never declared in RowActions
		"delete_everything": func(context.Context, store.Row) error {
			a.wiped++
			return nil
		},
	}
}

func (a *authorFrontend) ToolbarHandlers() map[string]frontend.ToolbarAction {
	return map[string]frontend.ToolbarAction{
		"refresh": func(context.Context) error {
			a.toolbar++
			return nil
		},
	}
}

func defaultOptions() frontend.Options {
	return frontend.Options{
		DisplayFields:  []string{"name", "title"},
		FormFields:     []string{"name", "title", "birth_date"},
		SearchFields:   []string{"name", "title"},
		SortFields:     []string{"name", "title"},
		FilterFields:   []string{"title"},
		ToolbarActions: []string{"refresh"},
		RowActions:     []string{"change_status", "broken"},
		Permissions:    &frontend.Permissions{View: true, Add: true, Change: true, Delete: true},
		LoginRequired:  frontend.Bool(false),
		PageSize:       3,
	}
}

type fixture struct {
	app      *fiber.App
	store    *memory.Store
	registry *frontend.Registry
	author   *authorFrontend
	entity   *metadata.Entity
	hook     *logtest.Hook
}

func newFixture(t *testing.T, opts frontend.Options, global *frontend.GlobalConfig) *fixture {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	catalog := testCatalog(t)
	entity := catalog.Entity("app", "Author")
	reg := frontend.NewRegistry(catalog, logger)
	author := &authorFrontend{opts: opts}
	require.NoError(t, reg.Register(entity, func() frontend.Frontend { return author }))
	if global != nil {
		require.NoError(t, reg.RegisterConfig(global))
	}
	require.NoError(t, reg.RegisterAccounts(nil))
	reg.Ready()

	s := seedStore(t, entity)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User"); id != "" {
			c.Locals("user", &metadata.UserContext{ID: id, Roles: strings.Split(c.Get("X-Roles"), ",")})
		}
		return c.Next()
	})
	var router fiber.Router = app
	if global != nil && global.URL != "" {
		router = app.Group(global.URL)
	}
	RegisterRoutes(router, NewHandler(reg, s, JSONRenderer{}, logger))

	hook.Reset()
	return &fixture{app: app, store: s, registry: reg, author: author, entity: entity, hook: hook}
}

type request struct {
	method  string
	target  string
	form    url.Values
	headers map[string]string
}

func (f *fixture) do(t *testing.T, r request) *http.Response {
	t.Helper()
	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}
	req := httptest.NewRequest(r.method, r.target, body)
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

type listBody struct {
	View    string   `json:"view"`
	Columns []Column `json:"columns"`
	Page    struct {
		Number   int              `json:"number"`
		NumPages int              `json:"num_pages"`
		Total    int              `json:"total"`
		Rows     []map[string]any `json:"rows"`
	} `json:"page"`
}

func (b listBody) names() []string {
	var out []string
	for _, r := range b.Page.Rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func warnings(hook *logtest.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}
