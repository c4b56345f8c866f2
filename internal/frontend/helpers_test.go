package frontend

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

func personFields() []metadata.Field {
	return []metadata.Field{
		{Name: "id", Type: "int"},
		{Name: "name", Type: "string", MaxLength: 100, Required: true},
		{Name: "title", Type: "string", MaxLength: 3, Choices: []metadata.Choice{
			{Value: "MR", Label: "Mr."}, {Value: "MRS", Label: "Mrs."}, {Value: "MS", Label: "Ms."},
		}},
		{Name: "birth_date", Type: "date", Nullable: true},
	}
}

func testCatalog(t *testing.T) *metadata.Catalog {
	t.Helper()
	c := metadata.NewCatalog()
	require.NoError(t, c.AddModule(&metadata.Module{Name: "app", Label: "Writers", Entities: []*metadata.Entity{
		{Name: "Author", VerboseNamePlural: "Authors", PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "int", Generated: true}, Fields: personFields()},
	}}))
	require.NoError(t, c.AddModule(&metadata.Module{Name: "app2", Entities: []*metadata.Entity{
		{Name: "People", PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "int", Generated: true}, Fields: personFields()},
	}}))
	return c
}

func testRegistry(t *testing.T) (*Registry, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewRegistry(testCatalog(t), logger), hook
}

type authorFrontend struct {
	ModelFrontend
	opts    Options
	checked []store.Row
}

func (a *authorFrontend) Options() Options { return a.opts }

func (a *authorFrontend) RowHandlers() map[string]RowAction {
	return map[string]RowAction{
		"check": func(_ context.Context, row store.Row) error {
			a.checked = append(a.checked, row)
			return nil
		},
	}
}

func (a *authorFrontend) ToolbarHandlers() map[string]ToolbarAction {
	return map[string]ToolbarAction{
		"refresh": func(context.Context) error { return nil },
	}
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
