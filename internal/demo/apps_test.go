package demo

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
	"fast-frontend/internal/store/memory"
)

func setup(t *testing.T, installed ...string) (*frontend.Registry, *metadata.Catalog, *memory.Store, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	catalog := metadata.NewCatalog()
	require.NoError(t, metadata.LoadFile("../../models.yaml", catalog))

	s := memory.New()
	reg := frontend.NewRegistry(catalog, logger)
	reg.Autodiscover(Installed(Apps(s, logger), installed, logger)...)
	reg.Ready()
	return reg, catalog, s, hook
}

func TestAutodiscover_InstalledApps(t *testing.T) {
	reg, catalog, _, hook := setup(t, "app", "app2", "notes", "missing")

	assert.True(t, reg.IsRegistered(catalog.Entity("app", "Author")))
	assert.True(t, reg.IsRegistered(catalog.Entity("app2", "People")))
	assert.False(t, reg.IsRegistered(catalog.Entity("notes", "Note")))

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = append(warned, e.Message)
		}
	}
	assert.Equal(t, []string{"installed app not found"}, warned)
}

func TestAutodiscover_OnlySelectedApps(t *testing.T) {
	reg, catalog, _, _ := setup(t, "app2")
	assert.False(t, reg.IsRegistered(catalog.Entity("app", "Author")))
	assert.Len(t, reg.Entities(), 1)
}

func TestAuthor_CheckAndUncheck(t *testing.T) {
	reg, catalog, s, _ := setup(t, "app")
	author := catalog.Entity("app", "Author")
	ctx := context.Background()
	saved, err := s.Save(ctx, author, "", store.Row{"name": "Ann Smith", "title": "MS"})
	require.NoError(t, err)
	id := "1"
	assert.Equal(t, false, saved["checked"])

	cfg, err := reg.ConfigFor(author)
	require.NoError(t, err)
	assert.False(t, cfg.Permissions.Add)

	check, status := cfg.RowAction("check")
	require.Equal(t, frontend.ActionCallable, status)
	require.NoError(t, check(metadata.WithUser(ctx, &metadata.UserContext{ID: "u1"}), saved))

	row, err := s.Get(ctx, author, nil, id)
	require.NoError(t, err)
	assert.Equal(t, true, row["checked"])

	uncheck, _ := cfg.RowAction("uncheck")
	require.NoError(t, uncheck(ctx, row))
	row, err = s.Get(ctx, author, nil, id)
	require.NoError(t, err)
	assert.Equal(t, false, row["checked"])
}

func TestAuthor_UnknownRowFails(t *testing.T) {
	reg, catalog, _, _ := setup(t, "app")
	cfg, err := reg.ConfigFor(catalog.Entity("app", "Author"))
	require.NoError(t, err)

	check, _ := cfg.RowAction("check")
	assert.ErrorIs(t, check(context.Background(), store.Row{"id": int64(42)}), store.ErrNotFound)
}
