package engine

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
	"fast-frontend/internal/store/memory"
)

func testConfig(t *testing.T, opts frontend.Options) (*frontend.EntityConfig, *memory.Store) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	catalog := testCatalog(t)
	entity := catalog.Entity("app", "Author")
	reg := frontend.NewRegistry(catalog, logger)
	require.NoError(t, reg.Register(entity, frontend.Static(opts)))
	cfg, err := reg.ConfigFor(entity)
	require.NoError(t, err)
	return cfg, seedStore(t, entity)
}

func names(rows []store.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestFetch_FieldSelection(t *testing.T) {
	ctx := context.Background()
	cfg, s := testConfig(t, defaultOptions())

	q, err := Fetch(ctx, s, cfg, nil, []string{"name", "title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "title"}, q.Fields)
	assert.Equal(t, []string{"name", "title", "id"}, q.ListQuery().Columns)

	q, err = Fetch(ctx, s, cfg, nil, []string{"id", "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, q.Fields)
	assert.Equal(t, []string{"id", "name"}, q.ListQuery().Columns)

	q, err = Fetch(ctx, s, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "title", "birth_date", "checked", "owner"}, q.Fields)
	assert.Empty(t, q.ListQuery().Columns)
}

func TestFetch_EmptyTableUsesDeclaredFields(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	catalog := testCatalog(t)
	entity := catalog.Entity("app", "Author")
	reg := frontend.NewRegistry(catalog, logger)
	require.NoError(t, reg.Register(entity, frontend.Static(defaultOptions())))
	cfg, err := reg.ConfigFor(entity)
	require.NoError(t, err)

	q, err := Fetch(context.Background(), memory.New(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.DataFieldNames(), q.Fields)

	page, err := q.Paginate(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Rows)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 1, page.NumPages)
}

func TestQuery_ClausesCompose(t *testing.T) {
	ctx := context.Background()
	cfg, s := testConfig(t, defaultOptions())

	q, err := Fetch(ctx, s, cfg, nil, cfg.DisplayFields)
	require.NoError(t, err)
	q.ApplySearch(cfg.SearchFields, "o").
		ApplyFilter(cfg.FilterFields, map[string][]string{"title": {"MR", ""}, "owner": {"u1"}}).
		ApplySort(cfg.SortFields, "-name")

	lq := q.ListQuery()
	require.Len(t, lq.Filters, 1)
	assert.Equal(t, []string{"MR"}, lq.Filters[0].Values)

	page, err := q.Paginate(ctx, 1, 0)
	require.NoError(t, err)
	// "MR" is a substring of "MRS"
	assert.Equal(t, []string{"bob Stone", "Gina Lopez", "Frank Moore", "Dan Brown", "Carol King"}, names(page.Rows))
}

func TestQuery_SearchNoOp(t *testing.T) {
	cfg, s := testConfig(t, defaultOptions())
	q, err := Fetch(context.Background(), s, cfg, nil, cfg.DisplayFields)
	require.NoError(t, err)

	q.ApplySearch(nil, "ann").ApplySearch(cfg.SearchFields, "")
	assert.Nil(t, q.ListQuery().Search)
}

func TestQuery_SortIgnoresUnlisted(t *testing.T) {
	cfg, s := testConfig(t, defaultOptions())
	q, err := Fetch(context.Background(), s, cfg, nil, cfg.DisplayFields)
	require.NoError(t, err)

	for _, arg := range []string{"", "-", "owner", "-owner", "--name"} {
		q.ApplySort(cfg.SortFields, arg)
		assert.Nil(t, q.ListQuery().Sort, arg)
	}
	q.ApplySort(cfg.SortFields, "title")
	assert.Equal(t, &store.OrderClause{Field: "title"}, q.ListQuery().Sort)
}

func TestPaginate_Clamping(t *testing.T) {
	ctx := context.Background()
	cfg, s := testConfig(t, defaultOptions())

	tests := []struct {
		number int
		size   int
		want   int
		pages  int
		rows   int
	}{
		{1, 3, 1, 3, 3},
		{2, 3, 2, 3, 3},
		{3, 3, 3, 3, 1},
		{4, 3, 3, 3, 1},
		{0, 3, 1, 3, 3},
		{-1, 3, 1, 3, 3},
		{2, 7, 1, 1, 7},
		{5, 0, 1, 1, 7},
	}
	for _, tt := range tests {
		q, err := Fetch(ctx, s, cfg, nil, cfg.DisplayFields)
		require.NoError(t, err)
		page, err := q.Paginate(ctx, tt.number, tt.size)
		require.NoError(t, err)
		assert.Equal(t, tt.want, page.Number, "page %d size %d", tt.number, tt.size)
		assert.Equal(t, tt.pages, page.NumPages)
		assert.Len(t, page.Rows, tt.rows)
		assert.Equal(t, 7, page.Total)
	}
}

func TestPaginate_Links(t *testing.T) {
	cfg, s := testConfig(t, defaultOptions())
	q, err := Fetch(context.Background(), s, cfg, nil, cfg.DisplayFields)
	require.NoError(t, err)

	page, err := q.Paginate(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.True(t, page.HasPrevious)
	assert.True(t, page.HasNext)
	assert.Equal(t, 1, page.Previous)
	assert.Equal(t, 3, page.Next)
	assert.Equal(t, []string{"Dan Brown", "Eve Adams", "Frank Moore"}, names(page.Rows))
}

func TestFilterOptions(t *testing.T) {
	opts := defaultOptions()
	opts.FilterFields = []string{"title", "owner"}
	opts.OwnerField = "owner"
	cfg, s := testConfig(t, opts)

	groups, err := FilterOptions(context.Background(), s, cfg, &metadata.UserContext{ID: "root", Roles: []string{"admin"}})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Title", groups[0].Label)
	assert.Len(t, groups[0].Choices, 3)
	assert.Equal(t, []metadata.Choice{{Value: "u1", Label: "u1"}, {Value: "u2", Label: "u2"}}, groups[1].Choices)

	groups, err = FilterOptions(context.Background(), s, cfg, &metadata.UserContext{ID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, []metadata.Choice{{Value: "u2", Label: "u2"}}, groups[1].Choices)
}
