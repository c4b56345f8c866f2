package store

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fast-frontend/internal/config"
	"fast-frontend/internal/metadata"
)

func authorEntity() *metadata.Entity {
	return &metadata.Entity{
		Module:     "app",
		Name:       "Author",
		Table:      "app_author",
		PrimaryKey: metadata.PrimaryKey{Field: "id", Type: "int", Generated: true},
		Fields: []metadata.Field{
			{Name: "id", Type: "int"},
			{Name: "name", Type: "string", Required: true, Unique: true},
			{Name: "title", Type: "string"},
			{Name: "birth_date", Type: "date", Nullable: true},
			{Name: "checked", Type: "boolean", Default: false},
			{Name: "owner", Type: "string"},
		},
	}
}

func newTestStore(t *testing.T) (*Store, *metadata.Entity) {
	t.Helper()
	ctx := context.Background()
	logger, _ := logtest.NewNullLogger()
	s, err := New(ctx, config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	e := authorEntity()
	require.NoError(t, NewMigrator(s).Migrate(ctx, e))

	seed := []Row{
		{"name": "Ann Smith", "title": "MS", "owner": "u1"},
		{"name": "bob Stone", "title": "MR", "owner": "u2"},
		{"name": "Carol King", "title": "MRS", "owner": "u1"},
		{"name": "Dan Brown", "title": "MR", "owner": "u2", "checked": true},
	}
	for _, r := range seed {
		_, err := s.Save(ctx, e, "", r)
		require.NoError(t, err)
	}
	return s, e
}

func names(rs *ResultSet) []string {
	var out []string
	for _, r := range rs.Rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestStore_QueryAllColumns(t *testing.T) {
	s, e := newTestStore(t)
	rs, err := s.Query(context.Background(), &ListQuery{Entity: e})
	require.NoError(t, err)
	assert.Equal(t, e.FieldNames(), rs.Columns)
	require.Len(t, rs.Rows, 4)
	assert.Equal(t, false, rs.Rows[0]["checked"])
	assert.Equal(t, true, rs.Rows[3]["checked"])
}

func TestStore_QueryRejectsUnknownColumn(t *testing.T) {
	s, e := newTestStore(t)
	_, err := s.Query(context.Background(), &ListQuery{Entity: e, Columns: []string{"name; DROP TABLE app_author"}})
	assert.Error(t, err)
}

func TestStore_SearchIsCaseInsensitiveOr(t *testing.T) {
	s, e := newTestStore(t)
	rs, err := s.Query(context.Background(), &ListQuery{
		Entity: e,
		Search: &SearchClause{Fields: []string{"name", "title"}, Text: "S"},
	})
	require.NoError(t, err)
	// Carol matches through title only
	assert.Equal(t, []string{"Ann Smith", "bob Stone", "Carol King"}, names(rs))
}

func TestStore_SearchEscapesWildcards(t *testing.T) {
	s, e := newTestStore(t)
	rs, err := s.Query(context.Background(), &ListQuery{
		Entity: e,
		Search: &SearchClause{Fields: []string{"name"}, Text: "%"},
	})
	require.NoError(t, err)
	assert.Empty(t, rs.Rows)
}

func TestStore_FiltersAndAcrossOrWithin(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()

	rs, err := s.Query(ctx, &ListQuery{Entity: e, Filters: []FilterClause{
		{Field: "title", Values: []string{"MS", "MRS"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann Smith", "Carol King"}, names(rs))

	rs, err = s.Query(ctx, &ListQuery{Entity: e, Filters: []FilterClause{
		{Field: "title", Values: []string{"MR"}},
		{Field: "owner", Values: []string{"u1"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol King"}, names(rs))
}

func TestStore_SortAndPaginate(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()
	q := &ListQuery{Entity: e, Sort: &OrderClause{Field: "name", Desc: true}, Limit: 2, Offset: 1}

	rs, err := s.Query(ctx, q)
	require.NoError(t, err)
	// binary collation sorts lower-case after upper-case
	assert.Equal(t, []string{"Dan Brown", "Carol King"}, names(rs))

	n, err := s.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStore_GetScoped(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()

	row, err := s.Get(ctx, e, nil, "2")
	require.NoError(t, err)
	assert.Equal(t, "bob Stone", row["name"])

	_, err = s.Get(ctx, e, []Condition{{Field: "owner", Operator: "eq", Value: "u1"}}, "2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, e, []Condition{MatchNone()}, "1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, e, nil, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	row, err = s.Get(ctx, e, []Condition{{Field: "title", Operator: "in", Value: []string{"MS", "MRS"}}}, "3")
	require.NoError(t, err)
	assert.Equal(t, "Carol King", row["name"])
}

func TestStore_SaveUpdateAndDates(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()
	born := time.Date(1970, 5, 17, 0, 0, 0, 0, time.UTC)

	row, err := s.Save(ctx, e, "1", Row{"title": "MRS", "birth_date": born})
	require.NoError(t, err)
	assert.Equal(t, "MRS", row["title"])
	assert.Equal(t, "1970-05-17", row["birth_date"])
	assert.Equal(t, "Ann Smith", row["name"])

	_, err = s.Save(ctx, e, "99", Row{"title": "MR"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveUniqueViolation(t *testing.T) {
	s, e := newTestStore(t)
	_, err := s.Save(context.Background(), e, "", Row{"name": "Ann Smith"})
	assert.ErrorIs(t, err, ErrUniqueViolation)
}

func TestStore_Delete(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, e, "1"))
	assert.ErrorIs(t, s.Delete(ctx, e, "1"), ErrNotFound)

	n, err := s.Count(ctx, &ListQuery{Entity: e})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_Distinct(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()

	vals, err := s.Distinct(ctx, &ListQuery{Entity: e}, "title")
	require.NoError(t, err)
	assert.Equal(t, []any{"MR", "MRS", "MS"}, vals)

	vals, err = s.Distinct(ctx, &ListQuery{Entity: e, Scope: []Condition{{Field: "owner", Operator: "eq", Value: "u2"}}}, "title")
	require.NoError(t, err)
	assert.Equal(t, []any{"MR"}, vals)
}

func TestStore_FilterBooleanByDistinctValue(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()

	vals, err := s.Distinct(ctx, &ListQuery{Entity: e}, "checked")
	require.NoError(t, err)
	require.Equal(t, []any{false, true}, vals)

	rs, err := s.Query(ctx, &ListQuery{Entity: e, Filters: []FilterClause{{Field: "checked", Values: []string{"true"}}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dan Brown"}, names(rs))

	rs, err = s.Query(ctx, &ListQuery{Entity: e, Filters: []FilterClause{{Field: "checked", Values: []string{"false"}}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann Smith", "bob Stone", "Carol King"}, names(rs))

	rs, err = s.Query(ctx, &ListQuery{Entity: e, Filters: []FilterClause{{Field: "checked", Values: []string{"maybe"}}}})
	require.NoError(t, err)
	assert.Empty(t, rs.Rows)
}

func TestMigrator_AddsMissingColumns(t *testing.T) {
	s, e := newTestStore(t)
	ctx := context.Background()
	e.Fields = append(e.Fields, metadata.Field{Name: "nickname", Type: "string"})
	require.NoError(t, NewMigrator(s).Migrate(ctx, e))

	cols, err := s.Dialect.Columns(ctx, s.DB, e.Table)
	require.NoError(t, err)
	assert.Contains(t, cols, "nickname")
}

func TestStore_Users(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Bootstrap(ctx))

	admin, err := s.FindUserByEmail(ctx, "ADMIN@localhost")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, admin.Roles)
	assert.True(t, admin.Active)

	u, err := s.CreateUser(ctx, "reader@example.com", "hash", nil)
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "reader@example.com", "hash", nil)
	assert.ErrorIs(t, err, ErrUniqueViolation)

	require.NoError(t, s.SetPassword(ctx, u.ID, "hash2"))
	got, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash2", got.PasswordHash)
	assert.Empty(t, got.Roles)

	_, err = s.FindUserByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}
