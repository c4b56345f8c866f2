// Package memory is an in-process storage backend with the same listing
// semantics as the SQL store. It backs tests and database-less demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

type table struct {
	rows   []store.Row
	nextID int64
}

// Store keeps rows per entity in insertion order.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	users  map[string]*store.User
}

func New() *Store {
	return &Store{
		tables: make(map[string]*table),
		users:  make(map[string]*store.User),
	}
}

func (s *Store) table(entity *metadata.Entity) *table {
	t, ok := s.tables[entity.Key()]
	if !ok {
		t = &table{}
		s.tables[entity.Key()] = t
	}
	return t
}

// Query returns copies of the matching rows projected onto q.Columns.
func (s *Store) Query(_ context.Context, q *store.ListQuery) (*store.ResultSet, error) {
	columns := q.Columns
	if len(columns) == 0 {
		columns = q.Entity.FieldNames()
	}
	for _, c := range columns {
		if !q.Entity.HasField(c) {
			return nil, fmt.Errorf("unknown column %s on %s", c, q.Entity.Key())
		}
	}

	s.mu.RLock()
	matched, err := s.match(q)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	sortRows(q, matched)
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]store.Row, 0, len(matched))
	for _, r := range matched {
		out = append(out, project(r, columns))
	}
	return &store.ResultSet{Columns: columns, Rows: out}, nil
}

// Count returns the number of rows matching q, ignoring Limit and Offset.
func (s *Store) Count(_ context.Context, q *store.ListQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched, err := s.match(q)
	return len(matched), err
}

// Get fetches one row by identifier within scope.
func (s *Store) Get(_ context.Context, entity *metadata.Entity, scope []store.Condition, id string) (store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, row := s.find(entity, id)
	if row == nil {
		return nil, store.ErrNotFound
	}
	ok, err := matchScope(entity, row, scope)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	return project(row, entity.FieldNames()), nil
}

// Save inserts values when id is empty, otherwise updates the row with id.
func (s *Store) Save(_ context.Context, entity *metadata.Entity, id string, values store.Row) (store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(entity)
	pk := entity.ID()

	if id == "" {
		row := make(store.Row, len(entity.Fields))
		for _, f := range entity.Fields {
			row[f.Name] = f.Default
		}
		for k, v := range values {
			if entity.HasField(k) && k != pk {
				row[k] = v
			}
		}
		switch {
		case !entity.PrimaryKey.Generated:
			v, ok := values[pk]
			if !ok {
				return nil, fmt.Errorf("save %s: primary key %s is required", entity.Key(), pk)
			}
			row[pk] = v
		case entity.PrimaryKey.Type == "uuid":
			row[pk] = uuid.New().String()
		default:
			t.nextID++
			row[pk] = t.nextID
		}
		if err := checkUnique(entity, t, row, -1); err != nil {
			return nil, err
		}
		t.rows = append(t.rows, row)
		return project(row, entity.FieldNames()), nil
	}

	idx, existing := s.find(entity, id)
	if existing == nil {
		return nil, store.ErrNotFound
	}
	updated := project(existing, entity.FieldNames())
	for k, v := range values {
		if entity.HasField(k) && k != pk {
			updated[k] = v
		}
	}
	if err := checkUnique(entity, t, updated, idx); err != nil {
		return nil, err
	}
	t.rows[idx] = updated
	return project(updated, entity.FieldNames()), nil
}

// Delete removes the row with id.
func (s *Store) Delete(_ context.Context, entity *metadata.Entity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, row := s.find(entity, id)
	if row == nil {
		return store.ErrNotFound
	}
	t := s.table(entity)
	t.rows = append(t.rows[:idx], t.rows[idx+1:]...)
	return nil
}

// Distinct returns the sorted distinct non-nil values of field within scope.
func (s *Store) Distinct(_ context.Context, q *store.ListQuery, field string) ([]any, error) {
	if !q.Entity.HasField(field) {
		return nil, fmt.Errorf("unknown column %s on %s", field, q.Entity.Key())
	}
	s.mu.RLock()
	matched, err := s.match(&store.ListQuery{Entity: q.Entity, Scope: q.Scope})
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []any
	for _, r := range matched {
		v := r[field]
		if v == nil {
			continue
		}
		k := text(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return compare(out[i], out[j]) < 0 })
	return out, nil
}

func (s *Store) find(entity *metadata.Entity, id string) (int, store.Row) {
	t, ok := s.tables[entity.Key()]
	if !ok {
		return -1, nil
	}
	for i, r := range t.rows {
		if text(r[entity.ID()]) == id {
			return i, r
		}
	}
	return -1, nil
}

func (s *Store) match(q *store.ListQuery) ([]store.Row, error) {
	t, ok := s.tables[q.Entity.Key()]
	if !ok {
		return nil, nil
	}
	var out []store.Row
	for _, r := range t.rows {
		ok, err := matchScope(q.Entity, r, q.Scope)
		if err != nil {
			return nil, err
		}
		if !ok || !matchSearch(q.Search, r) {
			continue
		}
		ok, err = matchFilters(q.Entity, q.Filters, r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func matchScope(entity *metadata.Entity, r store.Row, scope []store.Condition) (bool, error) {
	for _, c := range scope {
		if c.Operator == "none" {
			return false, nil
		}
		if !entity.HasField(c.Field) {
			return false, fmt.Errorf("unknown scope field %s on %s", c.Field, entity.Key())
		}
		v := r[c.Field]
		switch c.Operator {
		case "eq", "":
			if v == nil || text(v) != text(c.Value) {
				return false, nil
			}
		case "neq":
			if v != nil && text(v) == text(c.Value) {
				return false, nil
			}
		case "in":
			if !inValues(v, c.Value) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported scope operator %s", c.Operator)
		}
	}
	return true, nil
}

func inValues(v any, values any) bool {
	if v == nil {
		return false
	}
	switch vals := values.(type) {
	case []string:
		for _, x := range vals {
			if text(v) == x {
				return true
			}
		}
	case []any:
		for _, x := range vals {
			if text(v) == text(x) {
				return true
			}
		}
	}
	return false
}

func matchSearch(sc *store.SearchClause, r store.Row) bool {
	if sc == nil || sc.Text == "" || len(sc.Fields) == 0 {
		return true
	}
	for _, f := range sc.Fields {
		if contains(r[f], sc.Text) {
			return true
		}
	}
	return false
}

func matchFilters(entity *metadata.Entity, filters []store.FilterClause, r store.Row) (bool, error) {
	for _, fc := range filters {
		if !entity.HasField(fc.Field) {
			return false, fmt.Errorf("unknown filter field %s", fc.Field)
		}
		if len(fc.Values) == 0 {
			continue
		}
		f := entity.GetField(fc.Field)
		hit := false
		for _, v := range fc.Values {
			if f.Type == "boolean" {
				b, ok := store.ParseBool(v)
				if ok && r[fc.Field] == b {
					hit = true
					break
				}
				continue
			}
			if contains(r[fc.Field], v) {
				hit = true
				break
			}
		}
		if !hit {
			return false, nil
		}
	}
	return true, nil
}

func contains(v any, needle string) bool {
	if v == nil {
		return false
	}
	return strings.Contains(strings.ToLower(text(v)), strings.ToLower(needle))
}

func checkUnique(entity *metadata.Entity, t *table, row store.Row, skip int) error {
	for _, f := range entity.Fields {
		if !f.Unique || row[f.Name] == nil {
			continue
		}
		for i, other := range t.rows {
			if i != skip && other[f.Name] != nil && text(other[f.Name]) == text(row[f.Name]) {
				return fmt.Errorf("%w: %s.%s", store.ErrUniqueViolation, entity.Table, f.Name)
			}
		}
	}
	return nil
}

func sortRows(q *store.ListQuery, rows []store.Row) {
	if q.Sort == nil || !q.Entity.HasField(q.Sort.Field) {
		return
	}
	field, desc := q.Sort.Field, q.Sort.Desc
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i][field], rows[j][field])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compare orders nil first, numbers numerically, times chronologically and
// everything else by its text form.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(text(a), text(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func project(r store.Row, columns []string) store.Row {
	out := make(store.Row, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}
