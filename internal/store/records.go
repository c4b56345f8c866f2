package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fast-frontend/internal/metadata"
)

// Query executes a listing query and returns its rows in result order.
func (s *Store) Query(ctx context.Context, q *ListQuery) (*ResultSet, error) {
	pb := s.Dialect.NewParamBuilder()
	columns := q.Columns
	if len(columns) == 0 {
		columns = q.Entity.FieldNames()
	}
	for _, c := range columns {
		if !q.Entity.HasField(c) {
			return nil, fmt.Errorf("unknown column %s on %s", c, q.Entity.Key())
		}
	}

	where, err := s.buildWhere(q, pb)
	if err != nil {
		return nil, err
	}

	sqlStr := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), q.Entity.Table)
	if where != "" {
		sqlStr += " WHERE " + where
	}
	sqlStr += " ORDER BY " + orderBy(q)
	if q.Limit > 0 {
		sqlStr += fmt.Sprintf(" LIMIT %s OFFSET %s", pb.Add(q.Limit), pb.Add(q.Offset))
	}

	_, rows, err := s.queryRows(ctx, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.Entity.Key(), err)
	}
	s.fixBooleans(q.Entity, rows)
	return &ResultSet{Columns: columns, Rows: rows}, nil
}

// Count returns the number of rows matching q, ignoring Limit and Offset.
func (s *Store) Count(ctx context.Context, q *ListQuery) (int, error) {
	pb := s.Dialect.NewParamBuilder()
	where, err := s.buildWhere(q, pb)
	if err != nil {
		return 0, err
	}
	sqlStr := "SELECT COUNT(*) FROM " + q.Entity.Table
	if where != "" {
		sqlStr += " WHERE " + where
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, sqlStr, pb.Params()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Entity.Key(), err)
	}
	return n, nil
}

// Get fetches one row by identifier within scope.
func (s *Store) Get(ctx context.Context, entity *metadata.Entity, scope []Condition, id string) (Row, error) {
	key, err := coerceKey(entity, id)
	if err != nil {
		return nil, ErrNotFound
	}
	pb := s.Dialect.NewParamBuilder()
	where, err := s.buildWhere(&ListQuery{Entity: entity, Scope: scope}, pb)
	if err != nil {
		return nil, err
	}
	clause := fmt.Sprintf("%s = %s", entity.ID(), pb.Add(key))
	if where != "" {
		clause += " AND " + where
	}
	sqlStr := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(entity.FieldNames(), ", "), entity.Table, clause)
	row, err := s.queryOne(ctx, sqlStr, pb.Params()...)
	if err != nil {
		return nil, err
	}
	s.fixBooleans(entity, []Row{row})
	return row, nil
}

// Save inserts values when id is empty, otherwise updates the row with id.
// The stored row is returned.
func (s *Store) Save(ctx context.Context, entity *metadata.Entity, id string, values Row) (Row, error) {
	pb := s.Dialect.NewParamBuilder()
	pk := entity.ID()
	var cols, phs, sets []string

	for _, f := range entity.Fields {
		v, ok := values[f.Name]
		if !ok || f.Name == pk {
			continue
		}
		ph := pb.Add(s.Dialect.EncodeValue(f.Type, v))
		cols = append(cols, f.Name)
		phs = append(phs, ph)
		sets = append(sets, fmt.Sprintf("%s = %s", f.Name, ph))
	}

	var sqlStr string
	if id == "" {
		if !entity.PrimaryKey.Generated {
			v, ok := values[pk]
			if !ok {
				return nil, fmt.Errorf("save %s: primary key %s is required", entity.Key(), pk)
			}
			cols = append(cols, pk)
			phs = append(phs, pb.Add(v))
		} else if entity.PrimaryKey.Type == "uuid" && s.Dialect.UUIDDefault() == "" {
			cols = append(cols, pk)
			phs = append(phs, pb.Add(uuid.New().String()))
		}
		if len(cols) == 0 {
			sqlStr = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", entity.Table)
		} else {
			sqlStr = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
				entity.Table, strings.Join(cols, ", "), strings.Join(phs, ", "))
		}
	} else {
		key, err := coerceKey(entity, id)
		if err != nil {
			return nil, ErrNotFound
		}
		if len(sets) == 0 {
			return s.Get(ctx, entity, nil, id)
		}
		sqlStr = fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING *",
			entity.Table, strings.Join(sets, ", "), pk, pb.Add(key))
	}

	row, err := s.queryOne(ctx, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("save %s: %w", entity.Key(), s.Dialect.MapError(err))
	}
	s.fixBooleans(entity, []Row{row})
	return row, nil
}

// Delete removes the row with id.
func (s *Store) Delete(ctx context.Context, entity *metadata.Entity, id string) error {
	key, err := coerceKey(entity, id)
	if err != nil {
		return ErrNotFound
	}
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", entity.Table, entity.ID(), pb.Add(key))
	n, err := s.exec(ctx, sqlStr, pb.Params()...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity.Key(), s.Dialect.MapError(err))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Distinct returns the distinct non-null values of field among the rows
// visible through q's scope.
func (s *Store) Distinct(ctx context.Context, q *ListQuery, field string) ([]any, error) {
	if !q.Entity.HasField(field) {
		return nil, fmt.Errorf("unknown column %s on %s", field, q.Entity.Key())
	}
	pb := s.Dialect.NewParamBuilder()
	where, err := s.buildWhere(&ListQuery{Entity: q.Entity, Scope: q.Scope}, pb)
	if err != nil {
		return nil, err
	}
	clause := field + " IS NOT NULL"
	if where != "" {
		clause += " AND " + where
	}
	sqlStr := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s ORDER BY %s", field, q.Entity.Table, clause, field)
	_, rows, err := s.queryRows(ctx, sqlStr, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", q.Entity.Key(), field, err)
	}
	s.fixBooleans(q.Entity, rows)
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[field])
	}
	return out, nil
}

func (s *Store) buildWhere(q *ListQuery, pb ParamBuilder) (string, error) {
	var parts []string
	for _, c := range q.Scope {
		expr, err := s.conditionSQL(q.Entity, c, pb)
		if err != nil {
			return "", err
		}
		parts = append(parts, expr)
	}

	if q.Search != nil && q.Search.Text != "" && len(q.Search.Fields) > 0 {
		var ors []string
		for _, f := range q.Search.Fields {
			if !q.Entity.HasField(f) {
				return "", fmt.Errorf("unknown search field %s", f)
			}
			ors = append(ors, s.Dialect.ContainsExpr(f, pb, q.Search.Text))
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}

	for _, fc := range q.Filters {
		if !q.Entity.HasField(fc.Field) {
			return "", fmt.Errorf("unknown filter field %s", fc.Field)
		}
		if len(fc.Values) == 0 {
			continue
		}
		f := q.Entity.GetField(fc.Field)
		var ors []string
		for _, v := range fc.Values {
			if f.Type != "boolean" {
				ors = append(ors, s.Dialect.ContainsExpr(fc.Field, pb, v))
				continue
			}
			b, ok := ParseBool(v)
			if !ok {
				ors = append(ors, "1=0")
				continue
			}
			ors = append(ors, fmt.Sprintf("%s = %s", f.Name, pb.Add(s.Dialect.EncodeValue(f.Type, b))))
		}
		parts = append(parts, "("+strings.Join(ors, " OR ")+")")
	}

	return strings.Join(parts, " AND "), nil
}

func (s *Store) conditionSQL(entity *metadata.Entity, c Condition, pb ParamBuilder) (string, error) {
	if c.Operator == "none" {
		return "1=0", nil
	}
	f := entity.GetField(c.Field)
	if f == nil {
		return "", fmt.Errorf("unknown scope field %s on %s", c.Field, entity.Key())
	}
	switch c.Operator {
	case "eq", "":
		return fmt.Sprintf("%s = %s", f.Name, pb.Add(s.Dialect.EncodeValue(f.Type, coerceParam(f, c.Value)))), nil
	case "neq":
		return fmt.Sprintf("(%s IS NULL OR %s <> %s)", f.Name, f.Name, pb.Add(s.Dialect.EncodeValue(f.Type, coerceParam(f, c.Value)))), nil
	case "in":
		return s.Dialect.InExpr(f.Name, pb, toAnySlice(c.Value)), nil
	default:
		return "", fmt.Errorf("unsupported scope operator %s", c.Operator)
	}
}

func (s *Store) fixBooleans(entity *metadata.Entity, rows []Row) {
	if !s.Dialect.IntBooleans() {
		return
	}
	bools := map[string]bool{}
	for _, f := range entity.Fields {
		if f.Type == "boolean" {
			bools[f.Name] = true
		}
	}
	if len(bools) > 0 {
		intsToBools(rows, bools)
	}
}

func orderBy(q *ListQuery) string {
	pk := q.Entity.ID()
	if q.Sort == nil || !q.Entity.HasField(q.Sort.Field) {
		return pk + " ASC"
	}
	dir := "ASC"
	if q.Sort.Desc {
		dir = "DESC"
	}
	if q.Sort.Field == pk {
		return pk + " " + dir
	}
	return fmt.Sprintf("%s %s, %s ASC", q.Sort.Field, dir, pk)
}

func coerceKey(entity *metadata.Entity, id string) (any, error) {
	switch entity.PrimaryKey.Type {
	case "int", "integer", "bigint", "":
		return strconv.ParseInt(id, 10, 64)
	case "uuid":
		if _, err := uuid.Parse(id); err != nil {
			return nil, err
		}
		return id, nil
	default:
		return id, nil
	}
}

func coerceParam(f *metadata.Field, v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch f.Type {
	case "int", "integer", "bigint":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	return v
}

func toAnySlice(v any) []any {
	switch vals := v.(type) {
	case []any:
		return vals
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}
