package store

import (
	"strings"

	"fast-frontend/internal/metadata"
)

// Row is one record keyed by column name.
type Row = map[string]any

// Condition narrows a lookup to the rows a principal may see.
type Condition struct {
	Field    string
	Operator string // eq, neq, in, none
	Value    any
}

// MatchNone returns a condition no row satisfies.
func MatchNone() Condition {
	return Condition{Operator: "none"}
}

// SearchClause restricts rows to those where any field contains Text,
// compared case-insensitively.
type SearchClause struct {
	Fields []string
	Text   string
}

// FilterClause restricts rows to those whose Field contains any of Values.
// Boolean fields match by truth value instead. Clauses combine with AND.
type FilterClause struct {
	Field  string
	Values []string
}

// ParseBool reads a boolean filter value as offered by Distinct.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "t", "yes", "on":
		return true, true
	case "false", "0", "f", "no", "off":
		return false, true
	}
	return false, false
}

type OrderClause struct {
	Field string
	Desc  bool
}

// ListQuery is the lazily-built listing request handed to a storage backend.
type ListQuery struct {
	Entity  *metadata.Entity
	Columns []string // empty selects every column
	Scope   []Condition
	Search  *SearchClause
	Filters []FilterClause
	Sort    *OrderClause
	Limit   int // 0 means unbounded
	Offset  int
}

// Clone returns a copy safe to modify without affecting q.
func (q *ListQuery) Clone() *ListQuery {
	c := *q
	c.Columns = append([]string(nil), q.Columns...)
	c.Scope = append([]Condition(nil), q.Scope...)
	c.Filters = append([]FilterClause(nil), q.Filters...)
	return &c
}

// ResultSet carries rows plus their column order.
type ResultSet struct {
	Columns []string
	Rows    []Row
}
