package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect covers the SQL that differs between the supported databases.
type Dialect interface {
	// DriverName is the database/sql driver to open.
	DriverName() string
	NewParamBuilder() ParamBuilder

	// ColumnType maps a catalog field type to a column type.
	ColumnType(fieldType string, precision int) string
	// IdentityColumn declares a database-generated integer primary key.
	IdentityColumn(column string) string
	// UUIDDefault is the DEFAULT clause generating uuid keys, or "" when
	// keys are generated by the store.
	UUIDDefault() string

	// ContainsExpr matches text as a case-insensitive substring of column,
	// whatever the column type.
	ContainsExpr(column string, pb ParamBuilder, text string) string
	InExpr(column string, pb ParamBuilder, values []any) string

	// Columns returns the column types of table; empty when it does not exist.
	Columns(ctx context.Context, db *sql.DB, table string) (map[string]string, error)

	// EncodeValue converts a coerced value into a driver parameter.
	EncodeValue(fieldType string, v any) any
	// MapError translates driver errors into store sentinels.
	MapError(err error) error
	// IntBooleans reports whether boolean columns read back as integers.
	IntBooleans() bool
}

// ParamBuilder collects query arguments and hands out their placeholders.
type ParamBuilder interface {
	Add(v any) string
	Params() []any
}

// NewDialect selects the dialect for a driver name; anything but "sqlite"
// is postgres.
func NewDialect(driver string) Dialect {
	if driver == "sqlite" {
		return &SQLiteDialect{}
	}
	return &PostgresDialect{}
}

type params struct {
	values []any
	prefix string
}

func (p *params) Add(v any) string {
	p.values = append(p.values, v)
	return fmt.Sprintf("%s%d", p.prefix, len(p.values))
}

func (p *params) Params() []any { return p.values }

func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}
