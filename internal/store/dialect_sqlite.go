package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteDialect speaks SQLite through modernc.org/sqlite. Booleans are kept
// as 0/1 and dates as ISO-8601 text so both compare and sort correctly.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder { return &params{prefix: "?"} }

func (d *SQLiteDialect) ColumnType(fieldType string, _ int) string {
	switch fieldType {
	case "int", "integer", "bigint", "boolean":
		return "INTEGER"
	case "float", "decimal":
		return "REAL"
	}
	return "TEXT"
}

func (d *SQLiteDialect) IdentityColumn(column string) string {
	return column + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) UUIDDefault() string { return "" }

func (d *SQLiteDialect) ContainsExpr(column string, pb ParamBuilder, text string) string {
	ph := pb.Add(likePattern(strings.ToLower(text)))
	return fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE %s ESCAPE '\'`, column, ph)
}

func (d *SQLiteDialect) InExpr(column string, pb ParamBuilder, values []any) string {
	if len(values) == 0 {
		return "1=0"
	}
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = pb.Add(v)
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(phs, ", "))
}

func (d *SQLiteDialect) Columns(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?1)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, err
		}
		cols[name] = typ
	}
	return cols, rows.Err()
}

func (d *SQLiteDialect) EncodeValue(fieldType string, v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		if fieldType == "date" {
			return val.Format(time.DateOnly)
		}
		return val.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func (d *SQLiteDialect) MapError(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

func (d *SQLiteDialect) IntBooleans() bool { return true }

var _ Dialect = (*SQLiteDialect)(nil)
