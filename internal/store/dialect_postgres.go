package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresDialect speaks PostgreSQL through the pgx stdlib driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder { return &params{prefix: "$"} }

func (d *PostgresDialect) ColumnType(fieldType string, precision int) string {
	switch fieldType {
	case "int", "integer":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "float":
		return "DOUBLE PRECISION"
	case "decimal":
		if precision > 0 {
			return fmt.Sprintf("NUMERIC(18,%d)", precision)
		}
		return "NUMERIC"
	case "boolean":
		return "BOOLEAN"
	case "uuid":
		return "UUID"
	case "date":
		return "DATE"
	case "timestamp":
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

func (d *PostgresDialect) IdentityColumn(column string) string {
	return column + " BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
}

func (d *PostgresDialect) UUIDDefault() string { return "DEFAULT gen_random_uuid()" }

func (d *PostgresDialect) ContainsExpr(column string, pb ParamBuilder, text string) string {
	return fmt.Sprintf("CAST(%s AS TEXT) ILIKE %s", column, pb.Add(likePattern(text)))
}

// InExpr compares as text so one array parameter serves every column type.
func (d *PostgresDialect) InExpr(column string, pb ParamBuilder, values []any) string {
	texts := make([]string, len(values))
	for i, v := range values {
		texts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("CAST(%s AS TEXT) = ANY(%s)", column, pb.Add(texts))
}

func (d *PostgresDialect) Columns(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1`, table)
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

func (d *PostgresDialect) EncodeValue(_ string, v any) any { return v }

func (d *PostgresDialect) MapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}

func (d *PostgresDialect) IntBooleans() bool { return false }

var _ Dialect = (*PostgresDialect)(nil)
