package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"fast-frontend/internal/config"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Store persists entity rows and accounts in a SQL database.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
	log     logrus.FieldLogger
}

// New opens and pings the configured database. SQLite gets a single
// connection, which also keeps ":memory:" databases alive across queries.
func New(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dialect := NewDialect(cfg.Driver)
	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	switch {
	case cfg.IsSQLite():
		db.SetMaxOpenConns(1)
		if cfg.Name != ":memory:" {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				db.Close()
				return nil, fmt.Errorf("enable WAL: %w", err)
			}
		}
	case cfg.PoolSize > 0:
		db.SetMaxOpenConns(cfg.PoolSize)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.WithFields(logrus.Fields{"driver": dialect.DriverName(), "database": cfg.Name}).Info("database connected")
	return &Store{DB: db, Dialect: dialect, log: log}, nil
}

func (s *Store) Close() {
	s.DB.Close()
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]string, []Row, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = readValue(values[i])
		}
		out = append(out, row)
	}
	return columns, out, rows.Err()
}

// queryOne returns ErrNotFound when the query yields no row.
func (s *Store) queryOne(ctx context.Context, query string, args ...any) (Row, error) {
	_, rows, err := s.queryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// readValue turns driver byte slices into strings, or times when they
// parse as one.
func readValue(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return s
}

// intsToBools rewrites 0/1 values of the named columns as booleans.
func intsToBools(rows []Row, columns map[string]bool) {
	for _, row := range rows {
		for k, v := range row {
			if !columns[k] {
				continue
			}
			switch n := v.(type) {
			case int64:
				row[k] = n != 0
			case int:
				row[k] = n != 0
			case float64:
				row[k] = n != 0
			}
		}
	}
}
