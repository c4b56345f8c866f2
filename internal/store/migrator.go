package store

import (
	"context"
	"fmt"
	"strings"

	"fast-frontend/internal/metadata"
)

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// MigrateAll migrates every entity of the catalog.
func (m *Migrator) MigrateAll(ctx context.Context, catalog *metadata.Catalog) error {
	for _, e := range catalog.AllEntities() {
		if err := m.Migrate(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Migrate creates the entity's table, or adds the columns it lacks.
func (m *Migrator) Migrate(ctx context.Context, entity *metadata.Entity) error {
	existing, err := m.store.Dialect.Columns(ctx, m.store.DB, entity.Table)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", entity.Table, err)
	}
	if len(existing) == 0 {
		return m.createTable(ctx, entity)
	}
	return m.addColumns(ctx, entity, existing)
}

func (m *Migrator) createTable(ctx context.Context, entity *metadata.Entity) error {
	var cols []string
	for _, f := range entity.Fields {
		cols = append(cols, m.buildColumnDef(entity, &f))
	}

	sql := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", entity.Table, strings.Join(cols, ",\n  "))
	if _, err := m.store.DB.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("create table %s: %w", entity.Table, err)
	}

	if err := m.createIndexes(ctx, entity); err != nil {
		return fmt.Errorf("create indexes for %s: %w", entity.Table, err)
	}
	m.store.log.WithField("table", entity.Table).Info("created table")
	return nil
}

func (m *Migrator) addColumns(ctx context.Context, entity *metadata.Entity, existing map[string]string) error {
	for _, f := range entity.Fields {
		if _, ok := existing[f.Name]; ok {
			continue
		}
		// added columns stay nullable so existing rows remain valid
		colType := m.store.Dialect.ColumnType(f.Type, f.Precision)
		sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", entity.Table, f.Name, colType)
		if _, err := m.store.DB.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("add column %s.%s: %w", entity.Table, f.Name, err)
		}
	}

	if err := m.createIndexes(ctx, entity); err != nil {
		return fmt.Errorf("create indexes for %s: %w", entity.Table, err)
	}
	return nil
}

func (m *Migrator) buildColumnDef(entity *metadata.Entity, f *metadata.Field) string {
	d := m.store.Dialect
	pk := entity.PrimaryKey
	if f.Name == pk.Field {
		switch {
		case pk.Generated && pk.Type != "uuid" && pk.Type != "string":
			return d.IdentityColumn(f.Name)
		case pk.Generated && pk.Type == "uuid" && d.UUIDDefault() != "":
			return f.Name + " " + d.ColumnType("uuid", 0) + " PRIMARY KEY " + d.UUIDDefault()
		default:
			return f.Name + " " + d.ColumnType(pk.Type, 0) + " PRIMARY KEY"
		}
	}

	col := f.Name + " " + d.ColumnType(f.Type, f.Precision)
	if f.Required && !f.Nullable {
		col += " NOT NULL"
	}

	if f.Default != nil {
		switch v := f.Default.(type) {
		case string:
			col += fmt.Sprintf(" DEFAULT '%s'", strings.ReplaceAll(v, "'", "''"))
		case bool:
			col += fmt.Sprintf(" DEFAULT %v", d.EncodeValue(f.Type, v))
		case int, int64, float64:
			col += fmt.Sprintf(" DEFAULT %v", v)
		default:
			col += fmt.Sprintf(" DEFAULT '%v'", v)
		}
	}

	return col
}

func (m *Migrator) createIndexes(ctx context.Context, entity *metadata.Entity) error {
	for _, f := range entity.Fields {
		if !f.Unique || f.Name == entity.ID() {
			continue
		}
		sql := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
			entity.Table, f.Name, entity.Table, f.Name)
		if _, err := m.store.DB.ExecContext(ctx, sql); err != nil {
			return fmt.Errorf("create unique index on %s.%s: %w", entity.Table, f.Name, err)
		}
	}
	return nil
}
