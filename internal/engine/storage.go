package engine

import (
	"context"

	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

// Storage is the persistence collaborator the engine drives. Both the SQL
// store and the in-memory store satisfy it.
type Storage interface {
	Query(ctx context.Context, q *store.ListQuery) (*store.ResultSet, error)
	Count(ctx context.Context, q *store.ListQuery) (int, error)
	// Get returns store.ErrNotFound when id does not resolve within scope.
	Get(ctx context.Context, entity *metadata.Entity, scope []store.Condition, id string) (store.Row, error)
	// Save inserts when id is empty and updates otherwise.
	Save(ctx context.Context, entity *metadata.Entity, id string, values store.Row) (store.Row, error)
	Delete(ctx context.Context, entity *metadata.Entity, id string) error
	Distinct(ctx context.Context, q *store.ListQuery, field string) ([]any, error)
}
