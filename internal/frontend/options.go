package frontend

import (
	"context"

	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

const defaultPageSize = 100

// Permissions are the four independent capability flags of an entity.
type Permissions struct {
	View   bool `json:"view"`
	Add    bool `json:"add"`
	Change bool `json:"change"`
	Delete bool `json:"delete"`
}

// DefaultPermissions permits viewing only.
func DefaultPermissions() Permissions {
	return Permissions{View: true}
}

// Validator is a per-field expression evaluated against submitted form data.
// The expression sees `value` (the coerced field value) and `record` (all
// cleaned values) and must return a bool.
type Validator struct {
	Field      string
	Expression string
	Message    string
}

// Options is the declarative descriptor of how one entity is exposed.
// The zero value exposes nothing beyond a viewable, login-protected listing.
type Options struct {
	DisplayFields  []string
	FormFields     []string
	ReadonlyFields []string
	SearchFields   []string
	SortFields     []string
	FilterFields   []string

	// Action names; each must have a handler on the same frontend.
	ToolbarActions []string
	RowActions     []string

	Permissions   *Permissions // nil means DefaultPermissions
	LoginRequired *bool        // nil means required
	PageSize      int          // 0 means 100

	DisplayAsCards bool
	Description    string

	// OwnerField narrows every lookup of a non-admin principal to rows whose
	// OwnerField equals the principal's ID.
	OwnerField string

	Validators []Validator
}

// ToolbarAction is a custom operation invoked without a target row.
type ToolbarAction func(ctx context.Context) error

// RowAction is a custom operation invoked against one resolved row.
type RowAction func(ctx context.Context, row store.Row) error

// Frontend is a per-entity configuration. Implementations are constructed by
// a Factory and may implement any of the optional capability interfaces below.
type Frontend interface {
	Options() Options
}

// Factory builds a fresh Frontend with no arguments.
type Factory func() Frontend

// Binder receives the entity a Frontend instance is bound to.
type Binder interface {
	Bind(entity *metadata.Entity)
}

// ToolbarActioner provides handlers for declared toolbar actions.
type ToolbarActioner interface {
	ToolbarHandlers() map[string]ToolbarAction
}

// RowActioner provides handlers for declared row actions.
type RowActioner interface {
	RowHandlers() map[string]RowAction
}

// Scoper narrows row access for a principal. The returned conditions apply to
// listings and to every lookup by identifier.
type Scoper interface {
	Scope(user *metadata.UserContext) []store.Condition
}

// ModelFrontend is an embeddable base implementing Binder.
type ModelFrontend struct {
	Entity *metadata.Entity
}

func (m *ModelFrontend) Bind(entity *metadata.Entity) {
	m.Entity = entity
}

// Static wraps plain Options as a Factory, for entities without actions.
func Static(opts Options) Factory {
	return func() Frontend { return staticFrontend{opts: opts} }
}

type staticFrontend struct {
	opts Options
}

func (s staticFrontend) Options() Options { return s.opts }

// Bool returns a pointer to b, for optional Options fields.
func Bool(b bool) *bool { return &b }
