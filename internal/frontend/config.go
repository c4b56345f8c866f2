package frontend

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"

	"fast-frontend/internal/metadata"
	"fast-frontend/internal/store"
)

// Reserved action names handled by the form flow rather than by dispatch.
const (
	ActionAdd    = "table_add"
	ActionChange = "table_change"
	ActionDelete = "table_delete"
)

// IsReserved reports whether name is one of the form-flow actions.
func IsReserved(name string) bool {
	return name == ActionAdd || name == ActionChange || name == ActionDelete
}

// ActionStatus classifies an action name against a resolved configuration.
type ActionStatus int

const (
	ActionUndeclared ActionStatus = iota
	ActionNotCallable
	ActionCallable
)

func (s ActionStatus) String() string {
	switch s {
	case ActionNotCallable:
		return "not_callable"
	case ActionCallable:
		return "callable"
	default:
		return "undeclared"
	}
}

// CompiledValidator is a Validator whose expression has been compiled.
type CompiledValidator struct {
	Field   string
	Message string
	program *vm.Program
}

// Check evaluates the validator. A non-bool result is an error.
func (v *CompiledValidator) Check(value any, record map[string]any) (bool, error) {
	out, err := expr.Run(v.program, map[string]any{"value": value, "record": record})
	if err != nil {
		return false, fmt.Errorf("evaluate validator on %s: %w", v.Field, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("validator on %s did not return bool", v.Field)
	}
	return ok, nil
}

// EntityConfig is the resolved, immutable capability set of one entity.
// It is built once at registration and shared by all requests.
type EntityConfig struct {
	Entity *metadata.Entity

	DisplayFields  []string
	FormFields     []string
	ReadonlyFields []string
	SearchFields   []string
	SortFields     []string
	FilterFields   []string
	ToolbarActions []string
	RowActions     []string

	Permissions    Permissions
	LoginRequired  bool
	PageSize       int
	DisplayAsCards bool
	Description    string

	toolbar    map[string]ToolbarAction
	row        map[string]RowAction
	scoper     Scoper
	ownerField string
	validators map[string][]*CompiledValidator
}

// ToolbarAction looks up a toolbar handler by untrusted name. Only names
// declared in ToolbarActions can ever resolve to a handler.
func (c *EntityConfig) ToolbarAction(name string) (ToolbarAction, ActionStatus) {
	if name == "" || !contains(c.ToolbarActions, name) {
		return nil, ActionUndeclared
	}
	h, ok := c.toolbar[name]
	if !ok {
		return nil, ActionNotCallable
	}
	return h, ActionCallable
}

// RowAction looks up a row handler by untrusted name.
func (c *EntityConfig) RowAction(name string) (RowAction, ActionStatus) {
	if name == "" || !contains(c.RowActions, name) {
		return nil, ActionUndeclared
	}
	h, ok := c.row[name]
	if !ok {
		return nil, ActionNotCallable
	}
	return h, ActionCallable
}

// Scope returns the conditions narrowing row access for user.
func (c *EntityConfig) Scope(user *metadata.UserContext) []store.Condition {
	var conds []store.Condition
	if c.ownerField != "" && !user.IsAdmin() {
		if !user.Authenticated() {
			conds = append(conds, store.MatchNone())
		} else {
			conds = append(conds, store.Condition{Field: c.ownerField, Operator: "eq", Value: user.ID})
		}
	}
	if c.scoper != nil {
		conds = append(conds, c.scoper.Scope(user)...)
	}
	return conds
}

// OwnerField is the field stamped with the principal's ID on create, or "".
func (c *EntityConfig) OwnerField() string {
	return c.ownerField
}

// Validators returns the compiled validators for a form field.
func (c *EntityConfig) Validators(field string) []*CompiledValidator {
	return c.validators[field]
}

// resolve builds and validates the effective configuration of f bound to entity.
func resolve(entity *metadata.Entity, f Frontend, log logrus.FieldLogger) (*EntityConfig, error) {
	if b, ok := f.(Binder); ok {
		b.Bind(entity)
	}
	opts := f.Options()
	if err := validateOptions(entity, &opts); err != nil {
		return nil, fmt.Errorf("invalid frontend for %s: %w", entity.Key(), err)
	}

	cfg := &EntityConfig{
		Entity:         entity,
		DisplayFields:  effectiveFields(opts.DisplayFields),
		FormFields:     effectiveFields(opts.FormFields),
		ReadonlyFields: effectiveFields(opts.ReadonlyFields),
		SearchFields:   effectiveFields(opts.SearchFields),
		SortFields:     effectiveFields(opts.SortFields),
		FilterFields:   effectiveFields(opts.FilterFields),
		ToolbarActions: effectiveFields(opts.ToolbarActions),
		RowActions:     effectiveFields(opts.RowActions),
		Permissions:    DefaultPermissions(),
		LoginRequired:  true,
		PageSize:       defaultPageSize,
		DisplayAsCards: opts.DisplayAsCards,
		Description:    opts.Description,
		toolbar:        make(map[string]ToolbarAction),
		row:            make(map[string]RowAction),
		ownerField:     opts.OwnerField,
		validators:     make(map[string][]*CompiledValidator),
	}
	if opts.Permissions != nil {
		cfg.Permissions = *opts.Permissions
	}
	if opts.LoginRequired != nil {
		cfg.LoginRequired = *opts.LoginRequired
	}
	if opts.PageSize > 0 {
		cfg.PageSize = opts.PageSize
	}
	if len(cfg.FormFields) == 0 && (cfg.Permissions.Add || cfg.Permissions.Change) {
		log.WithField("entity", entity.Key()).Warn("form_fields is empty; add/change forms expose no fields")
	}

	if ta, ok := f.(ToolbarActioner); ok {
		handlers := ta.ToolbarHandlers()
		for _, name := range cfg.ToolbarActions {
			if h := handlers[name]; h != nil {
				cfg.toolbar[name] = h
			}
		}
	}
	if ra, ok := f.(RowActioner); ok {
		handlers := ra.RowHandlers()
		for _, name := range cfg.RowActions {
			if h := handlers[name]; h != nil {
				cfg.row[name] = h
			}
		}
	}
	for _, name := range cfg.ToolbarActions {
		if _, ok := cfg.toolbar[name]; !ok {
			log.WithFields(logrus.Fields{"entity": entity.Key(), "action": name}).Warn("toolbar action declared without a handler")
		}
	}
	for _, name := range cfg.RowActions {
		if _, ok := cfg.row[name]; !ok {
			log.WithFields(logrus.Fields{"entity": entity.Key(), "action": name}).Warn("row action declared without a handler")
		}
	}

	if s, ok := f.(Scoper); ok {
		cfg.scoper = s
	}

	for _, v := range opts.Validators {
		program, err := expr.Compile(v.Expression, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile validator on %s.%s: %w", entity.Key(), v.Field, err)
		}
		msg := v.Message
		if msg == "" {
			msg = "Invalid value"
		}
		cfg.validators[v.Field] = append(cfg.validators[v.Field], &CompiledValidator{Field: v.Field, Message: msg, program: program})
	}

	return cfg, nil
}

// effectiveFields maps declared names to effective names. It is total: an
// empty declaration yields an empty set, never "every field".
func effectiveFields(declared []string) []string {
	out := make([]string, 0, len(declared))
	seen := make(map[string]bool, len(declared))
	for _, name := range declared {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func validateOptions(entity *metadata.Entity, o *Options) error {
	fieldExists := validation.By(func(value any) error {
		name, _ := value.(string)
		if !entity.HasField(name) {
			return fmt.Errorf("unknown field %q", name)
		}
		return nil
	})
	actionName := validation.By(func(value any) error {
		name, _ := value.(string)
		if IsReserved(name) {
			return fmt.Errorf("%q is a reserved action name", name)
		}
		return nil
	})
	validatorRule := validation.By(func(value any) error {
		v, _ := value.(Validator)
		if !contains(o.FormFields, v.Field) {
			return fmt.Errorf("validator field %q is not a form field", v.Field)
		}
		if v.Expression == "" {
			return fmt.Errorf("validator on %q has no expression", v.Field)
		}
		return nil
	})

	err := validation.ValidateStruct(o,
		validation.Field(&o.DisplayFields, validation.Each(fieldExists)),
		validation.Field(&o.FormFields, validation.Each(fieldExists, validation.NotIn(entity.ID()).Error("the identifier is not editable"))),
		validation.Field(&o.ReadonlyFields, validation.Each(validation.In(toAny(o.FormFields)...).Error("must be one of the form fields"))),
		validation.Field(&o.SearchFields, validation.Each(fieldExists)),
		validation.Field(&o.SortFields, validation.Each(fieldExists)),
		validation.Field(&o.FilterFields, validation.Each(fieldExists)),
		validation.Field(&o.ToolbarActions, validation.Each(validation.Required, actionName)),
		validation.Field(&o.RowActions, validation.Each(validation.Required, actionName)),
		validation.Field(&o.PageSize, validation.Min(0)),
		validation.Field(&o.OwnerField, validation.When(o.OwnerField != "", fieldExists)),
		validation.Field(&o.Validators, validation.Each(validatorRule)),
	)
	if err != nil {
		return err
	}

	for _, name := range o.ToolbarActions {
		if contains(o.RowActions, name) {
			return fmt.Errorf("action %q is declared as both toolbar and row action", name)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toAny(list []string) []any {
	out := make([]any, len(list))
	for i, v := range list {
		out[i] = v
	}
	return out
}

// GlobalConfig is the site-wide configuration registered under KeyConfig.
type GlobalConfig struct {
	LoginRequired bool
	Brand         string
	Logo          string
	CSS           string
	Description   string

	// URL is the path the frontend routes are mounted under; empty means "/".
	URL string
	// LoginURL is the route unauthenticated principals are sent to.
	LoginURL string
	// Backend resolves request principals; nil when no authentication exists.
	Backend any
}

// AuthenticationAvailable reports whether a backend and a login route exist.
func (g *GlobalConfig) AuthenticationAvailable() bool {
	return g != nil && g.Backend != nil && g.LoginURL != ""
}

// AuthenticationEnabled is true only when login is required and the
// authentication machinery is actually present.
func (g *GlobalConfig) AuthenticationEnabled() bool {
	return g != nil && g.LoginRequired && g.AuthenticationAvailable()
}

// Root returns the mount path with a single trailing slash.
func (g *GlobalConfig) Root() string {
	if g == nil {
		return "/"
	}
	return "/" + strings.Trim(g.URL, "/") + "/"
}

// EntityPath is the list page of e under the mount path.
func (g *GlobalConfig) EntityPath(e *metadata.Entity) string {
	return strings.TrimSuffix(g.Root(), "/") + "/" + strings.ToLower(e.Module) + "/" + strings.ToLower(e.Name) + "/"
}

// AccountRoute is a fixed navigation entry of the Account group.
type AccountRoute struct {
	Name  string
	Label string
	Route string // route-name hint
	Path  string
}

// AccountsConfig signals that login/signup/password routes exist.
type AccountsConfig struct {
	Routes []AccountRoute
}

// DefaultAccountRoutes are the entries shown in the Account group.
func DefaultAccountRoutes(prefix string) []AccountRoute {
	return []AccountRoute{
		{Name: "login", Label: "Login", Route: "account_login", Path: prefix + "/login/"},
		{Name: "signup", Label: "Sign Up", Route: "account_signup", Path: prefix + "/signup/"},
		{Name: "password_change", Label: "Change Password", Route: "account_password_change", Path: prefix + "/password_change/"},
	}
}
