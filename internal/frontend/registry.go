package frontend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"fast-frontend/internal/metadata"
)

// Sentinel registry keys for site-wide configurations.
const (
	KeyConfig   = "config"
	KeyAccounts = "accounts"
)

type registration struct {
	entity  *metadata.Entity
	factory Factory
	config  *EntityConfig
}

// Registry maps entities and the two sentinel keys to their configurations.
// It is populated during startup and read concurrently by request handlers.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*registration
	order    []string
	global   *GlobalConfig
	accounts *AccountsConfig
	sidebar  SidebarStructure
	catalog  *metadata.Catalog

	sealOnReady bool
	sealed      bool
	log         logrus.FieldLogger
}

// NewRegistry creates an empty registry. The catalog resolves qualified
// identifiers used by sidebar structures and autodiscovery.
func NewRegistry(catalog *metadata.Catalog, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		entries: make(map[string]*registration),
		catalog: catalog,
		log:     log,
	}
}

// Catalog returns the metadata catalog the registry resolves against.
func (r *Registry) Catalog() *metadata.Catalog {
	return r.catalog
}

// Register binds a configuration factory to an entity. The factory is invoked
// once; its resolved configuration is cached and shared across requests.
// Registering an entity twice replaces the earlier configuration.
func (r *Registry) Register(entity *metadata.Entity, factory Factory) error {
	if entity == nil {
		return fmt.Errorf("register: entity is required")
	}
	if factory == nil {
		return fmt.Errorf("register %s: factory is required", entity.Key())
	}
	f := factory()
	if f == nil {
		return fmt.Errorf("register %s: factory returned nil", entity.Key())
	}
	cfg, err := resolve(entity, f, r.log)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	key := entity.Key()
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	} else {
		r.log.WithField("entity", key).Debug("replacing registered configuration")
	}
	r.entries[key] = &registration{entity: entity, factory: factory, config: cfg}
	return nil
}

// RegisterConfig stores the global configuration under KeyConfig.
func (r *Registry) RegisterConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("register config: configuration is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	r.global = cfg
	return nil
}

// RegisterAccounts stores the accounts configuration under KeyAccounts.
// A nil cfg registers the default account routes.
func (r *Registry) RegisterAccounts(cfg *AccountsConfig) error {
	if cfg == nil {
		cfg = &AccountsConfig{Routes: DefaultAccountRoutes("/accounts")}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	r.accounts = cfg
	return nil
}

// Unregister removes an entity key or one of the sentinel keys.
func (r *Registry) Unregister(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}

	switch key {
	case KeyConfig:
		if r.global == nil {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		r.global = nil
		return nil
	case KeyAccounts:
		if r.accounts == nil {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		r.accounts = nil
		return nil
	}

	if _, ok := r.entries[key]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// ConfigFor returns the resolved configuration bound to entity.
func (r *Registry) ConfigFor(entity *metadata.Entity) (*EntityConfig, error) {
	if entity == nil {
		return nil, ErrNotConfigured
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[entity.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, entity.Key())
	}
	return reg.config, nil
}

// Lookup resolves a group/entity path pair to its entity and configuration.
func (r *Registry) Lookup(group, name string) (*metadata.Entity, *EntityConfig, error) {
	entity := r.catalog.Entity(group, name)
	if entity == nil {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrNotConfigured, group, name)
	}
	cfg, err := r.ConfigFor(entity)
	if err != nil {
		return nil, nil, err
	}
	return entity, cfg, nil
}

// IsRegistered reports whether the entity has a configuration.
func (r *Registry) IsRegistered(entity *metadata.Entity) bool {
	if entity == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[entity.Key()]
	return ok
}

// GlobalConfig returns the registered global configuration, or a permissive
// default (no login requirement, no authentication) when none is registered.
func (r *Registry) GlobalConfig() *GlobalConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.global == nil {
		return &GlobalConfig{}
	}
	return r.global
}

// AccountsConfig returns the registered accounts configuration, or nil.
func (r *Registry) AccountsConfig() *AccountsConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts
}

// Entities returns the registered entities in registration order.
func (r *Registry) Entities() []*metadata.Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*metadata.Entity, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key].entity)
	}
	return out
}

// Configs returns every resolved configuration keyed by entity key.
func (r *Registry) Configs() map[string]*EntityConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*EntityConfig, len(r.entries))
	for key, reg := range r.entries {
		out[key] = reg.config
	}
	return out
}

// SetSidebar installs an explicit sidebar structure. Nil restores the
// module-based fallback.
func (r *Registry) SetSidebar(s SidebarStructure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	r.sidebar = s
	return nil
}

// Ready marks the end of startup. Sealing registries reject further
// mutation; reloadable ones stay open.
func (r *Registry) Ready() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealOnReady {
		r.sealed = true
	}
	r.log.WithField("entities", len(r.entries)).Info("frontend registry ready")
}

// Constructor builds a registry implementation.
type Constructor func(catalog *metadata.Catalog, log logrus.FieldLogger) *Registry

var (
	implMu          sync.RWMutex
	implementations = map[string]Constructor{
		"default": func(c *metadata.Catalog, log logrus.FieldLogger) *Registry {
			r := NewRegistry(c, log)
			r.sealOnReady = true
			return r
		},
		"reloadable": NewRegistry,
	}
)

// RegisterImplementation makes a registry constructor selectable by name.
func RegisterImplementation(name string, ctor Constructor) {
	implMu.Lock()
	defer implMu.Unlock()
	implementations[name] = ctor
}

// Implementations lists the selectable registry implementation names.
func Implementations() []string {
	implMu.RLock()
	defer implMu.RUnlock()
	names := make([]string, 0, len(implementations))
	for name := range implementations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open instantiates the named registry implementation. An empty name selects
// "default".
func Open(name string, catalog *metadata.Catalog, log logrus.FieldLogger) (*Registry, error) {
	if name == "" {
		name = "default"
	}
	implMu.RLock()
	ctor, ok := implementations[name]
	implMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownImplementation, name)
	}
	return ctor(catalog, log), nil
}
