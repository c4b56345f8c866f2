package metadata

import (
	"fmt"
	"strings"
	"sync"
)

// Module is an installed application owning a set of entities.
type Module struct {
	Name     string    `json:"name" yaml:"name"`
	Label    string    `json:"label,omitempty" yaml:"label"`
	Entities []*Entity `json:"entities" yaml:"entities"`
}

// VerboseName returns the module label, falling back to its name.
func (m *Module) VerboseName() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Name
}

// Catalog is the introspectable data-model layer: every installed module and
// the entities it declares, in declaration order.
type Catalog struct {
	mu      sync.RWMutex
	modules []*Module
	byKey   map[string]*Entity
}

func NewCatalog() *Catalog {
	return &Catalog{byKey: make(map[string]*Entity)}
}

// AddModule registers a module and its entities. Entity keys must be unique.
func (c *Catalog) AddModule(m *Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Name == "" {
		return fmt.Errorf("module name is required")
	}
	for _, existing := range c.modules {
		if strings.EqualFold(existing.Name, m.Name) {
			return fmt.Errorf("module %s already registered", m.Name)
		}
	}
	for _, e := range m.Entities {
		e.Module = m.Name
		if e.Table == "" {
			e.Table = strings.ToLower(m.Name + "_" + e.Name)
		}
		if _, dup := c.byKey[e.Key()]; dup {
			return fmt.Errorf("entity %s already registered", e.Key())
		}
		c.byKey[e.Key()] = e
	}
	c.modules = append(c.modules, m)
	return nil
}

// Modules returns all modules in declaration order.
func (c *Catalog) Modules() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Module, len(c.modules))
	copy(out, c.modules)
	return out
}

// Module returns the module with the given name, or nil.
func (c *Catalog) Module(name string) *Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.modules {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// Entity returns the entity declared by module under name, or nil.
func (c *Catalog) Entity(module, name string) *Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byKey[strings.ToLower(module+"."+name)]
}

// Resolve turns a qualified identifier of the form "module.EntityName" into
// an entity. Malformed or unknown identifiers resolve to nil.
func (c *Catalog) Resolve(identifier string) *Entity {
	module, name, ok := strings.Cut(identifier, ".")
	if !ok || module == "" || name == "" {
		return nil
	}
	return c.Entity(module, name)
}

// AllEntities returns every entity across modules in declaration order.
func (c *Catalog) AllEntities() []*Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Entity
	for _, m := range c.modules {
		out = append(out, m.Entities...)
	}
	return out
}
