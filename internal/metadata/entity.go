package metadata

import "strings"

type Entity struct {
	Module            string     `json:"module" yaml:"-"`
	Name              string     `json:"name" yaml:"name"`
	VerboseName       string     `json:"verbose_name,omitempty" yaml:"verbose_name"`
	VerboseNamePlural string     `json:"verbose_name_plural,omitempty" yaml:"verbose_name_plural"`
	Description       string     `json:"description,omitempty" yaml:"description"` // table comment
	Table             string     `json:"table" yaml:"table"`
	PrimaryKey        PrimaryKey `json:"primary_key" yaml:"primary_key"`
	Fields            []Field    `json:"fields" yaml:"fields"`
}

type PrimaryKey struct {
	Field     string `json:"field" yaml:"field"`
	Type      string `json:"type" yaml:"type"` // int, bigint, uuid, string
	Generated bool   `json:"generated" yaml:"generated"`
}

// Key returns the qualified, lower-cased identifier "module.name".
func (e *Entity) Key() string {
	return strings.ToLower(e.Module + "." + e.Name)
}

// ID returns the identifier field name, defaulting to "id".
func (e *Entity) ID() string {
	if e.PrimaryKey.Field == "" {
		return "id"
	}
	return e.PrimaryKey.Field
}

// Label returns the plural display name used in navigation and list titles.
func (e *Entity) Label() string {
	if e.VerboseNamePlural != "" {
		return e.VerboseNamePlural
	}
	if e.VerboseName != "" {
		return e.VerboseName
	}
	return e.Name
}

// GetField returns a pointer to the field with the given name, or nil.
func (e *Entity) GetField(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the entity has a field with the given name.
func (e *Entity) HasField(name string) bool {
	return e.GetField(name) != nil
}

// FieldNames returns all field names in declaration order.
func (e *Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// DataFieldNames returns all field names except the identifier.
func (e *Entity) DataFieldNames() []string {
	id := e.ID()
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name != id {
			names = append(names, f.Name)
		}
	}
	return names
}
