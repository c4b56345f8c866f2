package metadata

import "strings"

// Choice is one entry of an enumerated field's choice set.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

type Field struct {
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type" yaml:"type"` // string, text, int, bigint, decimal, boolean, date, timestamp, uuid
	Label     string   `json:"label,omitempty" yaml:"label"`
	Required  bool     `json:"required,omitempty" yaml:"required"`
	Nullable  bool     `json:"nullable,omitempty" yaml:"nullable"`
	Unique    bool     `json:"unique,omitempty" yaml:"unique"`
	MaxLength int      `json:"max_length,omitempty" yaml:"max_length"`
	Precision int      `json:"precision,omitempty" yaml:"precision"`
	Default   any      `json:"default,omitempty" yaml:"default"`
	Choices   []Choice `json:"choices,omitempty" yaml:"choices"`
}

// VerboseName returns the human readable label, derived from the name when unset.
func (f Field) VerboseName() string {
	if f.Label != "" {
		return f.Label
	}
	return humanize(f.Name)
}

// IsEnum returns true if the field declares an enumerable choice set.
func (f Field) IsEnum() bool {
	return len(f.Choices) > 0
}

// HasChoice reports whether v is one of the declared choice values.
func (f Field) HasChoice(v string) bool {
	for _, c := range f.Choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

// IsText returns true for field types that hold free text.
func (f Field) IsText() bool {
	switch f.Type {
	case "", "string", "text":
		return true
	}
	return false
}

// PostgresType returns the Postgres DDL type for this field.
func (f Field) PostgresType() string {
	switch f.Type {
	case "string", "text":
		return "TEXT"
	case "int":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "decimal":
		return "NUMERIC"
	case "boolean":
		return "BOOLEAN"
	case "uuid":
		return "UUID"
	case "timestamp":
		return "TIMESTAMPTZ"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}

func humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
