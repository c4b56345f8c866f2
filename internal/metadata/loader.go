package metadata

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Modules []*Module `yaml:"modules"`
}

// LoadFile reads a YAML models file and populates the catalog.
func LoadFile(path string, c *Catalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read models file: %w", err)
	}
	return Load(raw, c)
}

// Load parses YAML model definitions into the catalog. Invalid entities are
// skipped with a warning; duplicate modules or entities abort the load.
func Load(raw []byte, c *Catalog) error {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse models: %w", err)
	}

	entities := 0
	for _, m := range file.Modules {
		valid := m.Entities[:0]
		for _, e := range m.Entities {
			if err := validateEntity(e); err != nil {
				logrus.WithError(err).WithField("entity", m.Name+"."+e.Name).Warn("skipping invalid entity")
				continue
			}
			valid = append(valid, e)
		}
		m.Entities = valid
		if err := c.AddModule(m); err != nil {
			return fmt.Errorf("load module %s: %w", m.Name, err)
		}
		entities += len(valid)
	}

	logrus.Infof("Loaded %d modules, %d entities into catalog", len(file.Modules), entities)
	return nil
}

func validateEntity(e *Entity) error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(e.Fields) == 0 {
		return fmt.Errorf("at least one field is required")
	}
	if e.PrimaryKey.Field == "" {
		e.PrimaryKey = PrimaryKey{Field: "id", Type: "int", Generated: true}
	}
	if !e.HasField(e.PrimaryKey.Field) {
		e.Fields = append([]Field{{Name: e.PrimaryKey.Field, Type: e.PrimaryKey.Type}}, e.Fields...)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("field name is required")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
