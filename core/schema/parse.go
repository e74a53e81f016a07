package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses an entity declaration from a YAML file.
func ParseFile(path string) (Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entity{}, fmt.Errorf("read file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses an entity declaration from YAML bytes.
func Parse(data []byte) (Entity, error) {
	var e Entity
	if err := yaml.Unmarshal(data, &e); err != nil {
		return Entity{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := Validate(e); err != nil {
		return Entity{}, fmt.Errorf("validate entity %q: %w", e.Name, err)
	}

	return e, nil
}

// ParseDir parses all entity declarations from a directory, including
// subdirectories. Files are visited in directory order, so declaration
// files registered from a directory keep a stable ordering.
func ParseDir(dir string) ([]Entity, error) {
	var entities []Entity

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			entities = append(entities, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		e, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		entities = append(entities, e)
	}

	return entities, nil
}
