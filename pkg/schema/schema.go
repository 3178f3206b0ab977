// Package schema holds the versioned feature layouts the classifier artifacts
// were fitted against, plus the input bounds and categorical encodings shared
// by every version.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindContinuous Kind = "continuous"
	KindIndicator  Kind = "indicator"
)

type Column struct {
	Name string `yaml:"name" json:"name"`
	Kind Kind   `yaml:"kind" json:"kind"`
}

// Schema is one ordered column layout. Column order is part of the contract
// with the fitted scaler and classifier.
type Schema struct {
	Version     string            `yaml:"version" json:"version"`
	Description string            `yaml:"description" json:"description"`
	Columns     []Column          `yaml:"columns" json:"columns"`
	Aliases     map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

func (s Schema) Width() int {
	return len(s.Columns)
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

func (s Schema) Index(name string) (int, bool) {
	for i, col := range s.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Resolve maps an encoder column name onto this schema's naming.
func (s Schema) Resolve(name string) string {
	if target, ok := s.Aliases[name]; ok {
		return target
	}
	return name
}

func (s Schema) Validate() error {
	if s.Version == "" {
		return errors.New("schema version required")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema %s has no columns", s.Version)
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for i, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("schema %s column %d has empty name", s.Version, i)
		}
		if col.Kind != KindContinuous && col.Kind != KindIndicator {
			return fmt.Errorf("schema %s column %s has unknown kind %q", s.Version, col.Name, col.Kind)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("schema %s column %s declared twice", s.Version, col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	for from, to := range s.Aliases {
		if _, ok := seen[to]; !ok {
			return fmt.Errorf("schema %s alias %s targets unknown column %s", s.Version, from, to)
		}
		if _, ok := seen[from]; ok {
			return fmt.Errorf("schema %s alias %s shadows a declared column", s.Version, from)
		}
	}
	return nil
}

type registryFile struct {
	Schemas []Schema `yaml:"schemas"`
}

// Registry indexes schemas by version.
type Registry struct {
	schemas map[string]Schema
}

//go:embed schemas.yaml
var builtinSchemas []byte

// Default returns the embedded schema versions.
func Default() Registry {
	reg, err := Parse(builtinSchemas)
	if err != nil {
		panic(fmt.Sprintf("embedded schemas invalid: %v", err))
	}
	return reg
}

// Load reads a registry from a YAML file. An empty path yields Default.
func Load(path string) (Registry, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Registry{}, err
	}
	return Parse(content)
}

func Parse(content []byte) (Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return Registry{}, err
	}
	if len(file.Schemas) == 0 {
		return Registry{}, errors.New("no feature schemas configured")
	}
	reg := Registry{schemas: make(map[string]Schema, len(file.Schemas))}
	for _, s := range file.Schemas {
		if err := s.Validate(); err != nil {
			return Registry{}, err
		}
		if _, dup := reg.schemas[s.Version]; dup {
			return Registry{}, fmt.Errorf("schema version %s declared twice", s.Version)
		}
		reg.schemas[s.Version] = s
	}
	return reg, nil
}

func (r Registry) Get(version string) (Schema, error) {
	s, ok := r.schemas[version]
	if !ok {
		return Schema{}, fmt.Errorf("unknown schema version %q", version)
	}
	return s, nil
}

func (r Registry) Versions() []string {
	versions := make([]string, 0, len(r.schemas))
	for v := range r.schemas {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}
