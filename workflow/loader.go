package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Definition is a named workflow stored on disk. The graph fields are
// inline, so a definition file is a regular submission body plus a name.
type Definition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Graph       `yaml:",inline"`
}

// definitionExts lists recognized definition file extensions in lookup
// order.
var definitionExts = []string{".yaml", ".yml", ".json"}

// LoadFile reads a definition from a YAML or JSON file. A definition
// without a name is named after its file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var d Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &d)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &d)
	default:
		return nil, fmt.Errorf("workflow: unsupported definition format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: parsing %s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &d, nil
}

// FileLoader finds definitions by name in a set of directories.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader searching dirs in order.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load returns the definition stored as <name>.yaml, <name>.yml or
// <name>.json in the first directory that has one.
func (l *FileLoader) Load(name string) (*Definition, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("workflow: invalid definition name %q", name)
	}
	for _, dir := range l.dirs {
		for _, ext := range definitionExts {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			d, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			d.Name = name
			return d, nil
		}
	}
	return nil, fmt.Errorf("workflow: definition %q: %w", name, os.ErrNotExist)
}

// List returns the definitions found in all directories, sorted by name.
// When two directories hold the same name the earlier directory wins.
// Unreadable files are skipped.
func (l *FileLoader) List() []Definition {
	seen := make(map[string]bool)
	var out []Definition
	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !slices.Contains(definitionExts, strings.ToLower(filepath.Ext(e.Name()))) {
				continue
			}
			name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if seen[name] {
				continue
			}
			d, err := LoadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			seen[name] = true
			d.Name = name
			out = append(out, *d)
		}
	}
	slices.SortFunc(out, func(a, b Definition) int { return strings.Compare(a.Name, b.Name) })
	return out
}
