package chatcore

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/tables.yaml
var tablesYAML []byte

// Tables are the externally tunable parameters of the core: the reasoning
// tag names and the per-language tables used by source extraction.
//
// The embedded defaults can be replaced by:
//  1. Calling LoadTablesFromFile() with custom YAML
//  2. Calling SetTables() programmatically
//
// Detectors and extractors snapshot the tables when they are constructed.
type Tables struct {
	Version     string          `yaml:"version"`      // Semantic version (e.g., "1.0.0")
	LastUpdated string          `yaml:"last_updated"` // ISO 8601 date
	Reasoning   ReasoningConfig `yaml:"reasoning"`
	Languages   LanguageTable   `yaml:"languages"`
}

// ReasoningConfig lists the recognized reasoning tag names.
type ReasoningConfig struct {
	Tags []string `yaml:"tags"`
}

// LanguageTable holds the per-language naming rules.
type LanguageTable struct {
	// Default is the language assigned when classification finds nothing
	Default string `yaml:"default"`

	// PathPattern matches a path-like token; it replaces {path} in markers
	PathPattern string `yaml:"path_pattern"`

	Entries []LanguageSpec `yaml:"entries"`
}

// LanguageSpec describes one canonical language.
type LanguageSpec struct {
	Name      string   `yaml:"name"`
	Aliases   []string `yaml:"aliases"`
	Extension string   `yaml:"extension"`
	MainFile  string   `yaml:"main_file"`

	// Markers are single-line comment patterns naming a file. {path} is
	// expanded to a named "path" group.
	Markers []string `yaml:"markers"`

	// Imports are patterns whose first group is the imported module.
	Imports []string `yaml:"imports"`

	// Libraries are module names never treated as local files.
	Libraries []string `yaml:"libraries"`

	// ModuleSeparator is the separator of dotted module paths ("." for
	// python). Local imports are mapped to paths by replacing it with "/".
	ModuleSeparator string `yaml:"module_separator,omitempty"`
}

// Lookup finds a language by canonical name or alias, case-insensitively.
func (t LanguageTable) Lookup(name string) (LanguageSpec, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return LanguageSpec{}, false
	}
	for _, spec := range t.Entries {
		if spec.Name == name {
			return spec, true
		}
		for _, alias := range spec.Aliases {
			if strings.ToLower(alias) == name {
				return spec, true
			}
		}
	}
	return LanguageSpec{}, false
}

// ByExtension finds the language owning a file extension (without the dot).
func (t LanguageTable) ByExtension(ext string) (LanguageSpec, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, spec := range t.Entries {
		if spec.Extension == ext {
			return spec, true
		}
	}
	return LanguageSpec{}, false
}

// ExpandMarker substitutes the path pattern into a marker pattern.
func (t LanguageTable) ExpandMarker(marker string) string {
	return strings.ReplaceAll(marker, "{path}", "(?P<path>"+t.PathPattern+")")
}

// IsLibrary reports whether module names a known library of this language.
func (s LanguageSpec) IsLibrary(module string) bool {
	for _, lib := range s.Libraries {
		if lib == module {
			return true
		}
	}
	return false
}

// Validate checks that every pattern compiles and required fields are set.
func (t *Tables) Validate() error {
	if len(t.Reasoning.Tags) == 0 {
		return fmt.Errorf("reasoning.tags must not be empty")
	}
	for _, tag := range t.Reasoning.Tags {
		if tag == "" || strings.ContainsAny(tag, "<>/ ") {
			return fmt.Errorf("invalid reasoning tag %q", tag)
		}
	}

	if _, err := regexp.Compile(t.Languages.PathPattern); err != nil {
		return fmt.Errorf("languages.path_pattern: %w", err)
	}
	if _, ok := t.Languages.Lookup(t.Languages.Default); !ok {
		return fmt.Errorf("languages.default %q is not a listed language", t.Languages.Default)
	}

	for _, spec := range t.Languages.Entries {
		if spec.Name == "" || spec.Extension == "" || spec.MainFile == "" {
			return fmt.Errorf("language %q: name, extension and main_file are required", spec.Name)
		}
		for _, marker := range spec.Markers {
			if _, err := regexp.Compile(t.Languages.ExpandMarker(marker)); err != nil {
				return fmt.Errorf("language %s marker: %w", spec.Name, err)
			}
		}
		for _, imp := range spec.Imports {
			if _, err := regexp.Compile(imp); err != nil {
				return fmt.Errorf("language %s import: %w", spec.Name, err)
			}
		}
	}
	return nil
}

// TableRegistry holds the active tables.
type TableRegistry struct {
	tables *Tables
	mu     sync.RWMutex
}

var (
	globalTables     *TableRegistry
	globalTablesOnce sync.Once
)

// GetTableRegistry returns the global table registry (singleton).
// The embedded defaults are loaded on first use.
func GetTableRegistry() *TableRegistry {
	globalTablesOnce.Do(func() {
		tables, err := ParseTables(tablesYAML)
		if err != nil {
			// The embedded file ships with the module; failing here is a build defect.
			panic(fmt.Sprintf("chatcore: embedded tables: %v", err))
		}
		globalTables = &TableRegistry{tables: tables}
	})
	return globalTables
}

// ParseTables decodes and validates YAML tables.
func ParseTables(data []byte) (*Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tables: %w", err)
	}
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tables: %w", err)
	}
	return &tables, nil
}

// Tables returns the active tables.
func (r *TableRegistry) Tables() *Tables {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables
}

// LoadFromFile replaces the active tables with the YAML file at path.
func (r *TableRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tables file: %w", err)
	}

	tables, err := ParseTables(data)
	if err != nil {
		return err
	}

	r.Set(tables)
	return nil
}

// Set replaces the active tables.
func (r *TableRegistry) Set(tables *Tables) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = tables
}

// DefaultTables returns the tables of the global registry.
func DefaultTables() *Tables {
	return GetTableRegistry().Tables()
}

// EmbeddedTables parses a fresh copy of the embedded defaults.
func EmbeddedTables() *Tables {
	tables, err := ParseTables(tablesYAML)
	if err != nil {
		panic(fmt.Sprintf("chatcore: embedded tables: %v", err))
	}
	return tables
}

// LoadTablesFromFile is a convenience function that calls the global registry's LoadFromFile.
func LoadTablesFromFile(path string) error {
	return GetTableRegistry().LoadFromFile(path)
}

// SetTables is a convenience function that calls the global registry's Set.
func SetTables(tables *Tables) {
	GetTableRegistry().Set(tables)
}
