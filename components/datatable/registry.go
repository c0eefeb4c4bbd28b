package datatable

import (
	"fmt"
	"sort"
	"sync"
)

// TableDefinition describes one list page: its columns, search policy and
// record schema.
type TableDefinition struct {
	Code           string            `json:"code" yaml:"code"`
	Title          string            `json:"title" yaml:"title"`
	TitleLocalized map[string]string `json:"title_localized,omitempty" yaml:"title_localized,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Columns        []Column          `json:"columns" yaml:"-"`
	SearchFields   []string          `json:"search_fields,omitempty" yaml:"search_fields,omitempty"`
	PageSize       int               `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	EmptyMessage   string            `json:"empty_message,omitempty" yaml:"empty_message,omitempty"`
	Schema         map[string]any    `json:"schema,omitempty" yaml:"schema,omitempty"`
	Menu           MenuEntry         `json:"menu,omitempty" yaml:"menu,omitempty"`
	Filter         FilterFunc        `json:"-" yaml:"-"`
}

// TitleForLocale returns the localized title with fallback to Title.
func (def TableDefinition) TitleForLocale(locale string) string {
	return ResolveLocalizedValue(def.TitleLocalized, locale, def.Title)
}

// MenuEntry places a table page in the admin navigation.
type MenuEntry struct {
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Route    string `json:"route,omitempty" yaml:"route,omitempty"`
	Icon     string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Position int    `json:"position,omitempty" yaml:"position,omitempty"`
}

// TableRegistry stores table definitions and their data sources.
type TableRegistry interface {
	RegisterDefinition(def TableDefinition) error
	RegisterSource(code string, source DataSource) error
	Definition(code string) (TableDefinition, bool)
	Source(code string) (DataSource, bool)
	Definitions() []TableDefinition
}

// TableHook lets packages register tables or sources during init().
type TableHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []TableHook
)

// RegisterTableHook registers a hook executed against new registries.
func RegisterTableHook(h TableHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry implements TableRegistry with hook, manifest and named formatter
// support.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]TableDefinition
	sources     map[string]DataSource
	formatters  map[string]CellFormatter
	fixtures    map[string]string
}

// NewRegistry builds a registry holding the default tables and applies
// global hooks.
func NewRegistry() *Registry {
	reg := NewEmptyRegistry()
	for _, def := range DefaultTableDefinitions() {
		_ = reg.RegisterDefinition(def)
	}
	_ = reg.ApplyHooks()
	return reg
}

// NewEmptyRegistry builds a registry without defaults or hooks.
func NewEmptyRegistry() *Registry {
	return &Registry{
		definitions: map[string]TableDefinition{},
		sources:     map[string]DataSource{},
		formatters:  map[string]CellFormatter{},
		fixtures:    map[string]string{},
	}
}

// ApplyHooks executes registered table hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	hooks := append([]TableHook(nil), globalHooks...)
	globalHookMu.Unlock()
	for _, hook := range hooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDefinition stores table metadata.
func (r *Registry) RegisterDefinition(def TableDefinition) error {
	if def.Code == "" {
		return fmt.Errorf("datatable: table definition code is required")
	}
	if err := ValidateColumns(def.Columns); err != nil {
		return fmt.Errorf("datatable: table %s: %w", def.Code, err)
	}
	def.TitleLocalized = normalizeLocaleMap(def.TitleLocalized)
	for i := range def.Columns {
		def.Columns[i].HeaderLocalized = normalizeLocaleMap(def.Columns[i].HeaderLocalized)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.Code] = def
	return nil
}

// RegisterSource associates a data source with a definition.
func (r *Registry) RegisterSource(code string, source DataSource) error {
	if code == "" {
		return fmt.Errorf("datatable: table code is required to register source")
	}
	if source == nil {
		return fmt.Errorf("datatable: source cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.definitions[code]; !ok {
		return fmt.Errorf("datatable: table definition %s not found", code)
	}
	r.sources[code] = source
	return nil
}

// RegisterFormatter stores a named formatter for `custom` format specs.
func (r *Registry) RegisterFormatter(name string, formatter CellFormatter) error {
	if name == "" {
		return fmt.Errorf("datatable: formatter name is required")
	}
	if formatter == nil {
		return fmt.Errorf("datatable: formatter cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[name] = formatter
	return nil
}

// Formatter fetches a named formatter.
func (r *Registry) Formatter(name string) (CellFormatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[name]
	return f, ok
}

// Definition fetches a table definition by code.
func (r *Registry) Definition(code string) (TableDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[code]
	return def, ok
}

// Source fetches the data source for a table.
func (r *Registry) Source(code string) (DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[code]
	return source, ok
}

// FixturePath returns the fixture file declared by a manifest for a table.
func (r *Registry) FixturePath(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	path, ok := r.fixtures[code]
	return path, ok
}

// Definitions returns all registered definitions ordered by menu position
// then code.
func (r *Registry) Definitions() []TableDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]TableDefinition, 0, len(r.definitions))
	for _, def := range r.definitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Menu.Position != defs[j].Menu.Position {
			return defs[i].Menu.Position < defs[j].Menu.Position
		}
		return defs[i].Code < defs[j].Code
	})
	return defs
}

func (r *Registry) recordFixture(code, path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixtures[code] = path
}
