package datatable

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"
)

const (
	manifestVersionV1 = "1"
	// ManifestVersion exposes the current manifest format version for tooling.
	ManifestVersion = manifestVersionV1
)

// TableManifestDocument models a YAML manifest declaring tables.
type TableManifestDocument struct {
	Version string          `json:"version" yaml:"version"`
	Name    string          `json:"name,omitempty" yaml:"name,omitempty"`
	Tables  []ManifestTable `json:"tables" yaml:"tables"`
	Source  string          `json:"-" yaml:"-"`
}

// ManifestTable is the declarative form of a TableDefinition.
type ManifestTable struct {
	Code           string            `json:"code" yaml:"code"`
	Title          string            `json:"title,omitempty" yaml:"title,omitempty"`
	TitleLocalized map[string]string `json:"title_localized,omitempty" yaml:"title_localized,omitempty"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Columns        []ManifestColumn  `json:"columns" yaml:"columns"`
	SearchFields   []string          `json:"search_fields,omitempty" yaml:"search_fields,omitempty"`
	PageSize       int               `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	EmptyMessage   string            `json:"empty_message,omitempty" yaml:"empty_message,omitempty"`
	Schema         map[string]any    `json:"schema,omitempty" yaml:"schema,omitempty"`
	Menu           MenuEntry         `json:"menu,omitempty" yaml:"menu,omitempty"`
	Fixture        string            `json:"fixture,omitempty" yaml:"fixture,omitempty"`
}

// ManifestColumn declares one column with an optional format spec.
type ManifestColumn struct {
	Key             string            `json:"key" yaml:"key"`
	Header          string            `json:"header,omitempty" yaml:"header,omitempty"`
	HeaderLocalized map[string]string `json:"header_localized,omitempty" yaml:"header_localized,omitempty"`
	Sortable        bool              `json:"sortable,omitempty" yaml:"sortable,omitempty"`
	Format          FormatSpec        `json:"format,omitempty" yaml:"format,omitempty"`
}

// LoadManifestFile reads a manifest from disk, registers it against the registry, and returns the document.
func (r *Registry) LoadManifestFile(path string) (*TableManifestDocument, error) {
	doc, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := r.LoadManifestDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadManifestDocument registers definitions and fixture paths from a decoded manifest.
func (r *Registry) LoadManifestDocument(doc *TableManifestDocument) error {
	if doc == nil {
		return fmt.Errorf("datatable: manifest document is nil")
	}
	for _, table := range doc.Tables {
		def, err := table.Definition(r.Formatter)
		if err != nil {
			return fmt.Errorf("datatable: build table %s from %s: %w", table.Code, doc.Source, err)
		}
		if err := r.RegisterDefinition(def); err != nil {
			return fmt.Errorf("datatable: register table %s from %s: %w", table.Code, doc.Source, err)
		}
		r.recordFixture(table.Code, fixturePath(doc.Source, table.Fixture))
	}
	return nil
}

// fixturePath resolves relative fixture paths against the manifest file.
func fixturePath(source, fixture string) string {
	if fixture == "" || source == "" || filepath.IsAbs(fixture) {
		return fixture
	}
	return filepath.Join(filepath.Dir(source), fixture)
}

// Definition converts the manifest entry into a TableDefinition, resolving
// format specs through lookup.
func (t ManifestTable) Definition(lookup FormatterLookup) (TableDefinition, error) {
	columns := make([]Column, 0, len(t.Columns))
	for _, mc := range t.Columns {
		formatter, err := BuildFormatter(mc.Format, lookup)
		if err != nil {
			return TableDefinition{}, fmt.Errorf("column %s: %w", mc.Key, err)
		}
		columns = append(columns, Column{
			Key:             mc.Key,
			Header:          mc.Header,
			HeaderLocalized: mc.HeaderLocalized,
			Sortable:        mc.Sortable,
			Formatter:       formatter,
		})
	}
	return TableDefinition{
		Code:           t.Code,
		Title:          t.Title,
		TitleLocalized: t.TitleLocalized,
		Description:    t.Description,
		Columns:        columns,
		SearchFields:   t.SearchFields,
		PageSize:       t.PageSize,
		EmptyMessage:   t.EmptyMessage,
		Schema:         t.Schema,
		Menu:           t.Menu,
	}, nil
}

// ReadManifest loads a manifest file from disk without registering it.
func ReadManifest(path string) (*TableManifestDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("datatable: open manifest %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("datatable: decode manifest %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeManifest reads a manifest from any reader.
func DecodeManifest(r io.Reader) (*TableManifestDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc TableManifestDocument
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("datatable: manifest is empty")
		}
		return nil, fmt.Errorf("datatable: parse manifest: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the manifest satisfies required fields.
func (doc *TableManifestDocument) Validate() error {
	if doc.Version != manifestVersionV1 {
		return fmt.Errorf("datatable: unsupported manifest version %q", doc.Version)
	}
	seen := make(map[string]struct{}, len(doc.Tables))
	for idx, table := range doc.Tables {
		if table.Code == "" {
			return fmt.Errorf("datatable: manifest table at index %d is missing code", idx)
		}
		if _, exists := seen[table.Code]; exists {
			return fmt.Errorf("datatable: manifest duplicates table code %s", table.Code)
		}
		seen[table.Code] = struct{}{}
		if len(table.Columns) == 0 {
			return fmt.Errorf("datatable: manifest table %s declares no columns", table.Code)
		}
		for cidx, col := range table.Columns {
			if col.Key == "" && col.Format.IsZero() {
				return fmt.Errorf("datatable: manifest table %s column %d: %w", table.Code, cidx, ErrMalformedColumn)
			}
		}
	}
	return nil
}

func (doc *TableManifestDocument) applyDefaults() {
	if doc.Version == "" {
		doc.Version = manifestVersionV1
	}
	for i := range doc.Tables {
		table := &doc.Tables[i]
		if table.Title == "" && table.Code != "" {
			table.Title = HeaderFromKey(table.Code)
		}
		for j := range table.Columns {
			if table.Columns[j].Header == "" {
				table.Columns[j].Header = HeaderFromKey(table.Columns[j].Key)
			}
		}
	}
}

// HeaderFromKey derives a display header such as "Last Order" from a field
// key like "lastOrder" or "last_order". Dotted paths use the last segment.
func HeaderFromKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		key = key[idx+1:]
	}
	return strcase.ToCase(key, strcase.TitleCase, ' ')
}
