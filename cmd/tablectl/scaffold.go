package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/pkg/fixtures"
)

type scaffoldCmd struct {
	Code         string   `required:"" help:"Table code (e.g. suppliers)."`
	Title        string   `help:"Display title (defaults to the code in title case)."`
	Description  string   `help:"One-line description recorded in the manifest."`
	ManifestPath string   `required:"" name:"manifest" type:"path" help:"Path to the table manifest YAML file to update."`
	Column       []string `help:"Column as key[:format], e.g. spent:currency (repeat the flag)."`
	Sortable     []string `help:"Column keys users may sort by (defaults to all columns)."`
	Fixture      string   `type:"path" help:"Fixture file bound to the table; its first record seeds the columns when --column is omitted."`
	PageSize     int      `help:"Rows per page for this table."`
	Overwrite    bool     `help:"Replace an existing manifest entry with the same code."`
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("tablectl: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}
	entry, err := cmd.entry(manifestPath)
	if err != nil {
		return err
	}
	if err := upsertTable(doc, entry, cmd.Overwrite); err != nil {
		return err
	}
	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s (%d columns)\n", cmd.Code, manifestPath, len(entry.Columns))
	return nil
}

func (cmd *scaffoldCmd) validate() error {
	code := strings.TrimSpace(cmd.Code)
	if code == "" || strings.ContainsAny(code, " /.") {
		return fmt.Errorf("tablectl: table code %q must be a single path segment", cmd.Code)
	}
	if len(cmd.Column) == 0 && cmd.Fixture == "" {
		return fmt.Errorf("tablectl: provide --column flags or a --fixture to infer columns from")
	}
	return nil
}

func (cmd *scaffoldCmd) entry(manifestPath string) (datatable.ManifestTable, error) {
	columns, err := cmd.columns()
	if err != nil {
		return datatable.ManifestTable{}, err
	}
	title := cmd.Title
	if title == "" {
		title = strcase.ToCase(cmd.Code, strcase.TitleCase, ' ')
	}
	entry := datatable.ManifestTable{
		Code:        cmd.Code,
		Title:       title,
		Description: cmd.Description,
		Columns:     columns,
		PageSize:    cmd.PageSize,
	}
	if cmd.Fixture != "" {
		entry.Fixture = relativeFixture(filepath.Dir(manifestPath), cmd.Fixture)
	}
	return entry, nil
}

func (cmd *scaffoldCmd) columns() ([]datatable.ManifestColumn, error) {
	specs := cmd.Column
	if len(specs) == 0 {
		keys, err := fixtureKeys(cmd.Fixture)
		if err != nil {
			return nil, err
		}
		specs = keys
	}
	sortable := map[string]bool{}
	for _, key := range cmd.Sortable {
		sortable[key] = true
	}
	columns := make([]datatable.ManifestColumn, 0, len(specs))
	for _, spec := range specs {
		column, err := parseColumn(spec)
		if err != nil {
			return nil, err
		}
		column.Sortable = len(sortable) == 0 || sortable[column.Key]
		columns = append(columns, column)
	}
	return columns, nil
}

// parseColumn reads key[:format] where format is one of the built-in kinds;
// currency accepts an ISO code suffix as in spent:currency:EUR.
func parseColumn(spec string) (datatable.ManifestColumn, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return datatable.ManifestColumn{}, fmt.Errorf("tablectl: column %q has no key", spec)
	}
	column := datatable.ManifestColumn{Key: key, Header: datatable.HeaderFromKey(key)}
	if len(parts) == 1 {
		return column, nil
	}
	format := datatable.FormatSpec{Type: strings.ToLower(parts[1])}
	switch format.Type {
	case datatable.KindText, datatable.KindNumber, datatable.KindDate, datatable.KindBadge:
	case datatable.KindCurrency:
		if len(parts) > 2 {
			format.Currency = strings.ToUpper(parts[2])
		}
	default:
		return datatable.ManifestColumn{}, fmt.Errorf("tablectl: column %s uses unknown format %q", key, parts[1])
	}
	column.Format = format
	return column, nil
}

func fixtureKeys(path string) ([]string, error) {
	records, err := fixtures.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tablectl: fixture %s has no records to infer columns from", path)
	}
	keys := make([]string, 0, len(records[0]))
	for key := range records[0] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func relativeFixture(base, fixture string) string {
	abs, err := filepath.Abs(fixture)
	if err != nil {
		return fixture
	}
	if rel, err := filepath.Rel(base, abs); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return abs
}

func upsertTable(doc *datatable.TableManifestDocument, entry datatable.ManifestTable, overwrite bool) error {
	replaced := false
	for idx := range doc.Tables {
		if doc.Tables[idx].Code != entry.Code {
			continue
		}
		if !overwrite {
			return fmt.Errorf("tablectl: manifest already defines table %s (use --overwrite to replace)", entry.Code)
		}
		doc.Tables[idx] = entry
		replaced = true
		break
	}
	if !replaced {
		doc.Tables = append(doc.Tables, entry)
	}
	sort.Slice(doc.Tables, func(i, j int) bool {
		return doc.Tables[i].Code < doc.Tables[j].Code
	})
	return nil
}

func loadOrInitManifest(path string) (*datatable.TableManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &datatable.TableManifestDocument{
				Version: datatable.ManifestVersion,
				Tables:  []datatable.ManifestTable{},
				Source:  path,
			}, nil
		}
		return nil, fmt.Errorf("tablectl: stat manifest: %w", err)
	}
	return datatable.ReadManifest(path)
}

func writeManifest(path string, doc *datatable.TableManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tablectl: mkdir %s: %w", filepath.Dir(path), err)
	}
	out := *doc
	out.Source = ""

	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("tablectl: create manifest %s: %w", path, err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("tablectl: write manifest: %w", err)
	}
	return nil
}
