package datatable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHasDefaultTables(t *testing.T) {
	reg := NewRegistry()
	codes := []string{}
	for _, def := range reg.Definitions() {
		codes = append(codes, def.Code)
	}
	assert.Equal(t, []string{"inventory", "customers", "transactions"}, codes)

	def, ok := reg.Definition("transactions")
	require.True(t, ok)
	assert.Equal(t, "Transacciones", def.TitleForLocale("es"))
	assert.Equal(t, []string{"id", "customer", "method", "items"}, def.SearchFields)
}

func TestRegistrySourceRequiresDefinition(t *testing.T) {
	reg := NewEmptyRegistry()
	source := DataSourceFunc(func(context.Context) ([]Record, error) { return nil, nil })
	assert.Error(t, reg.RegisterSource("missing", source))
	require.NoError(t, reg.RegisterDefinition(TableDefinition{Code: "t", Columns: []Column{{Key: "a"}}}))
	assert.Error(t, reg.RegisterSource("t", nil))
	require.NoError(t, reg.RegisterSource("t", source))
	_, ok := reg.Source("t")
	assert.True(t, ok)
}

func TestRegistryRejectsMalformedDefinitions(t *testing.T) {
	reg := NewEmptyRegistry()
	assert.Error(t, reg.RegisterDefinition(TableDefinition{}))
	err := reg.RegisterDefinition(TableDefinition{Code: "bad", Columns: []Column{{Header: "?"}}})
	assert.ErrorIs(t, err, ErrMalformedColumn)
}

func TestRegistryAppliesHooks(t *testing.T) {
	RegisterTableHook(func(reg *Registry) error {
		return reg.RegisterFormatter("hook.upper", FormatterFunc(func(r Record) DisplayValue {
			return DisplayValue{Text: strings.ToUpper(r["name"].(string))}
		}))
	})
	reg := NewRegistry()
	_, ok := reg.Formatter("hook.upper")
	assert.True(t, ok)
}

const testManifest = `
version: "1"
name: store
tables:
  - code: suppliers
    fixture: fixtures/suppliers.json
    search_fields: [name]
    page_size: 5
    menu:
      label: Suppliers
      position: 40
    columns:
      - key: name
        sortable: true
      - key: lastOrder
        format:
          type: date
          layout: "2006-01-02"
      - key: balance
        header: Balance Due
        format:
          type: currency
          currency: EUR
`

func TestDecodeManifestBuildsDefinitions(t *testing.T) {
	doc, err := DecodeManifest(strings.NewReader(testManifest))
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	assert.Equal(t, "Suppliers", doc.Tables[0].Title)
	assert.Equal(t, "Last Order", doc.Tables[0].Columns[1].Header)

	reg := NewEmptyRegistry()
	require.NoError(t, reg.LoadManifestDocument(doc))
	def, ok := reg.Definition("suppliers")
	require.True(t, ok)
	assert.Equal(t, 5, def.PageSize)
	assert.Equal(t, DateFormatter{Layout: "2006-01-02"}, def.Columns[1].Formatter)
	assert.Equal(t, CurrencyFormatter{Currency: "EUR"}, def.Columns[2].Formatter)
	assert.Nil(t, def.Columns[0].Formatter)
	path, ok := reg.FixturePath("suppliers")
	require.True(t, ok)
	assert.Equal(t, "fixtures/suppliers.json", path)
}

func TestDecodeManifestRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"unknown field": "version: \"1\"\ntables:\n  - code: a\n    colour: red\n    columns: [{key: a}]\n",
		"duplicate":     "version: \"1\"\ntables:\n  - code: a\n    columns: [{key: a}]\n  - code: a\n    columns: [{key: a}]\n",
		"bad version":   "version: \"2\"\ntables: []\n",
		"no columns":    "version: \"1\"\ntables:\n  - code: a\n",
		"malformed":     "version: \"1\"\ntables:\n  - code: a\n    columns: [{header: Nope}]\n",
		"empty":         "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeManifest(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadManifestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testManifest), 0o600))
	reg := NewEmptyRegistry()
	doc, err := reg.LoadManifestFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	_, ok := reg.Definition("suppliers")
	assert.True(t, ok)
	fixture, ok := reg.FixturePath("suppliers")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "fixtures", "suppliers.json"), fixture)
}

func TestHeaderFromKey(t *testing.T) {
	assert.Equal(t, "Last Order", HeaderFromKey("lastOrder"))
	assert.Equal(t, "Total Spent", HeaderFromKey("total_spent"))
	assert.Equal(t, "City", HeaderFromKey("customer.city"))
}

func TestJSONSchemaValidator(t *testing.T) {
	def, ok := NewRegistry().Definition("inventory")
	require.True(t, ok)
	v := NewJSONSchemaValidator()
	assert.NoError(t, v.Validate(def, []Record{{"name": "Desk", "sku": "D-1", "stock": 4, "price": 99.5}}))

	err := v.Validate(def, []Record{
		{"name": "Desk", "sku": "D-1"},
		{"name": "Lamp"},
		{"name": "Chair", "sku": "C-1", "stock": "many"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1 of inventory")
	assert.Contains(t, err.Error(), "record 2 of inventory")
	assert.NotContains(t, err.Error(), "record 0 of inventory")

	assert.NoError(t, v.Validate(TableDefinition{Code: "free"}, []Record{{"x": 1}}))
}
