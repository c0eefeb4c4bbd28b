package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/pkg/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseColumn(t *testing.T) {
	column, err := parseColumn("billing.total:currency:eur")
	if err != nil {
		t.Fatalf("parseColumn returned error: %v", err)
	}
	if column.Key != "billing.total" || column.Header != "Total" {
		t.Fatalf("unexpected column %+v", column)
	}
	if column.Format.Type != datatable.KindCurrency || column.Format.Currency != "EUR" {
		t.Fatalf("unexpected format %+v", column.Format)
	}

	plain, err := parseColumn("name")
	if err != nil || !plain.Format.IsZero() {
		t.Fatalf("expected plain column, got %+v (%v)", plain, err)
	}
	if _, err := parseColumn("name:sparkline"); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if _, err := parseColumn(":number"); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestScaffoldWritesManifestEntry(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "tables.yaml")
	cmd := &scaffoldCmd{
		Code:         "suppliers",
		ManifestPath: manifest,
		Column:       []string{"name", "spend:currency", "status:badge"},
		Sortable:     []string{"name", "spend"},
	}
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("scaffold returned error: %v", err)
	}

	doc, err := datatable.ReadManifest(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("expected one table, got %d", len(doc.Tables))
	}
	table := doc.Tables[0]
	if table.Title != "Suppliers" || len(table.Columns) != 3 {
		t.Fatalf("unexpected table %+v", table)
	}
	if !table.Columns[0].Sortable || table.Columns[2].Sortable {
		t.Fatalf("unexpected sortable flags %+v", table.Columns)
	}

	if err := cmd.Run(context.Background()); err == nil {
		t.Fatalf("expected duplicate error without --overwrite")
	}
	cmd.Overwrite = true
	cmd.Title = "Vendors"
	if err := cmd.Run(context.Background()); err != nil {
		t.Fatalf("overwrite returned error: %v", err)
	}
	doc, _ = datatable.ReadManifest(manifest)
	if len(doc.Tables) != 1 || doc.Tables[0].Title != "Vendors" {
		t.Fatalf("expected replaced entry, got %+v", doc.Tables)
	}

	reg := datatable.NewEmptyRegistry()
	if err := reg.LoadManifestDocument(doc); err != nil {
		t.Fatalf("scaffolded manifest does not load: %v", err)
	}
}

func TestScaffoldInfersColumnsFromFixture(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixtures", "suppliers.jsonc")
	if err := os.MkdirAll(filepath.Dir(fixture), 0o755); err != nil {
		t.Fatal(err)
	}
	data := "// suppliers\n[{\"name\": \"Acme\", \"country\": \"NL\"}]\n"
	if err := os.WriteFile(fixture, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cmd := &scaffoldCmd{Code: "suppliers", ManifestPath: filepath.Join(dir, "tables.yaml"), Fixture: fixture}
	entry, err := cmd.entry(cmd.ManifestPath)
	if err != nil {
		t.Fatalf("entry returned error: %v", err)
	}
	if len(entry.Columns) != 2 || entry.Columns[0].Key != "country" || entry.Columns[1].Key != "name" {
		t.Fatalf("unexpected inferred columns %+v", entry.Columns)
	}
	if entry.Fixture != filepath.Join("fixtures", "suppliers.jsonc") {
		t.Fatalf("expected fixture relative to manifest, got %s", entry.Fixture)
	}
}

func TestScaffoldValidate(t *testing.T) {
	cases := []scaffoldCmd{
		{Code: "", Column: []string{"a"}},
		{Code: "store/suppliers", Column: []string{"a"}},
		{Code: "suppliers"},
	}
	for _, cmd := range cases {
		if err := cmd.validate(); err == nil {
			t.Fatalf("expected validation error for %+v", cmd)
		}
	}
}

func TestRenderPrintsSortedPage(t *testing.T) {
	flags := tableFlags{Table: "customers", Sort: []string{"name"}}
	_, _, render, err := flags.prepare(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("prepare returned error: %v", err)
	}
	var out bytes.Buffer
	if err := writeRender(&out, render); err != nil {
		t.Fatalf("writeRender returned error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "▲") {
		t.Fatalf("expected ascending marker in %s", text)
	}
	if !strings.Contains(text, "Showing 1 to") {
		t.Fatalf("expected pagination footer in %s", text)
	}
}

func TestRenderPrintsEmptyState(t *testing.T) {
	flags := tableFlags{Table: "inventory", Search: "no-such-product-xyz"}
	_, _, render, err := flags.prepare(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("prepare returned error: %v", err)
	}
	var out bytes.Buffer
	if err := writeRender(&out, render); err != nil {
		t.Fatalf("writeRender returned error: %v", err)
	}
	if !strings.Contains(out.String(), "No products found in inventory") {
		t.Fatalf("expected empty message, got %s", out.String())
	}
}

func TestPrepareUnknownTable(t *testing.T) {
	flags := tableFlags{Table: "ghosts"}
	if _, _, _, err := flags.prepare(context.Background(), discardLogger()); err == nil {
		t.Fatalf("expected unknown table error")
	}
}

func TestExportWritesFile(t *testing.T) {
	dir := t.TempDir()
	cmd := &exportCmd{tableFlags: tableFlags{Table: "transactions"}, Format: "json", Out: dir}
	if err := cmd.Run(context.Background(), discardLogger()); err != nil {
		t.Fatalf("export returned error: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "transactions-*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one export file, got %v", matches)
	}

	empty := &exportCmd{tableFlags: tableFlags{Table: "transactions", Search: "no-such-order-xyz"}, Format: "csv", Out: dir}
	err := empty.Run(context.Background(), discardLogger())
	if err == nil || !strings.Contains(err.Error(), "no data to export") {
		t.Fatalf("expected empty export notification, got %v", err)
	}
}

func TestExportPath(t *testing.T) {
	dir := t.TempDir()
	if got := exportPath("", "a.csv"); got != "a.csv" {
		t.Fatalf("expected generated name, got %s", got)
	}
	if got := exportPath(dir, "a.csv"); got != filepath.Join(dir, "a.csv") {
		t.Fatalf("expected name inside dir, got %s", got)
	}
	if got := exportPath(filepath.Join(dir, "out.csv"), "a.csv"); got != filepath.Join(dir, "out.csv") {
		t.Fatalf("expected explicit file, got %s", got)
	}
}

func TestSummaryTable(t *testing.T) {
	flags := tableFlags{Table: "inventory"}
	svc, viewer, _, err := flags.prepare(context.Background(), discardLogger())
	if err != nil {
		t.Fatalf("prepare returned error: %v", err)
	}
	summary, err := svc.Summary(context.Background(), viewer, "inventory", "category", "")
	if err != nil {
		t.Fatalf("summary returned error: %v", err)
	}
	var out bytes.Buffer
	if err := writeSummary(&out, summary); err != nil {
		t.Fatalf("writeSummary returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Category") || !strings.Contains(out.String(), "11 records") {
		t.Fatalf("unexpected summary output %s", out.String())
	}
}

func TestBuildStackFromConfig(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"DATATABLE_FIXTURE_LATENCY": "0s"})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	stack, err := buildStack(cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildStack returned error: %v", err)
	}
	if _, ok := stack.Registry.Source("customers"); !ok {
		t.Fatalf("expected fixture source for customers")
	}

	cfg.ManifestPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := buildStack(cfg, discardLogger()); err == nil {
		t.Fatalf("expected manifest error")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") != slog.LevelDebug {
		t.Fatalf("expected debug")
	}
	if parseLevel("loud") != slog.LevelWarn {
		t.Fatalf("expected fallback to warn")
	}
}
