package fixtures

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// DefaultLatency mimics a remote fetch so the Loading phase is observable.
const DefaultLatency = time.Second

//go:embed data/*.jsonc
var embedded embed.FS

// Parse strips JSONC comments and trailing commas, then decodes either a bare
// array of records or an object with a "records" field.
func Parse(data []byte) ([]datatable.Record, error) {
	stripped := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(stripped) == 0 {
		return nil, fmt.Errorf("fixtures: empty document")
	}
	if stripped[0] == '[' {
		var records []datatable.Record
		if err := json.Unmarshal(stripped, &records); err != nil {
			return nil, fmt.Errorf("fixtures: parsing records: %w", err)
		}
		return records, nil
	}
	var doc struct {
		Records []datatable.Record `json:"records"`
	}
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, fmt.Errorf("fixtures: parsing records: %w", err)
	}
	return doc.Records, nil
}

// ReadFile parses a JSONC fixture from disk.
func ReadFile(path string) ([]datatable.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: reading %s: %w", path, err)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Codes lists the embedded fixture names.
func Codes() []string {
	entries, err := embedded.ReadDir("data")
	if err != nil {
		return nil
	}
	codes := make([]string, 0, len(entries))
	for _, entry := range entries {
		codes = append(codes, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
	}
	return codes
}

// Embedded returns the records of a built-in fixture.
func Embedded(code string) ([]datatable.Record, error) {
	data, err := embedded.ReadFile("data/" + code + ".jsonc")
	if err != nil {
		return nil, fmt.Errorf("fixtures: no embedded fixture %q", code)
	}
	return Parse(data)
}

// StaticSource serves a fixed record set after an optional delay.
type StaticSource struct {
	records []datatable.Record
	latency time.Duration
}

// NewStaticSource wraps records; latency <= 0 returns immediately.
func NewStaticSource(records []datatable.Record, latency time.Duration) *StaticSource {
	return &StaticSource{records: records, latency: latency}
}

// Records implements datatable.DataSource. The delay honors ctx cancellation.
func (s *StaticSource) Records(ctx context.Context) ([]datatable.Record, error) {
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	out := make([]datatable.Record, len(s.records))
	for i, record := range s.records {
		clone := make(datatable.Record, len(record))
		for k, v := range record {
			clone[k] = v
		}
		out[i] = clone
	}
	return out, nil
}

// FileSource rereads a fixture file on every load.
type FileSource struct {
	Path string
}

// Records implements datatable.DataSource.
func (s FileSource) Records(ctx context.Context) ([]datatable.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(s.Path)
}

// Hook registers embedded fixtures as sources for every defined table that
// has one. Use with datatable.RegisterTableHook.
func Hook(latency time.Duration) datatable.TableHook {
	return func(reg *datatable.Registry) error {
		return Register(reg, latency)
	}
}

// Register binds sources on reg. Manifest fixture paths win over embedded
// data; tables with neither are left unbound.
func Register(reg *datatable.Registry, latency time.Duration) error {
	for _, def := range reg.Definitions() {
		if path, ok := reg.FixturePath(def.Code); ok {
			if err := reg.RegisterSource(def.Code, FileSource{Path: path}); err != nil {
				return err
			}
			continue
		}
		records, err := Embedded(def.Code)
		if err != nil {
			continue
		}
		if err := reg.RegisterSource(def.Code, NewStaticSource(records, latency)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDir binds a FileSource for every defined table with a
// <code>.jsonc file in dir.
func RegisterDir(reg *datatable.Registry, dir string) error {
	for _, def := range reg.Definitions() {
		path := filepath.Join(dir, def.Code+".jsonc")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := reg.RegisterSource(def.Code, FileSource{Path: path}); err != nil {
			return err
		}
	}
	return nil
}
