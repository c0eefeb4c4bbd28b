package datatable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RecordValidator checks records against the table's declared shape.
type RecordValidator interface {
	Validate(def TableDefinition, records []Record) error
}

// JSONSchemaValidator compiles table schemas and validates records.
type JSONSchemaValidator struct {
	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks every record and joins the failures.
func (v *JSONSchemaValidator) Validate(def TableDefinition, records []Record) error {
	if len(def.Schema) == 0 || len(records) == 0 {
		return nil
	}
	schema, err := v.schemaFor(def)
	if err != nil {
		return err
	}
	var errs []error
	for idx, record := range records {
		payload, err := normalizeRecord(record)
		if err != nil {
			errs = append(errs, fmt.Errorf("datatable: record %d of %s: %w", idx, def.Code, err))
			continue
		}
		if err := schema.Validate(payload); err != nil {
			errs = append(errs, fmt.Errorf("datatable: record %d of %s failed validation: %w", idx, def.Code, err))
		}
	}
	return errors.Join(errs...)
}

// Forget drops a compiled schema so a redefined table recompiles.
func (v *JSONSchemaValidator) Forget(code string) {
	v.mu.Lock()
	delete(v.compiled, code)
	v.mu.Unlock()
}

// normalizeRecord round-trips through JSON so typed values such as int or
// time.Time reach the validator in their JSON form.
func normalizeRecord(record Record) (any, error) {
	if record == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (v *JSONSchemaValidator) schemaFor(def TableDefinition) (*jsonschema.Schema, error) {
	v.mu.RLock()
	schema, ok := v.compiled[def.Code]
	v.mu.RUnlock()
	if ok {
		return schema, nil
	}
	data, err := json.Marshal(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("datatable: marshal schema %s: %w", def.Code, err)
	}
	compiler := jsonschema.NewCompiler()
	name := def.Code + ".json"
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("datatable: load schema %s: %w", def.Code, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("datatable: compile schema %s: %w", def.Code, err)
	}
	v.mu.Lock()
	v.compiled[def.Code] = compiled
	v.mu.Unlock()
	return compiled, nil
}
