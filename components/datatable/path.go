package datatable

import (
	"reflect"
	"strings"
)

// ResolvePath walks a dot-separated key through nested maps. The boolean is
// false when any segment is missing.
func ResolvePath(record Record, key string) (any, bool) {
	if record == nil || key == "" {
		return nil, false
	}
	if value, ok := record[key]; ok {
		return value, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}
	var current any = record
	for _, segment := range strings.Split(key, ".") {
		next, ok := lookupField(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func lookupField(container any, field string) (any, bool) {
	switch val := container.(type) {
	case map[string]any:
		v, ok := val[field]
		return v, ok
	case map[string]string:
		v, ok := val[field]
		return v, ok
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(container)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	}
	return nil, false
}
