package datatable

import (
	"fmt"
	"strings"
)

// FormatSpec is the declarative form of a CellFormatter used by manifests.
type FormatSpec struct {
	Type     string            `json:"type" yaml:"type"`
	Currency string            `json:"currency,omitempty" yaml:"currency,omitempty"`
	Locale   string            `json:"locale,omitempty" yaml:"locale,omitempty"`
	Layout   string            `json:"layout,omitempty" yaml:"layout,omitempty"`
	Decimals int               `json:"decimals,omitempty" yaml:"decimals,omitempty"`
	Variants map[string]string `json:"variants,omitempty" yaml:"variants,omitempty"`
	Labels   map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Default  string            `json:"default,omitempty" yaml:"default,omitempty"`
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
}

// IsZero reports whether the spec selects no formatter.
func (s FormatSpec) IsZero() bool {
	return strings.TrimSpace(s.Type) == ""
}

// FormatterLookup resolves named custom formatters.
type FormatterLookup func(name string) (CellFormatter, bool)

// BuildFormatter turns a spec into a formatter. A zero spec yields nil, so
// the column renders its raw value.
func BuildFormatter(spec FormatSpec, lookup FormatterLookup) (CellFormatter, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Type)) {
	case "":
		return nil, nil
	case KindText:
		return TextFormatter{}, nil
	case KindNumber:
		return NumberFormatter{Decimals: spec.Decimals, Locale: spec.Locale}, nil
	case KindCurrency:
		return CurrencyFormatter{Currency: spec.Currency, Locale: spec.Locale}, nil
	case KindDate:
		return DateFormatter{Layout: spec.Layout}, nil
	case KindBadge:
		return BadgeFormatter{Variants: spec.Variants, Labels: spec.Labels, Default: spec.Default}, nil
	case KindCustom:
		if spec.Name == "" {
			return nil, fmt.Errorf("datatable: custom formatter requires a name")
		}
		if lookup == nil {
			return nil, fmt.Errorf("datatable: custom formatter %s not registered", spec.Name)
		}
		formatter, ok := lookup(spec.Name)
		if !ok {
			return nil, fmt.Errorf("datatable: custom formatter %s not registered", spec.Name)
		}
		return formatter, nil
	default:
		return nil, fmt.Errorf("datatable: unsupported formatter type %q", spec.Type)
	}
}
