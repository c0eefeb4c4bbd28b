package datatable

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Display kinds emitted by the built-in formatters.
const (
	KindText     = "text"
	KindNumber   = "number"
	KindCurrency = "currency"
	KindDate     = "date"
	KindBadge    = "badge"
	KindCustom   = "custom"
)

// DefaultDateLayout is used by DateFormatter when no layout is configured.
const DefaultDateLayout = "Jan 2, 2006"

// DisplayValue is the render instruction for one cell.
type DisplayValue struct {
	Text    string `json:"text"`
	Kind    string `json:"kind"`
	Variant string `json:"variant,omitempty"`
	Raw     any    `json:"raw,omitempty"`
}

// CellFormatter renders the value at key for a record.
type CellFormatter interface {
	FormatCell(record Record, key string) DisplayValue
}

// FormatterFunc is the escape hatch for caller-supplied renderers.
type FormatterFunc func(record Record) DisplayValue

// FormatCell implements CellFormatter.
func (fn FormatterFunc) FormatCell(record Record, _ string) DisplayValue {
	value := fn(record)
	if value.Kind == "" {
		value.Kind = KindCustom
	}
	return value
}

// TextFormatter renders the raw value as text.
type TextFormatter struct{}

// FormatCell implements CellFormatter.
func (TextFormatter) FormatCell(record Record, key string) DisplayValue {
	value, ok := ResolvePath(record, key)
	if !ok || value == nil {
		return DisplayValue{Kind: KindText}
	}
	return DisplayValue{Text: stringify(value), Kind: KindText, Raw: value}
}

// NumberFormatter renders numbers with locale grouping and fixed decimals.
type NumberFormatter struct {
	Decimals int
	Locale   string
}

// FormatCell implements CellFormatter.
func (f NumberFormatter) FormatCell(record Record, key string) DisplayValue {
	value, ok := ResolvePath(record, key)
	if !ok || value == nil {
		return DisplayValue{Kind: KindNumber}
	}
	n, ok := numericValue(value)
	if !ok {
		return DisplayValue{Text: stringify(value), Kind: KindNumber, Raw: value}
	}
	return DisplayValue{Text: formatDecimal(f.Locale, n, f.Decimals), Kind: KindNumber, Raw: value}
}

// CurrencyFormatter renders amounts with a currency symbol and two decimals.
type CurrencyFormatter struct {
	Currency string
	Locale   string
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CAD": "CA$",
	"AUD": "A$",
	"MXN": "MX$",
}

// FormatCell implements CellFormatter.
func (f CurrencyFormatter) FormatCell(record Record, key string) DisplayValue {
	value, ok := ResolvePath(record, key)
	if !ok || value == nil {
		return DisplayValue{Kind: KindCurrency}
	}
	amount, ok := numericValue(value)
	if !ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(stringify(value)), 64); err == nil {
			amount = parsed
		} else {
			return DisplayValue{Text: stringify(value), Kind: KindCurrency, Raw: value}
		}
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	text := sign + f.symbol() + formatDecimal(f.Locale, amount, 2)
	return DisplayValue{Text: text, Kind: KindCurrency, Raw: value}
}

func (f CurrencyFormatter) symbol() string {
	code := strings.ToUpper(strings.TrimSpace(f.Currency))
	if code == "" {
		code = "USD"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " "
	}
	if symbol, ok := currencySymbols[unit.String()]; ok {
		return symbol
	}
	return unit.String() + " "
}

// DateFormatter renders time values and date strings with a Go layout.
type DateFormatter struct {
	Layout string
}

var dateInputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatCell implements CellFormatter.
func (f DateFormatter) FormatCell(record Record, key string) DisplayValue {
	value, ok := ResolvePath(record, key)
	if !ok || value == nil {
		return DisplayValue{Kind: KindDate}
	}
	layout := f.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	ts, ok := parseTime(value)
	if !ok {
		return DisplayValue{Text: stringify(value), Kind: KindDate, Raw: value}
	}
	return DisplayValue{Text: ts.Format(layout), Kind: KindDate, Raw: value}
}

func parseTime(value any) (time.Time, bool) {
	switch val := value.(type) {
	case time.Time:
		return val, true
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, true
	case string:
		val = strings.TrimSpace(val)
		for _, layout := range dateInputLayouts {
			if ts, err := time.Parse(layout, val); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

// BadgeFormatter maps status-like values to a label and a visual variant.
type BadgeFormatter struct {
	Variants map[string]string
	Labels   map[string]string
	Default  string
}

// FormatCell implements CellFormatter.
func (f BadgeFormatter) FormatCell(record Record, key string) DisplayValue {
	value, ok := ResolvePath(record, key)
	if !ok || value == nil {
		return DisplayValue{Kind: KindBadge}
	}
	raw := stringify(value)
	variant := f.Default
	if v, ok := f.Variants[raw]; ok {
		variant = v
	}
	if variant == "" {
		variant = "default"
	}
	label := raw
	if l, ok := f.Labels[raw]; ok && l != "" {
		label = l
	}
	return DisplayValue{Text: label, Kind: KindBadge, Variant: variant, Raw: value}
}

func formatDecimal(locale string, value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	printer := message.NewPrinter(localeTag(locale))
	return printer.Sprint(number.Decimal(value,
		number.MinFractionDigits(decimals),
		number.MaxFractionDigits(decimals),
	))
}

func localeTag(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.AmericanEnglish
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

// stringify converts a resolved value into display text.
func stringify(value any) string {
	switch val := value.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
