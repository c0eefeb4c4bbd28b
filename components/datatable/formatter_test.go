package datatable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormatterMissingValueRendersEmpty(t *testing.T) {
	out := TextFormatter{}.FormatCell(Record{"name": "Amy"}, "email")
	assert.Equal(t, "", out.Text)
	assert.Equal(t, KindText, out.Kind)

	out = TextFormatter{}.FormatCell(Record{"orders": 3}, "orders")
	assert.Equal(t, "3", out.Text)
}

func TestCurrencyFormatter(t *testing.T) {
	f := CurrencyFormatter{Currency: "USD"}
	assert.Equal(t, "$12.50", f.FormatCell(Record{"amount": 12.5}, "amount").Text)
	assert.Equal(t, "$49.99", f.FormatCell(Record{"amount": "49.99"}, "amount").Text)
	assert.Equal(t, "-$3.00", f.FormatCell(Record{"amount": -3}, "amount").Text)
	assert.Equal(t, "€5.00", CurrencyFormatter{Currency: "eur"}.FormatCell(Record{"amount": 5}, "amount").Text)

	out := f.FormatCell(Record{"amount": "n/a"}, "amount")
	assert.Equal(t, "n/a", out.Text)
	assert.Equal(t, KindCurrency, out.Kind)
}

func TestNumberFormatterGroupsThousands(t *testing.T) {
	out := NumberFormatter{}.FormatCell(Record{"stock": 1234}, "stock")
	assert.Equal(t, "1,234", out.Text)
	assert.Equal(t, 1234, out.Raw)
}

func TestDateFormatter(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mar 9, 2024", DateFormatter{}.FormatCell(Record{"at": ts}, "at").Text)
	assert.Equal(t, "Mar 9, 2024", DateFormatter{}.FormatCell(Record{"at": "2024-03-09"}, "at").Text)
	assert.Equal(t, "2024/03/09", DateFormatter{Layout: "2006/01/02"}.FormatCell(Record{"at": "2024-03-09T10:00:00Z"}, "at").Text)
	assert.Equal(t, "soon", DateFormatter{}.FormatCell(Record{"at": "soon"}, "at").Text)
}

func TestBadgeFormatter(t *testing.T) {
	f := BadgeFormatter{
		Variants: map[string]string{"in-stock": "default", "out-of-stock": "destructive"},
		Labels:   map[string]string{"out-of-stock": "Out of Stock"},
		Default:  "outline",
	}
	out := f.FormatCell(Record{"status": "out-of-stock"}, "status")
	assert.Equal(t, DisplayValue{Text: "Out of Stock", Kind: KindBadge, Variant: "destructive", Raw: "out-of-stock"}, out)

	out = f.FormatCell(Record{"status": "archived"}, "status")
	assert.Equal(t, "outline", out.Variant)
	assert.Equal(t, "archived", out.Text)

	out = BadgeFormatter{}.FormatCell(Record{"status": "x"}, "status")
	assert.Equal(t, "default", out.Variant)
}

func TestFormatterFuncDefaultsKind(t *testing.T) {
	f := FormatterFunc(func(r Record) DisplayValue {
		return DisplayValue{Text: r["first"].(string) + " " + r["last"].(string)}
	})
	out := RenderCell(Record{"first": "Ada", "last": "Lovelace"}, Column{Header: "Full name", Formatter: f})
	assert.Equal(t, "Ada Lovelace", out.Text)
	assert.Equal(t, KindCustom, out.Kind)
}

func TestBuildFormatter(t *testing.T) {
	f, err := BuildFormatter(FormatSpec{}, nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = BuildFormatter(FormatSpec{Type: "currency", Currency: "USD"}, nil)
	require.NoError(t, err)
	assert.Equal(t, CurrencyFormatter{Currency: "USD"}, f)

	_, err = BuildFormatter(FormatSpec{Type: "sparkline"}, nil)
	assert.Error(t, err)

	_, err = BuildFormatter(FormatSpec{Type: "custom", Name: "initials"}, nil)
	assert.Error(t, err)

	custom := TextFormatter{}
	f, err = BuildFormatter(FormatSpec{Type: "custom", Name: "initials"}, func(name string) (CellFormatter, bool) {
		return custom, name == "initials"
	})
	require.NoError(t, err)
	assert.Equal(t, custom, f)
}

func TestResolvePath(t *testing.T) {
	record := Record{
		"customer":      map[string]any{"address": map[string]string{"city": "Lyon"}},
		"customer.name": "literal",
	}
	v, ok := ResolvePath(record, "customer.address.city")
	assert.True(t, ok)
	assert.Equal(t, "Lyon", v)

	v, ok = ResolvePath(record, "customer.name")
	assert.True(t, ok)
	assert.Equal(t, "literal", v)

	_, ok = ResolvePath(record, "customer.phone")
	assert.False(t, ok)
}

func TestLocalizedHeaders(t *testing.T) {
	col := Column{Key: "name", Header: "Customer", HeaderLocalized: map[string]string{"es": "Cliente"}}
	assert.Equal(t, "Cliente", col.HeaderForLocale("es-MX"))
	assert.Equal(t, "Customer", col.HeaderForLocale("fr"))
	assert.Equal(t, "Customer", col.HeaderForLocale(""))
}
