package datatable

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture() ([]Record, []Column) {
	records := []Record{
		{"id": "ORD-1", "customer": `Ann "The Boss" Lee`, "amount": 12.5},
		{"id": "ORD-2", "customer": "Bo, Inc", "amount": 3},
	}
	columns := []Column{
		{Key: "id", Header: "Order ID"},
		{Key: "customer", Header: "Customer"},
		{Key: "amount", Header: "Amount", Formatter: CurrencyFormatter{Currency: "USD"}},
	}
	return records, columns
}

func TestCSVExporterQuotesEveryField(t *testing.T) {
	records, columns := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, CSVExporter{}.Export(&buf, records, columns))
	want := "\"Order ID\",\"Customer\",\"Amount\"\n" +
		"\"ORD-1\",\"Ann \"\"The Boss\"\" Lee\",\"$12.50\"\n" +
		"\"ORD-2\",\"Bo, Inc\",\"$3.00\""
	assert.Equal(t, want, buf.String())
}

func TestJSONExporterWritesRawRecords(t *testing.T) {
	records, columns := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, JSONExporter{}.Export(&buf, records, columns))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 12.5, decoded[0]["amount"])
	assert.Contains(t, buf.String(), "\n  {")
}

func TestXLSXExporterWritesSheet(t *testing.T) {
	records, columns := exportFixture()
	columns[2].Formatter = nil
	var buf bytes.Buffer
	require.NoError(t, XLSXExporter{}.Export(&buf, records, columns))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Order ID", "Customer", "Amount"}, rows[0])
	assert.Equal(t, "ORD-2", rows[2][0])
	assert.Equal(t, "12.5", rows[1][2])
}

func TestPDFExporterWritesDocument(t *testing.T) {
	records, columns := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, PDFExporter{Title: "Transactions"}.Export(&buf, records, columns))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestExporterSetErrors(t *testing.T) {
	records, columns := exportFixture()
	set := DefaultExporters()
	assert.Equal(t, []string{"csv", "json", "pdf", "xlsx"}, set.Formats())

	_, err := set.Export("csv", "x", nil, columns)
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.ErrorIs(t, err, ErrNothingToExport)

	_, err = set.Export("docx", "x", records, columns)
	require.ErrorAs(t, err, &exportErr)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Equal(t, `Export format "docx" is not available.`, exportErr.Notification())

	result, err := set.Export("JSON", "", records, columns)
	require.NoError(t, err)
	assert.Equal(t, "export.json", result.Filename)
	assert.Equal(t, "application/json", result.ContentType)
}

type failingExporter struct{}

func (failingExporter) Format() string      { return "csv" }
func (failingExporter) Extension() string   { return "csv" }
func (failingExporter) ContentType() string { return "text/csv" }
func (failingExporter) Export(io.Writer, []Record, []Column) error {
	return errors.New("disk full")
}

func TestExporterSetWrapsFailures(t *testing.T) {
	records, columns := exportFixture()
	set := NewExporterSet(failingExporter{})
	_, err := set.Export("csv", "x", records, columns)
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "Export as CSV failed. Please try again.", exportErr.Notification())
}
