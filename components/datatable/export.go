package datatable

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/phpdave11/gofpdf"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrNothingToExport is returned when the filtered set is empty.
	ErrNothingToExport = errors.New("datatable: nothing to export")
	// ErrUnknownFormat is returned for formats without a registered exporter.
	ErrUnknownFormat = errors.New("datatable: unknown export format")
)

// Exporter serializes records into one file format.
type Exporter interface {
	Format() string
	Extension() string
	ContentType() string
	Export(w io.Writer, records []Record, columns []Column) error
}

// ExportResult is a finished export ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportError wraps export failures. They never affect table state and are
// surfaced to users as a notification.
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("datatable: export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Notification is the non-fatal message shown to users.
func (e *ExportError) Notification() string {
	switch {
	case errors.Is(e.Err, ErrNothingToExport):
		return "There is no data to export."
	case errors.Is(e.Err, ErrUnknownFormat):
		return fmt.Sprintf("Export format %q is not available.", e.Format)
	default:
		return fmt.Sprintf("Export as %s failed. Please try again.", strings.ToUpper(e.Format))
	}
}

// ExporterSet stores exporters by format name.
type ExporterSet struct {
	mu        sync.RWMutex
	exporters map[string]Exporter
}

// NewExporterSet builds a set from the given exporters.
func NewExporterSet(exporters ...Exporter) *ExporterSet {
	set := &ExporterSet{exporters: map[string]Exporter{}}
	for _, e := range exporters {
		set.Register(e)
	}
	return set
}

// DefaultExporters returns csv, json, xlsx and pdf exporters.
func DefaultExporters() *ExporterSet {
	return NewExporterSet(CSVExporter{}, JSONExporter{}, XLSXExporter{}, PDFExporter{})
}

// Register adds or replaces an exporter.
func (s *ExporterSet) Register(e Exporter) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exporters[strings.ToLower(e.Format())] = e
}

// Lookup returns the exporter for a format.
func (s *ExporterSet) Lookup(format string) (Exporter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exporters[strings.ToLower(strings.TrimSpace(format))]
	return e, ok
}

// Formats lists the registered format names.
func (s *ExporterSet) Formats() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.exporters))
	for name := range s.exporters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Export runs the exporter for format over records.
func (s *ExporterSet) Export(format, filename string, records []Record, columns []Column) (ExportResult, error) {
	exporter, ok := s.Lookup(format)
	if !ok {
		return ExportResult{}, &ExportError{Format: format, Err: ErrUnknownFormat}
	}
	if len(records) == 0 {
		return ExportResult{}, &ExportError{Format: exporter.Format(), Err: ErrNothingToExport}
	}
	var buf bytes.Buffer
	if err := exporter.Export(&buf, records, columns); err != nil {
		return ExportResult{}, &ExportError{Format: exporter.Format(), Err: err}
	}
	if filename == "" {
		filename = "export"
	}
	return ExportResult{
		Filename:    filename + "." + exporter.Extension(),
		ContentType: exporter.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// CSVExporter writes every field quoted, with embedded quotes doubled.
type CSVExporter struct{}

func (CSVExporter) Format() string      { return "csv" }
func (CSVExporter) Extension() string   { return "csv" }
func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// Export implements Exporter.
func (CSVExporter) Export(w io.Writer, records []Record, columns []Column) error {
	lines := make([]string, 0, len(records)+1)
	fields := make([]string, len(columns))
	for i, col := range columns {
		fields[i] = quoteCSV(col.Header)
	}
	lines = append(lines, strings.Join(fields, ","))
	for _, record := range records {
		for i, col := range columns {
			fields[i] = quoteCSV(RenderCell(record, col).Text)
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func quoteCSV(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// JSONExporter writes the raw records as indented JSON.
type JSONExporter struct{}

func (JSONExporter) Format() string      { return "json" }
func (JSONExporter) Extension() string   { return "json" }
func (JSONExporter) ContentType() string { return "application/json" }

// Export implements Exporter.
func (JSONExporter) Export(w io.Writer, records []Record, _ []Column) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// XLSXExporter writes a single-sheet workbook.
type XLSXExporter struct {
	Sheet string
}

func (XLSXExporter) Format() string    { return "xlsx" }
func (XLSXExporter) Extension() string { return "xlsx" }
func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export implements Exporter.
func (e XLSXExporter) Export(w io.Writer, records []Record, columns []Column) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	if e.Sheet != "" && e.Sheet != sheet {
		if err := f.SetSheetName(sheet, e.Sheet); err != nil {
			return err
		}
		sheet = e.Sheet
	}
	for i, col := range columns {
		if err := setCell(f, sheet, i+1, 1, col.Header); err != nil {
			return err
		}
	}
	for r, record := range records {
		for c, col := range columns {
			if err := setCell(f, sheet, c+1, r+2, spreadsheetValue(record, col)); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func spreadsheetValue(record Record, col Column) any {
	if col.Formatter != nil {
		return RenderCell(record, col).Text
	}
	value, ok := ResolvePath(record, col.Key)
	if !ok || value == nil {
		return ""
	}
	switch value.(type) {
	case string, bool, float64, float32, int, int64, int32:
		return value
	}
	if n, ok := numericValue(value); ok {
		return n
	}
	return stringify(value)
}

// PDFExporter writes a landscape A4 table.
type PDFExporter struct {
	Title string
}

func (PDFExporter) Format() string      { return "pdf" }
func (PDFExporter) Extension() string   { return "pdf" }
func (PDFExporter) ContentType() string { return "application/pdf" }

const pdfRowHeight = 7.0

// Export implements Exporter.
func (e PDFExporter) Export(w io.Writer, records []Record, columns []Column) error {
	if len(columns) == 0 {
		return errors.New("no columns to export")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := e.Title
	if title == "" {
		title = "Export"
	}
	pdf.SetTitle(title, true)
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := (pageWidth - left - right) / float64(len(columns))

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		for _, col := range columns {
			pdf.CellFormat(width, pdfRowHeight, tr(fitText(pdf, col.Header, width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(pdfRowHeight)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, record := range records {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for _, col := range columns {
			text := RenderCell(record, col).Text
			pdf.CellFormat(width, pdfRowHeight, tr(fitText(pdf, text, width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(pdfRowHeight)
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func fitText(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
