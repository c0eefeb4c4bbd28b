package datatable

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultPageSize is the number of rows per page when none is configured.
const DefaultPageSize = 10

var (
	errEmptySortKey      = errors.New("datatable: sort key is required")
	errColumnNotSortable = errors.New("datatable: column is not sortable")
)

// ErrMalformedColumn reports a column with neither a key nor a formatter.
var ErrMalformedColumn = errors.New("datatable: column requires a key or a formatter")

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	PageSize     int
	Filter       FilterFunc
	SearchFields []string
	Telemetry    Telemetry
	Table        string
}

// Processor turns an immutable record slice into a searched, sorted,
// paginated view. It is not safe for concurrent use; View serializes access.
type Processor struct {
	opts     ProcessorOptions
	columns  []Column
	source   []Record
	filtered []Record
	sorted   []Record
	term     string
	sort     SortState
	page     int
}

// NewProcessor validates the columns and copies the input records.
func NewProcessor(records []Record, columns []Column, opts ProcessorOptions) (*Processor, error) {
	if err := ValidateColumns(columns); err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	p := &Processor{
		opts:    opts,
		columns: append([]Column(nil), columns...),
		source:  append([]Record(nil), records...),
		sort:    SortState{Direction: SortAscending},
		page:    1,
	}
	p.filtered = p.source
	p.sorted = p.source
	return p, nil
}

// ValidateColumns rejects descriptors that cannot produce a cell value.
func ValidateColumns(columns []Column) error {
	for idx, col := range columns {
		if col.Key == "" && col.Formatter == nil {
			return fmt.Errorf("%w (column %d, header %q)", ErrMalformedColumn, idx, col.Header)
		}
	}
	return nil
}

// Columns returns the column descriptors.
func (p *Processor) Columns() []Column {
	return append([]Column(nil), p.columns...)
}

// SearchTerm returns the applied search term.
func (p *Processor) SearchTerm() string {
	return p.term
}

// Sort returns the active sort state.
func (p *Processor) Sort() SortState {
	return p.sort
}

// SetSearchTerm re-filters the records, clears the sort and returns to page 1.
func (p *Processor) SetSearchTerm(term string) {
	term = strings.TrimSpace(term)
	if term == p.term {
		return
	}
	p.term = term
	p.sort = SortState{Direction: SortAscending}
	p.page = 1
	if term == "" {
		p.filtered = p.source
	} else if p.opts.Filter != nil {
		p.filtered = p.opts.Filter(p.source, term)
	} else {
		p.filtered = p.matchRecords(term)
	}
	p.sorted = p.filtered
	p.opts.Telemetry.Record(context.Background(), "datatable.search", map[string]any{
		"table":   p.opts.Table,
		"term":    term,
		"matches": len(p.filtered),
	})
}

func (p *Processor) matchRecords(term string) []Record {
	needle := strings.ToLower(term)
	fields := p.searchFields()
	out := make([]Record, 0, len(p.source))
	for _, record := range p.source {
		for _, field := range fields {
			value, ok := ResolvePath(record, field)
			if !ok || value == nil {
				continue
			}
			if strings.Contains(strings.ToLower(stringify(value)), needle) {
				out = append(out, record)
				break
			}
		}
	}
	return out
}

func (p *Processor) searchFields() []string {
	if len(p.opts.SearchFields) > 0 {
		return p.opts.SearchFields
	}
	fields := make([]string, 0, len(p.columns))
	for _, col := range p.columns {
		if col.Key != "" {
			fields = append(fields, col.Key)
		}
	}
	return fields
}

// RequestSort flips the direction for the active key or sorts ascending by a
// new key.
func (p *Processor) RequestSort(key string) error {
	if key == "" {
		return errEmptySortKey
	}
	if col, ok := p.column(key); ok && !col.Sortable {
		return fmt.Errorf("%w: %s", errColumnNotSortable, key)
	}
	next := SortState{Key: key, Direction: SortAscending}
	if p.sort.Key == key && p.sort.Direction == SortAscending {
		next.Direction = SortDescending
	}
	p.sort = next
	p.sorted = sortRecords(p.filtered, next)
	p.page = clampPage(p.page, p.TotalPages())
	p.opts.Telemetry.Record(context.Background(), "datatable.sort", map[string]any{
		"table":     p.opts.Table,
		"key":       next.Key,
		"direction": string(next.Direction),
	})
	return nil
}

func (p *Processor) column(key string) (Column, bool) {
	for _, col := range p.columns {
		if col.Key == key {
			return col, true
		}
	}
	return Column{}, false
}

func sortRecords(records []Record, state SortState) []Record {
	sorted := append([]Record(nil), records...)
	if !state.Active() {
		return sorted
	}
	slices.SortStableFunc(sorted, func(a, b Record) int {
		av, aok := ResolvePath(a, state.Key)
		bv, bok := ResolvePath(b, state.Key)
		aMissing := !aok || rankOf(derefTime(av)) == rankMissing
		bMissing := !bok || rankOf(derefTime(bv)) == rankMissing
		switch {
		case aMissing && bMissing:
			return 0
		case aMissing:
			return 1
		case bMissing:
			return -1
		}
		c := compareValues(av, bv)
		if state.Direction == SortDescending {
			return -c
		}
		return c
	})
	return sorted
}

// Len returns the number of records after filtering.
func (p *Processor) Len() int {
	return len(p.sorted)
}

// PageSize returns the configured page size.
func (p *Processor) PageSize() int {
	return p.opts.PageSize
}

// TotalPages returns ceil(Len / PageSize); zero when nothing matches.
func (p *Processor) TotalPages() int {
	n := len(p.sorted)
	if n == 0 {
		return 0
	}
	return (n + p.opts.PageSize - 1) / p.opts.PageSize
}

// CurrentPage returns the 1-based page being displayed.
func (p *Processor) CurrentPage() int {
	return p.page
}

// Page clamps the requested page, makes it current and returns its rows.
func (p *Processor) Page(number int) Page {
	total := p.TotalPages()
	p.page = clampPage(number, total)
	page := Page{
		Number:       p.page,
		Size:         p.opts.PageSize,
		TotalPages:   total,
		TotalRecords: len(p.sorted),
		Records:      []Record{},
	}
	if total == 0 {
		return page
	}
	start := (p.page - 1) * p.opts.PageSize
	end := min(start+p.opts.PageSize, len(p.sorted))
	page.Records = append(page.Records, p.sorted[start:end]...)
	return page
}

// Next advances one page, stopping at the last page.
func (p *Processor) Next() Page {
	return p.Page(p.page + 1)
}

// Previous moves back one page, stopping at the first page.
func (p *Processor) Previous() Page {
	return p.Page(p.page - 1)
}

// Records returns every filtered and sorted record, unpaginated.
func (p *Processor) Records() []Record {
	return append([]Record(nil), p.sorted...)
}

// Render produces the display value for one cell.
func (p *Processor) Render(record Record, column Column) DisplayValue {
	return RenderCell(record, column)
}

// RenderCell uses the column formatter when present, otherwise the raw value
// at the column key. Missing values render empty.
func RenderCell(record Record, column Column) DisplayValue {
	if column.Formatter != nil {
		return column.Formatter.FormatCell(record, column.Key)
	}
	return TextFormatter{}.FormatCell(record, column.Key)
}

func clampPage(number, total int) int {
	if number < 1 || total == 0 {
		return 1
	}
	if number > total {
		return total
	}
	return number
}
