package datatable

import "context"

// Record is one row of domain data keyed by field name.
type Record = map[string]any

// DataSource resolves the records backing a table view.
type DataSource interface {
	Records(ctx context.Context) ([]Record, error)
}

// DataSourceFunc adapts a function into a DataSource.
type DataSourceFunc func(ctx context.Context) ([]Record, error)

// Records implements DataSource.
func (fn DataSourceFunc) Records(ctx context.Context) ([]Record, error) {
	return fn(ctx)
}

// FilterFunc narrows the raw records for a search term. Implementations must
// not mutate the input slice.
type FilterFunc func(records []Record, term string) []Record

// Column describes how to label, sort, and render one column.
type Column struct {
	Key             string            `json:"key" yaml:"key"`
	Header          string            `json:"header" yaml:"header"`
	HeaderLocalized map[string]string `json:"header_localized,omitempty" yaml:"header_localized,omitempty"`
	Sortable        bool              `json:"sortable" yaml:"sortable"`
	Formatter       CellFormatter     `json:"-" yaml:"-"`
}

// HeaderForLocale returns the localized header with fallback to Header.
func (c Column) HeaderForLocale(locale string) string {
	return ResolveLocalizedValue(c.HeaderLocalized, locale, c.Header)
}

// SortDirection is the ordering applied to the sort key.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortState tracks the active sort key. An empty key means input order.
type SortState struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// Active reports whether a sort key is set.
func (s SortState) Active() bool {
	return s.Key != ""
}

// Phase is the observable lifecycle stage of a view.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// ViewerContext identifies who is looking at a table.
type ViewerContext struct {
	SessionID string
	UserID    string
	Locale    string
}

// Page is one slice of the processed records.
type Page struct {
	Number       int
	Size         int
	TotalPages   int
	TotalRecords int
	Records      []Record
}
