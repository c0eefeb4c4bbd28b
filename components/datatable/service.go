package datatable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnknownTable is returned for table codes missing from the registry.
	ErrUnknownTable = errors.New("datatable: unknown table")
	// ErrNoDataSource is returned when a table has no registered source.
	ErrNoDataSource = errors.New("datatable: table has no data source")
	// ErrInvalidRequest is returned for malformed operation input.
	ErrInvalidRequest = errors.New("datatable: invalid request")
)

// Options configures the table Service. Every collaborator is provided via
// interface so applications can swap implementations.
type Options struct {
	Registry   TableRegistry
	Validator  RecordValidator
	Translator TranslationService
	Telemetry  Telemetry
	Exporters  *ExporterSet
	Charts     *SummaryChart
	PageSize   int
	Debounce   time.Duration
}

// Service owns one View per (session, table) and exposes the table
// operations used by transports.
type Service struct {
	opts Options

	mu    sync.Mutex
	views map[viewKey]*View
}

type viewKey struct {
	session string
	table   string
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaValidator()
	}
	if opts.Exporters == nil {
		opts.Exporters = DefaultExporters()
	}
	if opts.Charts == nil {
		opts.Charts = NewSummaryChart()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{opts: opts, views: map[viewKey]*View{}}
}

// Definitions lists the registered tables for navigation.
func (s *Service) Definitions() []TableDefinition {
	return s.opts.Registry.Definitions()
}

// Exporters exposes the export formats available to views.
func (s *Service) Exporters() *ExporterSet {
	return s.opts.Exporters
}

// Table returns the current render description, mounting the view on first
// access.
func (s *Service) Table(ctx context.Context, viewer ViewerContext, table string) (TableRender, error) {
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return TableRender{}, err
	}
	s.recordTelemetry(ctx, "datatable.table.view", map[string]any{"table": table})
	return view.Render(), nil
}

// Search applies a term immediately. Interactive clients debounce on their
// side or through View.Search.
func (s *Service) Search(ctx context.Context, viewer ViewerContext, table, term string) (TableRender, error) {
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return TableRender{}, err
	}
	if err := view.SearchNow(term); err != nil {
		return TableRender{}, err
	}
	return view.Render(), nil
}

// SearchDebounced schedules a search behind the quiet period. Only the last
// term of a burst applies; subscribers from Watch receive the new render.
func (s *Service) SearchDebounced(ctx context.Context, viewer ViewerContext, table, term string) error {
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return err
	}
	view.Search(term)
	return nil
}

// Watch calls fn with every render change of the viewer's table until
// cancel is called or the session ends.
func (s *Service) Watch(ctx context.Context, viewer ViewerContext, table string, fn func(TableRender)) (cancel func(), err error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: watch callback is required", ErrInvalidRequest)
	}
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return nil, err
	}
	return view.Subscribe(fn), nil
}

// Sort toggles the sort on key.
func (s *Service) Sort(ctx context.Context, viewer ViewerContext, table, key string) (TableRender, error) {
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return TableRender{}, err
	}
	if err := view.Sort(key); err != nil {
		return TableRender{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return view.Render(), nil
}

// PageMove is a relative page navigation.
type PageMove string

const (
	PageNext     PageMove = "next"
	PagePrevious PageMove = "previous"
)

// PageRequest selects a page by number or by a relative move.
type PageRequest struct {
	Number int
	Move   PageMove
}

// Page navigates the view.
func (s *Service) Page(ctx context.Context, viewer ViewerContext, table string, req PageRequest) (TableRender, error) {
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return TableRender{}, err
	}
	switch PageMove(strings.ToLower(string(req.Move))) {
	case PageNext:
		err = view.Next()
	case PagePrevious, "prev":
		err = view.Previous()
	case "":
		if req.Number < 1 {
			return TableRender{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidRequest)
		}
		err = view.GoTo(req.Number)
	default:
		return TableRender{}, fmt.Errorf("%w: unknown page move %q", ErrInvalidRequest, req.Move)
	}
	if err != nil {
		return TableRender{}, err
	}
	return view.Render(), nil
}

// Export serializes the viewer's filtered and sorted records.
func (s *Service) Export(ctx context.Context, viewer ViewerContext, table, format string) (ExportResult, error) {
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return ExportResult{}, err
	}
	filename := fmt.Sprintf("%s-%s", table, time.Now().Format("2006-01-02"))
	return view.Export(format, filename)
}

// Summary groups the viewer's filtered records by key and optionally renders
// a chart.
func (s *Service) Summary(ctx context.Context, viewer ViewerContext, table, key, chartType string) (Summary, error) {
	if strings.TrimSpace(key) == "" {
		return Summary{}, fmt.Errorf("%w: summary key is required", ErrInvalidRequest)
	}
	def, ok := s.opts.Registry.Definition(table)
	if !ok {
		return Summary{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	view, err := s.readyView(ctx, viewer, table)
	if err != nil {
		return Summary{}, err
	}
	records, err := view.Records()
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Table:   table,
		Key:     key,
		Total:   len(records),
		Buckets: Summarize(records, key),
	}
	if chartType != "" {
		title := def.TitleForLocale(viewer.Locale) + " by " + HeaderFromKey(key)
		html, err := s.opts.Charts.Render(table, key, chartType, title, summary.Buckets)
		if err != nil {
			return Summary{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		summary.ChartType = strings.ToLower(chartType)
		summary.ChartHTML = html
	}
	return summary, nil
}

// CloseSession disposes every view owned by the session.
func (s *Service) CloseSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	var closing []*View
	for key, view := range s.views {
		if key.session == sessionID {
			closing = append(closing, view)
			delete(s.views, key)
		}
	}
	s.mu.Unlock()
	for _, view := range closing {
		view.Close()
	}
	if len(closing) > 0 {
		s.recordTelemetry(ctx, "datatable.session.closed", map[string]any{"views": len(closing)})
	}
}

// ViewCount reports how many views are live.
func (s *Service) ViewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

func (s *Service) readyView(ctx context.Context, viewer ViewerContext, table string) (*View, error) {
	def, ok := s.opts.Registry.Definition(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	view, err := s.viewFor(ctx, viewer, def)
	if err != nil {
		return nil, err
	}
	if view.Phase() == PhaseReady {
		return view, nil
	}
	if err := s.mount(ctx, def, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) viewFor(ctx context.Context, viewer ViewerContext, def TableDefinition) (*View, error) {
	key := viewKey{session: viewer.SessionID, table: def.Code}
	title := def.TitleForLocale(viewer.Locale)
	emptyMessage := translateOrFallback(ctx, s.opts.Translator, "datatable."+def.Code+".empty", viewer.Locale, def.EmptyMessage)
	if emptyMessage == "datatable."+def.Code+".empty" {
		emptyMessage = ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if view, ok := s.views[key]; ok {
		view.Localize(viewer.Locale, title, emptyMessage)
		return view, nil
	}
	pageSize := def.PageSize
	if pageSize <= 0 {
		pageSize = s.opts.PageSize
	}
	view, err := NewView(def.Columns, ViewOptions{
		Table:        def.Code,
		Title:        title,
		Locale:       viewer.Locale,
		PageSize:     pageSize,
		Debounce:     s.opts.Debounce,
		Filter:       def.Filter,
		SearchFields: def.SearchFields,
		EmptyMessage: emptyMessage,
		Exporters:    s.opts.Exporters,
		Telemetry:    s.opts.Telemetry,
	})
	if err != nil {
		return nil, err
	}
	s.views[key] = view
	return view, nil
}

func (s *Service) mount(ctx context.Context, def TableDefinition, view *View) error {
	source, ok := s.opts.Registry.Source(def.Code)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDataSource, def.Code)
	}
	records, err := source.Records(ctx)
	if err != nil {
		return fmt.Errorf("datatable: load %s: %w", def.Code, err)
	}
	if err := s.opts.Validator.Validate(def, records); err != nil {
		return err
	}
	if err := view.MountRecords(records); err != nil && !errors.Is(err, ErrAlreadyMounted) {
		return err
	}
	return nil
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}
