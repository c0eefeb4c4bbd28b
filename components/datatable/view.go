package datatable

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrAlreadyMounted is returned when a ready view is mounted again.
	ErrAlreadyMounted = errors.New("datatable: view already mounted")
	// ErrNotReady is returned for data operations before the view is ready.
	ErrNotReady = errors.New("datatable: view is still loading")
	// ErrViewClosed is returned once the view has been disposed.
	ErrViewClosed = errors.New("datatable: view is closed")

	errMissingDataSource = errors.New("datatable: data source is required")
)

// ViewOptions configures a View.
type ViewOptions struct {
	Table        string
	Title        string
	Locale       string
	PageSize     int
	Debounce     time.Duration
	Filter       FilterFunc
	SearchFields []string
	EmptyMessage string
	EmptyHint    string
	Exporters    *ExporterSet
	Telemetry    Telemetry
	OnChange     func(TableRender)
}

// View owns the ephemeral table state for one viewer: Loading until its data
// source resolves, then Ready for the rest of its life.
type View struct {
	opts    ViewOptions
	columns []Column

	mu        sync.Mutex
	phase     Phase
	listeners map[int]func(TableRender)
	nextID    int
	processor *Processor
	debouncer *Debouncer
	closed    bool
	// term typed while loading, applied once records arrive
	earlyTerm string
}

// NewView validates the columns and returns a loading view.
func NewView(columns []Column, opts ViewOptions) (*View, error) {
	if err := ValidateColumns(columns); err != nil {
		return nil, err
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	if opts.Exporters == nil {
		opts.Exporters = DefaultExporters()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	v := &View{
		opts:    opts,
		columns: append([]Column(nil), columns...),
		phase:   PhaseLoading,
	}
	v.debouncer = NewDebouncer(opts.Debounce, v.applySearch)
	return v, nil
}

// Phase returns the current lifecycle phase.
func (v *View) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Mount loads the records and moves the view to Ready. A failed load leaves
// the view loading so the caller may mount again.
func (v *View) Mount(ctx context.Context, source DataSource) error {
	if source == nil {
		return errMissingDataSource
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.phase == PhaseReady {
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	v.mu.Unlock()

	records, err := source.Records(ctx)
	if err != nil {
		return err
	}
	return v.ready(records)
}

// MountRecords moves the view to Ready with already resolved records.
func (v *View) MountRecords(records []Record) error {
	return v.ready(records)
}

func (v *View) ready(records []Record) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.phase == PhaseReady {
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	processor, err := NewProcessor(records, v.columns, ProcessorOptions{
		PageSize:     v.opts.PageSize,
		Filter:       v.opts.Filter,
		SearchFields: v.opts.SearchFields,
		Telemetry:    v.opts.Telemetry,
		Table:        v.opts.Table,
	})
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if v.earlyTerm != "" {
		processor.SetSearchTerm(v.earlyTerm)
		v.earlyTerm = ""
	}
	v.processor = processor
	v.phase = PhaseReady
	render := v.renderLocked()
	v.mu.Unlock()
	v.opts.Telemetry.Record(context.Background(), "datatable.view.ready", map[string]any{
		"table":   v.opts.Table,
		"records": len(records),
	})
	v.notify(render)
	return nil
}

// Search schedules a debounced search. Only the last term in a burst applies.
func (v *View) Search(term string) {
	v.debouncer.Trigger(term)
}

// SearchNow applies a search term without waiting for the quiet period,
// dropping any pending debounced term.
func (v *View) SearchNow(term string) error {
	if !v.debouncer.Fire(term) {
		return ErrViewClosed
	}
	return v.readyErr()
}

// FlushSearch applies a pending debounced term immediately.
func (v *View) FlushSearch() bool {
	return v.debouncer.Flush()
}

func (v *View) applySearch(term string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if v.processor == nil {
		v.earlyTerm = term
		v.mu.Unlock()
		return
	}
	v.processor.SetSearchTerm(term)
	render := v.renderLocked()
	v.mu.Unlock()
	v.notify(render)
}

// Localize switches the locale-dependent render strings. The next render
// and every change notification use them.
func (v *View) Localize(locale, title, emptyMessage string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.Locale = locale
	v.opts.Title = title
	v.opts.EmptyMessage = emptyMessage
}

// Subscribe registers fn for every render change until cancel is called.
func (v *View) Subscribe(fn func(TableRender)) (cancel func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return func() {}
	}
	if v.listeners == nil {
		v.listeners = map[int]func(TableRender){}
	}
	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.listeners, id)
	}
}

// Sort requests a sort on key; repeated requests toggle the direction.
func (v *View) Sort(key string) error {
	return v.mutate(func(p *Processor) error {
		return p.RequestSort(key)
	})
}

// GoTo navigates to a page, clamped to the available range.
func (v *View) GoTo(page int) error {
	return v.mutate(func(p *Processor) error {
		p.Page(page)
		return nil
	})
}

// Next moves to the following page.
func (v *View) Next() error {
	return v.mutate(func(p *Processor) error {
		p.Next()
		return nil
	})
}

// Previous moves to the preceding page.
func (v *View) Previous() error {
	return v.mutate(func(p *Processor) error {
		p.Previous()
		return nil
	})
}

func (v *View) mutate(fn func(*Processor) error) error {
	v.mu.Lock()
	if err := v.readyErrLocked(); err != nil {
		v.mu.Unlock()
		return err
	}
	if err := fn(v.processor); err != nil {
		v.mu.Unlock()
		return err
	}
	render := v.renderLocked()
	v.mu.Unlock()
	v.notify(render)
	return nil
}

// Render returns the render description for the current state.
func (v *View) Render() TableRender {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderLocked()
}

func (v *View) renderLocked() TableRender {
	opts := RenderOptions{
		Table:        v.opts.Table,
		Title:        v.opts.Title,
		Locale:       v.opts.Locale,
		EmptyMessage: v.opts.EmptyMessage,
		EmptyHint:    v.opts.EmptyHint,
	}
	if v.phase != PhaseReady || v.processor == nil {
		return LoadingRender(v.columns, opts)
	}
	return BuildRender(v.processor, opts)
}

// Records returns the full filtered and sorted records.
func (v *View) Records() ([]Record, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.readyErrLocked(); err != nil {
		return nil, err
	}
	return v.processor.Records(), nil
}

// Export serializes the full filtered and sorted records.
func (v *View) Export(format, filename string) (ExportResult, error) {
	records, err := v.Records()
	if err != nil {
		return ExportResult{}, err
	}
	if filename == "" {
		filename = v.opts.Table
	}
	result, err := v.opts.Exporters.Export(format, filename, records, v.columns)
	fields := map[string]any{
		"table":   v.opts.Table,
		"format":  format,
		"records": len(records),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	v.opts.Telemetry.Record(context.Background(), "datatable.export", fields)
	return result, err
}

// Close cancels the pending search and disposes the view.
func (v *View) Close() {
	v.debouncer.Stop()
	v.mu.Lock()
	v.closed = true
	v.listeners = nil
	v.mu.Unlock()
}

func (v *View) readyErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readyErrLocked()
}

func (v *View) readyErrLocked() error {
	if v.closed {
		return ErrViewClosed
	}
	if v.phase != PhaseReady || v.processor == nil {
		return ErrNotReady
	}
	return nil
}

func (v *View) notify(render TableRender) {
	if v.opts.OnChange != nil {
		v.opts.OnChange(render)
	}
	v.mu.Lock()
	listeners := make([]func(TableRender), 0, len(v.listeners))
	for _, fn := range v.listeners {
		listeners = append(listeners, fn)
	}
	v.mu.Unlock()
	for _, fn := range listeners {
		fn(render)
	}
}
