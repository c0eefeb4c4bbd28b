package datatable

// Defaults for loading and empty render states.
const (
	DefaultSkeletonRows = 5
	DefaultEmptyMessage = "No data available"
	DefaultEmptyHint    = "Try adjusting your search or filters."
)

// TableRender is the structured render description for a table surface.
type TableRender struct {
	Table      string           `json:"table,omitempty"`
	Title      string           `json:"title,omitempty"`
	Phase      Phase            `json:"phase"`
	Headers    []HeaderRender   `json:"headers"`
	Rows       []RowRender      `json:"rows"`
	Pagination PaginationRender `json:"pagination"`
	Empty      *EmptyState      `json:"empty,omitempty"`
	Skeleton   int              `json:"skeleton,omitempty"`
	SearchTerm string           `json:"search_term"`
	Sort       SortState        `json:"sort"`
}

// HeaderRender describes one column header.
type HeaderRender struct {
	Key       string        `json:"key"`
	Label     string        `json:"label"`
	Sortable  bool          `json:"sortable"`
	Sorted    bool          `json:"sorted"`
	Direction SortDirection `json:"direction,omitempty"`
}

// RowRender is one rendered row.
type RowRender struct {
	Index int          `json:"index"`
	Cells []CellRender `json:"cells"`
}

// CellRender pairs a column key with its display value.
type CellRender struct {
	Key   string       `json:"key"`
	Value DisplayValue `json:"value"`
}

// PaginationRender drives previous/next and explicit page controls.
type PaginationRender struct {
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	Total       int   `json:"total"`
	From        int   `json:"from"`
	To          int   `json:"to"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
	Pages       []int `json:"pages,omitempty"`
}

// EmptyState is shown when no rows match.
type EmptyState struct {
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

// RenderOptions carries presentation details for BuildRender.
type RenderOptions struct {
	Table        string
	Title        string
	Locale       string
	EmptyMessage string
	EmptyHint    string
}

// BuildRender renders the current page of a processor.
func BuildRender(p *Processor, opts RenderOptions) TableRender {
	page := p.Page(p.CurrentPage())
	sort := p.Sort()
	columns := p.Columns()
	out := TableRender{
		Table:      opts.Table,
		Title:      opts.Title,
		Phase:      PhaseReady,
		Headers:    buildHeaders(columns, sort, opts.Locale),
		Rows:       make([]RowRender, 0, len(page.Records)),
		SearchTerm: p.SearchTerm(),
		Sort:       sort,
		Pagination: buildPagination(page),
	}
	offset := (page.Number - 1) * page.Size
	for i, record := range page.Records {
		row := RowRender{Index: offset + i, Cells: make([]CellRender, 0, len(columns))}
		for _, col := range columns {
			row.Cells = append(row.Cells, CellRender{Key: col.Key, Value: p.Render(record, col)})
		}
		out.Rows = append(out.Rows, row)
	}
	if page.TotalRecords == 0 {
		out.Empty = emptyState(opts)
	}
	return out
}

// LoadingRender is the deterministic skeleton shown before data resolves.
func LoadingRender(columns []Column, opts RenderOptions) TableRender {
	return TableRender{
		Table:    opts.Table,
		Title:    opts.Title,
		Phase:    PhaseLoading,
		Headers:  buildHeaders(columns, SortState{}, opts.Locale),
		Rows:     []RowRender{},
		Skeleton: DefaultSkeletonRows,
		Sort:     SortState{Direction: SortAscending},
	}
}

func buildHeaders(columns []Column, sort SortState, locale string) []HeaderRender {
	headers := make([]HeaderRender, 0, len(columns))
	for _, col := range columns {
		header := HeaderRender{
			Key:      col.Key,
			Label:    col.HeaderForLocale(locale),
			Sortable: col.Sortable,
		}
		if sort.Active() && sort.Key == col.Key {
			header.Sorted = true
			header.Direction = sort.Direction
		}
		headers = append(headers, header)
	}
	return headers
}

func buildPagination(page Page) PaginationRender {
	out := PaginationRender{
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: page.TotalPages,
		Total:      page.TotalRecords,
	}
	if page.TotalRecords == 0 {
		return out
	}
	out.From = (page.Number-1)*page.Size + 1
	out.To = out.From + len(page.Records) - 1
	out.HasPrevious = page.Number > 1
	out.HasNext = page.Number < page.TotalPages
	out.Pages = make([]int, page.TotalPages)
	for i := range out.Pages {
		out.Pages[i] = i + 1
	}
	return out
}

func emptyState(opts RenderOptions) *EmptyState {
	msg := opts.EmptyMessage
	if msg == "" {
		msg = DefaultEmptyMessage
	}
	hint := opts.EmptyHint
	if hint == "" {
		hint = DefaultEmptyHint
	}
	return &EmptyState{Message: msg, Hint: hint}
}
