package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
)

var errMissingTable = errors.New("table code is required")

// SearchTableInput applies a search term to the viewer's table. Result, when
// set, receives the updated render.
type SearchTableInput struct {
	Viewer datatable.ViewerContext `json:"viewer"`
	Table  string                  `json:"table"`
	Term   string                  `json:"term"`
	Result *datatable.TableRender  `json:"-"`
}

type searchService interface {
	Search(ctx context.Context, viewer datatable.ViewerContext, table, term string) (datatable.TableRender, error)
}

// SearchTableCommand narrows a table to records matching a term.
type SearchTableCommand struct {
	service   searchService
	telemetry Telemetry
}

// NewSearchTableCommand creates the command.
func NewSearchTableCommand(service searchService, telemetry Telemetry) *SearchTableCommand {
	return &SearchTableCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SearchTableInput] = (*SearchTableCommand)(nil)

// Execute runs the search.
func (c *SearchTableCommand) Execute(ctx context.Context, msg SearchTableInput) error {
	if c.service == nil {
		return errors.New("search command requires service")
	}
	if msg.Table == "" {
		return errMissingTable
	}
	render, err := c.service.Search(ctx, msg.Viewer, msg.Table, msg.Term)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = render
	}
	c.telemetry.Record(ctx, "datatable.command.search", map[string]any{
		"table":   msg.Table,
		"matches": render.Pagination.Total,
	})
	return nil
}

// SortTableInput toggles the sort on a column.
type SortTableInput struct {
	Viewer datatable.ViewerContext `json:"viewer"`
	Table  string                  `json:"table"`
	Key    string                  `json:"key"`
	Result *datatable.TableRender  `json:"-"`
}

type sortService interface {
	Sort(ctx context.Context, viewer datatable.ViewerContext, table, key string) (datatable.TableRender, error)
}

// SortTableCommand requests a sort; repeating it flips the direction.
type SortTableCommand struct {
	service   sortService
	telemetry Telemetry
}

// NewSortTableCommand creates the command.
func NewSortTableCommand(service sortService, telemetry Telemetry) *SortTableCommand {
	return &SortTableCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SortTableInput] = (*SortTableCommand)(nil)

// Execute applies the sort.
func (c *SortTableCommand) Execute(ctx context.Context, msg SortTableInput) error {
	if c.service == nil {
		return errors.New("sort command requires service")
	}
	if msg.Table == "" {
		return errMissingTable
	}
	if msg.Key == "" {
		return errors.New("sort command requires a key")
	}
	render, err := c.service.Sort(ctx, msg.Viewer, msg.Table, msg.Key)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = render
	}
	c.telemetry.Record(ctx, "datatable.command.sort", map[string]any{
		"table":     msg.Table,
		"key":       render.Sort.Key,
		"direction": string(render.Sort.Direction),
	})
	return nil
}

// PageTableInput navigates to a page number or moves one page.
type PageTableInput struct {
	Viewer datatable.ViewerContext `json:"viewer"`
	Table  string                  `json:"table"`
	Page   int                     `json:"page,omitempty"`
	Move   string                  `json:"move,omitempty"`
	Result *datatable.TableRender  `json:"-"`
}

type pageService interface {
	Page(ctx context.Context, viewer datatable.ViewerContext, table string, req datatable.PageRequest) (datatable.TableRender, error)
}

// PageTableCommand changes the visible page.
type PageTableCommand struct {
	service pageService
}

// NewPageTableCommand creates the command.
func NewPageTableCommand(service pageService) *PageTableCommand {
	return &PageTableCommand{service: service}
}

var _ gocommand.Commander[PageTableInput] = (*PageTableCommand)(nil)

// Execute navigates the table.
func (c *PageTableCommand) Execute(ctx context.Context, msg PageTableInput) error {
	if c.service == nil {
		return errors.New("page command requires service")
	}
	if msg.Table == "" {
		return errMissingTable
	}
	render, err := c.service.Page(ctx, msg.Viewer, msg.Table, datatable.PageRequest{
		Number: msg.Page,
		Move:   datatable.PageMove(msg.Move),
	})
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = render
	}
	return nil
}
