package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// TableInput identifies a table for a viewer.
type TableInput struct {
	Viewer datatable.ViewerContext
	Table  string
}

type tableService interface {
	Table(ctx context.Context, viewer datatable.ViewerContext, table string) (datatable.TableRender, error)
}

// TableQuery returns the current render description of a table.
type TableQuery struct {
	service tableService
}

// NewTableQuery builds the query.
func NewTableQuery(service tableService) *TableQuery {
	return &TableQuery{service: service}
}

var _ gocommand.Querier[TableInput, datatable.TableRender] = (*TableQuery)(nil)

// Query resolves the table render for the viewer.
func (q *TableQuery) Query(ctx context.Context, input TableInput) (datatable.TableRender, error) {
	return q.service.Table(ctx, input.Viewer, input.Table)
}

type definitionService interface {
	Definitions() []datatable.TableDefinition
}

// TablesQuery lists registered tables for navigation.
type TablesQuery struct {
	service definitionService
}

// NewTablesQuery builds the query.
func NewTablesQuery(service definitionService) *TablesQuery {
	return &TablesQuery{service: service}
}

var _ gocommand.Querier[datatable.ViewerContext, []datatable.TableDefinition] = (*TablesQuery)(nil)

// Query returns the definitions in menu order.
func (q *TablesQuery) Query(_ context.Context, _ datatable.ViewerContext) ([]datatable.TableDefinition, error) {
	return q.service.Definitions(), nil
}
