package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// SummaryInput groups a table by Key and optionally charts it.
type SummaryInput struct {
	Viewer datatable.ViewerContext
	Table  string
	Key    string
	Chart  string
}

type summaryService interface {
	Summary(ctx context.Context, viewer datatable.ViewerContext, table, key, chartType string) (datatable.Summary, error)
}

// SummaryQuery counts the viewer's filtered records per value.
type SummaryQuery struct {
	service summaryService
}

// NewSummaryQuery builds the query.
func NewSummaryQuery(service summaryService) *SummaryQuery {
	return &SummaryQuery{service: service}
}

var _ gocommand.Querier[SummaryInput, datatable.Summary] = (*SummaryQuery)(nil)

// Query resolves the summary.
func (q *SummaryQuery) Query(ctx context.Context, input SummaryInput) (datatable.Summary, error) {
	return q.service.Summary(ctx, input.Viewer, input.Table, input.Key, input.Chart)
}
