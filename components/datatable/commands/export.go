package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// ExportTableInput requests a download of the viewer's filtered records.
type ExportTableInput struct {
	Viewer datatable.ViewerContext `json:"viewer"`
	Table  string                  `json:"table"`
	Format string                  `json:"format"`
	Result *datatable.ExportResult `json:"-"`
}

type exportService interface {
	Export(ctx context.Context, viewer datatable.ViewerContext, table, format string) (datatable.ExportResult, error)
}

// ExportTableCommand serializes a table. Failures leave table state as is.
type ExportTableCommand struct {
	service   exportService
	telemetry Telemetry
}

// NewExportTableCommand creates the command.
func NewExportTableCommand(service exportService, telemetry Telemetry) *ExportTableCommand {
	return &ExportTableCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ExportTableInput] = (*ExportTableCommand)(nil)

// Execute runs the export.
func (c *ExportTableCommand) Execute(ctx context.Context, msg ExportTableInput) error {
	if c.service == nil {
		return errors.New("export command requires service")
	}
	if msg.Table == "" {
		return errMissingTable
	}
	format := msg.Format
	if format == "" {
		format = "csv"
	}
	result, err := c.service.Export(ctx, msg.Viewer, msg.Table, format)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = result
	}
	c.telemetry.Record(ctx, "datatable.command.export", map[string]any{
		"table":  msg.Table,
		"format": format,
		"bytes":  len(result.Data),
	})
	return nil
}
