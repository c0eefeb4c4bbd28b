package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/goliatone/go-datatable/components/datatable"
)

type renderCmd struct {
	tableFlags
	Page int `default:"1" short:"p" help:"Page number to print."`
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func (cmd *renderCmd) Run(ctx context.Context, logger *slog.Logger) error {
	svc, viewer, render, err := cmd.prepare(ctx, logger)
	if err != nil {
		return err
	}
	if cmd.Page > 1 {
		if render, err = svc.Page(ctx, viewer, cmd.Table, datatable.PageRequest{Number: cmd.Page}); err != nil {
			return err
		}
	}
	return writeRender(os.Stdout, render)
}

func writeRender(w io.Writer, render datatable.TableRender) error {
	if render.Empty != nil {
		_, err := fmt.Fprintf(w, "%s\n%s\n", render.Empty.Message, mutedStyle.Render(render.Empty.Hint))
		return err
	}
	if _, err := fmt.Fprintln(w, renderTable(render)); err != nil {
		return err
	}
	p := render.Pagination
	_, err := fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Showing %d to %d of %d results (page %d of %d)", p.From, p.To, p.Total, p.Page, p.TotalPages)))
	return err
}

func renderTable(render datatable.TableRender) string {
	headers := make([]string, len(render.Headers))
	for i, header := range render.Headers {
		label := header.Label
		switch {
		case header.Sorted && header.Direction == datatable.SortAscending:
			label += " ▲"
		case header.Sorted && header.Direction == datatable.SortDescending:
			label += " ▼"
		}
		headers[i] = label
	}
	rows := make([][]string, len(render.Rows))
	for i, row := range render.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.Value.Text
		}
		rows[i] = cells
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
