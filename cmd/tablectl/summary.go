package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/goliatone/go-datatable/components/datatable"
)

type summaryCmd struct {
	tableFlags
	By string `required:"" help:"Field to group records by (dotted paths allowed)."`
}

func (cmd *summaryCmd) Run(ctx context.Context, logger *slog.Logger) error {
	svc, viewer, _, err := cmd.prepare(ctx, logger)
	if err != nil {
		return err
	}
	summary, err := svc.Summary(ctx, viewer, cmd.Table, cmd.By, "")
	if err != nil {
		return err
	}
	return writeSummary(os.Stdout, summary)
}

func writeSummary(w io.Writer, summary datatable.Summary) error {
	rows := make([][]string, 0, len(summary.Buckets)+1)
	for _, bucket := range summary.Buckets {
		rows = append(rows, []string{bucket.Label, strconv.Itoa(bucket.Count)})
	}
	out := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(datatable.HeaderFromKey(summary.Key), "Count").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
	_, err := fmt.Fprintf(w, "%s\n%s\n", out, mutedStyle.Render(fmt.Sprintf("%d records", summary.Total)))
	return err
}
