package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goliatone/go-datatable/components/datatable"
)

type exportCmd struct {
	tableFlags
	Format string `default:"csv" short:"f" enum:"csv,json,xlsx,pdf" help:"Export format."`
	Out    string `short:"o" type:"path" help:"Output file or directory (defaults to the generated file name)."`
}

func (cmd *exportCmd) Run(ctx context.Context, logger *slog.Logger) error {
	svc, viewer, _, err := cmd.prepare(ctx, logger)
	if err != nil {
		return err
	}
	result, err := svc.Export(ctx, viewer, cmd.Table, cmd.Format)
	if err != nil {
		var exportErr *datatable.ExportError
		if errors.As(err, &exportErr) {
			return fmt.Errorf("tablectl: %s", exportErr.Notification())
		}
		return err
	}
	path := exportPath(cmd.Out, result.Filename)
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("tablectl: write export: %w", err)
	}
	fmt.Fprintf(os.Stdout, "✓ Exported %s to %s (%d bytes)\n", cmd.Table, path, len(result.Data))
	return nil
}

// exportPath resolves the destination: empty uses the generated name, a
// directory receives the generated name.
func exportPath(out, filename string) string {
	if out == "" {
		return filename
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, filename)
	}
	return out
}
