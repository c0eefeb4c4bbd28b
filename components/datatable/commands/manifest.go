package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// LoadManifestInput points at a table manifest on disk.
type LoadManifestInput struct {
	Path string `json:"path"`
}

type manifestLoader interface {
	LoadManifestFile(path string) (*datatable.TableManifestDocument, error)
}

// LoadManifestCommand registers the tables a manifest declares.
type LoadManifestCommand struct {
	registry  manifestLoader
	telemetry Telemetry
}

// NewLoadManifestCommand wires dependencies.
func NewLoadManifestCommand(registry manifestLoader, telemetry Telemetry) *LoadManifestCommand {
	return &LoadManifestCommand{registry: registry, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoadManifestInput] = (*LoadManifestCommand)(nil)

// Execute loads and registers the manifest.
func (c *LoadManifestCommand) Execute(ctx context.Context, msg LoadManifestInput) error {
	if c.registry == nil {
		return errors.New("manifest command requires registry")
	}
	if msg.Path == "" {
		return errors.New("manifest command requires a path")
	}
	doc, err := c.registry.LoadManifestFile(msg.Path)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "datatable.manifest.load", map[string]any{
		"path":   msg.Path,
		"tables": len(doc.Tables),
	})
	return nil
}
