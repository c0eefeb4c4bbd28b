package datatable

import (
	"context"
	"errors"
	"io"
)

// DefaultTableTemplate is the embedded page template name.
const DefaultTableTemplate = "table.html"

// TableResolver is the subset of Service the controller renders from.
type TableResolver interface {
	Table(ctx context.Context, viewer ViewerContext, table string) (TableRender, error)
	Definitions() []TableDefinition
}

// ControllerOptions wires the controller.
type ControllerOptions struct {
	Service  TableResolver
	Renderer Renderer
	Template string
	BasePath string
}

// Controller renders table pages as HTML or JSON payloads.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = DefaultTableTemplate
	}
	return &Controller{opts: opts}
}

// Render resolves the table render description for a viewer.
func (c *Controller) Render(ctx context.Context, viewer ViewerContext, table string) (TableRender, error) {
	if c.opts.Service == nil {
		return TableRender{}, errors.New("datatable: controller has no service")
	}
	return c.opts.Service.Table(ctx, viewer, table)
}

// RenderTemplate writes the table page through the configured renderer.
func (c *Controller) RenderTemplate(ctx context.Context, viewer ViewerContext, table string, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("datatable: controller has no renderer")
	}
	render, err := c.Render(ctx, viewer, table)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"table":         render,
		"menu":          c.menu(viewer.Locale),
		"base_path":     c.opts.BasePath,
		"viewer":        viewer,
		"skeleton_rows": make([]int, render.Skeleton),
		"loading":       render.Phase == PhaseLoading,
	}
	if session, ok := SessionFromContext(ctx); ok {
		payload["user"] = session.User
	}
	_, err = c.opts.Renderer.Render(c.opts.Template, payload, out)
	return err
}

// MenuItem is a resolved navigation entry.
type MenuItem struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Route string `json:"route"`
	Icon  string `json:"icon,omitempty"`
}

func (c *Controller) menu(locale string) []MenuItem {
	if c.opts.Service == nil {
		return nil
	}
	defs := c.opts.Service.Definitions()
	items := make([]MenuItem, 0, len(defs))
	for _, def := range defs {
		label := def.Menu.Label
		if label == "" || len(def.TitleLocalized) > 0 {
			label = def.TitleForLocale(locale)
		}
		route := def.Menu.Route
		if route == "" {
			route = "/tables/" + def.Code
		}
		items = append(items, MenuItem{Code: def.Code, Label: label, Route: c.opts.BasePath + route, Icon: def.Menu.Icon})
	}
	return items
}
