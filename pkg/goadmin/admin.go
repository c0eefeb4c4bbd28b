package goadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	datatablepkg "github.com/goliatone/go-datatable/pkg/datatable"
)

// MenuBuilder ensures table entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures table link metadata.
type MenuItem struct {
	Code     string
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the table service into an admin shell.
type Config struct {
	EnableTables bool
	MenuCode     string
	MenuBuilder  MenuBuilder
	Service      *datatablepkg.Service
	BasePath     string
	Locale       string
	DefaultIcon  string
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

// New creates an Admin helper that can seed table menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableTables && cfg.Service == nil {
		return nil, errors.New("goadmin: table service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.DefaultIcon == "" {
		cfg.DefaultIcon = "table"
	}
	return &Admin{cfg: cfg}, nil
}

// Tables exposes the configured service when enabled.
func (a *Admin) Tables() *datatablepkg.Service {
	if !a.cfg.EnableTables {
		return nil
	}
	return a.cfg.Service
}

// MenuItems lists one entry per registered table, in menu order.
func (a *Admin) MenuItems() []MenuItem {
	if !a.cfg.EnableTables {
		return nil
	}
	base := strings.TrimSuffix(a.cfg.BasePath, "/")
	defs := a.cfg.Service.Definitions()
	items := make([]MenuItem, 0, len(defs))
	for _, def := range defs {
		item := MenuItem{
			Code:     def.Code,
			Label:    def.Menu.Label,
			Route:    def.Menu.Route,
			Icon:     def.Menu.Icon,
			Position: def.Menu.Position,
		}
		if item.Label == "" {
			item.Label = def.TitleForLocale(a.cfg.Locale)
		}
		if item.Route == "" {
			item.Route = "/tables/" + def.Code
		}
		if item.Icon == "" {
			item.Icon = a.cfg.DefaultIcon
		}
		item.Route = base + item.Route
		items = append(items, item)
	}
	return items
}

// Bootstrap seeds menu entries when table support is enabled.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableTables || a.cfg.MenuBuilder == nil {
		return nil
	}
	for _, item := range a.MenuItems() {
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return fmt.Errorf("goadmin: seed menu %s: %w", item.Code, err)
		}
	}
	return nil
}
