package goadmin_test

import (
	"context"
	"errors"
	"testing"

	core "github.com/goliatone/go-datatable/components/datatable"
	datatablepkg "github.com/goliatone/go-datatable/pkg/datatable"
	"github.com/goliatone/go-datatable/pkg/goadmin"
)

type stubMenuBuilder struct {
	items []goadmin.MenuItem
	err   error
}

func (s *stubMenuBuilder) EnsureMenuItem(_ context.Context, _ string, item goadmin.MenuItem) error {
	s.items = append(s.items, item)
	return s.err
}

func newService(t *testing.T) *datatablepkg.Service {
	t.Helper()
	reg := core.NewEmptyRegistry()
	for _, def := range core.DefaultTableDefinitions() {
		if err := reg.RegisterDefinition(def); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := reg.RegisterDefinition(core.TableDefinition{
		Code:    "suppliers",
		Title:   "Suppliers",
		Columns: []core.Column{{Key: "name"}},
		Menu:    core.MenuEntry{Position: 99},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return datatablepkg.NewService(core.Options{Registry: reg})
}

func TestAdminBootstrapSeedsMenu(t *testing.T) {
	builder := &stubMenuBuilder{}
	admin, err := goadmin.New(goadmin.Config{
		EnableTables: true,
		Service:      newService(t),
		MenuBuilder:  builder,
		BasePath:     "/admin/",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := admin.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if len(builder.items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(builder.items))
	}
	if got := builder.items[0]; got.Code != "inventory" || got.Route != "/admin/tables/inventory" {
		t.Fatalf("unexpected first item %+v", got)
	}
	last := builder.items[3]
	if last.Label != "Suppliers" || last.Icon != "table" || last.Route != "/admin/tables/suppliers" {
		t.Fatalf("expected defaults for suppliers, got %+v", last)
	}
	if admin.Tables() == nil {
		t.Fatalf("expected table service")
	}
}

func TestAdminBootstrapPropagatesErrors(t *testing.T) {
	builder := &stubMenuBuilder{err: errors.New("menu store down")}
	admin, _ := goadmin.New(goadmin.Config{EnableTables: true, Service: newService(t), MenuBuilder: builder})
	if err := admin.Bootstrap(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAdminDisabledSkipsBootstrap(t *testing.T) {
	builder := &stubMenuBuilder{}
	admin, err := goadmin.New(goadmin.Config{
		EnableTables: false,
		MenuBuilder:  builder,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := admin.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if len(builder.items) != 0 {
		t.Fatalf("expected 0 calls, got %d", len(builder.items))
	}
	if admin.Tables() != nil {
		t.Fatalf("expected nil service when disabled")
	}
}

func TestAdminRequiresServiceWhenEnabled(t *testing.T) {
	if _, err := goadmin.New(goadmin.Config{EnableTables: true}); err == nil {
		t.Fatalf("expected error without service")
	}
}
