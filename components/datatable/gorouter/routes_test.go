package gorouter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	router "github.com/goliatone/go-router"

	datatable "github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/components/datatable/httpapi"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestRegisterGuardsHTMLRoute(t *testing.T) {
	mock, _ := registerFixture(t)
	h, ok := mock.routes["GET:/admin/tables/:table"]
	if !ok {
		t.Fatalf("expected table page route to be registered")
	}
	ctx := newMockContext()
	ctx.params["table"] = "customers"
	if err := h(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusFound {
		t.Fatalf("expected redirect, got %d", ctx.status)
	}
	if got := ctx.headers["Location"]; got != "/admin/login?from=%2Ftables%2Fcustomers" {
		t.Fatalf("unexpected redirect location %q", got)
	}
}

func TestRegisterLoginAndTable(t *testing.T) {
	mock, renderer := registerFixture(t)

	login := newMockContext()
	login.body = []byte(`{"email":"ops@store.test","password":"x"}`)
	if err := mock.routes["POST:/admin/api/auth/login"](login); err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	cookie := login.headers["Set-Cookie"]
	if !strings.HasPrefix(cookie, httpapi.DefaultCookieName+"=") {
		t.Fatalf("expected session cookie, got %q", cookie)
	}

	table := newMockContext()
	table.headers["Cookie"] = strings.SplitN(cookie, ";", 2)[0]
	table.params["table"] = "customers"
	if err := mock.routes["GET:/admin/api/tables/:table"](table); err != nil {
		t.Fatalf("table returned error: %v", err)
	}
	if table.status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", table.status, table.body)
	}
	var render datatable.TableRender
	if err := json.Unmarshal(table.body, &render); err != nil {
		t.Fatalf("decode render: %v", err)
	}
	if len(render.Rows) != 1 || render.Rows[0].Cells[0].Value.Text != "Ann" {
		t.Fatalf("unexpected rows %+v", render.Rows)
	}

	list := newMockContext()
	list.headers["Cookie"] = table.headers["Cookie"]
	if err := mock.routes["GET:/admin/api/tables"](list); err != nil {
		t.Fatalf("tables returned error: %v", err)
	}
	if list.status != http.StatusOK || !strings.Contains(string(list.body), `"code":"customers"`) {
		t.Fatalf("unexpected table directory %d: %s", list.status, list.body)
	}

	page := newMockContext()
	page.headers["Cookie"] = table.headers["Cookie"]
	page.params["table"] = "customers"
	if err := mock.routes["GET:/admin/tables/:table"](page); err != nil {
		t.Fatalf("page returned error: %v", err)
	}
	if renderer.calls == 0 || len(page.body) == 0 {
		t.Fatalf("expected rendered page")
	}
}

func TestRegisterFormPostRedirectsToTablePage(t *testing.T) {
	mock, _ := registerFixture(t)

	login := newMockContext()
	login.body = []byte(`{"email":"ops@store.test","password":"x"}`)
	if err := mock.routes["POST:/admin/api/auth/login"](login); err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	cookie := strings.SplitN(login.headers["Set-Cookie"], ";", 2)[0]

	search := newMockContext()
	search.headers["Cookie"] = cookie
	search.headers["Content-Type"] = "application/x-www-form-urlencoded"
	search.params["table"] = "customers"
	search.body = []byte("term=zz")
	if err := mock.routes["POST:/admin/api/tables/:table/search"](search); err != nil {
		t.Fatalf("search returned error: %v", err)
	}
	if search.status != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", search.status, search.body)
	}
	if got := search.headers["Location"]; got != "/admin/tables/customers" {
		t.Fatalf("unexpected redirect location %q", got)
	}

	table := newMockContext()
	table.headers["Cookie"] = cookie
	table.params["table"] = "customers"
	if err := mock.routes["GET:/admin/api/tables/:table"](table); err != nil {
		t.Fatalf("table returned error: %v", err)
	}
	var render datatable.TableRender
	if err := json.Unmarshal(table.body, &render); err != nil {
		t.Fatalf("decode render: %v", err)
	}
	if render.SearchTerm != "zz" || len(render.Rows) != 0 {
		t.Fatalf("expected form term applied, got %q with %d rows", render.SearchTerm, len(render.Rows))
	}

	page := newMockContext()
	page.headers["Cookie"] = cookie
	page.headers["Content-Type"] = "application/x-www-form-urlencoded"
	page.params["table"] = "customers"
	page.body = []byte("page=first")
	if err := mock.routes["POST:/admin/api/tables/:table/page"](page); err != nil {
		t.Fatalf("page returned error: %v", err)
	}
	if page.status != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-numeric page, got %d", page.status)
	}
}

func TestRegisterRejectsAnonymousAPI(t *testing.T) {
	mock, _ := registerFixture(t)
	ctx := newMockContext()
	ctx.params["table"] = "customers"
	if err := mock.routes["GET:/admin/api/tables/:table"](ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if ctx.status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", ctx.status)
	}
}

func TestInferLocalePrefersLocals(t *testing.T) {
	ctx := newMockContext()
	ctx.headers["Accept-Language"] = "es-MX,es;q=0.9"
	if got := inferLocale(ctx); got != "es-mx" {
		t.Fatalf("expected es-mx, got %q", got)
	}
	ctx.locals["locale"] = "fr"
	if got := inferLocale(ctx); got != "fr" {
		t.Fatalf("expected fr, got %q", got)
	}
}

// --- Test helpers ---

func registerFixture(t *testing.T) (*mockRouter, *stubRenderer) {
	t.Helper()
	reg := datatable.NewEmptyRegistry()
	if err := reg.RegisterDefinition(datatable.TableDefinition{
		Code:    "customers",
		Title:   "Customers",
		Columns: []datatable.Column{{Key: "name", Header: "Name", Sortable: true}},
	}); err != nil {
		t.Fatalf("register definition: %v", err)
	}
	if err := reg.RegisterSource("customers", datatable.DataSourceFunc(func(context.Context) ([]datatable.Record, error) {
		return []datatable.Record{{"name": "Ann"}}, nil
	})); err != nil {
		t.Fatalf("register source: %v", err)
	}
	svc := datatable.NewService(datatable.Options{Registry: reg})
	sessions := datatable.NewSessionManager(datatable.SessionOptions{})
	renderer := &stubRenderer{}
	mock := newMockRouter()
	err := Register(Config[struct{}]{
		Router:     mock,
		Controller: datatable.NewController(datatable.ControllerOptions{Service: svc, Renderer: renderer, BasePath: "/admin"}),
		API:        httpapi.NewExecutor(svc, sessions, nil),
		Sessions:   sessions,
		BasePath:   "/admin",
	})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}
	return mock, renderer
}

type mockRouter struct {
	router.Router[struct{}]
	prefix string
	routes map[string]router.HandlerFunc
}

func newMockRouter() *mockRouter {
	return &mockRouter{routes: map[string]router.HandlerFunc{}}
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{prefix: m.prefix + prefix, routes: m.routes}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	m.routes[method+":"+m.prefix+path] = handler
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

func (mockRouteInfo) SetName(string) router.RouteInfo { return mockRouteInfo{} }

// routerContext aliases router.Context so the embedded field name does not
// collide with the Context() method below.
type routerContext = router.Context

type mockContext struct {
	routerContext
	ctx     context.Context
	headers map[string]string
	query   map[string]string
	body    []byte
	locals  map[any]any
	params  map[string]string
	status  int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		query:   map[string]string{},
		locals:  map[any]any{},
		params:  map[string]string{},
	}
}

func (m *mockContext) Context() context.Context { return m.ctx }

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Header(k string) string { return m.headers[k] }

func (m *mockContext) Send(b []byte) error {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.query[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

type stubRenderer struct {
	calls int
}

func (s *stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	s.calls++
	if len(out) > 0 && out[0] != nil {
		out[0].Write([]byte("ok"))
	}
	return "ok", nil
}
