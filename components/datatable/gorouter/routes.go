package gorouter

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	datatable "github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/components/datatable/httpapi"
)

// ViewerResolver converts a router.Context into a datatable.ViewerContext.
type ViewerResolver func(router.Context) datatable.ViewerContext

// Config wires go-router with the table controller, API executor, and
// session guard.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *datatable.Controller
	API            *httpapi.Executor
	Sessions       *datatable.SessionManager
	Guard          *datatable.RouteGuard
	ViewerResolver ViewerResolver
	CookieName     string
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for table endpoints.
type RouteConfig struct {
	HTML    string
	Login   string
	Logout  string
	Tables  string
	Table   string
	Search  string
	Sort    string
	Page    string
	Export  string
	Summary string
}

type registrar[T any] struct {
	cfg      Config[T]
	base     string
	guard    datatable.RouteGuard
	resolver ViewerResolver
}

// Register mounts table routes (HTML, JSON, auth) on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	if cfg.API == nil {
		return errors.New("gorouter: api executor is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	base := cfg.BasePath
	if base == "" {
		base = "/admin"
	}
	reg := &registrar[T]{cfg: cfg, base: base, guard: datatable.DefaultRouteGuard(), resolver: cfg.ViewerResolver}
	if cfg.Guard != nil {
		reg.guard = *cfg.Guard
	}
	if reg.resolver == nil {
		reg.resolver = defaultViewerResolver
	}

	group := cfg.Router.Group(base)

	group.Get(routes.HTML, reg.handle(routes.HTML, func(ctx router.Context, viewer datatable.ViewerContext) error {
		var buf bytes.Buffer
		if err := cfg.Controller.RenderTemplate(requestContext(ctx), viewer, ctx.Param("table"), &buf); err != nil {
			return respond(ctx, httpapi.ErrorResponse(err))
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	group.Post(routes.Login, reg.handle(routes.Login, func(ctx router.Context, _ datatable.ViewerContext) error {
		resp, session := cfg.API.SignIn(requestContext(ctx), ctx.Body())
		if session != nil {
			ctx.SetHeader("Set-Cookie", httpapi.SessionCookie(cfg.CookieName, base, session).String())
		}
		return respond(ctx, resp)
	}))

	group.Post(routes.Logout, reg.handle(routes.Logout, func(ctx router.Context, viewer datatable.ViewerContext) error {
		resp := cfg.API.SignOut(requestContext(ctx), viewer.SessionID)
		ctx.SetHeader("Set-Cookie", httpapi.SessionCookie(cfg.CookieName, base, nil).String())
		return respond(ctx, resp)
	}))

	group.Get(routes.Tables, reg.handle(routes.Tables, func(ctx router.Context, viewer datatable.ViewerContext) error {
		return respond(ctx, cfg.API.ListTables(requestContext(ctx), viewer))
	}))

	group.Get(routes.Table, reg.handle(routes.Table, func(ctx router.Context, viewer datatable.ViewerContext) error {
		return respond(ctx, cfg.API.TableState(requestContext(ctx), viewer, ctx.Param("table")))
	}))

	group.Post(routes.Search, reg.handle(routes.Search, reg.submit(routes.HTML, cfg.API.SearchTable)))

	group.Post(routes.Sort, reg.handle(routes.Sort, reg.submit(routes.HTML, cfg.API.SortTable)))

	group.Post(routes.Page, reg.handle(routes.Page, reg.submit(routes.HTML, cfg.API.PageTable)))

	group.Get(routes.Export, reg.handle(routes.Export, func(ctx router.Context, viewer datatable.ViewerContext) error {
		return respond(ctx, cfg.API.ExportTable(requestContext(ctx), viewer, ctx.Param("table"), ctx.Query("format")))
	}))

	group.Get(routes.Summary, reg.handle(routes.Summary, func(ctx router.Context, viewer datatable.ViewerContext) error {
		return respond(ctx, cfg.API.TableSummary(requestContext(ctx), viewer, ctx.Param("table"), ctx.Query("by"), ctx.Query("chart")))
	}))

	return nil
}

// handle resolves the session, applies the route guard for the route's
// relative path, and then calls fn with the viewer.
func (r *registrar[T]) handle(path string, fn func(router.Context, datatable.ViewerContext) error) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error {
		session, authenticated := r.session(ctx)
		decision := r.guard.Decide(strings.ReplaceAll(path, ":table", ctx.Param("table")), authenticated)
		switch decision.Action {
		case datatable.GuardRedirect:
			location := strings.TrimSuffix(r.base, "/") + decision.Location
			ctx.SetHeader("Location", location)
			return ctx.JSON(http.StatusFound, map[string]string{"redirect": location})
		case datatable.GuardUnauthorized:
			return respond(ctx, httpapi.ErrorResponse(datatable.ErrNoSession))
		}
		if authenticated {
			ctx.Locals(sessionLocal, session)
		}
		return fn(ctx, r.resolver(ctx))
	})
}

// submit runs a table operation from a JSON body or a table page form. A
// successful form post is redirected to the HTML route of the same table.
func (r *registrar[T]) submit(htmlRoute string, run func(context.Context, datatable.ViewerContext, string, []byte) httpapi.Response) func(router.Context, datatable.ViewerContext) error {
	return func(ctx router.Context, viewer datatable.ViewerContext) error {
		payload, form, err := httpapi.FormPayload(ctx.Header("Content-Type"), ctx.Body())
		if err != nil {
			return respond(ctx, httpapi.ErrorResponse(err))
		}
		table := ctx.Param("table")
		resp := run(requestContext(ctx), viewer, table, payload)
		if form && resp.Status == http.StatusOK {
			location := strings.TrimSuffix(r.base, "/") + strings.ReplaceAll(htmlRoute, ":table", table)
			ctx.SetHeader("Location", location)
			return ctx.JSON(http.StatusSeeOther, map[string]string{"redirect": location})
		}
		return respond(ctx, resp)
	}
}

func (r *registrar[T]) session(ctx router.Context) (datatable.Session, bool) {
	if session, ok := ctx.Locals(sessionLocal).(datatable.Session); ok {
		return session, true
	}
	if r.cfg.Sessions == nil {
		return datatable.Session{}, false
	}
	token := httpapi.TokenFromHeaders(ctx.Header("Cookie"), ctx.Header("Authorization"), r.cfg.CookieName)
	session, err := r.cfg.Sessions.Lookup(ctx.Context(), token)
	if err != nil {
		return datatable.Session{}, false
	}
	return session, true
}

const sessionLocal = "datatable.session"

// requestContext carries the resolved session so data sources can act on
// behalf of the signed-in user.
func requestContext(ctx router.Context) context.Context {
	if session, ok := ctx.Locals(sessionLocal).(datatable.Session); ok {
		return datatable.ContextWithSession(ctx.Context(), session)
	}
	return ctx.Context()
}

func defaultViewerResolver(ctx router.Context) datatable.ViewerContext {
	locale := inferLocale(ctx)
	if session, ok := ctx.Locals(sessionLocal).(datatable.Session); ok {
		return httpapi.ViewerFor(session, locale)
	}
	var viewer datatable.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
		viewer.SessionID = v
	}
	viewer.Locale = locale
	return viewer
}

func inferLocale(ctx router.Context) string {
	if locale, ok := ctx.Locals("locale").(string); ok && locale != "" {
		return locale
	}
	return httpapi.InferLocale(ctx.Query("locale"), ctx.Header("Accept-Language"))
}

func respond(ctx router.Context, resp httpapi.Response) error {
	for key, value := range resp.Headers {
		ctx.SetHeader(key, value)
	}
	if resp.Raw != nil {
		return ctx.Send(resp.Raw)
	}
	return ctx.JSON(resp.Status, resp.Body)
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/tables/:table"
	}
	if routes.Login == "" {
		routes.Login = "/api/auth/login"
	}
	if routes.Logout == "" {
		routes.Logout = "/api/auth/logout"
	}
	if routes.Tables == "" {
		routes.Tables = "/api/tables"
	}
	if routes.Table == "" {
		routes.Table = "/api/tables/:table"
	}
	if routes.Search == "" {
		routes.Search = "/api/tables/:table/search"
	}
	if routes.Sort == "" {
		routes.Sort = "/api/tables/:table/sort"
	}
	if routes.Page == "" {
		routes.Page = "/api/tables/:table/page"
	}
	if routes.Export == "" {
		routes.Export = "/api/tables/:table/export"
	}
	if routes.Summary == "" {
		routes.Summary = "/api/tables/:table/summary"
	}
	return routes
}
