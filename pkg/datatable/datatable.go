package datatable

import (
	"context"
	"fmt"
	"net/http"
	"time"

	core "github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/components/datatable/commands"
	"github.com/goliatone/go-datatable/components/datatable/httpapi"
)

// Service exposes the underlying components/datatable.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// Config wires a full table stack: registry, service, sessions, and HTML
// controller.
type Config struct {
	Registry     *core.Registry
	ManifestPath string
	Telemetry    core.Telemetry
	Translator   core.TranslationService
	Renderer     core.Renderer
	Sessions     core.SessionOptions
	ChartTheme   string
	PageSize     int
	Debounce     time.Duration
	BasePath     string
	CookieName   string
	Guard        *core.RouteGuard
}

// Stack holds the wired components of a table deployment.
type Stack struct {
	Registry   *core.Registry
	Service    *Service
	Sessions   *core.SessionManager
	Controller *core.Controller
	Executor   *httpapi.Executor
	Guard      core.RouteGuard
	cfg        Config
}

// New builds a Stack. Ending a session disposes its views.
func New(cfg Config) (*Stack, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = core.NewRegistry()
	}
	if cfg.ManifestPath != "" {
		load := commands.NewLoadManifestCommand(registry, cfg.Telemetry)
		if err := load.Execute(context.Background(), commands.LoadManifestInput{Path: cfg.ManifestPath}); err != nil {
			return nil, fmt.Errorf("datatable: load manifest: %w", err)
		}
	}
	renderer := cfg.Renderer
	if renderer == nil {
		var err error
		renderer, err = core.NewTemplateRenderer()
		if err != nil {
			return nil, fmt.Errorf("datatable: template renderer: %w", err)
		}
	}
	var chartOptions []core.SummaryChartOption
	if cfg.ChartTheme != "" {
		chartOptions = append(chartOptions, core.WithChartTheme(cfg.ChartTheme))
	}
	service := core.NewService(core.Options{
		Registry:   registry,
		Translator: cfg.Translator,
		Telemetry:  cfg.Telemetry,
		Charts:     core.NewSummaryChart(chartOptions...),
		PageSize:   cfg.PageSize,
		Debounce:   cfg.Debounce,
	})
	sessionOpts := cfg.Sessions
	if sessionOpts.Telemetry == nil {
		sessionOpts.Telemetry = cfg.Telemetry
	}
	sessions := core.NewSessionManager(sessionOpts)
	sessions.OnLogout(service.CloseSession)

	guard := core.DefaultRouteGuard()
	if cfg.Guard != nil {
		guard = *cfg.Guard
	}
	return &Stack{
		Registry: registry,
		Service:  service,
		Sessions: sessions,
		Controller: core.NewController(core.ControllerOptions{
			Service:  service,
			Renderer: renderer,
			BasePath: cfg.BasePath,
		}),
		Executor: httpapi.NewExecutor(service, sessions, cfg.Telemetry),
		Guard:    guard,
		cfg:      cfg,
	}, nil
}

// Handler returns a net/http handler serving the table API and pages.
func (s *Stack) Handler() http.Handler {
	handlers := &httpapi.Handlers{
		Executor:   s.Executor,
		Controller: s.Controller,
		Service:    s.Service,
		Sessions:   s.Sessions,
		Guard:      s.Guard,
		CookieName: s.cfg.CookieName,
		BasePath:   s.cfg.BasePath,
	}
	return handlers.Mux()
}
