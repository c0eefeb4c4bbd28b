package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-datatable/components/datatable"
	"github.com/goliatone/go-datatable/pkg/config"
	datatablepkg "github.com/goliatone/go-datatable/pkg/datatable"
	"github.com/goliatone/go-datatable/pkg/fixtures"
	"github.com/goliatone/go-datatable/pkg/remote"
)

const shutdownTimeout = 10 * time.Second

// serveCmd reads its settings from DATATABLE_* environment variables; flags
// given here override them.
type serveCmd struct {
	Address  string `help:"Listen address (overrides DATATABLE_ADDRESS)."`
	Manifest string `type:"path" help:"Table manifest (overrides DATATABLE_MANIFEST)."`
}

func (cmd *serveCmd) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Address != "" {
		cfg.Address = cmd.Address
	}
	if cmd.Manifest != "" {
		cfg.ManifestPath = cmd.Manifest
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	stack, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	stack.Sessions.StartSweeper(ctx, cfg.SessionSweep)

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           stack.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("tablectl: serving tables", "address", cfg.Address, "base_path", cfg.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("tablectl: shutting down")
	return server.Shutdown(shutdownCtx)
}

// buildStack assembles the registry, its data sources, and the HTTP stack.
// A remote URL replaces fixture data and credential checks for the tables
// the remote API serves.
func buildStack(cfg config.Config, logger *slog.Logger) (*datatablepkg.Stack, error) {
	reg := datatable.NewRegistry()
	if cfg.ManifestPath != "" {
		if _, err := reg.LoadManifestFile(cfg.ManifestPath); err != nil {
			return nil, fmt.Errorf("tablectl: load manifest: %w", err)
		}
	}
	if err := fixtures.Register(reg, cfg.Latency); err != nil {
		return nil, fmt.Errorf("tablectl: bind fixtures: %w", err)
	}
	if cfg.FixturesDir != "" {
		if err := fixtures.RegisterDir(reg, cfg.FixturesDir); err != nil {
			return nil, fmt.Errorf("tablectl: bind fixtures dir: %w", err)
		}
	}

	telemetry := datatable.NewSlogTelemetry(logger)
	sessions := datatable.SessionOptions{TTL: cfg.SessionTTL, Telemetry: telemetry}
	if cfg.RemoteURL != "" {
		client, err := remote.NewHTTPClient(remote.HTTPConfig{BaseURL: cfg.RemoteURL, APIKey: cfg.RemoteAPIKey})
		if err != nil {
			return nil, err
		}
		if err := client.Register(reg, remote.DefaultPaths); err != nil {
			return nil, fmt.Errorf("tablectl: bind remote sources: %w", err)
		}
		sessions.Authenticator = client
	}

	return datatablepkg.New(datatablepkg.Config{
		Registry:   reg,
		Telemetry:  telemetry,
		Sessions:   sessions,
		ChartTheme: cfg.ChartTheme,
		PageSize:   cfg.PageSize,
		Debounce:   cfg.Debounce,
		BasePath:   cfg.BasePath,
		CookieName: cfg.CookieName,
	})
}
