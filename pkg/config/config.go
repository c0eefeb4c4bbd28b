package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings of a table server.
type Config struct {
	Address      string        `env:"DATATABLE_ADDRESS"        envDefault:":8080"`
	BasePath     string        `env:"DATATABLE_BASE_PATH"      envDefault:"/admin"`
	PageSize     int           `env:"DATATABLE_PAGE_SIZE"      envDefault:"10"`
	Debounce     time.Duration `env:"DATATABLE_DEBOUNCE"       envDefault:"300ms"`
	ManifestPath string        `env:"DATATABLE_MANIFEST"`
	FixturesDir  string        `env:"DATATABLE_FIXTURES_DIR"`
	Latency      time.Duration `env:"DATATABLE_FIXTURE_LATENCY" envDefault:"1s"`
	SessionTTL   time.Duration `env:"DATATABLE_SESSION_TTL"    envDefault:"12h"`
	SessionSweep time.Duration `env:"DATATABLE_SESSION_SWEEP"  envDefault:"1m"`
	CookieName   string        `env:"DATATABLE_COOKIE_NAME"    envDefault:"authToken"`
	RemoteURL    string        `env:"DATATABLE_REMOTE_URL"`
	RemoteAPIKey string        `env:"DATATABLE_REMOTE_API_KEY"`
	LogLevel     string        `env:"DATATABLE_LOG_LEVEL"      envDefault:"info"`
	ChartTheme   string        `env:"DATATABLE_CHART_THEME"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses a fixed environment map, for tests and embedding.
func LoadFrom(environment map[string]string) (Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PageSize <= 0 {
		return Config{}, fmt.Errorf("config: page size must be positive, got %d", cfg.PageSize)
	}
	if cfg.Debounce < 0 {
		return Config{}, fmt.Errorf("config: debounce must not be negative")
	}
	return cfg, nil
}

// Level maps LogLevel onto a slog level; unknown values fall back to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
