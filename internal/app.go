package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/bilimsoz/internal/glossary"
	"github.com/starford/bilimsoz/internal/prefs"
	"github.com/starford/bilimsoz/internal/probe"
	"github.com/starford/bilimsoz/internal/retry"
	"github.com/starford/bilimsoz/internal/sheets"
	"github.com/starford/bilimsoz/internal/termcache"
	"github.com/starford/bilimsoz/internal/termsync"
	"github.com/starford/bilimsoz/internal/wotd"
)

// App holds the wired components shared by the server, the MCP server and
// the one-shot CLI commands.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Version  string
	Glossary *glossary.Service

	source  sheets.Source
	closers []func() error
}

// NewApp builds every component from the configuration. The caller must
// Close the returned App.
func NewApp(ctx context.Context, opts ...Option) (*App, error) {
	a := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", a.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", cfg.Sheets.Source),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.Duration("cache_ttl", cfg.Cache.TTL),
		slog.String("prefs_path", cfg.Prefs.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	app := &App{Config: cfg, Logger: logger, Version: a.version}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve time zone: %w", err)
	}

	src := a.source
	if src == nil {
		if src, err = newSource(cfg.Sheets); err != nil {
			return nil, fmt.Errorf("init source: %w", err)
		}
	}
	app.source = src

	backend, err := newBackend(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	advisories := termsync.NewAdvisories()
	store := termcache.NewStore(backend,
		termcache.WithTTL(cfg.Cache.TTL),
		termcache.WithLogger(logger),
		termcache.WithFaultHandler(func(op string, err error) {
			advisories.Record(termsync.KindCache, "cache "+op+" failed: "+err.Error())
		}))
	app.closers = append(app.closers, store.Close)

	p := a.probe
	if p == nil {
		p = newProbe(cfg, logger)
	}

	sync := termsync.New(src, store, p,
		termsync.WithLogger(logger),
		termsync.WithAdvisories(advisories),
		termsync.WithConfig(termsync.Config{
			CacheTimeout:   cfg.Sync.CacheTimeout,
			NetworkTimeout: cfg.Sync.NetworkTimeout,
			Concurrency:    cfg.Sync.Concurrency,
			Retry: retry.Config{
				MaxRetries: cfg.Sync.MaxRetries,
				BaseDelay:  cfg.Sync.RetryBaseDelay,
				MaxDelay:   8 * cfg.Sync.RetryBaseDelay,
			},
		}))
	// Registered after the store so that pending write-throughs drain
	// before the backend closes.
	app.closers = append(app.closers, func() error { sync.Close(); return nil })

	pr, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("init prefs: %w", err)
	}
	app.closers = append(app.closers, pr.Close)

	selector := wotd.New(pr, wotd.WithLocation(loc), wotd.WithLogger(logger))
	app.Glossary = glossary.New(sync, pr, selector, logger)

	ok = true
	return app, nil
}

// WatchDir returns the directory to watch for source changes, if the
// configuration asks for it.
func (app *App) WatchDir() (string, bool) {
	d, ok := app.source.(*sheets.DirSource)
	if !ok || !app.Config.Sheets.Watch {
		return "", false
	}
	return d.Root(), true
}

// Close releases every component in reverse order of creation.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func newSource(cfg SheetsConfig) (sheets.Source, error) {
	switch cfg.Source {
	case SourceAPI:
		return sheets.NewClient(sheets.ClientConfig{
			BaseURL:           cfg.BaseURL,
			SpreadsheetID:     cfg.SpreadsheetID,
			APIKey:            cfg.APIKey,
			Timeout:           cfg.RequestTimeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}), nil
	case SourceHTML:
		return sheets.NewHTMLSource(cfg.PublishedURL, cfg.RequestTimeout, cfg.RequestsPerMinute), nil
	case SourceDir:
		return sheets.NewDirSource(cfg.Dir)
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

func newBackend(ctx context.Context, cfg CacheConfig) (termcache.Backend, error) {
	switch cfg.Backend {
	case CacheSQLite:
		return termcache.OpenSQLite(cfg.SQLite.Path)
	case CacheRedis:
		return termcache.OpenRedis(ctx, termcache.RedisConfig{URL: cfg.Redis.URL, KeyPrefix: cfg.Redis.KeyPrefix})
	case CacheMemory:
		return termcache.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

// newProbe dials the configured targets. A local directory source needs
// no network, so it is always online.
func newProbe(cfg *Config, logger *slog.Logger) probe.Probe {
	if cfg.Sheets.Source == SourceDir {
		return probe.NewStatic(true)
	}
	return probe.NewDialProbe(cfg.Probe.Targets, cfg.Probe.Timeout, probe.WithLogger(logger))
}
