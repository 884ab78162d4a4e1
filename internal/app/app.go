// Package app assembles the scraper from configuration. Every binary builds
// on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/supplier-scraper/internal/browser"
	"github.com/maltedev/supplier-scraper/internal/catalog"
	"github.com/maltedev/supplier-scraper/internal/config"
	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/events"
	"github.com/maltedev/supplier-scraper/internal/fetch"
	"github.com/maltedev/supplier-scraper/internal/jobs"
	"github.com/maltedev/supplier-scraper/internal/metrics"
	"github.com/maltedev/supplier-scraper/internal/parser"
	"github.com/maltedev/supplier-scraper/internal/ratelimit"
	"github.com/maltedev/supplier-scraper/internal/scraper"
	"github.com/maltedev/supplier-scraper/internal/storage"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// ProductStore is satisfied by both store backends.
type ProductStore interface {
	scraper.Store
	scraper.IgnoredLog
	catalog.Catalog
}

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Registry
	Suppliers *supplier.Registry
	Fetcher   *fetch.StaticFetcher
	Pipeline  *scraper.Pipeline
	Service   *scraper.Service
	Store     ProductStore
	Jobs      jobs.Repository

	// DB and Outbox are nil with the file store.
	DB     *database.DB
	Outbox *database.OutboxRepository

	closers []func() error
}

// New builds the store, the retrieval stack and the scrape service. The
// browser is only started when enabled.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		Suppliers: supplier.DefaultRegistry(),
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Fetcher = fetch.NewStaticFetcher(fetch.Options{
		Timeout:        cfg.Fetch.Timeout,
		MaxRedirects:   cfg.Fetch.MaxRedirects,
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
	}, logger)

	var renderer scraper.Renderer
	if cfg.Browser.Enabled {
		r, err := browser.New(browserOptions(cfg.Browser), logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		a.closers = append(a.closers, r.Close)
		renderer = r
	} else {
		logger.Warn("browser disabled, suppliers that require rendering will fail")
	}

	logObserver := parser.LogObserver(logger)
	observer := parser.ObserverFunc(func(o parser.Observation) {
		logObserver.Observe(o)
		a.Metrics.Observe(o)
	})

	a.Pipeline = scraper.NewPipeline(
		a.Suppliers,
		scraper.NewRetriever(a.Fetcher, renderer, a.Metrics, logger),
		parser.NewExtractor(nil, observer),
		logger,
	)

	var pacer ratelimit.RateLimiter = ratelimit.NewSimpleRateLimiter(0, 0)
	if cfg.Batch.Adaptive {
		pacer = ratelimit.NewAdaptiveRateLimiter(0, 0)
	}

	a.Service = scraper.NewService(a.Pipeline, a.Store, a.Store, pacer, a.Metrics, logger)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Store.Backend {
	case config.StoreBackendFile:
		fs, err := storage.NewFileStore(a.Config.Store.FilePath)
		if err != nil {
			return fmt.Errorf("failed to open file store: %w", err)
		}
		a.Store = fs
		a.Jobs = jobs.NewMemoryRepository()
		a.Logger.Info("using file store", "path", a.Config.Store.FilePath)
		return nil

	case config.StoreBackendPostgres:
		db, err := database.New(ctx, a.Config.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		a.DB = db
		a.Outbox = database.NewOutboxRepository(db)
		publisher := events.NewPublisher(a.Outbox, a.Config.Redis.Stream, a.Logger)
		a.Store = catalog.NewPostgresStore(db, publisher, a.Logger)
		a.Jobs = database.NewJobRepository(db)
		a.Logger.Info("using postgres store", "host", a.Config.Database.Host, "database", a.Config.Database.DBName)
		return nil
	}
	return fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
}

// Close releases the browser and the database pool in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func browserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.AllowHeadful = cfg.AllowHeadful
	opts.ExecutablePath = cfg.ExecutablePath
	opts.NavigationTimeout = cfg.NavigationTimeout
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts.ViewportWidth = cfg.ViewportWidth
		opts.ViewportHeight = cfg.ViewportHeight
	}
	if cfg.Locale != "" {
		opts.Locale = cfg.Locale
	}
	if cfg.TimezoneID != "" {
		opts.TimezoneID = cfg.TimezoneID
	}
	return opts
}
