package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/supplier-scraper/internal/fetch"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// Page is retrieved HTML and how it was obtained.
type Page struct {
	HTML     string
	Rendered bool
}

// Retriever chooses between a static fetch and a rendered fetch. A static
// 403 escalates to exactly one render; any other failure is final.
type Retriever struct {
	fetcher  Fetcher
	renderer Renderer
	metrics  Metrics
	logger   *slog.Logger
}

// NewRetriever creates a retriever. renderer may be nil, in which case
// suppliers that need rendering fail with ErrNoRenderer.
func NewRetriever(fetcher Fetcher, renderer Renderer, metrics Metrics, logger *slog.Logger) *Retriever {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Retriever{
		fetcher:  fetcher,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger.With("component", "retriever"),
	}
}

func (r *Retriever) Retrieve(ctx context.Context, rawURL string, cfg supplier.Config) (*Page, error) {
	if cfg.RequiresRendering {
		return r.render(ctx, rawURL, cfg)
	}

	start := time.Now()
	html, err := r.fetcher.Fetch(ctx, rawURL)
	r.metrics.RetrievalDone(cfg.DisplayName, false, time.Since(start), err)
	if err == nil {
		return &Page{HTML: html}, nil
	}

	if fetch.IsForbidden(err) {
		r.logger.Info("static fetch forbidden, escalating to rendering", "url", rawURL, "supplier", cfg.DisplayName)
		return r.render(ctx, rawURL, cfg)
	}

	return nil, &RetrievalError{URL: rawURL, Cause: err}
}

func (r *Retriever) render(ctx context.Context, rawURL string, cfg supplier.Config) (*Page, error) {
	if r.renderer == nil {
		return nil, &RetrievalError{URL: rawURL, Cause: ErrNoRenderer}
	}

	start := time.Now()
	html, err := r.renderer.Render(ctx, rawURL, cfg.Render)
	r.metrics.RetrievalDone(cfg.DisplayName, true, time.Since(start), err)
	if err != nil {
		return nil, &RetrievalError{URL: rawURL, Cause: err}
	}

	r.logger.Debug("page rendered", "url", rawURL, "supplier", cfg.DisplayName, "duration", time.Since(start))
	return &Page{HTML: html, Rendered: true}, nil
}
