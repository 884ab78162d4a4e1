package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/ratelimit"
)

// ScrapeOptions tune a single scrape.
type ScrapeOptions struct {
	// CreatedAt overrides the stored timestamp when set.
	CreatedAt *time.Time
}

// ScrapeResult is a stored product and how its page was retrieved.
type ScrapeResult struct {
	Product  *models.StoredProduct
	Rendered bool
}

// Progress is reported after every URL of a batch. Product is set when the
// URL was stored.
type Progress struct {
	Done    int
	Total   int
	URL     string
	Product *models.StoredProduct
	Err     error
}

type ProgressFunc func(Progress)

// Service wires the pipeline to its persistence collaborators.
type Service struct {
	pipeline *Pipeline
	store    Store
	ignored  IgnoredLog
	pacer    ratelimit.RateLimiter
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(pipeline *Pipeline, store Store, ignored IgnoredLog, pacer ratelimit.RateLimiter, metrics Metrics, logger *slog.Logger) *Service {
	if pacer == nil {
		pacer = ratelimit.NewSimpleRateLimiter(0, 0)
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		pipeline: pipeline,
		store:    store,
		ignored:  ignored,
		pacer:    pacer,
		metrics:  metrics,
		logger:   logger.With("component", "scraper"),
		now:      time.Now,
	}
}

// Scrape extracts and stores one URL. It returns ErrUnsupportedSupplier,
// ErrDuplicate, *RetrievalError or *UnexpectedError; every failure is also
// written to the ignored log.
func (s *Service) Scrape(ctx context.Context, rawURL string, opts ScrapeOptions) (*ScrapeResult, error) {
	cfg, err := s.pipeline.Detect(rawURL)
	if err != nil {
		s.ignore(ctx, rawURL, "", err)
		return nil, err
	}

	exists, err := s.store.ExistsByURL(ctx, rawURL)
	if err != nil {
		err = &UnexpectedError{URL: rawURL, Cause: fmt.Errorf("failed to check url: %w", err)}
		s.ignore(ctx, rawURL, cfg.DisplayName, err)
		return nil, err
	}
	if exists {
		err = fmt.Errorf("%w: %s", ErrDuplicate, rawURL)
		s.ignore(ctx, rawURL, cfg.DisplayName, err)
		return nil, err
	}

	res, err := s.pipeline.Run(ctx, rawURL, cfg)
	if err != nil {
		s.ignore(ctx, rawURL, cfg.DisplayName, err)
		return nil, err
	}

	stored, err := s.store.SaveProduct(ctx, res.Record, opts.CreatedAt)
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			err = &UnexpectedError{URL: rawURL, Cause: fmt.Errorf("failed to store product: %w", err)}
		}
		s.ignore(ctx, rawURL, cfg.DisplayName, err)
		return nil, err
	}

	s.metrics.Outcome(cfg.DisplayName, OutcomeAdded)
	s.logger.Info("product stored", "url", rawURL, "supplier", cfg.DisplayName, "id", stored.ID)
	return &ScrapeResult{Product: stored, Rendered: res.Rendered}, nil
}

// RunBatch scrapes urls one at a time. Each URL's failure is recorded and the
// batch continues; only cancellation of ctx stops it early. Consecutive URLs
// are separated by a random delay from the next supplier's pacing window.
// opts apply to every URL.
func (s *Service) RunBatch(ctx context.Context, urls []string, opts ScrapeOptions, progress ProgressFunc) (*models.BatchSummary, error) {
	summary := models.NewBatchSummary(len(urls))

	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if cfg, err := s.pipeline.Detect(rawURL); err == nil {
			s.pacer.SetDelay(cfg.Pacing.Min, cfg.Pacing.Max)
			if err := s.pacer.Wait(ctx); err != nil {
				return summary, err
			}
		}

		res, err := s.Scrape(ctx, rawURL, opts)
		s.pacer.Done()

		switch {
		case err == nil:
			summary.Added++
		case errors.Is(err, ErrDuplicate):
			summary.Skipped++
			summary.SkippedURLs = append(summary.SkippedURLs, rawURL)
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, models.BatchError{URL: rawURL, Error: err.Error()})
		}

		if fb, ok := s.pacer.(ratelimit.Feedback); ok {
			var retrievalErr *RetrievalError
			if errors.As(err, &retrievalErr) {
				fb.RecordError()
			} else if err == nil {
				fb.RecordSuccess()
			}
		}

		if progress != nil {
			p := Progress{Done: i + 1, Total: len(urls), URL: rawURL, Err: err}
			if res != nil {
				p.Product = res.Product
			}
			progress(p)
		}
	}

	s.logger.Info("batch finished",
		"total", summary.Total,
		"added", summary.Added,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}

func (s *Service) ignore(ctx context.Context, rawURL, supplierName string, cause error) {
	kind := IgnoredKindFor(cause)
	s.metrics.Outcome(supplierName, string(kind))

	if kind == models.IgnoredError {
		s.logger.Error("scrape failed", "url", rawURL, "supplier", supplierName, "error", cause)
	} else {
		s.logger.Info("url ignored", "url", rawURL, "kind", kind, "reason", cause)
	}

	if s.ignored == nil {
		return
	}
	item := models.IgnoredItem{
		URL:      rawURL,
		Supplier: supplierName,
		Kind:     kind,
		Reason:   cause.Error(),
		Date:     s.now(),
	}
	if err := s.ignored.RecordIgnored(ctx, item); err != nil {
		s.logger.Warn("failed to record ignored url", "url", rawURL, "error", err)
	}
}
