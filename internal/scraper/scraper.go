// Package scraper turns a product URL into a stored product: supplier
// detection, retrieval, extraction and the batch loop around them.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

var (
	ErrUnsupportedSupplier = supplier.ErrUnsupported
	ErrDuplicate           = errors.New("url already scanned")
	ErrNoRenderer          = errors.New("page requires rendering but no renderer is configured")
)

// RetrievalError wraps any failure to obtain the page HTML.
type RetrievalError struct {
	URL   string
	Cause error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve %s: %v", e.URL, e.Cause)
}

func (e *RetrievalError) Unwrap() error { return e.Cause }

// UnexpectedError wraps failures that are neither unsupported suppliers nor
// retrieval failures.
type UnexpectedError struct {
	URL   string
	Cause error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected error for %s: %v", e.URL, e.Cause)
}

func (e *UnexpectedError) Unwrap() error { return e.Cause }

type Detector interface {
	Detect(rawURL string) (supplier.Config, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Renderer interface {
	Render(ctx context.Context, rawURL string, profile supplier.RenderProfile) (string, error)
}

// Store is the product persistence collaborator. SaveProduct returns
// ErrDuplicate when the URL is already stored.
type Store interface {
	ExistsByURL(ctx context.Context, rawURL string) (bool, error)
	SaveProduct(ctx context.Context, rec models.ProductRecord, createdAt *time.Time) (*models.StoredProduct, error)
}

// IgnoredLog receives every skipped or failed URL.
type IgnoredLog interface {
	RecordIgnored(ctx context.Context, item models.IgnoredItem) error
}

// Metrics receives pipeline counters. All methods must be safe for concurrent use.
type Metrics interface {
	RetrievalDone(supplier string, rendered bool, d time.Duration, err error)
	Outcome(supplier, outcome string)
}

const (
	OutcomeAdded       = "added"
	OutcomeDuplicate   = "duplicate"
	OutcomeUnsupported = "unsupported"
	OutcomeError       = "error"
)

type nopMetrics struct{}

func (nopMetrics) RetrievalDone(string, bool, time.Duration, error) {}
func (nopMetrics) Outcome(string, string)                         {}

// IgnoredKindFor maps a scrape error to the ignored-log kind.
func IgnoredKindFor(err error) models.IgnoredKind {
	switch {
	case errors.Is(err, ErrDuplicate):
		return models.IgnoredDuplicate
	case errors.Is(err, ErrUnsupportedSupplier):
		return models.IgnoredUnsupported
	default:
		return models.IgnoredError
	}
}
