// Package parser extracts product fields from a parsed HTML document using a
// supplier's field configuration.
package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/supplier-scraper/internal/imageurl"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// Observation describes one field extraction.
type Observation struct {
	Field    supplier.Field
	Selector string
	Matched  int
	Fallback bool
	Duration time.Duration
}

type Observer interface {
	Observe(Observation)
}

type ObserverFunc func(Observation)

func (f ObserverFunc) Observe(o Observation) { f(o) }

type logObserver struct {
	logger *slog.Logger
}

// LogObserver logs every observation at debug level.
func LogObserver(logger *slog.Logger) Observer {
	return &logObserver{logger: logger.With("component", "extractor")}
}

func (l *logObserver) Observe(o Observation) {
	l.logger.Debug("field extracted",
		"field", o.Field,
		"selector", o.Selector,
		"matched", o.Matched,
		"fallback", o.Fallback,
		"duration", o.Duration)
}

// Extractor runs the four field extractors. It holds no per-document state and
// is safe for concurrent use.
type Extractor struct {
	normalizer *imageurl.Normalizer
	observer   Observer
}

// NewExtractor creates an extractor. A nil normalizer uses the built-in rules;
// a nil observer disables observations.
func NewExtractor(normalizer *imageurl.Normalizer, observer Observer) *Extractor {
	if normalizer == nil {
		normalizer = imageurl.Default()
	}
	return &Extractor{
		normalizer: normalizer,
		observer:   observer,
	}
}

// ParseHTML builds the queryable document the extractors work on.
func ParseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Extract runs all field extractors for cfg against doc.
func (e *Extractor) Extract(doc *goquery.Document, cfg supplier.Config, pageURL string) models.ProductRecord {
	rec := models.NewProductRecord(pageURL, cfg.DisplayName)
	rec.Title = e.Title(doc, cfg.Fields.Title)
	rec.Price = e.Price(doc, cfg.Fields.Price)
	rec.Description = e.Description(doc, cfg.Fields.Description)
	rec.Images = e.Images(doc, cfg.Fields.Images, pageURL)
	return rec
}

func (e *Extractor) observe(field supplier.Field, selector string, matched int, fallback bool, start time.Time) {
	if e.observer == nil {
		return
	}
	e.observer.Observe(Observation{
		Field:    field,
		Selector: selector,
		Matched:  matched,
		Fallback: fallback,
		Duration: time.Since(start),
	})
}
