package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/parser"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// Result is one pipeline run.
type Result struct {
	Record   models.ProductRecord
	Rendered bool
}

// Pipeline runs detect, retrieve, parse and extract for a single URL.
type Pipeline struct {
	detector  Detector
	retriever *Retriever
	extractor *parser.Extractor
	logger    *slog.Logger
}

func NewPipeline(detector Detector, retriever *Retriever, extractor *parser.Extractor, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		detector:  detector,
		retriever: retriever,
		extractor: extractor,
		logger:    logger.With("component", "pipeline"),
	}
}

// Detect resolves the supplier of rawURL.
func (p *Pipeline) Detect(rawURL string) (supplier.Config, error) {
	cfg, err := p.detector.Detect(rawURL)
	if err != nil {
		return supplier.Config{}, fmt.Errorf("%w: %s", ErrUnsupportedSupplier, rawURL)
	}
	return cfg, nil
}

// Extract detects the supplier of rawURL and runs the pipeline.
func (p *Pipeline) Extract(ctx context.Context, rawURL string) (*Result, error) {
	cfg, err := p.Detect(rawURL)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, rawURL, cfg)
}

// Run retrieves and extracts rawURL with an already detected supplier.
// Errors are *RetrievalError or *UnexpectedError.
func (p *Pipeline) Run(ctx context.Context, rawURL string, cfg supplier.Config) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("extraction panicked", "url", rawURL, "panic", r)
			res = nil
			err = &UnexpectedError{URL: rawURL, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	page, err := p.retriever.Retrieve(ctx, rawURL, cfg)
	if err != nil {
		return nil, err
	}

	doc, err := parser.ParseHTML(page.HTML)
	if err != nil {
		return nil, &UnexpectedError{URL: rawURL, Cause: err}
	}

	rec := p.extractor.Extract(doc, cfg, rawURL)

	p.logger.Info("product extracted",
		"url", rawURL,
		"supplier", cfg.DisplayName,
		"rendered", page.Rendered,
		"has_title", rec.Title != "",
		"has_price", rec.Price != "",
		"description_lines", len(rec.Description),
		"images", len(rec.Images))

	return &Result{Record: rec, Rendered: page.Rendered}, nil
}
