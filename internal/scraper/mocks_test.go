package scraper

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockFetcher is a mock for the static fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	args := m.Called(ctx, rawURL)
	return args.String(0), args.Error(1)
}

// MockRenderer is a mock for the browser renderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, rawURL string, profile supplier.RenderProfile) (string, error) {
	args := m.Called(ctx, rawURL, profile)
	return args.String(0), args.Error(1)
}

// MockStore is a mock for the product store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ExistsByURL(ctx context.Context, rawURL string) (bool, error) {
	args := m.Called(ctx, rawURL)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) SaveProduct(ctx context.Context, rec models.ProductRecord, createdAt *time.Time) (*models.StoredProduct, error) {
	args := m.Called(ctx, rec, createdAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StoredProduct), args.Error(1)
}

// MockIgnoredLog is a mock for the ignored item log
type MockIgnoredLog struct {
	mock.Mock
}

func (m *MockIgnoredLog) RecordIgnored(ctx context.Context, item models.IgnoredItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

// fakePacer records pacing calls without sleeping.
type fakePacer struct {
	windows  [][2]time.Duration
	waits    int
	dones    int
	errors   int
	success  int
	feedback bool
}

func (p *fakePacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func (p *fakePacer) SetDelay(min, max time.Duration) {
	p.windows = append(p.windows, [2]time.Duration{min, max})
}

func (p *fakePacer) Done() { p.dones++ }

type feedbackPacer struct {
	fakePacer
}

func (p *feedbackPacer) RecordSuccess() { p.success++ }
func (p *feedbackPacer) RecordError()   { p.errors++ }
