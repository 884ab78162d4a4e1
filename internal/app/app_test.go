package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/supplier-scraper/internal/config"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
	"github.com/maltedev/supplier-scraper/internal/storage"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Store.Backend = config.StoreBackendFile
	cfg.Store.FilePath = filepath.Join(t.TempDir(), "products.json")
	cfg.Browser.Enabled = false
	return cfg
}

func TestNewWithFileStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, fileConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &storage.FileStore{}, a.Store)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Outbox)
	assert.NotNil(t, a.Jobs)

	_, err = a.Service.Scrape(ctx, "https://example.com/product", scraper.ScrapeOptions{})
	require.ErrorIs(t, err, scraper.ErrUnsupportedSupplier)

	ignored, err := a.Store.ListIgnored(ctx, models.IgnoredUnsupported, 10)
	require.NoError(t, err)
	require.Len(t, ignored, 1)
	assert.Equal(t, "https://example.com/product", ignored[0].URL)
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Store.Backend = "mongo"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestCloseIsIdempotent(t *testing.T) {
	calls := 0
	a := &App{closers: []func() error{func() error { calls++; return nil }}}

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, calls)
}

func TestBrowserOptions(t *testing.T) {
	opts := browserOptions(config.BrowserConfig{
		Headless:          false,
		AllowHeadful:      true,
		NavigationTimeout: 10 * time.Second,
		Locale:            "nl-NL",
	})

	assert.False(t, opts.Headless)
	assert.True(t, opts.AllowHeadful)
	assert.Equal(t, 10*time.Second, opts.NavigationTimeout)
	assert.Equal(t, "nl-NL", opts.Locale)
	assert.Equal(t, "Europe/Paris", opts.TimezoneID)
	assert.Equal(t, 1920, opts.ViewportWidth)
}
