package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/supplier-scraper/internal/parser"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

func newTestPipeline(fetcher Fetcher, renderer Renderer, observer parser.Observer) *Pipeline {
	logger := testLogger()
	return NewPipeline(
		supplier.DefaultRegistry(),
		NewRetriever(fetcher, renderer, nil, logger),
		parser.NewExtractor(nil, observer),
		logger,
	)
}

func TestPipelineExtract(t *testing.T) {
	ctx := context.Background()
	renderer := new(MockRenderer)
	url := "https://eur.vevor.com/p/1"
	renderer.On("Render", ctx, url, mock.Anything).Return(`<html><body>
		<h1>Scie circulaire</h1>
		<span class="DM_co-shopPrice" data-currency="123.45"></span>
		<ul class="detailGuide_cont"><li>800W</li><li>Lame 185mm</li></ul>
		<img class="img-normal" src="https://img.vevorstatic.com/fr/a_medium.jpg">
		<img class="img-normal" src="/img/b.jpg">
	</body></html>`, nil)

	res, err := newTestPipeline(new(MockFetcher), renderer, nil).Extract(ctx, url)

	require.NoError(t, err)
	assert.True(t, res.Rendered)
	assert.Equal(t, "Vevor", res.Record.SupplierName)
	assert.Equal(t, "Scie circulaire", res.Record.Title)
	assert.Equal(t, "123,45 €", res.Record.Price)
	assert.Equal(t, []string{"800W", "Lame 185mm"}, res.Record.Description)
	assert.Equal(t, []string{
		"https://img.vevorstatic.com/fr/a_large.jpg",
		"https://eur.vevor.com/img/b.jpg",
	}, res.Record.Images)
}

func TestPipelinePartialExtractionIsNotAnError(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", ctx, "https://www.cdiscount.com/x").Return("<html><body><p>blocked?</p></body></html>", nil)

	res, err := newTestPipeline(fetcher, nil, nil).Extract(ctx, "https://www.cdiscount.com/x")

	require.NoError(t, err)
	assert.Equal(t, "", res.Record.Title)
	assert.Equal(t, "", res.Record.Price)
	assert.Equal(t, []string{}, res.Record.Description)
	assert.Equal(t, []string{}, res.Record.Images)
}

func TestPipelineUnsupported(t *testing.T) {
	_, err := newTestPipeline(new(MockFetcher), nil, nil).Extract(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, ErrUnsupportedSupplier)
}

func TestPipelineRecoversPanic(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", ctx, "https://www.cdiscount.com/x").Return("<html><h1>t</h1></html>", nil)

	boom := parser.ObserverFunc(func(parser.Observation) { panic("observer exploded") })
	_, err := newTestPipeline(fetcher, nil, boom).Extract(ctx, "https://www.cdiscount.com/x")

	var unexpected *UnexpectedError
	require.True(t, errors.As(err, &unexpected))
	assert.Contains(t, err.Error(), "observer exploded")
}

func TestIgnoredKindFor(t *testing.T) {
	assert.Equal(t, "duplicate", string(IgnoredKindFor(ErrDuplicate)))
	assert.Equal(t, "unsupported", string(IgnoredKindFor(ErrUnsupportedSupplier)))
	assert.Equal(t, "error", string(IgnoredKindFor(&RetrievalError{Cause: errors.New("x")})))
}
