package parser

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/supplier-scraper/internal/supplier"
)

func mustSupplier(t *testing.T, rawURL string) supplier.Config {
	t.Helper()
	cfg, err := supplier.DefaultRegistry().Detect(rawURL)
	require.NoError(t, err)
	return cfg
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := ParseHTML(html)
	require.NoError(t, err)
	return doc
}

func TestTitle(t *testing.T) {
	e := NewExtractor(nil, nil)

	tests := []struct {
		name     string
		html     string
		spec     supplier.FieldSpec
		expected string
	}{
		{
			name:     "First match trimmed",
			html:     `<h1>  Perceuse sans fil  </h1><h1>Second</h1>`,
			spec:     supplier.FieldSpec{Selector: "h1", Kind: supplier.KindPlainText},
			expected: "Perceuse sans fil",
		},
		{
			name:     "No match",
			html:     `<p>nothing</p>`,
			spec:     supplier.FieldSpec{Selector: "h1", Kind: supplier.KindPlainText},
			expected: "",
		},
		{
			name:     "No selector",
			html:     `<h1>Title</h1>`,
			spec:     supplier.FieldSpec{Kind: supplier.KindPlainText},
			expected: "",
		},
		{
			name:     "Fallback used when primary empty",
			html:     `<h1>   </h1><div class="product-name">Vase</div>`,
			spec:     supplier.FieldSpec{Selector: "h1", Kind: supplier.KindPlainText, Fallbacks: []string{".missing", ".product-name"}},
			expected: "Vase",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Title(mustDoc(t, tt.html), tt.spec))
		})
	}
}

func TestPrice(t *testing.T) {
	e := NewExtractor(nil, nil)
	vevor := mustSupplier(t, "https://eur.vevor.com/p/1").Fields.Price

	tests := []struct {
		name     string
		html     string
		spec     supplier.FieldSpec
		expected string
	}{
		{
			name:     "Vevor attribute price",
			html:     `<span class="DM_co-shopPrice" data-currency="123.45">123,45 €</span>`,
			spec:     vevor,
			expected: "123,45 €",
		},
		{
			name:     "Vevor integer price",
			html:     `<span class="DM_co-shopPrice" data-currency="80">80 €</span>`,
			spec:     vevor,
			expected: "80 €",
		},
		{
			name:     "Attribute absent",
			html:     `<span class="DM_co-shopPrice">123,45 €</span>`,
			spec:     vevor,
			expected: "",
		},
		{
			name:     "Plain text",
			html:     `<span class="a-offscreen"> 49,99 € </span><span class="a-offscreen">12,00 €</span>`,
			spec:     supplier.FieldSpec{Selector: ".a-offscreen", Kind: supplier.KindPlainText},
			expected: "49,99 €",
		},
		{
			name:     "Empty kind",
			html:     `<span class="a-offscreen">49,99 €</span>`,
			spec:     supplier.FieldSpec{Kind: supplier.KindEmpty},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Price(mustDoc(t, tt.html), tt.spec))
		})
	}
}

func TestDescription(t *testing.T) {
	e := NewExtractor(nil, nil)

	t.Run("List items", func(t *testing.T) {
		doc := mustDoc(t, `<ul class="detailGuide_cont"><li> Puissance 800W </li><li></li><li>Garantie 2 ans</li></ul>`)
		spec := mustSupplier(t, "https://eur.vevor.com/p/1").Fields.Description
		assert.Equal(t, []string{"Puissance 800W", "Garantie 2 ans"}, e.Description(doc, spec))
	})

	t.Run("Concatenated block", func(t *testing.T) {
		doc := mustDoc(t, "<div id=\"feature-bullets\">\n  Ligne 1  \n\n   \n Ligne 2\n</div>")
		spec := mustSupplier(t, "https://www.amazon.fr/dp/X").Fields.Description
		assert.Equal(t, []string{"Ligne 1", "Ligne 2"}, e.Description(doc, spec))
	})

	t.Run("Block fallback", func(t *testing.T) {
		doc := mustDoc(t, "<div class=\"c-productHighlights__list\">  </div><div id=\"MarketingLongDescription\">A\nB</div>")
		spec := mustSupplier(t, "https://www.cdiscount.com/f-1.html").Fields.Description
		assert.Equal(t, []string{"A", "B"}, e.Description(doc, spec))
	})

	t.Run("All fallbacks empty", func(t *testing.T) {
		doc := mustDoc(t, `<p>nothing</p>`)
		spec := mustSupplier(t, "https://www.cdiscount.com/f-1.html").Fields.Description
		got := e.Description(doc, spec)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Empty kind never fails", func(t *testing.T) {
		doc := mustDoc(t, `<div class="product-description">text</div>`)
		spec := mustSupplier(t, "https://fr.aliexpress.com/item/1.html").Fields.Description
		got := e.Description(doc, spec)
		assert.NotNil(t, got)
		assert.Equal(t, []string{}, got)
	})
}

func TestImages(t *testing.T) {
	e := NewExtractor(nil, nil)
	base := "https://site.example/p/1"

	t.Run("Relative source resolved", func(t *testing.T) {
		doc := mustDoc(t, `<img class="pic" src="/img/x.jpg">`)
		spec := supplier.FieldSpec{Selector: "img.pic", Kind: supplier.KindImageCollection}
		assert.Equal(t, []string{"https://site.example/img/x.jpg"}, e.Images(doc, spec, base))
	})

	t.Run("Attribute priority", func(t *testing.T) {
		doc := mustDoc(t, `<img class="pic" src="/s.jpg" data-src="/lazy.jpg" data-zoom-image="/zoom.jpg">`)
		spec := supplier.FieldSpec{Selector: "img.pic", Kind: supplier.KindImageCollection}
		assert.Equal(t, []string{"https://site.example/zoom.jpg"}, e.Images(doc, spec, base))
	})

	t.Run("Elements without source skipped", func(t *testing.T) {
		doc := mustDoc(t, `<img class="pic"><img class="pic" src=" "><img class="pic" src="/a.jpg">`)
		spec := supplier.FieldSpec{Selector: "img.pic", Kind: supplier.KindImageCollection}
		assert.Equal(t, []string{"https://site.example/a.jpg"}, e.Images(doc, spec, base))
	})

	t.Run("Duplicates kept in order", func(t *testing.T) {
		doc := mustDoc(t, `<img class="pic" src="/a.jpg"><img class="pic" src="/b.jpg"><img class="pic" src="/a.jpg">`)
		spec := supplier.FieldSpec{Selector: "img.pic", Kind: supplier.KindImageCollection}
		assert.Equal(t, []string{
			"https://site.example/a.jpg",
			"https://site.example/b.jpg",
			"https://site.example/a.jpg",
		}, e.Images(doc, spec, base))
	})

	t.Run("Collection fallback", func(t *testing.T) {
		doc := mustDoc(t, `<div class="gallery"><img data-src="/g1.jpg"><img src="/g2.jpg"></div>`)
		spec := supplier.FieldSpec{Selector: "img.main", Kind: supplier.KindImageCollection, Fallbacks: []string{".gallery img"}}
		assert.Equal(t, []string{"https://site.example/g1.jpg", "https://site.example/g2.jpg"}, e.Images(doc, spec, base))
	})

	t.Run("Normalized before resolving", func(t *testing.T) {
		doc := mustDoc(t, `<div class="c-productViewer__controls"><img src="https://www.cdiscount.com/pdt2/m/1/abc.jpg"></div>`)
		spec := mustSupplier(t, "https://www.cdiscount.com/f-1.html").Fields.Images
		assert.Equal(t, []string{"https://www.cdiscount.com/pdt2/f/1/abc.jpg"}, e.Images(doc, spec, "https://www.cdiscount.com/f-1.html"))
	})

	t.Run("Empty kind", func(t *testing.T) {
		doc := mustDoc(t, `<img src="/a.jpg">`)
		spec := mustSupplier(t, "https://www.bol.com/nl/p/1").Fields.Images
		got := e.Images(doc, spec, base)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestExtractIsPure(t *testing.T) {
	var observations []Observation
	e := NewExtractor(nil, ObserverFunc(func(o Observation) {
		observations = append(observations, o)
	}))

	html := `<html><body>
		<h1>Perceuse</h1>
		<div id="DisplayPrice">59,90 €</div>
		<div id="MarketingLongDescription">Compacte
		Légère</div>
		<div class="c-productViewer__controls"><img src="https://i2.cdscdn.com/pdt2/s/a.jpg"><img src="https://i2.cdscdn.com/pdt2/s/b.jpg"></div>
	</body></html>`
	doc := mustDoc(t, html)
	cfg := mustSupplier(t, "https://www.cdiscount.com/f-1.html")

	first := e.Extract(doc, cfg, "https://www.cdiscount.com/f-1.html")
	second := e.Extract(doc, cfg, "https://www.cdiscount.com/f-1.html")

	assert.Equal(t, first, second)
	assert.Equal(t, "Perceuse", first.Title)
	assert.Equal(t, "59,90 €", first.Price)
	assert.Equal(t, []string{"Compacte", "Légère"}, first.Description)
	assert.Equal(t, []string{
		"https://i2.cdscdn.com/pdt2/f/a.jpg",
		"https://i2.cdscdn.com/pdt2/f/b.jpg",
	}, first.Images)
	assert.Equal(t, "Cdiscount", first.SupplierName)
	assert.Equal(t, "https://www.cdiscount.com/f-1.html", first.SourceURL)

	require.Len(t, observations, 8)
	desc := observations[2]
	assert.Equal(t, supplier.FieldDescription, desc.Field)
	assert.Equal(t, "#MarketingLongDescription", desc.Selector)
	assert.True(t, desc.Fallback)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{}, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("\n a \r\n\n b\n"))
}
