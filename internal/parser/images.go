package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/supplier-scraper/internal/imageurl"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// genericImageAttributes are tried after the supplier specific attributes.
var genericImageAttributes = []string{
	"data-large-image",
	"data-original",
	"data-zoom-image",
	"data-lazy-src",
	"data-src",
	"src",
}

// Images returns the normalized absolute image URLs of every element matched
// by the spec. The fallback selectors are only tried when a whole collection
// came back empty. Duplicates are kept in document order.
func (e *Extractor) Images(doc *goquery.Document, spec supplier.FieldSpec, baseURL string) []string {
	urls := make([]string, 0)
	if spec.Empty() {
		return urls
	}

	start := time.Now()
	for i, sel := range spec.Selectors() {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			src := ImageSource(s, spec)
			if src == "" {
				return
			}
			urls = append(urls, imageurl.Resolve(e.normalizer.Normalize(src), baseURL))
		})
		if len(urls) > 0 {
			e.observe(supplier.FieldImages, sel, len(urls), i > 0, start)
			return urls
		}
	}

	e.observe(supplier.FieldImages, "", 0, false, start)
	return urls
}

// ImageSource picks the best source of one image element: the size manifest,
// then the supplier's high resolution attributes, then the generic ones.
func ImageSource(s *goquery.Selection, spec supplier.FieldSpec) string {
	if spec.Manifest != "" {
		if raw, ok := s.Attr(spec.Manifest); ok {
			if best := LargestFromManifest(raw); best != "" {
				return best
			}
		}
	}

	for _, attrs := range [][]string{spec.HiResAttributes, genericImageAttributes} {
		for _, attr := range attrs {
			if v, ok := s.Attr(attr); ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}
