package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

// Title returns the trimmed text of the first element matched by the spec's
// selector chain, or "".
func (e *Extractor) Title(doc *goquery.Document, spec supplier.FieldSpec) string {
	if spec.Empty() {
		return ""
	}
	return e.firstText(doc, supplier.FieldTitle, spec)
}

// Price returns the display price. Attribute-derived prices are read from
// spec.Attribute, the decimal point becomes a comma and spec.Suffix is appended.
func (e *Extractor) Price(doc *goquery.Document, spec supplier.FieldSpec) string {
	if spec.Empty() {
		return ""
	}

	switch spec.Kind {
	case supplier.KindAttributeDerived:
		start := time.Now()
		for i, sel := range spec.Selectors() {
			value, ok := doc.Find(sel).First().Attr(spec.Attribute)
			value = strings.TrimSpace(value)
			if !ok || value == "" {
				continue
			}
			e.observe(supplier.FieldPrice, sel, 1, i > 0, start)
			return FormatDecimalComma(value) + spec.Suffix
		}
		e.observe(supplier.FieldPrice, "", 0, false, start)
		return ""
	default:
		return e.firstText(doc, supplier.FieldPrice, spec)
	}
}

// Description returns the description lines. It never returns nil.
func (e *Extractor) Description(doc *goquery.Document, spec supplier.FieldSpec) []string {
	lines := make([]string, 0)
	if spec.Empty() {
		return lines
	}

	start := time.Now()
	for i, sel := range spec.Selectors() {
		switch spec.Kind {
		case supplier.KindListItems:
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				if text := strings.TrimSpace(s.Text()); text != "" {
					lines = append(lines, text)
				}
			})
		case supplier.KindConcatenatedBlock:
			lines = append(lines, SplitLines(doc.Find(sel).First().Text())...)
		}
		if len(lines) > 0 {
			e.observe(supplier.FieldDescription, sel, len(lines), i > 0, start)
			return lines
		}
	}

	e.observe(supplier.FieldDescription, "", 0, false, start)
	return lines
}

func (e *Extractor) firstText(doc *goquery.Document, field supplier.Field, spec supplier.FieldSpec) string {
	start := time.Now()
	for i, sel := range spec.Selectors() {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			e.observe(field, sel, 1, i > 0, start)
			return text
		}
	}
	e.observe(field, "", 0, false, start)
	return ""
}

// FormatDecimalComma replaces the decimal point with a comma ("123.45" -> "123,45").
func FormatDecimalComma(value string) string {
	return strings.Replace(value, ".", ",", 1)
}

// SplitLines splits a text block on newlines, trims each line and drops the
// empty ones.
func SplitLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
