// Package export writes stored products as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/pricing"
)

var Header = []string{
	"id", "supplier", "title", "price", "amount", "currency",
	"description", "images", "source_url", "created_at",
}

// WriteCSV writes a header and one row per product, in the given order.
// Description lines and image URLs are newline separated within their cell.
func WriteCSV(out io.Writer, products []models.StoredProduct) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range products {
		if err := cw.Write(Row(p)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Row is the CSV record of p. amount and currency stay empty when the display
// price holds no amount.
func Row(p models.StoredProduct) []string {
	amount, currency := "", ""
	if a := pricing.ParseOptional(p.Price); a != nil {
		amount = a.Value.StringFixed(2)
		currency = a.Currency
	}
	return []string{
		p.ID,
		p.SupplierName,
		p.Title,
		p.Price,
		amount,
		currency,
		strings.Join(p.Description, "\n"),
		strings.Join(p.Images, "\n"),
		p.SourceURL,
		p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
