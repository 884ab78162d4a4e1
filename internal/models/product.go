package models

import (
	"time"
)

const (
	// DefaultTitle is stored when extraction found no title.
	DefaultTitle = "Untitled product"
	// PriceUnavailable is stored when extraction found no price.
	PriceUnavailable = "unavailable"
)

// ProductRecord is the extraction result for one page. Absent data is an
// empty string or an empty slice, never nil.
type ProductRecord struct {
	Title        string   `json:"title"`
	Price        string   `json:"price"`
	Description  []string `json:"description"`
	Images       []string `json:"images"`
	SourceURL    string   `json:"source_url"`
	SupplierName string   `json:"supplier_name"`
}

func NewProductRecord(sourceURL, supplierName string) ProductRecord {
	return ProductRecord{
		Description:  make([]string, 0),
		Images:       make([]string, 0),
		SourceURL:    sourceURL,
		SupplierName: supplierName,
	}
}

// StoredProduct is a ProductRecord with the identity and timestamp assigned by
// the store.
type StoredProduct struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Price        string    `json:"price"`
	Description  []string  `json:"description"`
	Images       []string  `json:"images"`
	SourceURL    string    `json:"source_url"`
	SupplierName string    `json:"supplier_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewStoredProduct applies the display defaults for missing title and price.
func NewStoredProduct(id string, rec ProductRecord, createdAt time.Time) StoredProduct {
	p := StoredProduct{
		ID:           id,
		Title:        rec.Title,
		Price:        rec.Price,
		Description:  rec.Description,
		Images:       rec.Images,
		SourceURL:    rec.SourceURL,
		SupplierName: rec.SupplierName,
		CreatedAt:    createdAt,
	}
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Price == "" {
		p.Price = PriceUnavailable
	}
	if p.Description == nil {
		p.Description = make([]string, 0)
	}
	if p.Images == nil {
		p.Images = make([]string, 0)
	}
	return p
}

type IgnoredKind string

const (
	IgnoredDuplicate   IgnoredKind = "duplicate"
	IgnoredUnsupported IgnoredKind = "unsupported"
	IgnoredError       IgnoredKind = "error"
)

// IgnoredItem records a URL that was skipped or failed.
type IgnoredItem struct {
	ID       string      `json:"id,omitempty"`
	URL      string      `json:"url"`
	Supplier string      `json:"supplier,omitempty"`
	Kind     IgnoredKind `json:"kind"`
	Reason   string      `json:"reason"`
	Date     time.Time   `json:"date"`
}

// BatchSummary is the recap of a batch run: added, already present and failed URLs.
type BatchSummary struct {
	Total       int          `json:"total"`
	Added       int          `json:"added"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	SkippedURLs []string     `json:"skipped_urls"`
	Errors      []BatchError `json:"errors"`
}

type BatchError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

func NewBatchSummary(total int) *BatchSummary {
	return &BatchSummary{
		Total:       total,
		SkippedURLs: make([]string, 0),
		Errors:      make([]BatchError, 0),
	}
}
