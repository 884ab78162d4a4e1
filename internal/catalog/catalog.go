// Package catalog is the product store used by the scrape service and the
// API: stored products, the ignored-URL log and their lookups.
package catalog

import (
	"context"
	"errors"

	"github.com/maltedev/supplier-scraper/internal/models"
)

var ErrNotFound = errors.New("product not found")

// Filter narrows product listings. Zero values mean no filter.
type Filter struct {
	Supplier string
	Limit    int
	Offset   int
}

// Catalog is implemented by the Postgres store and the JSON file store.
type Catalog interface {
	ExistsByURL(ctx context.Context, rawURL string) (bool, error)
	ListProducts(ctx context.Context, filter Filter) ([]models.StoredProduct, error)
	GetProduct(ctx context.Context, id string) (*models.StoredProduct, error)
	DeleteProduct(ctx context.Context, id string) error
	ListIgnored(ctx context.Context, kind models.IgnoredKind, limit int) ([]models.IgnoredItem, error)
}
