// Package storage keeps the catalog in a single JSON file, for running without
// Postgres.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/supplier-scraper/internal/catalog"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
)

// document is the on-disk layout.
type document struct {
	Products []models.StoredProduct `json:"products"`
	Ignored  []models.IgnoredItem   `json:"ignored"`
}

// FileStore implements the catalog on a JSON file. Every write rewrites the
// whole file through a temporary file and a rename.
type FileStore struct {
	mu       sync.RWMutex
	doc      document
	byURL    map[string]int
	filename string
	now      func() time.Time
}

func NewFileStore(filename string) (*FileStore, error) {
	fs := &FileStore{
		doc:      document{Products: make([]models.StoredProduct, 0), Ignored: make([]models.IgnoredItem, 0)},
		byURL:    make(map[string]int),
		filename: filename,
		now:      time.Now,
	}

	if err := fs.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}

	return fs, nil
}

func (fs *FileStore) ExistsByURL(_ context.Context, rawURL string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, ok := fs.byURL[rawURL]
	return ok, nil
}

func (fs *FileStore) SaveProduct(_ context.Context, rec models.ProductRecord, createdAt *time.Time) (*models.StoredProduct, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.byURL[rec.SourceURL]; ok {
		return nil, fmt.Errorf("%w: %s", scraper.ErrDuplicate, rec.SourceURL)
	}

	ts := fs.now()
	if createdAt != nil {
		ts = *createdAt
	}
	p := models.NewStoredProduct(uuid.NewString(), rec, ts)

	fs.doc.Products = append(fs.doc.Products, p)
	fs.byURL[p.SourceURL] = len(fs.doc.Products) - 1

	if err := fs.save(); err != nil {
		fs.doc.Products = fs.doc.Products[:len(fs.doc.Products)-1]
		delete(fs.byURL, p.SourceURL)
		return nil, err
	}
	return &p, nil
}

func (fs *FileStore) RecordIgnored(_ context.Context, item models.IgnoredItem) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	fs.doc.Ignored = append(fs.doc.Ignored, item)
	if err := fs.save(); err != nil {
		fs.doc.Ignored = fs.doc.Ignored[:len(fs.doc.Ignored)-1]
		return err
	}
	return nil
}

// ListProducts returns products newest first.
func (fs *FileStore) ListProducts(_ context.Context, filter catalog.Filter) ([]models.StoredProduct, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	products := make([]models.StoredProduct, 0, len(fs.doc.Products))
	for _, p := range fs.doc.Products {
		if filter.Supplier == "" || p.SupplierName == filter.Supplier {
			products = append(products, p)
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})

	return page(products, filter.Offset, filter.Limit), nil
}

func (fs *FileStore) GetProduct(_ context.Context, id string) (*models.StoredProduct, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	for _, p := range fs.doc.Products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (fs *FileStore) DeleteProduct(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx := -1
	for i, p := range fs.doc.Products {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return catalog.ErrNotFound
	}

	previous := fs.doc.Products
	fs.doc.Products = append(append(make([]models.StoredProduct, 0, len(previous)-1), previous[:idx]...), previous[idx+1:]...)
	if err := fs.save(); err != nil {
		fs.doc.Products = previous
		return err
	}
	fs.reindex()
	return nil
}

// ListIgnored returns ignored items newest first. An empty kind returns all kinds.
func (fs *FileStore) ListIgnored(_ context.Context, kind models.IgnoredKind, limit int) ([]models.IgnoredItem, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	items := make([]models.IgnoredItem, 0)
	for _, it := range fs.doc.Ignored {
		if kind == "" || it.Kind == kind {
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})

	return page(items, 0, limit), nil
}

func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if dir := filepath.Dir(fs.filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	if err := os.Rename(tmpFile, fs.filename); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Products != nil {
		fs.doc.Products = doc.Products
	}
	if doc.Ignored != nil {
		fs.doc.Ignored = doc.Ignored
	}
	fs.reindex()
	return nil
}

func (fs *FileStore) reindex() {
	fs.byURL = make(map[string]int, len(fs.doc.Products))
	for i, p := range fs.doc.Products {
		fs.byURL[p.SourceURL] = i
	}
}

func page[T any](items []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
