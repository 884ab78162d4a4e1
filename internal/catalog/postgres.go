package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/events"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
)

// PostgresStore stores products in Postgres. Each stored or deleted product
// writes its catalog event to the outbox in the same transaction.
type PostgresStore struct {
	db        *database.DB
	products  *database.ProductRepository
	ignored   *database.IgnoredRepository
	publisher *events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewPostgresStore creates the store. A nil publisher disables catalog events.
func NewPostgresStore(db *database.DB, publisher *events.Publisher, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:        db,
		products:  database.NewProductRepository(db),
		ignored:   database.NewIgnoredRepository(db),
		publisher: publisher,
		logger:    logger.With("component", "catalog"),
		now:       time.Now,
	}
}

func (s *PostgresStore) ExistsByURL(ctx context.Context, rawURL string) (bool, error) {
	return s.products.ExistsByURL(ctx, rawURL)
}

func (s *PostgresStore) SaveProduct(ctx context.Context, rec models.ProductRecord, createdAt *time.Time) (*models.StoredProduct, error) {
	ts := s.now()
	if createdAt != nil {
		ts = *createdAt
	}
	product := models.NewStoredProduct(uuid.NewString(), rec, ts)

	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := s.products.InsertWithTx(ctx, tx, &product); err != nil {
			return err
		}
		if s.publisher != nil {
			return s.publisher.ProductExtracted(ctx, tx, &product)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateURL) {
			return nil, fmt.Errorf("%w: %s", scraper.ErrDuplicate, rec.SourceURL)
		}
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	s.logger.Info("product stored",
		"id", product.ID,
		"supplier", product.SupplierName,
		"url", product.SourceURL)

	return &product, nil
}

func (s *PostgresStore) RecordIgnored(ctx context.Context, item models.IgnoredItem) error {
	return s.ignored.Insert(ctx, &item)
}

func (s *PostgresStore) ListProducts(ctx context.Context, filter Filter) ([]models.StoredProduct, error) {
	return s.products.List(ctx, database.ProductFilter{
		Supplier: filter.Supplier,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*models.StoredProduct, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	err := s.db.Transaction(ctx, func(tx pgx.Tx) error {
		sourceURL, err := s.products.DeleteWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if s.publisher != nil {
			return s.publisher.ProductDeleted(ctx, tx, id, sourceURL)
		}
		return nil
	})
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info("product deleted", "id", id)
	return nil
}

func (s *PostgresStore) ListIgnored(ctx context.Context, kind models.IgnoredKind, limit int) ([]models.IgnoredItem, error) {
	return s.ignored.List(ctx, kind, limit)
}
