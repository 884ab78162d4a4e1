package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/supplier-scraper/internal/models"
)

var (
	ErrDuplicateURL = errors.New("source url already stored")
	ErrNotFound     = errors.New("not found")
)

// ProductFilter narrows List. Zero values mean no filter.
type ProductFilter struct {
	Supplier string
	Limit    int
	Offset   int
}

type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ExistsByURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM products WHERE source_url = $1)", sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product url: %w", err)
	}
	return exists, nil
}

// InsertWithTx stores p inside tx. A second product with the same source URL
// fails with ErrDuplicateURL.
func (r *ProductRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, p *models.StoredProduct) error {
	description, err := json.Marshal(p.Description)
	if err != nil {
		return fmt.Errorf("failed to marshal description: %w", err)
	}
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}

	query := `
		INSERT INTO products (
			id, title, price, description, images,
			source_url, supplier_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.Title, p.Price, description, images,
		p.SourceURL, p.SupplierName, p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateURL, p.SourceURL)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.StoredProduct, error) {
	query := `
		SELECT id, title, price, description, images, source_url, supplier_name, created_at
		FROM products
		WHERE id = $1`

	p, err := scanProduct(r.db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// List returns stored products, newest first.
func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.StoredProduct, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, title, price, description, images, source_url, supplier_name, created_at
		FROM products
		WHERE ($1 = '' OR supplier_name = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.pool.Query(ctx, query, filter.Supplier, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]models.StoredProduct, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// DeleteWithTx removes the product and returns its source URL.
func (r *ProductRepository) DeleteWithTx(ctx context.Context, tx pgx.Tx, id string) (string, error) {
	var sourceURL string
	err := tx.QueryRow(ctx,
		"DELETE FROM products WHERE id = $1 RETURNING source_url", id).Scan(&sourceURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to delete product: %w", err)
	}
	return sourceURL, nil
}

func scanProduct(row pgx.Row) (*models.StoredProduct, error) {
	var (
		p                   models.StoredProduct
		description, images []byte
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Price, &description, &images,
		&p.SourceURL, &p.SupplierName, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Description = make([]string, 0)
	p.Images = make([]string, 0)
	if err := json.Unmarshal(description, &p.Description); err != nil {
		return nil, fmt.Errorf("failed to unmarshal description: %w", err)
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	return &p, nil
}
