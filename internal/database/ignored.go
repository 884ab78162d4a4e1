package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/maltedev/supplier-scraper/internal/models"
)

type IgnoredRepository struct {
	db *DB
}

func NewIgnoredRepository(db *DB) *IgnoredRepository {
	return &IgnoredRepository{db: db}
}

func (r *IgnoredRepository) Insert(ctx context.Context, item *models.IgnoredItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	query := `
		INSERT INTO ignored_items (id, url, supplier, kind, reason, date)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.pool.Exec(ctx, query,
		item.ID, item.URL, item.Supplier, string(item.Kind), item.Reason, item.Date)
	if err != nil {
		return fmt.Errorf("failed to insert ignored item: %w", err)
	}
	return nil
}

// List returns ignored items, newest first. An empty kind returns all kinds.
func (r *IgnoredRepository) List(ctx context.Context, kind models.IgnoredKind, limit int) ([]models.IgnoredItem, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, url, supplier, kind, reason, date
		FROM ignored_items
		WHERE ($1 = '' OR kind = $1)
		ORDER BY date DESC
		LIMIT $2`

	rows, err := r.db.pool.Query(ctx, query, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ignored items: %w", err)
	}
	defer rows.Close()

	items := make([]models.IgnoredItem, 0)
	for rows.Next() {
		var (
			item models.IgnoredItem
			k    string
		)
		if err := rows.Scan(&item.ID, &item.URL, &item.Supplier, &k, &item.Reason, &item.Date); err != nil {
			return nil, fmt.Errorf("failed to scan ignored item: %w", err)
		}
		item.Kind = models.IgnoredKind(k)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}
