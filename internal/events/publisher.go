// Package events builds catalog events and writes them to the transactional
// outbox.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/pricing"
)

type EventType string

const (
	EventTypeProductExtracted EventType = "PRODUCT_EXTRACTED"
	EventTypeProductDeleted   EventType = "PRODUCT_DELETED"
)

const source = "supplier-scraper"

// ProductExtractedPayload is published once per stored product.
type ProductExtractedPayload struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	Timestamp    time.Time       `json:"timestamp"`
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title"`
	Price        string          `json:"price"`
	Amount       *pricing.Amount `json:"amount,omitempty"`
	Description  []string        `json:"description"`
	Images       []string        `json:"images"`
	SourceURL    string          `json:"source_url"`
	SupplierName string          `json:"supplier_name"`
	Source       string          `json:"source"`
}

type ProductDeletedPayload struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	ProductID string    `json:"product_id"`
	SourceURL string    `json:"source_url"`
	Source    string    `json:"source"`
}

type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// Publisher writes events to the outbox inside the caller's transaction.
type Publisher struct {
	outbox OutboxWriter
	stream string
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher. An empty stream uses database.DefaultStream.
func NewPublisher(outbox OutboxWriter, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = database.DefaultStream
	}
	return &Publisher{
		outbox: outbox,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

func (p *Publisher) ProductExtracted(ctx context.Context, tx pgx.Tx, product *models.StoredProduct) error {
	payload := &ProductExtractedPayload{
		EventID:      uuid.NewString(),
		EventType:    string(EventTypeProductExtracted),
		Timestamp:    p.now(),
		ProductID:    product.ID,
		Title:        product.Title,
		Price:        product.Price,
		Amount:       pricing.ParseOptional(product.Price),
		Description:  product.Description,
		Images:       product.Images,
		SourceURL:    product.SourceURL,
		SupplierName: product.SupplierName,
		Source:       source,
	}
	return p.publish(ctx, tx, EventTypeProductExtracted, product.ID, payload.EventID, payload)
}

func (p *Publisher) ProductDeleted(ctx context.Context, tx pgx.Tx, productID, sourceURL string) error {
	payload := &ProductDeletedPayload{
		EventID:   uuid.NewString(),
		EventType: string(EventTypeProductDeleted),
		Timestamp: p.now(),
		ProductID: productID,
		SourceURL: sourceURL,
		Source:    source,
	}
	return p.publish(ctx, tx, EventTypeProductDeleted, productID, payload.EventID, payload)
}

func (p *Publisher) publish(ctx context.Context, tx pgx.Tx, eventType EventType, aggregateID, eventID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   aggregateID,
		EventType:     string(eventType),
		Payload:       data,
		TargetStream:  p.stream,
	}

	if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	p.logger.Debug("event written to outbox",
		"type", eventType,
		"event_id", eventID,
		"product_id", aggregateID,
		"outbox_id", outboxEvent.ID)

	return nil
}
