package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func newTestPublisher(outbox OutboxWriter) *Publisher {
	p := NewPublisher(outbox, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestPublisher_ProductExtracted(t *testing.T) {
	ctx := context.Background()
	outbox := new(MockOutbox)
	publisher := newTestPublisher(outbox)

	product := models.NewStoredProduct("p-1", models.ProductRecord{
		Title:        "Scie circulaire",
		Price:        "1 234,56 €",
		Description:  []string{"Puissante"},
		Images:       []string{"https://img.vevorstatic.com/a_large.jpg"},
		SourceURL:    "https://www.vevor.fr/p/1",
		SupplierName: "Vevor",
	}, time.Now())

	var captured *database.OutboxEvent
	outbox.On("InsertWithTx", ctx, mock.Anything, mock.AnythingOfType("*database.OutboxEvent")).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*database.OutboxEvent) }).
		Return(nil)

	require.NoError(t, publisher.ProductExtracted(ctx, nil, &product))
	require.NotNil(t, captured)

	assert.Equal(t, "product", captured.AggregateType)
	assert.Equal(t, "p-1", captured.AggregateID)
	assert.Equal(t, string(EventTypeProductExtracted), captured.EventType)
	assert.Equal(t, database.DefaultStream, captured.TargetStream)

	var payload ProductExtractedPayload
	require.NoError(t, json.Unmarshal(captured.Payload, &payload))
	assert.NotEmpty(t, payload.EventID)
	assert.Equal(t, "Scie circulaire", payload.Title)
	assert.Equal(t, "supplier-scraper", payload.Source)
	require.NotNil(t, payload.Amount)
	assert.Equal(t, "1234.56", payload.Amount.Value.String())
	assert.Equal(t, "EUR", payload.Amount.Currency)
}

func TestPublisher_UnavailablePriceHasNoAmount(t *testing.T) {
	ctx := context.Background()
	outbox := new(MockOutbox)
	publisher := newTestPublisher(outbox)

	product := models.NewStoredProduct("p-2", models.ProductRecord{SourceURL: "https://www.gifi.fr/p"}, time.Now())

	outbox.On("InsertWithTx", ctx, mock.Anything, mock.MatchedBy(func(e *database.OutboxEvent) bool {
		var payload map[string]any
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return false
		}
		_, hasAmount := payload["amount"]
		return !hasAmount && payload["price"] == models.PriceUnavailable
	})).Return(nil)

	require.NoError(t, publisher.ProductExtracted(ctx, nil, &product))
	outbox.AssertExpectations(t)
}

func TestPublisher_ProductDeleted(t *testing.T) {
	ctx := context.Background()
	outbox := new(MockOutbox)
	publisher := NewPublisher(outbox, "stream:custom", slog.New(slog.NewTextHandler(io.Discard, nil)))

	outbox.On("InsertWithTx", ctx, mock.Anything, mock.MatchedBy(func(e *database.OutboxEvent) bool {
		return e.EventType == string(EventTypeProductDeleted) &&
			e.AggregateID == "p-3" &&
			e.TargetStream == "stream:custom"
	})).Return(nil)

	require.NoError(t, publisher.ProductDeleted(ctx, nil, "p-3", "https://www.gifi.fr/p"))
	outbox.AssertExpectations(t)
}

func TestPublisher_InsertFailure(t *testing.T) {
	ctx := context.Background()
	outbox := new(MockOutbox)
	publisher := newTestPublisher(outbox)

	outbox.On("InsertWithTx", ctx, mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	product := models.NewStoredProduct("p-4", models.ProductRecord{}, time.Now())
	err := publisher.ProductExtracted(ctx, nil, &product)
	assert.ErrorContains(t, err, "insert failed")
}
