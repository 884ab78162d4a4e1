package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductRecordNeverNil(t *testing.T) {
	rec := NewProductRecord("https://www.amazon.fr/dp/X", "Amazon")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "",
		"price": "",
		"description": [],
		"images": [],
		"source_url": "https://www.amazon.fr/dp/X",
		"supplier_name": "Amazon"
	}`, string(data))
}

func TestNewStoredProductDefaults(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		rec           ProductRecord
		expectedTitle string
		expectedPrice string
	}{
		{
			name:          "Missing title and price",
			rec:           ProductRecord{SourceURL: "u"},
			expectedTitle: DefaultTitle,
			expectedPrice: PriceUnavailable,
		},
		{
			name:          "Values kept",
			rec:           ProductRecord{Title: "Perceuse", Price: "49,90 €"},
			expectedTitle: "Perceuse",
			expectedPrice: "49,90 €",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewStoredProduct("id-1", tt.rec, created)
			assert.Equal(t, tt.expectedTitle, p.Title)
			assert.Equal(t, tt.expectedPrice, p.Price)
			assert.Equal(t, created, p.CreatedAt)
			assert.NotNil(t, p.Description)
			assert.NotNil(t, p.Images)
		})
	}
}
