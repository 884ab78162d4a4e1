package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
)

func TestReadURLs(t *testing.T) {
	input := `
# suppliers to check
https://www.gifi.fr/a

  https://www.bol.com/b  
#https://www.amazon.fr/skipped
`
	urls, err := readURLs(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.gifi.fr/a", "https://www.bol.com/b"}, urls)
}

func TestCollectURLs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(file, []byte("https://www.gifi.fr/from-file\n"), 0o644))

	urls, err := collectURLs([]string{" https://www.bol.com/flag ", ""}, file)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.bol.com/flag", "https://www.gifi.fr/from-file"}, urls)

	_, err = collectURLs(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to open url file")
}

func TestParseCreatedAt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    *time.Time
		wantErr bool
	}{
		{name: "empty", raw: ""},
		{name: "date", raw: "2024-02-29", want: ptr(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))},
		{name: "rfc3339", raw: "2024-02-29T10:15:00Z", want: ptr(time.Date(2024, 2, 29, 10, 15, 0, 0, time.UTC))},
		{name: "garbage", raw: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCreatedAt(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got))
		})
	}
}

func TestWriteOutputJSON(t *testing.T) {
	summary := models.NewBatchSummary(1)
	summary.Failed = 1
	summary.Errors = append(summary.Errors, models.BatchError{URL: "https://x", Error: "boom"})

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, outputJSON, newPalette(), nil, summary))

	var decoded struct {
		Products []models.StoredProduct `json:"products"`
		Summary  models.BatchSummary    `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.NotNil(t, decoded.Products)
	assert.Empty(t, decoded.Products)
	assert.Equal(t, 1, decoded.Summary.Failed)
}

func TestWriteOutputCSV(t *testing.T) {
	stored := []models.StoredProduct{{ID: "p-1", SupplierName: "Gifi", Title: "Lampe", Price: "9,99 €"}}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, outputCSV, newPalette(), stored, models.NewBatchSummary(1)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "p-1,Gifi,Lampe,"))
}

func TestProgressLine(t *testing.T) {
	p := newPalette()

	added := p.progressLine(scraper.Progress{Done: 1, Total: 3, URL: "https://www.gifi.fr/a", Product: &models.StoredProduct{SupplierName: "Gifi"}})
	assert.Contains(t, added, "added")
	assert.Contains(t, added, "https://www.gifi.fr/a")
	assert.Contains(t, added, "Gifi")

	skipped := p.progressLine(scraper.Progress{Done: 2, Total: 3, URL: "https://www.gifi.fr/a", Err: scraper.ErrDuplicate})
	assert.Contains(t, skipped, "skipped")

	failed := p.progressLine(scraper.Progress{Done: 3, Total: 3, URL: "https://www.gifi.fr/b", Err: errors.New("timeout")})
	assert.Contains(t, failed, "failed")
	assert.Contains(t, failed, "timeout")
}

func ptr[T any](v T) *T { return &v }
