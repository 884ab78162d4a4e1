package api

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/maltedev/supplier-scraper/internal/catalog"
	"github.com/maltedev/supplier-scraper/internal/export"
	"github.com/maltedev/supplier-scraper/internal/models"
)

const exportPageSize = 500

// ExportItems serves every stored product as CSV, oldest first.
func (h *Handlers) ExportItems(w http.ResponseWriter, r *http.Request) {
	var products []models.StoredProduct
	filter := catalog.Filter{Supplier: r.URL.Query().Get("supplier"), Limit: exportPageSize}
	for {
		batch, err := h.deps.Catalog.ListProducts(r.Context(), filter)
		if err != nil {
			h.logger.Error("failed to export items", "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to export items")
			return
		}
		products = append(products, batch...)
		if len(batch) < exportPageSize {
			break
		}
		filter.Offset += len(batch)
	}

	if len(products) == 0 {
		h.respondError(w, http.StatusNotFound, "no items to export")
		return
	}
	// listings are newest first
	slices.Reverse(products)

	filename := fmt.Sprintf("products_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	if err := export.WriteCSV(w, products); err != nil {
		h.logger.Error("failed to write export", "error", err)
	}
}
