// Package api serves the scraper over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maltedev/supplier-scraper/internal/archive"
	"github.com/maltedev/supplier-scraper/internal/catalog"
	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/fetch"
	"github.com/maltedev/supplier-scraper/internal/jobs"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/pricing"
	"github.com/maltedev/supplier-scraper/internal/scraper"
	"github.com/maltedev/supplier-scraper/internal/supplier"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxBatchURLs     = 500
)

type Scraper interface {
	Scrape(ctx context.Context, rawURL string, opts scraper.ScrapeOptions) (*scraper.ScrapeResult, error)
}

type JobManager interface {
	Submit(ctx context.Context, urls []string, createdAt *time.Time) (*models.BatchJob, error)
	GetJob(ctx context.Context, id string) (*models.BatchJob, error)
	ListJobs(ctx context.Context, limit int) ([]*models.BatchJob, error)
}

type SupplierLister interface {
	Entries() []supplier.Config
}

type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) (*fetch.Image, error)
}

type Archiver interface {
	ArchiveProduct(ctx context.Context, p *models.StoredProduct) ([]archive.ArchivedImage, error)
}

type OutboxStats interface {
	Stats(ctx context.Context) (database.RelayStats, error)
}

// Throttle admits or rejects a single scrape request.
type Throttle interface {
	Allow() bool
}

// Dependencies of the handlers. Archiver, Outbox and Throttle are optional.
type Dependencies struct {
	Scraper   Scraper
	Jobs      JobManager
	Catalog   catalog.Catalog
	Suppliers SupplierLister
	Images    ImageFetcher
	Archiver  Archiver
	Outbox    OutboxStats
	Throttle  Throttle
}

type Handlers struct {
	deps     Dependencies
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandlers(deps Dependencies, logger *slog.Logger) *Handlers {
	return &Handlers{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "api"),
	}
}

// ScrapeRequest is the body of POST /api/scrape.
type ScrapeRequest struct {
	URL       string     `json:"url" validate:"required,url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type ScrapeResponse struct {
	Product  ProductResponse `json:"product"`
	Rendered bool            `json:"rendered"`
}

// ProductResponse is a stored product with its parsed price, when the display
// price could be read.
type ProductResponse struct {
	models.StoredProduct
	Amount *pricing.Amount `json:"amount,omitempty"`
}

func newProductResponse(p models.StoredProduct) ProductResponse {
	return ProductResponse{StoredProduct: p, Amount: pricing.ParseOptional(p.Price)}
}

// Scrape extracts and stores one product page.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "a valid url is required")
		return
	}

	if h.deps.Throttle != nil && !h.deps.Throttle.Allow() {
		h.respondError(w, http.StatusTooManyRequests, "too many scrape requests, retry later")
		return
	}

	res, err := h.deps.Scraper.Scrape(r.Context(), req.URL, scraper.ScrapeOptions{CreatedAt: req.CreatedAt})
	if err != nil {
		h.respondScrapeError(w, req.URL, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, ScrapeResponse{
		Product:  newProductResponse(*res.Product),
		Rendered: res.Rendered,
	})
}

func (h *Handlers) respondScrapeError(w http.ResponseWriter, rawURL string, err error) {
	var retrievalErr *scraper.RetrievalError
	switch {
	case errors.Is(err, scraper.ErrUnsupportedSupplier):
		h.respondError(w, http.StatusBadRequest, "unsupported site, check the url")
	case errors.Is(err, scraper.ErrDuplicate):
		h.respondError(w, http.StatusConflict, "url already scanned")
	case errors.As(err, &retrievalErr):
		h.respondError(w, http.StatusBadGateway, "failed to retrieve page: "+retrievalErr.Cause.Error())
	default:
		h.logger.Error("scrape failed", "url", rawURL, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to scrape page")
	}
}

// CreateBatchRequest is the body of POST /api/batches. Entries are not
// validated here: a malformed URL fails on its own inside the batch.
type CreateBatchRequest struct {
	URLs      []string   `json:"urls" validate:"required,min=1,max=500"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type CreateBatchResponse struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
	Total  int              `json:"total"`
}

func (h *Handlers) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "urls must hold between 1 and "+strconv.Itoa(maxBatchURLs)+" entries")
		return
	}

	job, err := h.deps.Jobs.Submit(r.Context(), req.URLs, req.CreatedAt)
	if err != nil {
		h.logger.Error("failed to create batch", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create batch")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateBatchResponse{
		JobID:  job.ID,
		Status: job.Status,
		Total:  len(job.URLs),
	})
}

func (h *Handlers) GetBatch(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.deps.Jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get batch", "job_id", jobID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get batch")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryInt(w, r, "limit", defaultListLimit)
	if !ok {
		return
	}

	list, err := h.deps.Jobs.ListJobs(r.Context(), min(limit, maxListLimit))
	if err != nil {
		h.logger.Error("failed to list batches", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.itemFilter(w, r)
	if !ok {
		return
	}

	products, err := h.deps.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	items := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, newProductResponse(p))
	}
	h.respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, newProductResponse(*product))
}

func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.deps.Catalog.DeleteProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete item", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ArchiveResponse struct {
	ProductID string                  `json:"product_id"`
	Images    []archive.ArchivedImage `json:"images"`
}

// ArchiveItem copies the images of a stored product to the object store.
func (h *Handlers) ArchiveItem(w http.ResponseWriter, r *http.Request) {
	if h.deps.Archiver == nil {
		h.respondError(w, http.StatusServiceUnavailable, "image archive is not configured")
		return
	}

	product, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	images, err := h.deps.Archiver.ArchiveProduct(r.Context(), product)
	if err != nil && len(images) == 0 {
		h.logger.Error("failed to archive item", "id", product.ID, "error", err)
		h.respondError(w, http.StatusBadGateway, "failed to archive images")
		return
	}
	if err != nil {
		h.logger.Warn("item partially archived", "id", product.ID, "error", err)
	}

	h.respondJSON(w, http.StatusOK, ArchiveResponse{ProductID: product.ID, Images: images})
}

type DownloadImageRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

// DownloadImage proxies a supplier image so browsers are not blocked by the
// supplier's referer checks.
func (h *Handlers) DownloadImage(w http.ResponseWriter, r *http.Request) {
	var req DownloadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "a valid url is required")
		return
	}

	img, err := h.deps.Images.FetchImage(r.Context(), req.URL)
	if err != nil {
		h.logger.Warn("failed to download image", "url", req.URL, "error", err)
		h.respondError(w, http.StatusBadGateway, "failed to download image")
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Data); err != nil {
		h.logger.Debug("failed to write image", "error", err)
	}
}

func (h *Handlers) ListIgnored(w http.ResponseWriter, r *http.Request) {
	kind := models.IgnoredKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", models.IgnoredDuplicate, models.IgnoredUnsupported, models.IgnoredError:
	default:
		h.respondError(w, http.StatusBadRequest, "kind must be duplicate, unsupported or error")
		return
	}

	limit, ok := h.queryInt(w, r, "limit", defaultListLimit)
	if !ok {
		return
	}

	items, err := h.deps.Catalog.ListIgnored(r.Context(), kind, min(limit, maxListLimit))
	if err != nil {
		h.logger.Error("failed to list ignored urls", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list ignored urls")
		return
	}

	h.respondJSON(w, http.StatusOK, items)
}

type SupplierResponse struct {
	Name              string `json:"name"`
	MatchKey          string `json:"match_key"`
	RequiresRendering bool   `json:"requires_rendering"`
	PacingMin         string `json:"pacing_min"`
	PacingMax         string `json:"pacing_max"`
}

func (h *Handlers) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	entries := h.deps.Suppliers.Entries()
	resp := make([]SupplierResponse, 0, len(entries))
	for _, c := range entries {
		resp = append(resp, SupplierResponse{
			Name:              c.DisplayName,
			MatchKey:          c.MatchKey,
			RequiresRendering: c.RequiresRendering,
			PacingMin:         c.Pacing.Min.String(),
			PacingMax:         c.Pacing.Max.String(),
		})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

const (
	pendingWarnThreshold     = 1000
	deadLetterErrorThreshold = 100
)

// Health reports the service status and, with the outbox enabled, its backlog.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok"}
	status := http.StatusOK

	if h.deps.Outbox != nil {
		stats, err := h.deps.Outbox.Stats(r.Context())
		if err != nil {
			h.logger.Warn("failed to read outbox stats", "error", err)
			health["status"] = "warning"
			health["message"] = "outbox stats unavailable"
		} else {
			health["outbox"] = stats
			if stats.Pending > pendingWarnThreshold {
				health["status"] = "warning"
				health["message"] = "high number of pending outbox events"
			}
			if stats.DeadLetter > deadLetterErrorThreshold {
				health["status"] = "error"
				health["message"] = "high number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) loadItem(w http.ResponseWriter, r *http.Request) (*models.StoredProduct, bool) {
	id := chi.URLParam(r, "id")

	product, err := h.deps.Catalog.GetProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to get item", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	return product, true
}

func (h *Handlers) itemFilter(w http.ResponseWriter, r *http.Request) (catalog.Filter, bool) {
	limit, ok := h.queryInt(w, r, "limit", defaultListLimit)
	if !ok {
		return catalog.Filter{}, false
	}
	offset, ok := h.queryInt(w, r, "offset", 0)
	if !ok {
		return catalog.Filter{}, false
	}
	return catalog.Filter{
		Supplier: r.URL.Query().Get("supplier"),
		Limit:    min(limit, maxListLimit),
		Offset:   offset,
	}, true
}

func (h *Handlers) queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		h.respondError(w, http.StatusBadRequest, key+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
