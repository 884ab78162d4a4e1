// Package metrics exposes scraper counters and latencies for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/maltedev/supplier-scraper/internal/parser"
)

const namespace = "supplier_scraper"

// Registry holds the scraper metrics on a private Prometheus registry. It
// implements scraper.Metrics and parser.Observer and is safe for concurrent use.
type Registry struct {
	registry *prometheus.Registry

	retrievals        *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	outcomes          *prometheus.CounterVec
	fieldMatches      *prometheus.CounterVec
	fieldDuration     *prometheus.HistogramVec
	outboxPublished   *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Page retrievals by supplier, mode and result.",
		}, []string{"supplier", "mode", "result"}),
		retrievalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Page retrieval latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"supplier", "mode"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_outcomes_total",
			Help:      "Scrape outcomes by supplier.",
		}, []string{"supplier", "outcome"}),
		fieldMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_extractions_total",
			Help:      "Field extractions by field and match result.",
		}, []string{"field", "result"}),
		fieldDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "field_extraction_duration_seconds",
			Help:      "Field extraction latency.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"field"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events published to Redis by event type and result.",
		}, []string{"event_type", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code class.",
		}, []string{"route", "code"}),
	}

	r.registry.MustRegister(
		r.retrievals,
		r.retrievalDuration,
		r.outcomes,
		r.fieldMatches,
		r.fieldDuration,
		r.outboxPublished,
		r.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) RetrievalDone(supplierName string, rendered bool, d time.Duration, err error) {
	mode := "static"
	if rendered {
		mode = "rendered"
	}
	r.retrievals.WithLabelValues(supplierName, mode, result(err)).Inc()
	r.retrievalDuration.WithLabelValues(supplierName, mode).Observe(d.Seconds())
}

func (r *Registry) Outcome(supplierName, outcome string) {
	if supplierName == "" {
		supplierName = "unknown"
	}
	r.outcomes.WithLabelValues(supplierName, outcome).Inc()
}

// Observe records a field extraction.
func (r *Registry) Observe(o parser.Observation) {
	res := "empty"
	switch {
	case o.Matched > 0 && o.Fallback:
		res = "fallback"
	case o.Matched > 0:
		res = "primary"
	}
	r.fieldMatches.WithLabelValues(string(o.Field), res).Inc()
	r.fieldDuration.WithLabelValues(string(o.Field)).Observe(o.Duration.Seconds())
}

// OutboxPublished matches the relay's publish callback.
func (r *Registry) OutboxPublished(eventType string, err error) {
	r.outboxPublished.WithLabelValues(eventType, result(err)).Inc()
}

// HTTPRequest counts one API request. code is the response status.
func (r *Registry) HTTPRequest(route string, code int) {
	class := "5xx"
	switch {
	case code < 300:
		class = "2xx"
	case code < 400:
		class = "3xx"
	case code < 500:
		class = "4xx"
	}
	r.httpRequests.WithLabelValues(route, class).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gather collects all metric families.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
