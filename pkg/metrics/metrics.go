// Package metrics defines the Prometheus collectors shared by the index
// builder, the search service and the ingestion service, and exposes an
// HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	RateLimitedTotal     prometheus.Counter

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	DocsIndexedTotal     *prometheus.CounterVec
	IndexOperationsTotal *prometheus.CounterVec
	IndexBuildDuration   *prometheus.HistogramVec
	IndexSizeBytes       *prometheus.GaugeVec
	IndexDocuments       *prometheus.GaugeVec
	IndexReloadsTotal    *prometheus.CounterVec
	DocsIngestedTotal    *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of matching documents per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 1000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents added to an index, by index type.",
			},
			[]string{"index"},
		),
		IndexOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_operations_total",
				Help: "Index build, save and load operations by status.",
			},
			[]string{"operation", "status"},
		),
		IndexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "Time spent in index build, save and load.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"operation"},
		),
		IndexSizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_size_bytes",
				Help: "Approximate in-memory size of the loaded index.",
			},
			[]string{"index"},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Number of documents in the loaded index.",
			},
			[]string{"index"},
		),
		IndexReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_reloads_total",
				Help: "Hot index reloads by trigger and status.",
			},
			[]string{"trigger", "status"},
		),
		DocsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_ingested_total",
				Help: "Documents accepted by the ingestion API, by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RateLimitedTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.IndexOperationsTotal,
		m.IndexBuildDuration,
		m.IndexSizeBytes,
		m.IndexDocuments,
		m.IndexReloadsTotal,
		m.DocsIngestedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
