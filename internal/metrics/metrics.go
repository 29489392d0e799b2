// Package metrics provides Prometheus metrics for the retrieval service
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. Each instance owns
// its registry, so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Ingestion metrics
	IngestDocumentsTotal *prometheus.CounterVec
	IngestChunksTotal    *prometheus.CounterVec
	IngestFailuresTotal  *prometheus.CounterVec

	// Query metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration prometheus.Histogram

	IndexSize *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragbench_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragbench_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "ragbench_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.IngestDocumentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragbench_ingest_documents_total",
			Help: "Total number of documents ingested",
		},
		[]string{"source"},
	)

	m.IngestChunksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragbench_ingest_chunks_total",
			Help: "Total number of chunks added to indices",
		},
		[]string{"source"},
	)

	m.IngestFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragbench_ingest_failures_total",
			Help: "Total number of failed ingest calls",
		},
		[]string{"source"},
	)

	m.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragbench_query_total",
			Help: "Total number of retrieval queries",
		},
		[]string{"cache"},
	)

	m.QueryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragbench_query_duration_seconds",
			Help:    "Duration of retrieval queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.IndexSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ragbench_index_size",
			Help: "Number of chunks held by each named index",
		},
		[]string{"index"},
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// The Record and Set methods are no-ops on a nil *Metrics.

// RecordHTTPRequest records one completed request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordIngest records a successful ingest call.
func (m *Metrics) RecordIngest(source string, documents, chunks int) {
	if m == nil {
		return
	}
	m.IngestDocumentsTotal.WithLabelValues(source).Add(float64(documents))
	m.IngestChunksTotal.WithLabelValues(source).Add(float64(chunks))
}

func (m *Metrics) RecordIngestFailure(source string) {
	if m == nil {
		return
	}
	m.IngestFailuresTotal.WithLabelValues(source).Inc()
}

// RecordQuery records a query and whether it was served from cache.
func (m *Metrics) RecordQuery(cached bool, duration time.Duration) {
	if m == nil {
		return
	}
	label := "miss"
	if cached {
		label = "hit"
	}
	m.QueriesTotal.WithLabelValues(label).Inc()
	m.QueryDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetIndexSize(index string, size int) {
	if m == nil {
		return
	}
	m.IndexSize.WithLabelValues(index).Set(float64(size))
}
