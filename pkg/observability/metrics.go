// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for the service.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus instruments on a private registry,
// so tests can create instances without duplicate registration panics.
type Metrics struct {
	registry *prometheus.Registry

	ingestedDocuments prometheus.Counter
	ingestedChunks    prometheus.Counter
	ingestStage       *prometheus.HistogramVec

	queries        prometheus.Counter
	retrievalStage *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all instruments, including the standard
// Go and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		ingestedDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressrag_ingested_documents_total",
			Help: "Documents indexed since start.",
		}),
		ingestedChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressrag_ingested_chunks_total",
			Help: "Chunks indexed since start.",
		}),
		ingestStage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pressrag_ingest_stage_seconds",
			Help:    "Latency of ingestion stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressrag_queries_total",
			Help: "Retrieval queries served.",
		}),
		retrievalStage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pressrag_retrieval_stage_seconds",
			Help:    "Latency of retrieval stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pressrag_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pressrag_http_request_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.ingestedDocuments,
		m.ingestedChunks,
		m.ingestStage,
		m.queries,
		m.retrievalStage,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// AddIngested records a completed document ingestion.
func (m *Metrics) AddIngested(documents, chunks int) {
	m.ingestedDocuments.Add(float64(documents))
	m.ingestedChunks.Add(float64(chunks))
}

// ObserveIngestStage records one ingestion stage duration.
func (m *Metrics) ObserveIngestStage(stage string, d time.Duration) {
	m.ingestStage.WithLabelValues(stage).Observe(d.Seconds())
}

// IncQueries counts one retrieval query.
func (m *Metrics) IncQueries() {
	m.queries.Inc()
}

// ObserveRetrievalStage records one retrieval stage duration.
func (m *Metrics) ObserveRetrievalStage(stage string, d time.Duration) {
	m.retrievalStage.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveHTTP records one handled HTTP request.
func (m *Metrics) ObserveHTTP(route, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
