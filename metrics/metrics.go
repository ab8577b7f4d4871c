// Package metrics holds the prometheus instruments of the ingestion and
// search pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sikoma"

type Metrics struct {
	registry *prometheus.Registry

	ingestTotal       *prometheus.CounterVec
	ingestDuration    *prometheus.HistogramVec
	chunksEmbedded    prometheus.Counter
	chunkEmbedFailure prometheus.Counter
	searchTotal       *prometheus.CounterVec
	searchHits        prometheus.Histogram
	strategyFailures  *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers every instrument on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Ingestion requests by resulting index status.",
		}, []string{"status"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_stage_duration_seconds",
			Help:      "Duration of each ingestion stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		chunksEmbedded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_embedded_total",
			Help:      "Chunks embedded and stored.",
		}),
		chunkEmbedFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_embed_failures_total",
			Help:      "Chunks that failed embedding after retries.",
		}),
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_total",
			Help:      "Search requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		searchHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_hits",
			Help:      "Number of hits returned per search.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 50},
		}),
		strategyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_strategy_failures_total",
			Help:      "Remote model operations where every strategy failed.",
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestTotal,
		m.ingestDuration,
		m.chunksEmbedded,
		m.chunkEmbedFailure,
		m.searchTotal,
		m.searchHits,
		m.strategyFailures,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ExporterHandler serves the /metrics endpoint.
func (m *Metrics) ExporterHandler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IngestFinished(indexStatus string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(indexStatus).Inc()
}

func (m *Metrics) ObserveStage(stage string, started time.Time) {
	if m == nil {
		return
	}
	m.ingestDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ChunkEmbedded() {
	if m == nil {
		return
	}
	m.chunksEmbedded.Inc()
}

func (m *Metrics) ChunkFailed() {
	if m == nil {
		return
	}
	m.chunkEmbedFailure.Inc()
}

func (m *Metrics) SearchFinished(kind, outcome string, hits int) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == "ok" {
		m.searchHits.Observe(float64(hits))
	}
}

func (m *Metrics) StrategiesExhausted(operation string) {
	if m == nil {
		return
	}
	m.strategyFailures.WithLabelValues(operation).Inc()
}

// GinMiddleware records request counts and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
