// Package metrics exposes canon's operational counters as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

const namespace = "canon"

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder records service events into a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	documents      *prometheus.CounterVec
	chunks         prometheus.Counter
	forced         prometheus.Counter
	ingestDuration prometheus.Histogram
	promotions     *prometheus.CounterVec
	oracleCalls    *prometheus.CounterVec
	oracleLatency  prometheus.Histogram
	lookups        *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Documents processed by ingest, by outcome.",
		}, []string{"outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks written by ingest.",
		}),
		forced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "forced_boundaries_total",
			Help:      "Chunks cut at a word boundary because no heading or sentence boundary fit.",
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "document_seconds",
			Help:      "Time to extract and chunk one document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curation",
			Name:      "promotions_total",
			Help:      "Promotion attempts, by outcome.",
		}, []string{"outcome"}),
		oracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Draft oracle calls, by outcome.",
		}, []string{"outcome"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_seconds",
			Help:      "Draft oracle call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "topic",
			Name:      "lookups_total",
			Help:      "Topic lookups, by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.documents, r.chunks, r.forced, r.ingestDuration,
		r.promotions, r.oracleCalls, r.oracleLatency, r.lookups,
	)
	return r
}

// DocumentIngested records one document outcome.
func (r *Recorder) DocumentIngested(outcome string, chunks int, forced int, elapsed time.Duration) {
	r.documents.WithLabelValues(outcome).Inc()
	r.chunks.Add(float64(chunks))
	r.forced.Add(float64(forced))
	r.ingestDuration.Observe(elapsed.Seconds())
}

// PromotionAttempted records a promotion outcome.
func (r *Recorder) PromotionAttempted(outcome string) {
	r.promotions.WithLabelValues(outcome).Inc()
}

// OracleCalled records an oracle call outcome and latency.
func (r *Recorder) OracleCalled(outcome string, elapsed time.Duration) {
	r.oracleCalls.WithLabelValues(outcome).Inc()
	r.oracleLatency.Observe(elapsed.Seconds())
}

// LookupServed records a lookup outcome.
func (r *Recorder) LookupServed(outcome string) {
	r.lookups.WithLabelValues(outcome).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
