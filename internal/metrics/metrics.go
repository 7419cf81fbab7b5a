package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// AnalysisTotal counts sub-analyses by type and outcome ("ok", "failed", "fallback")
	AnalysisTotal *prometheus.CounterVec
	// AnalysisDuration observes whole orchestrated requests
	AnalysisDuration prometheus.Histogram
	// BackendLatency observes backend call latency by provider and outcome
	BackendLatency *prometheus.HistogramVec
	// FallbackTotal counts heuristic fallbacks by operation
	FallbackTotal *prometheus.CounterVec
	// EventsPublished counts domain events by sink and outcome
	EventsPublished *prometheus.CounterVec
	// VectorDocs tracks indexed documents per tenant
	VectorDocs *prometheus.GaugeVec
)

func init() {
	Init()
}

// Init creates and registers all collectors. Safe to call more than once.
func Init() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysisTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engage_analysis_total",
				Help: "Total number of sub-analyses by type and status",
			},
			[]string{"type", "status"},
		)

		AnalysisDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engage_analysis_duration_seconds",
				Help:    "Duration of orchestrated analysis requests",
				Buckets: prometheus.DefBuckets,
			},
		)

		BackendLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engage_backend_latency_seconds",
				Help:    "Latency of language-model backend calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "status"},
		)

		FallbackTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engage_fallback_total",
				Help: "Total number of heuristic fallbacks by operation",
			},
			[]string{"operation"},
		)

		EventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engage_events_published_total",
				Help: "Total number of domain events published by sink and status",
			},
			[]string{"sink", "status"},
		)

		VectorDocs = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "engage_vector_documents",
				Help: "Number of documents in the in-memory vector index",
			},
			[]string{"tenant_id"},
		)

		registry.MustRegister(
			AnalysisTotal,
			AnalysisDuration,
			BackendLatency,
			FallbackTotal,
			EventsPublished,
			VectorDocs,
		)
	})
}

// Registry returns the private registry holding all engine collectors
func Registry() *prometheus.Registry {
	Init()
	return registry
}

// Handler returns an HTTP handler exposing the registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// Serve exposes metrics on addr until the listener fails. Intended to run in a goroutine.
func Serve(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	logger.WithField("addr", addr).Info("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("Metrics server stopped")
	}
}
