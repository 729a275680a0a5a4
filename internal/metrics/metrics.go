// Package metrics provides Prometheus metrics for the telemetry pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event type constants for labeling.
const (
	EventView     = "view"
	EventProgress = "progress"
	EventComplete = "complete"
)

// Cache entry kinds for hit/miss labeling.
const (
	EntrySummary    = "summary"
	EntryPopular    = "popular"
	EntryDashboard  = "dashboard"
	EntryHeatmap    = "heatmap"
	EntryCheckpoint = "checkpoint"
)

// Metrics contains the pipeline's Prometheus collectors. All operations are
// thread-safe.
type Metrics struct {
	eventsTotal          *prometheus.CounterVec
	sessionsCompleted    prometheus.Counter
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	invalidationFailures prometheus.Counter
	refreshDuration      prometheus.Histogram
}

// New creates all collectors. They are not registered; call Register.
func New() *Metrics {
	return &Metrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "video_events_ingested_total",
				Help: "Total playback events accepted by the ingestion endpoint, by event type",
			},
			[]string{"event_type"},
		),
		sessionsCompleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "video_sessions_completed_total",
				Help: "Total sessions that crossed the completion threshold",
			},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_cache_hits_total",
				Help: "Cache hits by entry kind",
			},
			[]string{"entry"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_cache_misses_total",
				Help: "Cache misses by entry kind, including cache errors falling through to Postgres",
			},
			[]string{"entry"},
		),
		invalidationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_cache_invalidation_failures_total",
				Help: "Best-effort cache invalidations that failed and were logged",
			},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "summary_refresh_duration_seconds",
				Help:    "Duration of summary projection refreshes",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.eventsTotal,
		m.sessionsCompleted,
		m.cacheHits,
		m.cacheMisses,
		m.invalidationFailures,
		m.refreshDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) RecordEvent(eventType string) {
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordCompletion() {
	m.sessionsCompleted.Inc()
}

func (m *Metrics) RecordCacheHit(entry string) {
	m.cacheHits.WithLabelValues(entry).Inc()
}

func (m *Metrics) RecordCacheMiss(entry string) {
	m.cacheMisses.WithLabelValues(entry).Inc()
}

func (m *Metrics) RecordInvalidationFailure() {
	m.invalidationFailures.Inc()
}

func (m *Metrics) ObserveRefreshDuration(seconds float64) {
	m.refreshDuration.Observe(seconds)
}

// Handler returns an HTTP handler serving the registry in Prometheus format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
