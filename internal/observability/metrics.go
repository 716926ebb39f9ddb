package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// firewatch pipeline.
type Metrics struct {
	BatchesConsumed    prometheus.Counter
	FiresStored        prometheus.Counter
	FiresDuplicate     prometheus.Counter
	ValidationFailures prometheus.Counter
	DeadLetters        prometheus.Counter
	EnvelopeErrors     prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// Fetch stage metrics.
	FiresFetched  prometheus.Counter
	BatchesQueued prometheus.Counter
	FetchErrors   prometheus.Counter

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Enrichment metrics.
	EnrichRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	EnrichCache       *prometheus.CounterVec // labels: result={hit,miss}
	EnrichAPIDuration prometheus.Histogram
	EnrichEnabled     prometheus.Gauge

	// Alerting metrics.
	AlertGroupsEmitted prometheus.Counter
	NotifyErrors       prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.BatchesConsumed,
		m.FiresStored,
		m.FiresDuplicate,
		m.ValidationFailures,
		m.DeadLetters,
		m.EnvelopeErrors,
		m.PipelineRunning,
		m.FiresFetched,
		m.BatchesQueued,
		m.FetchErrors,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.EnrichRequests,
		m.EnrichCache,
		m.EnrichAPIDuration,
		m.EnrichEnabled,
		m.AlertGroupsEmitted,
		m.NotifyErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		BatchesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "batches_consumed_total",
			Help:      "Total batch messages read from the ingress topic.",
		}),
		FiresStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "fires_stored_total",
			Help:      "Total upserts that created a new fire record.",
		}),
		FiresDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "fires_duplicate_total",
			Help:      "Total upserts that matched an existing fingerprint.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "validation_failures_total",
			Help:      "Total raw events rejected by validation.",
		}),
		DeadLetters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "dead_letters_total",
			Help:      "Total events routed to the dead-letter topic.",
		}),
		EnvelopeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "envelope_errors_total",
			Help:      "Total batch messages whose envelope failed to parse.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firewatch",
			Name:      "pipeline_running",
			Help:      "1 when the process stage is active, 0 when shut down.",
		}),
		FiresFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "fires_fetched_total",
			Help:      "Total detections pulled from the FIRMS feed.",
		}),
		BatchesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "batches_queued_total",
			Help:      "Total batches handed to the delivery channel by the fetch stage.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "fetch_errors_total",
			Help:      "Total failed fetch stage invocations.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firewatch",
			Name:      "batch_size",
			Help:      "Number of fires per consumed batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firewatch",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch processing cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EnrichRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "enrich_requests_total",
			Help:      "Reverse-geocoding API requests by outcome.",
		}, []string{"outcome"}),
		EnrichCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "enrich_cache_total",
			Help:      "Reverse-geocoding cache lookups by result.",
		}, []string{"result"}),
		EnrichAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "firewatch",
			Name:      "enrich_api_duration_seconds",
			Help:      "BigDataCloud API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		EnrichEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "firewatch",
			Name:      "enrich_enabled",
			Help:      "1 when reverse-geocoding enrichment is enabled, 0 otherwise.",
		}),
		AlertGroupsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "alert_groups_emitted_total",
			Help:      "Total per-region alert groups handed to the notifier.",
		}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "firewatch",
			Name:      "notify_errors_total",
			Help:      "Total alert publish failures.",
		}),
	}
}
