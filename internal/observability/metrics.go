package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_feed"

// Metrics holds the Prometheus collectors for the feed service.
type Metrics struct {
	FetchCycles   *prometheus.CounterVec // labels: outcome={published,failed}
	FetchErrors   *prometheus.CounterVec // labels: kind={network,decode,internal}
	FetchDuration prometheus.Histogram
	LastSuccess   prometheus.Gauge
	Refreshing    prometheus.Gauge

	// Event store.
	SnapshotEvents prometheus.Gauge
	Subscribers    prometheus.Gauge

	// Kafka sink.
	SinkMessages prometheus.Counter
	SinkErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchCycles,
		m.FetchErrors,
		m.FetchDuration,
		m.LastSuccess,
		m.Refreshing,
		m.SnapshotEvents,
		m.Subscribers,
		m.SinkMessages,
		m.SinkErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cycles_total",
			Help:      "Completed fetch cycles by outcome.",
		}, []string{"outcome"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed fetch cycles by error kind.",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a complete fetch-decode-map-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last published snapshot.",
		}),
		Refreshing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_loop_running",
			Help:      "1 while the periodic refresh loop is active, 0 otherwise.",
		}),
		SnapshotEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_events",
			Help:      "Number of events in the current snapshot.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Active event store subscriptions.",
		}),
		SinkMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_messages_total",
			Help:      "Event messages written to the Kafka sink.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Snapshots the Kafka sink failed to write.",
		}),
	}
}
