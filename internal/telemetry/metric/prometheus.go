// Package metric provides Prometheus metrics for rolegate.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics, registered on a private
// registry so tests can construct them repeatedly.
type Metrics struct {
	registry *prometheus.Registry

	// Gateway / ingestion
	EventsReceived prometheus.Counter
	EventsSkipped  prometheus.Counter
	EventsCounted  prometheus.Counter
	EventsIgnored  prometheus.Counter

	// Grants
	GrantsIssued prometheus.Counter
	GrantsFailed prometheus.Counter

	// Persistence
	SnapshotDuration prometheus.Histogram
	SnapshotFailures prometheus.Counter
	SnapshotRecords  prometheus.Gauge
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "events_received_total",
			Help:      "Message events received from the gateway.",
		}),
		EventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "events_skipped_total",
			Help:      "Events dropped because the sender already holds the role.",
		}),
		EventsCounted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "events_counted_total",
			Help:      "Events that advanced a member's message count.",
		}),
		EventsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "events_ignored_total",
			Help:      "Events rejected by the cooldown window.",
		}),
		GrantsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "grants_issued_total",
			Help:      "Role grants completed against the platform API.",
		}),
		GrantsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "grants_failed_total",
			Help:      "Role grant attempts that failed after retries.",
		}),
		SnapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rolegate",
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent capturing, encoding and writing one snapshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rolegate",
			Name:      "snapshot_failures_total",
			Help:      "Snapshot writes that failed and were left for the next tick.",
		}),
		SnapshotRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rolegate",
			Name:      "snapshot_records",
			Help:      "Records contained in the most recent snapshot attempt.",
		}),
	}

	reg.MustRegister(
		m.EventsReceived,
		m.EventsSkipped,
		m.EventsCounted,
		m.EventsIgnored,
		m.GrantsIssued,
		m.GrantsFailed,
		m.SnapshotDuration,
		m.SnapshotFailures,
		m.SnapshotRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// TrackMembers registers a gauge that reports the current number of
// tracked members via fn.
func (m *Metrics) TrackMembers(fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "rolegate",
		Name:      "tracked_members",
		Help:      "Members currently held in the activity tracker.",
	}, fn))
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
