package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for export activity.
// A nil *Metrics records nothing.
type Metrics struct {
	fetchAttempts prometheus.Counter
	assets        *prometheus.CounterVec
	exports       *prometheus.CounterVec
	duration      prometheus.Histogram
	archiveBytes  prometheus.Histogram
}

// MustNewMetrics creates and registers the exporter collectors on reg.
// Registration errors panic, like the promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		fetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "collabspace",
			Subsystem: "export",
			Name:      "fetch_attempts_total",
			Help:      "Number of asset fetch attempts, retries included.",
		}),
		assets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collabspace",
			Subsystem: "export",
			Name:      "assets_total",
			Help:      "Assets processed, by outcome.",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collabspace",
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Export runs, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "collabspace",
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Wall time of export runs.",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),
		archiveBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "collabspace",
			Subsystem: "export",
			Name:      "archive_bytes",
			Help:      "Size of produced archives.",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),
	}

	reg.MustRegister(m.fetchAttempts, m.assets, m.exports, m.duration, m.archiveBytes)
	return m
}

func (m *Metrics) attempt() {
	if m == nil {
		return
	}
	m.fetchAttempts.Inc()
}

func (m *Metrics) asset(outcome string) {
	if m == nil {
		return
	}
	m.assets.WithLabelValues(outcome).Inc()
}

func (m *Metrics) finished(outcome string, elapsed time.Duration, size int) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
	if size > 0 {
		m.archiveBytes.Observe(float64(size))
	}
}
