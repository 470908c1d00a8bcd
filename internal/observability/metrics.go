// Package observability exposes recompute metrics over a Prometheus endpoint.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records recompute outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry   *prometheus.Registry
	recomputes *prometheus.CounterVec
	rows       *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics registers the emission collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "recomputes_total",
			Help:      "Plan recomputations by outcome.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions",
			Name:      "rows_written_total",
			Help:      "Emission rows written by series and unit.",
		}, []string{"series", "unit"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emissions",
			Name:      "recompute_duration_seconds",
			Help:      "Wall time of a plan recomputation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.recomputes, m.rows, m.duration)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRecompute records one recompute with status "ok" or "error".
func (m *Metrics) ObserveRecompute(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// AddRows counts rows written for a series and unit.
func (m *Metrics) AddRows(series, unit string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(series, unit).Add(float64(n))
}
