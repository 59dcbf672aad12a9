// Package metrics exposes Prometheus instruments for reorder operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reorder"

// OutcomeOK labels successful operations. Failures use the error code.
const OutcomeOK = "ok"

// Metrics is the set of reorder instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	updated    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New registers the instruments with reg. Returns nil if reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Reorder operations by kind, table and outcome",
		}, []string{"operation", "table", "outcome"}),
		updated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updated_records_total",
			Help:      "Records whose order key was rewritten",
		}, []string{"operation", "table"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of reorder operations including the store transaction",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(operation, table, outcome string, updated int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, table, outcome).Inc()
	if updated > 0 {
		m.updated.WithLabelValues(operation, table).Add(float64(updated))
	}
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
