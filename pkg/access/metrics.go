package access

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the decision engine.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	DecisionDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the decision metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_access_decisions_total",
				Help: "Total number of access decisions by outcome and cause",
			},
			[]string{"outcome", "cause"},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_access_decision_duration_seconds",
				Help:    "Access decision latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(m.DecisionsTotal, m.DecisionDuration)
	return m
}
