package observability

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service-level Prometheus metrics. Decision-engine
// metrics are registered separately by pkg/access.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Rate limit metrics
	RateLimitedTotal *prometheus.CounterVec

	// Integrity sweep metrics
	IntegrityViolations  *prometheus.GaugeVec
	IntegritySweepsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all service metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lattice_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lattice_db_connections_active",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lattice_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_rate_limited_total",
				Help: "Total number of rate-limited requests",
			},
			[]string{"limiter"},
		),
		IntegrityViolations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lattice_integrity_violations",
				Help: "Mismatched or orphaned authorization rows found by the last sweep",
			},
			[]string{"check"},
		),
		IntegritySweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lattice_integrity_sweeps_total",
				Help: "Total number of integrity sweeps by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RateLimitedTotal,
		m.IntegrityViolations,
		m.IntegritySweepsTotal,
	)
	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts and latencies
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// StartDBStatsCollector samples connection pool stats until the context is
// cancelled.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, metrics *Metrics, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stats()
				metrics.DBConnectionsActive.Set(float64(stats.OpenConnections))
				metrics.DBConnectionsIdle.Set(float64(stats.Idle))
			}
		}
	}()
}

// RegisterMetricsEndpoint exposes the registry on /metrics
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
