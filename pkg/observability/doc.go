// Package observability bundles the operational concerns of the
// authorization service: structured JSON logging with runtime level
// changes, Prometheus metrics, health probes, OTLP tracing, and graceful
// shutdown.
//
// Logging:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("decision requested")
//	logger.SetLevel(observability.DebugLevel) // applied to derived loggers too
//
// Metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	handler = observability.HTTPMetricsMiddleware(metrics)(handler)
//
// Health endpoints follow the kubernetes probe convention: /health/live is
// unconditional, /health/ready checks the database (required) and Redis
// (degrades only).
package observability
