// latticed is the authorization service daemon. It serves access decisions
// and grant management on the main port and health/metrics on a separate
// port, with an optional background integrity sweeper.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/latticebi/lattice/pkg/access"
	"github.com/latticebi/lattice/pkg/api"
	"github.com/latticebi/lattice/pkg/audit"
	"github.com/latticebi/lattice/pkg/config"
	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/integrity"
	"github.com/latticebi/lattice/pkg/middleware"
	"github.com/latticebi/lattice/pkg/observability"
	"github.com/latticebi/lattice/pkg/permissions"
	"github.com/latticebi/lattice/pkg/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "latticed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("log_level", cfg.Observability.LogLevelName).Info("starting latticed")

	stopWatch, err := config.WatchLogLevel(os.Getenv("LATTICE_CONFIG_FILE"), logger)
	if err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}
	defer stopWatch()

	// Request handlers log through logrus; the slog logger covers the
	// service lifecycle and background jobs.
	requestLog := logrus.New()
	requestLog.SetFormatter(&logrus.JSONFormatter{})

	ctx := context.Background()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := schema.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	accessMetrics := access.NewMetrics(registry)

	var providers *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		providers, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to init otel: %w", err)
		}
	}

	catalog := permissions.NewCatalog()
	var auditLog audit.Logger = audit.NewDBLogger(db)
	if cfg.Audit.WebhookURL != "" {
		auditLog = audit.NewMultiLogger(auditLog, audit.NewWebhookLogger(cfg.Audit.WebhookURL, cfg.Audit.WebhookSecret))
	}
	engine := access.NewEngine(db, catalog, auditLog, requestLog, accessMetrics)
	server := api.NewServer(db, engine, catalog, auditLog, requestLog)

	handler := buildHandler(server, cfg, redisClient, requestLog, metrics)

	mainServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux(db, redisClient, registry, cfg),
	}

	collectorCtx, stopCollector := context.WithCancel(ctx)
	defer stopCollector()
	observability.StartDBStatsCollector(collectorCtx, db, metrics, 15*time.Second)

	var sweeps *integrity.Scheduler
	if cfg.Integrity.Enabled {
		sweeper := integrity.NewSweeper(db, requestLog, metrics)
		sweeps, err = integrity.NewScheduler(sweeper, cfg.Integrity.Schedule)
		if err != nil {
			return err
		}
		sweeps.Start()
		logger.WithField("schedule", cfg.Integrity.Schedule).Info("integrity sweeper started")
	}

	shutdown := observability.NewShutdownManager(logger, mainServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if sweeps != nil {
		shutdown.RegisterShutdownFunc(sweeps.Stop)
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", mainServer.Addr).Info("api server listening")
		if err := mainServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	return group.Wait()
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// buildHandler assembles the middleware chain around the API router.
// Ordering matters: the request id must exist before logging, identity
// before rate limiting (limits key on user where possible), and no-store
// last so decision responses are never cached.
func buildHandler(server *api.Server, cfg *config.Config, redisClient *redis.Client, log *logrus.Logger, metrics *observability.Metrics) http.Handler {
	identity := middleware.NewIdentityMiddleware(cfg.Dev)

	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(log),
		httputil.RecoveryMiddleware(log),
		httputil.MaxBytesMiddleware(1 << 20),
		observability.HTTPMetricsMiddleware(metrics),
		identity.Handler,
	}

	if cfg.RateLimit.Enabled {
		limitCfg := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.Window,
			BurstSize:         cfg.RateLimit.RequestsPerWindow / 10,
		}
		if redisClient != nil {
			chain = append(chain, middleware.NewDistributedRateLimitMiddleware(redisClient, limitCfg, metrics).Handler)
		} else {
			chain = append(chain, middleware.NewRateLimitMiddleware(limitCfg, metrics).Handler)
		}
	}

	chain = append(chain, httputil.NoStoreMiddleware)

	handler := httputil.Chain(chain...)(server)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "latticed")
	}
	return handler
}

func healthMux(db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	observability.RegisterHealthRoutes(mux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}
	return mux
}
