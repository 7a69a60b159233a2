// Package config loads service configuration from an optional YAML file
// overridden by LATTICE_* environment variables, and watches the file for
// log-level changes at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/latticebi/lattice/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
	Dev           DevConfig           `yaml:"dev"`
	Integrity     IntegrityConfig     `yaml:"integrity"`
	Audit         AuditConfig         `yaml:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration for the distributed rate limiter
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RateLimitConfig holds rate limiter settings
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// DevConfig gates the development-mode identity fallback. The decision
// engine never sees this; the identity middleware applies it before the
// engine runs, and only outside production.
type DevConfig struct {
	FallbackEnabled bool  `yaml:"fallback_enabled"`
	FallbackUserID  int64 `yaml:"fallback_user_id"`
	FallbackAdmin   bool  `yaml:"fallback_admin"`
}

// IntegrityConfig holds the background integrity sweep settings
type IntegrityConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// AuditConfig holds optional audit event forwarding settings. Events are
// always recorded in the database; a webhook URL adds an external sink.
type AuditConfig struct {
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// LoadConfig loads configuration: defaults, then the YAML file named by
// LATTICE_CONFIG_FILE (if any), then LATTICE_* environment overrides.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv("LATTICE_CONFIG_FILE"))
}

// LoadConfigFile loads configuration with an explicit file path.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Observability.LogLevel = ParseLogLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 300,
			Window:            time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "lattice-authz",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
		Integrity: IntegrityConfig{
			Enabled:  true,
			Schedule: "@every 1h",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Host = getEnv("LATTICE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("LATTICE_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("LATTICE_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("LATTICE_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("LATTICE_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("LATTICE_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.HealthPort = getEnv("LATTICE_HEALTH_PORT", cfg.Server.HealthPort)

	cfg.Database.URL = getEnv("LATTICE_POSTGRES_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = getEnvInt("LATTICE_POSTGRES_MAX_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("LATTICE_POSTGRES_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("LATTICE_POSTGRES_CONN_LIFETIME", cfg.Database.ConnMaxLifetime)

	cfg.Redis.URL = getEnv("LATTICE_REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("LATTICE_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("LATTICE_REDIS_DB", cfg.Redis.DB)

	cfg.RateLimit.Enabled = getEnvBool("LATTICE_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.RequestsPerWindow = getEnvInt("LATTICE_RATE_LIMIT_REQUESTS", cfg.RateLimit.RequestsPerWindow)
	cfg.RateLimit.Window = getEnvDuration("LATTICE_RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Observability.LogLevelName = getEnv("LATTICE_LOG_LEVEL", cfg.Observability.LogLevelName)
	cfg.Observability.MetricsEnabled = getEnvBool("LATTICE_METRICS_ENABLED", cfg.Observability.MetricsEnabled)
	cfg.Observability.OTelEnabled = getEnvBool("LATTICE_OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.OTelEndpoint = getEnv("LATTICE_OTEL_ENDPOINT", cfg.Observability.OTelEndpoint)
	cfg.Observability.OTelServiceName = getEnv("LATTICE_OTEL_SERVICE_NAME", cfg.Observability.OTelServiceName)
	cfg.Observability.OTelServiceVersion = getEnv("LATTICE_OTEL_SERVICE_VERSION", cfg.Observability.OTelServiceVersion)
	cfg.Observability.OTelInsecure = getEnvBool("LATTICE_OTEL_INSECURE", cfg.Observability.OTelInsecure)

	cfg.Dev.FallbackEnabled = getEnvBool("LATTICE_DEV_FALLBACK_ENABLED", cfg.Dev.FallbackEnabled)
	cfg.Dev.FallbackUserID = getEnvInt64("LATTICE_DEV_FALLBACK_USER_ID", cfg.Dev.FallbackUserID)
	cfg.Dev.FallbackAdmin = getEnvBool("LATTICE_DEV_FALLBACK_ADMIN", cfg.Dev.FallbackAdmin)

	cfg.Integrity.Enabled = getEnvBool("LATTICE_INTEGRITY_ENABLED", cfg.Integrity.Enabled)
	cfg.Integrity.Schedule = getEnv("LATTICE_INTEGRITY_SCHEDULE", cfg.Integrity.Schedule)

	cfg.Audit.WebhookURL = getEnv("LATTICE_AUDIT_WEBHOOK_URL", cfg.Audit.WebhookURL)
	cfg.Audit.WebhookSecret = getEnv("LATTICE_AUDIT_WEBHOOK_SECRET", cfg.Audit.WebhookSecret)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("rate limit requests per window must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	if c.Dev.FallbackEnabled && c.Dev.FallbackUserID <= 0 {
		return fmt.Errorf("dev fallback user id must be positive when the fallback is enabled")
	}

	if c.Integrity.Enabled && c.Integrity.Schedule == "" {
		return fmt.Errorf("integrity schedule is required when the sweep is enabled")
	}

	return nil
}

// ParseLogLevel parses a log level string
func ParseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
