package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/latticebi/lattice/pkg/httputil"
	"github.com/latticebi/lattice/pkg/observability"
)

// DistributedRateLimiter implements rate limiting using Redis so limits
// are shared across instances.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "lattice:ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed using a Redis fixed window
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.WindowDuration)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on Redis errors; the caller decides policy.
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the number of remaining requests in the window
func (rl *DistributedRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TTL returns the time until the rate limit window resets
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the rate limit for a key
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// DistributedRateLimitMiddleware provides HTTP rate limiting with Redis
type DistributedRateLimitMiddleware struct {
	limiter         *DistributedRateLimiter
	metrics         *observability.Metrics
	fallbackEnabled bool
}

// NewDistributedRateLimitMiddleware creates a Redis-backed rate limit
// middleware that fails open on Redis errors. Metrics may be nil.
func NewDistributedRateLimitMiddleware(redisClient *redis.Client, config *RateLimitConfig, metrics *observability.Metrics) *DistributedRateLimitMiddleware {
	return &DistributedRateLimitMiddleware{
		limiter:         NewDistributedRateLimiter(redisClient, config, ""),
		metrics:         metrics,
		fallbackEnabled: true,
	}
}

// SetFallbackEnabled controls whether to fail open (true) or closed
// (false) on Redis errors
func (m *DistributedRateLimitMiddleware) SetFallbackEnabled(enabled bool) {
	m.fallbackEnabled = enabled
}

// Handler wraps an HTTP handler with distributed rate limiting
func (m *DistributedRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := rateLimitKey(r)

		allowed, err := m.limiter.Allow(ctx, key)
		if err != nil {
			if m.fallbackEnabled {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
			return
		}

		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitedTotal.WithLabelValues("distributed").Inc()
			}
			m.rateLimitExceeded(ctx, w, key)
			return
		}

		if remaining, err := m.limiter.Remaining(ctx, key); err == nil {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limiter.config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *DistributedRateLimitMiddleware) rateLimitExceeded(ctx context.Context, w http.ResponseWriter, key string) {
	retryAfter := m.limiter.config.WindowDuration.Seconds()
	if ttl, err := m.limiter.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl.Seconds()
	}

	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Remaining", "0")
	httputil.WriteTooManyRequests(w, "rate limit exceeded")
}

// HealthCheck verifies Redis connectivity for rate limiting
func (m *DistributedRateLimitMiddleware) HealthCheck(ctx context.Context) error {
	return m.limiter.redis.Ping(ctx).Err()
}
