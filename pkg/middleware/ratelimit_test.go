package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowAndExhaust(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	assert.True(t, limiter.Allow("user:1"))
	assert.True(t, limiter.Allow("user:1"))
	assert.False(t, limiter.Allow("user:1"))

	// Other keys are independent.
	assert.True(t, limiter.Allow("user:2"))
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	m := NewRateLimitMiddleware(&RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, nil)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/v1/decisions", nil)
	r.Header.Set("X-Real-IP", "10.0.0.1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestDistributedRateLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := t.Context()

	allowed, err := limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.Remaining(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	// The window resets after expiry.
	mr.FastForward(2 * time.Minute)
	allowed, err = limiter.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimitMiddleware_FailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	m := NewDistributedRateLimitMiddleware(client, DefaultRateLimitConfig(), nil)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/decisions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDistributedRateLimitMiddleware_FailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	m := NewDistributedRateLimitMiddleware(client, DefaultRateLimitConfig(), nil)
	m.SetFallbackEnabled(false)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/decisions", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
