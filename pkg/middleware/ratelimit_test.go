package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backer/pkg/auth"
	"github.com/platinummonkey/backer/pkg/contextkeys"
)

func TestRedisRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}, "test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, ttl, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, time.Minute, ttl)
	}

	allowed, _, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "other")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(time.Minute + time.Second)
	allowed, _, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	m := NewRateLimitMiddleware(client, "checkout")
	m.anonymousLimiter.config.RequestsPerWindow = 1
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	anonymous := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/subscribe-sessions/", nil)
		req.RemoteAddr = "203.0.113.7:5123"
		return req
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, anonymous())
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, anonymous())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.True(t, mr.Exists("ratelimit:checkout:anon:ip:203.0.113.7"))

	req := anonymous()
	req = req.WithContext(contextkeys.WithSubject(req.Context(), auth.ForUser(&auth.User{ID: uuid.New()})))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	handler := NewRateLimitMiddleware(client, "checkout").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", clientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))
}
