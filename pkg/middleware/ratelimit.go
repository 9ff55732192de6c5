package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/backer/pkg/httputil"
	"github.com/platinummonkey/backer/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns limits for anonymous callers
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 20, WindowDuration: time.Minute}
}

// PerUserRateLimitConfig returns limits for authenticated users
func PerUserRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 60, WindowDuration: time.Minute}
}

// RedisRateLimiter counts requests per key in fixed windows stored in Redis
type RedisRateLimiter struct {
	redis  redis.Cmdable
	config RateLimitConfig
	prefix string
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(client redis.Cmdable, config RateLimitConfig, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{redis: client, config: config, prefix: prefix}
}

// Allow increments the key's counter and reports whether it is within the
// limit, along with the time until the window resets
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.TxPipeline()
	pipe.SetNX(ctx, redisKey, 0, rl.config.WindowDuration)
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.RequestsPerWindow), ttl.Val(), nil
}

// RateLimitMiddleware limits users by id and anonymous callers by IP
type RateLimitMiddleware struct {
	userLimiter      *RedisRateLimiter
	anonymousLimiter *RedisRateLimiter
}

// NewRateLimitMiddleware creates a rate limit middleware for one route group
func NewRateLimitMiddleware(client redis.Cmdable, name string) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		userLimiter:      NewRedisRateLimiter(client, PerUserRateLimitConfig(), "ratelimit:"+name+":user"),
		anonymousLimiter: NewRedisRateLimiter(client, DefaultRateLimitConfig(), "ratelimit:"+name+":anon"),
	}
}

// Handler wraps an HTTP handler with rate limiting. It must run after
// AuthMiddleware.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, key := m.anonymousLimiter, "ip:"+clientIP(r)
		if subject := SubjectFromContext(r.Context()); !subject.IsAnonymous() {
			limiter, key = m.userLimiter, "user:"+subject.DistinctID()
		}

		allowed, ttl, err := limiter.Allow(r.Context(), key)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerWindow))
		if ttl > 0 {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
		}

		if !allowed {
			retryAfter := limiter.config.WindowDuration
			if ttl > 0 {
				retryAfter = ttl
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			httputil.WriteTooManyRequests(w, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
