package ratelimit

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
)

// New creates a rate limiter for the configured backend. The Redis backend
// requires a client.
func New(config Config, redisClient RedisInterface, logger logging.Logger) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case BackendLocal:
		return NewLocalLimiter(config)
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis client is required for distributed rate limiter")
		}
		return NewDistributedLimiter(config, redisClient, logger)
	default:
		return nil, fmt.Errorf("unsupported rate limiter backend type: %s", config.Type)
	}
}

// NewLocal creates a local limiter admitting requestsPerSecond with the given burst
func NewLocal(requestsPerSecond, burstSize int) (Limiter, error) {
	config := DefaultConfig()
	config.Limit = requestsPerSecond
	config.BurstSize = burstSize
	return NewLocalLimiter(config)
}

// HTTPMiddleware rejects requests over budget with 429. An empty key from keyFunc
// draws from the global budget.
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)

			var allowed bool
			if key == "" {
				allowed = limiter.TryAcquire()
			} else {
				allowed = limiter.TryAcquireForKey(key)
			}

			if !allowed {
				stats := limiter.Stats()
				if limit, ok := stats["limit"].(int); ok {
					w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
					w.Header().Set("X-RateLimit-Remaining", "0")
				}
				w.Header().Set("Retry-After", retryAfter(stats))

				writeRateLimited(w, errors.RateLimitError(r.URL.Path).WithCode(rateLimitedCode))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitedCode lets clients tell a budget rejection apart from a proxy's 429.
const rateLimitedCode = "RATE_LIMITED"

func writeRateLimited(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(appErr)
}

// retryAfter is the refill time of one token, rounded up to whole seconds
func retryAfter(stats map[string]interface{}) string {
	window, _ := stats["window"].(time.Duration)
	limit, _ := stats["limit"].(int)
	if window <= 0 || limit <= 0 {
		return "1"
	}
	seconds := int(math.Ceil(window.Seconds() / float64(limit)))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

// IPKey extracts the client address from the request for rate limiting
func IPKey(r *http.Request) string {
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
