package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the main interface for rate limiting
type Limiter interface {
	// Wait blocks until one event is admitted on the global budget or ctx is done
	Wait(ctx context.Context) error
	TryAcquire() bool

	// Key-based rate limiting for per-client restrictions
	TryAcquireForKey(key string) bool

	Stats() map[string]interface{}
	Health(ctx context.Context) error
}

// RedisInterface defines the minimal Redis interface needed for rate limiting
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	Health(ctx context.Context) error
}
