package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localLimiter implements rate limiting using golang.org/x/time/rate
type localLimiter struct {
	mu       sync.Mutex
	config   Config
	limiters map[string]*limiterEntry

	// Global limiter for non-keyed operations
	globalLimiter *rate.Limiter

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLocalLimiter creates a new in-process rate limiter
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &localLimiter{
		config:        config,
		limiters:      make(map[string]*limiterEntry),
		globalLimiter: rate.NewLimiter(config.Rate(), config.BurstSize),
		lastCleanup:   time.Now(),
	}, nil
}

func (rl *localLimiter) Wait(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}
	return rl.globalLimiter.Wait(ctx)
}

func (rl *localLimiter) TryAcquire() bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.globalLimiter.Allow()
}

func (rl *localLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}
	return rl.getLimiterForKey(key).Allow()
}

// getLimiterForKey gets or creates a rate limiter for a specific key
func (rl *localLimiter) getLimiterForKey(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > rl.config.CleanupPeriod {
		rl.cleanup(now)
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rl.config.Rate(), rl.config.BurstSize),
		}
		rl.limiters[key] = entry

		if len(rl.limiters) > rl.config.MaxKeys {
			rl.cleanup(now)
		}
	}
	entry.lastUsed = now

	return entry.limiter
}

// cleanup drops per-key limiters idle for longer than the cleanup period
func (rl *localLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupPeriod)

	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}

	rl.lastCleanup = now
}

func (rl *localLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"type":             string(BackendLocal),
		"enabled":          rl.config.Enabled,
		"limit":            rl.config.Limit,
		"window":           rl.config.Window,
		"burst_size":       rl.config.BurstSize,
		"available_tokens": rl.globalLimiter.Tokens(),
		"active_keys":      len(rl.limiters),
		"max_keys":         rl.config.MaxKeys,
	}
}

// Health always succeeds; an in-process limiter has no dependency to lose.
func (rl *localLimiter) Health(ctx context.Context) error {
	return nil
}

var _ Limiter = (*localLimiter)(nil)
