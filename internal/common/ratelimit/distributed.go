package ratelimit

import (
	"context"
	"fmt"
	"time"

	"app-groups-sync/internal/common/logging"
)

// distributedLimiter implements Redis-backed rate limiting shared by every replica
type distributedLimiter struct {
	config      Config
	redisClient RedisInterface
	logger      logging.Logger
}

// NewDistributedLimiter creates a new Redis-backed rate limiter
func NewDistributedLimiter(config Config, redisClient RedisInterface, logger logging.Logger) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if redisClient == nil {
		return nil, fmt.Errorf("redis client is required for distributed rate limiter")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &distributedLimiter{
		config:      config,
		redisClient: redisClient,
		logger:      logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"}),
	}, nil
}

// Wait polls the global key until it is admitted or ctx is done
func (rl *distributedLimiter) Wait(ctx context.Context) error {
	if !rl.config.Enabled {
		return nil
	}

	waitTime := rl.config.Window / time.Duration(rl.config.Limit)
	if waitTime < 10*time.Millisecond {
		waitTime = 10 * time.Millisecond
	}

	for {
		if rl.TryAcquire() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

func (rl *distributedLimiter) TryAcquire() bool {
	return rl.TryAcquireForKey("global")
}

// TryAcquireForKey records a hit for key. Redis errors admit the request: losing
// the shared counter must not take the webhook down with it.
func (rl *distributedLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	allowed, _, err := rl.redisClient.CheckRateLimit(ctx, rl.config.KeyPrefix+key, rl.config.Limit, rl.config.Window)
	if err != nil {
		rl.logger.Warn("Rate limit check failed, admitting request",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()},
		)
		return true
	}

	return allowed
}

func (rl *distributedLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":       string(BackendRedis),
		"enabled":    rl.config.Enabled,
		"limit":      rl.config.Limit,
		"window":     rl.config.Window,
		"key_prefix": rl.config.KeyPrefix,
	}
}

func (rl *distributedLimiter) Health(ctx context.Context) error {
	return rl.redisClient.Health(ctx)
}

var _ Limiter = (*distributedLimiter)(nil)
