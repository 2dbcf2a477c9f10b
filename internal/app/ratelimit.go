package app

import (
	"fmt"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/common/ratelimit"
)

const rateLimitKeyPrefix = "app-groups-sync:"

// initializeRateLimiter builds the inbound limiter. Redis-backed when Redis is up so
// replicas share a budget, otherwise local.
func (app *App) initializeRateLimiter() error {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	rateLimitConfig := ratelimit.Config{
		Limit:     app.Config.RateLimitDefault,
		Window:    app.Config.RateLimitWindow,
		BurstSize: app.Config.RateLimitDefault,
		Enabled:   true,
		Type:      ratelimit.BackendLocal,
		KeyPrefix: rateLimitKeyPrefix,
	}

	var redisClient ratelimit.RedisInterface
	if app.RedisClient != nil {
		rateLimitConfig.Type = ratelimit.BackendRedis
		redisClient = app.RedisClient
	}

	limiter, err := ratelimit.New(rateLimitConfig, redisClient, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	app.RateLimiter = limiter
	app.Logger.Info("Rate Limiting: Enabled",
		logging.Field{Key: "backend", Value: string(rateLimitConfig.Type)},
		logging.Field{Key: "limit", Value: rateLimitConfig.Limit},
		logging.Field{Key: "window", Value: rateLimitConfig.Window.String()},
	)
	return nil
}
