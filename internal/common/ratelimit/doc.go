// Package ratelimit provides one rate limiting interface with an in-process
// backend (golang.org/x/time/rate) and a Redis-backed backend shared between
// replicas.
//
// The service uses it in two places. Outbound calls to the identity provider
// wait on a local limiter so the process stays under the provider's budget:
//
//	limiter, _ := ratelimit.NewLocal(10, 10)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
//
// Inbound webhook calls pass through HTTPMiddleware keyed by client address:
//
//	limiter, _ := ratelimit.New(ratelimit.Config{
//		Enabled: true,
//		Limit:   100,
//		Window:  time.Minute,
//		Type:    ratelimit.BackendRedis,
//	}, redisClient, logger)
//	router.Use(ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey))
package ratelimit
