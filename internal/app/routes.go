package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"app-groups-sync/internal/common/ratelimit"
	"app-groups-sync/internal/handlers"
	"app-groups-sync/internal/metrics"
	"app-groups-sync/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, rateLimiter ratelimit.Limiter) {
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.Metrics)

	// Health check and metrics (never rate limited)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Webhook endpoints
	webhooks := router.NewRoute().Subrouter()
	if rateLimiter != nil {
		webhooks.Use(ratelimit.HTTPMiddleware(rateLimiter, ratelimit.IPKey))
	}
	webhooks.HandleFunc("/", h.HandleSync).Methods(http.MethodPost)
	webhooks.HandleFunc("/sync", h.HandleSync).Methods(http.MethodPost)
}
