package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"app-groups-sync/internal/handlers"
	"app-groups-sync/internal/server"
)

var errOktaCircuitOpen = errors.New("okta circuit breaker is open")

// Handler builds the routed, instrumented HTTP handler.
func (app *App) Handler() http.Handler {
	h := handlers.New(app.Pipeline, app.Sink.Name(), app.Logger, app.healthChecks()...)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.RateLimiter)

	return otelhttp.NewHandler(router, "app-groups-sync")
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port)
}

func (app *App) healthChecks() []handlers.Check {
	checks := []handlers.Check{
		{Name: "sink", Critical: true, Fn: app.Sink.Health},
		{Name: "okta_circuit", Fn: func(context.Context) error {
			if breaker := app.Okta.GetCircuitBreaker(); breaker != nil && breaker.IsOpen() {
				return errOktaCircuitOpen
			}
			return nil
		}},
	}
	if app.RedisClient != nil {
		checks = append(checks, handlers.Check{Name: "redis", Fn: app.RedisClient.Health})
	}
	if app.Notifier.Enabled() {
		checks = append(checks, handlers.Check{Name: "notifier", Fn: app.Notifier.Health})
	}
	return checks
}
