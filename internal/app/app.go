package app

import (
	"context"
	"fmt"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/common/ratelimit"
	"app-groups-sync/internal/config"
	"app-groups-sync/internal/okta"
	"app-groups-sync/internal/pipeline"
	"app-groups-sync/internal/redis"
	"app-groups-sync/internal/warehouse"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Okta        *okta.Client
	Sink        warehouse.Sink
	Notifier    *brokers.Notifier
	Pipeline    *pipeline.Pipeline
	RedisClient *redis.Client
	RateLimiter ratelimit.Limiter
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	return NewWithLogger(cfg, logging.GetGlobalLogger())
}

// NewWithLogger is New with an explicit base logger.
func NewWithLogger(cfg *config.Config, logger logging.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger.WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeOkta(); err != nil {
		return nil, err
	}

	if err := app.initializeSink(context.Background()); err != nil {
		return nil, err
	}

	if err := app.initializeNotifier(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializePipeline(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

func (app *App) initializeOkta() error {
	client, err := okta.NewClient(okta.Config{
		BaseURL:      app.Config.OktaBaseURL,
		APIToken:     app.Config.OktaAPIToken,
		Timeout:      app.Config.OktaRequestTimeout,
		RateLimitRPS: app.Config.OktaRateLimitRPS,
		MaxPages:     app.Config.OktaMaxPages,
		MaxIdleConns: app.Config.OktaMaxConcurrency,
	}, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize okta client: %w", err)
	}

	app.Okta = client
	app.Logger.Info("Okta: Configured",
		logging.Field{Key: "base_url", Value: app.Config.OktaBaseURL},
		logging.Field{Key: "rate_limit_rps", Value: app.Config.OktaRateLimitRPS},
	)
	return nil
}

func (app *App) initializePipeline() error {
	policy := pipeline.PolicyAbort
	if app.Config.GroupFailurePolicy == config.GroupPolicySkip {
		policy = pipeline.PolicySkip
	}

	p, err := pipeline.New(pipeline.Deps{
		Identity:       app.Okta,
		Sink:           app.Sink,
		Table:          app.warehouseConfig().TableRef(),
		Notifier:       app.Notifier,
		Logger:         app.Logger,
		MaxConcurrency: app.Config.OktaMaxConcurrency,
		FailurePolicy:  policy,
		RunTimeout:     app.Config.SyncTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	app.Pipeline = p
	app.Logger.Info("Pipeline: Ready",
		logging.Field{Key: "max_concurrency", Value: app.Config.OktaMaxConcurrency},
		logging.Field{Key: "group_failure_policy", Value: app.Config.GroupFailurePolicy},
	)
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Sink != nil {
		if err := app.Sink.Close(); err != nil {
			app.Logger.Warn("Error closing warehouse sink", logging.Field{Key: "error", Value: err.Error()})
		}
	}
	if app.Notifier != nil {
		if err := app.Notifier.Close(); err != nil {
			app.Logger.Warn("Error closing notifier", logging.Field{Key: "error", Value: err.Error()})
		}
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
