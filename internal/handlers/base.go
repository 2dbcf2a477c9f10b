package handlers

import (
	"context"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/pipeline"
)

// Runner executes one fetch-join-persist run for an application.
type Runner interface {
	Run(ctx context.Context, appID string) (*pipeline.Result, error)
}

// Check is a named dependency check reported by the health endpoint.
// A failing critical check turns the service unhealthy; any other failure only degrades it.
type Check struct {
	Name     string
	Critical bool
	Fn       func(ctx context.Context) error
}

type Handlers struct {
	runner   Runner
	sinkName string
	checks   []Check
	logger   logging.Logger
}

func New(runner Runner, sinkName string, logger logging.Logger, checks ...Check) *Handlers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handlers{
		runner:   runner,
		sinkName: sinkName,
		checks:   checks,
		logger:   logger.WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}
