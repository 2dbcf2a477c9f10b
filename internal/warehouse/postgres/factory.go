package postgres

import (
	"context"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/warehouse"
)

type Factory struct{}

func (f *Factory) Create(config warehouse.Config, logger logging.Logger) (warehouse.Sink, error) {
	return NewSink(context.Background(), config, logger)
}

func (f *Factory) GetType() string {
	return "postgres"
}

func init() {
	warehouse.Register("postgres", &Factory{})
}
