package gcp

import (
	"context"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/factory"
	"app-groups-sync/internal/common/logging"
)

// GetFactory returns the factory registered under "gcp".
func GetFactory() brokers.BrokerFactory {
	return factory.NewBrokerFactory[*Config](
		"gcp",
		func(config *Config, logger logging.Logger) (brokers.Broker, error) {
			return NewBroker(context.Background(), config, logger)
		},
	)
}

func init() {
	brokers.Register("gcp", GetFactory())
}
