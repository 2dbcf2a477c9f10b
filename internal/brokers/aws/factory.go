package aws

import (
	"context"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/factory"
	"app-groups-sync/internal/common/logging"
)

// GetFactory returns a factory for the given mode ("sns" or "sqs").
func GetFactory(mode string) brokers.BrokerFactory {
	return factory.NewBrokerFactory[*Config](
		mode,
		func(config *Config, logger logging.Logger) (brokers.Broker, error) {
			return NewBroker(context.Background(), config, logger)
		},
	)
}

func init() {
	brokers.Register(ModeSNS, GetFactory(ModeSNS))
	brokers.Register(ModeSQS, GetFactory(ModeSQS))
}
