package rabbitmq

import (
	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/factory"
	"app-groups-sync/internal/common/logging"
)

func GetFactory() brokers.BrokerFactory {
	return factory.NewBrokerFactory[*Config](
		"rabbitmq",
		func(config *Config, logger logging.Logger) (brokers.Broker, error) {
			return NewBroker(config, logger)
		},
	)
}

func init() {
	brokers.Register("rabbitmq", GetFactory())
}
