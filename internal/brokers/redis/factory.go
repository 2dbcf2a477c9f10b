package redis

import (
	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/factory"
	"app-groups-sync/internal/common/logging"
)

// GetFactory returns the factory registered under "redis".
func GetFactory() brokers.BrokerFactory {
	return factory.NewBrokerFactory[*Config](
		"redis",
		func(config *Config, logger logging.Logger) (brokers.Broker, error) {
			return NewBroker(config, logger)
		},
	)
}

func init() {
	brokers.Register("redis", GetFactory())
}
