package factory

import (
	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/logging"
)

// BrokerFactoryAdapter adapts the generic factory to the BrokerFactory interface
type BrokerFactoryAdapter[C brokers.BrokerConfig] struct {
	*Factory[C, brokers.Broker]
}

// NewBrokerFactory creates a broker factory that implements brokers.BrokerFactory
func NewBrokerFactory[C brokers.BrokerConfig](typeName string, creator func(C, logging.Logger) (brokers.Broker, error)) brokers.BrokerFactory {
	return &BrokerFactoryAdapter[C]{NewFactory[C, brokers.Broker](typeName, creator)}
}

// Create implements brokers.BrokerFactory
func (a *BrokerFactoryAdapter[C]) Create(config brokers.BrokerConfig, logger logging.Logger) (brokers.Broker, error) {
	return a.Factory.Create(config, logger)
}
