package brokers

import (
	"fmt"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/common/registry"
)

type Registry struct {
	factories *registry.Registry[BrokerFactory]
}

func NewRegistry() *Registry {
	return &Registry{factories: registry.New[BrokerFactory]()}
}

func (r *Registry) Register(brokerType string, factory BrokerFactory) {
	r.factories.Register(brokerType, factory)
}

func (r *Registry) Create(brokerType string, config BrokerConfig, logger logging.Logger) (Broker, error) {
	factory, err := r.factories.Get(brokerType)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("broker type %s not registered", brokerType))
	}

	return factory.Create(config, logger)
}

func (r *Registry) GetAvailableTypes() []string {
	return r.factories.GetAvailableTypes()
}

func (r *Registry) IsRegistered(brokerType string) bool {
	return r.factories.IsRegistered(brokerType)
}

var DefaultRegistry = NewRegistry()

func Register(brokerType string, factory BrokerFactory) {
	DefaultRegistry.Register(brokerType, factory)
}

func Create(brokerType string, config BrokerConfig, logger logging.Logger) (Broker, error) {
	return DefaultRegistry.Create(brokerType, config, logger)
}

func GetAvailableTypes() []string {
	return DefaultRegistry.GetAvailableTypes()
}
