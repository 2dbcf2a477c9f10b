package warehouse

import (
	"fmt"

	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/common/registry"
)

// Config carries every backend's settings; each backend reads the fields it needs.
type Config struct {
	ProjectID       string
	Dataset         string
	Table           string
	CredentialsFile string
	Endpoint        string
	PostgresURL     string
	SQLitePath      string
}

// TableRef returns the configured destination table
func (c Config) TableRef() TableRef {
	return TableRef{Project: c.ProjectID, Dataset: c.Dataset, Table: c.Table}
}

// Factory creates a Sink for one backend type
type Factory interface {
	Create(config Config, logger logging.Logger) (Sink, error)
	GetType() string
}

type Registry struct {
	factories *registry.Registry[Factory]
}

func NewRegistry() *Registry {
	return &Registry{factories: registry.New[Factory]()}
}

func (r *Registry) Register(sinkType string, factory Factory) {
	r.factories.Register(sinkType, factory)
}

func (r *Registry) Create(sinkType string, config Config, logger logging.Logger) (Sink, error) {
	factory, err := r.factories.Get(sinkType)
	if err != nil {
		return nil, fmt.Errorf("warehouse type %s not registered", sinkType)
	}

	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return factory.Create(config, logger)
}

// GetAvailableTypes returns the registered backend types in sorted order
func (r *Registry) GetAvailableTypes() []string {
	return r.factories.GetAvailableTypes()
}

func (r *Registry) IsRegistered(sinkType string) bool {
	return r.factories.IsRegistered(sinkType)
}

var DefaultRegistry = NewRegistry()

func Register(sinkType string, factory Factory) {
	DefaultRegistry.Register(sinkType, factory)
}

func Create(sinkType string, config Config, logger logging.Logger) (Sink, error) {
	return DefaultRegistry.Create(sinkType, config, logger)
}

func GetAvailableTypes() []string {
	return DefaultRegistry.GetAvailableTypes()
}
