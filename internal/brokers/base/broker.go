// Package base provides the pieces every broker implementation shares: its name,
// a validated configuration and a logger tagged with both.
package base

import (
	"fmt"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
)

// BaseBroker is embedded by the broker implementations.
type BaseBroker struct {
	name   string
	logger logging.Logger
}

// NewBaseBroker validates config and derives a logger carrying the broker name and
// destination. A nil logger falls back to the global logger.
func NewBaseBroker(name string, config brokers.BrokerConfig, logger logging.Logger) (*BaseBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid %s config: %v", name, err))
	}

	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &BaseBroker{
		name: name,
		logger: logger.WithFields(
			logging.Field{Key: "broker", Value: name},
			logging.Field{Key: "destination", Value: config.GetConnectionString()},
		),
	}, nil
}

// Name returns the broker type name.
func (b *BaseBroker) Name() string {
	return b.name
}

// GetLogger returns the configured logger instance.
func (b *BaseBroker) GetLogger() logging.Logger {
	return b.logger
}
