package brokers

import (
	"context"
	"time"

	"app-groups-sync/internal/common/logging"
)

// Broker delivers outbound messages to one messaging system.
type Broker interface {
	Name() string
	Publish(ctx context.Context, message *Message) error
	Health(ctx context.Context) error
	Close() error
}

type BrokerConfig interface {
	Validate() error
	GetConnectionString() string
	GetType() string
}

type Message struct {
	MessageID string
	Subject   string
	Headers   map[string]string
	Body      []byte
	Timestamp time.Time
}

type BrokerFactory interface {
	Create(config BrokerConfig, logger logging.Logger) (Broker, error)
	GetType() string
}
