// Package rabbitmq publishes sync events to a durable RabbitMQ queue.
package rabbitmq

import (
	"context"
	"sync"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/brokers/base"
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"

	"github.com/streadway/amqp"
)

// Broker implements brokers.Broker for RabbitMQ. It holds a single session and
// redials after the connection drops.
type Broker struct {
	*base.BaseBroker
	config *Config
	dial   Dialer

	mu      sync.Mutex
	session Session
}

// NewBroker dials RabbitMQ and declares the configured queue.
func NewBroker(config *Config, logger logging.Logger) (*Broker, error) {
	return NewBrokerWithDialer(config, logger, dialAMQP)
}

// NewBrokerWithDialer is NewBroker with a custom way of opening sessions.
func NewBrokerWithDialer(config *Config, logger logging.Logger, dial Dialer) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("rabbitmq", config, logger)
	if err != nil {
		return nil, err
	}

	b := &Broker{
		BaseBroker: baseBroker,
		config:     config,
		dial:       dial,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connectLocked(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connectLocked() error {
	if b.session != nil && !b.session.IsClosed() {
		return nil
	}
	b.dropSessionLocked()

	session, err := b.dial(b.config.URL)
	if err != nil {
		return errors.ConnectionError("failed to connect to RabbitMQ", err)
	}

	if _, err := session.QueueDeclare(b.config.Queue, true, false, false, false, nil); err != nil {
		session.Close()
		return errors.ConnectionError("failed to declare queue "+b.config.Queue, err)
	}

	b.session = session
	return nil
}

func (b *Broker) dropSessionLocked() {
	if b.session != nil {
		_ = b.session.Close()
		b.session = nil
	}
}

// Publish sends a persistent message to the queue through the default exchange.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.TimeoutError("rabbitmq publish", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connectLocked(); err != nil {
		return err
	}

	headers := amqp.Table{}
	for key, value := range message.Headers {
		if value != "" {
			headers[key] = value
		}
	}

	err := b.session.Publish("", b.config.Queue, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    message.MessageID,
		Timestamp:    message.Timestamp,
		Type:         message.Subject,
		Body:         message.Body,
	})
	if err != nil {
		b.dropSessionLocked()
		return errors.ConnectionError("failed to publish message to RabbitMQ", err)
	}

	b.GetLogger().Debug("Message published to RabbitMQ",
		logging.Field{Key: "message_id", Value: message.MessageID},
		logging.Field{Key: "queue", Value: b.config.Queue},
	)
	return nil
}

// Health reconnects if needed and re-declares the queue.
func (b *Broker) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectLocked()
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	return err
}
