// Package gcp publishes sync events to a Google Cloud Pub/Sub topic.
package gcp

import (
	"context"
	"fmt"
	"time"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/brokers/base"
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Broker implements brokers.Broker for Google Cloud Pub/Sub.
type Broker struct {
	*base.BaseBroker
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewBroker connects to Pub/Sub and checks that the configured topic exists.
// Extra client options are appended after the credentials option.
func NewBroker(ctx context.Context, config *Config, logger logging.Logger, opts ...option.ClientOption) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("gcp", config, logger)
	if err != nil {
		return nil, err
	}

	var clientOpts []option.ClientOption
	if config.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(config.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	client, err := pubsub.NewClient(ctx, config.ProjectID, clientOpts...)
	if err != nil {
		return nil, errors.ConnectionError("failed to create Pub/Sub client", err)
	}

	topic := client.Topic(config.TopicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, errors.ConnectionError("failed to check topic existence", err)
	}
	if !exists {
		client.Close()
		return nil, errors.ConfigError(fmt.Sprintf("topic %s does not exist", config.TopicID))
	}

	// Events are sparse; flush each one promptly rather than waiting for a batch.
	topic.PublishSettings.CountThreshold = 1
	topic.PublishSettings.DelayThreshold = 10 * time.Millisecond

	return &Broker{
		BaseBroker: baseBroker,
		client:     client,
		topic:      topic,
	}, nil
}

// Publish sends the message and waits for the server to acknowledge it.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	attributes := make(map[string]string, len(message.Headers)+2)
	for key, value := range message.Headers {
		if key != "" && value != "" {
			attributes[key] = value
		}
	}
	if message.Subject != "" {
		attributes["subject"] = message.Subject
	}
	if message.MessageID != "" {
		attributes["message_id"] = message.MessageID
	}

	result := b.topic.Publish(ctx, &pubsub.Message{
		Data:       message.Body,
		Attributes: attributes,
	})

	serverID, err := result.Get(ctx)
	if err != nil {
		return errors.ConnectionError("failed to publish message to Pub/Sub", err)
	}

	b.GetLogger().Debug("Message published to Pub/Sub",
		logging.Field{Key: "message_id", Value: message.MessageID},
		logging.Field{Key: "server_id", Value: serverID},
	)
	return nil
}

// Health checks that the topic is still reachable.
func (b *Broker) Health(ctx context.Context) error {
	exists, err := b.topic.Exists(ctx)
	if err != nil {
		return errors.ConnectionError("failed to check topic existence", err)
	}
	if !exists {
		return errors.NotFoundError(fmt.Sprintf("topic %s", b.topic.ID()))
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (b *Broker) Close() error {
	b.topic.Stop()
	return b.client.Close()
}
