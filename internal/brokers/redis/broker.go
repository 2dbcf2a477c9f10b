// Package redis appends sync events to a Redis stream.
package redis

import (
	"context"
	"strconv"
	"time"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/brokers/base"
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"

	"github.com/go-redis/redis/v8"
)

const connectTimeout = 5 * time.Second

// Broker implements brokers.Broker for Redis Streams. Consumers read the
// stream with their own consumer groups.
type Broker struct {
	*base.BaseBroker
	client *redis.Client
	config *Config
}

// NewBroker connects to Redis and fails if the server does not answer a ping.
func NewBroker(config *Config, logger logging.Logger) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker("redis", config, logger)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.ConnectionError("failed to connect to Redis", err)
	}

	return &Broker{
		BaseBroker: baseBroker,
		client:     client,
		config:     config,
	}, nil
}

// Publish adds one entry to the stream with a server-assigned id.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	timestamp := message.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	fields := map[string]interface{}{
		"body":      string(message.Body),
		"timestamp": strconv.FormatInt(timestamp.UnixNano(), 10),
	}
	if message.MessageID != "" {
		fields["message_id"] = message.MessageID
	}
	if message.Subject != "" {
		fields["subject"] = message.Subject
	}
	for key, value := range message.Headers {
		if key != "" && value != "" {
			fields["header_"+key] = value
		}
	}

	args := &redis.XAddArgs{
		Stream: b.config.Stream,
		ID:     "*",
		Values: fields,
	}
	if b.config.StreamMaxLen > 0 {
		args.MaxLen = b.config.StreamMaxLen
		args.Approx = true
	}

	id, err := b.client.XAdd(ctx, args).Result()
	if err != nil {
		return errors.ConnectionError("failed to publish message to Redis stream", err)
	}

	b.GetLogger().Debug("Message published to Redis stream",
		logging.Field{Key: "stream", Value: b.config.Stream},
		logging.Field{Key: "id", Value: id},
	)
	return nil
}

func (b *Broker) Health(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return errors.ConnectionError("Redis ping failed", err)
	}
	return nil
}

func (b *Broker) Close() error {
	return b.client.Close()
}
