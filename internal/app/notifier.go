package app

import (
	"fmt"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/brokers/aws"
	"app-groups-sync/internal/brokers/gcp"
	"app-groups-sync/internal/brokers/rabbitmq"
	"app-groups-sync/internal/brokers/redis"
	"app-groups-sync/internal/common/logging"
	"app-groups-sync/internal/config"
)

// notifierConfig maps NOTIFY_* settings onto the broker config for the chosen type.
// A nil config means notifications are off.
func notifierConfig(cfg *config.Config) (brokers.BrokerConfig, error) {
	switch cfg.NotifyType {
	case "", config.NotifyNone:
		return nil, nil
	case config.NotifyGCP:
		return &gcp.Config{
			ProjectID:       cfg.NotifyGCPProjectID,
			TopicID:         cfg.NotifyGCPTopicID,
			CredentialsFile: cfg.NotifyGCPCredentialsFile,
		}, nil
	case config.NotifySNS:
		return &aws.Config{Region: cfg.NotifyAWSRegion, TopicArn: cfg.NotifySNSTopicARN}, nil
	case config.NotifySQS:
		return &aws.Config{Region: cfg.NotifyAWSRegion, QueueURL: cfg.NotifySQSQueueURL}, nil
	case config.NotifyRabbitMQ:
		return &rabbitmq.Config{URL: cfg.NotifyRabbitMQURL, Queue: cfg.NotifyRabbitMQQueue}, nil
	case config.NotifyRedis:
		return &redis.Config{
			Address:      cfg.RedisAddress,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			Stream:       cfg.NotifyRedisStream,
			StreamMaxLen: int64(cfg.NotifyRedisStreamMaxLen),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.NotifyType)
	}
}

func (app *App) initializeNotifier() error {
	brokerConfig, err := notifierConfig(app.Config)
	if err != nil {
		return err
	}

	if brokerConfig == nil {
		app.Notifier = brokers.NewNotifier(nil, app.Logger)
		app.Logger.Info("Notifications: Disabled")
		return nil
	}

	broker, err := brokers.Create(app.Config.NotifyType, brokerConfig, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize %s notifier: %w", app.Config.NotifyType, err)
	}

	app.Notifier = brokers.NewNotifier(broker, app.Logger)
	app.Logger.Info("Notifications: Enabled",
		logging.Field{Key: "type", Value: app.Config.NotifyType},
		logging.Field{Key: "destination", Value: brokerConfig.GetConnectionString()},
	)
	return nil
}
