// Package aws publishes sync events to an Amazon SNS topic or SQS queue.
package aws

import (
	"context"
	"strconv"

	"app-groups-sync/internal/brokers"
	"app-groups-sync/internal/brokers/base"
	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Broker implements brokers.Broker for SNS and SQS. Only the client matching the
// configured mode is created.
type Broker struct {
	*base.BaseBroker
	config    *Config
	sqsClient *sqs.Client
	snsClient *sns.Client
}

// NewBroker loads the AWS configuration and builds the client for the configured mode.
func NewBroker(ctx context.Context, config *Config, logger logging.Logger) (*Broker, error) {
	baseBroker, err := base.NewBaseBroker(config.Mode(), config, logger)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, config.SessionToken),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.ConnectionError("failed to load AWS config", err)
	}

	b := &Broker{
		BaseBroker: baseBroker,
		config:     config,
	}

	switch config.Mode() {
	case ModeSQS:
		b.sqsClient = sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if config.Endpoint != "" {
				o.BaseEndpoint = aws.String(config.Endpoint)
			}
		})
	default:
		b.snsClient = sns.NewFromConfig(awsCfg, func(o *sns.Options) {
			if config.Endpoint != "" {
				o.BaseEndpoint = aws.String(config.Endpoint)
			}
		})
	}

	return b, nil
}

// Publish sends the message body with its headers as message attributes.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if b.sqsClient != nil {
		return b.publishToSQS(ctx, message)
	}
	return b.publishToSNS(ctx, message)
}

func (b *Broker) publishToSQS(ctx context.Context, message *brokers.Message) error {
	attributes := make(map[string]types.MessageAttributeValue)
	for key, value := range messageAttributes(message) {
		attributes[key] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}
	if !message.Timestamp.IsZero() {
		attributes["Timestamp"] = types.MessageAttributeValue{
			DataType:    aws.String("Number"),
			StringValue: aws.String(strconv.FormatInt(message.Timestamp.UnixNano(), 10)),
		}
	}

	result, err := b.sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(b.config.QueueURL),
		MessageBody:       aws.String(string(message.Body)),
		MessageAttributes: attributes,
	})
	if err != nil {
		return errors.ConnectionError("failed to send message to SQS", err)
	}

	b.GetLogger().Debug("Message sent to SQS",
		logging.Field{Key: "message_id", Value: message.MessageID},
		logging.Field{Key: "sqs_message_id", Value: aws.ToString(result.MessageId)},
	)
	return nil
}

func (b *Broker) publishToSNS(ctx context.Context, message *brokers.Message) error {
	attributes := make(map[string]snsTypes.MessageAttributeValue)
	for key, value := range messageAttributes(message) {
		attributes[key] = snsTypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(b.config.TopicArn),
		Message:           aws.String(string(message.Body)),
		MessageAttributes: attributes,
	}
	if message.Subject != "" {
		input.Subject = aws.String(message.Subject)
	}

	result, err := b.snsClient.Publish(ctx, input)
	if err != nil {
		return errors.ConnectionError("failed to publish message to SNS", err)
	}

	b.GetLogger().Debug("Message published to SNS",
		logging.Field{Key: "message_id", Value: message.MessageID},
		logging.Field{Key: "sns_message_id", Value: aws.ToString(result.MessageId)},
	)
	return nil
}

// messageAttributes flattens the message id, subject and headers. Empty values are
// dropped since neither service accepts them.
func messageAttributes(message *brokers.Message) map[string]string {
	attributes := make(map[string]string, len(message.Headers)+2)
	if message.MessageID != "" {
		attributes["MessageID"] = message.MessageID
	}
	if message.Subject != "" {
		attributes["Subject"] = message.Subject
	}
	for key, value := range message.Headers {
		if value != "" {
			attributes["Header_"+key] = value
		}
	}
	return attributes
}

// Health reads the queue or topic attributes.
func (b *Broker) Health(ctx context.Context) error {
	if b.sqsClient != nil {
		_, err := b.sqsClient.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(b.config.QueueURL),
			AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
		})
		if err != nil {
			return errors.ConnectionError("SQS queue is not reachable", err)
		}
		return nil
	}

	_, err := b.snsClient.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
		TopicArn: aws.String(b.config.TopicArn),
	})
	if err != nil {
		return errors.ConnectionError("SNS topic is not reachable", err)
	}
	return nil
}

// Close is a no-op; the SDK clients hold no long-lived connections of their own.
func (b *Broker) Close() error {
	return nil
}
