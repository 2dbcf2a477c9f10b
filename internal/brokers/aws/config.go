package aws

import (
	"fmt"

	"app-groups-sync/internal/common/validation"
)

const (
	ModeSNS = "sns"
	ModeSQS = "sqs"
)

// Config targets either an SNS topic or an SQS queue, never both. Static credentials
// are optional; without them the SDK's default chain is used.
type Config struct {
	Region          string `env:"NOTIFY_AWS_REGION" validate:"required"`
	TopicArn        string `env:"NOTIFY_SNS_TOPIC_ARN" validate:"omitempty,sns_topic_arn"`
	QueueURL        string `env:"NOTIFY_SQS_QUEUE_URL" validate:"omitempty,url"`
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the service endpoint, e.g. for LocalStack.
	Endpoint string `validate:"omitempty,url"`
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	v := validation.NewValidatorWithPrefix("AWS config")
	v.ValidateIf(c.QueueURL == "" && c.TopicArn == "", func() error {
		return fmt.Errorf("either a queue URL (SQS) or a topic ARN (SNS) is required")
	})
	v.ValidateIf(c.QueueURL != "" && c.TopicArn != "", func() error {
		return fmt.Errorf("queue URL and topic ARN are mutually exclusive")
	})
	v.ValidateIf(c.AccessKeyID != "" && c.SecretAccessKey == "", func() error {
		return fmt.Errorf("secret access key is required with an access key id")
	})
	return v.Error()
}

// Mode reports whether the config targets SNS or SQS.
func (c *Config) Mode() string {
	if c.QueueURL != "" {
		return ModeSQS
	}
	return ModeSNS
}

func (c *Config) GetType() string {
	return c.Mode()
}

func (c *Config) GetConnectionString() string {
	if c.Mode() == ModeSQS {
		return c.QueueURL
	}
	return c.TopicArn
}
