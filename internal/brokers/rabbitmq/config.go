package rabbitmq

import (
	"fmt"
	"net/url"

	"app-groups-sync/internal/common/validation"
)

type Config struct {
	URL   string `env:"NOTIFY_RABBITMQ_URL" validate:"required,amqp_url"`
	Queue string `env:"NOTIFY_RABBITMQ_QUEUE" validate:"required,max=255"`
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

func (c *Config) GetConnectionString() string {
	// Credentials stay out of logs.
	if parsedURL, err := url.Parse(c.URL); err == nil {
		return fmt.Sprintf("rabbitmq://%s/%s", parsedURL.Host, c.Queue)
	}
	return "rabbitmq://***"
}

func (c *Config) GetType() string {
	return "rabbitmq"
}
