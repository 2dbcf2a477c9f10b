package gcp

import (
	"fmt"

	"app-groups-sync/internal/common/validation"
)

// Config selects the Pub/Sub topic sync events are published to. Credentials default
// to Application Default Credentials; PUBSUB_EMULATOR_HOST is honoured by the client.
type Config struct {
	ProjectID       string `env:"NOTIFY_GCP_PROJECT_ID" validate:"required"`
	TopicID         string `env:"NOTIFY_GCP_TOPIC_ID" validate:"required,gcp_topic_id"`
	CredentialsFile string `env:"NOTIFY_GCP_CREDENTIALS_FILE"`
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

func (c *Config) GetType() string {
	return "gcp"
}

func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("pubsub://projects/%s/topics/%s", c.ProjectID, c.TopicID)
}
