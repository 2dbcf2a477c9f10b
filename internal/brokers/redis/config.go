package redis

import (
	"fmt"

	"app-groups-sync/internal/common/validation"
)

// Config selects the stream sync events are appended to. The server settings
// are shared with the inbound rate limiter.
type Config struct {
	Address      string `env:"REDIS_ADDRESS" validate:"required"`
	Password     string `env:"REDIS_PASSWORD"`
	DB           int    `env:"REDIS_DB" validate:"min=0,max=15"`
	Stream       string `env:"NOTIFY_REDIS_STREAM" validate:"required,max=255"`
	StreamMaxLen int64  `env:"NOTIFY_REDIS_STREAM_MAXLEN" validate:"min=0"` // 0 = no limit
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

func (c *Config) GetType() string {
	return "redis"
}

// GetConnectionString leaves the password out.
func (c *Config) GetConnectionString() string {
	return fmt.Sprintf("redis://%s/%d/%s", c.Address, c.DB, c.Stream)
}
