package ratelimit

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Config represents rate limiter configuration. A limiter admits Limit events per
// Window, with bursts of up to BurstSize.
type Config struct {
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
	BurstSize int           `json:"burst_size"`
	Enabled   bool          `json:"enabled"`

	Type BackendType `json:"type"`

	// Distributed backend settings
	KeyPrefix string `json:"key_prefix,omitempty"`

	// Cleanup settings for local per-key limiters
	MaxKeys       int           `json:"max_keys,omitempty"`
	CleanupPeriod time.Duration `json:"cleanup_period,omitempty"`
}

// BackendType defines the rate limiter backend
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendRedis BackendType = "redis"
)

// Validate fills defaults and rejects unusable settings
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.Limit)
	}
	if c.Window <= 0 {
		c.Window = time.Second
	}
	if c.BurstSize <= 0 {
		c.BurstSize = c.Limit
	}

	if c.Type == "" {
		c.Type = BackendLocal
	}

	switch c.Type {
	case BackendLocal:
		if c.MaxKeys <= 0 {
			c.MaxKeys = 10000
		}
		if c.CleanupPeriod <= 0 {
			c.CleanupPeriod = 5 * time.Minute
		}
	case BackendRedis:
		if c.KeyPrefix == "" {
			c.KeyPrefix = "ratelimit:"
		}
	default:
		return fmt.Errorf("unsupported rate limiter backend type: %s", c.Type)
	}

	return nil
}

// Rate converts Limit per Window into a token refill rate
func (c Config) Rate() rate.Limit {
	if c.Window <= 0 {
		return rate.Limit(c.Limit)
	}
	return rate.Limit(float64(c.Limit) / c.Window.Seconds())
}

// DefaultConfig returns a local limiter admitting 10 events per second
func DefaultConfig() Config {
	return Config{
		Limit:         10,
		Window:        time.Second,
		BurstSize:     10,
		Enabled:       true,
		Type:          BackendLocal,
		KeyPrefix:     "ratelimit:",
		MaxKeys:       10000,
		CleanupPeriod: 5 * time.Minute,
	}
}
