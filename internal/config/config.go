// Package config provides configuration management for the app-groups sync service.
// It loads configuration from environment variables with sensible defaults and
// validates it so the service refuses to start half-configured.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Okta:
//   - OKTA_BASE_URL: Okta org URL, e.g. https://example.okta.com (required)
//   - OKTA_API_TOKEN: SSWS API token (required)
//   - OKTA_REQUEST_TIMEOUT: Per-call timeout (default: 10s)
//   - OKTA_MAX_CONCURRENCY: Parallel group lookups per request (default: 4)
//   - OKTA_RATE_LIMIT_RPS: Outbound requests per second, 0 disables (default: 10)
//   - OKTA_MAX_PAGES: Pages followed when listing app groups (default: 50)
//   - GROUP_FAILURE_POLICY: "abort" or "skip" (default: abort)
//
// Warehouse:
//   - WAREHOUSE_TYPE: "bigquery", "postgres" or "sqlite" (default: bigquery)
//   - BIGQUERY_PROJECT_ID, BIGQUERY_DATASET, BIGQUERY_TABLE: Table coordinates (required)
//   - BIGQUERY_CREDENTIALS_FILE: Service account key file (default: ADC)
//   - BIGQUERY_ENDPOINT: Override of the BigQuery REST endpoint
//   - POSTGRES_URL: Connection URL when WAREHOUSE_TYPE=postgres
//   - SQLITE_PATH: Database file when WAREHOUSE_TYPE=sqlite (default: ./app_groups.db)
//
// Redis and rate limiting (inbound):
//   - REDIS_ADDRESS: Redis server address, empty disables Redis
//   - REDIS_PASSWORD, REDIS_DB (0-15), REDIS_POOL_SIZE (default: 10)
//   - RATE_LIMIT_ENABLED (default: false), RATE_LIMIT_DEFAULT (default: 60),
//     RATE_LIMIT_WINDOW (default: 60s)
//
// Notifications:
//   - NOTIFY_TYPE: "none", "gcp", "sns", "sqs", "rabbitmq" or "redis" (default: none)
//   - NOTIFY_GCP_PROJECT_ID, NOTIFY_GCP_TOPIC_ID, NOTIFY_GCP_CREDENTIALS_FILE
//   - NOTIFY_AWS_REGION, NOTIFY_SNS_TOPIC_ARN, NOTIFY_SQS_QUEUE_URL
//   - NOTIFY_RABBITMQ_URL, NOTIFY_RABBITMQ_QUEUE
//   - NOTIFY_REDIS_STREAM (default: app-groups-sync), NOTIFY_REDIS_STREAM_MAXLEN
//     (default: 0, no limit); the stream lives on the REDIS_ADDRESS server
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"app-groups-sync/internal/common/validation"
	"app-groups-sync/internal/server"
)

// Group failure policies applied when a single group lookup fails.
const (
	GroupPolicyAbort = "abort"
	GroupPolicySkip  = "skip"
)

// Warehouse backends.
const (
	WarehouseBigQuery = "bigquery"
	WarehousePostgres = "postgres"
	WarehouseSQLite   = "sqlite"
)

// Notifier backends.
const (
	NotifyNone     = "none"
	NotifyGCP      = "gcp"
	NotifySNS      = "sns"
	NotifySQS      = "sqs"
	NotifyRabbitMQ = "rabbitmq"
	NotifyRedis    = "redis"
)

// Config holds all configuration values for the service.
//
// The configuration is loaded using Load() and should be validated using
// Validate() before use.
type Config struct {
	// Application settings
	Port     string
	LogLevel string

	// Okta
	OktaBaseURL        string
	OktaAPIToken       string
	OktaRequestTimeout time.Duration
	OktaMaxConcurrency int
	OktaRateLimitRPS   int
	OktaMaxPages       int
	GroupFailurePolicy string

	// SyncTimeout bounds one sync run; it must leave room inside the server's write timeout
	SyncTimeout time.Duration

	// Warehouse
	WarehouseType           string
	BigQueryProjectID       string
	BigQueryDataset         string
	BigQueryTable           string
	BigQueryCredentialsFile string
	BigQueryEndpoint        string
	PostgresURL             string
	SQLitePath              string

	// Redis configuration for distributed rate limiting
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Inbound rate limiting
	RateLimitEnabled bool
	RateLimitDefault int
	RateLimitWindow  time.Duration

	// Sync notifications
	NotifyType               string
	NotifyGCPProjectID       string
	NotifyGCPTopicID         string
	NotifyGCPCredentialsFile string
	NotifyAWSRegion          string
	NotifySNSTopicARN        string
	NotifySQSQueueURL        string
	NotifyRabbitMQURL        string
	NotifyRabbitMQQueue      string
	NotifyRedisStream        string
	NotifyRedisStreamMaxLen  int

	// parseErrors collects malformed numeric/duration values seen by Load
	parseErrors []string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
// Malformed values are remembered and reported by Validate.
func Load() *Config {
	c := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OktaBaseURL:        strings.TrimRight(getEnv("OKTA_BASE_URL", ""), "/"),
		OktaAPIToken:       getEnv("OKTA_API_TOKEN", ""),
		GroupFailurePolicy: strings.ToLower(getEnv("GROUP_FAILURE_POLICY", GroupPolicyAbort)),

		WarehouseType:           strings.ToLower(getEnv("WAREHOUSE_TYPE", WarehouseBigQuery)),
		BigQueryProjectID:       getEnv("BIGQUERY_PROJECT_ID", ""),
		BigQueryDataset:         getEnv("BIGQUERY_DATASET", ""),
		BigQueryTable:           getEnv("BIGQUERY_TABLE", ""),
		BigQueryCredentialsFile: getEnv("BIGQUERY_CREDENTIALS_FILE", ""),
		BigQueryEndpoint:        getEnv("BIGQUERY_ENDPOINT", ""),
		PostgresURL:             getEnv("POSTGRES_URL", ""),
		SQLitePath:              getEnv("SQLITE_PATH", "./app_groups.db"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", false),

		NotifyType:               strings.ToLower(getEnv("NOTIFY_TYPE", NotifyNone)),
		NotifyGCPProjectID:       getEnv("NOTIFY_GCP_PROJECT_ID", ""),
		NotifyGCPTopicID:         getEnv("NOTIFY_GCP_TOPIC_ID", ""),
		NotifyGCPCredentialsFile: getEnv("NOTIFY_GCP_CREDENTIALS_FILE", ""),
		NotifyAWSRegion:          getEnv("NOTIFY_AWS_REGION", ""),
		NotifySNSTopicARN:        getEnv("NOTIFY_SNS_TOPIC_ARN", ""),
		NotifySQSQueueURL:        getEnv("NOTIFY_SQS_QUEUE_URL", ""),
		NotifyRabbitMQURL:        getEnv("NOTIFY_RABBITMQ_URL", ""),
		NotifyRabbitMQQueue:      getEnv("NOTIFY_RABBITMQ_QUEUE", "app-groups-sync"),
		NotifyRedisStream:        getEnv("NOTIFY_REDIS_STREAM", "app-groups-sync"),
	}

	c.OktaRequestTimeout = c.getDurationEnv("OKTA_REQUEST_TIMEOUT", 10*time.Second)
	c.OktaMaxConcurrency = c.getIntEnv("OKTA_MAX_CONCURRENCY", 4)
	c.OktaRateLimitRPS = c.getIntEnv("OKTA_RATE_LIMIT_RPS", 10)
	c.OktaMaxPages = c.getIntEnv("OKTA_MAX_PAGES", 50)
	c.SyncTimeout = c.getDurationEnv("SYNC_TIMEOUT", 25*time.Second)
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.getIntEnv("REDIS_POOL_SIZE", 10)
	c.RateLimitDefault = c.getIntEnv("RATE_LIMIT_DEFAULT", 60)
	c.RateLimitWindow = c.getDurationEnv("RATE_LIMIT_WINDOW", 60*time.Second)
	c.NotifyRedisStreamMaxLen = c.getIntEnv("NOTIFY_REDIS_STREAM_MAXLEN", 0)

	return c
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
// Unparseable values fall back to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a valid duration (e.g. '10s'), got %q", key, value))
		return defaultValue
	}
	return parsed
}

// Validate checks required fields, value ranges and cross-field dependencies and
// reports every problem at once. The service should call it after Load and before
// wiring any client.
func (c *Config) Validate() error {
	v := validation.NewValidatorWithPrefix("config")
	for _, parseErr := range c.parseErrors {
		msg := parseErr
		v.Validate(func() error { return fmt.Errorf("%s", msg) })
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil {
		port = 0
	}
	v.RequireRange(port, 1, 65535, "PORT")

	v.RequireURL(c.OktaBaseURL, "OKTA_BASE_URL", "http", "https").
		RequireString(c.OktaAPIToken, "OKTA_API_TOKEN").
		RequirePositive(int(c.OktaRequestTimeout), "OKTA_REQUEST_TIMEOUT").
		RequirePositive(c.OktaMaxConcurrency, "OKTA_MAX_CONCURRENCY").
		RequirePositive(c.OktaMaxPages, "OKTA_MAX_PAGES").
		ValidateIf(c.OktaRateLimitRPS < 0, func() error {
			return fmt.Errorf("OKTA_RATE_LIMIT_RPS must not be negative")
		}).
		RequireOneOf(c.GroupFailurePolicy, []string{GroupPolicyAbort, GroupPolicySkip}, "GROUP_FAILURE_POLICY").
		RequirePositive(int(c.SyncTimeout), "SYNC_TIMEOUT").
		ValidateIf(c.SyncTimeout >= server.WriteTimeout, func() error {
			return fmt.Errorf("SYNC_TIMEOUT must be shorter than the %s server write timeout", server.WriteTimeout)
		})

	v.RequireString(c.BigQueryDataset, "BIGQUERY_DATASET").
		RequireString(c.BigQueryTable, "BIGQUERY_TABLE").
		RequireOneOf(c.WarehouseType, []string{WarehouseBigQuery, WarehousePostgres, WarehouseSQLite}, "WAREHOUSE_TYPE")
	switch c.WarehouseType {
	case WarehouseBigQuery:
		v.RequireString(c.BigQueryProjectID, "BIGQUERY_PROJECT_ID")
	case WarehousePostgres:
		v.RequireURL(c.PostgresURL, "POSTGRES_URL", "postgres", "postgresql")
	case WarehouseSQLite:
		v.RequireString(c.SQLitePath, "SQLITE_PATH")
	}

	if c.RedisAddress != "" {
		v.RequireRange(c.RedisDB, 0, 15, "REDIS_DB").
			RequirePositive(c.RedisPoolSize, "REDIS_POOL_SIZE")
	}

	if c.RateLimitEnabled {
		v.RequirePositive(c.RateLimitDefault, "RATE_LIMIT_DEFAULT").
			RequirePositive(int(c.RateLimitWindow), "RATE_LIMIT_WINDOW")
	}

	v.RequireOneOf(c.NotifyType, []string{NotifyNone, NotifyGCP, NotifySNS, NotifySQS, NotifyRabbitMQ, NotifyRedis}, "NOTIFY_TYPE")
	switch c.NotifyType {
	case NotifyGCP:
		v.RequireString(c.NotifyGCPProjectID, "NOTIFY_GCP_PROJECT_ID").
			RequireString(c.NotifyGCPTopicID, "NOTIFY_GCP_TOPIC_ID")
	case NotifySNS:
		v.RequireString(c.NotifyAWSRegion, "NOTIFY_AWS_REGION").
			RequireString(c.NotifySNSTopicARN, "NOTIFY_SNS_TOPIC_ARN")
	case NotifySQS:
		v.RequireString(c.NotifyAWSRegion, "NOTIFY_AWS_REGION").
			RequireURL(c.NotifySQSQueueURL, "NOTIFY_SQS_QUEUE_URL", "https", "http")
	case NotifyRabbitMQ:
		v.RequireURL(c.NotifyRabbitMQURL, "NOTIFY_RABBITMQ_URL", "amqp", "amqps").
			RequireString(c.NotifyRabbitMQQueue, "NOTIFY_RABBITMQ_QUEUE")
	case NotifyRedis:
		v.RequireString(c.RedisAddress, "REDIS_ADDRESS").
			RequireString(c.NotifyRedisStream, "NOTIFY_REDIS_STREAM").
			ValidateIf(c.NotifyRedisStreamMaxLen < 0, func() error {
				return fmt.Errorf("NOTIFY_REDIS_STREAM_MAXLEN must not be negative")
			})
	}

	return v.Error()
}
