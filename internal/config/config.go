// Package config loads service configuration from defaults, an optional
// YAML file named by CONFIG_FILE, and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bakery-platform/inventory/internal/application"
	"github.com/bakery-platform/inventory/pkg/kafka"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/mongodb"
	"github.com/bakery-platform/inventory/pkg/outbox"
	"github.com/bakery-platform/inventory/pkg/tracing"
)

// ServiceName identifies this service in logs, metrics, traces and events
const ServiceName = "bakery-inventory"

// Config holds application configuration
type Config struct {
	ServerAddr     string        `yaml:"serverAddr" validate:"required"`
	Environment    string        `yaml:"environment" validate:"required"`
	LogLevel       string        `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Timezone       string        `yaml:"timezone" validate:"required"`
	RequestTimeout time.Duration `yaml:"requestTimeout" validate:"gte=0"`
	AllowedOrigins string        `yaml:"allowedOrigins"`

	MongoDB   MongoDBConfig   `yaml:"mongodb"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Outbox    OutboxConfig    `yaml:"outbox"`
}

// MongoDBConfig holds the MongoDB connection settings
type MongoDBConfig struct {
	URI            string        `yaml:"uri" validate:"required"`
	Database       string        `yaml:"database" validate:"required"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" validate:"gt=0"`
	ReplicaSet     string        `yaml:"replicaSet"`
}

// KafkaConfig holds the event producer settings. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// TracingConfig holds the OTLP exporter settings
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	SampleRate float64 `yaml:"sampleRate" validate:"gte=0,lte=1"`
}

// SchedulerConfig holds the rollover and autosave timings
type SchedulerConfig struct {
	RolloverPollInterval time.Duration `yaml:"rolloverPollInterval" validate:"gt=0"`
	RolloverCooldown     time.Duration `yaml:"rolloverCooldown" validate:"gte=0"`
	// AutosaveInterval of zero disables the autosave job
	AutosaveInterval time.Duration `yaml:"autosaveInterval" validate:"gte=0"`
}

// OutboxConfig holds the outbox relay settings
type OutboxConfig struct {
	PollInterval   time.Duration `yaml:"pollInterval" validate:"gt=0"`
	BatchSize      int           `yaml:"batchSize" validate:"gt=0"`
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay" validate:"gt=0"`
	RetryMaxDelay  time.Duration `yaml:"retryMaxDelay" validate:"gtefield=RetryBaseDelay"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		ServerAddr:     ":8080",
		Environment:    "development",
		LogLevel:       "info",
		Timezone:       "Local",
		RequestTimeout: 30 * time.Second,
		AllowedOrigins: "*",
		MongoDB: MongoDBConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "bakery_inventory",
			ConnectTimeout: 10 * time.Second,
		},
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		Scheduler: SchedulerConfig{
			RolloverPollInterval: 5 * time.Minute,
			RolloverCooldown:     60 * time.Second,
			AutosaveInterval:     time.Hour,
		},
		Outbox: OutboxConfig{
			PollInterval:   time.Second,
			BatchSize:      100,
			RetryBaseDelay: 2 * time.Second,
			RetryMaxDelay:  5 * time.Minute,
		},
	}
}

// Load builds the configuration and validates it
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServerAddr = getEnv("SERVER_ADDR", c.ServerAddr)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.MongoDB.URI = getEnv("MONGODB_URI", c.MongoDB.URI)
	c.MongoDB.Database = getEnv("MONGODB_DATABASE", c.MongoDB.Database)
	c.MongoDB.ReplicaSet = getEnv("MONGODB_REPLICA_SET", c.MongoDB.ReplicaSet)
	c.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.Endpoint)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"ROLLOVER_POLL_INTERVAL", &c.Scheduler.RolloverPollInterval},
		{"ROLLOVER_COOLDOWN", &c.Scheduler.RolloverCooldown},
		{"AUTOSAVE_INTERVAL", &c.Scheduler.AutosaveInterval},
		{"OUTBOX_POLL_INTERVAL", &c.Outbox.PollInterval},
		{"OUTBOX_RETRY_BASE_DELAY", &c.Outbox.RetryBaseDelay},
		{"OUTBOX_RETRY_MAX_DELAY", &c.Outbox.RetryMaxDelay},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = parsed
	}
	return nil
}

// Validate checks field constraints and that the time zone exists
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location is the time zone the 06:00 cycle boundary is evaluated in
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// PublishingEnabled reports whether a Kafka broker is configured
func (c *Config) PublishingEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// LoggingConfig maps to the logging package configuration
func (c *Config) LoggingConfig() *logging.Config {
	cfg := logging.DefaultConfig(ServiceName)
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Environment = c.Environment
	return cfg
}

// MongoConfig maps to the mongodb package configuration
func (c *Config) MongoConfig() *mongodb.Config {
	cfg := mongodb.DefaultConfig()
	cfg.URI = c.MongoDB.URI
	cfg.Database = c.MongoDB.Database
	cfg.ConnectTimeout = c.MongoDB.ConnectTimeout
	cfg.ReplicaSet = c.MongoDB.ReplicaSet
	return cfg
}

// KafkaConfig maps to the kafka package configuration
func (c *Config) KafkaConfig() *kafka.Config {
	cfg := kafka.DefaultConfig()
	cfg.Brokers = c.Kafka.Brokers
	cfg.ClientID = ServiceName
	return cfg
}

// TracingConfig maps to the tracing package configuration
func (c *Config) TracingConfig() *tracing.Config {
	cfg := tracing.DefaultConfig(ServiceName)
	cfg.Environment = c.Environment
	cfg.OTLPEndpoint = c.Tracing.Endpoint
	cfg.SampleRate = c.Tracing.SampleRate
	cfg.Enabled = c.Tracing.Enabled
	return cfg
}

// OutboxPublisherConfig maps to the outbox publisher configuration
func (c *Config) OutboxPublisherConfig() *outbox.PublisherConfig {
	return &outbox.PublisherConfig{
		PollInterval:   c.Outbox.PollInterval,
		BatchSize:      c.Outbox.BatchSize,
		RetryBaseDelay: c.Outbox.RetryBaseDelay,
		RetryMaxDelay:  c.Outbox.RetryMaxDelay,
	}
}

// RolloverConfig maps to the rollover scheduler configuration
func (c *Config) RolloverConfig() (application.RolloverSchedulerConfig, error) {
	loc, err := c.Location()
	if err != nil {
		return application.RolloverSchedulerConfig{}, err
	}
	cfg := application.DefaultRolloverSchedulerConfig()
	cfg.PollInterval = c.Scheduler.RolloverPollInterval
	cfg.Cooldown = c.Scheduler.RolloverCooldown
	cfg.Location = loc
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
