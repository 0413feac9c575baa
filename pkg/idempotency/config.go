package idempotency

import (
	"time"

	"github.com/bakery-platform/inventory/pkg/logging"
)

const (
	// DefaultMaxKeyLength is the maximum length for an idempotency key
	DefaultMaxKeyLength = 255

	// DefaultLockTimeout is how long an unfinished request holds its key
	DefaultLockTimeout = 2 * time.Minute

	// DefaultRetentionPeriod is how long completed responses are replayed
	DefaultRetentionPeriod = 24 * time.Hour

	// DefaultMaxResponseSize is the maximum response size to cache (1MB)
	DefaultMaxResponseSize = 1 * 1024 * 1024
)

// Config holds configuration for the idempotency middleware
type Config struct {
	// ServiceName scopes stored keys
	ServiceName string

	Repository KeyRepository
	Logger     *logging.Logger
	Metrics    *Metrics

	// RequireKey rejects mutating requests without an Idempotency-Key header
	RequireKey bool

	// OnlyMutating skips GET, HEAD and OPTIONS requests
	OnlyMutating bool

	MaxKeyLength    int
	RetentionPeriod time.Duration
	MaxResponseSize int
}

// DefaultConfig returns a default configuration for the given service
func DefaultConfig(serviceName string, repository KeyRepository, logger *logging.Logger) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		Logger:          logger,
		RequireKey:      false,
		OnlyMutating:    true,
		MaxKeyLength:    DefaultMaxKeyLength,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}
