package shardqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes the executor. Zero values fall back to defaults applied in
// NewShardExecutor, so a literal Config{} is always usable.
type Config struct {
	Shards         int           `envconfig:"SHARDS" default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE" default:"128"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"8"`
	BaseBackoff    time.Duration `envconfig:"BASE_BACKOFF" default:"100ms"`
	MaxInterval    time.Duration `envconfig:"MAX_INTERVAL" default:"20s"`

	// ErrorHandler receives errors from jobs that exhausted their retries
	// or failed irrecoverably. Optional.
	ErrorHandler func(error) `ignored:"true"`
}

// LoadConfig reads executor settings from SQ_-prefixed environment
// variables (SQ_SHARDS, SQ_QUEUE_SIZE, SQ_ENQUEUE_TIMEOUT, SQ_MAX_ATTEMPTS,
// SQ_BASE_BACKOFF, SQ_MAX_INTERVAL).
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("SQ", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
