package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration.
type Config struct {
	Pipe    PipeConfig
	Loop    LoopConfig
	Logging LogConfig
	Metrics MetricsConfig
}

// PipeConfig holds defaults for pipe allocation.
type PipeConfig struct {
	Capacity     int `envconfig:"PIPE_CAPACITY" default:"64"`
	TriggerLevel int `envconfig:"PIPE_TRIGGER" default:"1"`
}

// LoopConfig holds event loop configuration.
type LoopConfig struct {
	QueueDepth int `envconfig:"LOOP_QUEUE_DEPTH" default:"64"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds metrics exposition configuration.
type MetricsConfig struct {
	Addr    string `envconfig:"METRICS_ADDR" default:":9100"`
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Pipe.Capacity <= 0 {
		return fmt.Errorf("pipe capacity must be positive, got %d", c.Pipe.Capacity)
	}
	if c.Pipe.TriggerLevel <= 0 || c.Pipe.TriggerLevel > c.Pipe.Capacity {
		return fmt.Errorf(
			"pipe trigger level must be in 1..%d, got %d",
			c.Pipe.Capacity, c.Pipe.TriggerLevel,
		)
	}
	if c.Loop.QueueDepth <= 0 {
		return fmt.Errorf("loop queue depth must be positive, got %d", c.Loop.QueueDepth)
	}
	return nil
}
