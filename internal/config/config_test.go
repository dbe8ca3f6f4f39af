package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Pipe.Capacity)
	assert.Equal(t, 1, cfg.Pipe.TriggerLevel)
	assert.Equal(t, 64, cfg.Loop.QueueDepth)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PIPE_CAPACITY", "128")
	t.Setenv("PIPE_TRIGGER", "16")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Pipe.Capacity)
	assert.Equal(t, 16, cfg.Pipe.TriggerLevel)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero capacity",
			mutate:  func(c *Config) { c.Pipe.Capacity = 0 },
			wantErr: true,
		},
		{
			name:    "zero trigger level",
			mutate:  func(c *Config) { c.Pipe.TriggerLevel = 0 },
			wantErr: true,
		},
		{
			name: "trigger above capacity",
			mutate: func(c *Config) {
				c.Pipe.Capacity = 8
				c.Pipe.TriggerLevel = 9
			},
			wantErr: true,
		},
		{
			name:    "zero queue depth",
			mutate:  func(c *Config) { c.Loop.QueueDepth = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
