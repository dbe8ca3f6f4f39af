// Package config provides environment-based configuration.
//
// Configuration is loaded from environment variables using envconfig,
// with sensible defaults for every knob.
//
// Variables:
//   - PIPE_CAPACITY: default per-direction buffer capacity in bytes (64)
//   - PIPE_TRIGGER: default receive trigger level in bytes (1)
//   - LOOP_QUEUE_DEPTH: event loop wake queue depth (64)
//   - LOG_LEVEL: debug, info, warn, error (info)
//   - LOG_DEV: console output with colors (false)
//   - METRICS_ADDR: metrics listen address (:9100)
//   - METRICS_ENABLED: expose Prometheus metrics (true)
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatalf("config: %v", err)
//	}
//	sides := pipe.Alloc(cfg.Pipe.Capacity, cfg.Pipe.TriggerLevel)
package config
