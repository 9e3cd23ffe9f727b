package config

import (
	"fmt"

	"framediff/internal/services"
)

// MaxRetryAttempts bounds retry.max_attempts.
const MaxRetryAttempts = 20

// Validate ensures the configuration is usable. Credentials are checked
// separately by RequireAPIKey since only model-calling commands need them.
func (c *Config) Validate() error {
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateExtract(); err != nil {
		return err
	}
	return c.validateLogging()
}

func invalid(key, message string) error {
	return services.Wrap(services.ErrConfiguration, "config", key, message, nil)
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > MaxRetryAttempts {
		return invalid("retry.max_attempts", fmt.Sprintf("must be between 1 and %d", MaxRetryAttempts))
	}
	if c.Retry.RateLimitBaseSeconds < 0 {
		return invalid("retry.rate_limit_base_seconds", "must be non-negative")
	}
	if c.Retry.TransientDelaySeconds < 0 {
		return invalid("retry.transient_delay_seconds", "must be non-negative")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxFrames < 0 {
		return invalid("pipeline.max_frames", "must be non-negative (0 disables truncation)")
	}
	if c.Pipeline.CallDelaySeconds < 0 {
		return invalid("pipeline.call_delay_seconds", "must be non-negative")
	}
	return nil
}

func (c *Config) validateExtract() error {
	if c.Extract.MaxFrames < 1 {
		return invalid("extract.max_frames", "must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "color":
	default:
		return invalid("logging.format", "must be console, json, or color")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", "must be debug, info, warn, or error")
	}
	return nil
}
