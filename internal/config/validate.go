package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSink(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSink() error {
	if c.Sink.Filename == "" {
		return errors.New("sink.filename must be set")
	}
	if c.Sink.MaxSize < 0 {
		return errors.New("sink.max_size must be >= 0 (bytes, 0 disables size rotation)")
	}
	if c.Sink.MaxRetries < 0 {
		return errors.New("sink.max_retries must be >= 0")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.MaxFiles < 0 {
		return errors.New("retention.max_files must be >= 0")
	}
	if c.Retention.OlderThanDays < 0 {
		return errors.New("retention.older_than_days must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
