package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSort(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSort() error {
	if c.Sort.Workers < 1 || c.Sort.Workers > maxWorkers {
		return fmt.Errorf("sort.workers must be between 1 and %d", maxWorkers)
	}
	switch c.Sort.Timestamp {
	case TimestampCreated, TimestampModified:
	default:
		return fmt.Errorf("sort.timestamp: unsupported value %q (use %q or %q)", c.Sort.Timestamp, TimestampCreated, TimestampModified)
	}
	if strings.ContainsAny(c.Sort.UnknownDir, `/\`) || c.Sort.UnknownDir == "." || c.Sort.UnknownDir == ".." {
		return fmt.Errorf("sort.unknown_dir must be a single folder name, got %q", c.Sort.UnknownDir)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && strings.TrimSpace(c.Paths.HistoryDB) == "" {
		return errors.New("paths.history_db must be set when history.enabled is true")
	}
	return nil
}
