package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSort()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeSort() {
	if c.Sort.Workers <= 0 {
		c.Sort.Workers = defaultWorkers
	}
	c.Sort.Timestamp = strings.ToLower(strings.TrimSpace(c.Sort.Timestamp))
	if c.Sort.Timestamp == "" {
		c.Sort.Timestamp = defaultTimestamp
	}
	c.Sort.UnknownDir = strings.TrimSpace(c.Sort.UnknownDir)
	if c.Sort.UnknownDir == "" {
		c.Sort.UnknownDir = defaultUnknownDir
	}
	c.Sort.Extensions = NormalizeExtensions(c.Sort.Extensions)
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("MEDIASORT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeExtensions lowercases extensions, adds the leading dot, and drops
// blanks and duplicates while keeping the first-seen order.
func NormalizeExtensions(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
