package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.LibraryDir == "" {
		return errors.New("paths.library_dir must be set")
	}
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	return nil
}

func (c *Config) validateSources() error {
	for key, value := range map[string]string{
		"catalog.base_url":     c.Catalog.BaseURL,
		"encyclopedia.api_url": c.Encyclopedia.APIURL,
		"songdb.base_url":      c.SongDB.BaseURL,
	} {
		if err := validateURL(key, value); err != nil {
			return err
		}
	}
	if c.Catalog.CandidateLimit <= 0 {
		return errors.New("catalog.candidate_limit must be positive")
	}
	if c.Encyclopedia.BatchSize <= 0 || c.Encyclopedia.BatchSize > maxEncyclopediaBatch {
		return fmt.Errorf("encyclopedia.batch_size must be between 1 and %d", maxEncyclopediaBatch)
	}
	for key, value := range map[string]int{
		"catalog.cooldown_ms":       c.Catalog.CooldownMS,
		"catalog.min_interval_ms":   c.Catalog.MinIntervalMS,
		"encyclopedia.cooldown_ms":  c.Encyclopedia.CooldownMS,
		"encyclopedia.max_matches":  c.Encyclopedia.MaxMatches,
		"songdb.cooldown_ms":        c.SongDB.CooldownMS,
		"tagging.cover_cooldown_ms": c.Tagging.CoverCooldownMS,
	} {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}

func validateURL(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", key)
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.TimeoutSeconds <= 0 {
		return errors.New("network.timeout_seconds must be positive")
	}
	if c.Network.RetryAttempts < 1 {
		return errors.New("network.retry_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendJSON, CacheBackendSQLite:
		return nil
	default:
		return fmt.Errorf("cache.backend: unsupported value %q", c.Cache.Backend)
	}
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
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return errors.New("logging.max_size_mb and logging.max_backups must not be negative")
	}
	return nil
}
