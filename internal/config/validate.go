package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNumbering(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateGenerator(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn must be set when store.driver is postgres (or set DOCFLOW_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.BusyTimeoutMS < 0 {
		return errors.New("store.busy_timeout_ms must not be negative")
	}
	return nil
}

func (c *Config) validateNumbering() error {
	if c.Numbering.Width <= 0 || c.Numbering.Width > 18 {
		return errors.New("numbering.width must be between 1 and 18")
	}
	switch c.Numbering.Backend {
	case NumberingStore:
	case NumberingRedis:
		if c.Numbering.RedisAddr == "" {
			return errors.New("numbering.redis_addr must be set when numbering.backend is redis")
		}
	default:
		return fmt.Errorf("numbering.backend: unsupported value %q (want store or redis)", c.Numbering.Backend)
	}
	return nil
}

func (c *Config) validateWorker() error {
	return ensurePositiveMap(map[string]int{
		"worker.batch_size":               c.Worker.BatchSize,
		"worker.submit_interval_seconds":  c.Worker.SubmitIntervalSeconds,
		"worker.approve_interval_seconds": c.Worker.ApproveIntervalSeconds,
		"worker.error_retry_seconds":      c.Worker.ErrorRetrySeconds,
		"worker.claim_lease_seconds":      c.Worker.ClaimLeaseSeconds,
		"worker.parallelism":              c.Worker.Parallelism,
	})
}

func (c *Config) validateAPI() error {
	if c.API.MaxBatchIDs <= 0 {
		return errors.New("api.max_batch_ids must be positive")
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

func (c *Config) validateGenerator() error {
	if c.Generator.Count < 0 {
		return errors.New("generator.count must not be negative")
	}
	if c.Generator.RatePerSecond < 0 {
		return errors.New("generator.rate_per_second must not be negative")
	}
	if !strings.HasPrefix(c.Generator.BaseURL, "http://") && !strings.HasPrefix(c.Generator.BaseURL, "https://") {
		return fmt.Errorf("generator.base_url must be an http(s) URL, got %q", c.Generator.BaseURL)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
