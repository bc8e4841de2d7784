package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeNumbering()
	c.normalizeWorker()
	c.normalizeAPI()
	c.normalizeLogging()
	c.normalizeGenerator()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.PostgresDSN = strings.TrimSpace(c.Store.PostgresDSN)
	if c.Store.PostgresDSN == "" {
		if value, ok := os.LookupEnv("DOCFLOW_POSTGRES_DSN"); ok {
			c.Store.PostgresDSN = strings.TrimSpace(value)
		}
	}
	if c.Store.BusyTimeoutMS == 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
}

func (c *Config) normalizeNumbering() {
	c.Numbering.Backend = strings.ToLower(strings.TrimSpace(c.Numbering.Backend))
	if c.Numbering.Backend == "" {
		c.Numbering.Backend = defaultNumberingBackend
	}
	c.Numbering.RedisAddr = strings.TrimSpace(c.Numbering.RedisAddr)
	if c.Numbering.RedisAddr == "" {
		if value, ok := os.LookupEnv("DOCFLOW_REDIS_ADDR"); ok {
			c.Numbering.RedisAddr = strings.TrimSpace(value)
		}
	}
	c.Numbering.RedisKey = strings.TrimSpace(c.Numbering.RedisKey)
	if c.Numbering.RedisKey == "" {
		c.Numbering.RedisKey = defaultRedisKey
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.SubmitActor = strings.TrimSpace(c.Worker.SubmitActor)
	if c.Worker.SubmitActor == "" {
		c.Worker.SubmitActor = defaultSubmitActor
	}
	c.Worker.ApproveActor = strings.TrimSpace(c.Worker.ApproveActor)
	if c.Worker.ApproveActor == "" {
		c.Worker.ApproveActor = defaultApproveActor
	}
	if c.Worker.Parallelism == 0 {
		c.Worker.Parallelism = defaultParallelism
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.MaxBatchIDs == 0 {
		c.API.MaxBatchIDs = defaultMaxBatchIDs
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeGenerator() {
	c.Generator.BaseURL = strings.TrimRight(strings.TrimSpace(c.Generator.BaseURL), "/")
	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = defaultGeneratorBaseURL
	}
	if strings.TrimSpace(c.Generator.Author) == "" {
		c.Generator.Author = defaultGeneratorAuthor
	}
	if strings.TrimSpace(c.Generator.Initiator) == "" {
		c.Generator.Initiator = defaultGeneratorInitiator
	}
}
