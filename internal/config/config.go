package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Store selects and configures the persistence backend.
type Store struct {
	Driver        string `toml:"driver"`
	PostgresDSN   string `toml:"postgres_dsn"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// Numbering controls document number assignment.
type Numbering struct {
	Prefix    string `toml:"prefix"`
	Width     int    `toml:"width"`
	Backend   string `toml:"backend"`
	RedisAddr string `toml:"redis_addr"`
	RedisKey  string `toml:"redis_key"`
}

// Worker contains configuration for the background submit/approve triggers.
type Worker struct {
	Enabled                bool   `toml:"enabled"`
	BatchSize              int    `toml:"batch_size"`
	SubmitIntervalSeconds  int    `toml:"submit_interval_seconds"`
	ApproveIntervalSeconds int    `toml:"approve_interval_seconds"`
	ErrorRetrySeconds      int    `toml:"error_retry_seconds"`
	ClaimLeaseSeconds      int    `toml:"claim_lease_seconds"`
	Parallelism            int    `toml:"parallelism"`
	SubmitActor            string `toml:"actor_submit"`
	ApproveActor           string `toml:"actor_approve"`
}

// API contains HTTP listener configuration.
type API struct {
	Bind        string `toml:"bind"`
	MaxBatchIDs int    `toml:"max_batch_ids"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Generator configures the bulk document generator.
type Generator struct {
	Count         int     `toml:"count"`
	BaseURL       string  `toml:"base_url"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Author        string  `toml:"author"`
	Initiator     string  `toml:"initiator"`
}

// Config encapsulates all configuration values for docflow.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Store: sqlite or postgres backend
//   - Numbering: document number prefix/width and sequence backend
//   - Worker: background claim + batch cadence
//   - API: HTTP bind address and request limits
//   - Logging: log format and level
//   - Generator: bulk document generation defaults
type Config struct {
	Paths     Paths     `toml:"paths"`
	Store     Store     `toml:"store"`
	Numbering Numbering `toml:"numbering"`
	Worker    Worker    `toml:"worker"`
	API       API       `toml:"api"`
	Logging   Logging   `toml:"logging"`
	Generator Generator `toml:"generator"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("docflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "docflow.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "docflowd.lock")
}

// LogFilePath returns the daemon log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "docflow.log")
}

// ClaimLease returns the claim mark lifetime.
func (c *Config) ClaimLease() time.Duration {
	return time.Duration(c.Worker.ClaimLeaseSeconds) * time.Second
}

// BusyTimeout returns the SQLite busy timeout.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
