package testsupport

import (
	"path/filepath"
	"testing"

	"docflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Worker.SubmitIntervalSeconds = 1
	cfgVal.Worker.ApproveIntervalSeconds = 1
	cfgVal.Worker.ErrorRetrySeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBatchSize overrides the worker batch size.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.BatchSize = size
	}
}

// WithParallelism overrides the orchestrator parallelism.
func WithParallelism(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Parallelism = n
	}
}

// WithNumbering overrides the document number prefix and width.
func WithNumbering(prefix string, width int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Numbering.Prefix = prefix
		b.cfg.Numbering.Width = width
	}
}

// WithWorkersDisabled turns off the background workers.
func WithWorkersDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Enabled = false
	}
}
