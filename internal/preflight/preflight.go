package preflight

import (
	"context"
	"log/slog"

	"docflow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. store
// may be nil when the caller could not open it; the store check then fails.
func RunAll(ctx context.Context, cfg *config.Config, store Pinger, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory (always checked)
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckFreeSpace("State disk space", cfg.Paths.StateDir, MinFreeBytes))

	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.StateDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckStore(ctx, "Store ("+cfg.Store.Driver+")", store))

	if cfg.Numbering.Backend == config.NumberingRedis {
		results = append(results, CheckRedisSequence(ctx, cfg, logger))
	}

	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
