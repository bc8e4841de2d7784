package workflow

import (
	"context"
	"time"

	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/logging"
)

// LaneSummary reports cumulative lane activity.
type LaneSummary struct {
	Name      string
	Actor     string
	Batches   int64
	Processed int64
	Counts    document.Counts
	LastRun   time.Time
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	LastError string
	Lanes     []LaneSummary
	Documents map[document.Status]int64
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	for _, name := range m.laneOrder {
		lane := m.lanes[name]
		summary.Lanes = append(summary.Lanes, LaneSummary{
			Name:      lane.name,
			Actor:     lane.actor,
			Batches:   lane.batches,
			Processed: lane.processed,
			Counts:    lane.counts,
			LastRun:   lane.lastRun,
		})
	}
	m.mu.RUnlock()

	stats, err := m.runner.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read document stats", logging.Error(err))
	}
	summary.Documents = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) recordBatch(lane *laneState, result lifecycle.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lane.batches++
	lane.processed += int64(result.Counts.Total)
	lane.counts.Total += result.Counts.Total
	lane.counts.Success += result.Counts.Success
	lane.counts.NotFound += result.Counts.NotFound
	lane.counts.Conflict += result.Counts.Conflict
	lane.counts.Errors += result.Counts.Errors
	lane.lastRun = time.Now()
	m.lastErr = nil
}
