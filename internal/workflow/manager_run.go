package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docflow/internal/lifecycle"
	"docflow/internal/logging"
)

const releaseTimeout = 5 * time.Second

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.laneOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow lanes not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, name := range m.laneOrder {
		lanes = append(lanes, m.lanes[name])
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}
	m.logger.Info("background workers started",
		logging.Int(logging.FieldBatchSize, m.batchSize),
		logging.Int("lanes", len(lanes)),
	)
	return nil
}

// Stop terminates background processing and waits for in-flight batches.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, worked, err := m.tick(ctx, lane)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, lane, err)
			continue
		}
		if !worked {
			m.waitOrShutdown(ctx, lane.interval)
		}
	}
}

// RunOnce runs a single claim-and-batch cycle for the named lane. worked is
// false when the claim came back empty.
func (m *Manager) RunOnce(ctx context.Context, laneName string) (lifecycle.Result, bool, error) {
	lane, ok := m.lanes[laneName]
	if !ok {
		return lifecycle.Result{}, false, fmt.Errorf("unknown lane %q", laneName)
	}
	return m.tick(ctx, lane)
}

func (m *Manager) tick(ctx context.Context, lane *laneState) (lifecycle.Result, bool, error) {
	status := lane.transition.From
	ids, err := m.runner.ClaimEligible(ctx, status, m.batchSize)
	if err != nil {
		return lifecycle.Result{}, false, err
	}
	if len(ids) == 0 {
		return lifecycle.Result{}, false, nil
	}

	remaining := int64(-1)
	if total, err := m.runner.CountByStatus(ctx, status); err == nil {
		remaining = max(total-int64(len(ids)), 0)
	}
	lane.logger.Info("processing batch",
		logging.Int(logging.FieldBatchSize, len(ids)),
		logging.Int64("remaining", remaining),
	)

	result := m.runner.RunBatch(ctx, ids, lane.transition, lane.actor)

	lane.logger.Info("batch complete",
		logging.Int("processed", result.Counts.Total),
		logging.Int("success", result.Counts.Success),
		logging.Int("conflict", result.Counts.Conflict),
		logging.Int("errors", result.Counts.Errors+result.Counts.NotFound),
		logging.Int64("remaining", remaining),
		logging.Duration("elapsed", result.Elapsed),
	)
	if result.Counts.Errors > 0 {
		logging.WarnWithContext(lane.logger, "batch had registry failures", "batch_registry_errors",
			logging.Int("errors", result.Counts.Errors),
			logging.String(logging.FieldErrorHint, "inspect approval_registry and store logs"),
		)
	}
	m.releaseUnfinished(ctx, lane, result)
	m.recordBatch(lane, result)
	return result, true, nil
}

// releaseUnfinished hands back the leases of ids the batch did not move so a
// later claim can retry them without waiting out the lease. It runs on a
// detached context because shutdown is the common reason for leftovers.
func (m *Manager) releaseUnfinished(ctx context.Context, lane *laneState, result lifecycle.Result) {
	ids := result.Unfinished()
	if len(ids) == 0 {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := m.runner.ReleaseClaims(releaseCtx, ids); err != nil {
		logging.WarnWithContext(lane.logger, "failed to release claims", "claim_release_failed",
			logging.Int(logging.FieldBatchSize, len(ids)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "leases expire after worker.claim_lease_seconds"),
		)
		return
	}
	if len(result.Skipped) > 0 {
		lane.logger.Info("batch interrupted; claims released",
			logging.Int("skipped", len(result.Skipped)),
		)
	}
}

func (m *Manager) handleClaimError(ctx context.Context, lane *laneState, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(lane.logger, "failed to claim documents", "claim_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check document database access"),
	)
	m.waitOrShutdown(ctx, m.retryDelay)
}

func (m *Manager) waitOrShutdown(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
