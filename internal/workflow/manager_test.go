package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docflow/internal/api"
	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/logging"
	"docflow/internal/testsupport"
	"docflow/internal/workflow"
)

func newService(t *testing.T, opts ...testsupport.ConfigOption) (*api.DocumentService, *workflow.Manager) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewDocumentService(store, api.ServiceOptionsFromConfig(cfg, logging.NewNop()))
	return svc, workflow.NewManager(cfg, svc, logging.NewNop())
}

func TestRunOnceDrainsInBatches(t *testing.T) {
	svc, mgr := newService(t, testsupport.WithBatchSize(4))
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := svc.Create(ctx, "gen", "doc", "generator-util")
		require.NoError(t, err)
	}

	var sizes []int
	for {
		result, worked, err := mgr.RunOnce(ctx, workflow.LaneSubmit)
		require.NoError(t, err)
		if !worked {
			break
		}
		sizes = append(sizes, result.Counts.Success)
	}
	require.Equal(t, []int{4, 4, 2}, sizes)

	result, worked, err := mgr.RunOnce(ctx, workflow.LaneApprove)
	require.NoError(t, err)
	require.True(t, worked)
	require.Equal(t, 4, result.Counts.Success)

	status := mgr.Status(ctx)
	require.Equal(t, int64(4), status.Documents[document.StatusApproved])
	require.Equal(t, int64(6), status.Documents[document.StatusSubmitted])
	require.Len(t, status.Lanes, 2)
	require.Equal(t, int64(3), status.Lanes[0].Batches)
	require.Equal(t, "SUBMIT-worker", status.Lanes[0].Actor)
}

func TestRunOnceUnknownLane(t *testing.T) {
	_, mgr := newService(t)
	_, _, err := mgr.RunOnce(context.Background(), "archive")
	require.Error(t, err)
}

func TestManagerProcessesUntilEmpty(t *testing.T) {
	svc, mgr := newService(t, testsupport.WithBatchSize(3))
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := svc.Create(ctx, "gen", "doc", "generator-util")
		require.NoError(t, err)
	}

	require.NoError(t, mgr.Start(ctx))
	require.Error(t, mgr.Start(ctx))
	defer mgr.Stop()

	require.Eventually(t, func() bool {
		n, err := svc.CountByStatus(ctx, document.StatusApproved)
		return err == nil && n == 7
	}, 10*time.Second, 20*time.Millisecond)

	mgr.Stop()
	require.False(t, mgr.Status(ctx).Running)
}

type failingRunner struct {
	mu     sync.Mutex
	claims int
}

func (f *failingRunner) ClaimEligible(context.Context, document.Status, int) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	return nil, errors.New("database is locked")
}

func (f *failingRunner) ReleaseClaims(context.Context, []int64) error {
	return nil
}

func (f *failingRunner) CountByStatus(context.Context, document.Status) (int64, error) {
	return 0, nil
}

func (f *failingRunner) RunBatch(context.Context, []int64, document.Transition, string) lifecycle.Result {
	return lifecycle.Result{}
}

func (f *failingRunner) Stats(context.Context) (map[document.Status]int64, error) {
	return map[document.Status]int64{}, nil
}

func TestClaimFailureIsRecordedAndRetried(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &failingRunner{}
	mgr := workflow.NewManager(cfg, runner, logging.NewNop())

	ctx := context.Background()
	require.NoError(t, mgr.Start(ctx))
	require.Eventually(t, func() bool {
		return mgr.Status(ctx).LastError != ""
	}, 5*time.Second, 10*time.Millisecond)
	mgr.Stop()

	require.Contains(t, mgr.Status(ctx).LastError, "database is locked")
}

// cancelAfterClaim ends the lane context right after a successful claim, the
// way a daemon shutdown lands between claiming and processing.
type cancelAfterClaim struct {
	*api.DocumentService
	cancel context.CancelFunc
}

func (c *cancelAfterClaim) ClaimEligible(ctx context.Context, status document.Status, limit int) ([]int64, error) {
	ids, err := c.DocumentService.ClaimEligible(ctx, status, limit)
	c.cancel()
	return ids, err
}

func TestCancelledBatchReleasesClaims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewDocumentService(store, api.ServiceOptionsFromConfig(cfg, logging.NewNop()))
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), "gen", "doc", "generator-util")
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr := workflow.NewManager(cfg, &cancelAfterClaim{DocumentService: svc, cancel: cancel}, logging.NewNop())

	result, worked, err := mgr.RunOnce(ctx, workflow.LaneSubmit)
	require.NoError(t, err)
	require.True(t, worked)
	require.Empty(t, result.Outcomes)
	require.Len(t, result.Skipped, 3)
	require.Zero(t, result.Counts.Errors)

	drafts, err := svc.CountByStatus(context.Background(), document.StatusDraft)
	require.NoError(t, err)
	require.Equal(t, int64(3), drafts)

	reclaimed, err := svc.ClaimEligible(context.Background(), document.StatusDraft, 10)
	require.NoError(t, err)
	require.ElementsMatch(t, result.Skipped, reclaimed)
}
