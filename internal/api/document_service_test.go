package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docflow/internal/api"
	"docflow/internal/document"
	"docflow/internal/logging"
	"docflow/internal/testsupport"
)

func newService(t *testing.T) *api.DocumentService {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := api.OpenStore(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return api.NewDocumentService(store, api.ServiceOptionsFromConfig(cfg, logging.NewNop()))
}

func TestServiceLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, "Alice", "Budget", "alice")
	require.NoError(t, err)
	require.Equal(t, document.StatusDraft, doc.Status)

	result, err := svc.SubmitBatch(ctx, []int64{doc.ID}, "alice")
	require.NoError(t, err)
	require.Equal(t, 1, result.Counts.Success)

	outcome, err := svc.ApproveSingle(ctx, doc.ID, "boss")
	require.NoError(t, err)
	require.True(t, outcome.OK())

	_, err = svc.ApproveSingle(ctx, doc.ID, "  ")
	require.ErrorIs(t, err, api.ErrValidation)

	got, history, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusApproved, got.Status)
	require.Len(t, history, 2)
	require.Equal(t, "Submitted by alice", history[0].Comment)
	require.Equal(t, "Approved by boss", history[1].Comment)

	count, err := svc.CountByStatus(ctx, document.StatusApproved)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestServiceValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, " ", "title", "x")
	require.ErrorIs(t, err, api.ErrValidation)

	_, err = svc.SubmitBatch(ctx, nil, "x")
	require.ErrorIs(t, err, api.ErrValidation)

	_, err = svc.ApproveBatch(ctx, []int64{1}, "")
	require.ErrorIs(t, err, api.ErrValidation)

	tooMany := make([]int64, 1001)
	_, err = svc.ApproveBatch(ctx, tooMany, "x")
	require.ErrorIs(t, err, api.ErrValidation)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = svc.Search(ctx, document.SearchFilter{CreatedFrom: &from, CreatedTo: &to}, document.PageRequest{})
	require.ErrorIs(t, err, api.ErrValidation)

	_, err = svc.ConcurrentApprove(ctx, 1, 51, 1)
	require.ErrorIs(t, err, api.ErrValidation)
}

func TestGetHistoryMissingDocument(t *testing.T) {
	svc := newService(t)
	_, err := svc.GetHistory(context.Background(), 123)
	require.ErrorIs(t, err, document.ErrNotFound)
}

func TestClaimThenRunBatch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := svc.Create(ctx, "gen", "doc", "generator-util")
		require.NoError(t, err)
	}

	ids, err := svc.ClaimEligible(ctx, document.StatusDraft, 10)
	require.NoError(t, err)
	require.Len(t, ids, 4)

	again, err := svc.ClaimEligible(ctx, document.StatusDraft, 10)
	require.NoError(t, err)
	require.Empty(t, again)

	result := svc.RunBatch(ctx, ids, document.Submit, "SUBMIT-worker")
	require.Equal(t, 4, result.Counts.Success)
}

func TestConcurrentApprove(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	doc, err := svc.Create(ctx, "a", "b", "c")
	require.NoError(t, err)
	_, err = svc.SubmitBatch(ctx, []int64{doc.ID}, "c")
	require.NoError(t, err)

	report, err := svc.ConcurrentApprove(ctx, doc.ID, 5, 10)
	require.NoError(t, err)
	resp := api.FromRaceReport(report)
	require.Equal(t, 1, resp.SuccessCount)
	require.Equal(t, 9, resp.ConflictCount+resp.ErrorCount)
	require.Equal(t, "APPROVED", resp.FinalStatus)
}
