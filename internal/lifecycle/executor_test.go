package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docflow/internal/docstore"
	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/testsupport"
)

func newEngine(t *testing.T, opts ...lifecycle.OrchestratorOption) (*docstore.Store, *lifecycle.Executor, *lifecycle.Orchestrator) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	exec := lifecycle.NewExecutor(store)
	return store, exec, lifecycle.NewOrchestrator(exec, opts...)
}

func kinds(outcomes []document.Outcome) []document.OutcomeKind {
	out := make([]document.OutcomeKind, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Kind
	}
	return out
}

func TestSubmitBatchReportsOutcomesInInputOrder(t *testing.T) {
	store, _, orch := newEngine(t)
	ctx := context.Background()

	a := testsupport.NewDocument(t, store, "a", "A")
	b := testsupport.NewDocument(t, store, "b", "B")

	result := orch.SubmitBatch(ctx, []int64{a.ID, b.ID, 424242}, "alice")
	require.Equal(t, []document.OutcomeKind{
		document.OutcomeSuccess, document.OutcomeSuccess, document.OutcomeNotFound,
	}, kinds(result.Outcomes))
	require.Equal(t, int64(424242), result.Outcomes[2].ID)
	require.Equal(t, "Document not found", result.Outcomes[2].Message)
	require.Equal(t, document.Counts{Total: 3, Success: 2, NotFound: 1}, result.Counts)
}

func TestApproveBatchConflictsOnDraft(t *testing.T) {
	store, _, orch := newEngine(t)
	ctx := context.Background()

	docs := testsupport.NewDocuments(t, store, 3)
	testsupport.Advance(t, store, docs[0], "seed", document.Submit)
	testsupport.Advance(t, store, docs[1], "seed", document.Submit)

	result := orch.ApproveBatch(ctx, []int64{docs[0].ID, docs[1].ID, docs[2].ID}, "boss")
	require.Equal(t, []document.OutcomeKind{
		document.OutcomeSuccess, document.OutcomeSuccess, document.OutcomeConflict,
	}, kinds(result.Outcomes))
	require.Equal(t, "Expected SUBMITTED, got DRAFT", result.Outcomes[2].Message)

	draft, err := store.GetByID(ctx, docs[2].ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusDraft, draft.Status)
	require.Equal(t, int64(0), draft.Version)
}

func TestCancelledBatchSkipsRemainingItems(t *testing.T) {
	for _, parallelism := range []int{1, 4} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			store, _, orch := newEngine(t, lifecycle.WithParallelism(parallelism))
			docs := testsupport.NewDocuments(t, store, 3)
			ids := make([]int64, len(docs))
			for i, doc := range docs {
				testsupport.Advance(t, store, doc, "seed", document.Submit)
				ids[i] = doc.ID
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			result := orch.ApproveBatch(ctx, ids, "boss")
			require.Empty(t, result.Outcomes)
			require.Equal(t, ids, result.Skipped)
			require.Zero(t, result.Counts.Errors)
			require.Equal(t, ids, result.Unfinished())

			for _, id := range ids {
				doc, err := store.GetByID(context.Background(), id)
				require.NoError(t, err)
				require.Equal(t, document.StatusSubmitted, doc.Status)
			}
		})
	}
}

func TestDuplicateIDsAreProcessedIndependently(t *testing.T) {
	store, _, orch := newEngine(t)
	doc := testsupport.NewDocument(t, store, "a", "A")

	result := orch.SubmitBatch(context.Background(), []int64{doc.ID, doc.ID}, "alice")
	require.Equal(t, []document.OutcomeKind{document.OutcomeSuccess, document.OutcomeConflict}, kinds(result.Outcomes))
}

func TestVersionAdvancesOnlyOnSuccess(t *testing.T) {
	store, exec, _ := newEngine(t)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "a", "A")

	require.True(t, exec.Submit(ctx, doc.ID, "alice").OK())
	after, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), after.Version)

	require.Equal(t, document.OutcomeConflict, exec.Submit(ctx, doc.ID, "alice").Kind)
	again, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), again.Version)
	require.Equal(t, document.StatusSubmitted, again.Status)
}

func TestReapproveIsConflictWithoutSideEffects(t *testing.T) {
	store, exec, _ := newEngine(t)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "a", "A")

	require.True(t, exec.Submit(ctx, doc.ID, "alice").OK())
	require.True(t, exec.Approve(ctx, doc.ID, "boss").OK())

	second := exec.Approve(ctx, doc.ID, "boss")
	require.Equal(t, document.OutcomeConflict, second.Kind)
	require.Equal(t, "Expected SUBMITTED, got APPROVED", second.Message)

	approved, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusApproved, approved.Status)
	require.Equal(t, int64(2), approved.Version)

	history, err := store.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, document.ActionSubmit, history[0].Action)
	require.Equal(t, document.ActionApprove, history[1].Action)
	require.Equal(t, "Approved by boss", history[1].Comment)

	approval, err := store.Approval(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, approval)
}

func TestStatusesOnlyMoveForward(t *testing.T) {
	store, exec, _ := newEngine(t)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "a", "A")

	observed := []document.Status{doc.Status}
	attempts := []func() document.Outcome{
		func() document.Outcome { return exec.Approve(ctx, doc.ID, "x") },
		func() document.Outcome { return exec.Submit(ctx, doc.ID, "x") },
		func() document.Outcome { return exec.Submit(ctx, doc.ID, "x") },
		func() document.Outcome { return exec.Approve(ctx, doc.ID, "x") },
		func() document.Outcome { return exec.Submit(ctx, doc.ID, "x") },
	}
	for _, attempt := range attempts {
		attempt()
		current, err := store.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		if current.Status != observed[len(observed)-1] {
			observed = append(observed, current.Status)
		}
	}
	require.Equal(t, []document.Status{document.StatusDraft, document.StatusSubmitted, document.StatusApproved}, observed)
}

func TestConcurrentApprovalsHaveSingleWinner(t *testing.T) {
	store, exec, _ := newEngine(t)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "a", "A")
	testsupport.Advance(t, store, doc, "seed", document.Submit)

	const attempts = 10
	outcomes := make([]document.Outcome, attempts)
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcomes[i] = exec.Approve(ctx, doc.ID, fmt.Sprintf("approver-%d", i))
		}(i)
	}
	close(start)
	wg.Wait()

	counts := document.Tally(outcomes)
	require.Equal(t, 1, counts.Success)
	require.Equal(t, attempts-1, counts.Conflict+counts.Errors)

	final, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, document.StatusApproved, final.Status)
	require.Equal(t, int64(2), final.Version)
}

func TestParallelOrchestratorKeepsOrder(t *testing.T) {
	store, _, orch := newEngine(t, lifecycle.WithParallelism(4))
	ctx := context.Background()

	docs := testsupport.NewDocuments(t, store, 12)
	ids := make([]int64, 0, len(docs)+2)
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	ids = append(ids, 999999, docs[0].ID)

	result := orch.SubmitBatch(ctx, ids, "alice")
	require.Len(t, result.Outcomes, len(ids))
	for i, outcome := range result.Outcomes {
		require.Equal(t, ids[i], outcome.ID, "outcome %d out of order", i)
	}
	require.Equal(t, document.OutcomeNotFound, result.Outcomes[12].Kind)
	require.Equal(t, 12, result.Counts.Success)
	require.Equal(t, 1, result.Counts.NotFound)
	require.Equal(t, 1, result.Counts.Conflict)
}

type fakeStore struct {
	doc      *document.Document
	applyErr error
	panicMsg string
	getErr   error
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*document.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.doc == nil || f.doc.ID != id {
		return nil, fmt.Errorf("document %d: %w", id, document.ErrNotFound)
	}
	clone := *f.doc
	return &clone, nil
}

func (f *fakeStore) ApplyTransition(context.Context, document.TransitionWrite) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.applyErr
}

func (f *fakeStore) ClaimEligible(context.Context, document.Status, int, time.Duration) ([]int64, error) {
	return nil, nil
}

func (f *fakeStore) ReleaseClaims(context.Context, []int64) error {
	return nil
}

func (f *fakeStore) CountByStatus(context.Context, document.Status) (int64, error) {
	return 0, nil
}

func TestExecutorMapsStoreErrors(t *testing.T) {
	submitted := &document.Document{ID: 1, Status: document.StatusSubmitted, Version: 1}
	draft := &document.Document{ID: 1, Status: document.StatusDraft}
	boom := errors.New("disk I/O error")

	cases := []struct {
		name  string
		store *fakeStore
		t     document.Transition
		want  document.OutcomeKind
	}{
		{"registry failure", &fakeStore{doc: submitted, applyErr: fmt.Errorf("%w: duplicate", document.ErrRegistry)}, document.Approve, document.OutcomeRegistryError},
		{"lost race", &fakeStore{doc: submitted, applyErr: document.ErrVersionConflict}, document.Approve, document.OutcomeConflict},
		{"unexpected on approve", &fakeStore{doc: submitted, applyErr: boom}, document.Approve, document.OutcomeRegistryError},
		{"unexpected on submit", &fakeStore{doc: draft, applyErr: boom}, document.Submit, document.OutcomeConflict},
		{"load failure on submit", &fakeStore{getErr: boom}, document.Submit, document.OutcomeConflict},
		{"panic on approve", &fakeStore{doc: submitted, panicMsg: "boom"}, document.Approve, document.OutcomeRegistryError},
		{"missing", &fakeStore{}, document.Submit, document.OutcomeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := lifecycle.NewExecutor(tc.store)
			outcome := exec.Execute(context.Background(), 1, tc.t, "actor")
			require.Equal(t, tc.want, outcome.Kind)
			require.Equal(t, int64(1), outcome.ID)
		})
	}
}

func TestPanickingItemDoesNotAbortBatch(t *testing.T) {
	store := &fakeStore{doc: &document.Document{ID: 1, Status: document.StatusDraft}, panicMsg: "boom"}
	orch := lifecycle.NewOrchestrator(lifecycle.NewExecutor(store))

	result := orch.SubmitBatch(context.Background(), []int64{1, 2, 1}, "alice")
	require.Equal(t, []document.OutcomeKind{
		document.OutcomeConflict, document.OutcomeNotFound, document.OutcomeConflict,
	}, kinds(result.Outcomes))
	require.Contains(t, result.Outcomes[0].Message, "panic: boom")
}

func TestHistoryFollowsTransitionOrderAcrossSkewedClocks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC().Add(time.Hour)
	ahead := lifecycle.NewExecutor(store, lifecycle.WithExecutorClock(func() time.Time { return base }))
	behind := lifecycle.NewExecutor(store, lifecycle.WithExecutorClock(func() time.Time { return base.Add(-time.Second) }))

	doc := testsupport.NewDocument(t, store, "Skew", "Clocks")
	require.Equal(t, document.OutcomeSuccess, ahead.Submit(ctx, doc.ID, "worker-a").Kind)
	require.Equal(t, document.OutcomeSuccess, behind.Approve(ctx, doc.ID, "worker-b").Kind)

	history, err := store.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, document.ActionSubmit, history[0].Action)
	require.Equal(t, document.ActionApprove, history[1].Action)
	require.False(t, history[1].CreatedAt.Before(history[0].CreatedAt), "history timestamps moved backwards")

	approved, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.False(t, approved.UpdatedAt.Before(base), "updated_at moved backwards")
}
