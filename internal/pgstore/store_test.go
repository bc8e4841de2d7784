package pgstore_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"docflow/internal/document"
	"docflow/internal/logging"
	"docflow/internal/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("DOCFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCFLOW_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	prefix := "T" + uuid.NewString()[:8] + "-"
	store, err := pgstore.New(ctx, dsn,
		pgstore.WithLogger(logging.NewNop()),
		pgstore.WithNumberFormat(document.NumberFormat{Prefix: prefix, Width: 7}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestTransitionLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	doc, err := store.Create(ctx, "Alice", "Postgres doc")
	require.NoError(t, err)
	require.Equal(t, document.StatusDraft, doc.Status)

	submit := document.NewTransitionWrite(doc, document.Submit, "alice", time.Now())
	require.NoError(t, store.ApplyTransition(ctx, submit))
	require.ErrorIs(t, store.ApplyTransition(ctx, submit), document.ErrVersionConflict)

	submitted, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), submitted.Version)

	require.NoError(t, store.ApplyTransition(ctx, document.NewTransitionWrite(submitted, document.Approve, "boss", time.Now())))

	history, err := store.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, document.ActionSubmit, history[0].Action)
	require.Equal(t, document.ActionApprove, history[1].Action)

	approval, err := store.Approval(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, approval)
	require.Equal(t, "boss", approval.ApprovedBy)

	_, err = store.GetByID(ctx, -1)
	require.True(t, errors.Is(err, document.ErrNotFound))
}

func TestConcurrentClaimsSkipLockedRows(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	author := "claim-" + uuid.NewString()
	for i := 0; i < 20; i++ {
		_, err := store.Create(ctx, author, fmt.Sprintf("Document #%d", i))
		require.NoError(t, err)
	}

	var (
		wg      sync.WaitGroup
		results [2][]int64
		errs    [2]error
	)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.ClaimEligible(ctx, document.StatusDraft, 50, time.Minute)
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]struct{})
	var all []int64
	for i := range results {
		require.NoError(t, errs[i])
		for _, id := range results[i] {
			_, dup := seen[id]
			require.False(t, dup, "id %d claimed twice", id)
			seen[id] = struct{}{}
			all = append(all, id)
		}
	}
	require.GreaterOrEqual(t, len(all), 20)
	require.NoError(t, store.ReleaseClaims(ctx, all))
}

func TestHistoryOrderSurvivesClockSkew(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	doc, err := store.Create(ctx, "Skew", "Postgres clocks")
	require.NoError(t, err)

	ahead := time.Now().Add(time.Hour)
	require.NoError(t, store.ApplyTransition(ctx, document.NewTransitionWrite(doc, document.Submit, "worker-a", ahead)))
	submitted, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, store.ApplyTransition(ctx, document.NewTransitionWrite(submitted, document.Approve, "worker-b", ahead.Add(-time.Second))))

	history, err := store.History(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, document.ActionSubmit, history[0].Action)
	require.Equal(t, document.ActionApprove, history[1].Action)
	require.False(t, history[1].CreatedAt.Before(history[0].CreatedAt))
}
