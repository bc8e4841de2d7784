package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"docflow/internal/config"
	"docflow/internal/document"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRegistryFailureRollsBackWholeUnit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	doc, err := store.Create(ctx, "Gina", "Contract")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.ApplyTransition(ctx, document.NewTransitionWrite(doc, document.Submit, "gina", time.Now())); err != nil {
		t.Fatalf("submit: %v", err)
	}
	submitted, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if _, err := store.db.ExecContext(ctx, `CREATE TRIGGER fail_registry BEFORE INSERT ON approval_registry
		BEGIN SELECT RAISE(ABORT, 'registry unavailable'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err = store.ApplyTransition(ctx, document.NewTransitionWrite(submitted, document.Approve, "boss", time.Now()))
	if !errors.Is(err, document.ErrRegistry) {
		t.Fatalf("expected ErrRegistry, got %v", err)
	}

	after, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.Status != document.StatusSubmitted || after.Version != submitted.Version {
		t.Fatalf("expected unchanged SUBMITTED v%d, got %s v%d", submitted.Version, after.Status, after.Version)
	}
	history, err := store.History(ctx, doc.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected only the SUBMIT entry, got %d", len(history))
	}
	approval, err := store.Approval(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Approval: %v", err)
	}
	if approval != nil {
		t.Fatalf("expected no registry entry, got %+v", approval)
	}
}

func TestApplyTransitionRollsBackOnRegistryInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := New(db)
	doc := &document.Document{ID: 7, Status: document.StatusSubmitted, Version: 1}
	write := document.NewTransitionWrite(doc, document.Approve, "boss", time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents").
		WithArgs("APPROVED", sqlmock.AnyArg(), int64(7), int64(1), "SUBMITTED").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(formatTime(time.Now())))
	mock.ExpectExec("INSERT INTO document_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO approval_registry").
		WithArgs(int64(7), "boss", sqlmock.AnyArg()).
		WillReturnError(errors.New("UNIQUE constraint failed: approval_registry.document_id"))
	mock.ExpectRollback()

	err = store.ApplyTransition(context.Background(), write)
	if !errors.Is(err, document.ErrRegistry) {
		t.Fatalf("expected ErrRegistry, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyTransitionZeroRowsIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := New(db)
	doc := &document.Document{ID: 3, Status: document.StatusDraft, Version: 4}
	write := document.NewTransitionWrite(doc, document.Submit, "alice", time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE documents").
		WithArgs("SUBMITTED", sqlmock.AnyArg(), int64(3), int64(4), "DRAFT").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	err = store.ApplyTransition(context.Background(), write)
	if !errors.Is(err, document.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplyTransitionRejectsBackwardMove(t *testing.T) {
	store := New(nil)
	write := document.TransitionWrite{DocumentID: 1, From: document.StatusApproved, To: document.StatusDraft}
	if err := store.ApplyTransition(context.Background(), write); !errors.Is(err, document.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestLikeContainsEscapesWildcards(t *testing.T) {
	if got := likeContains(`50%_off\`); got != `%50\%\_off\\%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 100_000_000, time.UTC)
	earlier := formatTime(base)
	later := formatTime(base.Add(20 * time.Millisecond))
	if !(earlier < later) {
		t.Fatalf("expected %q < %q", earlier, later)
	}
	parsed, err := parseTimeString(earlier)
	if err != nil || !parsed.Equal(base) {
		t.Fatalf("round trip failed: %v %v", parsed, err)
	}
}
