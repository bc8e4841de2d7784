package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docflow/internal/document"
	"docflow/internal/logging"
)

// Executor applies single-document transitions.
type Executor struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logging.NewComponentLogger(logger, "executor") }
}

// WithExecutorClock overrides the transition timestamp source.
func WithExecutorClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExecutor builds an executor over store.
func NewExecutor(store Store, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:  store,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit moves a DRAFT document to SUBMITTED.
func (e *Executor) Submit(ctx context.Context, id int64, actor string) document.Outcome {
	return e.Execute(ctx, id, document.Submit, actor)
}

// Approve moves a SUBMITTED document to APPROVED and registers the approval.
func (e *Executor) Approve(ctx context.Context, id int64, actor string) document.Outcome {
	return e.Execute(ctx, id, document.Approve, actor)
}

// Execute runs transition t for document id on behalf of actor. Every failure,
// including a panic in the store, is reported as an outcome.
func (e *Executor) Execute(ctx context.Context, id int64, t document.Transition, actor string) (outcome document.Outcome) {
	logger := logging.WithContext(ctx, e.logger).With(
		logging.Int64(logging.FieldDocumentID, id),
		logging.String(logging.FieldAction, t.Name),
	)
	defer func() {
		if r := recover(); r != nil {
			outcome = unexpected(id, t, fmt.Errorf("panic: %v", r))
			logging.ErrorWithContext(logger, "transition panicked", "transition_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "inspect the store implementation for the failing call"),
			)
		}
	}()

	doc, err := e.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return document.NotFound(id)
		}
		logging.WarnWithContext(logger, "load document failed", "transition_load_failed", logging.Error(err))
		return unexpected(id, t, err)
	}
	if doc.Status != t.From {
		return document.Conflict(id, "Expected %s, got %s", t.From, doc.Status)
	}

	write := document.NewTransitionWrite(doc, t, actor, e.now())
	err = e.store.ApplyTransition(ctx, write)
	switch {
	case err == nil:
		logger.Debug("transition applied",
			logging.String(logging.FieldDocumentNumber, doc.Number),
			logging.String(logging.FieldActor, actor),
			logging.Int64("version", doc.Version+1),
		)
		return document.Success(id)
	case errors.Is(err, document.ErrVersionConflict):
		return document.Conflict(id, "Concurrent modification detected")
	case errors.Is(err, document.ErrRegistry):
		logging.WarnWithContext(logger, "approval registry write failed; transition rolled back", "registry_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check approval_registry for an existing entry"),
		)
		return document.RegistryError(id, err.Error())
	case errors.Is(err, document.ErrNotFound):
		return document.NotFound(id)
	default:
		logging.WarnWithContext(logger, "transition failed", "transition_failed", logging.Error(err))
		return unexpected(id, t, err)
	}
}

// unexpected maps failures outside the domain taxonomy. Approval failures past
// the precondition check are side-effect failures; submit failures surface as
// conflicts so callers re-read and retry.
func unexpected(id int64, t document.Transition, err error) document.Outcome {
	if t.Registry {
		return document.RegistryError(id, err.Error())
	}
	return document.Conflict(id, "%s", err.Error())
}
