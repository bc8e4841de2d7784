package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"docflow/internal/config"
	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/logging"
	"docflow/internal/racecheck"
)

// ErrValidation marks requests rejected before any domain logic runs.
var ErrValidation = errors.New("validation failed")

// DocumentService exposes document operations to the daemon, CLI, and workers.
type DocumentService struct {
	store   Store
	exec    *lifecycle.Executor
	orch    *lifecycle.Orchestrator
	claimer *lifecycle.Claimer
	logger  *slog.Logger
	maxIDs  int
}

// ServiceOptions tunes a DocumentService.
type ServiceOptions struct {
	Logger      *slog.Logger
	Meter       metric.Meter
	Parallelism int
	ClaimLease  time.Duration
	MaxBatchIDs int
}

// ServiceOptionsFromConfig derives options from configuration.
func ServiceOptionsFromConfig(cfg *config.Config, logger *slog.Logger) ServiceOptions {
	opts := ServiceOptions{Logger: logger}
	if cfg != nil {
		opts.Parallelism = cfg.Worker.Parallelism
		opts.ClaimLease = cfg.ClaimLease()
		opts.MaxBatchIDs = cfg.API.MaxBatchIDs
	}
	return opts
}

// NewDocumentService wires the lifecycle engine over store.
func NewDocumentService(store Store, opts ServiceOptions) *DocumentService {
	if store == nil {
		return nil
	}
	exec := lifecycle.NewExecutor(store, lifecycle.WithExecutorLogger(opts.Logger))
	maxIDs := opts.MaxBatchIDs
	if maxIDs <= 0 {
		maxIDs = 1000
	}
	return &DocumentService{
		store: store,
		exec:  exec,
		orch: lifecycle.NewOrchestrator(exec,
			lifecycle.WithParallelism(opts.Parallelism),
			lifecycle.WithOrchestratorLogger(opts.Logger),
			lifecycle.WithMeter(opts.Meter),
		),
		claimer: lifecycle.NewClaimer(store, opts.ClaimLease, opts.Logger, opts.Meter),
		logger:  logging.NewComponentLogger(opts.Logger, "documents"),
		maxIDs:  maxIDs,
	}
}

// Create stores a new DRAFT document. actor is recorded in logs only; creation
// does not append history.
func (s *DocumentService) Create(ctx context.Context, author, title, actor string) (*document.Document, error) {
	if strings.TrimSpace(author) == "" {
		return nil, fmt.Errorf("%w: author must not be blank", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title must not be blank", ErrValidation)
	}
	doc, err := s.store.Create(ctx, author, title)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("document created",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String(logging.FieldDocumentNumber, doc.Number),
		logging.String(logging.FieldActor, actor),
	)
	return doc, nil
}

// SubmitBatch submits ids in order, one committed unit per id.
func (s *DocumentService) SubmitBatch(ctx context.Context, ids []int64, actor string) (lifecycle.Result, error) {
	if err := s.validateBatch(ids, actor); err != nil {
		return lifecycle.Result{}, err
	}
	return s.orch.SubmitBatch(ctx, ids, actor), nil
}

// ApproveBatch approves ids in order, one committed unit per id.
func (s *DocumentService) ApproveBatch(ctx context.Context, ids []int64, actor string) (lifecycle.Result, error) {
	if err := s.validateBatch(ids, actor); err != nil {
		return lifecycle.Result{}, err
	}
	return s.orch.ApproveBatch(ctx, ids, actor), nil
}

// ApproveSingle approves one document.
func (s *DocumentService) ApproveSingle(ctx context.Context, id int64, actor string) (document.Outcome, error) {
	if strings.TrimSpace(actor) == "" {
		return document.Outcome{}, fmt.Errorf("%w: initiator must not be blank", ErrValidation)
	}
	return s.exec.Approve(ctx, id, actor), nil
}

// ClaimEligible returns up to limit ids in status that no other claimer holds.
func (s *DocumentService) ClaimEligible(ctx context.Context, status document.Status, limit int) ([]int64, error) {
	return s.claimer.Claim(ctx, status, limit)
}

// ReleaseClaims drops the leases on ids.
func (s *DocumentService) ReleaseClaims(ctx context.Context, ids []int64) error {
	return s.claimer.Release(ctx, ids)
}

// RunBatch applies t to ids without request validation. Workers use it with
// ids obtained from ClaimEligible.
func (s *DocumentService) RunBatch(ctx context.Context, ids []int64, t document.Transition, actor string) lifecycle.Result {
	return s.orch.Run(ctx, ids, t, actor)
}

// GetHistory returns the audit trail of id in transition order.
func (s *DocumentService) GetHistory(ctx context.Context, id int64) ([]document.HistoryEntry, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id)
}

// CountByStatus returns how many documents are in status.
func (s *DocumentService) CountByStatus(ctx context.Context, status document.Status) (int64, error) {
	return s.store.CountByStatus(ctx, status)
}

// Get returns a document together with its history.
func (s *DocumentService) Get(ctx context.Context, id int64) (*document.Document, []document.HistoryEntry, error) {
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.store.History(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return doc, history, nil
}

// GetByIDs returns a page of the documents among ids.
func (s *DocumentService) GetByIDs(ctx context.Context, ids []int64, page document.PageRequest) (document.Page, error) {
	if len(ids) == 0 {
		return document.Page{}, fmt.Errorf("%w: ids must not be empty", ErrValidation)
	}
	return s.store.GetByIDs(ctx, ids, page)
}

// Search lists documents matching filter.
func (s *DocumentService) Search(ctx context.Context, filter document.SearchFilter, page document.PageRequest) (document.Page, error) {
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return document.Page{}, fmt.Errorf("%w: dateFrom must not be after dateTo", ErrValidation)
	}
	return s.store.Search(ctx, filter, page)
}

// Stats returns counts for every status.
func (s *DocumentService) Stats(ctx context.Context) (map[document.Status]int64, error) {
	return s.store.Stats(ctx)
}

// ConcurrentApprove runs the concurrency harness against id.
func (s *DocumentService) ConcurrentApprove(ctx context.Context, id int64, threads, attempts int) (racecheck.Report, error) {
	opts := racecheck.Options{Threads: threads, Attempts: attempts, Transition: document.Approve}
	if err := opts.Validate(); err != nil {
		return racecheck.Report{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	report, err := racecheck.Run(ctx, s.exec, s.store, id, opts)
	if err != nil {
		return report, err
	}
	s.logger.Info("concurrent approval run finished",
		logging.Int64(logging.FieldDocumentID, id),
		logging.Int("attempts", attempts),
		logging.Int("success", report.Counts.Success),
		logging.Int("conflict", report.Counts.Conflict),
		logging.Int("errors", report.Counts.Errors+report.Counts.NotFound),
		logging.String("final_status", string(report.FinalStatus)),
	)
	return report, nil
}

// MaxBatchIDs returns the largest accepted batch request.
func (s *DocumentService) MaxBatchIDs() int {
	return s.maxIDs
}

// Ping verifies store connectivity.
func (s *DocumentService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *DocumentService) validateBatch(ids []int64, actor string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids must contain at least one id", ErrValidation)
	}
	if len(ids) > s.maxIDs {
		return fmt.Errorf("%w: ids must contain at most %d ids", ErrValidation, s.maxIDs)
	}
	if strings.TrimSpace(actor) == "" {
		return fmt.Errorf("%w: initiator must not be blank", ErrValidation)
	}
	return nil
}
