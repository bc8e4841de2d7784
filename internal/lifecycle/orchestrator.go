package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"docflow/internal/document"
	"docflow/internal/logging"
)

// Result is the outcome of one batch. Outcomes holds the processed ids in
// input order. Skipped holds the ids left untouched because the context ended
// first; nothing was written for them.
type Result struct {
	Outcomes []document.Outcome
	Skipped  []int64
	Counts   document.Counts
	Elapsed  time.Duration
}

// Unfinished returns the ids that did not end in success, skipped ids included.
func (r Result) Unfinished() []int64 {
	ids := append([]int64(nil), r.Skipped...)
	for _, o := range r.Outcomes {
		if !o.OK() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Orchestrator drives an Executor over id lists.
type Orchestrator struct {
	exec        *Executor
	parallelism int
	logger      *slog.Logger
	metrics     *batchMetrics
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*orchestratorOptions)

type orchestratorOptions struct {
	parallelism int
	logger      *slog.Logger
	meter       metric.Meter
}

// WithParallelism bounds the number of items processed at once. Values below
// two process items sequentially.
func WithParallelism(n int) OrchestratorOption {
	return func(o *orchestratorOptions) { o.parallelism = n }
}

// WithOrchestratorLogger sets the orchestrator logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *orchestratorOptions) { o.logger = logger }
}

// WithMeter injects the meter used for batch metrics. The global provider is
// used otherwise.
func WithMeter(meter metric.Meter) OrchestratorOption {
	return func(o *orchestratorOptions) { o.meter = meter }
}

// NewOrchestrator builds an orchestrator over exec.
func NewOrchestrator(exec *Executor, opts ...OrchestratorOption) *Orchestrator {
	options := orchestratorOptions{parallelism: 1}
	for _, opt := range opts {
		opt(&options)
	}
	if options.parallelism < 1 {
		options.parallelism = 1
	}
	logger := logging.NewComponentLogger(options.logger, "orchestrator")
	return &Orchestrator{
		exec:        exec,
		parallelism: options.parallelism,
		logger:      logger,
		metrics:     newBatchMetrics(options.meter, logger),
	}
}

// SubmitBatch submits every id in order.
func (o *Orchestrator) SubmitBatch(ctx context.Context, ids []int64, actor string) Result {
	return o.Run(ctx, ids, document.Submit, actor)
}

// ApproveBatch approves every id in order.
func (o *Orchestrator) ApproveBatch(ctx context.Context, ids []int64, actor string) Result {
	return o.Run(ctx, ids, document.Approve, actor)
}

// Run applies t to each id as its own committed unit. Outcomes match the
// input order, duplicates included. One item's failure never affects another.
// Once ctx ends, remaining ids are reported in Result.Skipped instead of being
// attempted; an item that failed because of the cancellation is skipped too,
// since its transaction rolled back.
func (o *Orchestrator) Run(ctx context.Context, ids []int64, t document.Transition, actor string) Result {
	start := time.Now()
	outcomes := make([]document.Outcome, len(ids))
	done := make([]bool, len(ids))

	runItem := func(i int, id int64) {
		if ctx.Err() != nil {
			return
		}
		outcome := o.exec.Execute(ctx, id, t, actor)
		if !outcome.OK() && ctx.Err() != nil {
			return
		}
		outcomes[i] = outcome
		done[i] = true
	}

	if o.parallelism <= 1 || len(ids) <= 1 {
		for i, id := range ids {
			runItem(i, id)
		}
	} else {
		// Items never return an error, so the group only bounds concurrency.
		var g errgroup.Group
		g.SetLimit(o.parallelism)
		for i, id := range ids {
			g.Go(func() error {
				runItem(i, id)
				return nil
			})
		}
		_ = g.Wait()
	}

	processed := make([]document.Outcome, 0, len(ids))
	var skipped []int64
	for i, id := range ids {
		if !done[i] {
			skipped = append(skipped, id)
			continue
		}
		processed = append(processed, outcomes[i])
		o.metrics.recordOutcome(ctx, t, outcomes[i])
	}
	elapsed := time.Since(start)
	o.metrics.recordBatch(ctx, t, elapsed)

	result := Result{Outcomes: processed, Skipped: skipped, Counts: document.Tally(processed), Elapsed: elapsed}
	if len(ids) > 0 {
		logging.WithContext(ctx, o.logger).Info("batch processed",
			logging.String(logging.FieldAction, t.Name),
			logging.String(logging.FieldActor, actor),
			logging.Int(logging.FieldBatchSize, len(ids)),
			logging.Int("success", result.Counts.Success),
			logging.Int("conflict", result.Counts.Conflict),
			logging.Int("not_found", result.Counts.NotFound),
			logging.Int("errors", result.Counts.Errors),
			logging.Int("skipped", len(skipped)),
			logging.Duration("elapsed", elapsed),
		)
	}
	return result
}
