package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"docflow/internal/document"
	"docflow/internal/logging"
)

const meterName = "docflow/internal/lifecycle"

// batchMetrics records per-item outcomes and per-batch durations.
//
// Instruments:
//   - docflow.transition.outcomes (Int64Counter) with attributes action, outcome
//   - docflow.batch.duration (Float64Histogram, seconds) with attribute action
//   - docflow.claim.size (Int64Histogram) with attribute status
type batchMetrics struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
	claims   metric.Int64Histogram
}

// newBatchMetrics creates the instruments on meter. A failed instrument is
// logged and replaced by the noop instrument the API returns alongside the error.
func newBatchMetrics(meter metric.Meter, logger *slog.Logger) *batchMetrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logging.WarnWithContext(logger, "metric instrument unavailable", "metric_instrument_failed",
				logging.String("instrument", name),
				logging.Error(err),
			)
		}
	}

	outcomes, err := meter.Int64Counter(
		"docflow.transition.outcomes",
		metric.WithDescription("Transition outcomes by action and kind"),
		metric.WithUnit("{outcome}"),
	)
	warn("docflow.transition.outcomes", err)

	duration, err := meter.Float64Histogram(
		"docflow.batch.duration",
		metric.WithDescription("Duration of transition batches in seconds"),
		metric.WithUnit("s"),
	)
	warn("docflow.batch.duration", err)

	claims, err := meter.Int64Histogram(
		"docflow.claim.size",
		metric.WithDescription("Number of ids returned by a claim"),
		metric.WithUnit("{document}"),
	)
	warn("docflow.claim.size", err)

	return &batchMetrics{outcomes: outcomes, duration: duration, claims: claims}
}

func (m *batchMetrics) recordOutcome(ctx context.Context, t document.Transition, o document.Outcome) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", t.Name),
		attribute.String("outcome", string(o.Kind)),
	))
}

func (m *batchMetrics) recordBatch(ctx context.Context, t document.Transition, elapsed time.Duration) {
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("action", t.Name)))
}

func (m *batchMetrics) recordClaim(ctx context.Context, status document.Status, size int) {
	m.claims.Record(ctx, int64(size), metric.WithAttributes(attribute.String("status", string(status))))
}
