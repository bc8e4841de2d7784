package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"docflow/internal/document"
	"docflow/internal/logging"
)

// DefaultClaimLease bounds how long a claimed id is withheld from other
// claimers when the worker holding it never transitions it.
const DefaultClaimLease = time.Minute

// Claimer selects eligible ids for background batches.
type Claimer struct {
	store   Store
	lease   time.Duration
	logger  *slog.Logger
	metrics *batchMetrics
}

// NewClaimer builds a claimer. A non-positive lease uses DefaultClaimLease.
func NewClaimer(store Store, lease time.Duration, logger *slog.Logger, meter metric.Meter) *Claimer {
	if lease <= 0 {
		lease = DefaultClaimLease
	}
	logger = logging.NewComponentLogger(logger, "claimer")
	return &Claimer{
		store:   store,
		lease:   lease,
		logger:  logger,
		metrics: newBatchMetrics(meter, logger),
	}
}

// Claim returns up to limit ids currently in status, oldest first, skipping
// ids held by concurrent claimers. An empty slice means there is nothing to do.
func (c *Claimer) Claim(ctx context.Context, status document.Status, limit int) ([]int64, error) {
	ids, err := c.store.ClaimEligible(ctx, status, limit, c.lease)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", status, err)
	}
	c.metrics.recordClaim(ctx, status, len(ids))
	if len(ids) > 0 {
		c.logger.Debug("claimed documents",
			logging.String("status", string(status)),
			logging.Int(logging.FieldBatchSize, len(ids)),
		)
	}
	return ids, nil
}

// Release drops the leases on ids so the next claim can pick them up.
func (c *Claimer) Release(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.store.ReleaseClaims(ctx, ids); err != nil {
		return fmt.Errorf("release claims: %w", err)
	}
	c.logger.Debug("released claims", logging.Int(logging.FieldBatchSize, len(ids)))
	return nil
}

// Remaining returns the number of documents still in status.
func (c *Claimer) Remaining(ctx context.Context, status document.Status) (int64, error) {
	return c.store.CountByStatus(ctx, status)
}
