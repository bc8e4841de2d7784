package lifecycle

import (
	"context"
	"time"

	"docflow/internal/document"
)

// Store is the persistence contract the transition engine relies on.
// docstore.Store and pgstore.Store both satisfy it.
type Store interface {
	GetByID(ctx context.Context, id int64) (*document.Document, error)
	ApplyTransition(ctx context.Context, write document.TransitionWrite) error
	ClaimEligible(ctx context.Context, status document.Status, limit int, lease time.Duration) ([]int64, error)
	ReleaseClaims(ctx context.Context, ids []int64) error
	CountByStatus(ctx context.Context, status document.Status) (int64, error)
}
