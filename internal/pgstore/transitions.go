package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"docflow/internal/document"
)

// ApplyTransition commits one transition as a single unit. See docstore for
// the contract; the behaviour is identical.
func (s *Store) ApplyTransition(ctx context.Context, write document.TransitionWrite) error {
	if write.DocumentID <= 0 {
		return fmt.Errorf("apply transition: %w", document.ErrNotFound)
	}
	if !write.From.Precedes(write.To) {
		return fmt.Errorf("apply transition %s -> %s: %w", write.From, write.To, document.ErrInvalidTransition)
	}
	at := write.At
	if at.IsZero() {
		at = utcNow()
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var applied time.Time
		err := tx.QueryRow(ctx, `
			UPDATE documents
			SET status = $1, version = version + 1, updated_at = GREATEST($2, updated_at), claim_token = NULL, claimed_until = NULL
			WHERE id = $3 AND version = $4 AND status = $5
			RETURNING updated_at`,
			string(write.To), at, write.DocumentID, write.ExpectedVersion, string(write.From),
		).Scan(&applied)
		if errors.Is(err, pgx.ErrNoRows) {
			return document.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("pgstore: update document status: %w", err)
		}

		historyAt := latest(write.History.CreatedAt, applied)
		if _, err := tx.Exec(ctx, `
			INSERT INTO document_history (document_id, performed_by, action, comment, created_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
			write.DocumentID, write.History.PerformedBy, string(write.History.Action), write.History.Comment, historyAt,
		); err != nil {
			return fmt.Errorf("pgstore: append history: %w", err)
		}

		if write.Approval == nil {
			return nil
		}
		approvedAt := latest(write.Approval.ApprovedAt, applied)
		if _, err := tx.Exec(ctx,
			`INSERT INTO approval_registry (document_id, approved_by, approved_at) VALUES ($1, $2, $3)`,
			write.DocumentID, write.Approval.ApprovedBy, approvedAt,
		); err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: document %d already registered: %w", document.ErrRegistry, write.DocumentID, err)
			}
			return fmt.Errorf("%w: document %d: %w", document.ErrRegistry, write.DocumentID, err)
		}
		return nil
	})
}

// ClaimEligible leases up to limit documents in status, oldest first, skipping
// rows locked or leased by concurrent claimers.
func (s *Store) ClaimEligible(ctx context.Context, status document.Status, limit int, lease time.Duration) ([]int64, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("pgstore: claim eligible: unknown status %q", status)
	}
	if limit <= 0 || lease <= 0 {
		return nil, fmt.Errorf("pgstore: claim eligible: limit and lease must be positive")
	}
	now := utcNow()

	rows, err := s.pool.Query(ctx, `
		UPDATE documents
		SET claim_token = $1, claimed_until = $2
		WHERE id IN (
			SELECT id FROM documents
			WHERE status = $3 AND (claimed_until IS NULL OR claimed_until <= $4)
			ORDER BY created_at ASC, id ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, created_at`,
		uuid.NewString(), now.Add(lease), string(status), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: claim eligible: %w", err)
	}
	defer rows.Close()

	type claimed struct {
		id      int64
		created time.Time
	}
	var found []claimed
	for rows.Next() {
		var c claimed
		if err := rows.Scan(&c.id, &c.created); err != nil {
			return nil, fmt.Errorf("pgstore: scan claim: %w", err)
		}
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: claim eligible: %w", err)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].created.Equal(found[j].created) {
			return found[i].id < found[j].id
		}
		return found[i].created.Before(found[j].created)
	})
	ids := make([]int64, 0, len(found))
	for _, c := range found {
		ids = append(ids, c.id)
	}
	return ids, nil
}

// ReleaseClaims drops leases on ids.
func (s *Store) ReleaseClaims(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE documents SET claim_token = NULL, claimed_until = NULL WHERE id = ANY($1)`, ids,
	); err != nil {
		return fmt.Errorf("pgstore: release claims: %w", err)
	}
	return nil
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
