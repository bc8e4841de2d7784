package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docflow/internal/document"
)

// ClaimEligible leases up to limit documents in status, oldest first. Rows
// holding an unexpired lease from another claimer are skipped. The returned
// ids are ordered by creation time. An empty pool returns an empty slice.
func (s *Store) ClaimEligible(ctx context.Context, status document.Status, limit int, lease time.Duration) ([]int64, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("claim eligible: unknown status %q", status)
	}
	if limit <= 0 {
		return nil, errors.New("claim eligible: limit must be positive")
	}
	if lease <= 0 {
		return nil, errors.New("claim eligible: lease must be positive")
	}

	token := uuid.NewString()
	now := s.now()
	var ids []int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ids = ids[:0]
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET claim_token = ?, claimed_until = ?
			 WHERE id IN (
			     SELECT id FROM documents
			     WHERE status = ? AND (claimed_until IS NULL OR claimed_until <= ?)
			     ORDER BY created_at ASC, id ASC
			     LIMIT ?
			 )`,
			token, formatTime(now.Add(lease)), string(status), formatTime(now), limit,
		); err != nil {
			return fmt.Errorf("lease documents: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM documents WHERE claim_token = ? ORDER BY created_at ASC, id ASC`,
			token,
		)
		if err != nil {
			return fmt.Errorf("read leased documents: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("claim eligible: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

// ReleaseClaims drops unexpired leases on ids so other claimers can pick them
// up before the lease ends. Documents already transitioned carry no lease.
func (s *Store) ReleaseClaims(ctx context.Context, ids []int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET claim_token = NULL, claimed_until = NULL WHERE id IN (`+makePlaceholders(len(ids))+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("release claims: %w", err)
		}
		return nil
	})
}
