package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docflow/internal/document"
)

// ApplyTransition commits one transition as a single unit: the conditional
// status/version update, the history append, and the optional registry insert.
// A stale version or wrong predecessor status yields document.ErrVersionConflict
// with nothing written. A failing registry insert yields document.ErrRegistry
// and rolls back the status change and history append.
func (s *Store) ApplyTransition(ctx context.Context, write document.TransitionWrite) error {
	if write.DocumentID <= 0 {
		return fmt.Errorf("apply transition: %w", document.ErrNotFound)
	}
	if !write.From.Precedes(write.To) {
		return fmt.Errorf("apply transition %s -> %s: %w", write.From, write.To, document.ErrInvalidTransition)
	}
	at := write.At
	if at.IsZero() {
		at = s.now()
	}
	stamp := formatTime(at)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// updated_at never moves backwards, so history stamps follow transition
		// order even when callers' clocks disagree.
		var appliedRaw string
		err := tx.QueryRowContext(ctx,
			`UPDATE documents
			 SET status = ?, version = version + 1, updated_at = MAX(?, updated_at), claim_token = NULL, claimed_until = NULL
			 WHERE id = ? AND version = ? AND status = ?
			 RETURNING updated_at`,
			string(write.To), stamp, write.DocumentID, write.ExpectedVersion, string(write.From),
		).Scan(&appliedRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return document.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("update document status: %w", err)
		}
		applied, err := parseTimeString(appliedRaw)
		if err != nil {
			return fmt.Errorf("update document status: parse updated_at: %w", err)
		}

		historyAt := latest(write.History.CreatedAt, applied)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_history (document_id, performed_by, action, comment, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			write.DocumentID, write.History.PerformedBy, string(write.History.Action),
			nullableString(write.History.Comment), formatTime(historyAt),
		); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		if write.Approval == nil {
			return nil
		}
		approvedAt := latest(write.Approval.ApprovedAt, applied)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO approval_registry (document_id, approved_by, approved_at) VALUES (?, ?, ?)`,
			write.DocumentID, write.Approval.ApprovedBy, formatTime(approvedAt),
		); err != nil {
			if isSQLiteBusy(err) {
				return err
			}
			return fmt.Errorf("%w: document %d: %w", document.ErrRegistry, write.DocumentID, err)
		}
		return nil
	})
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
