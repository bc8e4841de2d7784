package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"docflow/internal/document"
)

const sequenceName = "document_number"

// Create inserts a new DRAFT document with a freshly assigned number.
func (s *Store) Create(ctx context.Context, author, title string) (*document.Document, error) {
	author = strings.TrimSpace(author)
	title = strings.TrimSpace(title)
	if author == "" || title == "" {
		return nil, errors.New("create document: author and title are required")
	}

	var external int64
	if s.seq != nil {
		n, err := s.seq.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("create document: next number: %w", err)
		}
		external = n
	}

	now := s.now()
	stamp := formatTime(now)
	doc := &document.Document{
		Author:    author,
		Title:     title,
		Status:    document.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ordinal := external
		if s.seq == nil {
			row := tx.QueryRowContext(ctx,
				`UPDATE document_sequence SET value = value + 1 WHERE name = ? RETURNING value`,
				sequenceName,
			)
			if err := row.Scan(&ordinal); err != nil {
				return fmt.Errorf("advance sequence: %w", err)
			}
		}
		doc.Number = s.format.Format(ordinal)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (number, author, author_folded, title, status, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
			doc.Number, doc.Author, foldAuthor(doc.Author), doc.Title, doc.Status, stamp, stamp,
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("document id: %w", err)
		}
		doc.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// GetByID fetches a document. Missing rows yield document.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", id, document.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByIDs returns the existing documents among ids, newest first, paged.
// Unknown ids are ignored.
func (s *Store) GetByIDs(ctx context.Context, ids []int64, page document.PageRequest) (document.Page, error) {
	page = page.Normalize()
	result := document.Page{Page: page.Page, Size: page.Size}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	where := `id IN (` + makePlaceholders(len(ids)) + `)`
	return s.pagedQuery(ctx, where, args, page)
}

// Search filters documents by status, author substring, and creation window.
func (s *Store) Search(ctx context.Context, filter document.SearchFilter, page document.PageRequest) (document.Page, error) {
	page = page.Normalize()
	clauses := []string{"1 = 1"}
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if author := foldAuthor(filter.Author); author != "" {
		clauses = append(clauses, `author_folded LIKE ? ESCAPE '\'`)
		args = append(args, likeContains(author))
	}
	if filter.CreatedFrom != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, formatTime(*filter.CreatedTo))
	}
	return s.pagedQuery(ctx, strings.Join(clauses, " AND "), args, page)
}

func (s *Store) pagedQuery(ctx context.Context, where string, args []any, page document.PageRequest) (document.Page, error) {
	result := document.Page{Page: page.Page, Size: page.Size}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE `+where, args...).Scan(&result.TotalItems); err != nil {
		return result, fmt.Errorf("count documents: %w", err)
	}
	if result.TotalItems == 0 {
		return result, nil
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return result, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return result, fmt.Errorf("scan document: %w", err)
		}
		result.Items = append(result.Items, doc)
	}
	return result, rows.Err()
}

// History returns the audit trail of a document in transition order.
func (s *Store) History(ctx context.Context, id int64) ([]document.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM document_history WHERE document_id = ? ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("document history: %w", err)
	}
	defer rows.Close()

	var entries []document.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Approval returns the registry entry for a document, or nil when none exists.
func (s *Store) Approval(ctx context.Context, id int64) (*document.ApprovalEntry, error) {
	var (
		entry       document.ApprovalEntry
		approvedRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, approved_by, approved_at FROM approval_registry WHERE document_id = ?`,
		id,
	).Scan(&entry.ID, &entry.DocumentID, &entry.ApprovedBy, &approvedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("approval registry: %w", err)
	}
	if approved, err := parseTimeString(approvedRaw); err == nil {
		entry.ApprovedAt = approved
	}
	return &entry, nil
}

// CountByStatus returns how many documents are currently in status.
func (s *Store) CountByStatus(ctx context.Context, status document.Status) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE status = ?`, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

// Stats returns a count of documents grouped by status. Every status is present.
func (s *Store) Stats(ctx context.Context) (map[document.Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[document.Status]int64, len(document.AllStatuses()))
	for _, status := range document.AllStatuses() {
		stats[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[document.Status(status)] = count
	}
	return stats, rows.Err()
}
