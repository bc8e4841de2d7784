package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"docflow/internal/document"
)

const documentColumns = "id, number, author, title, status, version, created_at, updated_at"

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		doc    document.Document
		status string
	)
	if err := row.Scan(&doc.ID, &doc.Number, &doc.Author, &doc.Title, &status, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Status = document.Status(status)
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

// Create inserts a new DRAFT document with a freshly assigned number.
func (s *Store) Create(ctx context.Context, author, title string) (*document.Document, error) {
	author = strings.TrimSpace(author)
	title = strings.TrimSpace(title)
	if author == "" || title == "" {
		return nil, errors.New("pgstore: create document: author and title are required")
	}

	var ordinal int64
	if s.seq != nil {
		n, err := s.seq.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("pgstore: next number: %w", err)
		}
		ordinal = n
	} else if err := s.pool.QueryRow(ctx, `SELECT nextval('document_number_seq')`).Scan(&ordinal); err != nil {
		return nil, fmt.Errorf("pgstore: next number: %w", err)
	}

	now := utcNow()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (number, author, author_folded, title, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
		RETURNING `+documentColumns,
		s.format.Format(ordinal), author, foldAuthor(author), title, string(document.StatusDraft), now,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("pgstore: document number %s already used: %w", s.format.Format(ordinal), err)
		}
		return nil, fmt.Errorf("pgstore: insert document: %w", err)
	}
	return doc, nil
}

// GetByID fetches a document. Missing rows yield document.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	doc, err := scanDocument(s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", id, document.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get document: %w", err)
	}
	return doc, nil
}

// GetByIDs returns the existing documents among ids, newest first, paged.
func (s *Store) GetByIDs(ctx context.Context, ids []int64, page document.PageRequest) (document.Page, error) {
	page = page.Normalize()
	if len(ids) == 0 {
		return document.Page{Page: page.Page, Size: page.Size}, nil
	}
	return s.pagedQuery(ctx, "id = ANY($1)", []any{ids}, page)
}

// Search filters documents by status, author substring, and creation window.
func (s *Store) Search(ctx context.Context, filter document.SearchFilter, page document.PageRequest) (document.Page, error) {
	page = page.Normalize()
	clauses := []string{"TRUE"}
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if author := foldAuthor(filter.Author); author != "" {
		add(`author_folded LIKE $%d ESCAPE '\'`, likeContains(author))
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", filter.CreatedTo.UTC())
	}
	return s.pagedQuery(ctx, strings.Join(clauses, " AND "), args, page)
}

func (s *Store) pagedQuery(ctx context.Context, where string, args []any, page document.PageRequest) (document.Page, error) {
	result := document.Page{Page: page.Page, Size: page.Size}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM documents WHERE `+where, args...).Scan(&result.TotalItems); err != nil {
		return result, fmt.Errorf("pgstore: count documents: %w", err)
	}
	if result.TotalItems == 0 {
		return result, nil
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+documentColumns+` FROM documents WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		where, n+1, n+2)
	rows, err := s.pool.Query(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return result, fmt.Errorf("pgstore: list documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return result, fmt.Errorf("pgstore: scan document: %w", err)
		}
		result.Items = append(result.Items, doc)
	}
	return result, rows.Err()
}

// History returns the audit trail of a document in transition order.
func (s *Store) History(ctx context.Context, id int64) ([]document.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, performed_by, action, COALESCE(comment, ''), created_at
		FROM document_history WHERE document_id = $1
		ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("pgstore: document history: %w", err)
	}
	defer rows.Close()

	var entries []document.HistoryEntry
	for rows.Next() {
		var (
			entry  document.HistoryEntry
			action string
		)
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &entry.PerformedBy, &action, &entry.Comment, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan history: %w", err)
		}
		entry.Action = document.Action(action)
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Approval returns the registry entry for a document, or nil when none exists.
func (s *Store) Approval(ctx context.Context, id int64) (*document.ApprovalEntry, error) {
	var entry document.ApprovalEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, approved_by, approved_at FROM approval_registry WHERE document_id = $1`, id,
	).Scan(&entry.ID, &entry.DocumentID, &entry.ApprovedBy, &entry.ApprovedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: approval registry: %w", err)
	}
	entry.ApprovedAt = entry.ApprovedAt.UTC()
	return &entry, nil
}

// CountByStatus returns how many documents are currently in status.
func (s *Store) CountByStatus(ctx context.Context, status document.Status) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(1) FROM documents WHERE status = $1`, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgstore: count by status: %w", err)
	}
	return count, nil
}

// Stats returns a count of documents grouped by status. Every status is present.
func (s *Store) Stats(ctx context.Context) (map[document.Status]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(1) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: document stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[document.Status]int64)
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
