package docstore

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"docflow/internal/document"
)

// timeLayout is fixed width so lexical order in TEXT columns matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const documentColumns = "id, number, author, title, status, version, created_at, updated_at"

const historyColumns = "id, document_id, performed_by, action, comment, created_at"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*document.Document, error) {
	var (
		doc        document.Document
		status     string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&doc.ID,
		&doc.Number,
		&doc.Author,
		&doc.Title,
		&status,
		&doc.Version,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	doc.Status = document.Status(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		doc.UpdatedAt = updated
	}
	return &doc, nil
}

func scanHistory(scanner interface{ Scan(dest ...any) error }) (document.HistoryEntry, error) {
	var (
		entry      document.HistoryEntry
		action     string
		comment    sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&entry.ID, &entry.DocumentID, &entry.PerformedBy, &action, &comment, &createdRaw); err != nil {
		return document.HistoryEntry{}, err
	}
	entry.Action = document.Action(action)
	entry.Comment = comment.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// foldAuthor returns the case-folded form stored for case-insensitive search.
// cases.Caser is stateful, so a new one is built per call.
func foldAuthor(author string) string {
	return cases.Fold().String(strings.TrimSpace(author))
}

// likeContains builds a LIKE pattern matching value anywhere, escaping the
// wildcard characters with a backslash.
func likeContains(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(value) + "%"
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
