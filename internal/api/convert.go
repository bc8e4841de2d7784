package api

import (
	"sort"

	"docflow/internal/document"
	"docflow/internal/lifecycle"
	"docflow/internal/racecheck"
)

// FromDocument converts a stored document to its API representation.
func FromDocument(doc *document.Document) Document {
	if doc == nil {
		return Document{}
	}
	dto := Document{
		ID:      doc.ID,
		Number:  doc.Number,
		Author:  doc.Author,
		Title:   doc.Title,
		Status:  string(doc.Status),
		Version: doc.Version,
	}
	if !doc.CreatedAt.IsZero() {
		dto.CreatedAt = doc.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !doc.UpdatedAt.IsZero() {
		dto.UpdatedAt = doc.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromDocumentWithHistory converts a document and attaches its audit trail.
func FromDocumentWithHistory(doc *document.Document, history []document.HistoryEntry) Document {
	dto := FromDocument(doc)
	dto.History = FromHistory(history)
	return dto
}

// FromHistory converts history entries, preserving order.
func FromHistory(entries []document.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		dto := HistoryEntry{
			ID:          e.ID,
			DocumentID:  e.DocumentID,
			PerformedBy: e.PerformedBy,
			Action:      string(e.Action),
			Comment:     e.Comment,
		}
		if !e.CreatedAt.IsZero() {
			dto.CreatedAt = e.CreatedAt.UTC().Format(dateTimeFormat)
		}
		out = append(out, dto)
	}
	return out
}

// FromOutcome converts one transition outcome.
func FromOutcome(o document.Outcome) Outcome {
	return Outcome{ID: o.ID, Result: string(o.Kind), Message: o.Message}
}

// FromResult converts a batch result.
func FromResult(result lifecycle.Result) BatchResponse {
	resp := BatchResponse{
		Results: make([]Outcome, 0, len(result.Outcomes)),
		Skipped: result.Skipped,
		Counts:  FromCounts(result.Counts),
	}
	for _, o := range result.Outcomes {
		resp.Results = append(resp.Results, FromOutcome(o))
	}
	return resp
}

// FromCounts converts aggregate counts.
func FromCounts(c document.Counts) Counts {
	return Counts{Total: c.Total, Success: c.Success, NotFound: c.NotFound, Conflict: c.Conflict, Errors: c.Errors}
}

// FromPage converts a listing window.
func FromPage(page document.Page) DocumentPage {
	dto := DocumentPage{
		Items:      make([]Document, 0, len(page.Items)),
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages(),
	}
	for _, doc := range page.Items {
		dto.Items = append(dto.Items, FromDocument(doc))
	}
	return dto
}

// FromStats converts per-status counts.
func FromStats(stats map[document.Status]int64) StatsResponse {
	resp := StatsResponse{Counts: make(map[string]int64, len(stats))}
	for status, count := range stats {
		resp.Counts[string(status)] = count
		resp.Total += count
	}
	return resp
}

// FromRaceReport converts a harness report.
func FromRaceReport(report racecheck.Report) RaceResponse {
	return RaceResponse{
		DocumentID:    report.DocumentID,
		Attempts:      report.Counts.Total,
		SuccessCount:  report.Counts.Success,
		ConflictCount: report.Counts.Conflict,
		ErrorCount:    report.Counts.Errors + report.Counts.NotFound,
		FinalStatus:   string(report.FinalStatus),
		ElapsedMillis: report.Elapsed.Milliseconds(),
	}
}

// SortedStatuses returns stats keys in lifecycle order, unknown statuses last.
func SortedStatuses(counts map[string]int64) []string {
	rank := map[string]int{}
	for i, s := range document.AllStatuses() {
		rank[string(s)] = i
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, okI := rank[keys[i]]
		rj, okJ := rank[keys[j]]
		switch {
		case okI && okJ:
			return ri < rj
		case okI != okJ:
			return okI
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
