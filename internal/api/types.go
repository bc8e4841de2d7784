package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Document describes a document in a transport-friendly format.
type Document struct {
	ID        int64          `json:"id"`
	Number    string         `json:"documentNumber"`
	Author    string         `json:"author"`
	Title     string         `json:"title"`
	Status    string         `json:"status"`
	Version   int64          `json:"version"`
	CreatedAt string         `json:"createdAt,omitempty"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
	History   []HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry is one audit record.
type HistoryEntry struct {
	ID          int64  `json:"id"`
	DocumentID  int64  `json:"documentId"`
	PerformedBy string `json:"performedBy"`
	Action      string `json:"action"`
	Comment     string `json:"comment,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Outcome reports the result for one id.
type Outcome struct {
	ID      int64  `json:"id"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Counts aggregates outcome kinds.
type Counts struct {
	Total    int `json:"total"`
	Success  int `json:"success"`
	NotFound int `json:"notFound"`
	Conflict int `json:"conflict"`
	Errors   int `json:"errors"`
}

// BatchResponse wraps ordered per-id outcomes.
type BatchResponse struct {
	Results []Outcome `json:"results"`
	Skipped []int64   `json:"skipped,omitempty"`
	Counts  Counts    `json:"counts"`
}

// DocumentPage is one window of a listing.
type DocumentPage struct {
	Items      []Document `json:"items"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalItems int64      `json:"totalItems"`
	TotalPages int        `json:"totalPages"`
}

// StatsResponse provides document counts keyed by status.
type StatsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	Author    string `json:"author"`
	Title     string `json:"title"`
	Initiator string `json:"initiator"`
}

// BatchRequest is the body of submit and approve calls.
type BatchRequest struct {
	IDs       []int64 `json:"ids"`
	Initiator string  `json:"initiator"`
}

// RaceRequest asks for a concurrent approval run against one document.
type RaceRequest struct {
	DocumentID int64 `json:"documentId"`
	Threads    int   `json:"threads"`
	Attempts   int   `json:"attempts"`
}

// RaceResponse summarizes a concurrent approval run.
type RaceResponse struct {
	DocumentID    int64  `json:"documentId"`
	Attempts      int    `json:"attempts"`
	SuccessCount  int    `json:"successCount"`
	ConflictCount int    `json:"conflictCount"`
	ErrorCount    int    `json:"errorCount"`
	FinalStatus   string `json:"finalStatus"`
	ElapsedMillis int64  `json:"elapsedMillis"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
