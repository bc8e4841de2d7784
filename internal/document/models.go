package document

import (
	"strings"
	"time"
)

// Status represents the lifecycle position of a document.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
)

var allStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusApproved,
}

var statusRank = map[Status]int{
	StatusDraft:     0,
	StatusSubmitted: 1,
	StatusApproved:  2,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user-facing string into a Status, ignoring case.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := statusRank[candidate]; ok {
		return candidate, true
	}
	return "", false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Precedes reports whether s comes strictly before other in the lifecycle.
func (s Status) Precedes(other Status) bool {
	a, okA := statusRank[s]
	b, okB := statusRank[other]
	return okA && okB && a < b
}

func (s Status) String() string { return string(s) }

// Action tags a history entry with the transition that produced it.
type Action string

const (
	ActionSubmit  Action = "SUBMIT"
	ActionApprove Action = "APPROVE"
)

// Document is the lifecycle-managed record.
type Document struct {
	ID        int64
	Number    string
	Author    string
	Title     string
	Status    Status
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry is an append-only audit record of one executed transition.
type HistoryEntry struct {
	ID          int64
	DocumentID  int64
	PerformedBy string
	Action      Action
	Comment     string
	CreatedAt   time.Time
}

// ApprovalEntry records who approved a document and when. At most one exists
// per document.
type ApprovalEntry struct {
	ID         int64
	DocumentID int64
	ApprovedBy string
	ApprovedAt time.Time
}

// SearchFilter narrows document listings. Zero values disable a criterion.
type SearchFilter struct {
	Status      Status
	Author      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PageRequest selects a window of results ordered newest first.
type PageRequest struct {
	Page int
	Size int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the page.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return n.Page * n.Size
}

// Page is one window of documents plus the total match count.
type Page struct {
	Items      []*Document
	Page       int
	Size       int
	TotalItems int64
}

// TotalPages returns the number of pages implied by TotalItems.
func (p Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalItems + int64(p.Size) - 1) / int64(p.Size))
}
