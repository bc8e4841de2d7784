// Package document defines the records managed by docflow and the vocabulary
// used to move them through their lifecycle.
//
// A Document starts in StatusDraft and only moves forward through
// StatusSubmitted to StatusApproved. Every successful move appends exactly one
// HistoryEntry, and approval additionally creates a single ApprovalEntry. The
// Transition type names each allowed move together with the predecessor status
// it requires, and Outcome is the closed result vocabulary reported to callers
// (success, not_found, conflict, registry_error).
//
// Persistence lives in docstore and pgstore; mutation lives in lifecycle. This
// package only holds types, sentinel errors, and formatting helpers so every
// other package can share them without import cycles.
package document
