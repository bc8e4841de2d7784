// Package docstore persists documents, their audit history, and the approval
// registry in SQLite.
//
// Every mutation of a document goes through ApplyTransition, which performs a
// single conditional UPDATE keyed on the expected version and predecessor
// status, appends the history entry, and (for approvals) inserts the registry
// row inside one transaction. A zero-row update is reported as
// document.ErrVersionConflict; a failing registry insert rolls the whole unit
// back and is reported as document.ErrRegistry.
//
// ClaimEligible implements claim-with-skip on top of SQLite, which has no
// SELECT ... FOR UPDATE SKIP LOCKED. Candidate rows receive a short lease
// (claim_token + claimed_until) in one atomic UPDATE; rows holding an
// unexpired lease are excluded by concurrent claimers instead of being waited
// on. Leases never touch status or version and are cleared by the transition
// that consumes them.
//
// Connections are opened with WAL, foreign keys, busy_timeout, and immediate
// transactions so write units serialize on the database lock rather than
// failing with SQLITE_BUSY on lock upgrade.
package docstore
