// Package pgstore is the PostgreSQL State Store for deployments where several
// docflow processes share one database.
//
// It honours the same contract as docstore: ApplyTransition is one
// conditional UPDATE keyed on version and predecessor status plus the history
// and registry inserts in a single transaction, and ClaimEligible leases rows
// picked with SELECT ... FOR UPDATE SKIP LOCKED so concurrent claimers never
// wait on each other. Document numbers come from the document_number_seq
// sequence unless an external sequence is configured.
package pgstore
