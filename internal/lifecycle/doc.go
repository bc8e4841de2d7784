// Package lifecycle moves documents through DRAFT -> SUBMITTED -> APPROVED.
//
// Executor performs exactly one transition for one document and reports a
// document.Outcome; it never returns an error. Orchestrator runs the executor
// over an ordered id list, one independently committed unit per id, either
// sequentially or with bounded parallelism, and keeps outcomes in input order.
// Claimer hands background workers batches of eligible ids using the store's
// claim-with-skip primitive.
//
// Mutual exclusion per document comes only from the store's conditional
// version write; nothing here holds in-process locks across documents.
package lifecycle
