// Package workflow runs the background triggers that drain eligible documents.
//
// The Manager owns two lanes: submit (DRAFT -> SUBMITTED) and approve
// (SUBMITTED -> APPROVED). Each lane polls independently: it claims up to
// worker.batch_size ids with claim-with-skip, runs them through the batch
// orchestrator as the lane's worker actor, logs a summary, and loops straight
// away while claims keep returning work. An empty claim sleeps for the lane
// interval; a failed claim sleeps for worker.error_retry_seconds.
//
// Several daemons may run lanes against one shared store. Claims keep them
// from picking the same ids, and the conditional version write keeps them
// correct if a lease expires mid-batch.
package workflow
