// Package api exposes the document lifecycle to the HTTP daemon, the CLI, and
// background workers, and defines the wire-format types they exchange.
//
// # Service
//
// DocumentService is the facade over a Store and the lifecycle engine:
// Create, SubmitBatch, ApproveBatch, ApproveSingle, ClaimEligible,
// ReleaseClaims, GetHistory, CountByStatus, plus the read paths Get, GetByIDs,
// Search, and Stats.
// OpenStore picks the SQLite or PostgreSQL store and the numbering backend
// from configuration.
//
// # Key Types
//
// Document, HistoryEntry: transport representations of stored records.
//
// Outcome, BatchResponse: per-id transition results in request order plus
// aggregate counts.
//
// DocumentPage, StatsResponse, RaceResponse: listing, status counts, and
// concurrency harness summaries.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Statuses are the uppercase lifecycle names
// and outcome kinds the lowercase snake_case vocabulary. Timestamps use
// RFC3339 with milliseconds.
package api
