// Package daemon coordinates the long-running docflow process.
//
// It wires configuration, the document store, the background submit and
// approve lanes, and the HTTP API into a single lifecycle with flock-based
// locking so only one daemon runs per state directory. Several daemons may
// still share one PostgreSQL database; claim leases keep their lanes apart.
//
// Keep orchestration logic here: transition rules live in the lifecycle
// package and persistence in the store packages, while the daemon focuses on
// startup, shutdown, and request handling.
package daemon
