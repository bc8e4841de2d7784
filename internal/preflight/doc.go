// Package preflight provides readiness checks for the filesystem paths and
// backing services docflow depends on.
//
// The CLI "docflow doctor" command runs RunAll and renders the results; the
// "serve" command runs the same checks and refuses to start the daemon when
// any of them fails.
package preflight
