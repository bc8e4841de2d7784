// Package main hosts the docflow CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon ("serve") and offers direct
// store access for creating, transitioning, and inspecting documents, plus
// the concurrency harness, the bulk generator, and health checks. It
// centralizes configuration resolution and logging setup so subcommands can
// focus on output.
//
// Keep this package lean: add functionality in the internal packages first,
// then surface it through dedicated commands or flags here.
package main
