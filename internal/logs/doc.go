// Package logs tails the daemon log file for `docflow logs`.
//
// It reads trailing lines with bounded memory, follows appended output by
// polling byte offsets, restarts from the top when the file is truncated, and
// can narrow output to one document's lines.
package logs
