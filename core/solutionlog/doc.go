// Package solutionlog persists emitted solution packets so that past plans
// can be replayed and audited. Backends are plain JSONL, size-rotated JSONL
// and SQLite.
package solutionlog
