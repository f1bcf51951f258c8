// Package pipeline orchestrates a split run: enumeration, quota planning,
// shuffling, per-file placement, cleanup, and summary reporting. It also
// implements the read-only --analyze report.
package pipeline
