// Package cache provides durable storage for lowered query plans, keyed
// by the canonical fingerprint of the pre-lowering block sequence.
//
// ARCHITECTURE
//
// The cache is a single SQLite table mapping query fingerprint to the
// canonical JSON of the lowered blocks plus the lowered fingerprint.
// Because lowering is deterministic, a hit can be served without
// re-running the pipeline: identical input blocks always produce
// identical lowered output, so the stored row is as good as a fresh run.
//
// Writes use INSERT OR REPLACE; each write records a fresh run ID so a
// row can be traced back to the run that produced it. The database uses
// WAL mode for concurrent read access and a single-writer connection
// pool to avoid SQLITE_BUSY errors.
package cache
