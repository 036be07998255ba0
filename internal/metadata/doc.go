// Package metadata provides the read-only per-location facts the lowering
// passes consult: declared type names, optional-scope nesting depth,
// fold-scope membership, and the revisit-location translation map.
//
// The table is built by the front end (or by test fixtures) before
// lowering starts and is never mutated by the pipeline. Treating it as a
// plain passed-in lookup, rather than an ambient object, lets every pass
// be tested with a hand-built minimal table.
package metadata
