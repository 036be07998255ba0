// Package ir defines the intermediate representation for compiled
// graph-traversal queries: a linear sequence of blocks, each possibly
// carrying an expression tree, plus the locations that identify traversal
// positions.
//
// ARCHITECTURE:
//
// The IR sits between the query front end and backend code generators:
//
//	[query front end] → [IR blocks + metadata] → [lowering passes] → [backend codegen]
//
// A compiled query is a []Block in a fixed legal order. Blocks reference
// traversal positions through Location values and compute over Expression
// trees. The lowering passes (package lowering) rewrite block sequences;
// this package only defines the shapes and their structural invariants.
//
// SEALED INTERFACES:
//
// Block, Expression, and Location are sealed interfaces using the marker
// method pattern. Only types in this package implement them.
//
// This enables:
//   - Exhaustive type switches in the lowering passes
//   - Compile-time safety against external extensions
//   - A clear contract for backend implementers
//
// Example:
//
//	switch b := block.(type) {
//	case ir.Traverse:
//	    // Handle traversal
//	case ir.MarkLocation:
//	    // Handle location binding
//	default:
//	    // Remaining block kinds
//	}
//
// STRUCTURAL INVARIANTS (enforced by ValidateBlocks, relied on by passes):
//  1. Every Traverse/Fold/Recurse is followed, skipping only Filter and
//     CoerceType blocks, by a MarkLocation for its destination.
//  2. Exactly one GlobalOperationsStart exists per compiled query.
//  3. LocalField expressions are only valid while block position and open
//     location are still synonymous; local-field resolution removes them.
//
// CANONICAL ENCODING:
//
// MarshalCanonical produces RFC 8785-style canonical JSON of a block
// sequence (NFC strings, UTF-16 key ordering, no HTML escaping). It is the
// only serialization used for fingerprinting and golden comparison.
package ir
