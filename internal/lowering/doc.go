// Package lowering rewrites backend-agnostic IR block sequences into a
// form a backend code generator can safely emit, preserving the source
// language's @optional and @fold semantics.
//
// ARCHITECTURE:
//
// Four ordered passes, each a pure function from (blocks, metadata table)
// to a new block sequence:
//
//	[front end IR] → InsertTypeBounds → RemoveLocationRevisits
//	              → ResolveLocalFields → HoistOptionalFilters → [codegen]
//
// The order is a correctness requirement, not an optimization choice:
//
//   - HoistOptionalFilters relocates Filter blocks, so it must run after
//     ResolveLocalFields has rewritten every LocalField into an explicit
//     ContextField/FoldedContextField - a relocated filter containing an
//     unresolved LocalField would silently change meaning.
//   - ResolveLocalFields and HoistOptionalFilters both rely on location
//     references being concrete, so RemoveLocationRevisits runs first.
//
// Lower composes the passes in the fixed order.
//
// ERROR MODEL:
//
// The passes report two fault kinds, both compiler defects rather than
// user errors:
//
//   - MALFORMED_IR: a structural assumption about the input was violated
//     (front-end or metadata-table defect).
//   - INVARIANT_VIOLATION: a pass's own output failed its stated
//     invariant (a bug in this package).
//
// Neither is recoverable; passes are all-or-nothing, and Lower propagates
// faults without wrapping so the compiler-level caller can report the
// offending sequence.
package lowering
