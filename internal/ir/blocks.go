package ir

// Block represents one operation in a compiled query's linear sequence.
//
// This is a sealed interface - only types in this package implement it.
// The front end emits blocks in a fixed legal order (see package doc);
// the lowering passes insert, drop, and rewrite blocks but never reorder
// the survivors.
//
// Block types:
//   - QueryRoot: root of a traversal (no source edge)
//   - Traverse: follow an edge; may be @optional
//   - Recurse: bounded repeated traversal of an edge
//   - Fold: enter a @fold scope
//   - Backtrack: return to a previously visited location
//   - MarkLocation: bind the next sequential point to a Location
//   - CoerceType: narrow the runtime type at the current point
//   - Filter: a predicate the current point must satisfy
//   - GlobalOperationsStart: sentinel opening the query-wide section
//   - ConstructResult: named output expressions for the final rows
type Block interface {
	blockNode() // Marker method - seals interface to this package
}

// QueryRoot starts a traversal at vertices of the given classes.
type QueryRoot struct {
	StartClasses []string
}

func (QueryRoot) blockNode() {}

// EdgeDirection is the orientation of a traversed edge.
type EdgeDirection string

const (
	// EdgeOut follows the edge from source to destination.
	EdgeOut EdgeDirection = "out"

	// EdgeIn follows the edge from destination to source.
	EdgeIn EdgeDirection = "in"
)

// Traverse follows an edge to an adjacent vertex. Optional marks an
// @optional traversal: a missing edge must not eliminate the enclosing
// result row.
type Traverse struct {
	Direction EdgeDirection
	EdgeName  string
	Optional  bool
}

func (Traverse) blockNode() {}

// Recurse repeatedly follows an edge up to Depth times, unioning each
// depth's destinations into the result.
type Recurse struct {
	Direction EdgeDirection
	EdgeName  string
	Depth     int
}

func (Recurse) blockNode() {}

// Fold enters a @fold scope rooted at the given fold location. Results
// reached within the scope are aggregated into a list instead of being
// cross-joined into the result set.
type Fold struct {
	Fold FoldLocation
}

func (Fold) blockNode() {}

// Backtrack returns to a previously visited location after a branch
// completes.
type Backtrack struct {
	Location Location
}

func (Backtrack) blockNode() {}

// MarkLocation binds the next sequential point to a Location. Every
// Traverse/Fold/Recurse is eventually followed by exactly one
// MarkLocation for its destination.
type MarkLocation struct {
	Location Location
}

func (MarkLocation) blockNode() {}

// CoerceType narrows the runtime type at the current point to one of the
// given declared type names.
type CoerceType struct {
	TargetTypes []string
}

func (CoerceType) blockNode() {}

// Filter keeps the current point in the result only if Predicate holds.
type Filter struct {
	Predicate Expression
}

func (Filter) blockNode() {}

// GlobalOperationsStart marks the end of per-path traversal operations
// and the start of query-wide post-processing. Exactly one occurs per
// compiled query.
type GlobalOperationsStart struct{}

func (GlobalOperationsStart) blockNode() {}

// ConstructResult builds the output rows from named expressions. It
// appears in the global operations section, after GlobalOperationsStart.
type ConstructResult struct {
	Fields map[string]Expression
}

func (ConstructResult) blockNode() {}
