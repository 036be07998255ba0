package ir

import (
	"fmt"
	"strings"
)

// Location identifies a position reached by the traversal so far.
//
// This is a sealed interface - only types in this package implement it.
// Locations are created once by the front end and are immutable; the
// lowering passes rename or drop references to them, never mutate them.
//
// Location types:
//   - VertexLocation: a position in the regular (cross-joined) result set
//   - FoldLocation: a position inside a @fold scope, whose reads yield
//     aggregated sequences rather than scalars
type Location interface {
	locationNode() // Marker method - seals interface to this package

	// Key returns a stable identity string for map lookups and equality.
	// Two locations are the same position iff their keys are equal.
	Key() string

	// NavigateToField derives the field-qualified location for reading
	// the named property at this position.
	NavigateToField(name string) Location

	// Field returns the property name if this is a field-qualified
	// location, or "" for a plain position.
	Field() string
}

// VertexLocation is a position in the regular result set.
//
// Path is the sequence of traversal steps from the query root. Visit
// disambiguates revisits of the same path: the front end mints a fresh
// location with an incremented visit counter when control returns to an
// optional branch's origin.
type VertexLocation struct {
	Path      []string
	Visit     int
	FieldName string
}

func (VertexLocation) locationNode() {}

// Key implements Location. The "visit_N" component appears only for
// revisits so that original locations keep short, stable keys.
func (l VertexLocation) Key() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(l.Path, "."))
	if l.Visit > 0 {
		fmt.Fprintf(&sb, "@visit_%d", l.Visit)
	}
	if l.FieldName != "" {
		sb.WriteString("->")
		sb.WriteString(l.FieldName)
	}
	return sb.String()
}

// NavigateToField implements Location.
func (l VertexLocation) NavigateToField(name string) Location {
	return VertexLocation{Path: l.Path, Visit: l.Visit, FieldName: name}
}

// Field implements Location.
func (l VertexLocation) Field() string { return l.FieldName }

// Revisit returns the next revisit of this position. Used by front-end
// fixtures and tests; the lowering passes only consume revisits.
func (l VertexLocation) Revisit() VertexLocation {
	return VertexLocation{Path: l.Path, Visit: l.Visit + 1}
}

// FoldLocation is a position inside a @fold scope.
//
// Base is the location at which the fold was entered; FoldPath is the
// edge path walked within the fold scope.
type FoldLocation struct {
	Base      VertexLocation
	FoldPath  []string
	FieldName string
}

func (FoldLocation) locationNode() {}

// Key implements Location.
func (l FoldLocation) Key() string {
	var sb strings.Builder
	sb.WriteString(l.Base.Key())
	sb.WriteString("/fold:")
	sb.WriteString(strings.Join(l.FoldPath, "."))
	if l.FieldName != "" {
		sb.WriteString("->")
		sb.WriteString(l.FieldName)
	}
	return sb.String()
}

// NavigateToField implements Location.
func (l FoldLocation) NavigateToField(name string) Location {
	return FoldLocation{Base: l.Base, FoldPath: l.FoldPath, FieldName: name}
}

// Field implements Location.
func (l FoldLocation) Field() string { return l.FieldName }

// IsFoldScope reports whether loc marks a position inside a @fold scope.
func IsFoldScope(loc Location) bool {
	switch loc.(type) {
	case FoldLocation:
		return true
	default:
		return false
	}
}

// NewVertexLocation creates a VertexLocation from a traversal path.
func NewVertexLocation(path ...string) VertexLocation {
	return VertexLocation{Path: path}
}
