package ir

// Expression represents a computed value used inside Filter and
// ConstructResult blocks.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern enables exhaustive type switches in the
// lowering passes and backend compilers.
//
// Expression types:
//   - LocalField: unqualified property read at whichever location is
//     currently open (valid only before local-field resolution)
//   - ContextField: property read fully qualified by an explicit Location
//   - FoldedContextField: like ContextField, but the location is inside a
//     @fold scope, so the read yields an aggregated sequence
//   - Literal: a constant value
//   - Variable: a runtime query parameter (e.g. "$min_age")
//   - BinaryComposition: an operator applied to two sub-expressions
type Expression interface {
	exprNode() // Marker method - seals interface to this package
}

// LocalField is an unqualified property read meaning "the field at
// whichever location is currently open". It is only meaningful while
// block position and open location are still synonymous; the local-field
// resolution pass rewrites every LocalField into a ContextField or
// FoldedContextField before filters may be relocated.
type LocalField struct {
	FieldName string
	FieldType string
}

func (LocalField) exprNode() {}

// ContextField is a property read qualified by an explicit Location.
// The location is field-qualified (its Field() names the property).
type ContextField struct {
	Location  Location
	FieldType string
}

func (ContextField) exprNode() {}

// FoldedContextField is a property read at a fold-scope location. The
// read yields the aggregated list of values across the fold, not a
// scalar.
type FoldedContextField struct {
	Fold      FoldLocation
	FieldType string
}

func (FoldedContextField) exprNode() {}

// Literal is a constant value embedded in the query.
type Literal struct {
	Value any
}

func (Literal) exprNode() {}

// Variable is a runtime query parameter, bound at execution time.
type Variable struct {
	Name string
	Type string
}

func (Variable) exprNode() {}

// BinaryComposition applies an operator to two sub-expressions.
// Operators are backend-agnostic names ("=", "<", ">=", "&&", "contains").
type BinaryComposition struct {
	Operator string
	Left     Expression
	Right    Expression
}

func (BinaryComposition) exprNode() {}

// UpdateExpression applies fn to every node of an expression tree in
// post-order: children are rebuilt first, then fn is applied to the node
// carrying the rebuilt children. fn must be total over all Expression
// variants; returning its argument unchanged is the identity.
func UpdateExpression(expr Expression, fn func(Expression) Expression) Expression {
	switch e := expr.(type) {
	case BinaryComposition:
		left := UpdateExpression(e.Left, fn)
		right := UpdateExpression(e.Right, fn)
		return fn(BinaryComposition{Operator: e.Operator, Left: left, Right: right})
	default:
		// Leaf variants: LocalField, ContextField, FoldedContextField,
		// Literal, Variable.
		return fn(expr)
	}
}

// WalkExpression calls fn for every node of an expression tree in
// pre-order. Used by validation and by tests scanning for variants.
func WalkExpression(expr Expression, fn func(Expression)) {
	fn(expr)
	if e, ok := expr.(BinaryComposition); ok {
		WalkExpression(e.Left, fn)
		WalkExpression(e.Right, fn)
	}
}
