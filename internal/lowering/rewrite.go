package lowering

import (
	"github.com/roach88/traverql/internal/ir"
)

// RewriteFunc maps an expression to its replacement. The location
// argument carries the context the caller knows for the block being
// rewritten; passes that rewrite without location context pass nil.
//
// A RewriteFunc must be total over all Expression variants it may
// encounter; returning the argument unchanged is the identity.
type RewriteFunc func(loc ir.Location, expr ir.Expression) ir.Expression

// RewriteBlockExpressions returns a copy of block with every embedded
// expression replaced by fn's output. Blocks containing no expressions
// are returned unchanged. This is a pure transform with no side effects.
func RewriteBlockExpressions(block ir.Block, loc ir.Location, fn RewriteFunc) ir.Block {
	apply := func(expr ir.Expression) ir.Expression {
		return ir.UpdateExpression(expr, func(e ir.Expression) ir.Expression {
			return fn(loc, e)
		})
	}

	switch b := block.(type) {
	case ir.Filter:
		return ir.Filter{Predicate: apply(b.Predicate)}
	case ir.ConstructResult:
		fields := make(map[string]ir.Expression, len(b.Fields))
		for name, expr := range b.Fields {
			fields[name] = apply(expr)
		}
		return ir.ConstructResult{Fields: fields}
	default:
		// QueryRoot, Traverse, Recurse, Fold, Backtrack, MarkLocation,
		// CoerceType, GlobalOperationsStart carry no expressions.
		return block
	}
}

// makeLocationRewriter builds a RewriteFunc substituting revisit-location
// references with their origins, per the given translation lookup.
// Expressions referencing untranslated locations pass through unchanged.
func makeLocationRewriter(originOf func(ir.Location) (ir.Location, bool)) RewriteFunc {
	translate := func(loc ir.Location) (ir.Location, bool) {
		field := loc.Field()
		if field == "" {
			return originOf(loc)
		}
		// Field-qualified references translate through their base
		// position, then re-qualify.
		var base ir.Location
		switch l := loc.(type) {
		case ir.VertexLocation:
			base = ir.VertexLocation{Path: l.Path, Visit: l.Visit}
		case ir.FoldLocation:
			base = ir.FoldLocation{Base: l.Base, FoldPath: l.FoldPath}
		default:
			return nil, false
		}
		origin, ok := originOf(base)
		if !ok {
			return nil, false
		}
		return origin.NavigateToField(field), true
	}

	return func(_ ir.Location, expr ir.Expression) ir.Expression {
		switch e := expr.(type) {
		case ir.ContextField:
			if origin, ok := translate(e.Location); ok {
				return ir.ContextField{Location: origin, FieldType: e.FieldType}
			}
			return e
		case ir.FoldedContextField:
			if origin, ok := translate(ir.Location(e.Fold)); ok {
				if fold, isFold := origin.(ir.FoldLocation); isFold {
					return ir.FoldedContextField{Fold: fold, FieldType: e.FieldType}
				}
			}
			return e
		default:
			// LocalField, Literal, Variable, BinaryComposition carry no
			// direct location reference. BinaryComposition children are
			// visited separately by the tree walk.
			return expr
		}
	}
}
