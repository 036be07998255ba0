package lowering

import (
	"github.com/roach88/traverql/internal/ir"
)

const passResolveLocalFields = "ResolveLocalFields"

// ResolveLocalFields rewrites every LocalField expression into a
// ContextField (or FoldedContextField, inside a @fold scope) explicitly
// naming its owning location.
//
// A LocalField means "the field at whichever location is currently
// open", which is only unambiguous while block position and open
// location are synonymous. Filter hoisting physically relocates blocks,
// so this pass must run first: after it, no relocatable block contains a
// LocalField.
//
// Output: block count equals input count exactly (pure 1:1 rewrite); a
// count mismatch is a fatal invariant violation.
func ResolveLocalFields(blocks []ir.Block) ([]ir.Block, error) {
	st := localFieldState{out: make([]ir.Block, 0, len(blocks))}
	for _, block := range blocks {
		st.step(block)
	}
	st.flushTail()

	if len(st.out) != len(blocks) {
		return nil, newInvariantError(passResolveLocalFields,
			"block count changed in 1:1 rewrite: %d in, %d out", len(blocks), len(st.out))
	}
	return st.out, nil
}

// localFieldState is the pending-buffer state machine behind
// ResolveLocalFields. Blocks seen since the last MarkLocation accumulate
// in pending; reaching a MarkLocation binds them to its location, flushes
// them rewritten, then emits the MarkLocation itself.
type localFieldState struct {
	pending []ir.Block
	out     []ir.Block
}

// step advances the state machine by one block.
func (st *localFieldState) step(block ir.Block) {
	mark, ok := block.(ir.MarkLocation)
	if !ok {
		st.pending = append(st.pending, block)
		return
	}

	rewriter := makeLocalFieldRewriter(mark.Location)
	for _, buffered := range st.pending {
		st.out = append(st.out, RewriteBlockExpressions(buffered, mark.Location, rewriter))
	}
	st.pending = st.pending[:0]
	st.out = append(st.out, mark)
}

// flushTail emits any blocks still buffered after the final MarkLocation,
// unrewritten. Well-formed input leaves only the global operations
// section here, which never contains LocalFields.
func (st *localFieldState) flushTail() {
	st.out = append(st.out, st.pending...)
	st.pending = nil
}

// makeLocalFieldRewriter builds a RewriteFunc that binds LocalFields to
// the given location. Fold-scope locations produce FoldedContextFields,
// since reads there yield aggregated sequences rather than scalars.
func makeLocalFieldRewriter(loc ir.Location) RewriteFunc {
	return func(_ ir.Location, expr ir.Expression) ir.Expression {
		local, ok := expr.(ir.LocalField)
		if !ok {
			return expr
		}

		locationAtField := loc.NavigateToField(local.FieldName)
		if fold, isFold := locationAtField.(ir.FoldLocation); isFold {
			return ir.FoldedContextField{Fold: fold, FieldType: local.FieldType}
		}
		return ir.ContextField{Location: locationAtField, FieldType: local.FieldType}
	}
}
