package lowering

import (
	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/metadata"
)

const passHoistOptionalFilters = "HoistOptionalFilters"

// HoistOptionalFilters relocates every Filter found inside an @optional
// scope to immediately after the GlobalOperationsStart sentinel,
// preserving the filters' relative order.
//
// Semantic contract: a filter on a property reached through an @optional
// edge must suppress a result row only if the edge is present and the
// filter fails; a missing optional edge is never a filter failure. Many
// backends' native optional-match semantics suppress the row on filter
// failure regardless of edge presence. Deferring such filters until
// after the optional branch's presence has been resolved and the row
// materialized restores the required contract.
//
// Precondition: ResolveLocalFields has already run, so relocated filters
// reference their locations explicitly and survive the move unchanged in
// meaning.
//
// Invariants: filters outside any optional scope are never touched;
// hoisted filters retain relative order; optional-scope filtering is
// evaluated exactly once, after traversal completes.
func HoistOptionalFilters(blocks []ir.Block, table *metadata.Table) ([]ir.Block, error) {
	st := hoistState{out: make([]ir.Block, 0, len(blocks))}
	for i, block := range blocks {
		if err := st.step(block, i, table); err != nil {
			return nil, err
		}
	}

	if len(st.hoisted) != 0 {
		return nil, newInvariantError(passHoistOptionalFilters,
			"%d hoisted filters never emitted: no GlobalOperationsStart block", len(st.hoisted))
	}
	return st.out, nil
}

// hoistState is the scope-flag + hoist-buffer state machine behind
// HoistOptionalFilters.
//
// withinOptional is recomputed (not merely toggled) at each Backtrack,
// from the destination's optional-scope depth in the metadata table.
// Leaving an inner optional scope while an outer one is still open must
// restore the flag to true, and only the recorded depth can say so.
type hoistState struct {
	withinOptional bool
	hoisted        []ir.Block
	out            []ir.Block
}

// step advances the state machine by one block.
func (st *hoistState) step(block ir.Block, index int, table *metadata.Table) error {
	emit := true

	switch b := block.(type) {
	case ir.Filter:
		if st.withinOptional {
			st.hoisted = append(st.hoisted, block)
			emit = false
		}
	case ir.Traverse:
		if b.Optional {
			st.withinOptional = true
		}
	case ir.Backtrack:
		info, err := table.LocationInfo(b.Location)
		if err != nil {
			return newMalformedIRError(passHoistOptionalFilters, index,
				"Backtrack destination has no metadata: %v", err)
		}
		st.withinOptional = info.OptionalScopesDepth > 0
	default:
		// All other block kinds are emitted unchanged, in place.
	}

	if emit {
		st.out = append(st.out, block)
	}

	if _, isGlobalStart := block.(ir.GlobalOperationsStart); isGlobalStart {
		// The global operations section just opened; this is where all
		// deferred optional-scope filters go, in original order.
		st.out = append(st.out, st.hoisted...)
		st.hoisted = nil
	}
	return nil
}
