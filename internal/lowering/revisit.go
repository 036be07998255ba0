package lowering

import (
	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/metadata"
)

const passRemoveLocationRevisits = "RemoveLocationRevisits"

// RemoveLocationRevisits drops the duplicate location bindings the front
// end mints when control returns to an optional branch's origin.
//
// The front end models "returning to the origin" by minting a fresh,
// semantically equivalent revisit location and re-marking it. Backends
// without a revisit concept do not need the duplicate binding: every
// MarkLocation whose location is a revisit is dropped, and every
// remaining expression reference to a revisit location is rewritten to
// its origin using the metadata table's translation map.
//
// Output: block count equals input count minus the number of dropped
// MarkLocations; no remaining block references a revisit location.
func RemoveLocationRevisits(blocks []ir.Block, table *metadata.Table) ([]ir.Block, error) {
	rewriter := makeLocationRewriter(table.RevisitOrigin)

	newBlocks := make([]ir.Block, 0, len(blocks))
	dropped := 0
	for _, block := range blocks {
		if mark, ok := block.(ir.MarkLocation); ok {
			if _, isRevisit := table.RevisitOrigin(mark.Location); isRevisit {
				// Drop the duplicate binding; references to its location
				// are rewritten to the origin below.
				dropped++
				continue
			}
		}
		newBlocks = append(newBlocks, RewriteBlockExpressions(block, nil, rewriter))
	}

	if len(newBlocks) != len(blocks)-dropped {
		return nil, newInvariantError(passRemoveLocationRevisits,
			"expected %d blocks after dropping %d revisits, got %d",
			len(blocks)-dropped, dropped, len(newBlocks))
	}
	return newBlocks, nil
}
