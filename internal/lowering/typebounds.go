package lowering

import (
	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/metadata"
)

const passInsertTypeBounds = "InsertTypeBounds"

// InsertTypeBounds guarantees a CoerceType block stating the
// destination's declared type immediately follows every Traverse, Fold,
// and Recurse block. Backends may not otherwise know the concrete
// runtime type of a traversed destination.
//
// The new CoerceType is inserted before any Filter blocks that sit
// between the traversal step and its MarkLocation, so later filters can
// assume the narrowed type. If a CoerceType is already present, nothing
// is inserted.
//
// Output: block count only grows; relative order of all original blocks
// is preserved; new blocks appear only immediately after their trigger.
func InsertTypeBounds(blocks []ir.Block, table *metadata.Table) ([]ir.Block, error) {
	newBlocks := make([]ir.Block, 0, len(blocks))

	for i, block := range blocks {
		newBlocks = append(newBlocks, block)

		switch block.(type) {
		case ir.Traverse, ir.Fold, ir.Recurse:
			coercion, err := typeBoundFor(blocks, i, table)
			if err != nil {
				return nil, err
			}
			if coercion != nil {
				newBlocks = append(newBlocks, *coercion)
			}
		}
	}

	if len(newBlocks) < len(blocks) {
		return nil, newInvariantError(passInsertTypeBounds,
			"block count shrank from %d to %d", len(blocks), len(newBlocks))
	}
	return newBlocks, nil
}

// typeBoundFor decides whether the traversal step at index i needs an
// explicit CoerceType, returning the block to insert or nil.
//
// Filtering happens before location-marking, so finding a MarkLocation
// without a CoerceType on the way proves no coercion exists for this
// step. Any other block kind before either is malformed IR.
func typeBoundFor(blocks []ir.Block, i int, table *metadata.Table) (*ir.CoerceType, error) {
	for j := i + 1; j < len(blocks); j++ {
		switch next := blocks[j].(type) {
		case ir.CoerceType:
			// Already explicitly coerced, nothing to do.
			return nil, nil
		case ir.MarkLocation:
			info, err := table.LocationInfo(next.Location)
			if err != nil {
				return nil, newMalformedIRError(passInsertTypeBounds, j,
					"destination of %T has no metadata: %v", blocks[i], err)
			}
			return &ir.CoerceType{TargetTypes: []string{info.TypeName}}, nil
		case ir.Filter:
			// Expected between a traversal step and its MarkLocation.
		default:
			return nil, newMalformedIRError(passInsertTypeBounds, j,
				"expected only CoerceType and Filter blocks between %T and its MarkLocation, found %T",
				blocks[i], blocks[j])
		}
	}
	return nil, newMalformedIRError(passInsertTypeBounds, i,
		"%T has no MarkLocation or CoerceType block after it", blocks[i])
}
