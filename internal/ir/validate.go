package ir

import "fmt"

// ValidateBlocks checks the structural invariants a well-formed compiled
// query must satisfy before lowering:
//
//  1. Every Traverse/Fold/Recurse is followed, skipping only Filter and
//     CoerceType blocks, by a MarkLocation for its destination.
//  2. Exactly one GlobalOperationsStart exists.
//
// A violation indicates a defect in the front end, not user input; the
// lowering passes assume these invariants and fail fast on their own
// when they are broken mid-pass.
//
// ValidateBlocks is a pure function with no side effects.
func ValidateBlocks(blocks []Block) error {
	globalStarts := 0

	for i, block := range blocks {
		switch block.(type) {
		case GlobalOperationsStart:
			globalStarts++
		case Traverse, Fold, Recurse:
			if err := validateMarkLocationFollows(blocks, i); err != nil {
				return err
			}
		}
	}

	if globalStarts != 1 {
		return fmt.Errorf("expected exactly one GlobalOperationsStart block, found %d", globalStarts)
	}
	return nil
}

// validateMarkLocationFollows checks that the traversal step at index i
// is followed by a MarkLocation, skipping only Filter and CoerceType.
func validateMarkLocationFollows(blocks []Block, i int) error {
	for j := i + 1; j < len(blocks); j++ {
		switch blocks[j].(type) {
		case Filter, CoerceType:
			// Legal between a traversal step and its MarkLocation.
		case MarkLocation:
			return nil
		default:
			return fmt.Errorf(
				"block %T at index %d is not followed by a MarkLocation: found %T at index %d",
				blocks[i], i, blocks[j], j)
		}
	}
	return fmt.Errorf("block %T at index %d has no MarkLocation after it", blocks[i], i)
}
