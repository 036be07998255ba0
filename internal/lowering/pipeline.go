package lowering

import (
	"log/slog"

	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/metadata"
)

// Lower runs the full lowering pipeline over a compiled query's block
// sequence, returning the sequence a backend code generator can safely
// emit.
//
// The pass order is a correctness requirement (see the package doc). The
// driver is a straight composition: it performs no validation beyond
// what each pass enforces, and it does not catch or wrap pass faults -
// they propagate so the compiler-level caller can report the offending
// sequence.
func Lower(blocks []ir.Block, table *metadata.Table) ([]ir.Block, error) {
	slog.Debug("lowering started", "blocks", len(blocks), "revisits", table.RevisitCount())

	blocks, err := InsertTypeBounds(blocks, table)
	if err != nil {
		return nil, err
	}
	slog.Debug("inserted explicit type bounds", "blocks", len(blocks))

	blocks, err = RemoveLocationRevisits(blocks, table)
	if err != nil {
		return nil, err
	}
	slog.Debug("removed location revisits", "blocks", len(blocks))

	blocks, err = ResolveLocalFields(blocks)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved local fields", "blocks", len(blocks))

	blocks, err = HoistOptionalFilters(blocks, table)
	if err != nil {
		return nil, err
	}

	slog.Info("lowering complete", "blocks", len(blocks))
	return blocks, nil
}
