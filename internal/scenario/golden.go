package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/traverql/internal/ir"
)

// RunWithGolden executes a scenario and compares the lowered output
// against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/scenario -update
//
// The snapshot is canonical JSON, so the comparison is exact: any byte
// difference means the pipeline's output changed.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	lowered, err := ir.EncodeBlocks(result.Lowered)
	if err != nil {
		return err
	}
	snapshot, err := ir.MarshalCanonicalValue(map[string]any{
		"scenario_name": scenario.Name,
		"lowered":       lowered,
	})
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return nil
}
