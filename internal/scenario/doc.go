// Package scenario runs end-to-end lowering scenarios described in YAML.
//
// A scenario names a CUE fixture, runs the full lowering pipeline over
// it, and checks the outcome two ways:
//
//   - Inline expectations in the YAML (block count, number of hoisted
//     filters, number of inserted coercions) catch coarse regressions
//     and document the scenario's intent next to its definition.
//   - A golden file holds the canonical JSON of the lowered output;
//     byte comparison against it pins the exact result.
//
// Golden files live in testdata/golden/{name}.golden and are
// regenerated with:
//
//	go test ./internal/scenario -update
package scenario
