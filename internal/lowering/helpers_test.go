package lowering

import (
	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/metadata"
)

// Shared fixture locations: a root Animal vertex, its optional child, and
// the child's own optional child (for nested-scope tests).
var (
	locRoot       = ir.NewVertexLocation("Animal")
	locChild      = ir.NewVertexLocation("Animal", "out_Animal_ParentOf")
	locGrandchild = ir.NewVertexLocation("Animal", "out_Animal_ParentOf", "out_Animal_ParentOf")
)

// newTestTable registers the shared fixture locations with the optional
// depths the front end would record: root outside any optional, child at
// depth 1, grandchild at depth 2.
func newTestTable() *metadata.Table {
	table := metadata.NewTable()
	table.RegisterLocation(locRoot, metadata.LocationInfo{TypeName: "Animal"})
	table.RegisterLocation(locChild, metadata.LocationInfo{TypeName: "Animal", OptionalScopesDepth: 1})
	table.RegisterLocation(locGrandchild, metadata.LocationInfo{TypeName: "Animal", OptionalScopesDepth: 2})
	return table
}

// optionalTraverse is the canonical optional edge step used across tests.
func optionalTraverse() ir.Traverse {
	return ir.Traverse{Direction: ir.EdgeOut, EdgeName: "Animal_ParentOf", Optional: true}
}

// localFieldFilter builds a Filter comparing an unqualified field to a
// runtime parameter.
func localFieldFilter(field, variable string) ir.Filter {
	return ir.Filter{Predicate: ir.BinaryComposition{
		Operator: ">=",
		Left:     ir.LocalField{FieldName: field, FieldType: "Int"},
		Right:    ir.Variable{Name: variable, Type: "Int"},
	}}
}

// contextFieldFilter builds the resolved form of localFieldFilter at loc.
func contextFieldFilter(loc ir.Location, field, variable string) ir.Filter {
	return ir.Filter{Predicate: ir.BinaryComposition{
		Operator: ">=",
		Left:     ir.ContextField{Location: loc.NavigateToField(field), FieldType: "Int"},
		Right:    ir.Variable{Name: variable, Type: "Int"},
	}}
}

// filterBlocks returns the indices of all Filter blocks in the sequence.
func filterBlocks(blocks []ir.Block) []int {
	var indices []int
	for i, block := range blocks {
		if _, ok := block.(ir.Filter); ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// countLocalFields scans every expression in the sequence for LocalField
// variants.
func countLocalFields(blocks []ir.Block) int {
	count := 0
	for _, block := range blocks {
		RewriteBlockExpressions(block, nil, func(_ ir.Location, expr ir.Expression) ir.Expression {
			if _, ok := expr.(ir.LocalField); ok {
				count++
			}
			return expr
		})
	}
	return count
}
