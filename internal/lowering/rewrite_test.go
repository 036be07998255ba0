package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traverql/internal/ir"
)

func TestRewriteBlockExpressions_BlocksWithoutExpressionsUnchanged(t *testing.T) {
	never := func(_ ir.Location, expr ir.Expression) ir.Expression {
		t.Fatal("rewrite function must not be called for expression-free blocks")
		return expr
	}

	testCases := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		optionalTraverse(),
		ir.Recurse{Direction: ir.EdgeOut, EdgeName: "Animal_ParentOf", Depth: 2},
		ir.Fold{Fold: ir.FoldLocation{Base: locRoot, FoldPath: []string{"out_Animal_ParentOf"}}},
		ir.Backtrack{Location: locRoot},
		ir.MarkLocation{Location: locRoot},
		ir.CoerceType{TargetTypes: []string{"Animal"}},
		ir.GlobalOperationsStart{},
	}

	for _, block := range testCases {
		assert.Equal(t, block, RewriteBlockExpressions(block, nil, never))
	}
}

func TestRewriteBlockExpressions_ReachesNestedExpressions(t *testing.T) {
	// Every leaf of a composed predicate must pass through the rewrite
	// function, including ones nested under multiple compositions.
	block := ir.Filter{Predicate: ir.BinaryComposition{
		Operator: "&&",
		Left: ir.BinaryComposition{
			Operator: "=",
			Left:     ir.LocalField{FieldName: "color", FieldType: "String"},
			Right:    ir.Literal{Value: "blue"},
		},
		Right: ir.BinaryComposition{
			Operator: ">=",
			Left:     ir.LocalField{FieldName: "age", FieldType: "Int"},
			Right:    ir.Variable{Name: "$min_age", Type: "Int"},
		},
	}}

	var seen []string
	result := RewriteBlockExpressions(block, locRoot, func(loc ir.Location, expr ir.Expression) ir.Expression {
		require.Equal(t, locRoot.Key(), loc.Key())
		if lf, ok := expr.(ir.LocalField); ok {
			seen = append(seen, lf.FieldName)
			return ir.ContextField{Location: loc.NavigateToField(lf.FieldName), FieldType: lf.FieldType}
		}
		return expr
	})

	assert.Equal(t, []string{"color", "age"}, seen)

	filter, ok := result.(ir.Filter)
	require.True(t, ok)
	top, ok := filter.Predicate.(ir.BinaryComposition)
	require.True(t, ok)
	left, ok := top.Left.(ir.BinaryComposition)
	require.True(t, ok)
	assert.IsType(t, ir.ContextField{}, left.Left)
}

func TestRewriteBlockExpressions_ConstructResultFields(t *testing.T) {
	block := ir.ConstructResult{Fields: map[string]ir.Expression{
		"name": ir.LocalField{FieldName: "name", FieldType: "String"},
		"age":  ir.Literal{Value: int64(7)},
	}}

	result := RewriteBlockExpressions(block, locRoot, func(loc ir.Location, expr ir.Expression) ir.Expression {
		if lf, ok := expr.(ir.LocalField); ok {
			return ir.ContextField{Location: loc.NavigateToField(lf.FieldName), FieldType: lf.FieldType}
		}
		return expr
	})

	cr, ok := result.(ir.ConstructResult)
	require.True(t, ok)
	assert.IsType(t, ir.ContextField{}, cr.Fields["name"])
	assert.Equal(t, ir.Literal{Value: int64(7)}, cr.Fields["age"])
}
