package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traverql/internal/ir"
)

func TestResolveLocalFields_BindsToNextMarkLocation(t *testing.T) {
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		localFieldFilter("age", "$min_age"),
		ir.MarkLocation{Location: locChild},
		ir.GlobalOperationsStart{},
	}

	result, err := ResolveLocalFields(blocks)
	require.NoError(t, err)
	require.Len(t, result, len(blocks), "pure 1:1 rewrite")

	assert.Equal(t, contextFieldFilter(locChild, "age", "$min_age"), result[3],
		"the LocalField binds to the MarkLocation that closes its buffer")
	assert.Zero(t, countLocalFields(result))
}

func TestResolveLocalFields_FoldScopeProducesFoldedContextField(t *testing.T) {
	fold := ir.FoldLocation{Base: locRoot, FoldPath: []string{"out_Animal_ParentOf"}}
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		ir.Fold{Fold: fold},
		ir.Filter{Predicate: ir.BinaryComposition{
			Operator: "=",
			Left:     ir.LocalField{FieldName: "color", FieldType: "String"},
			Right:    ir.Literal{Value: "blue"},
		}},
		ir.MarkLocation{Location: fold},
		ir.Backtrack{Location: locRoot},
		ir.GlobalOperationsStart{},
	}

	result, err := ResolveLocalFields(blocks)
	require.NoError(t, err)
	require.Len(t, result, len(blocks))

	filter, ok := result[3].(ir.Filter)
	require.True(t, ok)
	comp, ok := filter.Predicate.(ir.BinaryComposition)
	require.True(t, ok)
	folded, ok := comp.Left.(ir.FoldedContextField)
	require.True(t, ok, "fold-scope locations yield FoldedContextField, got %T", comp.Left)
	assert.Equal(t, "color", folded.Fold.FieldName)
	assert.Equal(t, "String", folded.FieldType)
}

func TestResolveLocalFields_MultipleBuffersResolveIndependently(t *testing.T) {
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		localFieldFilter("name", "$root_name"),
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		localFieldFilter("age", "$min_age"),
		ir.MarkLocation{Location: locChild},
		ir.GlobalOperationsStart{},
	}

	result, err := ResolveLocalFields(blocks)
	require.NoError(t, err)
	require.Len(t, result, len(blocks))

	assert.Equal(t, contextFieldFilter(locRoot, "name", "$root_name"), result[1])
	assert.Equal(t, contextFieldFilter(locChild, "age", "$min_age"), result[4])
}

func TestResolveLocalFields_TailEmittedUnrewritten(t *testing.T) {
	// Blocks after the final MarkLocation pass through untouched. The
	// global section never contains LocalFields in well-formed input,
	// so the defensive tail only carries already-resolved blocks.
	tail := ir.ConstructResult{Fields: map[string]ir.Expression{
		"name": ir.ContextField{Location: locRoot.NavigateToField("name"), FieldType: "String"},
	}}
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		ir.GlobalOperationsStart{},
		tail,
	}

	result, err := ResolveLocalFields(blocks)
	require.NoError(t, err)
	require.Len(t, result, len(blocks))
	assert.Equal(t, tail, result[3])
}

func TestResolveLocalFields_NoMarkLocation(t *testing.T) {
	// Degenerate input: nothing to bind to, everything is tail.
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.GlobalOperationsStart{},
	}

	result, err := ResolveLocalFields(blocks)
	require.NoError(t, err)
	assert.Equal(t, blocks, result)
}
