package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traverql/internal/ir"
)

// TestLower_OptionalFilterScenario runs the canonical end-to-end case:
// an optional traversal with a local-field filter. After the full
// pipeline, a CoerceType follows the Traverse, the filter reads its
// location explicitly, and the filter sits right after
// GlobalOperationsStart rather than inside the optional scope.
func TestLower_OptionalFilterScenario(t *testing.T) {
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		localFieldFilter("age", "$min_age"),
		ir.MarkLocation{Location: locChild},
		ir.Backtrack{Location: locRoot},
		ir.GlobalOperationsStart{},
	}
	require.NoError(t, ir.ValidateBlocks(blocks))

	result, err := Lower(blocks, newTestTable())
	require.NoError(t, err)

	// One CoerceType inserted, nothing else gained or lost.
	require.Len(t, result, len(blocks)+1)

	expected := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		ir.CoerceType{TargetTypes: []string{"Animal"}},
		ir.MarkLocation{Location: locChild},
		ir.Backtrack{Location: locRoot},
		ir.GlobalOperationsStart{},
		contextFieldFilter(locChild, "age", "$min_age"),
	}
	assert.Equal(t, expected, result)

	assert.Zero(t, countLocalFields(result), "no LocalField survives the pipeline")
}

func TestLower_NestedOptionalScenario(t *testing.T) {
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		localFieldFilter("age", "$min_age"),
		ir.MarkLocation{Location: locChild},
		optionalTraverse(),
		localFieldFilter("age", "$min_grandchild_age"),
		ir.MarkLocation{Location: locGrandchild},
		ir.Backtrack{Location: locChild},
		ir.Backtrack{Location: locRoot},
		ir.GlobalOperationsStart{},
	}
	require.NoError(t, ir.ValidateBlocks(blocks))

	result, err := Lower(blocks, newTestTable())
	require.NoError(t, err)

	globalStart := indexOfGlobalStart(t, result)
	require.Equal(t, []int{globalStart + 1, globalStart + 2}, filterBlocks(result),
		"both optional-scope filters hoist to the global section")
	assert.Equal(t, contextFieldFilter(locChild, "age", "$min_age"), result[globalStart+1])
	assert.Equal(t, contextFieldFilter(locGrandchild, "age", "$min_grandchild_age"), result[globalStart+2])
}

func TestLower_RevisitScenario(t *testing.T) {
	revisitRoot := locRoot.Revisit()
	table := newTestTable()
	table.RegisterRevisit(revisitRoot, locRoot)

	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		ir.MarkLocation{Location: locChild},
		ir.Backtrack{Location: locRoot},
		ir.MarkLocation{Location: revisitRoot},
		ir.GlobalOperationsStart{},
		ir.ConstructResult{Fields: map[string]ir.Expression{
			"name": ir.ContextField{Location: revisitRoot.NavigateToField("name"), FieldType: "String"},
		}},
	}

	result, err := Lower(blocks, table)
	require.NoError(t, err)

	// One CoerceType inserted, one revisit MarkLocation dropped.
	require.Len(t, result, len(blocks))

	cr, ok := result[len(result)-1].(ir.ConstructResult)
	require.True(t, ok)
	name, ok := cr.Fields["name"].(ir.ContextField)
	require.True(t, ok)
	assert.Equal(t, locRoot.NavigateToField("name").Key(), name.Location.Key(),
		"output expressions reference the origin, not the revisit")
}

// TestLower_PassOrderRequired documents why HoistOptionalFilters must run
// after ResolveLocalFields: hoisting first relocates the filter past the
// last MarkLocation, so a later resolution pass has nothing to bind its
// LocalField to and the reference stays dangling.
func TestLower_PassOrderRequired(t *testing.T) {
	table := newTestTable()
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(),
		ir.CoerceType{TargetTypes: []string{"Animal"}},
		localFieldFilter("age", "$min_age"),
		ir.MarkLocation{Location: locChild},
		ir.Backtrack{Location: locRoot},
		ir.GlobalOperationsStart{},
	}

	// Wrong order: hoist, then resolve.
	hoisted, err := HoistOptionalFilters(blocks, table)
	require.NoError(t, err)
	wrong, err := ResolveLocalFields(hoisted)
	require.NoError(t, err)
	assert.Equal(t, 1, countLocalFields(wrong),
		"hoisting before resolution strands the LocalField")

	// Documented order: resolve, then hoist.
	resolved, err := ResolveLocalFields(blocks)
	require.NoError(t, err)
	right, err := HoistOptionalFilters(resolved, table)
	require.NoError(t, err)
	assert.Zero(t, countLocalFields(right))
}

func TestLower_FaultsPropagateUnwrapped(t *testing.T) {
	// The driver lets pass faults through without wrapping, so the
	// caller can distinguish compiler bugs via the error code.
	blocks := []ir.Block{
		ir.QueryRoot{StartClasses: []string{"Animal"}},
		ir.MarkLocation{Location: locRoot},
		optionalTraverse(), // no MarkLocation follows
	}

	_, err := Lower(blocks, newTestTable())
	require.Error(t, err)

	var ie *InternalError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeMalformedIR, ie.Code)
	assert.Equal(t, "InsertTypeBounds", ie.Pass)
}
