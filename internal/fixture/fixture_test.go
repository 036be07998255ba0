package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/traverql/internal/ir"
)

const optionalFilterFixture = `
query: {
	locations: {
		root: {path: ["Animal"], typeName: "Animal"}
		child: {
			path: ["Animal", "out_Animal_ParentOf"]
			typeName:      "Animal"
			optionalDepth: 1
		}
	}
	blocks: [
		{kind: "QueryRoot", startClasses: ["Animal"]},
		{kind: "MarkLocation", location: "root"},
		{kind: "Traverse", direction: "out", edgeName: "Animal_ParentOf", optional: true},
		{kind: "Filter", predicate: {
			kind:     "BinaryComposition"
			operator: ">="
			left: {kind: "LocalField", fieldName: "age", fieldType: "Int"}
			right: {kind: "Variable", name: "$min_age", type: "Int"}
		}},
		{kind: "MarkLocation", location: "child"},
		{kind: "Backtrack", location: "root"},
		{kind: "GlobalOperationsStart"},
	]
}
`

func compileString(t *testing.T, src string) (*Fixture, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return Compile(v.LookupPath(cue.ParsePath("query")))
}

func TestCompile_OptionalFilterFixture(t *testing.T) {
	fix, err := compileString(t, optionalFilterFixture)
	require.NoError(t, err)

	require.Len(t, fix.Blocks, 7)
	require.NoError(t, ir.ValidateBlocks(fix.Blocks))

	traverse, ok := fix.Blocks[2].(ir.Traverse)
	require.True(t, ok)
	assert.True(t, traverse.Optional)
	assert.Equal(t, ir.EdgeOut, traverse.Direction)

	filter, ok := fix.Blocks[3].(ir.Filter)
	require.True(t, ok)
	comp, ok := filter.Predicate.(ir.BinaryComposition)
	require.True(t, ok)
	assert.Equal(t, ir.LocalField{FieldName: "age", FieldType: "Int"}, comp.Left)
	assert.Equal(t, ir.Variable{Name: "$min_age", Type: "Int"}, comp.Right)

	child := ir.NewVertexLocation("Animal", "out_Animal_ParentOf")
	info, err := fix.Metadata.LocationInfo(child)
	require.NoError(t, err)
	assert.Equal(t, 1, info.OptionalScopesDepth)
}

func TestCompile_FoldAndRevisitLocations(t *testing.T) {
	src := `
query: {
	locations: {
		root: {path: ["Animal"], typeName: "Animal"}
		rootAgain: {path: ["Animal"], visit: 1, typeName: "Animal", revisitOf: "root"}
		pets: {
			path: ["Animal"]
			foldPath: ["out_Animal_OfSpecies"]
			typeName: "Species"
		}
	}
	blocks: [
		{kind: "QueryRoot", startClasses: ["Animal"]},
		{kind: "MarkLocation", location: "root"},
		{kind: "Fold", location: "pets"},
		{kind: "MarkLocation", location: "pets"},
		{kind: "Backtrack", location: "root"},
		{kind: "MarkLocation", location: "rootAgain"},
		{kind: "GlobalOperationsStart"},
	]
}
`
	fix, err := compileString(t, src)
	require.NoError(t, err)

	fold, ok := fix.Blocks[2].(ir.Fold)
	require.True(t, ok)
	assert.Equal(t, []string{"out_Animal_OfSpecies"}, fold.Fold.FoldPath)

	foldInfo, err := fix.Metadata.LocationInfo(fold.Fold)
	require.NoError(t, err)
	assert.True(t, foldInfo.InFoldScope)

	revisit := ir.NewVertexLocation("Animal").Revisit()
	origin, ok := fix.Metadata.RevisitOrigin(revisit)
	require.True(t, ok)
	assert.Equal(t, "Animal", origin.Key())
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		message string
	}{
		{
			name: "missing locations section",
			src: `query: {
	blocks: [{kind: "GlobalOperationsStart"}]
}`,
			message: "locations section is required",
		},
		{
			name: "unknown block kind",
			src: `query: {
	locations: {root: {path: ["Animal"], typeName: "Animal"}}
	blocks: [{kind: "OutputSource"}]
}`,
			message: "unknown block kind",
		},
		{
			name: "unknown location reference",
			src: `query: {
	locations: {root: {path: ["Animal"], typeName: "Animal"}}
	blocks: [{kind: "MarkLocation", location: "ghost"}]
}`,
			message: "unknown location",
		},
		{
			name: "float literal forbidden",
			src: `query: {
	locations: {root: {path: ["Animal"], typeName: "Animal"}}
	blocks: [
		{kind: "Filter", predicate: {kind: "Literal", value: 1.5}},
	]
}`,
			message: "float literals are forbidden",
		},
		{
			name: "revisit of unknown origin",
			src: `query: {
	locations: {
		again: {path: ["Animal"], visit: 1, typeName: "Animal", revisitOf: "ghost"}
	}
	blocks: [{kind: "GlobalOperationsStart"}]
}`,
			message: "unknown origin location",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := compileString(t, tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "optional_filter.cue")
	require.NoError(t, os.WriteFile(path, []byte(optionalFilterFixture), 0o644))

	fix, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, fix.Blocks, 7)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
}
