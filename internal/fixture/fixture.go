package fixture

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/metadata"
)

// Fixture is a compiled query ready for lowering: the block sequence and
// the metadata table the front end would have produced alongside it.
type Fixture struct {
	Blocks   []ir.Block
	Metadata *metadata.Table
}

// Load reads and compiles a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	queryVal := v.LookupPath(cue.ParsePath("query"))
	if !queryVal.Exists() {
		return nil, &CompileError{
			Field:   "query",
			Message: "fixture must have a top-level query section",
			Pos:     v.Pos(),
		}
	}
	return Compile(queryVal)
}

// Compile parses a CUE value into a Fixture. Uses the CUE SDK's Go API
// directly (not a CLI subprocess).
//
// The CUE value should be the query struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: {locations: ..., blocks: ...}`)
//	fix, err := fixture.Compile(v.LookupPath(cue.ParsePath("query")))
func Compile(v cue.Value) (*Fixture, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	locations, table, err := parseLocations(v)
	if err != nil {
		return nil, err
	}

	blocks, err := parseBlocks(v, locations)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, &CompileError{
			Field:   "blocks",
			Message: "at least one block is required",
			Pos:     v.Pos(),
		}
	}

	return &Fixture{Blocks: blocks, Metadata: table}, nil
}

// parseLocations builds the named-location map and registers each
// location's facts (and any revisit translations) in a fresh table.
func parseLocations(v cue.Value) (map[string]ir.Location, *metadata.Table, error) {
	locations := make(map[string]ir.Location)
	table := metadata.NewTable()

	locVal := v.LookupPath(cue.ParsePath("locations"))
	if !locVal.Exists() {
		return nil, nil, &CompileError{
			Field:   "locations",
			Message: "locations section is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := locVal.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}

	type revisitEntry struct {
		name   string
		origin string
		pos    token.Pos
	}
	var revisits []revisitEntry

	for iter.Next() {
		name := iter.Label()
		entry := iter.Value()

		loc, info, err := parseLocationEntry(name, entry)
		if err != nil {
			return nil, nil, err
		}
		locations[name] = loc
		table.RegisterLocation(loc, info)

		originVal := entry.LookupPath(cue.ParsePath("revisitOf"))
		if originVal.Exists() {
			origin, err := originVal.String()
			if err != nil {
				return nil, nil, formatCUEError(err)
			}
			revisits = append(revisits, revisitEntry{name: name, origin: origin, pos: entry.Pos()})
		}
	}

	// Revisit origins may be declared after their revisits, so resolve
	// them once all locations are known.
	for _, r := range revisits {
		origin, ok := locations[r.origin]
		if !ok {
			return nil, nil, &CompileError{
				Field:   fmt.Sprintf("locations.%s.revisitOf", r.name),
				Message: fmt.Sprintf("unknown origin location %q", r.origin),
				Pos:     r.pos,
			}
		}
		table.RegisterRevisit(locations[r.name], origin)
	}

	return locations, table, nil
}

// parseLocationEntry decodes one named location and its recorded facts.
func parseLocationEntry(name string, v cue.Value) (ir.Location, metadata.LocationInfo, error) {
	var info metadata.LocationInfo

	path, err := stringList(v.LookupPath(cue.ParsePath("path")))
	if err != nil {
		return nil, info, &CompileError{
			Field:   fmt.Sprintf("locations.%s.path", name),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	typeVal := v.LookupPath(cue.ParsePath("typeName"))
	if !typeVal.Exists() {
		return nil, info, &CompileError{
			Field:   fmt.Sprintf("locations.%s.typeName", name),
			Message: "typeName is required",
			Pos:     v.Pos(),
		}
	}
	info.TypeName, err = typeVal.String()
	if err != nil {
		return nil, info, formatCUEError(err)
	}

	if depthVal := v.LookupPath(cue.ParsePath("optionalDepth")); depthVal.Exists() {
		depth, err := depthVal.Int64()
		if err != nil {
			return nil, info, formatCUEError(err)
		}
		info.OptionalScopesDepth = int(depth)
	}

	visit := 0
	if visitVal := v.LookupPath(cue.ParsePath("visit")); visitVal.Exists() {
		n, err := visitVal.Int64()
		if err != nil {
			return nil, info, formatCUEError(err)
		}
		visit = int(n)
	}

	vertex := ir.VertexLocation{Path: path, Visit: visit}

	if foldVal := v.LookupPath(cue.ParsePath("foldPath")); foldVal.Exists() {
		foldPath, err := stringList(foldVal)
		if err != nil {
			return nil, info, &CompileError{
				Field:   fmt.Sprintf("locations.%s.foldPath", name),
				Message: err.Error(),
				Pos:     v.Pos(),
			}
		}
		info.InFoldScope = true
		return ir.FoldLocation{Base: vertex, FoldPath: foldPath}, info, nil
	}

	return vertex, info, nil
}

// parseBlocks decodes the blocks list, resolving location names.
func parseBlocks(v cue.Value, locations map[string]ir.Location) ([]ir.Block, error) {
	blocksVal := v.LookupPath(cue.ParsePath("blocks"))
	if !blocksVal.Exists() {
		return nil, &CompileError{
			Field:   "blocks",
			Message: "blocks section is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := blocksVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var blocks []ir.Block
	for iter.Next() {
		block, err := parseBlock(iter.Value(), locations)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// parseBlock decodes a single block by its kind discriminator.
func parseBlock(v cue.Value, locations map[string]ir.Location) (ir.Block, error) {
	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}

	switch kind {
	case "QueryRoot":
		classes, err := stringList(v.LookupPath(cue.ParsePath("startClasses")))
		if err != nil {
			return nil, &CompileError{Field: "startClasses", Message: err.Error(), Pos: v.Pos()}
		}
		return ir.QueryRoot{StartClasses: classes}, nil

	case "Traverse":
		direction, err := requiredString(v, "direction")
		if err != nil {
			return nil, err
		}
		edgeName, err := requiredString(v, "edgeName")
		if err != nil {
			return nil, err
		}
		optional := false
		if optVal := v.LookupPath(cue.ParsePath("optional")); optVal.Exists() {
			optional, err = optVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}
		return ir.Traverse{Direction: ir.EdgeDirection(direction), EdgeName: edgeName, Optional: optional}, nil

	case "Recurse":
		direction, err := requiredString(v, "direction")
		if err != nil {
			return nil, err
		}
		edgeName, err := requiredString(v, "edgeName")
		if err != nil {
			return nil, err
		}
		depthVal := v.LookupPath(cue.ParsePath("depth"))
		if !depthVal.Exists() {
			return nil, &CompileError{Field: "depth", Message: "Recurse requires a depth bound", Pos: v.Pos()}
		}
		depth, err := depthVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Recurse{Direction: ir.EdgeDirection(direction), EdgeName: edgeName, Depth: int(depth)}, nil

	case "Fold":
		loc, err := locationRef(v, "location", locations)
		if err != nil {
			return nil, err
		}
		fold, ok := loc.(ir.FoldLocation)
		if !ok {
			return nil, &CompileError{
				Field:   "location",
				Message: "Fold requires a fold-scope location (one with a foldPath)",
				Pos:     v.Pos(),
			}
		}
		return ir.Fold{Fold: fold}, nil

	case "Backtrack":
		loc, err := locationRef(v, "location", locations)
		if err != nil {
			return nil, err
		}
		return ir.Backtrack{Location: loc}, nil

	case "MarkLocation":
		loc, err := locationRef(v, "location", locations)
		if err != nil {
			return nil, err
		}
		return ir.MarkLocation{Location: loc}, nil

	case "CoerceType":
		types, err := stringList(v.LookupPath(cue.ParsePath("targetTypes")))
		if err != nil {
			return nil, &CompileError{Field: "targetTypes", Message: err.Error(), Pos: v.Pos()}
		}
		return ir.CoerceType{TargetTypes: types}, nil

	case "Filter":
		predVal := v.LookupPath(cue.ParsePath("predicate"))
		if !predVal.Exists() {
			return nil, &CompileError{Field: "predicate", Message: "Filter requires a predicate", Pos: v.Pos()}
		}
		pred, err := parseExpression(predVal, locations)
		if err != nil {
			return nil, err
		}
		return ir.Filter{Predicate: pred}, nil

	case "GlobalOperationsStart":
		return ir.GlobalOperationsStart{}, nil

	case "ConstructResult":
		fieldsVal := v.LookupPath(cue.ParsePath("fields"))
		if !fieldsVal.Exists() {
			return nil, &CompileError{Field: "fields", Message: "ConstructResult requires fields", Pos: v.Pos()}
		}
		iter, err := fieldsVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		fields := make(map[string]ir.Expression)
		for iter.Next() {
			expr, err := parseExpression(iter.Value(), locations)
			if err != nil {
				return nil, err
			}
			fields[iter.Label()] = expr
		}
		return ir.ConstructResult{Fields: fields}, nil

	default:
		return nil, &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown block kind %q", kind),
			Pos:     v.Pos(),
		}
	}
}

// parseExpression decodes an expression tree by its kind discriminator.
func parseExpression(v cue.Value, locations map[string]ir.Location) (ir.Expression, error) {
	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}

	switch kind {
	case "LocalField":
		fieldName, err := requiredString(v, "fieldName")
		if err != nil {
			return nil, err
		}
		fieldType, _ := optionalString(v, "fieldType")
		return ir.LocalField{FieldName: fieldName, FieldType: fieldType}, nil

	case "ContextField":
		loc, err := locationRef(v, "location", locations)
		if err != nil {
			return nil, err
		}
		field, err := requiredString(v, "field")
		if err != nil {
			return nil, err
		}
		fieldType, _ := optionalString(v, "fieldType")
		return ir.ContextField{Location: loc.NavigateToField(field), FieldType: fieldType}, nil

	case "FoldedContextField":
		loc, err := locationRef(v, "location", locations)
		if err != nil {
			return nil, err
		}
		field, err := requiredString(v, "field")
		if err != nil {
			return nil, err
		}
		fold, ok := loc.(ir.FoldLocation)
		if !ok {
			return nil, &CompileError{
				Field:   "location",
				Message: "FoldedContextField requires a fold-scope location",
				Pos:     v.Pos(),
			}
		}
		fieldType, _ := optionalString(v, "fieldType")
		qualified := fold.NavigateToField(field).(ir.FoldLocation)
		return ir.FoldedContextField{Fold: qualified, FieldType: fieldType}, nil

	case "Literal":
		value, err := literalValue(v.LookupPath(cue.ParsePath("value")))
		if err != nil {
			return nil, err
		}
		return ir.Literal{Value: value}, nil

	case "Variable":
		name, err := requiredString(v, "name")
		if err != nil {
			return nil, err
		}
		varType, _ := optionalString(v, "type")
		return ir.Variable{Name: name, Type: varType}, nil

	case "BinaryComposition":
		operator, err := requiredString(v, "operator")
		if err != nil {
			return nil, err
		}
		left, err := parseExpression(v.LookupPath(cue.ParsePath("left")), locations)
		if err != nil {
			return nil, err
		}
		right, err := parseExpression(v.LookupPath(cue.ParsePath("right")), locations)
		if err != nil {
			return nil, err
		}
		return ir.BinaryComposition{Operator: operator, Left: left, Right: right}, nil

	default:
		return nil, &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown expression kind %q", kind),
			Pos:     v.Pos(),
		}
	}
}

// literalValue converts a CUE scalar to a Go value. Floats are rejected:
// the canonical encoding forbids them, so they may not enter the IR.
func literalValue(v cue.Value) (any, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "value", Message: "Literal requires a value", Pos: v.Pos()}
	}
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		return v.Int64()
	case cue.BoolKind:
		return v.Bool()
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float literals are forbidden - the canonical encoding has no float representation",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported literal kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// locationRef resolves a by-name location reference.
func locationRef(v cue.Value, field string, locations map[string]ir.Location) (ir.Location, error) {
	name, err := requiredString(v, field)
	if err != nil {
		return nil, err
	}
	loc, ok := locations[name]
	if !ok {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown location %q", name),
			Pos:     v.Pos(),
		}
	}
	return loc, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return "", false
	}
	s, err := fieldVal.String()
	if err != nil {
		return "", false
	}
	return s, true
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, fmt.Errorf("list is required")
	}
	iter, err := v.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a fixture compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
