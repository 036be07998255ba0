package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for a block sequence.
// This is the ONLY serialization used for fingerprinting and golden
// comparison; byte equality of the output implies semantic equality of
// the sequences.
//
// Key differences from standard json.Marshal:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. No floats (returns error)
func MarshalCanonical(blocks []Block) ([]byte, error) {
	encoded, err := EncodeBlocks(blocks)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(encoded)
}

// EncodeBlocks converts a block sequence into its plain canonical form
// (maps, slices, and scalars) without serializing it. Callers that embed
// blocks inside a larger document pass the result to
// MarshalCanonicalValue.
func EncodeBlocks(blocks []Block) ([]any, error) {
	encoded := make([]any, len(blocks))
	for i, block := range blocks {
		m, err := encodeBlock(block)
		if err != nil {
			return nil, fmt.Errorf("block[%d]: %w", i, err)
		}
		encoded[i] = m
	}
	return encoded, nil
}

// MarshalCanonicalValue produces RFC 8785 canonical JSON for an
// already-plain value: strings, ints, bools, []any, and map[string]any.
// Floats and nil are rejected, same as MarshalCanonical.
func MarshalCanonicalValue(v any) ([]byte, error) {
	return marshalCanonical(v)
}

// encodeBlock converts a block into a canonical map representation.
// Every map carries a "kind" discriminator matching the Go type name.
func encodeBlock(block Block) (map[string]any, error) {
	switch b := block.(type) {
	case QueryRoot:
		return map[string]any{"kind": "QueryRoot", "startClasses": toAnySlice(b.StartClasses)}, nil
	case Traverse:
		return map[string]any{
			"kind":      "Traverse",
			"direction": string(b.Direction),
			"edgeName":  b.EdgeName,
			"optional":  b.Optional,
		}, nil
	case Recurse:
		return map[string]any{
			"kind":      "Recurse",
			"direction": string(b.Direction),
			"edgeName":  b.EdgeName,
			"depth":     b.Depth,
		}, nil
	case Fold:
		return map[string]any{"kind": "Fold", "fold": encodeLocation(b.Fold)}, nil
	case Backtrack:
		return map[string]any{"kind": "Backtrack", "location": encodeLocation(b.Location)}, nil
	case MarkLocation:
		return map[string]any{"kind": "MarkLocation", "location": encodeLocation(b.Location)}, nil
	case CoerceType:
		return map[string]any{"kind": "CoerceType", "targetTypes": toAnySlice(b.TargetTypes)}, nil
	case Filter:
		pred, err := encodeExpression(b.Predicate)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "Filter", "predicate": pred}, nil
	case GlobalOperationsStart:
		return map[string]any{"kind": "GlobalOperationsStart"}, nil
	case ConstructResult:
		fields := make(map[string]any, len(b.Fields))
		for name, expr := range b.Fields {
			enc, err := encodeExpression(expr)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = enc
		}
		return map[string]any{"kind": "ConstructResult", "fields": fields}, nil
	default:
		return nil, fmt.Errorf("unknown block type: %T", block)
	}
}

// encodeLocation converts a location into a canonical map representation.
func encodeLocation(loc Location) map[string]any {
	switch l := loc.(type) {
	case VertexLocation:
		m := map[string]any{"type": "vertex", "path": toAnySlice(l.Path)}
		if l.Visit > 0 {
			m["visit"] = l.Visit
		}
		if l.FieldName != "" {
			m["field"] = l.FieldName
		}
		return m
	case FoldLocation:
		m := map[string]any{
			"type":     "fold",
			"base":     encodeLocation(l.Base),
			"foldPath": toAnySlice(l.FoldPath),
		}
		if l.FieldName != "" {
			m["field"] = l.FieldName
		}
		return m
	default:
		// Location is sealed; this is unreachable for in-package types.
		return map[string]any{"type": "unknown", "key": loc.Key()}
	}
}

// encodeExpression converts an expression tree into canonical maps.
func encodeExpression(expr Expression) (map[string]any, error) {
	switch e := expr.(type) {
	case LocalField:
		m := map[string]any{"kind": "LocalField", "fieldName": e.FieldName}
		if e.FieldType != "" {
			m["fieldType"] = e.FieldType
		}
		return m, nil
	case ContextField:
		m := map[string]any{"kind": "ContextField", "location": encodeLocation(e.Location)}
		if e.FieldType != "" {
			m["fieldType"] = e.FieldType
		}
		return m, nil
	case FoldedContextField:
		m := map[string]any{"kind": "FoldedContextField", "fold": encodeLocation(e.Fold)}
		if e.FieldType != "" {
			m["fieldType"] = e.FieldType
		}
		return m, nil
	case Literal:
		return map[string]any{"kind": "Literal", "value": e.Value}, nil
	case Variable:
		m := map[string]any{"kind": "Variable", "name": e.Name}
		if e.Type != "" {
			m["type"] = e.Type
		}
		return m, nil
	case BinaryComposition:
		left, err := encodeExpression(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeExpression(e.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":     "BinaryComposition",
			"operator": e.Operator,
			"left":     left,
			"right":    right,
		}, nil
	default:
		return nil, fmt.Errorf("unknown expression type: %T", expr)
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// marshalCanonical serializes primitives, slices, and maps in canonical
// form. Floats and nulls are rejected.
func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		return marshalCanonicalArray(val)
	case map[string]any:
		return marshalCanonicalObject(val)
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization. RFC 8785 compliance:
//   - No HTML escaping (<, >, & are NOT escaped)
//   - U+2028 and U+2029 are NOT escaped
//   - Only control characters, backslash, and quote are escaped
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it.
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}

	// Go's encoder escapes U+2028/U+2029 for JavaScript compatibility;
	// RFC 8785 requires them literal.
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators rewrites \u2028 and \u2029 escape sequences into
// literal characters. The input is a single encoded JSON string token, so
// every backslash starts an escape sequence; pairs that are not \u2028 or
// \u2029 are copied verbatim.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		if data[i] == '\\' && i+5 < len(data) && data[i+1] == 'u' &&
			data[i+2] == '2' && data[i+3] == '0' && data[i+4] == '2' &&
			(data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 6
			continue
		}
		if data[i] == '\\' && i+1 < len(data) {
			// Some other escape sequence, copy the pair untouched.
			out = append(out, data[i], data[i+1])
			i += 2
			continue
		}
		out = append(out, data[i])
		i++
	}
	return out
}

func marshalCanonicalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := marshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalObject(obj map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := sortedKeysRFC8785(obj)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := marshalCanonical(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// sortedKeysRFC8785 returns keys in RFC 8785 canonical order (UTF-16 code
// units). Go's sort.Strings uses UTF-8 which produces a DIFFERENT order
// for strings outside the ASCII range.
func sortedKeysRFC8785(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units as required by
// RFC 8785. unicode/utf16.Encode handles surrogate pairs correctly.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
