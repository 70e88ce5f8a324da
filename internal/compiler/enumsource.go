package compiler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// Tags of structured enum source values.
const (
	sourceValueInteger = "integerSourceValue"
	sourceValueString  = "stringSourceValue"
	sourceValueEnum    = "enumSourceValue"
)

// structuredSourceValue is the tagged encoding of one source value.
type structuredSourceValue struct {
	Type        string          `json:"_type"`
	Enumeration string          `json:"enumeration,omitempty"`
	Value       json.RawMessage `json:"value"`
}

// flaggedSourceValue is the oldest encoding: one object per enum value
// whose _type says how to read values.
type flaggedSourceValue struct {
	Type     string            `json:"_type"`
	Values   []json.RawMessage `json:"values,omitempty"`
	FullPath string            `json:"fullPath,omitempty"`
	Value    string            `json:"value,omitempty"`
}

func isStructuredSourceValue(raw json.RawMessage) bool {
	var v structuredSourceValue
	if !isJSONObject(raw) || json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch v.Type {
	case sourceValueInteger, sourceValueString, sourceValueEnum:
		return true
	}
	return false
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// enumerationMappingID is the declared id or the enumeration path with
// "::" replaced by "_".
func enumerationMappingID(em ast.EnumerationMapping) string {
	if em.ID != "" {
		return em.ID
	}
	return strings.ReplaceAll(em.Enumeration.Path, packageSeparator, "_")
}

// buildEnumerationMapping compiles em. Within one mapping the source values
// are either all structured or all in one of the legacy encodings.
func (m *PureModel) buildEnumerationMapping(ctx *CompileContext, em ast.EnumerationMapping, parent *graph.Mapping) (*graph.EnumerationMapping, error) {
	all := lo.FlatMap(em.EnumValueMappings, func(v ast.EnumValueMapping, _ int) []json.RawMessage { return v.SourceValues })
	structured := lo.CountBy(all, isStructuredSourceValue)
	if structured > 0 && structured < len(all) {
		return nil, report.Errorf(em.SourceInformation, "Mixed formats for enum value mapping source values")
	}
	enumSrc := em.Enumeration.SourceInformation
	if enumSrc.IsUnknown() {
		enumSrc = em.SourceInformation
	}
	e, err := ctx.ResolveEnumeration(em.Enumeration.Path, enumSrc)
	if err != nil {
		return nil, err
	}
	out := &graph.EnumerationMapping{
		Name:        enumerationMappingID(em),
		Enumeration: e,
		Parent:      parent,
		Source:      em.SourceInformation,
	}
	for _, v := range em.EnumValueMappings {
		value, err := m.EnumValue(e, v.EnumValue, em.SourceInformation)
		if err != nil {
			return nil, err
		}
		sources, err := decodeSourceValues(ctx, em, v.SourceValues)
		if err != nil {
			return nil, err
		}
		out.EnumValueMappings = append(out.EnumValueMappings, &graph.EnumValueMapping{Enum: value, SourceValues: sources})
	}
	return out, nil
}

// decodeSourceValues picks the encoding by the shape of the values: all
// structured, then a single flagged object, then the mapping's source type
// hint, then bare scalars. Integers always decode to int64.
func decodeSourceValues(ctx *CompileContext, em ast.EnumerationMapping, values []json.RawMessage) ([]any, error) {
	if len(values) > 0 && lo.EveryBy(values, isStructuredSourceValue) {
		out := make([]any, 0, len(values))
		for _, raw := range values {
			v, err := decodeStructured(ctx, em.SourceInformation, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	if len(values) == 1 && isJSONObject(values[0]) {
		var flagged flaggedSourceValue
		if err := json.Unmarshal(values[0], &flagged); err != nil {
			return nil, report.Errorf(em.SourceInformation, "Can't read enumeration mapping source value: %s", err)
		}
		return decodeFlagged(ctx, em.SourceInformation, flagged)
	}
	if em.SourceType != "" {
		return decodeWithSourceType(ctx, em, values)
	}
	out := make([]any, 0, len(values))
	for _, raw := range values {
		v, err := decodeScalar(raw)
		if err != nil {
			return nil, report.Errorf(em.SourceInformation, "Can't read enumeration mapping source value: %s", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeStructured(ctx *CompileContext, src report.SourceInformation, raw json.RawMessage) (any, error) {
	var v structuredSourceValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, report.Errorf(src, "Can't read enumeration mapping source value: %s", err)
	}
	switch v.Type {
	case sourceValueInteger:
		var n int64
		if err := json.Unmarshal(v.Value, &n); err != nil {
			return nil, report.Errorf(src, "Integer source value must be an integer: %s", err)
		}
		return n, nil
	case sourceValueString:
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return nil, report.Errorf(src, "String source value must be a string: %s", err)
		}
		return s, nil
	default:
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return nil, report.Errorf(src, "Enum source value must name an enum value: %s", err)
		}
		return ctx.ResolveEnumValue(v.Enumeration, s, src, src)
	}
}

// decodeFlagged reads the type-flagged encoding. A collection flattens its
// members into one list.
func decodeFlagged(ctx *CompileContext, src report.SourceInformation, v flaggedSourceValue) ([]any, error) {
	switch v.Type {
	case "string":
		out := make([]any, 0, len(v.Values))
		for _, raw := range v.Values {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, report.Errorf(src, "String source value must be a string: %s", err)
			}
			out = append(out, s)
		}
		return out, nil
	case "integer":
		out := make([]any, 0, len(v.Values))
		for _, raw := range v.Values {
			var n int64
			if err := json.Unmarshal(raw, &n); err != nil {
				return nil, report.Errorf(src, "Integer source value must be an integer: %s", err)
			}
			out = append(out, n)
		}
		return out, nil
	case "enumValue":
		e, err := ctx.ResolveEnumValue(v.FullPath, v.Value, src, src)
		if err != nil {
			return nil, err
		}
		return []any{e}, nil
	case "collection":
		var out []any
		for _, raw := range v.Values {
			var member flaggedSourceValue
			if err := json.Unmarshal(raw, &member); err != nil {
				return nil, report.Errorf(src, "Can't read enumeration mapping source value: %s", err)
			}
			values, err := decodeFlagged(ctx, src, member)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	}
	return nil, report.Unsupported("Type '%s' is not supported in enumeration mapping", v.Type)
}

func decodeWithSourceType(ctx *CompileContext, em ast.EnumerationMapping, values []json.RawMessage) ([]any, error) {
	src := em.SourceInformation
	out := make([]any, 0, len(values))
	for _, raw := range values {
		v, err := decodeScalar(raw)
		if err != nil {
			return nil, report.Errorf(src, "Can't read enumeration mapping source value: %s", err)
		}
		switch strings.ToUpper(em.SourceType) {
		case "STRING":
		case "INTEGER":
			if s, ok := v.(string); ok {
				n, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return nil, report.Errorf(src, "Source value '%s' is not an integer", s)
				}
				v = n
			}
		default:
			s, ok := v.(string)
			if !ok {
				return nil, report.Errorf(src, "Source value of type '%s' must name an enum value", em.SourceType)
			}
			if v, err = ctx.ResolveEnumValue(em.SourceType, s, src, src); err != nil {
				return nil, err
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// decodeScalar reads a bare JSON scalar. Integral numbers become int64,
// other numbers float64.
func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return v, nil
}

// sourceValueType returns the type of a decoded source value, or nil when
// it has no type the compiler can check against.
func (m *PureModel) sourceValueType(v any) graph.Type {
	switch x := v.(type) {
	case string:
		return m.sys.String
	case int64:
		return m.sys.Integer
	case *graph.Enum:
		return x.Enumeration
	}
	return nil
}
