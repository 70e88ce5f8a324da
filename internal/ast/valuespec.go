package ast

import (
	"encoding/json"
	"fmt"

	"github.com/foundry-zero/purec/internal/report"
)

// Value specification type tags.
const (
	VSString                 = "string"
	VSInteger                = "integer"
	VSFloat                  = "float"
	VSDecimal                = "decimal"
	VSBoolean                = "boolean"
	VSDateTime               = "dateTime"
	VSStrictDate             = "strictDate"
	VSLatestDate             = "latestDate"
	VSCollection             = "collection"
	VSVariable               = "var"
	VSFunction               = "func"
	VSProperty               = "property"
	VSLambda                 = "lambda"
	VSElementPtr             = "packageableElementPtr"
	VSEnumValue              = "enumValue"
	VSClassInstance          = "classInstance"
	VSRootGraphFetchTree     = "rootGraphFetchTree"
	VSPropertyGraphFetchTree = "propertyGraphFetchTree"
)

// ValueSpecification is one node of a protocol expression tree. It is a flat
// union: which fields are meaningful depends on Type.
type ValueSpecification struct {
	Type              string                   `json:"_type"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
	Multiplicity      *Multiplicity            `json:"multiplicity,omitempty"`

	// Literals: a single Value, or the legacy Values list.
	Value json.RawMessage `json:"value,omitempty"`

	// Variables.
	Name        string       `json:"name,omitempty"`
	Class       string       `json:"class,omitempty"`
	GenericType *GenericType `json:"genericType,omitempty"`

	// Applied functions and properties.
	Function   string               `json:"function,omitempty"`
	FControl   string               `json:"fControl,omitempty"`
	Property   string               `json:"property,omitempty"`
	Parameters []ValueSpecification `json:"parameters,omitempty"`

	// Lambdas.
	Body []ValueSpecification `json:"body,omitempty"`

	// Element pointers and legacy enum values.
	FullPath string `json:"fullPath,omitempty"`

	// Graph fetch trees.
	SubTrees []ValueSpecification `json:"subTrees,omitempty"`
	SubType  string               `json:"subType,omitempty"`
	Alias    string               `json:"alias,omitempty"`

	// Class instances wrap a typed payload in Value.
	InstanceType string `json:"type,omitempty"`

	// Values holds collection items; LiteralValues holds the legacy
	// list encoding of primitive literals.
	Values        []ValueSpecification `json:"-"`
	LiteralValues []json.RawMessage    `json:"-"`

	// Raw is the undecoded node, kept for extension processors.
	Raw json.RawMessage `json:"-"`
}

func (v *ValueSpecification) UnmarshalJSON(data []byte) error {
	type plain ValueSpecification
	var p struct {
		plain
		RawValues json.RawMessage `json:"values,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = ValueSpecification(p.plain)
	v.Raw = append(json.RawMessage(nil), data...)

	if len(p.RawValues) > 0 && string(p.RawValues) != "null" {
		if v.Type == VSCollection {
			if err := json.Unmarshal(p.RawValues, &v.Values); err != nil {
				return fmt.Errorf("collection values: %w", err)
			}
		} else if err := json.Unmarshal(p.RawValues, &v.LiteralValues); err != nil {
			return fmt.Errorf("%s values: %w", v.Type, err)
		}
	}

	// classInstance envelopes around graph fetch trees are unwrapped so the
	// compiler sees one encoding.
	if v.Type == VSClassInstance && (v.InstanceType == VSRootGraphFetchTree || v.InstanceType == VSPropertyGraphFetchTree) {
		var inner ValueSpecification
		if err := json.Unmarshal(v.Value, &inner); err != nil {
			return fmt.Errorf("classInstance %s: %w", v.InstanceType, err)
		}
		if inner.Type == "" {
			inner.Type = v.InstanceType
		}
		if inner.SourceInformation.IsUnknown() {
			inner.SourceInformation = v.SourceInformation
		}
		*v = inner
	}
	return nil
}

// MarshalJSON writes the node back in its protocol shape.
func (v ValueSpecification) MarshalJSON() ([]byte, error) {
	type plain ValueSpecification
	out := struct {
		plain
		Values any `json:"values,omitempty"`
	}{plain: plain(v)}
	switch {
	case len(v.Values) > 0:
		out.Values = v.Values
	case len(v.LiteralValues) > 0:
		out.Values = v.LiteralValues
	}
	return json.Marshal(out)
}

// TypePath returns the declared type of a variable, whichever encoding carries it.
func (v ValueSpecification) TypePath() string {
	if v.GenericType != nil && v.GenericType.RawType.FullPath != "" {
		return v.GenericType.RawType.FullPath
	}
	return v.Class
}

// IsLiteral reports whether the node is a primitive literal.
func (v ValueSpecification) IsLiteral() bool {
	switch v.Type {
	case VSString, VSInteger, VSFloat, VSDecimal, VSBoolean, VSDateTime, VSStrictDate, VSLatestDate:
		return true
	}
	return false
}

// Var builds a variable node; used by tests and by the compiler when it
// synthesizes expressions.
func Var(name, class string, mult Multiplicity) ValueSpecification {
	return ValueSpecification{Type: VSVariable, Name: name, Class: class, Multiplicity: &mult}
}

// Ref builds an untyped reference to an in-scope variable.
func Ref(name string) ValueSpecification {
	return ValueSpecification{Type: VSVariable, Name: name}
}

// Func builds an applied function node.
func Func(name string, params ...ValueSpecification) ValueSpecification {
	return ValueSpecification{Type: VSFunction, Function: name, Parameters: params}
}

// Prop builds an applied property node; the receiver is the first parameter.
func Prop(receiver ValueSpecification, property string, args ...ValueSpecification) ValueSpecification {
	return ValueSpecification{Type: VSProperty, Property: property, Parameters: append([]ValueSpecification{receiver}, args...)}
}

// Lambda builds a lambda node.
func Lambda(params []ValueSpecification, body ...ValueSpecification) ValueSpecification {
	return ValueSpecification{Type: VSLambda, Parameters: params, Body: body}
}

// ElementPtr builds a packageable element pointer node.
func ElementPtr(path string) ValueSpecification {
	return ValueSpecification{Type: VSElementPtr, FullPath: path}
}

// Literal builds a primitive literal node of the given tag.
func Literal(tag string, value any) ValueSpecification {
	raw, _ := json.Marshal(value)
	return ValueSpecification{Type: tag, Value: raw}
}

// Collection builds a collection node.
func Collection(values ...ValueSpecification) ValueSpecification {
	n := len(values)
	return ValueSpecification{Type: VSCollection, Values: values, Multiplicity: &Multiplicity{LowerBound: n, UpperBound: &n}}
}
