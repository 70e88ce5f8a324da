package graph

import (
	"strings"

	"github.com/foundry-zero/purec/internal/report"
)

// Callable is anything a SimpleFunctionExpression can apply: a concrete or
// native function, a property or a qualified property.
type Callable interface {
	CallableName() string
}

// FunctionDefinition is a packageable function, user-defined or native.
type FunctionDefinition interface {
	Element
	Callable
	Signature() *FunctionType
}

// ConcreteFunction is a user-defined function. Its element name is the
// terse signature; FunctionName is the plain name used at call sites.
type ConcreteFunction struct {
	ElementBase
	Staged
	FunctionName       string
	Parameters         []*VariableExpression
	ReturnType         *GenericType
	ReturnMultiplicity *Multiplicity
	Expressions        []ValueSpecification
	PreConstraints     []*Constraint
	PostConstraints    []*Constraint
	Tests              []*FunctionTest
}

func (f *ConcreteFunction) CallableName() string { return f.FunctionName }

func (f *ConcreteFunction) Signature() *FunctionType {
	return &FunctionType{Parameters: f.Parameters, ReturnType: f.ReturnType, ReturnMultiplicity: f.ReturnMultiplicity}
}

// NativeFunction is a function of the system library. Its parameters describe
// its declared shape; type inference for its result lives with its handler.
type NativeFunction struct {
	ElementBase
	FunctionName       string
	Parameters         []*VariableExpression
	ReturnType         *GenericType
	ReturnMultiplicity *Multiplicity
}

func (f *NativeFunction) CallableName() string { return f.FunctionName }

func (f *NativeFunction) Signature() *FunctionType {
	return &FunctionType{Parameters: f.Parameters, ReturnType: f.ReturnType, ReturnMultiplicity: f.ReturnMultiplicity}
}

// SignatureParam is the declared type path and multiplicity of one parameter.
type SignatureParam struct {
	Type         string
	Multiplicity *Multiplicity
}

// TerseSignature renders the overload-distinguishing element name of a
// function, name_P1_m1__P2_m2__Ret_m_, from the declared type paths. The
// suffix is only appended when the name does not already carry it.
func TerseSignature(name string, params []SignatureParam, returnType string, returnMult *Multiplicity) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Type == "" {
			continue
		}
		parts = append(parts, lastSegment(p.Type)+"_"+p.Multiplicity.Signature())
	}
	suffix := "_" + strings.Join(parts, "__") + "__" + lastSegment(returnType) + "_" + returnMult.Signature() + "_"
	if strings.HasSuffix(name, suffix) {
		return name
	}
	return name + suffix
}

// FunctionNameWithoutSignature strips a terse signature suffix from name,
// leaving the name used at call sites.
func FunctionNameWithoutSignature(name string, params []SignatureParam, returnType string, returnMult *Multiplicity) string {
	return strings.TrimSuffix(name, TerseSignature("", params, returnType, returnMult))
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return path[i+2:]
	}
	return path
}

// FunctionTest is a test case attached to a concrete function.
type FunctionTest struct {
	ID         string
	Parameters []*ParameterValue
	Assertion  *TestAssertion
	Source     report.SourceInformation
}

// ParameterValue binds a function parameter for a test, either to a compiled
// value or to inline external data.
type ParameterValue struct {
	Name        string
	Value       ValueSpecification
	ContentType string
	Data        string
}

// TestAssertion is the expected result of a function test.
type TestAssertion struct {
	ID          string
	Kind        string
	Expected    ValueSpecification
	ContentType string
	Data        string
}
