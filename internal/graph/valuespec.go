package graph

import "github.com/foundry-zero/purec/internal/report"

// ValueSpecification is a compiled expression node. Every node carries its
// inferred generic type and multiplicity.
type ValueSpecification interface {
	GenericType() *GenericType
	Multiplicity() *Multiplicity
	Source() report.SourceInformation
}

// ExprBase is embedded by every expression node.
type ExprBase struct {
	GenType *GenericType
	Mult    *Multiplicity
	Src     report.SourceInformation
}

func (e *ExprBase) GenericType() *GenericType       { return e.GenType }
func (e *ExprBase) Multiplicity() *Multiplicity     { return e.Mult }
func (e *ExprBase) Source() report.SourceInformation { return e.Src }

// RawType returns the raw type of an expression, or nil.
func RawType(v ValueSpecification) Type {
	if v == nil || v.GenericType() == nil {
		return nil
	}
	return v.GenericType().RawType
}

// InstanceValue is a constant. Values hold Go scalars (string, int64,
// float64, bool), enum values, elements, lambdas or graph fetch trees.
type InstanceValue struct {
	ExprBase
	Values []any
}

// VariableExpression is a reference to a named variable.
type VariableExpression struct {
	ExprBase
	Name string
}

// SimpleFunctionExpression is a resolved application of a function or a
// property. PropertyName is set for property applications.
type SimpleFunctionExpression struct {
	ExprBase
	FunctionName string
	Func         Callable
	Parameters   []ValueSpecification
	PropertyName string

	// Dates are the milestoning dates in force after this expression.
	Dates *MilestoningDates
	// OriginalMilestonedPropertyParameters keep the arguments the author
	// passed before dates were filled in from context.
	OriginalMilestonedPropertyParameters []ValueSpecification
}

// LambdaFunction is a compiled lambda. Its generic type wraps Type.
type LambdaFunction struct {
	ExprBase
	Parameters    []*VariableExpression
	Expressions   []ValueSpecification
	OpenVariables []string
	Type          *FunctionType
}

// Last returns the final body expression, which determines the lambda's
// result.
func (l *LambdaFunction) Last() ValueSpecification {
	if len(l.Expressions) == 0 {
		return nil
	}
	return l.Expressions[len(l.Expressions)-1]
}

// RootGraphFetchTree is the root of a graph fetch tree over Class.
type RootGraphFetchTree struct {
	ExprBase
	Class    *Class
	SubTrees []*PropertyGraphFetchTree
}

// PropertyGraphFetchTree selects one property, optionally narrowed to a
// subtype, and its own subtrees.
type PropertyGraphFetchTree struct {
	ExprBase
	Property   Callable
	Parameters []ValueSpecification
	Alias      string
	SubType    Type
	SubTrees   []*PropertyGraphFetchTree
}
