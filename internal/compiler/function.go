package compiler

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// Function test assertion kinds.
const (
	assertEqualTo     = "equalTo"
	assertEqualToJSON = "equalToJson"
)

// returnVariable names the result inside post-conditions.
const returnVariable = "return"

// declareFunction registers a function under its terse signature and
// resolves its parameters and return type. Overloads of one name coexist
// as separate elements.
func (m *PureModel) declareFunction(f ast.Function) error {
	ctx := m.Context(f.Path())
	params := make([]graph.SignatureParam, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		params = append(params, graph.SignatureParam{Type: p.TypePath(), Multiplicity: paramMultiplicity(ctx, p)})
	}
	retMult := ctx.ResolveMultiplicity(f.ReturnMultiplicity)
	fn := &graph.ConcreteFunction{
		ElementBase:  graph.ElementBase{Name: graph.TerseSignature(f.Name, params, f.ReturnTypePath(), retMult)},
		FunctionName: graph.FunctionNameWithoutSignature(f.Name, params, f.ReturnTypePath(), retMult),
	}
	if err := m.register(f.Package, fn, f.SourceInformation); err != nil {
		return err
	}
	path := fn.Path()
	m.functions[path] = fn
	key := f.Package + packageSeparator + fn.FunctionName
	m.userFunctions[key] = append(m.userFunctions[key], fn)
	if path != f.Path() {
		m.imports[path] = m.importsOf(f.Path())
	}

	b := ctx.newBuilder(nil)
	for _, p := range f.Parameters {
		v, err := b.declare(p)
		if err != nil {
			return err
		}
		fn.Parameters = append(fn.Parameters, v)
	}
	rt, err := ctx.resolveGenericTypeAST(f.ReturnTypePath(), f.ReturnGenericType, f.SourceInformation)
	if err != nil {
		return err
	}
	fn.ReturnType, fn.ReturnMultiplicity = rt, retMult

	stereotypes, tagged, err := ctx.ResolveAnnotations(f.Annotations)
	if err != nil {
		return err
	}
	fn.Stereotypes, fn.TaggedValues = stereotypes, tagged
	return fn.Advance(graph.StageStructured)
}

func paramMultiplicity(ctx *CompileContext, p ast.ValueSpecification) *graph.Multiplicity {
	if p.Multiplicity == nil {
		return graph.PureOne
	}
	return ctx.ResolveMultiplicity(*p.Multiplicity)
}

// functionOf returns the graph function built for f in the first pass.
func (m *PureModel) functionOf(f ast.Function) *graph.ConcreteFunction {
	ctx := m.Context(f.Path())
	params := lo.Map(f.Parameters, func(p ast.ValueSpecification, _ int) graph.SignatureParam {
		return graph.SignatureParam{Type: p.TypePath(), Multiplicity: paramMultiplicity(ctx, p)}
	})
	name := graph.TerseSignature(f.Name, params, f.ReturnTypePath(), ctx.ResolveMultiplicity(f.ReturnMultiplicity))
	return m.functions[f.Package+packageSeparator+name]
}

// compileFunction compiles the body, constraints and tests of f.
func (m *PureModel) compileFunction(f ast.Function) error {
	fn := m.functionOf(f)
	ctx := m.Context(fn.Path())
	if len(f.Body) == 0 {
		return report.Errorf(f.SourceInformation, "Function '%s' has an empty body", fn.Path())
	}
	var scope *Scope
	for _, p := range fn.Parameters {
		scope = scope.Bind(p, nil)
	}

	b := ctx.newBuilder(scope)
	body := make([]graph.ValueSpecification, 0, len(f.Body))
	for _, e := range f.Body {
		v, err := b.compile(e)
		if err != nil {
			return err
		}
		body = append(body, v)
	}
	last := body[len(body)-1]
	stub := "Error in function '" + fn.Path() + "'"
	if err := checkCompatibility(graph.RawType(last), last.Multiplicity(), fn.ReturnType.RawType, fn.ReturnMultiplicity, stub, f.Body[len(f.Body)-1].SourceInformation); err != nil {
		return err
	}
	fn.Expressions = body

	pre, err := m.compileConstraints(ctx, f.PreConstraints, fn, scope)
	if err != nil {
		return err
	}
	post, err := m.compileConstraints(ctx, f.PostConstraints, fn, scope.Bind(&graph.VariableExpression{
		ExprBase: graph.ExprBase{GenType: fn.ReturnType, Mult: fn.ReturnMultiplicity},
		Name:     returnVariable,
	}, nil))
	if err != nil {
		return err
	}
	fn.PreConstraints, fn.PostConstraints = pre, post

	if fn.Tests, err = m.compileFunctionTests(ctx, f, fn); err != nil {
		return err
	}
	return fn.Advance(graph.StageBodiesCompiled)
}

func (m *PureModel) compileFunctionTests(ctx *CompileContext, f ast.Function, fn *graph.ConcreteFunction) ([]*graph.FunctionTest, error) {
	if len(f.Tests) == 0 {
		return nil, nil
	}
	if fn.ReturnType == nil || fn.ReturnMultiplicity.Upper == 0 {
		return nil, report.Errorf(f.SourceInformation, "Return multiplicity should not be Nil for a function with function test")
	}
	ids := lo.Uniq(lo.Map(f.Tests, func(t ast.FunctionTest, _ int) string { return t.ID }))
	if len(ids) != len(f.Tests) {
		return nil, report.Errorf(f.SourceInformation, "Function Test Ids should be unique")
	}
	out := make([]*graph.FunctionTest, 0, len(f.Tests))
	for _, t := range f.Tests {
		test, err := m.compileFunctionTest(ctx, t, fn)
		if err != nil {
			return nil, err
		}
		out = append(out, test)
	}
	return out, nil
}

func (m *PureModel) compileFunctionTest(ctx *CompileContext, t ast.FunctionTest, fn *graph.ConcreteFunction) (*graph.FunctionTest, error) {
	src := t.SourceInformation
	test := &graph.FunctionTest{ID: t.ID, Source: src}
	if len(t.Parameters) > 0 {
		if len(t.Parameters) != len(fn.Parameters) {
			return nil, report.Errorf(src, "Number of parameters passed in the function test do not match the number of input parameters defined in the function.")
		}
		for i, p := range t.Parameters {
			param := fn.Parameters[i]
			name := p.Name
			if name == "" {
				name = param.Name
			} else if name != param.Name {
				return nil, report.Errorf(src, "Function test parameter name does not match the input parameter name defined in the function")
			}
			value := &graph.ParameterValue{Name: name}
			switch {
			case p.ExternalFormatData != nil:
				if !json.Valid([]byte(p.ExternalFormatData.Data)) {
					return nil, report.Errorf(src, "Invalid JSON format for parameter: '%s'", param.Name)
				}
				value.ContentType, value.Data = p.ExternalFormatData.ContentType, p.ExternalFormatData.Data
			case p.Value != nil:
				v, err := ctx.CompileValue(*p.Value, nil)
				if err != nil {
					return nil, err
				}
				if !valueMatches(v, param.GenType, param.Mult) {
					return nil, report.Errorf(src, "Parameter value type does not match with parameter type for parameter: '%s'", param.Name)
				}
				value.Value = v
			default:
				return nil, report.Unsupported("function test parameter %q", p.Type)
			}
			test.Parameters = append(test.Parameters, value)
		}
	}

	if len(t.Assertions) == 0 {
		return nil, report.Errorf(src, "Function Test should have 1 assertion. No test assertion provided.")
	}
	a := t.Assertions[0]
	assertion := &graph.TestAssertion{ID: a.ID, Kind: a.Type}
	switch a.Type {
	case assertEqualTo:
		var expected ast.ValueSpecification
		if err := json.Unmarshal(a.Expected, &expected); err != nil {
			return nil, report.Errorf(src, "Invalid expected value for assert '%s': %s", a.ID, err)
		}
		v, err := ctx.CompileValue(expected, nil)
		if err != nil {
			return nil, err
		}
		if !valueMatches(v, fn.ReturnType, fn.ReturnMultiplicity) {
			return nil, report.Errorf(src, "Function Test assert value type does not match with return type for function")
		}
		assertion.Expected = v
	case assertEqualToJSON:
		var data ast.ExternalFormatData
		if err := json.Unmarshal(a.Expected, &data); err != nil || !json.Valid([]byte(data.Data)) {
			return nil, report.Errorf(src, "Invalid JSON format for assert ")
		}
		assertion.ContentType, assertion.Data = data.ContentType, data.Data
	default:
		return nil, report.Unsupported("function test assertion %q", a.Type)
	}
	test.Assertion = assertion
	return test, nil
}

// valueMatches compares a test value with a declared type by type name. An
// empty value is accepted whatever the declared type.
func valueMatches(v graph.ValueSpecification, gt *graph.GenericType, mult *graph.Multiplicity) bool {
	raw := graph.RawType(v)
	if gt == nil || raw == nil {
		return false
	}
	if !graph.IsNil(raw) && raw.Base().Name != gt.RawType.Base().Name {
		return false
	}
	return mult.Subsumes(v.Multiplicity())
}
