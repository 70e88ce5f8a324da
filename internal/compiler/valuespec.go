package compiler

import (
	"encoding/json"
	"slices"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
	"github.com/foundry-zero/purec/internal/system"
)

// builder compiles protocol expressions into graph expressions. One builder
// serves one lambda body: its scope grows as let statements are compiled,
// and open collects the free variables the body refers to.
type builder struct {
	ctx   *CompileContext
	m     *PureModel
	scope *Scope
	open  *[]string
	lets  *[]string
}

func (c *CompileContext) newBuilder(scope *Scope) *builder {
	return &builder{ctx: c, m: c.Model, scope: scope, open: &[]string{}, lets: &[]string{}}
}

// CompileValue compiles a single expression with the given bindings.
func (c *CompileContext) CompileValue(vs ast.ValueSpecification, scope *Scope) (graph.ValueSpecification, error) {
	return c.newBuilder(scope).compile(vs)
}

// CompileLambda compiles a lambda whose parameters are typed in the
// document. Bindings in scope are visible to the body; the names it uses
// end up in the lambda's open variables.
func (c *CompileContext) CompileLambda(vs ast.ValueSpecification, scope *Scope) (*graph.LambdaFunction, error) {
	return c.newBuilder(scope).lambda(vs, nil, nil)
}

// Variable creates a variable expression suitable for binding in a Scope.
func Variable(name string, t graph.Type, m *graph.Multiplicity) *graph.VariableExpression {
	return &graph.VariableExpression{ExprBase: graph.ExprBase{GenType: graph.NewGenericType(t), Mult: m}, Name: name}
}

func (b *builder) compile(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	switch vs.Type {
	case ast.VSString, ast.VSInteger, ast.VSFloat, ast.VSDecimal, ast.VSBoolean, ast.VSDateTime, ast.VSStrictDate, ast.VSLatestDate:
		return b.literal(vs)
	case ast.VSVariable:
		return b.variable(vs)
	case ast.VSFunction:
		return b.call(vs)
	case ast.VSProperty:
		return b.property(vs)
	case ast.VSLambda:
		return b.lambda(vs, nil, nil)
	case ast.VSCollection:
		return b.collection(vs)
	case ast.VSElementPtr:
		return b.elementPointer(vs)
	case ast.VSEnumValue:
		return b.enumValue(vs)
	case ast.VSRootGraphFetchTree:
		return b.rootGraphFetchTree(vs)
	case ast.VSPropertyGraphFetchTree:
		return nil, report.Errorf(vs.SourceInformation, "Property graph fetch tree must be nested in a root graph fetch tree")
	case ast.VSClassInstance:
		return nil, report.Unsupported("no compiler extension handles class instance type '%s'", vs.InstanceType)
	default:
		return nil, report.Unsupported("no compiler extension handles value specification type '%s'", vs.Type)
	}
}

func (b *builder) primitiveFor(tag string) graph.Type {
	sys := b.m.sys
	switch tag {
	case ast.VSString:
		return sys.String
	case ast.VSInteger:
		return sys.Integer
	case ast.VSFloat:
		return sys.Float
	case ast.VSDecimal:
		return sys.Decimal
	case ast.VSBoolean:
		return sys.Boolean
	case ast.VSDateTime:
		return sys.DateTime
	case ast.VSStrictDate:
		return sys.StrictDate
	default:
		return sys.LatestDate
	}
}

func (b *builder) literal(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	raws := vs.LiteralValues
	if len(vs.Value) > 0 {
		raws = []json.RawMessage{vs.Value}
	}
	values := make([]any, 0, len(raws))
	for _, raw := range raws {
		v, err := decodeLiteral(vs.Type, raw)
		if err != nil {
			return nil, report.Errorf(vs.SourceInformation, "Invalid %s literal %s", vs.Type, string(raw))
		}
		values = append(values, v)
	}
	mult := graph.NewMultiplicity(len(values), len(values))
	switch {
	case vs.Multiplicity != nil:
		mult = b.ctx.ResolveMultiplicity(*vs.Multiplicity)
	case len(values) == 1:
		mult = graph.PureOne
	}
	return &graph.InstanceValue{
		ExprBase: graph.ExprBase{GenType: graph.NewGenericType(b.primitiveFor(vs.Type)), Mult: mult, Src: vs.SourceInformation},
		Values:   values,
	}, nil
}

func decodeLiteral(tag string, raw json.RawMessage) (any, error) {
	switch tag {
	case ast.VSInteger:
		var v int64
		err := json.Unmarshal(raw, &v)
		return v, err
	case ast.VSFloat:
		var v float64
		err := json.Unmarshal(raw, &v)
		return v, err
	case ast.VSDecimal:
		var v json.Number
		err := json.Unmarshal(raw, &v)
		return v.String(), err
	case ast.VSBoolean:
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	}
}

// variable compiles a variable node. A typed variable declares a new
// binding; an untyped one must refer to a binding in scope.
func (b *builder) variable(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	if path := vs.TypePath(); path != "" {
		v, err := b.declare(vs)
		if err != nil {
			return nil, err
		}
		b.scope = b.scope.Bind(v, nil)
		return v, nil
	}
	bound, _, ok := b.scope.Lookup(vs.Name)
	if !ok {
		return nil, report.Errorf(vs.SourceInformation, "Can't find variable class for variable '%s' in the graph", vs.Name)
	}
	*b.open = append(*b.open, vs.Name)
	return &graph.VariableExpression{
		ExprBase: graph.ExprBase{GenType: bound.GenType, Mult: bound.Mult, Src: vs.SourceInformation},
		Name:     vs.Name,
	}, nil
}

// declare builds the variable expression of a typed parameter.
func (b *builder) declare(vs ast.ValueSpecification) (*graph.VariableExpression, error) {
	src := vs.SourceInformation
	if vs.GenericType != nil && !vs.GenericType.RawType.SourceInformation.IsUnknown() {
		src = vs.GenericType.RawType.SourceInformation
	}
	gt, err := b.ctx.resolveGenericTypeAST(vs.TypePath(), vs.GenericType, src)
	if err != nil {
		return nil, err
	}
	mult := graph.PureOne
	if vs.Multiplicity != nil {
		mult = b.ctx.ResolveMultiplicity(*vs.Multiplicity)
	}
	return &graph.VariableExpression{ExprBase: graph.ExprBase{GenType: gt, Mult: mult, Src: vs.SourceInformation}, Name: vs.Name}, nil
}

// resolveGenericTypeAST resolves a declared type along with its type
// arguments when the document carries them.
func (c *CompileContext) resolveGenericTypeAST(path string, gt *ast.GenericType, src report.SourceInformation) (*graph.GenericType, error) {
	out, err := c.ResolveGenericType(path, src)
	if err != nil || gt == nil {
		return out, err
	}
	for _, arg := range gt.TypeArguments {
		a, err := c.resolveGenericTypeAST(arg.RawType.FullPath, &arg, arg.RawType.SourceInformation)
		if err != nil {
			return nil, err
		}
		out.TypeArguments = append(out.TypeArguments, a)
	}
	return out, nil
}

// lambda compiles a lambda in a child scope. typed supplies the parameter
// types inferred from the call site for parameters the document leaves
// untyped; firstDates are the milestoning dates of the collection the first
// parameter iterates over.
func (b *builder) lambda(vs ast.ValueSpecification, typed []system.TypedParam, firstDates *graph.MilestoningDates) (*graph.LambdaFunction, error) {
	child := &builder{ctx: b.ctx, m: b.m, scope: b.scope, open: &[]string{}, lets: &[]string{}}
	params := make([]*graph.VariableExpression, 0, len(vs.Parameters))
	for i, p := range vs.Parameters {
		var v *graph.VariableExpression
		switch {
		case p.TypePath() != "":
			var err error
			if v, err = child.declare(p); err != nil {
				return nil, err
			}
		case i < len(typed) && typed[i].Type != nil:
			v = &graph.VariableExpression{ExprBase: graph.ExprBase{GenType: typed[i].Type, Mult: typed[i].Multiplicity, Src: p.SourceInformation}, Name: p.Name}
		default:
			return nil, report.Errorf(p.SourceInformation, "Can't infer the type of lambda parameter '%s'", p.Name)
		}
		var dates *graph.MilestoningDates
		if i == 0 && len(typed) > 0 && typed[0].Type != nil && v.GenType != nil && v.GenType.RawType == typed[0].Type.RawType {
			dates = firstDates
		}
		child.scope = child.scope.Bind(v, dates)
		params = append(params, v)
	}
	if len(vs.Body) == 0 {
		return nil, report.Errorf(vs.SourceInformation, "Lambda body can't be empty")
	}
	body := make([]graph.ValueSpecification, 0, len(vs.Body))
	for _, e := range vs.Body {
		v, err := child.compile(e)
		if err != nil {
			return nil, err
		}
		body = append(body, v)
	}

	local := append(lo.Map(params, func(p *graph.VariableExpression, _ int) string { return p.Name }), *child.lets...)
	open := lo.Uniq(lo.Filter(*child.open, func(name string, _ int) bool { return !slices.Contains(local, name) }))
	*b.open = append(*b.open, open...)

	last := body[len(body)-1]
	ft := &graph.FunctionType{Parameters: params, ReturnType: last.GenericType(), ReturnMultiplicity: last.Multiplicity()}
	return &graph.LambdaFunction{
		ExprBase: graph.ExprBase{
			GenType: graph.NewGenericType(b.m.sys.LambdaFunctionClass, graph.NewGenericType(ft)),
			Mult:    graph.PureOne,
			Src:     vs.SourceInformation,
		},
		Parameters:    params,
		Expressions:   body,
		OpenVariables: open,
		Type:          ft,
	}, nil
}

// collection compiles a collection literal. Elements must be to-one; the
// collection is typed by their most specific common supertype.
func (b *builder) collection(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	items := make([]graph.ValueSpecification, 0, len(vs.Values))
	for _, v := range vs.Values {
		item, err := b.compile(v)
		if err != nil {
			return nil, err
		}
		if !item.Multiplicity().IsToOne() {
			return nil, report.Errorf(v.SourceInformation, "Collection element must have a multiplicity [1] - multiplicity:%s", item.Multiplicity())
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return &graph.InstanceValue{ExprBase: graph.ExprBase{GenType: graph.NewGenericType(b.m.sys.Nil), Mult: graph.PureZero, Src: vs.SourceInformation}}, nil
	}
	var values []any
	for _, item := range items {
		if iv, ok := item.(*graph.InstanceValue); ok && len(iv.Values) == 1 {
			values = append(values, iv.Values[0])
			continue
		}
		values = append(values, item)
	}
	t := graph.CommonSuperType(lo.Map(items, func(v graph.ValueSpecification, _ int) graph.Type { return graph.RawType(v) }), b.m.sys.Any)
	mult := graph.NewMultiplicity(len(items), len(items))
	if vs.Multiplicity != nil {
		mult = b.ctx.ResolveMultiplicity(*vs.Multiplicity)
	}
	return &graph.InstanceValue{ExprBase: graph.ExprBase{GenType: graph.NewGenericType(t), Mult: mult, Src: vs.SourceInformation}, Values: values}, nil
}

func (b *builder) elementPointer(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	if b.m.hasUserPackage(vs.FullPath) || (vs.FullPath != "Package" && b.m.sys.HasPackage(vs.FullPath)) {
		return &graph.InstanceValue{
			ExprBase: graph.ExprBase{GenType: graph.NewGenericType(b.m.sys.PackageClass), Mult: graph.PureOne, Src: vs.SourceInformation},
			Values:   []any{vs.FullPath},
		}, nil
	}
	el, err := b.ctx.ResolveElement(vs.FullPath, vs.SourceInformation)
	if err != nil {
		return nil, err
	}
	return &graph.InstanceValue{
		ExprBase: graph.ExprBase{GenType: b.m.sys.ClassifierOf(el), Mult: graph.PureOne, Src: vs.SourceInformation},
		Values:   []any{el},
	}, nil
}

func (b *builder) enumValue(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	var value string
	if err := json.Unmarshal(vs.Value, &value); err != nil {
		return nil, report.Errorf(vs.SourceInformation, "Invalid enum value for enumeration '%s'", vs.FullPath)
	}
	e, err := b.ctx.ResolveEnumValue(vs.FullPath, value, vs.SourceInformation, vs.SourceInformation)
	if err != nil {
		return nil, err
	}
	return &graph.InstanceValue{
		ExprBase: graph.ExprBase{GenType: graph.NewGenericType(e.Enumeration), Mult: graph.PureOne, Src: vs.SourceInformation},
		Values:   []any{e},
	}, nil
}

func (b *builder) rootGraphFetchTree(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	cls, err := b.ctx.ResolveClass(vs.Class, vs.SourceInformation)
	if err != nil {
		return nil, err
	}
	gt := graph.NewGenericType(b.m.sys.RootGraphFetchTreeClass, graph.NewGenericType(cls))
	tree := &graph.RootGraphFetchTree{ExprBase: graph.ExprBase{GenType: gt, Mult: graph.PureOne, Src: vs.SourceInformation}, Class: cls}
	for _, st := range vs.SubTrees {
		sub, err := b.propertyGraphFetchTree(st, cls)
		if err != nil {
			return nil, err
		}
		tree.SubTrees = append(tree.SubTrees, sub)
	}
	return &graph.InstanceValue{ExprBase: graph.ExprBase{GenType: gt, Mult: graph.PureOne, Src: vs.SourceInformation}, Values: []any{tree}}, nil
}

// propertyGraphFetchTree resolves one property of parent. Qualified property
// arguments are compiled with `this` bound to parent; subtrees descend into
// the explicit subtype when one is given.
func (b *builder) propertyGraphFetchTree(vs ast.ValueSpecification, parent *graph.Class) (*graph.PropertyGraphFetchTree, error) {
	if vs.Type != ast.VSPropertyGraphFetchTree {
		return nil, report.Errorf(vs.SourceInformation, "Graph fetch sub tree must be a property graph fetch tree")
	}
	pb := &builder{ctx: b.ctx, m: b.m, scope: b.scope.Bind(Variable("this", parent, graph.PureOne), nil), open: b.open, lets: b.lets}
	args := make([]graph.ValueSpecification, 0, len(vs.Parameters))
	for _, p := range vs.Parameters {
		v, err := pb.compile(p)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	prop, err := b.m.appliedProperty(parent, vs.Property, len(args)+1, vs.SourceInformation)
	if err != nil {
		return nil, err
	}
	gt, mult := propertyResult(prop)
	tree := &graph.PropertyGraphFetchTree{
		ExprBase:   graph.ExprBase{GenType: graph.NewGenericType(b.m.sys.PropertyGraphFetchTreeClass), Mult: mult, Src: vs.SourceInformation},
		Property:   prop,
		Parameters: args,
		Alias:      vs.Alias,
	}
	next := gt.RawType
	if vs.SubType != "" {
		sub, err := b.ctx.ResolveClass(vs.SubType, vs.SourceInformation)
		if err != nil {
			return nil, err
		}
		tree.SubType = sub
		next = sub
	}
	if len(vs.SubTrees) == 0 {
		return tree, nil
	}
	cls, ok := next.(*graph.Class)
	if !ok {
		return nil, report.Errorf(vs.SourceInformation, "Can't fetch sub trees of property '%s' of non-class type '%s'", vs.Property, graph.PrintTypeName(next))
	}
	for _, st := range vs.SubTrees {
		sub, err := b.propertyGraphFetchTree(st, cls)
		if err != nil {
			return nil, err
		}
		tree.SubTrees = append(tree.SubTrees, sub)
	}
	return tree, nil
}

// call compiles an applied function.
func (b *builder) call(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	args := make([]graph.ValueSpecification, len(vs.Parameters))
	for i, p := range vs.Parameters {
		if p.Type == ast.VSLambda {
			continue
		}
		v, err := b.compile(p)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return b.dispatch(vs.Function, vs.FControl, vs.Parameters, args, vs.SourceInformation)
}

// dispatch picks the function a call resolves to. args holds the compiled
// non-lambda arguments; lambdas are compiled once per candidate because
// their parameter types depend on the candidate.
func (b *builder) dispatch(function, fControl string, params []ast.ValueSpecification, args []graph.ValueSpecification, src report.SourceInformation) (graph.ValueSpecification, error) {
	name, check := dispatchName(function, fControl)
	handlers, err := b.ctx.resolveHandlers(name, src)
	if err != nil {
		return nil, err
	}
	var lambdaErr error
	attempted := args
	compiledAll := false
	for _, h := range handlers {
		if len(h.params()) != len(params) {
			continue
		}
		full, err := b.compileLambdas(h, params, args)
		if err != nil {
			lambdaErr = err
			continue
		}
		compiledAll = true
		attempted = full
		if !h.accepts(full) {
			continue
		}
		if err := b.ctx.checkFunctionControl(check, h, src); err != nil {
			return nil, err
		}
		return b.apply(h, name, full, src), nil
	}
	if !compiledAll && lambdaErr != nil {
		return nil, lambdaErr
	}
	return nil, report.Errorf(src, "Can't find a match for function '%s'", renderCall(name, attempted))
}

func (b *builder) compileLambdas(h handler, params []ast.ValueSpecification, args []graph.ValueSpecification) ([]graph.ValueSpecification, error) {
	full := slices.Clone(args)
	for i, p := range params {
		if p.Type != ast.VSLambda {
			continue
		}
		var dates *graph.MilestoningDates
		if len(args) > 0 && args[0] != nil {
			dates = b.datesOf(args[0])
		}
		l, err := b.lambda(p, h.lambdaParams(b.m.sys, args, i), dates)
		if err != nil {
			return nil, err
		}
		full[i] = l
	}
	return full, nil
}

// apply builds the function expression of a dispatched call.
func (b *builder) apply(h handler, name string, args []graph.ValueSpecification, src report.SourceInformation) graph.ValueSpecification {
	gt, mult := h.result(b.m.sys, args)
	expr := &graph.SimpleFunctionExpression{
		ExprBase:     graph.ExprBase{GenType: gt, Mult: mult, Src: src},
		FunctionName: h.name(),
		Func:         h.function(),
		Parameters:   args,
	}
	if h.native != nil {
		expr.Dates = b.callDates(h.name(), args)
	}
	if h.name() == "letFunction" {
		b.bindLet(args)
	}
	return expr
}

// bindLet makes `let name = value` visible to the following statements.
func (b *builder) bindLet(args []graph.ValueSpecification) {
	iv, ok := args[0].(*graph.InstanceValue)
	if !ok || len(iv.Values) != 1 {
		return
	}
	name, ok := iv.Values[0].(string)
	if !ok {
		return
	}
	v := &graph.VariableExpression{ExprBase: graph.ExprBase{GenType: args[1].GenericType(), Mult: args[1].Multiplicity(), Src: args[1].Source()}, Name: name}
	b.scope = b.scope.Bind(v, b.datesOf(args[1]))
	*b.lets = append(*b.lets, name)
}

func (m *PureModel) hasUserPackage(path string) bool {
	if path == "" {
		return false
	}
	cur := m.Root
	for _, seg := range splitPath(path) {
		child, ok := cur.Child(seg)
		if !ok {
			return false
		}
		pkg, ok := child.(*graph.Package)
		if !ok {
			return false
		}
		cur = pkg
	}
	return true
}
