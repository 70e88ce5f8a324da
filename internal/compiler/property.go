package compiler

import (
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

const automapVariable = "v_automap"

// appliedProperty finds the property name of c, searching c's
// generalization resolution order. In each class, stored properties win
// over association properties, which win over qualified properties matched
// by name and arity, which win over association qualified properties.
// arity counts the receiver.
func (m *PureModel) appliedProperty(c *graph.Class, name string, arity int, src report.SourceInformation) (graph.Callable, error) {
	order := graph.GeneralizationResolutionOrder(c)
	for _, t := range order {
		cls, ok := t.(*graph.Class)
		if !ok {
			continue
		}
		if p, ok := findProperty(cls.Properties, name); ok {
			return p, nil
		}
		if p, ok := findProperty(cls.PropertiesFromAssociations, name); ok {
			return p, nil
		}
		if q, ok := lo.Find(cls.QualifiedProperties, func(q *graph.QualifiedProperty) bool {
			return q.Name == name && len(q.Parameters) == arity
		}); ok {
			return q, nil
		}
		if q, ok := lo.Find(cls.QualifiedPropertiesFromAssociations, func(q *graph.QualifiedProperty) bool {
			return q.Name == name && len(q.Parameters) == arity
		}); ok {
			return q, nil
		}
	}
	names := lo.Map(order, func(t graph.Type, _ int) string { return t.Base().Name })
	return nil, report.Errorf(src, "Can't find property '%s' in [%s]", name, strings.Join(names, ", "))
}

// milestonedProperty returns a qualified property generated for the
// milestoned property name, if c or a supertype has one.
func milestonedProperty(c *graph.Class, name string) (*graph.QualifiedProperty, bool) {
	for _, t := range graph.GeneralizationResolutionOrder(c) {
		cls, ok := t.(*graph.Class)
		if !ok {
			continue
		}
		for _, list := range [][]*graph.QualifiedProperty{cls.QualifiedProperties, cls.QualifiedPropertiesFromAssociations} {
			if q, ok := lo.Find(list, func(q *graph.QualifiedProperty) bool {
				return q.Name == name && graph.IsGeneratedMilestoningQualified(q)
			}); ok {
				return q, true
			}
		}
	}
	return nil, false
}

func findProperty(list []*graph.Property, name string) (*graph.Property, bool) {
	return lo.Find(list, func(p *graph.Property) bool { return p.Name == name })
}

// propertyResult returns the declared type and multiplicity of a property
// or qualified property.
func propertyResult(c graph.Callable) (*graph.GenericType, *graph.Multiplicity) {
	switch p := c.(type) {
	case *graph.Property:
		return p.GenericType, p.Multiplicity
	case *graph.QualifiedProperty:
		return p.GenericType, p.Multiplicity
	}
	return nil, nil
}

// property compiles an applied property. Enumeration values become
// extractEnumValue calls and navigation off a receiver that is not to-one
// is rewritten as a map over the receiver.
func (b *builder) property(vs ast.ValueSpecification) (graph.ValueSpecification, error) {
	src := vs.SourceInformation
	if len(vs.Parameters) == 0 {
		return nil, report.Errorf(src, "Property '%s' is applied without a receiver", vs.Property)
	}
	recvAST := vs.Parameters[0]
	if recvAST.Type == ast.VSElementPtr {
		if e, err := b.ctx.ResolveEnumeration(recvAST.FullPath, recvAST.SourceInformation); err == nil {
			return b.extractEnumValue(e, vs.Property, recvAST.SourceInformation, src)
		}
	}
	receiver, err := b.compile(recvAST)
	if err != nil {
		return nil, err
	}
	if !receiver.Multiplicity().IsToOne() {
		return b.automap(vs, receiver)
	}
	args := []graph.ValueSpecification{receiver}
	for _, p := range vs.Parameters[1:] {
		v, err := b.compile(p)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	raw := graph.RawType(receiver)
	cls, ok := raw.(*graph.Class)
	if !ok {
		return nil, report.Errorf(src, "Can't find property '%s' in [%s]", vs.Property, graph.PrintTypeName(raw))
	}
	if _, ok := milestonedProperty(cls, vs.Property); ok {
		return b.milestonedNavigation(cls, vs.Property, args, src)
	}
	prop, err := b.m.appliedProperty(cls, vs.Property, len(args), src)
	if err != nil {
		return nil, err
	}
	gt, mult := propertyResult(prop)
	expr := &graph.SimpleFunctionExpression{
		ExprBase:     graph.ExprBase{GenType: gt, Mult: mult, Src: src},
		FunctionName: vs.Property,
		Func:         prop,
		Parameters:   args,
		PropertyName: vs.Property,
	}
	if p, ok := prop.(*graph.Property); ok && !strings.HasSuffix(p.Name, graph.AllVersionsSuffix) {
		expr.Dates = b.datesOf(receiver)
	}
	return expr, nil
}

// automap rewrites $x.p(args) over a receiver that is not to-one as
// $x->map(v_automap | $v_automap.p(args)).
func (b *builder) automap(vs ast.ValueSpecification, receiver graph.ValueSpecification) (graph.ValueSpecification, error) {
	raw := graph.RawType(receiver)
	if raw == nil {
		return nil, report.Errorf(vs.SourceInformation, "Can't find property '%s' of an untyped receiver", vs.Property)
	}
	param := ast.Var(automapVariable, raw.Path(), ast.Bounded(1, 1))
	inner := ast.Prop(ast.Ref(automapVariable), vs.Property, vs.Parameters[1:]...)
	inner.SourceInformation = vs.SourceInformation
	fn := ast.Lambda([]ast.ValueSpecification{param}, inner)
	fn.SourceInformation = vs.SourceInformation
	return b.dispatch("map", "", []ast.ValueSpecification{vs.Parameters[0], fn}, []graph.ValueSpecification{receiver, nil}, vs.SourceInformation)
}

func (b *builder) extractEnumValue(e *graph.Enumeration, value string, enumSrc, src report.SourceInformation) (graph.ValueSpecification, error) {
	if _, err := b.m.EnumValue(e, value, src); err != nil {
		return nil, err
	}
	natives := b.m.sys.Natives("extractEnumValue")
	if len(natives) == 0 {
		return nil, report.Errorf(src, "Can't resolve the builder for function 'extractEnumValue'")
	}
	args := []graph.ValueSpecification{
		&graph.InstanceValue{ExprBase: graph.ExprBase{GenType: b.m.sys.ClassifierOf(e), Mult: graph.PureOne, Src: enumSrc}, Values: []any{e}},
		&graph.InstanceValue{ExprBase: graph.ExprBase{GenType: graph.NewGenericType(b.m.sys.String), Mult: graph.PureOne, Src: src}, Values: []any{value}},
	}
	return &graph.SimpleFunctionExpression{
		ExprBase:     graph.ExprBase{GenType: graph.NewGenericType(e), Mult: graph.PureOne, Src: src},
		FunctionName: natives[0].Function.FunctionName,
		Func:         natives[0].Function,
		Parameters:   args,
	}, nil
}
