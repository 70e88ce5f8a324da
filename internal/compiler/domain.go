package compiler

import (
	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// loadSections registers the section indexes and records, for every element
// a section lists, the imports in force for it.
func (m *PureModel) loadSections(sections []ast.SectionIndex) error {
	for _, s := range sections {
		idx := &graph.SectionIndex{ElementBase: graph.ElementBase{Name: s.Name}}
		if err := m.register(s.Package, idx, s.SourceInformation); err != nil {
			return err
		}
		for _, sec := range s.Sections {
			idx.Sections = append(idx.Sections, &graph.Section{
				ParserName: sec.ParserName,
				Imports:    sec.Imports,
				Elements:   sec.Elements,
				Source:     sec.SourceInformation,
			})
			for _, el := range sec.Elements {
				m.imports[el] = sec.Imports
			}
		}
		m.sections[idx.Path()] = idx
	}
	return nil
}

func (m *PureModel) declareProfile(p ast.Profile) error {
	prof := &graph.Profile{ElementBase: graph.ElementBase{Name: p.Name}}
	if err := m.register(p.Package, prof, p.SourceInformation); err != nil {
		return err
	}
	for _, s := range p.Stereotypes {
		prof.Stereotypes = append(prof.Stereotypes, &graph.Stereotype{Value: s.Value, Profile: prof, Source: s.SourceInformation})
	}
	for _, t := range p.Tags {
		prof.Tags = append(prof.Tags, &graph.Tag{Value: t.Value, Profile: prof, Source: t.SourceInformation})
	}
	m.profiles[prof.Path()] = prof
	return nil
}

// declareClass creates the bare class and indexes it so that properties
// anywhere in the document can refer to it.
func (m *PureModel) declareClass(c ast.Class) error {
	cls := &graph.Class{TypeBase: graph.TypeBase{ElementBase: graph.ElementBase{Name: c.Name}}}
	if err := m.register(c.Package, cls, c.SourceInformation); err != nil {
		return err
	}
	m.types[cls.Path()] = cls
	stereotypes, tagged, err := m.Context(cls.Path()).ResolveAnnotations(c.Annotations)
	if err != nil {
		return err
	}
	cls.Stereotypes, cls.TaggedValues = stereotypes, tagged
	return nil
}

// structureClass attaches supertypes, properties, generated milestoning
// date properties and qualified property signatures.
func (m *PureModel) structureClass(c ast.Class) error {
	cls := m.types[c.Path()].(*graph.Class)
	ctx := m.Context(cls.Path())

	explicit := false
	seen := map[string]bool{}
	for _, ptr := range c.SuperTypes {
		src := ptr.SourceInformation
		if src.IsUnknown() {
			src = c.SourceInformation
		}
		t, err := ctx.ResolveType(ptr.Path, src)
		if err != nil {
			return err
		}
		if seen[t.Path()] {
			return report.Errorf(c.SourceInformation, "Duplicated super type '%s' in class '%s'", t.Path(), cls.Path())
		}
		seen[t.Path()] = true
		sup, ok := t.(*graph.Class)
		if !ok {
			return report.Errorf(c.SourceInformation, "Invalid supertype: '%s' cannot extend '%s' as it is not a class.", cls.Name, t.Path())
		}
		if graph.IsAny(sup) {
			continue
		}
		graph.AddGeneralization(cls, sup, src)
		explicit = true
	}
	if !explicit {
		graph.AddGeneralization(cls, m.sys.Any, c.SourceInformation)
	}

	for _, p := range c.Properties {
		prop, err := m.buildProperty(ctx, p, cls)
		if err != nil {
			return err
		}
		cls.Properties = append(cls.Properties, prop)
	}
	cls.Properties = append(cls.Properties, m.generateMilestoningDateProperties(cls)...)

	for _, q := range c.QualifiedProperties {
		qp, err := m.qualifiedSignature(ctx, q, cls, cls)
		if err != nil {
			return err
		}
		cls.QualifiedProperties = append(cls.QualifiedProperties, qp)
	}
	for _, p := range c.OriginalMilestonedProperties {
		prop, err := m.buildProperty(ctx, p, cls)
		if err != nil {
			return err
		}
		cls.OriginalMilestonedProperties = append(cls.OriginalMilestonedProperties, prop)
	}
	return cls.Advance(graph.StageStructured)
}

func (m *PureModel) milestoneClass(c ast.Class) error {
	cls := m.types[c.Path()].(*graph.Class)
	if err := m.applyMilestoning(cls); err != nil {
		return err
	}
	return cls.Advance(graph.StageMilestoningResolved)
}

// compileClassBodies compiles qualified property bodies, default values and
// constraints. User qualified properties precede the generated ones, in
// document order.
func (m *PureModel) compileClassBodies(c ast.Class) error {
	cls := m.types[c.Path()].(*graph.Class)
	ctx := m.Context(cls.Path())
	for i, q := range c.QualifiedProperties {
		if err := m.compileQualifiedBody(ctx, q, cls.QualifiedProperties[i], cls, cls.Name); err != nil {
			return err
		}
	}
	for _, p := range c.Properties {
		if p.DefaultValue == nil {
			continue
		}
		prop, ok := findProperty(cls.Properties, p.Name)
		if !ok {
			continue
		}
		v, err := ctx.CompileValue(p.DefaultValue.Value, nil)
		if err != nil {
			return err
		}
		prop.DefaultValue = v
	}
	constraints, err := m.compileConstraints(ctx, c.Constraints, cls, m.thisScope(cls, nil))
	if err != nil {
		return err
	}
	cls.Constraints = constraints
	return cls.Advance(graph.StageBodiesCompiled)
}

// buildProperty resolves a stored property declared on owner.
func (m *PureModel) buildProperty(ctx *CompileContext, p ast.Property, owner graph.Element) (*graph.Property, error) {
	gt, err := ctx.resolveGenericTypeAST(p.TypePath(), p.GenericType, p.TypeSource())
	if err != nil {
		return nil, err
	}
	stereotypes, tagged, err := ctx.ResolveAnnotations(p.Annotations)
	if err != nil {
		return nil, err
	}
	return &graph.Property{
		Name:         p.Name,
		Owner:        owner,
		GenericType:  gt,
		Multiplicity: ctx.ResolveMultiplicity(p.Multiplicity),
		Aggregation:  p.Aggregation,
		Stereotypes:  stereotypes,
		TaggedValues: tagged,
		Source:       p.SourceInformation,
	}, nil
}

// qualifiedSignature builds a qualified property without its body. this is
// the class the property is navigated from.
func (m *PureModel) qualifiedSignature(ctx *CompileContext, q ast.QualifiedProperty, owner graph.Element, this *graph.Class) (*graph.QualifiedProperty, error) {
	params := q.Parameters
	// Older serializers emit `this` as the first parameter.
	if len(params) > 0 && params[0].Name == "this" {
		params = params[1:]
	}
	vars := []*graph.VariableExpression{Variable("this", this, graph.PureOne)}
	b := ctx.newBuilder(nil)
	for _, p := range params {
		v, err := b.declare(p)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	gt, err := ctx.resolveGenericTypeAST(q.ReturnTypePath(), q.ReturnGenericType, q.SourceInformation)
	if err != nil {
		return nil, err
	}
	stereotypes, tagged, err := ctx.ResolveAnnotations(q.Annotations)
	if err != nil {
		return nil, err
	}
	return &graph.QualifiedProperty{
		Name:         q.Name,
		Owner:        owner,
		Parameters:   vars,
		GenericType:  gt,
		Multiplicity: ctx.ResolveMultiplicity(q.ReturnMultiplicity),
		Stereotypes:  stereotypes,
		TaggedValues: tagged,
		Source:       q.SourceInformation,
	}, nil
}

// compileQualifiedBody compiles the body of qp with `this` and its
// parameters in scope and checks the result against the declared signature.
func (m *PureModel) compileQualifiedBody(ctx *CompileContext, q ast.QualifiedProperty, qp *graph.QualifiedProperty, this *graph.Class, ownerName string) error {
	if len(q.Body) == 0 {
		return report.Errorf(q.SourceInformation, "Qualified property '%s' has an empty body", q.Name)
	}
	scope := m.thisScope(this, nil)
	for _, v := range qp.Parameters[1:] {
		scope = scope.Bind(v, nil)
	}
	b := ctx.newBuilder(scope)
	body := make([]graph.ValueSpecification, 0, len(q.Body))
	for _, e := range q.Body {
		v, err := b.compile(e)
		if err != nil {
			return err
		}
		body = append(body, v)
	}
	last := body[len(body)-1]
	stub := "Error in derived property '" + ownerName + "." + q.Name + "'"
	if err := checkCompatibility(graph.RawType(last), last.Multiplicity(), qp.GenericType.RawType, qp.Multiplicity, stub, q.Body[len(q.Body)-1].SourceInformation); err != nil {
		return err
	}
	qp.Expressions = body
	return nil
}

func (m *PureModel) declareEnumeration(e ast.Enumeration) error {
	enum := &graph.Enumeration{TypeBase: graph.TypeBase{ElementBase: graph.ElementBase{Name: e.Name}}}
	if err := m.register(e.Package, enum, e.SourceInformation); err != nil {
		return err
	}
	m.types[enum.Path()] = enum
	graph.AddGeneralization(enum, m.sys.Any, e.SourceInformation)

	ctx := m.Context(enum.Path())
	stereotypes, tagged, err := ctx.ResolveAnnotations(e.Annotations)
	if err != nil {
		return err
	}
	enum.Stereotypes, enum.TaggedValues = stereotypes, tagged
	for _, v := range e.Values {
		stereotypes, tagged, err := ctx.ResolveAnnotations(v.Annotations)
		if err != nil {
			return err
		}
		enum.Values = append(enum.Values, &graph.Enum{
			Name:         v.Value,
			Enumeration:  enum,
			Stereotypes:  stereotypes,
			TaggedValues: tagged,
			Source:       v.SourceInformation,
		})
	}
	return nil
}
