package compiler

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

const (
	milestoningVariable = "v_milestoning"
	rangeStartVariable  = "start"
	rangeEndVariable    = "end"
)

// datePreserving lists the natives whose result holds elements of their
// first argument, so the dates that argument was navigated with still hold.
var datePreserving = []string{
	"filter", "sortBy", "sort", "take", "drop", "slice", "limit",
	"distinct", "removeDuplicates", "reverse", "first", "last", "at",
	"find", "toOne", "toOneMany", "subType", "cast", "graphFetch", "graphFetchChecked",
}

func splitPath(p string) []string { return strings.Split(p, packageSeparator) }

// datesOf returns the milestoning dates an expression was navigated with.
func (b *builder) datesOf(v graph.ValueSpecification) *graph.MilestoningDates {
	switch e := v.(type) {
	case *graph.SimpleFunctionExpression:
		return e.Dates
	case *graph.VariableExpression:
		_, dates, _ := b.scope.Lookup(e.Name)
		return dates
	}
	return nil
}

// callDates computes the dates a native call establishes for the navigation
// that follows it. getAll with dates starts a milestoning context; map ends
// one.
func (b *builder) callDates(name string, args []graph.ValueSpecification) *graph.MilestoningDates {
	switch {
	case name == "getAll" && len(args) > 1:
		gt := args[0].GenericType()
		if gt == nil || len(gt.TypeArguments) == 0 {
			return nil
		}
		switch graph.DeclaredTemporal(gt.TypeArguments[0].RawType) {
		case graph.BusinessTemporal:
			return &graph.MilestoningDates{BusinessDate: args[1]}
		case graph.ProcessingTemporal:
			return &graph.MilestoningDates{ProcessingDate: args[1]}
		case graph.Bitemporal:
			if len(args) > 2 {
				return &graph.MilestoningDates{ProcessingDate: args[1], BusinessDate: args[2]}
			}
		}
		return nil
	case slices.Contains(datePreserving, name) && len(args) > 0:
		return b.datesOf(args[0])
	}
	return nil
}

// thisScope binds `this` to c. In a temporal class `this` carries its own
// date properties as the milestoning context of the body.
func (m *PureModel) thisScope(c *graph.Class, scope *Scope) *Scope {
	this := Variable("this", c, graph.PureOne)
	t := graph.TemporalOf(c)
	if t == graph.NotTemporal {
		return scope.Bind(this, nil)
	}
	dates := &graph.MilestoningDates{}
	for _, name := range t.DateNames() {
		prop, err := m.appliedProperty(c, name, 1, report.UnknownSourceInformation)
		if err != nil {
			continue
		}
		gt, mult := propertyResult(prop)
		expr := &graph.SimpleFunctionExpression{
			ExprBase:     graph.ExprBase{GenType: gt, Mult: mult},
			FunctionName: name,
			Func:         prop,
			Parameters:   []graph.ValueSpecification{this},
			PropertyName: name,
		}
		if name == "processingDate" {
			dates.ProcessingDate = expr
		} else {
			dates.BusinessDate = expr
		}
	}
	return scope.Bind(this, dates)
}

// milestonedNavigation compiles $x.p(dates...) where p is a generated
// milestoned qualified property. Dates the call leaves out are taken from
// the milestoning context of the receiver.
func (b *builder) milestonedNavigation(cls *graph.Class, name string, args []graph.ValueSpecification, src report.SourceInformation) (graph.ValueSpecification, error) {
	q, _ := milestonedProperty(cls, name)
	target := graph.DeclaredTemporal(q.GenericType.RawType)
	required := 1 + len(target.DateNames())
	context := b.datesOf(args[0])

	if strings.HasSuffix(name, graph.AllVersionsInRangeSuffix) || len(args) >= required {
		prop, err := b.m.appliedProperty(cls, name, len(args), src)
		if err != nil {
			return nil, err
		}
		expr := b.navigation(prop, name, args, src)
		if !strings.HasSuffix(name, graph.AllVersionsInRangeSuffix) && len(args) == required {
			expr.Dates = withDates(context, target, args[1:])
		}
		return expr, nil
	}

	source := graph.DeclaredTemporal(milestonedOwner(q, cls))
	dates, err := fillDates(name, source, target, args, context, src)
	if err != nil {
		return nil, err
	}
	prop, err := b.m.appliedProperty(cls, name, required, src)
	if err != nil {
		return nil, err
	}
	expr := b.navigation(prop, name, append([]graph.ValueSpecification{args[0]}, dates...), src)
	expr.OriginalMilestonedPropertyParameters = args
	expr.Dates = withDates(context, target, dates)
	return expr, nil
}

func (b *builder) navigation(prop graph.Callable, name string, args []graph.ValueSpecification, src report.SourceInformation) *graph.SimpleFunctionExpression {
	gt, mult := propertyResult(prop)
	return &graph.SimpleFunctionExpression{
		ExprBase:     graph.ExprBase{GenType: gt, Mult: mult, Src: src},
		FunctionName: name,
		Func:         prop,
		Parameters:   args,
		PropertyName: name,
	}
}

// fillDates completes the date arguments of a milestoned property call,
// in the order of target's date names.
func fillDates(name string, source, target graph.Temporal, args []graph.ValueSpecification, context *graph.MilestoningDates, src report.SourceInformation) ([]graph.ValueSpecification, error) {
	if context == nil {
		context = &graph.MilestoningDates{}
	}
	dates := make([]graph.ValueSpecification, len(target.DateNames()))
	switch {
	case target == graph.Bitemporal:
		switch {
		case source == graph.Bitemporal && len(args) == 2:
			dates[0], dates[1] = context.ProcessingDate, args[1]
		case source == graph.ProcessingTemporal && len(args) == 2:
			dates[0], dates[1] = context.ProcessingDate, args[1]
		case source == graph.BusinessTemporal && len(args) == 2:
			dates[0], dates[1] = args[1], context.BusinessDate
		case source == graph.Bitemporal && len(args) == 1:
			dates[0], dates[1] = context.ProcessingDate, context.BusinessDate
		}
		if dates[0] == nil || dates[1] == nil {
			return nil, missingDates(name, target, src)
		}
	case target.IsSingleDate() && len(args) == 1:
		propagated := context.BusinessDate
		if target == graph.ProcessingTemporal {
			propagated = context.ProcessingDate
		}
		if source == graph.Bitemporal || source == target {
			dates[0] = propagated
		}
		if dates[0] == nil {
			return nil, missingDates(name, target, src)
		}
	}
	return dates, nil
}

func missingDates(name string, target graph.Temporal, src report.SourceInformation) error {
	return report.Errorf(src, "No-Arg milestoned property: '%s' must be either called in a milestoning context or supplied with %s parameters", name, target.FormattedDateNames())
}

// withDates returns the context after navigating into a target-temporal
// class with the given dates: the target's dimensions are replaced, others
// are kept.
func withDates(context *graph.MilestoningDates, target graph.Temporal, dates []graph.ValueSpecification) *graph.MilestoningDates {
	out := &graph.MilestoningDates{}
	if context != nil {
		*out = *context
	}
	for i, n := range target.DateNames() {
		if i >= len(dates) {
			break
		}
		if n == "processingDate" {
			out.ProcessingDate = dates[i]
		} else {
			out.BusinessDate = dates[i]
		}
	}
	return out
}

// milestonedOwner returns the class a generated property navigates from.
// For association properties it is the type of the association's other
// original property.
func milestonedOwner(q *graph.QualifiedProperty, fallback *graph.Class) graph.Type {
	switch o := q.Owner.(type) {
	case *graph.Class:
		return o
	case *graph.Association:
		if p, ok := lo.Find(o.OriginalMilestonedProperties, func(p *graph.Property) bool { return p.Name != q.Name }); ok {
			return p.GenericType.RawType
		}
	}
	return fallback
}

// generateMilestoningDateProperties returns the date properties and the
// range property of a class that declares a temporal stereotype.
func (m *PureModel) generateMilestoningDateProperties(c *graph.Class) []*graph.Property {
	t := graph.DeclaredTemporal(c)
	if t == graph.NotTemporal {
		return nil
	}
	generated := m.generatedStereotype(graph.GeneratedMilestoningDateProperty)
	var out []*graph.Property
	for _, name := range t.DateNames() {
		out = append(out, &graph.Property{
			Name:         name,
			Owner:        c,
			GenericType:  graph.NewGenericType(m.sys.Date),
			Multiplicity: graph.PureOne,
			Stereotypes:  generated,
			Source:       c.Source,
		})
	}
	return append(out, &graph.Property{
		Name:         graph.MilestoningRangeProperty,
		Owner:        c,
		GenericType:  graph.NewGenericType(m.sys.RangeClass(t)),
		Multiplicity: graph.ZeroOne,
		Stereotypes:  generated,
		Source:       c.Source,
	})
}

func (m *PureModel) generatedStereotype(value string) []*graph.Stereotype {
	if m.sys.MilestoningProfile == nil {
		return nil
	}
	if s, ok := m.sys.MilestoningProfile.Stereotype(value); ok {
		return []*graph.Stereotype{s}
	}
	return nil
}

// transformation is the result of milestoning one property.
type transformation struct {
	original  *graph.Property
	edgePoint *graph.Property
	qualified []*graph.QualifiedProperty
}

// applyMilestoning replaces every property of c whose type is temporal with
// its edge point and generated qualified properties. It runs over the owned
// properties and over the association properties.
func (m *PureModel) applyMilestoning(c *graph.Class) error {
	if err := m.milestoneProperties(c, &c.Properties, &c.QualifiedProperties); err != nil {
		return err
	}
	return m.milestoneProperties(c, &c.PropertiesFromAssociations, &c.QualifiedPropertiesFromAssociations)
}

func (m *PureModel) milestoneProperties(c *graph.Class, props *[]*graph.Property, qualified *[]*graph.QualifiedProperty) error {
	candidates := lo.Reject(*props, func(p *graph.Property, _ int) bool {
		return graph.HasStereotype(p.Stereotypes, graph.MilestoningProfile, graph.GeneratedMilestoningProperty)
	})
	var transformed []transformation
	for _, p := range candidates {
		if p.GenericType == nil || graph.DeclaredTemporal(p.GenericType.RawType) == graph.NotTemporal {
			continue
		}
		transformed = append(transformed, m.milestoningTransformation(c, p))
	}
	if len(transformed) == 0 {
		return nil
	}

	updated := lo.Reject(candidates, func(p *graph.Property, _ int) bool {
		return lo.ContainsBy(transformed, func(t transformation) bool { return t.original == p })
	})
	known := c.OriginalMilestonedProperties
	for _, t := range transformed {
		updated = append(updated, t.edgePoint)
		*qualified = append(*qualified, t.qualified...)
		if !lo.ContainsBy(known, func(o *graph.Property) bool { return o.Name == t.original.Name }) {
			c.OriginalMilestonedProperties = append(c.OriginalMilestonedProperties, t.original)
		}
	}
	// The generated bodies navigate the edge points.
	*props = updated
	for _, t := range transformed {
		for _, q := range t.qualified {
			if err := m.compileMilestonedBody(c, t, q); err != nil {
				return err
			}
		}
	}
	return nil
}

// milestoningTransformation builds the edge point and qualified properties
// of p, a property of c whose type is temporal. Bodies are compiled later.
func (m *PureModel) milestoningTransformation(c *graph.Class, p *graph.Property) transformation {
	target := graph.DeclaredTemporal(p.GenericType.RawType)
	stereotypes := append(slices.Clone(p.Stereotypes), m.generatedStereotype(graph.GeneratedMilestoningProperty)...)
	edge := &graph.Property{
		Name:         p.Name + graph.AllVersionsSuffix,
		Owner:        p.Owner,
		GenericType:  p.GenericType,
		Multiplicity: graph.NewMultiplicity(p.Multiplicity.Lower, graph.Many),
		Aggregation:  p.Aggregation,
		Stereotypes:  stereotypes,
		TaggedValues: p.TaggedValues,
		Source:       p.Source,
	}
	this := Variable("this", c, graph.PureOne)
	date := func(name string) *graph.VariableExpression { return Variable(name, m.sys.Date, graph.PureOne) }
	newQualified := func(name string, params ...*graph.VariableExpression) *graph.QualifiedProperty {
		return &graph.QualifiedProperty{
			Name:         name,
			Owner:        p.Owner,
			Parameters:   append([]*graph.VariableExpression{this}, params...),
			GenericType:  p.GenericType,
			Multiplicity: p.Multiplicity,
			Stereotypes:  stereotypes,
			TaggedValues: p.TaggedValues,
			Source:       p.Source,
		}
	}

	t := transformation{original: p, edgePoint: edge}
	t.qualified = append(t.qualified, newQualified(p.Name, lo.Map(target.DateNames(), func(n string, _ int) *graph.VariableExpression { return date(n) })...))
	if target.IsSingleDate() {
		t.qualified = append(t.qualified, newQualified(p.Name+graph.AllVersionsInRangeSuffix, date(rangeStartVariable), date(rangeEndVariable)))
	}
	source := graph.DeclaredTemporal(c)
	if source != graph.NotTemporal && (source == target || source == graph.Bitemporal) {
		t.qualified = append(t.qualified, newQualified(p.Name))
	}
	return t
}

// compileMilestonedBody compiles the filter over the edge point that backs
// a generated qualified property:
//
//	$this.pAllVersions->filter(v_milestoning | $v_milestoning.businessDate == $businessDate)
//
// The no-argument form refers to the date variables as open variables.
func (m *PureModel) compileMilestonedBody(c *graph.Class, t transformation, q *graph.QualifiedProperty) error {
	target := graph.DeclaredTemporal(t.original.GenericType.RawType)
	ctx := m.Context(c.Path())

	var compare []ast.ValueSpecification
	scope := (*Scope)(nil).Bind(q.Parameters[0], nil)
	if strings.HasSuffix(q.Name, graph.AllVersionsInRangeSuffix) {
		compare = append(compare, ast.Func("eq", ast.Prop(ast.Ref(milestoningVariable), target.DateNames()[0]), ast.Ref(rangeStartVariable)))
	} else {
		for _, n := range target.DateNames() {
			compare = append(compare, ast.Func("eq", ast.Prop(ast.Ref(milestoningVariable), n), ast.Ref(n)))
		}
	}
	for _, v := range q.Parameters[1:] {
		scope = scope.Bind(v, nil)
	}
	if len(q.Parameters) == 1 {
		for _, n := range target.DateNames() {
			scope = scope.Bind(Variable(n, m.sys.Date, graph.PureOne), nil)
		}
	}
	predicate := compare[0]
	if len(compare) == 2 {
		predicate = ast.Func("and", compare[0], compare[1])
	}
	body := ast.Func("filter",
		ast.Prop(ast.Ref("this"), t.edgePoint.Name),
		ast.Lambda([]ast.ValueSpecification{ast.Var(milestoningVariable, t.original.GenericType.RawType.Path(), ast.Bounded(1, 1))}, predicate),
	)
	expr, err := ctx.CompileValue(body, scope)
	if err != nil {
		return report.Wrap(err, t.original.Source, "Can't generate milestoned property '"+q.Name+"' of class '"+c.Path()+"': "+report.Message(err))
	}
	q.Expressions = []graph.ValueSpecification{expr}
	return nil
}

// applyAssociationMilestoning rewrites the association's own property lists
// after its endpoint classes were milestoned, so the association exposes
// the generated forms instead of the plain properties.
func applyAssociationMilestoning(a *graph.Association, ends [2]*graph.Class) {
	for i, target := range ends {
		source := ends[1-i]
		owned := func(owner graph.Element) bool { return owner == graph.Element(a) }
		if !lo.ContainsBy(target.OriginalMilestonedProperties, func(p *graph.Property) bool { return owned(p.Owner) }) {
			continue
		}
		ofSource := func(gt *graph.GenericType) bool { return gt != nil && gt.RawType == graph.Type(source) }
		a.Properties = append(
			lo.Reject(a.Properties, func(p *graph.Property, _ int) bool { return ofSource(p.GenericType) }),
			lo.Filter(target.PropertiesFromAssociations, func(p *graph.Property, _ int) bool { return owned(p.Owner) })...)
		a.QualifiedProperties = append(
			lo.Reject(a.QualifiedProperties, func(q *graph.QualifiedProperty, _ int) bool { return ofSource(q.GenericType) }),
			lo.Filter(target.QualifiedPropertiesFromAssociations, func(q *graph.QualifiedProperty, _ int) bool { return owned(q.Owner) })...)
		a.OriginalMilestonedProperties = append(
			lo.Reject(a.OriginalMilestonedProperties, func(p *graph.Property, _ int) bool { return ofSource(p.GenericType) }),
			lo.Filter(target.OriginalMilestonedProperties, func(p *graph.Property, _ int) bool { return owned(p.Owner) })...)
	}
}
