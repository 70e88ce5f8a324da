package compiler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
	"github.com/foundry-zero/purec/internal/system"
)

// Operation class mapping operators and the router functions they call.
var operationFunctions = map[string]string{
	"STORE_UNION":  system.StoreUnionFunction,
	"ROUTER_UNION": system.RouterUnionFunction,
	"INHERITANCE":  system.InheritanceFunction,
	"MERGE":        system.MergeFunction,
}

const (
	srcVariable  = "src"
	thisVariable = "this"
	thatVariable = "that"

	inputDataObject = "object"
)

// builtSet is a class mapping built in the third mapping pass, kept with
// its protocol node for the fourth.
type builtSet struct {
	node     ast.ClassMapping
	set      graph.SetImplementation
	validate func(ctx *CompileContext, set graph.SetImplementation) error
}

// classMappingID is the declared id or the class path with "::" replaced
// by "_".
func classMappingID(cm ast.ClassMapping, cls *graph.Class) string {
	if cm.ID != "" {
		return cm.ID
	}
	return strings.ReplaceAll(cls.Path(), packageSeparator, "_")
}

func classSource(cm ast.ClassMapping) report.SourceInformation {
	if cm.ClassSourceInformation.IsUnknown() {
		return cm.SourceInformation
	}
	return cm.ClassSourceInformation
}

func (m *PureModel) declareMapping(mp ast.Mapping) error {
	mapping := &graph.Mapping{ElementBase: graph.ElementBase{Name: mp.Name}}
	if err := m.register(mp.Package, mapping, mp.SourceInformation); err != nil {
		return err
	}
	m.mappings[mapping.Path()] = mapping
	return nil
}

// structureMapping resolves includes and enumeration mappings.
func (m *PureModel) structureMapping(mp ast.Mapping) error {
	mapping := m.mappings[mp.Path()]
	ctx := m.Context(mapping.Path())

	seen := map[string]bool{}
	for _, inc := range mp.IncludedMappings {
		included, err := ctx.ResolveMapping(inc.Path(), inc.SourceInformation)
		if err != nil {
			return err
		}
		if seen[included.Path()] {
			return report.Errorf(inc.SourceInformation, "Duplicated mapping include '%s' in mapping '%s'", included.Path(), mapping.Path())
		}
		seen[included.Path()] = true
		include := &graph.MappingInclude{Owner: mapping, Included: included, Source: inc.SourceInformation}
		if inc.SourceDatabasePath != "" && inc.TargetDatabasePath != "" {
			original, err := ctx.ResolveStore(inc.SourceDatabasePath, inc.SourceInformation)
			if err != nil {
				return err
			}
			substitute, err := ctx.ResolveStore(inc.TargetDatabasePath, inc.SourceInformation)
			if err != nil {
				return err
			}
			include.StoreSubstitutions = append(include.StoreSubstitutions, &graph.StoreSubstitution{Original: original, Substitute: substitute})
		}
		mapping.Includes = append(mapping.Includes, include)
	}

	for _, em := range mp.EnumerationMappings {
		out, err := m.buildEnumerationMapping(ctx, em, mapping)
		if err != nil {
			return err
		}
		mapping.EnumerationMappings = append(mapping.EnumerationMappings, out)
	}
	return nil
}

// buildClassMappings creates the class mappings of mp. References between
// class mappings are linked in linkMapping once every mapping has its set
// implementations.
func (m *PureModel) buildClassMappings(mp ast.Mapping) error {
	mapping := m.mappings[mp.Path()]
	ctx := m.Context(mapping.Path())
	for _, cm := range mp.ClassMappings {
		b, err := m.buildSetImplementation(ctx, cm, mapping)
		if err != nil {
			return err
		}
		mapping.ClassMappings = append(mapping.ClassMappings, b.set)
		m.mappingSets[mapping.Path()] = append(m.mappingSets[mapping.Path()], b)
	}
	markSingleRoots(mapping)
	return nil
}

// markSingleRoots makes the only class mapping of a class its root.
func markSingleRoots(mapping *graph.Mapping) {
	counts := lo.CountValuesBy(mapping.ClassMappings, func(s graph.SetImplementation) string { return s.Impl().Class.Path() })
	for _, set := range mapping.ClassMappings {
		if counts[set.Impl().Class.Path()] == 1 {
			set.Impl().Root = true
		}
	}
}

func (m *PureModel) buildSetImplementation(ctx *CompileContext, cm ast.ClassMapping, parent *graph.Mapping) (builtSet, error) {
	cls, err := ctx.ResolveClass(cm.Class, classSource(cm))
	if err != nil {
		return builtSet{}, err
	}
	base := graph.SetImplementationBase{
		ID:     classMappingID(cm, cls),
		Class:  cls,
		Root:   cm.Root,
		Parent: parent,
		Source: cm.SourceInformation,
	}
	switch cm.Type {
	case ast.ClassMappingPureInstance:
		set, err := m.buildPureInstance(ctx, cm, base)
		return builtSet{node: cm, set: set}, err
	case ast.ClassMappingOperation, ast.ClassMappingMergeOperation:
		set, err := m.buildOperation(ctx, cm, base)
		return builtSet{node: cm, set: set}, err
	case ast.ClassMappingAggregationAware:
		set, err := m.buildAggregationAware(ctx, cm, base)
		return builtSet{node: cm, set: set}, err
	}
	p, err := m.ext.classMapping(cm.Type)
	if err != nil {
		return builtSet{}, err
	}
	set, err := p.Build(ctx, cm, parent)
	if err != nil {
		return builtSet{}, err
	}
	impl := set.Impl()
	if impl.Class == nil {
		impl.Class = cls
	}
	if impl.ID == "" {
		impl.ID = base.ID
	}
	impl.Parent, impl.Root = parent, cm.Root
	if impl.Source.IsUnknown() {
		impl.Source = cm.SourceInformation
	}
	return builtSet{node: cm, set: set, validate: p.Validate}, nil
}

func (m *PureModel) buildPureInstance(ctx *CompileContext, cm ast.ClassMapping, base graph.SetImplementationBase) (*graph.PureInstanceSetImplementation, error) {
	set := &graph.PureInstanceSetImplementation{SetImplementationBase: base}
	var scope *Scope
	if cm.SrcClass != "" {
		src, err := ctx.ResolveType(cm.SrcClass, cm.SourceInformation)
		if err != nil {
			return nil, err
		}
		set.SrcClass = src
		scope = scope.Bind(Variable(srcVariable, src, graph.PureOne), nil)
	}
	if cm.Filter != nil {
		filter, err := ctx.newBuilder(scope).lambda(*cm.Filter, nil, nil)
		if err != nil {
			return nil, err
		}
		if last := filter.Last(); graph.RawType(last) != graph.Type(m.sys.Boolean) {
			return nil, report.Errorf(cm.Filter.SourceInformation, "Filter of class mapping '%s' must be of type 'Boolean'", base.ID)
		}
		set.Filter = filter
	}
	for _, pm := range cm.PropertyMappings {
		if pm.Type != ast.PropertyMappingPure {
			return nil, report.Unsupported("property mapping type '%s' in a Pure instance class mapping", pm.Type)
		}
		out, err := m.buildPurePropertyMapping(ctx, pm, set, scope)
		if err != nil {
			return nil, err
		}
		set.PropertyMappings = append(set.PropertyMappings, out)
	}
	return set, nil
}

func (m *PureModel) buildPurePropertyMapping(ctx *CompileContext, pm ast.PropertyMapping, owner *graph.PureInstanceSetImplementation, scope *Scope) (*graph.PropertyMapping, error) {
	out := &graph.PropertyMapping{
		SourceSetImplementationID: owner.ID,
		TargetSetImplementationID: pm.Target,
		Explodes:                  pm.ExplodeProperty,
		Source:                    pm.SourceInformation,
	}
	if lp := pm.LocalMappingProperty; lp != nil {
		gt, err := ctx.ResolveGenericType(lp.Type, lp.SourceInformation)
		if err != nil {
			return nil, err
		}
		out.Property = &graph.Property{
			Name:         pm.Property.Property,
			Owner:        owner.Parent,
			GenericType:  gt,
			Multiplicity: ctx.ResolveMultiplicity(lp.Multiplicity),
			Source:       lp.SourceInformation,
		}
		out.LocalMappingProperty = true
	} else {
		prop, err := m.mappedProperty(owner.Class, pm.Property)
		if err != nil {
			return nil, err
		}
		out.Property = prop
	}
	if pm.EnumMappingID != "" {
		em, ok := lo.Find(owner.Parent.AllEnumerationMappings(), func(e *graph.EnumerationMapping) bool { return e.Name == pm.EnumMappingID })
		if !ok {
			return nil, report.Errorf(pm.SourceInformation, "Can't find enumeration mapping '%s' in mapping '%s'", pm.EnumMappingID, owner.Parent.Path())
		}
		out.TransformerEnumMapping = em
	}
	if pm.Transform != nil {
		fn, err := ctx.newBuilder(scope).lambda(*pm.Transform, nil, nil)
		if err != nil {
			return nil, err
		}
		out.Transform = fn
	}
	return out, nil
}

// mappedProperty finds the property a property mapping targets. A
// milestoned property is mapped through its generated all-versions edge.
func (m *PureModel) mappedProperty(cls *graph.Class, ptr ast.PropertyPtr) (*graph.Property, error) {
	prop, err := m.Property(cls, ptr.Property, ptr.SourceInformation)
	if err == nil {
		return prop, nil
	}
	if edge, edgeErr := m.Property(cls, ptr.Property+graph.AllVersionsSuffix, ptr.SourceInformation); edgeErr == nil {
		return edge, nil
	}
	return nil, err
}

func (m *PureModel) buildOperation(ctx *CompileContext, cm ast.ClassMapping, base graph.SetImplementationBase) (*graph.OperationSetImplementation, error) {
	op := cm.Operation
	if op == "" && cm.Type == ast.ClassMappingMergeOperation {
		op = "MERGE"
	}
	path, ok := operationFunctions[op]
	if !ok {
		return nil, report.Errorf(cm.SourceInformation, "Unknown operation '%s' in class mapping '%s'", cm.Operation, base.ID)
	}
	fn, err := m.Function(path, cm.SourceInformation)
	if err != nil {
		return nil, err
	}
	set := &graph.OperationSetImplementation{SetImplementationBase: base, Operation: op, Function: fn}
	for _, id := range cm.Parameters {
		set.Parameters = append(set.Parameters, &graph.SetImplementationContainer{ID: id})
	}
	if cm.Type == ast.ClassMappingMergeOperation && cm.ValidationFunction != nil {
		v, err := ctx.CompileLambda(*cm.ValidationFunction, nil)
		if err != nil {
			return nil, err
		}
		set.ValidationFunction = v
	}
	return set, nil
}

func (m *PureModel) buildAggregationAware(ctx *CompileContext, cm ast.ClassMapping, base graph.SetImplementationBase) (*graph.AggregationAwareSetImplementation, error) {
	if cm.MainSetImplementation == nil {
		return nil, report.Errorf(cm.SourceInformation, "Aggregation aware class mapping '%s' has no main set implementation", base.ID)
	}
	set := &graph.AggregationAwareSetImplementation{SetImplementationBase: base}
	main := *cm.MainSetImplementation
	if main.ID == "" {
		main.ID = base.ID + "_Main"
	}
	mainSet, err := m.buildSetImplementation(ctx, main, base.Parent)
	if err != nil {
		return nil, err
	}
	set.MainSetImplementation = mainSet.set

	for _, agg := range cm.AggregateSetImpls {
		inner := agg.SetImplementation
		if inner.ID == "" {
			inner.ID = base.ID + "_Aggregate_" + strconv.Itoa(agg.Index)
		}
		built, err := m.buildSetImplementation(ctx, inner, base.Parent)
		if err != nil {
			return nil, err
		}
		this := built.set.Impl().Class
		if this == nil {
			this = base.Class
		}
		spec, err := m.buildAggregateSpecification(ctx, agg.AggregateSpecification, this)
		if err != nil {
			return nil, err
		}
		set.AggregateSetImplementations = append(set.AggregateSetImplementations, &graph.AggregateSetImplementationContainer{
			Index:             agg.Index,
			Specification:     spec,
			SetImplementation: built.set,
		})
	}
	return set, nil
}

// buildAggregateSpecification compiles group-by and aggregate lambdas over
// `this`. The first parameter of each aggregate function is typed by the
// result of its map function.
func (m *PureModel) buildAggregateSpecification(ctx *CompileContext, as ast.AggregateSpecification, this *graph.Class) (*graph.AggregateSpecification, error) {
	scope := m.thisScope(this, nil)
	spec := &graph.AggregateSpecification{CanAggregate: as.CanAggregate}
	for _, gb := range as.GroupByFunctions {
		fn, err := ctx.newBuilder(scope).lambda(gb.GroupByFn, nil, nil)
		if err != nil {
			return nil, err
		}
		spec.GroupByFunctions = append(spec.GroupByFunctions, fn)
	}
	for _, av := range as.AggregateValues {
		mapFn, err := ctx.newBuilder(scope).lambda(av.MapFn, nil, nil)
		if err != nil {
			return nil, err
		}
		aggFn := av.AggregateFn
		aggFn.Parameters = append([]ast.ValueSpecification(nil), aggFn.Parameters...)
		if len(aggFn.Parameters) > 0 {
			first := aggFn.Parameters[0]
			first.Class, first.GenericType, first.Multiplicity = "", nil, nil
			aggFn.Parameters[0] = first
		}
		typed := []system.TypedParam{{Type: mapFn.Type.ReturnType, Multiplicity: graph.PureOne}}
		fn, err := ctx.newBuilder(scope).lambda(aggFn, typed, nil)
		if err != nil {
			return nil, err
		}
		spec.AggregateValues = append(spec.AggregateValues, &graph.AggregationFunctionSpecification{MapFn: mapFn, AggregateFn: fn})
	}
	return spec, nil
}

// linkMapping resolves references between class mappings, builds the
// association mappings and tests, and checks Pure instance property
// mappings against their properties.
func (m *PureModel) linkMapping(mp ast.Mapping) error {
	mapping := m.mappings[mp.Path()]
	ctx := m.Context(mapping.Path())
	for _, b := range m.mappingSets[mapping.Path()] {
		if err := m.linkSetImplementation(b.set, mapping); err != nil {
			return err
		}
	}
	for _, am := range mp.AssociationMappings {
		out, err := m.buildAssociationMapping(ctx, am, mapping)
		if err != nil {
			return err
		}
		mapping.AssociationMappings = append(mapping.AssociationMappings, out)
	}
	for _, t := range mp.Tests {
		test, err := m.buildMappingTest(ctx, t)
		if err != nil {
			return err
		}
		mapping.Tests = append(mapping.Tests, test)
	}
	for _, b := range m.mappingSets[mapping.Path()] {
		if err := m.checkSetImplementation(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (m *PureModel) linkSetImplementation(set graph.SetImplementation, mapping *graph.Mapping) error {
	switch s := set.(type) {
	case *graph.OperationSetImplementation:
		for _, p := range s.Parameters {
			target, ok := mapping.ClassMappingByID(p.ID)
			if !ok {
				return report.Errorf(s.Source, "Can't find class mapping '%s' in mapping '%s'", p.ID, mapping.Path())
			}
			p.SetImplementation = target
		}
	case *graph.AggregationAwareSetImplementation:
		if err := m.linkSetImplementation(s.MainSetImplementation, mapping); err != nil {
			return err
		}
		for _, c := range s.AggregateSetImplementations {
			if err := m.linkSetImplementation(c.SetImplementation, mapping); err != nil {
				return err
			}
		}
	}
	for _, pm := range set.Impl().PropertyMappings {
		if pm.TargetSetImplementationID != "" || pm.Property == nil || pm.Property.GenericType == nil {
			continue
		}
		cls, ok := pm.Property.GenericType.RawType.(*graph.Class)
		if !ok {
			continue
		}
		if target, ok := defaultTarget(mapping, cls); ok {
			pm.TargetSetImplementationID = target.Impl().ID
		}
	}
	return nil
}

// defaultTarget picks the class mapping of cls a class-valued property
// mapping routes to when it names none: the only one, or the root.
func defaultTarget(mapping *graph.Mapping, cls *graph.Class) (graph.SetImplementation, bool) {
	sets := mapping.ClassMappingsByClass(cls)
	if len(sets) == 1 {
		return sets[0], true
	}
	return lo.Find(sets, func(s graph.SetImplementation) bool { return s.Impl().Root })
}

// sourceTypes returns the source classes instances of set are built from,
// looking through operation and aggregation aware wrappers.
func sourceTypes(set graph.SetImplementation) []graph.Type {
	switch s := set.(type) {
	case *graph.PureInstanceSetImplementation:
		if s.SrcClass == nil {
			return nil
		}
		return []graph.Type{s.SrcClass}
	case *graph.OperationSetImplementation:
		var out []graph.Type
		for _, p := range s.Parameters {
			if p.SetImplementation != nil {
				out = append(out, sourceTypes(p.SetImplementation)...)
			}
		}
		return lo.Uniq(out)
	case *graph.AggregationAwareSetImplementation:
		return sourceTypes(s.MainSetImplementation)
	}
	return nil
}

func (m *PureModel) checkSetImplementation(ctx *CompileContext, b builtSet) error {
	if b.validate != nil {
		return b.validate(ctx, b.set)
	}
	set, ok := b.set.(*graph.PureInstanceSetImplementation)
	if !ok {
		return nil
	}
	for _, pm := range set.PropertyMappings {
		if err := m.checkPropertyMapping(set, pm); err != nil {
			return err
		}
	}
	return nil
}

// checkPropertyMapping checks the transform of pm against its property. The
// type check passes in either direction so that mappings across a class
// hierarchy are accepted. An exploded property mapping yields many values.
func (m *PureModel) checkPropertyMapping(set *graph.PureInstanceSetImplementation, pm *graph.PropertyMapping) error {
	if pm.Transform == nil || pm.Property == nil {
		return nil
	}
	last := pm.Transform.Last()
	src := last.Source()
	if src.IsUnknown() {
		src = pm.Source
	}
	stub := "Error in class mapping '" + set.ID + "' for property '" + pm.Property.Name + "'"

	actual := graph.RawType(last)
	if actual != nil {
		for _, expected := range m.expectedTypes(set, pm) {
			if graph.IsSubType(actual, expected) || graph.IsSubType(expected, actual) {
				continue
			}
			if err := checkTypeCompatibility(actual, expected, stub, src); err != nil {
				return err
			}
		}
	}
	mult := last.Multiplicity()
	if pm.Explodes {
		mult = graph.ZeroMany
	}
	return checkMultiplicityCompatibility(mult, pm.Property.Multiplicity, stub, src)
}

// expectedTypes returns what the transform of pm may compute: the source
// classes of the target class mapping for a class-valued property, the
// source value type of an enumeration transformer, or the property type.
func (m *PureModel) expectedTypes(set *graph.PureInstanceSetImplementation, pm *graph.PropertyMapping) []graph.Type {
	declared := pm.Property.GenericType.RawType
	if _, ok := declared.(*graph.Class); ok {
		if pm.TargetSetImplementationID == "" {
			return nil
		}
		target, ok := set.Parent.ClassMappingByID(pm.TargetSetImplementationID)
		if !ok {
			return nil
		}
		return sourceTypes(target)
	}
	if em := pm.TransformerEnumMapping; em != nil {
		if len(em.EnumValueMappings) == 0 || len(em.EnumValueMappings[0].SourceValues) == 0 {
			return nil
		}
		t := m.sourceValueType(em.EnumValueMappings[0].SourceValues[0])
		if t == nil {
			return nil
		}
		return []graph.Type{t}
	}
	return []graph.Type{declared}
}

func associationMappingID(am ast.AssociationMapping) string {
	if am.ID != "" {
		return am.ID
	}
	return strings.ReplaceAll(am.Association.Path, packageSeparator, "_")
}

func (m *PureModel) buildAssociationMapping(ctx *CompileContext, am ast.AssociationMapping, mapping *graph.Mapping) (graph.AssociationImplementation, error) {
	if am.Type != ast.AssociationMappingXStore {
		return nil, report.Unsupported("association mapping type '%s'", am.Type)
	}
	src := am.Association.SourceInformation
	if src.IsUnknown() {
		src = am.SourceInformation
	}
	assoc, err := ctx.ResolveAssociation(am.Association.Path, src)
	if err != nil {
		return nil, err
	}
	out := &graph.XStoreAssociationImplementation{AssociationImplementationBase: graph.AssociationImplementationBase{
		ID:          associationMappingID(am),
		Association: assoc,
		Parent:      mapping,
		Source:      am.SourceInformation,
	}}
	for _, path := range am.Stores {
		s, err := ctx.ResolveStore(path, am.SourceInformation)
		if err != nil {
			return nil, err
		}
		out.Stores = append(out.Stores, s)
	}
	for _, pm := range am.PropertyMappings {
		p, err := m.buildXStorePropertyMapping(ctx, pm, assoc, mapping)
		if err != nil {
			return nil, err
		}
		out.PropertyMappings = append(out.PropertyMappings, p)
	}
	return out, nil
}

// buildXStorePropertyMapping compiles the cross expression joining the
// source and target class mappings, with $this and $that bound to their
// classes.
func (m *PureModel) buildXStorePropertyMapping(ctx *CompileContext, pm ast.PropertyMapping, assoc *graph.Association, mapping *graph.Mapping) (*graph.PropertyMapping, error) {
	if pm.Type != ast.PropertyMappingXStore {
		return nil, report.Unsupported("property mapping type '%s' in an XStore association mapping", pm.Type)
	}
	prop, ok := lo.Find(assoc.Properties, func(p *graph.Property) bool { return p.Name == pm.Property.Property })
	if !ok {
		return nil, report.Errorf(pm.Property.SourceInformation, "Can't find property '%s' in association '%s'", pm.Property.Property, assoc.Path())
	}
	that := prop.GenericType.RawType
	var this graph.Type
	for _, other := range assoc.Properties {
		if other != prop {
			this = other.GenericType.RawType
		}
	}
	if s, ok := mapping.ClassMappingByID(pm.Source); ok {
		this = s.Impl().Class
	}
	if t, ok := mapping.ClassMappingByID(pm.Target); ok {
		that = t.Impl().Class
	}
	if pm.CrossExpression == nil {
		return nil, report.Errorf(pm.SourceInformation, "XStore property mapping for '%s' has no cross expression", prop.Name)
	}
	scope := (*Scope)(nil).
		Bind(Variable(thisVariable, this, graph.PureOne), nil).
		Bind(Variable(thatVariable, that, graph.PureOne), nil)
	fn, err := ctx.newBuilder(scope).lambda(*pm.CrossExpression, nil, nil)
	if err != nil {
		return nil, err
	}
	last := fn.Last()
	if graph.RawType(last) != graph.Type(m.sys.Boolean) || !last.Multiplicity().IsToOne() {
		return nil, report.Errorf(pm.CrossExpression.SourceInformation, "XStore property mapping function should return 'Boolean[1]'")
	}
	return &graph.PropertyMapping{
		Property:                  prop,
		SourceSetImplementationID: pm.Source,
		TargetSetImplementationID: pm.Target,
		CrossExpression:           fn,
		Source:                    pm.SourceInformation,
	}, nil
}

func (m *PureModel) buildMappingTest(ctx *CompileContext, t ast.MappingTest) (*graph.MappingTest, error) {
	query, err := ctx.CompileLambda(t.Query, nil)
	if err != nil {
		return nil, err
	}
	out := &graph.MappingTest{Name: t.Name, Query: query, Assert: assertText(t.Assert)}
	for _, d := range t.InputData {
		in := &graph.InputData{Kind: d.Type, InputType: d.InputType, Data: d.Data}
		if d.Type == inputDataObject {
			if d.InputType == "" {
				return nil, report.Errorf(d.SourceInformation, "Object input data does not have a format type")
			}
			cls, err := ctx.ResolveClass(d.SourceClass, d.SourceInformation)
			if err != nil {
				return nil, err
			}
			in.SourceClass = cls
		}
		out.InputData = append(out.InputData, in)
	}
	return out, nil
}

// assertText returns the expected result of a mapping test: the string
// value when the assertion is a JSON string, the raw JSON otherwise.
func assertText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
