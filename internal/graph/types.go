package graph

import (
	"slices"

	"github.com/foundry-zero/purec/internal/report"
)

// Well-known type paths the graph reasons about without a registry.
const (
	AnyPath = "meta::pure::metamodel::type::Any"
	NilPath = "meta::pure::metamodel::type::Nil"
)

// Type is a class, enumeration, measure, unit, primitive type or function type.
type Type interface {
	Element
	typeBase() *TypeBase
}

// TypeBase is embedded by every type.
type TypeBase struct {
	ElementBase
	Generalizations []*Generalization
	Specializations []*Generalization
}

func (t *TypeBase) typeBase() *TypeBase { return t }

// Generalization is a supertype edge. Source spans the supertype reference.
type Generalization struct {
	General  *GenericType
	Specific Type
	Source   report.SourceInformation
}

// Supertypes returns the raw types of t's direct generalizations.
func Supertypes(t Type) []Type {
	gens := t.typeBase().Generalizations
	out := make([]Type, 0, len(gens))
	for _, g := range gens {
		out = append(out, g.General.RawType)
	}
	return out
}

// AddGeneralization links specific to general in both directions.
func AddGeneralization(specific, general Type, src report.SourceInformation) *Generalization {
	g := &Generalization{General: NewGenericType(general), Specific: specific, Source: src}
	specific.typeBase().Generalizations = append(specific.typeBase().Generalizations, g)
	general.typeBase().Specializations = append(general.typeBase().Specializations, g)
	return g
}

// PrimitiveType is a built-in scalar type (String, Integer, Date, ...).
type PrimitiveType struct {
	TypeBase
}

// GenericType is a type reference that may carry type arguments.
type GenericType struct {
	RawType       Type
	TypeArguments []*GenericType
	// MultiplicityArguments accompany function types in lambda types.
	MultiplicityArguments []*Multiplicity
}

// NewGenericType wraps a raw type.
func NewGenericType(t Type, args ...*GenericType) *GenericType {
	return &GenericType{RawType: t, TypeArguments: args}
}

// FunctionType is the raw type of a function or lambda: parameters and a
// typed, multiplicity-qualified return.
type FunctionType struct {
	TypeBase
	Parameters         []*VariableExpression
	ReturnType         *GenericType
	ReturnMultiplicity *Multiplicity
}

// Class is a class with stored, derived and association-contributed properties.
type Class struct {
	TypeBase
	Staged
	Properties                          []*Property
	PropertiesFromAssociations          []*Property
	QualifiedProperties                 []*QualifiedProperty
	QualifiedPropertiesFromAssociations []*QualifiedProperty
	OriginalMilestonedProperties        []*Property
	Constraints                         []*Constraint
}

// Property is a stored property owned by a class or an association.
type Property struct {
	Name         string
	Owner        Element
	GenericType  *GenericType
	Multiplicity *Multiplicity
	Aggregation  string
	DefaultValue ValueSpecification
	Stereotypes  []*Stereotype
	TaggedValues []*TaggedValue
	Source       report.SourceInformation
}

// CallableName implements Callable.
func (p *Property) CallableName() string { return p.Name }

// QualifiedProperty is a derived property: a function of `this` plus
// parameters. Parameters include `this` as their first element.
type QualifiedProperty struct {
	Name         string
	Owner        Element
	Parameters   []*VariableExpression
	GenericType  *GenericType
	Multiplicity *Multiplicity
	Expressions  []ValueSpecification
	Stereotypes  []*Stereotype
	TaggedValues []*TaggedValue
	Source       report.SourceInformation
}

// CallableName implements Callable.
func (q *QualifiedProperty) CallableName() string { return q.Name }

// Arity returns the number of parameters excluding `this`.
func (q *QualifiedProperty) Arity() int { return max(len(q.Parameters)-1, 0) }

// Constraint is a boolean lambda over `this`.
type Constraint struct {
	Name               string
	Owner              Element
	FunctionDefinition *LambdaFunction
	MessageFunction    *LambdaFunction
	ExternalID         string
	EnforcementLevel   string
	Source             report.SourceInformation
}

// Enumeration is a closed set of named values.
type Enumeration struct {
	TypeBase
	Values []*Enum
}

// Value returns the enum value with the given name.
func (e *Enumeration) Value(name string) (*Enum, bool) {
	i := slices.IndexFunc(e.Values, func(v *Enum) bool { return v.Name == name })
	if i < 0 {
		return nil, false
	}
	return e.Values[i], true
}

// Enum is one value of an enumeration.
type Enum struct {
	Name         string
	Enumeration  *Enumeration
	Stereotypes  []*Stereotype
	TaggedValues []*TaggedValue
	Source       report.SourceInformation
}

// Measure groups units; it is itself a type.
type Measure struct {
	TypeBase
	CanonicalUnit     *Unit
	NonCanonicalUnits []*Unit
}

// Unit is a unit of a measure. Its name is "Measure~Unit".
type Unit struct {
	TypeBase
	Measure            *Measure
	ConversionFunction *LambdaFunction
}

// Association owns the two properties linking its endpoint classes.
type Association struct {
	ElementBase
	Staged
	Properties                   []*Property
	QualifiedProperties          []*QualifiedProperty
	OriginalMilestonedProperties []*Property
}

// IsAny reports whether t is the top type.
func IsAny(t Type) bool { return t != nil && t.Path() == AnyPath }

// IsNil reports whether t is the bottom type.
func IsNil(t Type) bool { return t != nil && t.Path() == NilPath }

// GeneralizationResolutionOrder returns t followed by its supertypes,
// depth-first and without duplicates. Any, when reachable, is kept last.
func GeneralizationResolutionOrder(t Type) []Type {
	var out []Type
	seen := map[Type]bool{}
	var top Type
	var visit func(Type)
	visit = func(cur Type) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		if IsAny(cur) {
			top = cur
			return
		}
		out = append(out, cur)
		for _, s := range Supertypes(cur) {
			visit(s)
		}
	}
	visit(t)
	if top != nil {
		out = append(out, top)
	}
	return out
}

// IsSubType reports whether sub is sup or one of its specializations. Every
// type is a subtype of Any and Nil is a subtype of every type.
func IsSubType(sub, sup Type) bool {
	if sub == nil || sup == nil {
		return false
	}
	if sub == sup || IsAny(sup) || IsNil(sub) {
		return true
	}
	if sub.Path() == sup.Path() && sub.Path() != "" {
		return true
	}
	if u, ok := sub.(*Unit); ok && u.Measure == sup {
		return true
	}
	return slices.Contains(GeneralizationResolutionOrder(sub), sup)
}

// CommonSuperType returns the most specific type every element of types
// specializes. anyType is returned when nothing more specific exists.
func CommonSuperType(types []Type, anyType Type) Type {
	var candidates []Type
	for _, t := range types {
		if !IsNil(t) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		if len(types) > 0 {
			return types[0]
		}
		return anyType
	}
	for _, c := range GeneralizationResolutionOrder(candidates[0]) {
		if !slices.ContainsFunc(candidates, func(t Type) bool { return !IsSubType(t, c) }) {
			return c
		}
	}
	return anyType
}
