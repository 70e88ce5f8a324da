package graph

import "github.com/foundry-zero/purec/internal/report"

// Mapping is a set of class, enumeration and association mappings plus the
// mappings it includes.
type Mapping struct {
	ElementBase
	Includes            []*MappingInclude
	ClassMappings       []SetImplementation
	EnumerationMappings []*EnumerationMapping
	AssociationMappings []AssociationImplementation
	Tests               []*MappingTest
}

// MappingInclude is an include edge. StoreSubstitutions replace a store of
// the included mapping with another.
type MappingInclude struct {
	Owner              *Mapping
	Included           *Mapping
	StoreSubstitutions []*StoreSubstitution
	Source             report.SourceInformation
}

// StoreSubstitution swaps Original for Substitute.
type StoreSubstitution struct {
	Original   Store
	Substitute Store
}

// AllIncludedMappings returns m's transitive includes, each once, in
// discovery order. Include cycles terminate.
func (m *Mapping) AllIncludedMappings() []*Mapping {
	var out []*Mapping
	seen := map[*Mapping]bool{m: true}
	var walk func(*Mapping)
	walk = func(cur *Mapping) {
		for _, inc := range cur.Includes {
			if inc.Included == nil || seen[inc.Included] {
				continue
			}
			seen[inc.Included] = true
			out = append(out, inc.Included)
			walk(inc.Included)
		}
	}
	walk(m)
	return out
}

// AllClassMappings returns m's class mappings followed by those of its
// includes.
func (m *Mapping) AllClassMappings() []SetImplementation {
	out := append([]SetImplementation(nil), m.ClassMappings...)
	for _, inc := range m.AllIncludedMappings() {
		out = append(out, inc.ClassMappings...)
	}
	return out
}

// AllEnumerationMappings returns m's enumeration mappings followed by those
// of its includes.
func (m *Mapping) AllEnumerationMappings() []*EnumerationMapping {
	out := append([]*EnumerationMapping(nil), m.EnumerationMappings...)
	for _, inc := range m.AllIncludedMappings() {
		out = append(out, inc.EnumerationMappings...)
	}
	return out
}

// ClassMappingByID finds a class mapping by id in m or its includes.
func (m *Mapping) ClassMappingByID(id string) (SetImplementation, bool) {
	for _, s := range m.AllClassMappings() {
		if s.Impl().ID == id {
			return s, true
		}
	}
	return nil, false
}

// ClassMappingsByClass returns the class mappings targeting c in m or its
// includes.
func (m *Mapping) ClassMappingsByClass(c *Class) []SetImplementation {
	var out []SetImplementation
	for _, s := range m.AllClassMappings() {
		if s.Impl().Class == c {
			out = append(out, s)
		}
	}
	return out
}

// SetImplementation is a compiled class mapping.
type SetImplementation interface {
	Impl() *SetImplementationBase
}

// SetImplementationBase holds what every class mapping has.
type SetImplementationBase struct {
	ID               string
	Class            *Class
	Root             bool
	Parent           *Mapping
	PropertyMappings []*PropertyMapping
	Source           report.SourceInformation
}

func (s *SetImplementationBase) Impl() *SetImplementationBase { return s }

// PureInstanceSetImplementation builds instances from instances of SrcClass.
// SrcClass is nil when instances are created from constants.
type PureInstanceSetImplementation struct {
	SetImplementationBase
	SrcClass Type
	Filter   *LambdaFunction
}

// OperationSetImplementation combines other class mappings through a router
// function.
type OperationSetImplementation struct {
	SetImplementationBase
	Operation          string
	Function           FunctionDefinition
	Parameters         []*SetImplementationContainer
	ValidationFunction *LambdaFunction
}

// SetImplementationContainer references a class mapping by id.
type SetImplementationContainer struct {
	ID                string
	SetImplementation SetImplementation
}

// AggregationAwareSetImplementation wraps a main class mapping and
// pre-aggregated variants of it.
type AggregationAwareSetImplementation struct {
	SetImplementationBase
	MainSetImplementation       SetImplementation
	AggregateSetImplementations []*AggregateSetImplementationContainer
}

// AggregateSetImplementationContainer pairs a pre-aggregated class mapping
// with its aggregate specification.
type AggregateSetImplementationContainer struct {
	Index             int
	Specification     *AggregateSpecification
	SetImplementation SetImplementation
}

// AggregateSpecification lists the group-by and aggregate-value lambdas.
type AggregateSpecification struct {
	CanAggregate     bool
	GroupByFunctions []*LambdaFunction
	AggregateValues  []*AggregationFunctionSpecification
}

// AggregationFunctionSpecification pairs a map lambda with an aggregation.
type AggregationFunctionSpecification struct {
	MapFn       *LambdaFunction
	AggregateFn *LambdaFunction
}

// PropertyMapping maps one property. Detail carries extension-specific data
// such as a relational column.
type PropertyMapping struct {
	Property                  *Property
	SourceSetImplementationID string
	TargetSetImplementationID string
	Transform                 *LambdaFunction
	Explodes                  bool
	TransformerEnumMapping    *EnumerationMapping
	LocalMappingProperty      bool
	CrossExpression           *LambdaFunction
	Detail                    any
	Source                    report.SourceInformation
}

// EnumerationMapping maps enum values to source values.
type EnumerationMapping struct {
	Name              string
	Enumeration       *Enumeration
	Parent            *Mapping
	EnumValueMappings []*EnumValueMapping
	Source            report.SourceInformation
}

// EnumValueMapping lists the source values of one enum value. Source values
// are strings, int64 or *Enum.
type EnumValueMapping struct {
	Enum         *Enum
	SourceValues []any
}

// AssociationImplementation is a compiled association mapping.
type AssociationImplementation interface {
	AssocImpl() *AssociationImplementationBase
}

// AssociationImplementationBase holds what every association mapping has.
type AssociationImplementationBase struct {
	ID               string
	Association      *Association
	Parent           *Mapping
	Stores           []Store
	PropertyMappings []*PropertyMapping
	Source           report.SourceInformation
}

func (a *AssociationImplementationBase) AssocImpl() *AssociationImplementationBase { return a }

// XStoreAssociationImplementation joins two class mappings with boolean
// cross expressions over $this and $that.
type XStoreAssociationImplementation struct {
	AssociationImplementationBase
}

// MappingTest is a legacy mapping test.
type MappingTest struct {
	Name      string
	Query     *LambdaFunction
	InputData []*InputData
	Assert    string
}

// InputData is test data for one source class.
type InputData struct {
	Kind        string
	SourceClass Type
	InputType   string
	Data        string
}
