package ast

import (
	"encoding/json"

	"github.com/foundry-zero/purec/internal/report"
)

// Class mapping type tags handled by the core.
const (
	ClassMappingPureInstance     = "pureInstance"
	ClassMappingOperation        = "operation"
	ClassMappingMergeOperation   = "mergeOperation"
	ClassMappingAggregationAware = "aggregationAware"

	PropertyMappingPure   = "purePropertyMapping"
	PropertyMappingXStore = "xStorePropertyMapping"

	AssociationMappingXStore = "xStore"
)

// Mapping is a mapping declaration.
type Mapping struct {
	ElementBase
	IncludedMappings    []MappingInclude     `json:"includedMappings,omitempty"`
	ClassMappings       []ClassMapping       `json:"classMappings,omitempty"`
	EnumerationMappings []EnumerationMapping `json:"enumerationMappings,omitempty"`
	AssociationMappings []AssociationMapping `json:"associationMappings,omitempty"`
	Tests               []MappingTest        `json:"tests,omitempty"`
}

// MappingInclude is an include edge, optionally substituting one store for
// another. Legacy documents split the path into package and name.
type MappingInclude struct {
	Type                   string                   `json:"_type,omitempty"`
	IncludedMapping        string                   `json:"includedMapping,omitempty"`
	IncludedMappingPackage string                   `json:"includedMappingPackage,omitempty"`
	IncludedMappingName    string                   `json:"includedMappingName,omitempty"`
	SourceDatabasePath     string                   `json:"sourceDatabasePath,omitempty"`
	TargetDatabasePath     string                   `json:"targetDatabasePath,omitempty"`
	SourceInformation      report.SourceInformation `json:"sourceInformation"`
}

// Path returns the full path of the included mapping.
func (m MappingInclude) Path() string {
	if m.IncludedMapping != "" {
		return m.IncludedMapping
	}
	if m.IncludedMappingPackage == "" {
		return m.IncludedMappingName
	}
	return m.IncludedMappingPackage + "::" + m.IncludedMappingName
}

// ClassMapping is a flat union over class mapping variants. Raw keeps the
// original object for extension-contributed variants.
type ClassMapping struct {
	Type                   string                   `json:"_type"`
	ID                     string                   `json:"id,omitempty"`
	Class                  string                   `json:"class"`
	Root                   bool                     `json:"root"`
	ExtendsClassMappingID  string                   `json:"extendsClassMappingId,omitempty"`
	SrcClass               string                   `json:"srcClass,omitempty"`
	Filter                 *ValueSpecification      `json:"filter,omitempty"`
	PropertyMappings       []PropertyMapping        `json:"propertyMappings,omitempty"`
	Operation              string                   `json:"operation,omitempty"`
	Parameters             []string                 `json:"parameters,omitempty"`
	ValidationFunction     *ValueSpecification      `json:"validationFunction,omitempty"`
	MainSetImplementation  *ClassMapping            `json:"mainSetImplementation,omitempty"`
	AggregateSetImpls      []AggregateSetImpl       `json:"aggregateSetImplementations,omitempty"`
	ClassSourceInformation report.SourceInformation `json:"classSourceInformation"`
	SourceInformation      report.SourceInformation `json:"sourceInformation"`

	Raw json.RawMessage `json:"-"`
}

func (c *ClassMapping) UnmarshalJSON(data []byte) error {
	type plain ClassMapping
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = ClassMapping(p)
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// AggregateSetImpl pairs a pre-aggregated set implementation with the
// specification of what it aggregates.
type AggregateSetImpl struct {
	Index                  int                    `json:"index"`
	AggregateSpecification AggregateSpecification `json:"aggregateSpecification"`
	SetImplementation      ClassMapping           `json:"setImplementation"`
}

// AggregateSpecification lists group-by and aggregate-value lambdas.
type AggregateSpecification struct {
	CanAggregate     bool                 `json:"canAggregate"`
	GroupByFunctions []GroupByFunction    `json:"groupByFunctions"`
	AggregateValues  []AggregateValueSpec `json:"aggregateValues"`
}

// GroupByFunction is a group-by lambda over the un-aggregated class.
type GroupByFunction struct {
	GroupByFn ValueSpecification `json:"groupByFn"`
}

// AggregateValueSpec pairs a map lambda with an aggregation lambda.
type AggregateValueSpec struct {
	MapFn       ValueSpecification `json:"mapFn"`
	AggregateFn ValueSpecification `json:"aggregateFn"`
}

// PropertyPtr names the mapped property.
type PropertyPtr struct {
	Class             string                   `json:"class,omitempty"`
	Property          string                   `json:"property"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// LocalMappingProperty declares a property that exists only in the mapping.
type LocalMappingProperty struct {
	Type              string                   `json:"type"`
	Multiplicity      Multiplicity             `json:"multiplicity"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// PropertyMapping is a flat union over property mapping variants.
type PropertyMapping struct {
	Type                 string                   `json:"_type"`
	Property             PropertyPtr              `json:"property"`
	Source               string                   `json:"source,omitempty"`
	Target               string                   `json:"target,omitempty"`
	LocalMappingProperty *LocalMappingProperty    `json:"localMappingProperty,omitempty"`
	Transform            *ValueSpecification      `json:"transform,omitempty"`
	ExplodeProperty      bool                     `json:"explodeProperty,omitempty"`
	EnumMappingID        string                   `json:"enumMappingId,omitempty"`
	CrossExpression      *ValueSpecification      `json:"crossExpression,omitempty"`
	SourceInformation    report.SourceInformation `json:"sourceInformation"`

	Raw json.RawMessage `json:"-"`
}

func (p *PropertyMapping) UnmarshalJSON(data []byte) error {
	type plain PropertyMapping
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PropertyMapping(v)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// AssociationMapping maps an association between two class mappings.
type AssociationMapping struct {
	Type              string                   `json:"_type"`
	ID                string                   `json:"id,omitempty"`
	Association       ElementPointer           `json:"association"`
	Stores            []string                 `json:"stores,omitempty"`
	PropertyMappings  []PropertyMapping        `json:"propertyMappings"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`

	Raw json.RawMessage `json:"-"`
}

func (a *AssociationMapping) UnmarshalJSON(data []byte) error {
	type plain AssociationMapping
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = AssociationMapping(v)
	a.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// EnumerationMapping maps enum values to source values. SourceValues are kept
// raw because four historical encodings must all be accepted.
type EnumerationMapping struct {
	ID                string                   `json:"id,omitempty"`
	Enumeration       ElementPointer           `json:"enumeration"`
	SourceType        string                   `json:"sourceType,omitempty"`
	EnumValueMappings []EnumValueMapping       `json:"enumValueMappings"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// EnumValueMapping lists the source values of one enum value.
type EnumValueMapping struct {
	EnumValue    string            `json:"enumValue"`
	SourceValues []json.RawMessage `json:"sourceValues"`
}

// MappingTest is a legacy mapping test: a query plus input data.
type MappingTest struct {
	Name      string             `json:"name"`
	Query     ValueSpecification `json:"query"`
	InputData []InputData        `json:"inputData"`
	Assert    json.RawMessage    `json:"assert,omitempty"`
}

// InputData is test data for one source. Object input data names the source
// class and the format of Data.
type InputData struct {
	Type              string                   `json:"_type"`
	SourceClass       string                   `json:"sourceClass,omitempty"`
	InputType         string                   `json:"inputType,omitempty"`
	Data              string                   `json:"data,omitempty"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`

	Raw json.RawMessage `json:"-"`
}

func (d *InputData) UnmarshalJSON(data []byte) error {
	type plain InputData
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = InputData(v)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}
