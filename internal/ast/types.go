// Package ast defines the Go types for deserializing Pure protocol model
// documents ("PureModelContextData" JSON) produced by the grammar parser.
package ast

import (
	"encoding/json"

	"github.com/foundry-zero/purec/internal/report"
)

// Element type tags recognised by the core compiler. Any other tag is kept as
// an ExtensionElement and handed to the registered compiler extensions.
const (
	TypeSectionIndex = "sectionIndex"
	TypeProfile      = "profile"
	TypeClass        = "class"
	TypeEnumeration  = "Enumeration"
	TypeAssociation  = "association"
	TypeFunction     = "function"
	TypeMeasure      = "measure"
	TypeMapping      = "mapping"
	TypeConnection   = "connection"
	TypeRuntime      = "runtime"
)

// Document is the top-level representation of a model document. Elements
// are split by kind but keep their relative document order inside each kind.
type Document struct {
	Type         string
	Sections     []SectionIndex
	Profiles     []Profile
	Classes      []Class
	Enumerations []Enumeration
	Associations []Association
	Functions    []Function
	Measures     []Measure
	Mappings     []Mapping
	Connections  []PackageableConnection
	Runtimes     []PackageableRuntime
	Extensions   []ExtensionElement
}

// ElementCount returns the number of packageable elements in the document,
// section indexes excluded.
func (d *Document) ElementCount() int {
	return len(d.Profiles) + len(d.Classes) + len(d.Enumerations) + len(d.Associations) +
		len(d.Functions) + len(d.Measures) + len(d.Mappings) + len(d.Connections) +
		len(d.Runtimes) + len(d.Extensions)
}

// ElementBase holds the fields shared by every packageable element.
type ElementBase struct {
	Package           string                   `json:"package"`
	Name              string                   `json:"name"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// Path returns the element's full path ("pkg::sub::Name").
func (e ElementBase) Path() string {
	if e.Package == "" {
		return e.Name
	}
	return e.Package + "::" + e.Name
}

// Source returns the element's source span.
func (e ElementBase) Source() report.SourceInformation { return e.SourceInformation }

// Multiplicity is a [lower..upper] range. A nil UpperBound is unbounded.
type Multiplicity struct {
	LowerBound int  `json:"lowerBound"`
	UpperBound *int `json:"upperBound,omitempty"`
}

// Bounded builds a multiplicity with a finite upper bound.
func Bounded(lower, upper int) Multiplicity {
	return Multiplicity{LowerBound: lower, UpperBound: &upper}
}

// Unbounded builds a multiplicity [lower..*].
func Unbounded(lower int) Multiplicity {
	return Multiplicity{LowerBound: lower}
}

// ElementPointer references a packageable element by path. It decodes from
// either a bare string or an object carrying the pointer's own source span.
type ElementPointer struct {
	Type              string                   `json:"type,omitempty"`
	Path              string                   `json:"path"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

func (p *ElementPointer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = ElementPointer{Path: s}
		return nil
	}
	type plain ElementPointer
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ElementPointer(v)
	return nil
}

// PackageableType is the raw type of a generic type reference.
type PackageableType struct {
	Type              string                   `json:"_type,omitempty"`
	FullPath          string                   `json:"fullPath"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// GenericType is a type reference possibly carrying type arguments.
type GenericType struct {
	RawType           PackageableType          `json:"rawType"`
	TypeArguments     []GenericType            `json:"typeArguments,omitempty"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// StereotypePtr references a stereotype declared in a profile.
type StereotypePtr struct {
	Profile                  string                   `json:"profile"`
	Value                    string                   `json:"value"`
	ProfileSourceInformation report.SourceInformation `json:"profileSourceInformation"`
	SourceInformation        report.SourceInformation `json:"sourceInformation"`
}

// TagPtr references a tag declared in a profile.
type TagPtr struct {
	Profile                  string                   `json:"profile"`
	Value                    string                   `json:"value"`
	ProfileSourceInformation report.SourceInformation `json:"profileSourceInformation"`
	SourceInformation        report.SourceInformation `json:"sourceInformation"`
}

// TaggedValue attaches a string value to a profile tag.
type TaggedValue struct {
	Tag               TagPtr                   `json:"tag"`
	Value             string                   `json:"value"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// Annotations groups stereotypes and tagged values; it is embedded in every
// annotated construct.
type Annotations struct {
	Stereotypes  []StereotypePtr `json:"stereotypes,omitempty"`
	TaggedValues []TaggedValue   `json:"taggedValues,omitempty"`
}

// ProfileValue is a stereotype or tag declaration. Older documents encode it
// as a bare string.
type ProfileValue struct {
	Value             string                   `json:"value"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

func (v *ProfileValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = ProfileValue{Value: s}
		return nil
	}
	type plain ProfileValue
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = ProfileValue(p)
	return nil
}

// Profile declares stereotypes and tags.
type Profile struct {
	ElementBase
	Stereotypes []ProfileValue `json:"stereotypes"`
	Tags        []ProfileValue `json:"tags"`
}

// Section groups the elements of one parsed source section with its imports.
type Section struct {
	Type              string                   `json:"_type"`
	ParserName        string                   `json:"parserName"`
	Elements          []string                 `json:"elements"`
	Imports           []string                 `json:"imports,omitempty"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// SectionIndex lists the sections of one source file.
type SectionIndex struct {
	ElementBase
	Sections []Section `json:"sections"`
}

// Property is a stored property of a class or an association.
type Property struct {
	Annotations
	Name                          string                   `json:"name"`
	Type                          string                   `json:"type,omitempty"`
	GenericType                   *GenericType             `json:"genericType,omitempty"`
	Multiplicity                  Multiplicity             `json:"multiplicity"`
	DefaultValue                  *DefaultValue            `json:"defaultValue,omitempty"`
	Aggregation                   string                   `json:"aggregation,omitempty"`
	PropertyTypeSourceInformation report.SourceInformation `json:"propertyTypeSourceInformation"`
	SourceInformation             report.SourceInformation `json:"sourceInformation"`
}

// TypePath returns the property's declared type path, whichever of the two
// protocol encodings carries it.
func (p Property) TypePath() string {
	if p.GenericType != nil && p.GenericType.RawType.FullPath != "" {
		return p.GenericType.RawType.FullPath
	}
	return p.Type
}

// TypeSource returns the span of the property's type reference, falling back
// to the property's own span.
func (p Property) TypeSource() report.SourceInformation {
	if p.GenericType != nil && !p.GenericType.RawType.SourceInformation.IsUnknown() {
		return p.GenericType.RawType.SourceInformation
	}
	if !p.PropertyTypeSourceInformation.IsUnknown() {
		return p.PropertyTypeSourceInformation
	}
	return p.SourceInformation
}

// DefaultValue wraps the default value expression of a property.
type DefaultValue struct {
	Value             ValueSpecification       `json:"value"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// QualifiedProperty is a derived property computed by a body expression.
type QualifiedProperty struct {
	Annotations
	Name               string                   `json:"name"`
	Parameters         []ValueSpecification     `json:"parameters"`
	ReturnType         string                   `json:"returnType,omitempty"`
	ReturnGenericType  *GenericType             `json:"returnGenericType,omitempty"`
	ReturnMultiplicity Multiplicity             `json:"returnMultiplicity"`
	Body               []ValueSpecification     `json:"body"`
	SourceInformation  report.SourceInformation `json:"sourceInformation"`
}

// ReturnTypePath returns the declared return type path.
func (q QualifiedProperty) ReturnTypePath() string {
	if q.ReturnGenericType != nil && q.ReturnGenericType.RawType.FullPath != "" {
		return q.ReturnGenericType.RawType.FullPath
	}
	return q.ReturnType
}

// Constraint is a boolean lambda over `this`, with an optional message lambda.
type Constraint struct {
	Name               string                   `json:"name"`
	FunctionDefinition ValueSpecification       `json:"functionDefinition"`
	MessageFunction    *ValueSpecification      `json:"messageFunction,omitempty"`
	ExternalID         string                   `json:"externalId,omitempty"`
	EnforcementLevel   string                   `json:"enforcementLevel,omitempty"`
	SourceInformation  report.SourceInformation `json:"sourceInformation"`
}

// Class is a class declaration.
type Class struct {
	ElementBase
	Annotations
	SuperTypes                   []ElementPointer    `json:"superTypes"`
	Properties                   []Property          `json:"properties"`
	QualifiedProperties          []QualifiedProperty `json:"qualifiedProperties"`
	Constraints                  []Constraint        `json:"constraints"`
	OriginalMilestonedProperties []Property          `json:"originalMilestonedProperties,omitempty"`
}

// EnumValue is one value of an enumeration.
type EnumValue struct {
	Annotations
	Value             string                   `json:"value"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// Enumeration is an enumeration declaration.
type Enumeration struct {
	ElementBase
	Annotations
	Values []EnumValue `json:"values"`
}

// Association links two classes through a pair of properties.
type Association struct {
	ElementBase
	Annotations
	Properties                   []Property          `json:"properties"`
	QualifiedProperties          []QualifiedProperty `json:"qualifiedProperties"`
	OriginalMilestonedProperties []Property          `json:"originalMilestonedProperties,omitempty"`
}

// Function is a concrete function definition.
type Function struct {
	ElementBase
	Annotations
	Parameters         []ValueSpecification `json:"parameters"`
	ReturnType         string               `json:"returnType,omitempty"`
	ReturnGenericType  *GenericType         `json:"returnGenericType,omitempty"`
	ReturnMultiplicity Multiplicity         `json:"returnMultiplicity"`
	Body               []ValueSpecification `json:"body"`
	PreConstraints     []Constraint         `json:"preConstraints,omitempty"`
	PostConstraints    []Constraint         `json:"postConstraints,omitempty"`
	Tests              []FunctionTest       `json:"tests,omitempty"`
}

// ReturnTypePath returns the declared return type path.
func (f Function) ReturnTypePath() string {
	if f.ReturnGenericType != nil && f.ReturnGenericType.RawType.FullPath != "" {
		return f.ReturnGenericType.RawType.FullPath
	}
	return f.ReturnType
}

// FunctionTest is one test case attached to a function.
type FunctionTest struct {
	ID                string                   `json:"id"`
	Parameters        []FunctionTestParameter  `json:"parameters,omitempty"`
	Assertions        []TestAssertion          `json:"assertions,omitempty"`
	SourceInformation report.SourceInformation `json:"sourceInformation"`
}

// FunctionTestParameter is either a primitive value or external format data.
type FunctionTestParameter struct {
	Type               string              `json:"_type"`
	Name               string              `json:"name,omitempty"`
	Value              *ValueSpecification `json:"value,omitempty"`
	ExternalFormatData *ExternalFormatData `json:"externalFormatData,omitempty"`
}

// ExternalFormatData is inline data in a declared content type.
type ExternalFormatData struct {
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

// TestAssertion is the expected outcome of a function test. Expected holds a
// value specification for equalTo and external format data for equalToJson.
type TestAssertion struct {
	Type     string          `json:"_type"`
	ID       string          `json:"id"`
	Expected json.RawMessage `json:"expected"`
}

// Unit is a unit of a measure; conversion functions are lambdas.
type Unit struct {
	Package            string                   `json:"package"`
	Name               string                   `json:"name"`
	Measure            string                   `json:"measure,omitempty"`
	ConversionFunction *ValueSpecification      `json:"conversionFunction,omitempty"`
	SourceInformation  report.SourceInformation `json:"sourceInformation"`
}

// Measure groups a canonical unit with non-canonical ones.
type Measure struct {
	ElementBase
	CanonicalUnit     *Unit  `json:"canonicalUnit,omitempty"`
	NonCanonicalUnits []Unit `json:"nonCanonicalUnits,omitempty"`
}

// ExtensionElement is an element whose tag the core does not know. Raw keeps
// the full JSON object for the extension that claims it.
type ExtensionElement struct {
	ElementBase
	Type string
	Raw  json.RawMessage
}
