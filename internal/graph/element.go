// Package graph defines the nodes of the compiled Pure graph: packages,
// types, properties, functions, expressions, mappings, stores, connections
// and runtimes. Nodes are created by the compiler and are read-only once a
// build has finished.
package graph

import (
	"slices"

	"github.com/foundry-zero/purec/internal/report"
)

// Element is any packageable element.
type Element interface {
	Base() *ElementBase
	Path() string
}

// ElementBase holds what every packageable element has: a name, an owning
// package, a source span and annotations.
type ElementBase struct {
	Name         string
	Package      *Package
	Source       report.SourceInformation
	Stereotypes  []*Stereotype
	TaggedValues []*TaggedValue
}

func (e *ElementBase) Base() *ElementBase { return e }

// Path returns the element's full path. Elements of the root package and the
// root package itself are addressed by their bare name.
func (e *ElementBase) Path() string {
	if e.Package == nil || e.Package.Package == nil {
		return e.Name
	}
	return e.Package.Path() + "::" + e.Name
}

// HasStereotype reports whether the element carries profile.value.
func (e *ElementBase) HasStereotype(profile, value string) bool {
	return HasStereotype(e.Stereotypes, profile, value)
}

// HasStereotype reports whether list holds the stereotype profile.value.
func HasStereotype(list []*Stereotype, profile, value string) bool {
	return slices.ContainsFunc(list, func(s *Stereotype) bool {
		return s.Value == value && s.Profile != nil && s.Profile.Path() == profile
	})
}

// RootPackageName is the name of the sentinel root package.
const RootPackageName = "Root"

// Package is a node of the package tree. Children keep insertion order.
type Package struct {
	ElementBase
	children map[string]Element
	order    []string
}

// NewRootPackage creates an empty root package.
func NewRootPackage() *Package {
	return &Package{ElementBase: ElementBase{Name: RootPackageName}, children: map[string]Element{}}
}

// NewPackage creates an empty package under parent and registers it there.
func NewPackage(name string, parent *Package) *Package {
	p := &Package{ElementBase: ElementBase{Name: name, Package: parent}, children: map[string]Element{}}
	parent.Add(p)
	return p
}

// IsRoot reports whether p is the root package.
func (p *Package) IsRoot() bool { return p.Package == nil }

// Child returns the direct child with the given name, if any.
func (p *Package) Child(name string) (Element, bool) {
	el, ok := p.children[name]
	return el, ok
}

// Add registers el as a child of p, replacing any child of the same name.
func (p *Package) Add(el Element) {
	name := el.Base().Name
	if _, ok := p.children[name]; !ok {
		p.order = append(p.order, name)
	}
	p.children[name] = el
	el.Base().Package = p
}

// Children returns the package's children in insertion order.
func (p *Package) Children() []Element {
	out := make([]Element, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.children[name])
	}
	return out
}

// Profile declares stereotypes and tags.
type Profile struct {
	ElementBase
	Stereotypes []*Stereotype
	Tags        []*Tag
}

// Stereotype returns the declared stereotype with the given value.
func (p *Profile) Stereotype(value string) (*Stereotype, bool) {
	i := slices.IndexFunc(p.Stereotypes, func(s *Stereotype) bool { return s.Value == value })
	if i < 0 {
		return nil, false
	}
	return p.Stereotypes[i], true
}

// Tag returns the declared tag with the given value.
func (p *Profile) Tag(value string) (*Tag, bool) {
	i := slices.IndexFunc(p.Tags, func(t *Tag) bool { return t.Value == value })
	if i < 0 {
		return nil, false
	}
	return p.Tags[i], true
}

// Stereotype is a marker declared in a profile.
type Stereotype struct {
	Value   string
	Profile *Profile
	Source  report.SourceInformation
}

// Tag is a key declared in a profile.
type Tag struct {
	Value   string
	Profile *Profile
	Source  report.SourceInformation
}

// TaggedValue is a tag with its value.
type TaggedValue struct {
	Tag    *Tag
	Value  string
	Source report.SourceInformation
}

// Section is one parsed source section and its import list.
type Section struct {
	ParserName string
	Imports    []string
	Elements   []string
	Source     report.SourceInformation
}

// SectionIndex lists the sections of one source file.
type SectionIndex struct {
	ElementBase
	Sections []*Section
}
