package compiler

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// specialTypes resolve directly, without an import search.
var specialTypes = []string{
	"Boolean", "String", "Binary",
	"Date", "StrictDate", "DateTime", "LatestDate",
	"Number", "Float", "Decimal", "Integer",
	"Package",
}

// autoImports are in force in every section.
var autoImports = []string{
	"meta::pure::metamodel",
	"meta::pure::metamodel::type",
	"meta::pure::metamodel::type::generics",
	"meta::pure::metamodel::relationship",
	"meta::pure::metamodel::valuespecification",
	"meta::pure::metamodel::multiplicity",
	"meta::pure::metamodel::function",
	"meta::pure::metamodel::function::property",
	"meta::pure::metamodel::extension",
	"meta::pure::metamodel::import",
	"meta::pure::functions::date",
	"meta::pure::functions::string",
	"meta::pure::functions::collection",
	"meta::pure::functions::meta",
	"meta::pure::functions::constraints",
	"meta::pure::functions::lang",
	"meta::pure::functions::boolean",
	"meta::pure::functions::tools",
	"meta::pure::functions::io",
	"meta::pure::functions::math",
	"meta::pure::functions::asserts",
	"meta::pure::functions::test",
	"meta::pure::functions::multiplicity",
	"meta::pure::router",
	"meta::pure::service",
	"meta::pure::tds",
	"meta::pure::tools",
	"meta::pure::profiles",
}

const packageSeparator = "::"

// CompileContext resolves names on behalf of one element, using the imports
// of the section the element was declared in.
type CompileContext struct {
	Model   *PureModel
	Element string
	imports []string
}

// Context returns the compile context for the element with the given path.
func (m *PureModel) Context(elementPath string) *CompileContext {
	return &CompileContext{
		Model:   m,
		Element: elementPath,
		imports: lo.Uniq(append(slices.Clone(autoImports), m.importsOf(elementPath)...)),
	}
}

// Imports returns the distinct import packages in force, automatic ones
// first.
func (c *CompileContext) Imports() []string { return c.imports }

// resolve runs the import search for path. Qualified paths and special
// types resolve directly. A short path that matches under exactly one
// import resolves to that match; under none it falls back to the root
// package; under several it is ambiguous.
func resolve[T any](c *CompileContext, path string, src report.SourceInformation, get func(string, report.SourceInformation) (T, error)) (T, error) {
	if slices.Contains(specialTypes, path) || strings.Contains(path, packageSeparator) {
		return get(path, src)
	}
	type hit struct {
		path  string
		value T
	}
	var hits []hit
	for _, imp := range c.imports {
		full := imp + packageSeparator + path
		if v, err := get(full, src); err == nil {
			hits = append(hits, hit{full, v})
		}
	}
	switch len(hits) {
	case 0:
		return get(path, src)
	case 1:
		return hits[0].value, nil
	default:
		paths := lo.Map(hits, func(h hit, _ int) string { return h.path })
		slices.Sort(paths)
		var zero T
		return zero, report.Errorf(src, "Can't resolve element with path '%s' - multiple matches found [%s]", path, strings.Join(paths, ", "))
	}
}

// ResolveType resolves a class, enumeration, measure, unit or primitive type.
func (c *CompileContext) ResolveType(path string, src report.SourceInformation) (graph.Type, error) {
	return resolve(c, path, src, c.Model.Type)
}

// ResolveGenericType resolves path and wraps it as a generic type.
func (c *CompileContext) ResolveGenericType(path string, src report.SourceInformation) (*graph.GenericType, error) {
	t, err := c.ResolveType(path, src)
	if err != nil {
		return nil, err
	}
	return graph.NewGenericType(t), nil
}

// ResolveClass resolves a class.
func (c *CompileContext) ResolveClass(path string, src report.SourceInformation) (*graph.Class, error) {
	return resolve(c, path, src, c.Model.Class)
}

// ResolveEnumeration resolves an enumeration.
func (c *CompileContext) ResolveEnumeration(path string, src report.SourceInformation) (*graph.Enumeration, error) {
	return resolve(c, path, src, c.Model.Enumeration)
}

// ResolveMeasure resolves a measure.
func (c *CompileContext) ResolveMeasure(path string, src report.SourceInformation) (*graph.Measure, error) {
	return resolve(c, path, src, c.Model.Measure)
}

// ResolveUnit resolves a unit.
func (c *CompileContext) ResolveUnit(path string, src report.SourceInformation) (*graph.Unit, error) {
	return resolve(c, path, src, c.Model.Unit)
}

// ResolveAssociation resolves an association.
func (c *CompileContext) ResolveAssociation(path string, src report.SourceInformation) (*graph.Association, error) {
	return resolve(c, path, src, c.Model.Association)
}

// ResolveProfile resolves a profile.
func (c *CompileContext) ResolveProfile(path string, src report.SourceInformation) (*graph.Profile, error) {
	return resolve(c, path, src, c.Model.Profile)
}

// ResolveFunction resolves a concrete or native function by signature path.
func (c *CompileContext) ResolveFunction(path string, src report.SourceInformation) (graph.FunctionDefinition, error) {
	return resolve(c, path, src, c.Model.Function)
}

// ResolveStore resolves a store.
func (c *CompileContext) ResolveStore(path string, src report.SourceInformation) (graph.Store, error) {
	return resolve(c, path, src, c.Model.Store)
}

// ResolveMapping resolves a mapping.
func (c *CompileContext) ResolveMapping(path string, src report.SourceInformation) (*graph.Mapping, error) {
	return resolve(c, path, src, c.Model.Mapping)
}

// ResolveConnection resolves a packageable connection.
func (c *CompileContext) ResolveConnection(path string, src report.SourceInformation) (*graph.PackageableConnection, error) {
	return resolve(c, path, src, c.Model.Connection)
}

// ResolveRuntime resolves a packageable runtime.
func (c *CompileContext) ResolveRuntime(path string, src report.SourceInformation) (*graph.PackageableRuntime, error) {
	return resolve(c, path, src, c.Model.Runtime)
}

// ResolveElement resolves any packageable element.
func (c *CompileContext) ResolveElement(path string, src report.SourceInformation) (graph.Element, error) {
	return resolve(c, path, src, func(p string, s report.SourceInformation) (graph.Element, error) {
		if p == "Package" {
			return c.Model.sys.PackageClass, nil
		}
		if el, ok := c.Model.Element(p); ok {
			return el, nil
		}
		if c.Model.sys.HasPackage(p) {
			return c.Model.sys.PackageClass, nil
		}
		return nil, report.Errorf(s, "Can't find the packageable element '%s'", p)
	})
}

// ResolveProperty resolves a property of the class at classPath.
func (c *CompileContext) ResolveProperty(classPath, name string, classSrc, src report.SourceInformation) (*graph.Property, error) {
	cls, err := c.ResolveClass(classPath, classSrc)
	if err != nil {
		return nil, err
	}
	return c.Model.Property(cls, name, src)
}

// ResolveEnumValue resolves a value of the enumeration at path.
func (c *CompileContext) ResolveEnumValue(path, value string, enumSrc, src report.SourceInformation) (*graph.Enum, error) {
	e, err := c.ResolveEnumeration(path, enumSrc)
	if err != nil {
		return nil, err
	}
	return c.Model.EnumValue(e, value, src)
}

// ResolveStereotype resolves a stereotype reference.
func (c *CompileContext) ResolveStereotype(ptr ast.StereotypePtr) (*graph.Stereotype, error) {
	p, err := c.ResolveProfile(ptr.Profile, ptr.ProfileSourceInformation)
	if err != nil {
		return nil, err
	}
	return c.Model.Stereotype(p, ptr.Value, ptr.SourceInformation)
}

// ResolveTag resolves a tag reference.
func (c *CompileContext) ResolveTag(ptr ast.TagPtr) (*graph.Tag, error) {
	p, err := c.ResolveProfile(ptr.Profile, ptr.ProfileSourceInformation)
	if err != nil {
		return nil, err
	}
	return c.Model.Tag(p, ptr.Value, ptr.SourceInformation)
}

// ResolveAnnotations resolves stereotypes and tagged values.
func (c *CompileContext) ResolveAnnotations(a ast.Annotations) ([]*graph.Stereotype, []*graph.TaggedValue, error) {
	stereotypes := make([]*graph.Stereotype, 0, len(a.Stereotypes))
	for _, ptr := range a.Stereotypes {
		s, err := c.ResolveStereotype(ptr)
		if err != nil {
			return nil, nil, err
		}
		stereotypes = append(stereotypes, s)
	}
	tagged := make([]*graph.TaggedValue, 0, len(a.TaggedValues))
	for _, tv := range a.TaggedValues {
		t, err := c.ResolveTag(tv.Tag)
		if err != nil {
			return nil, nil, err
		}
		tagged = append(tagged, &graph.TaggedValue{Tag: t, Value: tv.Value, Source: tv.SourceInformation})
	}
	return stereotypes, tagged, nil
}

// ResolveMultiplicity converts a protocol multiplicity to its canonical form.
func (c *CompileContext) ResolveMultiplicity(m ast.Multiplicity) *graph.Multiplicity {
	upper := graph.Many
	if m.UpperBound != nil {
		upper = *m.UpperBound
	}
	return graph.NewMultiplicity(m.LowerBound, upper)
}
