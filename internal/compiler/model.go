package compiler

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
	"github.com/foundry-zero/purec/internal/system"
)

const reservedPackage = "$implicit"

// PureModel is the graph produced by one build together with the indices
// used to look its elements up by full path. Lookups that miss the user
// graph fall back to the shared system graph.
type PureModel struct {
	Root *graph.Package

	opts Options
	log  *slog.Logger
	sys  *system.Graph
	ext  processorTables

	types        map[string]graph.Type
	functions    map[string]*graph.ConcreteFunction
	associations map[string]*graph.Association
	profiles     map[string]*graph.Profile
	stores       map[string]graph.Store
	mappings     map[string]*graph.Mapping
	connections  map[string]*graph.PackageableConnection
	runtimes     map[string]*graph.PackageableRuntime
	sections     map[string]*graph.SectionIndex
	others       map[string]graph.Element

	// elements holds every user element by path, for duplicate detection.
	elements map[string]graph.Element
	// imports holds the section imports of each element path.
	imports map[string][]string
	// userFunctions groups concrete functions by "package::name".
	userFunctions map[string][]*graph.ConcreteFunction
	// associationEnds carries each association's endpoint classes and
	// qualified properties between its passes.
	associationEnds map[string]*associationState
	// mappingSets pairs each mapping's class mappings with their protocol
	// nodes for the later mapping passes.
	mappingSets map[string][]builtSet

	warnings []report.Finding
}

func newPureModel(opts Options) *PureModel {
	return &PureModel{
		Root:          graph.NewRootPackage(),
		opts:          opts,
		log:           opts.logger(),
		sys:           system.Get(),
		ext:           newProcessorTables(opts.Extensions),
		types:         map[string]graph.Type{},
		functions:     map[string]*graph.ConcreteFunction{},
		associations:  map[string]*graph.Association{},
		profiles:      map[string]*graph.Profile{},
		stores:        map[string]graph.Store{},
		mappings:      map[string]*graph.Mapping{},
		connections:   map[string]*graph.PackageableConnection{},
		runtimes:      map[string]*graph.PackageableRuntime{},
		sections:      map[string]*graph.SectionIndex{},
		others:        map[string]graph.Element{},
		elements:      map[string]graph.Element{},
		imports:       map[string][]string{},
		userFunctions: map[string][]*graph.ConcreteFunction{},

		associationEnds: map[string]*associationState{},
		mappingSets:     map[string][]builtSet{},
	}
}

// System returns the system graph the model falls back to.
func (m *PureModel) System() *system.Graph { return m.sys }

// Warnings returns the warnings collected during the build.
func (m *PureModel) Warnings() []report.Finding { return m.warnings }

// Logger returns the build logger.
func (m *PureModel) Logger() *slog.Logger { return m.log }

func (m *PureModel) warn(rule string, src report.SourceInformation, path, msg string) {
	m.log.Warn(msg, "rule", rule, "element", path, "source", src.String())
	m.warnings = append(m.warnings, report.NewWarning(rule, msg, report.Location{Path: path, Source: src}))
}

// GetOrCreatePackage materializes the package chain for path and returns
// its last package. The empty path is the root package.
func (m *PureModel) GetOrCreatePackage(path string) (*graph.Package, error) {
	cur := m.Root
	if path == "" {
		return cur, nil
	}
	for _, name := range strings.Split(path, "::") {
		child, ok := cur.Child(name)
		if !ok {
			if name == reservedPackage {
				return nil, report.Errorf(report.UnknownSourceInformation, "Can't create package with reserved name '%s'", name)
			}
			cur = graph.NewPackage(name, cur)
			continue
		}
		pkg, ok := child.(*graph.Package)
		if !ok {
			where := cur.Path()
			if cur.IsRoot() {
				where = graph.RootPackageName
			}
			return nil, report.Errorf(report.UnknownSourceInformation, "Element %s in %s is not a package", name, where)
		}
		cur = pkg
	}
	return cur, nil
}

// Element returns any user or system element with the given full path.
func (m *PureModel) Element(path string) (graph.Element, bool) {
	if el, ok := m.elements[path]; ok {
		return el, true
	}
	return m.sys.Element(path)
}

// Type looks up a class, enumeration, measure, unit or primitive type.
func (m *PureModel) Type(path string, src report.SourceInformation) (graph.Type, error) {
	if t, ok := m.types[path]; ok {
		return t, nil
	}
	if path == "Package" {
		return m.sys.PackageClass, nil
	}
	if t, ok := m.sys.Type(path); ok {
		return t, nil
	}
	return nil, report.Errorf(src, "Can't find type '%s'", path)
}

// Class looks up a class.
func (m *PureModel) Class(path string, src report.SourceInformation) (*graph.Class, error) {
	t, err := m.Type(path, src)
	if err == nil {
		if c, ok := t.(*graph.Class); ok {
			return c, nil
		}
	}
	return nil, report.Errorf(src, "Can't find class '%s'", path)
}

// Enumeration looks up an enumeration.
func (m *PureModel) Enumeration(path string, src report.SourceInformation) (*graph.Enumeration, error) {
	t, err := m.Type(path, src)
	if err == nil {
		if e, ok := t.(*graph.Enumeration); ok {
			return e, nil
		}
	}
	return nil, report.Errorf(src, "Can't find enumeration '%s'", path)
}

// Measure looks up a measure.
func (m *PureModel) Measure(path string, src report.SourceInformation) (*graph.Measure, error) {
	t, err := m.Type(path, src)
	if err == nil {
		if ms, ok := t.(*graph.Measure); ok {
			return ms, nil
		}
	}
	return nil, report.Errorf(src, "Can't find measure '%s'", path)
}

// Unit looks up a unit by its "Measure~Unit" path.
func (m *PureModel) Unit(path string, src report.SourceInformation) (*graph.Unit, error) {
	t, err := m.Type(path, src)
	if err == nil {
		if u, ok := t.(*graph.Unit); ok {
			return u, nil
		}
	}
	return nil, report.Errorf(src, "Can't find unit '%s'", path)
}

// Association looks up an association.
func (m *PureModel) Association(path string, src report.SourceInformation) (*graph.Association, error) {
	if a, ok := m.associations[path]; ok {
		return a, nil
	}
	return nil, report.Errorf(src, "Can't find association '%s'", path)
}

// Profile looks up a profile.
func (m *PureModel) Profile(path string, src report.SourceInformation) (*graph.Profile, error) {
	if p, ok := m.profiles[path]; ok {
		return p, nil
	}
	if p, ok := m.sys.Profile(path); ok {
		return p, nil
	}
	return nil, report.Errorf(src, "Can't find profile '%s'", path)
}

// Function looks up a concrete function by its signature path.
func (m *PureModel) Function(path string, src report.SourceInformation) (graph.FunctionDefinition, error) {
	if f, ok := m.functions[path]; ok {
		return f, nil
	}
	if n, ok := m.sys.NativeByPath(path); ok {
		return n.Function, nil
	}
	return nil, report.Errorf(src, "Can't find function '%s'", path)
}

// Store looks up a store. The model store is always present.
func (m *PureModel) Store(path string, src report.SourceInformation) (graph.Store, error) {
	if s, ok := m.stores[path]; ok {
		return s, nil
	}
	if path == graph.ModelStorePath {
		return m.sys.ModelStore, nil
	}
	return nil, report.Errorf(src, "Can't find store '%s'", path)
}

// Mapping looks up a mapping.
func (m *PureModel) Mapping(path string, src report.SourceInformation) (*graph.Mapping, error) {
	if mp, ok := m.mappings[path]; ok {
		return mp, nil
	}
	return nil, report.Errorf(src, "Can't find mapping '%s'", path)
}

// Connection looks up a packageable connection.
func (m *PureModel) Connection(path string, src report.SourceInformation) (*graph.PackageableConnection, error) {
	if c, ok := m.connections[path]; ok {
		return c, nil
	}
	return nil, report.Errorf(src, "Can't find connection '%s'", path)
}

// Runtime looks up a packageable runtime.
func (m *PureModel) Runtime(path string, src report.SourceInformation) (*graph.PackageableRuntime, error) {
	if r, ok := m.runtimes[path]; ok {
		return r, nil
	}
	return nil, report.Errorf(src, "Can't find runtime '%s'", path)
}

// Stereotype looks up a stereotype of profile p.
func (m *PureModel) Stereotype(p *graph.Profile, value string, src report.SourceInformation) (*graph.Stereotype, error) {
	if s, ok := p.Stereotype(value); ok {
		return s, nil
	}
	return nil, report.Errorf(src, "Can't find stereotype '%s' in profile '%s'", value, p.Path())
}

// Tag looks up a tag of profile p.
func (m *PureModel) Tag(p *graph.Profile, value string, src report.SourceInformation) (*graph.Tag, error) {
	if t, ok := p.Tag(value); ok {
		return t, nil
	}
	return nil, report.Errorf(src, "Can't find tag '%s' in profile '%s'", value, p.Path())
}

// EnumValue looks up a value of enumeration e.
func (m *PureModel) EnumValue(e *graph.Enumeration, value string, src report.SourceInformation) (*graph.Enum, error) {
	if v, ok := e.Value(value); ok {
		return v, nil
	}
	return nil, report.Errorf(src, "Can't find enum value '%s' in enumeration '%s'", value, e.Path())
}

// Property looks up a property owned by c or contributed to it by an
// association, searching supertypes as well.
func (m *PureModel) Property(c *graph.Class, name string, src report.SourceInformation) (*graph.Property, error) {
	for _, t := range graph.GeneralizationResolutionOrder(c) {
		cls, ok := t.(*graph.Class)
		if !ok {
			continue
		}
		if p, ok := lo.Find(cls.Properties, func(p *graph.Property) bool { return p.Name == name }); ok {
			return p, nil
		}
		if p, ok := lo.Find(cls.PropertiesFromAssociations, func(p *graph.Property) bool { return p.Name == name }); ok {
			return p, nil
		}
	}
	return nil, report.Errorf(src, "Can't find property '%s' in class '%s'", name, c.Path())
}

// Multiplicity returns the canonical multiplicity called name ("one",
// "zeroone", "zeromany", "onemany", "zero").
func (m *PureModel) Multiplicity(name string) (*graph.Multiplicity, bool) {
	return graph.MultiplicityByName(name)
}

// Section returns the section index with the given path.
func (m *PureModel) Section(path string) (*graph.SectionIndex, bool) {
	s, ok := m.sections[path]
	return s, ok
}

// register places el in its package and indexes it by path. It fails on
// duplicates and on elements without a package.
func (m *PureModel) register(pkgPath string, el graph.Element, src report.SourceInformation) error {
	if pkgPath == "" {
		return report.Errorf(src, "Element package is required")
	}
	pkg, err := m.GetOrCreatePackage(pkgPath)
	if err != nil {
		return report.Wrap(err, src, report.Message(err))
	}
	path := pkgPath + "::" + el.Base().Name
	if _, ok := m.elements[path]; ok {
		return report.Errorf(src, "Duplicated element '%s'", path)
	}
	if _, ok := m.sys.Element(path); ok {
		return report.Errorf(src, "Duplicated element '%s'", path)
	}
	pkg.Add(el)
	el.Base().Source = src
	m.elements[path] = el
	return nil
}

// importsOf returns the section imports in force for element path.
func (m *PureModel) importsOf(path string) []string {
	return m.imports[path]
}

// Classes returns the user classes in no particular order.
func (m *PureModel) Classes() []*graph.Class {
	var out []*graph.Class
	for _, t := range m.types {
		if c, ok := t.(*graph.Class); ok {
			out = append(out, c)
		}
	}
	return out
}

// MappingList returns every user mapping.
func (m *PureModel) MappingList() []*graph.Mapping {
	return lo.Values(m.mappings)
}

// StoreList returns the user stores in no particular order.
func (m *PureModel) StoreList() []graph.Store {
	return lo.Values(m.stores)
}

// RuntimeList returns every user runtime.
func (m *PureModel) RuntimeList() []*graph.PackageableRuntime {
	return lo.Values(m.runtimes)
}
