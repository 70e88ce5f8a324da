// Package system builds the frozen system graph every compilation falls
// back to: primitive types, metamodel classes, the temporal and milestoning
// profiles, and the native function library. The graph is built once per
// process and never mutated afterwards.
package system

import (
	"strings"
	"sync"

	"github.com/foundry-zero/purec/internal/graph"
)

// Graph is the system graph. All fields are read-only after construction.
type Graph struct {
	Root *graph.Package

	Any *graph.Class
	Nil *graph.Class

	String     *graph.PrimitiveType
	Boolean    *graph.PrimitiveType
	Integer    *graph.PrimitiveType
	Float      *graph.PrimitiveType
	Decimal    *graph.PrimitiveType
	Number     *graph.PrimitiveType
	Date       *graph.PrimitiveType
	StrictDate *graph.PrimitiveType
	DateTime   *graph.PrimitiveType
	LatestDate *graph.PrimitiveType
	StrictTime *graph.PrimitiveType
	Binary     *graph.PrimitiveType
	Byte       *graph.PrimitiveType

	// Classifiers of packageable elements.
	ClassClass                      *graph.Class
	EnumerationClass                *graph.Class
	MeasureClass                    *graph.Class
	UnitClass                       *graph.Class
	PrimitiveTypeClass              *graph.Class
	AssociationClass                *graph.Class
	ProfileClass                    *graph.Class
	PackageClass                    *graph.Class
	FunctionClass                   *graph.Class
	LambdaFunctionClass             *graph.Class
	ConcreteFunctionClass           *graph.Class
	NativeFunctionClass             *graph.Class
	MappingClass                    *graph.Class
	RuntimeClass                    *graph.Class
	ConnectionClass                 *graph.Class
	StoreClass                      *graph.Class
	SetImplementationClass          *graph.Class
	OperationSetImplementationClass *graph.Class
	RootGraphFetchTreeClass         *graph.Class
	PropertyGraphFetchTreeClass     *graph.Class

	BusinessDateMilestoning   *graph.Class
	ProcessingDateMilestoning *graph.Class
	BiTemporalMilestoning     *graph.Class

	DurationUnit *graph.Enumeration

	TemporalProfile    *graph.Profile
	MilestoningProfile *graph.Profile

	ModelStore *graph.ModelStore

	elements   map[string]graph.Element
	primitives map[string]*graph.PrimitiveType
	natives    map[string][]*Native
	byPath     map[string]*Native
}

var (
	once     sync.Once
	instance *Graph
)

// Get returns the process-wide system graph, building it on first use.
func Get() *Graph {
	once.Do(func() {
		instance = build()
	})
	return instance
}

func build() *Graph {
	g := &Graph{
		Root:       graph.NewRootPackage(),
		elements:   map[string]graph.Element{},
		primitives: map[string]*graph.PrimitiveType{},
		natives:    map[string][]*Native{},
		byPath:     map[string]*Native{},
	}
	g.buildTypes()
	g.buildProfiles()
	g.buildMilestoningClasses()
	g.buildNatives()
	g.ModelStore = graph.NewModelStore()
	g.Root.Add(g.ModelStore)
	g.elements[graph.ModelStorePath] = g.ModelStore
	return g
}

// Element returns the system element with the given full path.
func (g *Graph) Element(path string) (graph.Element, bool) {
	el, ok := g.elements[path]
	return el, ok
}

// Type returns the system type with the given full path.
func (g *Graph) Type(path string) (graph.Type, bool) {
	el, ok := g.elements[path]
	if !ok {
		return nil, false
	}
	t, ok := el.(graph.Type)
	return t, ok
}

// Profile returns the system profile with the given full path.
func (g *Graph) Profile(path string) (*graph.Profile, bool) {
	el, ok := g.elements[path]
	if !ok {
		return nil, false
	}
	p, ok := el.(*graph.Profile)
	return p, ok
}

// Primitive returns the primitive type with the given name.
func (g *Graph) Primitive(name string) (*graph.PrimitiveType, bool) {
	p, ok := g.primitives[name]
	return p, ok
}

// PrimitiveNames returns the names of the primitive types.
func (g *Graph) PrimitiveNames() []string {
	out := make([]string, 0, len(g.primitives))
	for name := range g.primitives {
		out = append(out, name)
	}
	return out
}

// HasPackage reports whether path names a package of the system graph.
func (g *Graph) HasPackage(path string) bool {
	cur := g.Root
	for _, seg := range strings.Split(path, "::") {
		child, ok := cur.Child(seg)
		if !ok {
			return false
		}
		pkg, ok := child.(*graph.Package)
		if !ok {
			return false
		}
		cur = pkg
	}
	return true
}

// Natives returns the native functions called name, in declaration order.
func (g *Graph) Natives(name string) []*Native {
	return g.natives[name]
}

// NativeByPath returns the native function with the given terse path.
func (g *Graph) NativeByPath(path string) (*Native, bool) {
	n, ok := g.byPath[path]
	return n, ok
}

// NativeNames returns the plain names of all native functions.
func (g *Graph) NativeNames() []string {
	out := make([]string, 0, len(g.natives))
	for name := range g.natives {
		out = append(out, name)
	}
	return out
}

// ClassifierOf returns the generic type of a reference to el, such as
// Class<model::Person> for a class.
func (g *Graph) ClassifierOf(el graph.Element) *graph.GenericType {
	switch e := el.(type) {
	case *graph.Class:
		return graph.NewGenericType(g.ClassClass, graph.NewGenericType(e))
	case *graph.Enumeration:
		return graph.NewGenericType(g.EnumerationClass, graph.NewGenericType(e))
	case *graph.Measure:
		return graph.NewGenericType(g.MeasureClass, graph.NewGenericType(e))
	case *graph.Unit:
		return graph.NewGenericType(g.UnitClass, graph.NewGenericType(e))
	case *graph.PrimitiveType:
		return graph.NewGenericType(g.PrimitiveTypeClass, graph.NewGenericType(e))
	case *graph.Association:
		return graph.NewGenericType(g.AssociationClass)
	case *graph.Profile:
		return graph.NewGenericType(g.ProfileClass)
	case *graph.Package:
		return graph.NewGenericType(g.PackageClass)
	case *graph.ConcreteFunction:
		return graph.NewGenericType(g.ConcreteFunctionClass, graph.NewGenericType(e.Signature()))
	case *graph.NativeFunction:
		return graph.NewGenericType(g.NativeFunctionClass, graph.NewGenericType(e.Signature()))
	case *graph.Mapping:
		return graph.NewGenericType(g.MappingClass)
	case *graph.PackageableRuntime:
		return graph.NewGenericType(g.RuntimeClass)
	case *graph.PackageableConnection:
		return graph.NewGenericType(g.ConnectionClass)
	case graph.Store:
		return graph.NewGenericType(g.StoreClass)
	default:
		return graph.NewGenericType(g.Any)
	}
}

// register places el in the package at pkgPath and indexes it.
func (g *Graph) register(pkgPath string, el graph.Element) {
	g.pkg(pkgPath).Add(el)
	g.elements[el.Path()] = el
}

func (g *Graph) pkg(path string) *graph.Package {
	cur := g.Root
	if path == "" {
		return cur
	}
	for _, seg := range strings.Split(path, "::") {
		if child, ok := cur.Child(seg); ok {
			cur = child.(*graph.Package)
			continue
		}
		cur = graph.NewPackage(seg, cur)
	}
	return cur
}
