package system

import (
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

const (
	typePackage         = "meta::pure::metamodel::type"
	functionPackage     = "meta::pure::metamodel::function"
	mappingPackage      = "meta::pure::mapping"
	graphFetchPackage   = "meta::pure::graphFetch"
	milestoningPackage  = "meta::pure::milestoning"
	datePackage         = "meta::pure::functions::date"
	relationshipPackage = "meta::pure::metamodel::relationship"
)

func (g *Graph) buildTypes() {
	g.Any = g.class(typePackage, "Any")
	g.Nil = g.class(typePackage, "Nil")

	g.Number = g.primitive("Number", g.Any)
	g.Integer = g.primitive("Integer", g.Number)
	g.Float = g.primitive("Float", g.Number)
	g.Decimal = g.primitive("Decimal", g.Number)
	g.Date = g.primitive("Date", g.Any)
	g.StrictDate = g.primitive("StrictDate", g.Date)
	g.DateTime = g.primitive("DateTime", g.Date)
	g.LatestDate = g.primitive("LatestDate", g.Date)
	g.String = g.primitive("String", g.Any)
	g.Boolean = g.primitive("Boolean", g.Any)
	g.StrictTime = g.primitive("StrictTime", g.Any)
	g.Binary = g.primitive("Binary", g.Any)
	g.Byte = g.primitive("Byte", g.Any)

	typ := g.class(typePackage, "Type", g.Any)
	g.ClassClass = g.class(typePackage, "Class", typ)
	g.EnumerationClass = g.class(typePackage, "Enumeration", typ)
	g.PrimitiveTypeClass = g.class(typePackage, "PrimitiveType", typ)
	g.MeasureClass = g.class(typePackage, "Measure", typ)
	g.UnitClass = g.class(typePackage, "Unit", typ)
	g.AssociationClass = g.class(relationshipPackage, "Association", g.Any)
	g.ProfileClass = g.class("meta::pure::metamodel::extension", "Profile", g.Any)
	g.PackageClass = g.class("meta::pure::metamodel", "Package", g.Any)

	g.FunctionClass = g.class(functionPackage, "Function", g.Any)
	g.LambdaFunctionClass = g.class(functionPackage, "LambdaFunction", g.FunctionClass)
	g.ConcreteFunctionClass = g.class(functionPackage, "ConcreteFunctionDefinition", g.FunctionClass)
	g.NativeFunctionClass = g.class(functionPackage, "NativeFunction", g.FunctionClass)

	g.MappingClass = g.class(mappingPackage, "Mapping", g.Any)
	g.SetImplementationClass = g.class(mappingPackage, "SetImplementation", g.Any)
	g.OperationSetImplementationClass = g.class(mappingPackage, "OperationSetImplementation", g.SetImplementationClass)
	g.RuntimeClass = g.class("meta::pure::runtime", "PackageableRuntime", g.Any)
	g.ConnectionClass = g.class("meta::pure::runtime", "PackageableConnection", g.Any)
	g.StoreClass = g.class("meta::pure::store", "Store", g.Any)

	tree := g.class(graphFetchPackage, "GraphFetchTree", g.Any)
	g.RootGraphFetchTreeClass = g.class(graphFetchPackage, "RootGraphFetchTree", tree)
	g.PropertyGraphFetchTreeClass = g.class(graphFetchPackage, "PropertyGraphFetchTree", tree)

	g.DurationUnit = &graph.Enumeration{}
	g.DurationUnit.Name = "DurationUnit"
	graph.AddGeneralization(g.DurationUnit, g.Any, report.UnknownSourceInformation)
	for _, v := range []string{"YEARS", "MONTHS", "WEEKS", "DAYS", "HOURS", "MINUTES", "SECONDS", "MILLISECONDS", "MICROSECONDS", "NANOSECONDS"} {
		g.DurationUnit.Values = append(g.DurationUnit.Values, &graph.Enum{Name: v, Enumeration: g.DurationUnit})
	}
	g.register(datePackage, g.DurationUnit)
}

func (g *Graph) buildMilestoningClasses() {
	base := g.class(milestoningPackage, "DateMilestoning", g.Any)
	g.BusinessDateMilestoning = g.class(milestoningPackage, "BusinessDateMilestoning", base)
	g.property(g.BusinessDateMilestoning, "from", g.Date)
	g.property(g.BusinessDateMilestoning, "thru", g.Date)

	g.ProcessingDateMilestoning = g.class(milestoningPackage, "ProcessingDateMilestoning", base)
	g.property(g.ProcessingDateMilestoning, "in", g.Date)
	g.property(g.ProcessingDateMilestoning, "out", g.Date)

	g.BiTemporalMilestoning = g.class(milestoningPackage, "BiTemporalMilestoning", base)
	for _, name := range []string{"from", "thru", "in", "out"} {
		g.property(g.BiTemporalMilestoning, name, g.Date)
	}
}

// RangeClass returns the class of the generated milestoning range property.
func (g *Graph) RangeClass(t graph.Temporal) *graph.Class {
	switch t {
	case graph.BusinessTemporal:
		return g.BusinessDateMilestoning
	case graph.ProcessingTemporal:
		return g.ProcessingDateMilestoning
	case graph.Bitemporal:
		return g.BiTemporalMilestoning
	default:
		return nil
	}
}

func (g *Graph) class(pkg, name string, supers ...graph.Type) *graph.Class {
	c := &graph.Class{}
	c.Name = name
	for _, s := range supers {
		graph.AddGeneralization(c, s, report.UnknownSourceInformation)
	}
	g.register(pkg, c)
	return c
}

func (g *Graph) primitive(name string, super graph.Type) *graph.PrimitiveType {
	p := &graph.PrimitiveType{}
	p.Name = name
	graph.AddGeneralization(p, super, report.UnknownSourceInformation)
	g.register("", p)
	g.primitives[name] = p
	return p
}

func (g *Graph) property(c *graph.Class, name string, t graph.Type) {
	c.Properties = append(c.Properties, &graph.Property{
		Name:         name,
		Owner:        c,
		GenericType:  graph.NewGenericType(t),
		Multiplicity: graph.PureOne,
	})
}
