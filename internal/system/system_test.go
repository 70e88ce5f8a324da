package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-zero/purec/internal/graph"
)

func TestGetIsShared(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestPrimitiveHierarchy(t *testing.T) {
	g := Get()
	assert.Equal(t, "Integer", g.Integer.Path())
	assert.True(t, graph.IsSubType(g.Integer, g.Number))
	assert.True(t, graph.IsSubType(g.StrictDate, g.Date))
	assert.True(t, graph.IsSubType(g.String, g.Any))
	assert.False(t, graph.IsSubType(g.String, g.Number))
	assert.True(t, graph.IsSubType(g.Nil, g.String))

	for _, name := range []string{"String", "Boolean", "Integer", "Float", "Decimal", "Number", "Date", "StrictDate", "DateTime", "LatestDate"} {
		_, ok := g.Primitive(name)
		assert.True(t, ok, name)
	}
}

func TestLookup(t *testing.T) {
	g := Get()
	top, ok := g.Type(graph.AnyPath)
	require.True(t, ok)
	assert.Same(t, g.Any, top)

	p, ok := g.Profile(graph.TemporalProfile)
	require.True(t, ok)
	_, ok = p.Stereotype("bitemporal")
	assert.True(t, ok)

	_, ok = g.Type("meta::pure::profiles::temporal")
	assert.False(t, ok, "a profile is not a type")

	assert.True(t, g.HasPackage("meta::pure::functions::collection"))
	assert.False(t, g.HasPackage("meta::pure::functions::nope"))

	store, ok := g.Element(graph.ModelStorePath)
	require.True(t, ok)
	assert.Same(t, g.ModelStore, store)
}

func TestNativeSignatures(t *testing.T) {
	g := Get()
	filters := g.Natives("filter")
	require.Len(t, filters, 1)
	f := filters[0].Function
	assert.Equal(t, "meta::pure::functions::collection::filter_Any_MANY__Function_1__Any_MANY_", f.Path())
	assert.Equal(t, "filter", f.CallableName())
	require.Len(t, f.Parameters, 2)
	assert.Same(t, graph.ZeroMany, f.Parameters[0].Mult)

	now := g.Natives("now")
	require.Len(t, now, 1)
	assert.Equal(t, "now___DateTime_1_", now[0].Function.Name)

	assert.Len(t, g.Natives("plus"), 5)

	for _, path := range []string{StoreUnionFunction, RouterUnionFunction, InheritanceFunction, MergeFunction} {
		_, ok := g.NativeByPath(path)
		assert.True(t, ok, path)
	}
}

func TestNativeInference(t *testing.T) {
	g := Get()
	person := &graph.Class{}
	person.Name = "Person"
	people := &graph.InstanceValue{ExprBase: graph.ExprBase{GenType: graph.NewGenericType(person), Mult: graph.ZeroMany}}

	first := g.Natives("first")[0]
	gt, m := first.Result(g, []graph.ValueSpecification{people})
	assert.Same(t, person, gt.RawType)
	assert.Same(t, graph.ZeroOne, m)

	getAll := g.Natives("getAll")[0]
	classRef := &graph.InstanceValue{ExprBase: graph.ExprBase{GenType: g.ClassifierOf(person), Mult: graph.PureOne}}
	gt, m = getAll.Result(g, []graph.ValueSpecification{classRef})
	assert.Same(t, person, gt.RawType)
	assert.Same(t, graph.ZeroMany, m)

	size := g.Natives("size")[0]
	gt, m = size.Result(g, []graph.ValueSpecification{people})
	assert.Same(t, g.Integer, gt.RawType)
	assert.Same(t, graph.PureOne, m)

	params := g.Natives("filter")[0].LambdaParams(g, []graph.ValueSpecification{people, nil}, 1)
	require.Len(t, params, 1)
	assert.Same(t, person, params[0].Type.RawType)
	assert.Same(t, graph.PureOne, params[0].Multiplicity)
}

func TestMapResult(t *testing.T) {
	g := Get()
	lambda := func(ret *graph.Multiplicity) *graph.LambdaFunction {
		return &graph.LambdaFunction{Type: &graph.FunctionType{ReturnType: graph.NewGenericType(g.String), ReturnMultiplicity: ret}}
	}
	value := func(m *graph.Multiplicity) graph.ValueSpecification {
		return &graph.InstanceValue{ExprBase: graph.ExprBase{GenType: graph.NewGenericType(g.Integer), Mult: m}}
	}

	tests := []struct {
		in, out, want *graph.Multiplicity
	}{
		{graph.PureOne, graph.PureOne, graph.PureOne},
		{graph.ZeroOne, graph.PureOne, graph.ZeroOne},
		{graph.PureOne, graph.ZeroOne, graph.ZeroOne},
		{graph.ZeroMany, graph.PureOne, graph.ZeroMany},
		{graph.PureOne, graph.ZeroMany, graph.ZeroMany},
	}
	for _, tt := range tests {
		gt, m := mapResult(g, []graph.ValueSpecification{value(tt.in), lambda(tt.out)})
		assert.Same(t, g.String, gt.RawType)
		assert.Same(t, tt.want, m, "%s -> %s", tt.in, tt.out)
	}
}

func TestParseMultiplicity(t *testing.T) {
	for in, want := range map[string]string{"[1]": "[1]", "[*]": "[*]", "[0..1]": "[0..1]", "[1..*]": "[1..*]", "[2..5]": "[2..5]"} {
		m, err := ParseMultiplicity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m.String())
	}
	_, err := ParseMultiplicity("[x]")
	assert.Error(t, err)
}

func TestClassifierOf(t *testing.T) {
	g := Get()
	assert.Equal(t, "meta::pure::metamodel::type::Enumeration<meta::pure::functions::date::DurationUnit>",
		graph.PrintGenericType(g.ClassifierOf(g.DurationUnit)))
	assert.Same(t, g.MappingClass, g.ClassifierOf(&graph.Mapping{}).RawType)
	assert.Same(t, g.StoreClass, g.ClassifierOf(g.ModelStore).RawType)
}
