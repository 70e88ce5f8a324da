package compiler

import (
	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/system"
)

const unitSeparator = "~"

// declareMeasure registers the measure and its units. Units are types
// named "Measure~Unit" in the measure's package.
func (m *PureModel) declareMeasure(ms ast.Measure) error {
	measure := &graph.Measure{TypeBase: graph.TypeBase{ElementBase: graph.ElementBase{Name: ms.Name}}}
	if err := m.register(ms.Package, measure, ms.SourceInformation); err != nil {
		return err
	}
	m.types[measure.Path()] = measure
	graph.AddGeneralization(measure, m.sys.Any, ms.SourceInformation)

	unit := func(u ast.Unit) (*graph.Unit, error) {
		out := &graph.Unit{
			TypeBase: graph.TypeBase{ElementBase: graph.ElementBase{Name: ms.Name + unitSeparator + u.Name}},
			Measure:  measure,
		}
		if err := m.register(ms.Package, out, u.SourceInformation); err != nil {
			return nil, err
		}
		m.types[out.Path()] = out
		m.imports[out.Path()] = m.importsOf(measure.Path())
		return out, nil
	}
	if ms.CanonicalUnit != nil {
		u, err := unit(*ms.CanonicalUnit)
		if err != nil {
			return err
		}
		measure.CanonicalUnit = u
	}
	for _, nc := range ms.NonCanonicalUnits {
		u, err := unit(nc)
		if err != nil {
			return err
		}
		measure.NonCanonicalUnits = append(measure.NonCanonicalUnits, u)
	}
	return nil
}

// compileMeasure compiles the unit conversion functions. Their single
// parameter is a Number.
func (m *PureModel) compileMeasure(ms ast.Measure) error {
	measure := m.types[ms.Path()].(*graph.Measure)
	ctx := m.Context(measure.Path())
	typed := []system.TypedParam{{Type: graph.NewGenericType(m.sys.Number), Multiplicity: graph.PureOne}}

	convert := func(u ast.Unit, target *graph.Unit) error {
		if u.ConversionFunction == nil {
			return nil
		}
		fn, err := ctx.newBuilder(nil).lambda(*u.ConversionFunction, typed, nil)
		if err != nil {
			return err
		}
		target.ConversionFunction = fn
		return nil
	}
	if ms.CanonicalUnit != nil {
		if err := convert(*ms.CanonicalUnit, measure.CanonicalUnit); err != nil {
			return err
		}
	}
	for i, nc := range ms.NonCanonicalUnits {
		if err := convert(nc, measure.NonCanonicalUnits[i]); err != nil {
			return err
		}
	}
	return nil
}
