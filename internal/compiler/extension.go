package compiler

import (
	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// Extension contributes processors for element, class mapping and
// connection kinds the core does not know, plus extra validators and store
// reporters. Extensions are registered explicitly through Options and
// consulted in registration order; the first processor whose type tag
// matches a node handles it.
type Extension interface {
	Name() string
	Processors() Processors
}

// Processors is the set of tables one extension contributes to.
type Processors struct {
	Elements       []ElementProcessor
	ClassMappings  []ClassMappingProcessor
	Connections    []ConnectionProcessor
	StoreReporters []StoreReporter
	Validators     []Validator
}

// ElementProcessor compiles one packageable element kind. Declare runs in
// the first pass and must return the bare element; Build runs after every
// domain element is structured and before mappings.
type ElementProcessor struct {
	Type    string
	Declare func(ctx *CompileContext, el ast.ExtensionElement) (graph.Element, error)
	Build   func(ctx *CompileContext, el ast.ExtensionElement, declared graph.Element) error
}

// ClassMappingProcessor compiles one class mapping kind. Build runs in the
// third mapping pass. Validate, if set, runs in the fourth.
type ClassMappingProcessor struct {
	Type     string
	Build    func(ctx *CompileContext, cm ast.ClassMapping, parent *graph.Mapping) (graph.SetImplementation, error)
	Validate func(ctx *CompileContext, set graph.SetImplementation) error
}

// ConnectionProcessor compiles one connection kind.
type ConnectionProcessor struct {
	Type  string
	Build func(ctx *CompileContext, c ast.Connection) (graph.Connection, error)
}

// StoreReporter reports the stores a class mapping reads from. It returns
// false when it does not recognise the class mapping.
type StoreReporter func(set graph.SetImplementation) ([]graph.Store, bool)

// Validator runs over the finished model.
type Validator func(m *PureModel) error

// processorTables merges the processors of all extensions, keeping the
// registration order.
type processorTables struct {
	Processors
	names []string
}

func newProcessorTables(exts []Extension) processorTables {
	var t processorTables
	for _, ext := range exts {
		p := ext.Processors()
		t.names = append(t.names, ext.Name())
		t.Elements = append(t.Elements, p.Elements...)
		t.ClassMappings = append(t.ClassMappings, p.ClassMappings...)
		t.Connections = append(t.Connections, p.Connections...)
		t.StoreReporters = append(t.StoreReporters, p.StoreReporters...)
		t.Validators = append(t.Validators, p.Validators...)
	}
	return t
}

func (t processorTables) element(tag string) (ElementProcessor, error) {
	for _, p := range t.Elements {
		if p.Type == tag {
			return p, nil
		}
	}
	return ElementProcessor{}, report.Unsupported("no compiler extension handles element type '%s'", tag)
}

func (t processorTables) classMapping(tag string) (ClassMappingProcessor, error) {
	for _, p := range t.ClassMappings {
		if p.Type == tag {
			return p, nil
		}
	}
	return ClassMappingProcessor{}, report.Unsupported("no compiler extension handles class mapping type '%s'", tag)
}

func (t processorTables) connection(tag string) (ConnectionProcessor, error) {
	for _, p := range t.Connections {
		if p.Type == tag {
			return p, nil
		}
	}
	return ConnectionProcessor{}, report.Unsupported("no compiler extension handles connection type '%s'", tag)
}

// storesOf asks each reporter in turn for the stores set reads from.
func (t processorTables) storesOf(set graph.SetImplementation) ([]graph.Store, bool) {
	for _, r := range t.StoreReporters {
		if stores, ok := r(set); ok {
			return stores, true
		}
	}
	return nil, false
}
