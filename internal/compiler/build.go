package compiler

import (
	"time"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// sourced is satisfied by every packageable element node of a document.
type sourced interface {
	Path() string
	Source() report.SourceInformation
}

// each runs fn over elements in document order and stops at the first
// error. Errors that carry no position are anchored at the element.
func each[T sourced](m *PureModel, pass string, elements []T, fn func(T) error) error {
	start := time.Now()
	m.log.Debug("pass started", "pass", pass, "elements", len(elements))
	for _, el := range elements {
		if err := fn(el); err != nil {
			return anchor(err, el)
		}
	}
	elapsed := time.Since(start)
	m.log.Debug("pass finished", "pass", pass, "elements", len(elements), "elapsed", elapsed)
	if m.opts.ObservePass != nil {
		m.opts.ObservePass(pass, len(elements), elapsed)
	}
	return nil
}

func anchor(err error, el sourced) error {
	if report.IsUnsupported(err) || report.HasSourceInformation(err) {
		return err
	}
	return report.Wrap(err, el.Source(), "Error in '"+el.Path()+"': "+report.Message(err))
}

// step runs a whole-document pass that has no per-element loop.
func step(m *PureModel, pass string, count int, fn func() error) error {
	start := time.Now()
	m.log.Debug("pass started", "pass", pass, "elements", count)
	if err := fn(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	m.log.Debug("pass finished", "pass", pass, "elements", count, "elapsed", elapsed)
	if m.opts.ObservePass != nil {
		m.opts.ObservePass(pass, count, elapsed)
	}
	return nil
}

// Build compiles doc into a PureModel. Element kinds are processed in a
// fixed order of passes so that every reference a pass resolves was
// declared by an earlier one. The first error aborts the build.
func Build(doc *ast.Document, opts Options) (*PureModel, error) {
	m := newPureModel(opts)
	m.log.Info("build started", "elements", doc.ElementCount(), "extensions", m.ext.names)
	start := time.Now()

	passes := []func() error{
		func() error { return step(m, "sections", len(doc.Sections), func() error { return m.loadSections(doc.Sections) }) },

		func() error { return each(m, "profiles", doc.Profiles, m.declareProfile) },
		func() error { return each(m, "classes.declare", doc.Classes, m.declareClass) },
		func() error { return each(m, "enumerations", doc.Enumerations, m.declareEnumeration) },
		func() error { return each(m, "functions.declare", doc.Functions, m.declareFunction) },
		func() error { return each(m, "measures.declare", doc.Measures, m.declareMeasure) },

		func() error { return each(m, "classes.structure", doc.Classes, m.structureClass) },
		func() error {
			if !m.opts.RejectGeneralizationCycles {
				return nil
			}
			return step(m, "classes.generalizations", len(doc.Classes), func() error { return m.validateGeneralizations(doc.Classes) })
		},
		func() error { return each(m, "measures.compile", doc.Measures, m.compileMeasure) },

		func() error { return each(m, "associations.declare", doc.Associations, m.buildAssociation) },
		func() error { return each(m, "classes.milestoning", doc.Classes, m.milestoneClass) },
		func() error { return each(m, "associations.milestoning", doc.Associations, m.milestoneAssociation) },
		func() error { return each(m, "classes.bodies", doc.Classes, m.compileClassBodies) },
		func() error { return each(m, "associations.bodies", doc.Associations, m.compileAssociationBodies) },
		func() error { return each(m, "functions.bodies", doc.Functions, m.compileFunction) },

		func() error { return each(m, "extensions.declare", doc.Extensions, m.declareExtensionElement) },
		func() error { return each(m, "extensions.build", doc.Extensions, m.buildExtensionElement) },

		func() error { return each(m, "mappings.declare", doc.Mappings, m.declareMapping) },
		func() error { return each(m, "mappings.structure", doc.Mappings, m.structureMapping) },
		func() error { return each(m, "mappings.classMappings", doc.Mappings, m.buildClassMappings) },
		func() error { return each(m, "mappings.link", doc.Mappings, m.linkMapping) },

		func() error { return each(m, "connections.declare", doc.Connections, m.declareConnection) },
		func() error { return each(m, "connections.build", doc.Connections, m.buildPackageableConnection) },
		func() error { return each(m, "runtimes.declare", doc.Runtimes, m.declareRuntime) },
		func() error { return each(m, "runtimes.build", doc.Runtimes, m.buildPackageableRuntime) },

		func() error { return step(m, "validators.mappings", len(doc.Mappings), func() error { return m.validateMappings(doc.Mappings) }) },
		func() error { return step(m, "validators.extensions", len(m.ext.Validators), m.runExtensionValidators) },
	}
	for _, pass := range passes {
		if err := pass(); err != nil {
			m.log.Debug("build failed", "error", err)
			return nil, err
		}
	}

	m.log.Info("build finished", "elements", len(m.elements), "warnings", len(m.warnings), "elapsed", time.Since(start))
	return m, nil
}

func (m *PureModel) declareExtensionElement(el ast.ExtensionElement) error {
	p, err := m.ext.element(el.Type)
	if err != nil {
		return err
	}
	declared, err := p.Declare(m.Context(el.Path()), el)
	if err != nil {
		return err
	}
	if err := m.register(el.Package, declared, el.SourceInformation); err != nil {
		return err
	}
	if s, ok := declared.(graph.Store); ok {
		m.stores[declared.Path()] = s
	} else {
		m.others[declared.Path()] = declared
	}
	return nil
}

func (m *PureModel) buildExtensionElement(el ast.ExtensionElement) error {
	p, err := m.ext.element(el.Type)
	if err != nil {
		return err
	}
	if p.Build == nil {
		return nil
	}
	declared := m.elements[el.Path()]
	return p.Build(m.Context(el.Path()), el, declared)
}
