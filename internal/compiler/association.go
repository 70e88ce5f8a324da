package compiler

import (
	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// associationState keeps what later association passes need from the
// first one.
type associationState struct {
	ends [2]*graph.Class
	// qualified pairs each user qualified property with the class it is
	// navigated from, in document order.
	qualified []qualifiedEnd
}

type qualifiedEnd struct {
	property *graph.QualifiedProperty
	this     *graph.Class
}

// buildAssociation declares an association and links its two properties
// into the endpoint classes. The property typed by one end is navigated
// from the other end.
func (m *PureModel) buildAssociation(a ast.Association) error {
	assoc := &graph.Association{ElementBase: graph.ElementBase{Name: a.Name}}
	if err := m.register(a.Package, assoc, a.SourceInformation); err != nil {
		return err
	}
	path := assoc.Path()
	m.associations[path] = assoc
	if len(a.Properties) != 2 {
		return report.Errorf(a.SourceInformation, "Expected 2 properties for an association '%s'", path)
	}

	ctx := m.Context(path)
	var ends [2]*graph.Class
	for i, p := range a.Properties {
		c, err := ctx.ResolveClass(p.TypePath(), p.SourceInformation)
		if err != nil {
			return err
		}
		ends[i] = c
	}
	if graph.IsAny(ends[0]) || graph.IsAny(ends[1]) {
		return report.Errorf(a.SourceInformation, "Associations to Any are not allowed. Found in '%s'", path)
	}
	source, target := ends[0], ends[1]

	for _, p := range a.Properties {
		prop, err := m.buildProperty(ctx, p, assoc)
		if err != nil {
			return err
		}
		assoc.Properties = append(assoc.Properties, prop)
	}
	target.PropertiesFromAssociations = append(target.PropertiesFromAssociations, assoc.Properties[0])
	source.PropertiesFromAssociations = append(source.PropertiesFromAssociations, assoc.Properties[1])

	state := &associationState{ends: ends}
	for _, q := range a.QualifiedProperties {
		this := source
		if ret, err := ctx.ResolveType(q.ReturnTypePath(), q.SourceInformation); err == nil && ret == graph.Type(source) {
			this = target
		}
		qp, err := m.qualifiedSignature(ctx, q, assoc, this)
		if err != nil {
			return err
		}
		assoc.QualifiedProperties = append(assoc.QualifiedProperties, qp)
		this.QualifiedPropertiesFromAssociations = append(this.QualifiedPropertiesFromAssociations, qp)
		state.qualified = append(state.qualified, qualifiedEnd{property: qp, this: this})
	}
	for _, p := range a.OriginalMilestonedProperties {
		prop, err := m.buildProperty(ctx, p, assoc)
		if err != nil {
			return err
		}
		assoc.OriginalMilestonedProperties = append(assoc.OriginalMilestonedProperties, prop)
	}

	stereotypes, tagged, err := ctx.ResolveAnnotations(a.Annotations)
	if err != nil {
		return err
	}
	assoc.Stereotypes, assoc.TaggedValues = stereotypes, tagged
	m.associationEnds[path] = state
	return assoc.Advance(graph.StageStructured)
}

// milestoneAssociation runs once both endpoint classes are milestoned.
func (m *PureModel) milestoneAssociation(a ast.Association) error {
	assoc := m.associations[a.Path()]
	applyAssociationMilestoning(assoc, m.associationEnds[a.Path()].ends)
	return assoc.Advance(graph.StageMilestoningResolved)
}

func (m *PureModel) compileAssociationBodies(a ast.Association) error {
	assoc := m.associations[a.Path()]
	state := m.associationEnds[a.Path()]
	ctx := m.Context(assoc.Path())
	for i, q := range a.QualifiedProperties {
		end := state.qualified[i]
		if err := m.compileQualifiedBody(ctx, q, end.property, end.this, assoc.Name); err != nil {
			return err
		}
	}
	return assoc.Advance(graph.StageBodiesCompiled)
}
