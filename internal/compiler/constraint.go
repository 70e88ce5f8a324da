package compiler

import (
	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

const ruleConstraintMessage = "constraint-message"

// compileConstraints compiles constraint predicates in scope. A predicate
// must end in a Boolean. A message function that fails to compile is
// dropped with a warning and the default failure message applies.
func (m *PureModel) compileConstraints(ctx *CompileContext, constraints []ast.Constraint, owner graph.Element, scope *Scope) ([]*graph.Constraint, error) {
	out := make([]*graph.Constraint, 0, len(constraints))
	for _, c := range constraints {
		fn, err := ctx.CompileLambda(c.FunctionDefinition, scope)
		if err != nil {
			if !report.HasSourceInformation(err) {
				return nil, report.Wrap(err, c.SourceInformation, report.Message(err))
			}
			return nil, err
		}
		if last := fn.Last(); last == nil || graph.RawType(last) != graph.Type(m.sys.Boolean) {
			src := c.SourceInformation
			if body := c.FunctionDefinition.Body; len(body) > 0 {
				src = body[len(body)-1].SourceInformation
			}
			return nil, report.Errorf(src, "Constraint must be of type 'Boolean'")
		}

		var msg *graph.LambdaFunction
		if c.MessageFunction != nil {
			msg, err = ctx.CompileLambda(*c.MessageFunction, scope)
			if err != nil {
				m.warn(ruleConstraintMessage, c.SourceInformation, owner.Path(),
					"Can't build the message function for constraint '"+c.Name+"' of '"+owner.Path()+"': "+report.Message(err))
				msg = nil
			}
		}
		out = append(out, &graph.Constraint{
			Name:               c.Name,
			Owner:              owner,
			FunctionDefinition: fn,
			MessageFunction:    msg,
			ExternalID:         c.ExternalID,
			EnforcementLevel:   c.EnforcementLevel,
			Source:             c.SourceInformation,
		})
	}
	return out, nil
}
