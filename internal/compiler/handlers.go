package compiler

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
	"github.com/foundry-zero/purec/internal/system"
)

// handler is one dispatch candidate of a call: a native of the system
// library or a concrete function of the document.
type handler struct {
	native *system.Native
	user   *graph.ConcreteFunction
}

func (h handler) function() graph.FunctionDefinition {
	if h.native != nil {
		return h.native.Function
	}
	return h.user
}

// name is the plain name used at call sites.
func (h handler) name() string { return h.function().CallableName() }

// signatureName is the terse signature the function is registered under.
func (h handler) signatureName() string { return h.function().Base().Name }

func (h handler) params() []*graph.VariableExpression {
	if h.native != nil {
		return h.native.Function.Parameters
	}
	return h.user.Parameters
}

func (h handler) result(sys *system.Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
	if h.native != nil {
		return h.native.Result(sys, args)
	}
	return h.user.ReturnType, h.user.ReturnMultiplicity
}

// lambdaParams types the parameters of a lambda passed at argument i. For
// user functions the declared parameter type must carry a function type.
func (h handler) lambdaParams(sys *system.Graph, args []graph.ValueSpecification, i int) []system.TypedParam {
	if h.native != nil {
		if h.native.LambdaParams == nil {
			return nil
		}
		return h.native.LambdaParams(sys, args, i)
	}
	declared := h.user.Parameters[i].GenType
	if declared == nil {
		return nil
	}
	for _, arg := range declared.TypeArguments {
		if ft, ok := arg.RawType.(*graph.FunctionType); ok {
			return lo.Map(ft.Parameters, func(p *graph.VariableExpression, _ int) system.TypedParam {
				return system.TypedParam{Type: p.GenType, Multiplicity: p.Mult}
			})
		}
	}
	return nil
}

// accepts reports whether every argument is a subtype of the declared
// parameter type and fits its multiplicity.
func (h handler) accepts(args []graph.ValueSpecification) bool {
	params := h.params()
	if len(params) != len(args) {
		return false
	}
	for i, p := range params {
		if args[i] == nil {
			return false
		}
		if p.GenType != nil && !graph.IsSubType(graph.RawType(args[i]), p.GenType.RawType) {
			return false
		}
		if p.Mult != nil && args[i].Multiplicity() != nil && !p.Mult.Subsumes(args[i].Multiplicity()) {
			return false
		}
	}
	return true
}

// handlersFor is the optimistic lookup: natives by plain name, and natives
// and user functions by "package::name".
func (m *PureModel) handlersFor(key string) []handler {
	pkg, name, qualified := cutLast(key, packageSeparator)
	if !qualified {
		return lo.Map(m.sys.Natives(key), func(n *system.Native, _ int) handler { return handler{native: n} })
	}
	var out []handler
	for _, n := range m.sys.Natives(name) {
		if n.Function.Package != nil && n.Function.Package.Path() == pkg {
			out = append(out, handler{native: n})
		}
	}
	for _, f := range m.userFunctions[key] {
		out = append(out, handler{user: f})
	}
	return out
}

// resolveHandlers finds the candidates for a call to name, scanning the
// imports in force when the optimistic lookup misses.
func (c *CompileContext) resolveHandlers(name string, src report.SourceInformation) ([]handler, error) {
	if hs := c.Model.handlersFor(name); len(hs) > 0 {
		return hs, nil
	}
	hits := map[string][]handler{}
	for _, imp := range c.imports {
		full := imp + packageSeparator + name
		if hs := c.Model.handlersFor(full); len(hs) > 0 {
			hits[full] = hs
		}
	}
	switch len(hits) {
	case 0:
		return nil, report.Errorf(src, "Can't resolve the builder for function '%s'", name)
	case 1:
		return lo.Values(hits)[0], nil
	default:
		paths := lo.Keys(hits)
		slices.Sort(paths)
		return nil, report.Errorf(src, "Can't resolve the builder for function '%s' - multiple matches found [%s]", name, strings.Join(paths, ", "))
	}
}

// dispatchName splits the requested name into the name to dispatch on and
// the name to cross-check the dispatched function against. Old documents
// call functions by their terse signature, e.g. toOne_T_MANY__T_1_.
func dispatchName(function, fControl string) (name, check string) {
	_, last, _ := cutLast(function, packageSeparator)
	if strings.Contains(last, "_") {
		return function[:strings.Index(function, "_")], function
	}
	return function, fControl
}

// checkFunctionControl compares the name the author's tooling recorded for a
// call with the function the dispatch picked. A mismatch is a warning
// unless strict function matching is on.
func (c *CompileContext) checkFunctionControl(check string, h handler, src report.SourceInformation) error {
	if check == "" {
		return nil
	}
	_, want, _ := cutLast(check, packageSeparator)
	got := h.signatureName()
	if !strings.Contains(want, "_") {
		got = h.name()
	}
	if want == got {
		return nil
	}
	msg := "Pure graph function: '" + check + "' doesn't match the found function: '" + got + "'"
	if c.Model.opts.StrictFunctionMatching {
		return report.Errorf(src, "%s", msg)
	}
	c.Model.warn("function-matching", src, c.Element, msg)
	return nil
}

// renderCall prints an attempted call for diagnostics, e.g.
// "plus(String[1],Integer[1])". Arguments that did not compile print as "?".
func renderCall(name string, args []graph.ValueSpecification) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == nil || a.GenericType() == nil {
			parts[i] = "?"
			continue
		}
		parts[i] = graph.PrintGenericTypeShort(graph.NewGenericType(a.GenericType().RawType))
		if a.Multiplicity() != nil {
			parts[i] += a.Multiplicity().String()
		}
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// cutLast splits s around the last sep.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", s, false
	}
	return s[:i], s[i+len(sep):], true
}
