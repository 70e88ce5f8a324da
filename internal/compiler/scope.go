package compiler

import "github.com/foundry-zero/purec/internal/graph"

// Scope is an immutable chain of variable bindings. Binding returns a new
// scope, so a binding made while compiling one subtree is never visible to
// its siblings. The nil Scope is empty.
type Scope struct {
	parent *Scope
	name   string
	value  *graph.VariableExpression
	// dates are the milestoning dates the bound value was navigated with.
	dates *graph.MilestoningDates
}

// Bind returns a scope where name refers to v.
func (s *Scope) Bind(v *graph.VariableExpression, dates *graph.MilestoningDates) *Scope {
	return &Scope{parent: s, name: v.Name, value: v, dates: dates}
}

// Lookup returns the innermost binding of name.
func (s *Scope) Lookup(name string) (*graph.VariableExpression, *graph.MilestoningDates, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, cur.dates, true
		}
	}
	return nil, nil, false
}

// Names returns the bound names, innermost first, each once.
func (s *Scope) Names() []string {
	var out []string
	seen := map[string]bool{}
	for cur := s; cur != nil; cur = cur.parent {
		if !seen[cur.name] {
			seen[cur.name] = true
			out = append(out, cur.name)
		}
	}
	return out
}
