package compiler

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// Warning rules raised by the mapping validators.
const (
	ruleUnknownSetImplementationID = "mapping-unknown-id"
	ruleNewInPropertyMapping       = "mapping-new-instance"
)

// tarjanSCC returns the strongly connected components of adj.
func tarjanSCC(adj [][]int) [][]int {
	n := len(adj)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	defined := make([]bool, n)
	stack := make([]int, 0, n)
	var sccs [][]int
	counter := 0

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		defined[v] = true
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if !defined[w] {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range n {
		if !defined[v] {
			strongConnect(v)
		}
	}
	return sccs
}

// firstCycle returns the cycle through the lowest-numbered node that lies
// on one, as a closed node path, or nil when adj is acyclic.
func firstCycle(adj [][]int) []int {
	start := -1
	var members map[int]bool
	for _, scc := range tarjanSCC(adj) {
		cyclic := len(scc) > 1 || lo.Contains(adj[scc[0]], scc[0])
		if !cyclic {
			continue
		}
		if low := lo.Min(scc); start < 0 || low < start {
			start = low
			members = lo.SliceToMap(scc, func(v int) (int, bool) { return v, true })
		}
	}
	if start < 0 {
		return nil
	}
	// Depth-first search inside the component back to start.
	visited := map[int]bool{}
	var path []int
	var search func(v int) bool
	search = func(v int) bool {
		path = append(path, v)
		for _, w := range adj[v] {
			if w == start {
				path = append(path, w)
				return true
			}
			if members[w] && !visited[w] {
				visited[w] = true
				if search(w) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		return false
	}
	visited[start] = true
	search(start)
	return path
}

func joinArrow(parts []string) string {
	return strings.Join(parts, " -> ")
}

// validateGeneralizations rejects cycles in the supertype graph of the
// document's classes. The cycle is reported at the first class on it.
func (m *PureModel) validateGeneralizations(classes []ast.Class) error {
	nodes := lo.Map(classes, func(c ast.Class, _ int) *graph.Class { return m.types[c.Path()].(*graph.Class) })
	idx := make(map[graph.Type]int, len(nodes))
	for i, c := range nodes {
		idx[c] = i
	}
	adj := make([][]int, len(nodes))
	for i, c := range nodes {
		for _, s := range graph.Supertypes(c) {
			if j, ok := idx[s]; ok {
				adj[i] = append(adj[i], j)
			}
		}
	}
	cycle := firstCycle(adj)
	if cycle == nil {
		return nil
	}
	names := lo.Map(cycle, func(i int, _ int) string { return nodes[i].Path() })
	return report.Errorf(classes[cycle[0]].SourceInformation, "Cycle detected in class supertype hierarchy: %s", joinArrow(names))
}

// validateMappings runs the whole-document mapping checks in order:
// include cycles, enumeration source value kinds, duplicated ids, root
// class mappings, and instance creation inside property mappings.
func (m *PureModel) validateMappings(mappings []ast.Mapping) error {
	if err := m.validateMappingIncludes(mappings); err != nil {
		return err
	}
	for _, mp := range mappings {
		for _, em := range mp.EnumerationMappings {
			if err := validateSourceValueKinds(em); err != nil {
				return err
			}
		}
	}
	for _, mp := range mappings {
		if err := m.validateMappingIDs(mp); err != nil {
			return err
		}
	}
	if m.opts.ValidateMappingRoots {
		for _, mp := range mappings {
			if err := m.validateClassMappingRoots(mp); err != nil {
				return err
			}
		}
	}
	for _, mp := range mappings {
		if err := m.validateNewInPropertyMappings(mp); err != nil {
			return err
		}
	}
	return nil
}

func (m *PureModel) validateMappingIncludes(mappings []ast.Mapping) error {
	idx := make(map[string]int, len(mappings))
	for i, mp := range mappings {
		idx[mp.Path()] = i
	}
	adj := make([][]int, len(mappings))
	for i, mp := range mappings {
		for _, inc := range mp.IncludedMappings {
			if j, ok := idx[inc.Path()]; ok {
				adj[i] = append(adj[i], j)
			}
		}
	}
	cycle := firstCycle(adj)
	if cycle == nil {
		return nil
	}
	names := lo.Map(cycle, func(i int, _ int) string { return mappings[i].Path() })
	return report.Errorf(mappings[cycle[0]].SourceInformation, "Cycle detected in mapping include hierarchy: %s", joinArrow(names))
}

// validateSourceValueKinds requires structured source values of one
// enumeration mapping to share a kind.
func validateSourceValueKinds(em ast.EnumerationMapping) error {
	kinds := map[string]bool{}
	for _, v := range em.EnumValueMappings {
		for _, raw := range v.SourceValues {
			if !isStructuredSourceValue(raw) {
				return nil
			}
			var sv structuredSourceValue
			_ = json.Unmarshal(raw, &sv)
			kinds[sv.Type] = true
		}
	}
	if len(kinds) > 1 {
		return report.Errorf(em.SourceInformation, "Only one type of source value (integer, string or an enum) is allowed for enumeration mapping")
	}
	return nil
}

// validateMappingIDs rejects a class or enumeration mapping id used twice
// in a mapping, or used by two mappings of its include tree. Property
// mappings naming an id the tree does not define produce a warning.
func (m *PureModel) validateMappingIDs(mp ast.Mapping) error {
	mapping := m.mappings[mp.Path()]

	owners := map[string]*graph.Mapping{}
	visited := map[*graph.Mapping]bool{}
	var collect func(cur *graph.Mapping, ids func(*graph.Mapping) []string) (string, bool)
	collect = func(cur *graph.Mapping, ids func(*graph.Mapping) []string) (string, bool) {
		if visited[cur] {
			return "", false
		}
		visited[cur] = true
		for _, inc := range cur.Includes {
			if id, dup := collect(inc.Included, ids); dup {
				return id, true
			}
		}
		owned := map[string]bool{}
		for _, id := range ids(cur) {
			if prev, ok := owners[id]; ok && prev != cur {
				return id, true
			}
			owners[id] = cur
			if owned[id] {
				return id, true
			}
			owned[id] = true
		}
		return "", false
	}

	classIDs := func(mp *graph.Mapping) []string {
		return lo.Map(mp.ClassMappings, func(s graph.SetImplementation, _ int) string { return s.Impl().ID })
	}
	if id, dup := collect(mapping, classIDs); dup {
		return report.Errorf(mp.SourceInformation, "Duplicated class mappings found with ID '%s' in mapping '%s'", id, mapping.Path())
	}
	for _, set := range mapping.ClassMappings {
		for _, pm := range set.Impl().PropertyMappings {
			for _, id := range []string{pm.SourceSetImplementationID, pm.TargetSetImplementationID} {
				if _, ok := owners[id]; id != "" && !ok {
					m.warn(ruleUnknownSetImplementationID, pm.Source, mapping.Path(),
						"Error '"+id+"' can't be found in the mapping "+mapping.Path())
				}
			}
		}
	}

	owners, visited = map[string]*graph.Mapping{}, map[*graph.Mapping]bool{}
	enumIDs := func(mp *graph.Mapping) []string {
		return lo.Map(mp.EnumerationMappings, func(e *graph.EnumerationMapping, _ int) string { return e.Name })
	}
	if id, dup := collect(mapping, enumIDs); dup {
		return report.Errorf(mp.SourceInformation, "Duplicated enumeration mappings found with ID '%s' in mapping '%s'", id, mapping.Path())
	}
	return nil
}

// validateClassMappingRoots requires exactly one root when a class is mapped
// several times.
func (m *PureModel) validateClassMappingRoots(mp ast.Mapping) error {
	mapping := m.mappings[mp.Path()]
	var classes []string
	byClass := map[string][]graph.SetImplementation{}
	for _, set := range mapping.ClassMappings {
		path := set.Impl().Class.Path()
		if _, ok := byClass[path]; !ok {
			classes = append(classes, path)
		}
		byClass[path] = append(byClass[path], set)
	}
	for _, path := range classes {
		sets := byClass[path]
		if len(sets) == 1 {
			continue
		}
		roots := lo.CountBy(sets, func(s graph.SetImplementation) bool { return s.Impl().Root })
		if roots != 1 {
			return report.Errorf(mp.SourceInformation,
				"Class '%s' is mapped by %d set implementations and has %d roots. There should be exactly one root set implementation for the class, and it should be marked with a '*'",
				path, len(sets), roots)
		}
	}
	return nil
}

// validateNewInPropertyMappings rejects a property mapping transform that
// builds an instance of its own result class with new, and warns about any
// other use of new in a transform.
func (m *PureModel) validateNewInPropertyMappings(mp ast.Mapping) error {
	mapping := m.mappings[mp.Path()]
	for _, set := range mapping.ClassMappings {
		if _, ok := set.(*graph.PureInstanceSetImplementation); !ok {
			continue
		}
		for _, pm := range set.Impl().PropertyMappings {
			if pm.Transform == nil {
				continue
			}
			for _, ex := range pm.Transform.Expressions {
				for _, fe := range findCalls(ex, "new") {
					msg := "property '" + pm.Property.Name + "' of mapping '" + mapping.Path() + "'"
					if graph.RawType(fe) == graph.RawType(ex) {
						return report.Errorf(mp.SourceInformation, "The new function/operator(^) on target class is unsupported in property mappings, violated in %s", msg)
					}
					m.warn(ruleNewInPropertyMapping, pm.Source, mapping.Path(),
						"The new function/operator(^) should not be used in property mappings, violated in "+msg)
				}
			}
		}
	}
	return nil
}

// findCalls returns the applications of the function called name in vs,
// including those nested in lambdas.
func findCalls(vs graph.ValueSpecification, name string) []*graph.SimpleFunctionExpression {
	var out []*graph.SimpleFunctionExpression
	var walk func(graph.ValueSpecification)
	walk = func(v graph.ValueSpecification) {
		switch x := v.(type) {
		case *graph.SimpleFunctionExpression:
			if x.PropertyName == "" && x.FunctionName == name {
				out = append(out, x)
			}
			for _, p := range x.Parameters {
				walk(p)
			}
		case *graph.LambdaFunction:
			for _, e := range x.Expressions {
				walk(e)
			}
		case *graph.InstanceValue:
			for _, val := range x.Values {
				if inner, ok := val.(graph.ValueSpecification); ok {
					walk(inner)
				}
			}
		}
	}
	walk(vs)
	return out
}

// runExtensionValidators runs the validators contributed by extensions in
// registration order.
func (m *PureModel) runExtensionValidators() error {
	for _, v := range m.ext.Validators {
		if err := v(m); err != nil {
			return err
		}
	}
	return nil
}
