package compiler

import (
	"maps"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/ast"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

func (m *PureModel) declareConnection(c ast.PackageableConnection) error {
	conn := &graph.PackageableConnection{ElementBase: graph.ElementBase{Name: c.Name}}
	if err := m.register(c.Package, conn, c.SourceInformation); err != nil {
		return err
	}
	m.connections[conn.Path()] = conn
	return nil
}

func (m *PureModel) buildPackageableConnection(c ast.PackageableConnection) error {
	conn := m.connections[c.Path()]
	value, err := m.buildConnection(m.Context(conn.Path()), c.ConnectionValue)
	if err != nil {
		return err
	}
	conn.Connection = value
	return nil
}

// buildConnection compiles one connection value. Model connections may only
// name the model store; a pointer resolves to the connection it names.
func (m *PureModel) buildConnection(ctx *CompileContext, c ast.Connection) (graph.Connection, error) {
	switch c.Type {
	case ast.ConnectionJSONModel, ast.ConnectionXMLModel:
		store, err := m.modelConnectionStore(c)
		if err != nil {
			return nil, err
		}
		cls, err := ctx.ResolveClass(c.Class, c.SourceInformation)
		if err != nil {
			return nil, err
		}
		base := graph.ConnectionBase{Store: store, Source: c.SourceInformation}
		if c.Type == ast.ConnectionXMLModel {
			return &graph.XMLModelConnection{ConnectionBase: base, Class: cls, URL: c.URL}, nil
		}
		return &graph.JSONModelConnection{ConnectionBase: base, Class: cls, URL: c.URL}, nil
	case ast.ConnectionModelChain:
		store, err := m.modelConnectionStore(c)
		if err != nil {
			return nil, err
		}
		out := &graph.ModelChainConnection{ConnectionBase: graph.ConnectionBase{Store: store, Source: c.SourceInformation}}
		for _, path := range c.Mappings {
			mp, err := ctx.ResolveMapping(path, c.SourceInformation)
			if err != nil {
				return nil, err
			}
			out.Mappings = append(out.Mappings, mp)
		}
		return out, nil
	case ast.ConnectionPointer:
		pc, err := ctx.ResolveConnection(c.Connection, c.SourceInformation)
		if err != nil {
			return nil, err
		}
		if pc.Connection == nil {
			return nil, report.Errorf(c.SourceInformation, "Connection '%s' is not built yet", pc.Path())
		}
		return pc.Connection, nil
	}
	p, err := m.ext.connection(c.Type)
	if err != nil {
		return nil, err
	}
	return p.Build(ctx, c)
}

func (m *PureModel) modelConnectionStore(c ast.Connection) (graph.Store, error) {
	if c.Element != "" && c.Element != graph.ModelStorePath {
		src := c.ElementSourceInfo
		if src.IsUnknown() {
			src = c.SourceInformation
		}
		return nil, report.Errorf(src, "Model connection must target store '%s', found '%s'", graph.ModelStorePath, c.Element)
	}
	return m.sys.ModelStore, nil
}

func (m *PureModel) declareRuntime(r ast.PackageableRuntime) error {
	rt := &graph.PackageableRuntime{ElementBase: graph.ElementBase{Name: r.Name}}
	if err := m.register(r.Package, rt, r.SourceInformation); err != nil {
		return err
	}
	m.runtimes[rt.Path()] = rt
	return nil
}

func (m *PureModel) buildPackageableRuntime(r ast.PackageableRuntime) error {
	rt := m.runtimes[r.Path()]
	out, err := m.buildRuntime(m.Context(rt.Path()), r.RuntimeValue)
	if err != nil {
		return err
	}
	rt.Runtime = out
	return nil
}

// buildRuntime compiles a runtime and checks that every store its mappings
// read from has a connection. Connection ids are unique across the whole
// runtime.
func (m *PureModel) buildRuntime(ctx *CompileContext, r ast.EngineRuntime) (*graph.Runtime, error) {
	if len(r.Mappings) == 0 {
		return nil, report.Errorf(r.SourceInformation, "Runtime must cover at least one mapping")
	}
	out := &graph.Runtime{Source: r.SourceInformation}
	for _, ptr := range r.Mappings {
		src := ptr.SourceInformation
		if src.IsUnknown() {
			src = r.SourceInformation
		}
		mp, err := ctx.ResolveMapping(ptr.Path, src)
		if err != nil {
			return nil, err
		}
		out.Mappings = append(out.Mappings, mp)
	}

	ids := map[string]bool{}
	for _, group := range r.Connections {
		src := group.Store.SourceInformation
		if src.IsUnknown() {
			src = group.SourceInformation
		}
		store, err := ctx.ResolveStore(group.Store.Path, src)
		if err != nil {
			return nil, err
		}
		sc := &graph.StoreConnections{Store: store}
		for _, ic := range group.StoreConnections {
			if ids[ic.ID] {
				return nil, report.Errorf(ic.SourceInformation, "Duplicated connection ID '%s' in runtime", ic.ID)
			}
			ids[ic.ID] = true
			conn, err := m.buildConnection(ctx, ic.Connection)
			if err != nil {
				return nil, err
			}
			if ic.Connection.Type == ast.ConnectionPointer {
				if actual := conn.Conn().Store; actual != nil && actual != store {
					return nil, report.Errorf(ic.SourceInformation, "Connection '%s' is built for store '%s' but is listed under store '%s'",
						ic.Connection.Connection, actual.Path(), store.Path())
				}
			}
			sc.Connections = append(sc.Connections, &graph.IdentifiedConnection{ID: ic.ID, Connection: conn})
		}
		out.Connections = append(out.Connections, sc)
	}

	if err := m.checkStoreCoverage(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkStoreCoverage fails when a store read by one of the runtime's
// mappings has no connection in the runtime.
func (m *PureModel) checkStoreCoverage(r *graph.Runtime) error {
	missing := map[string][]string{}
	for _, mp := range r.Mappings {
		for _, s := range m.mappingStores(mp) {
			if len(r.ConnectionsByStore(s)) > 0 {
				continue
			}
			missing[s.Path()] = append(missing[s.Path()], mp.Path())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	stores := lo.Keys(missing)
	slices.Sort(stores)
	var mappings []string
	for _, s := range stores {
		mappings = append(mappings, missing[s]...)
	}
	mappings = lo.Uniq(mappings)
	slices.Sort(mappings)
	return report.Errorf(r.Source, "Runtime does not cover store(s) '%s' in mapping(s) '%s'",
		strings.Join(stores, "', '"), strings.Join(mappings, "', '"))
}

// mappingStores returns the stores mp and its includes read from, each
// once, after applying the store substitutions of the include edges.
func (m *PureModel) mappingStores(mp *graph.Mapping) []graph.Store {
	var out []graph.Store
	seen := map[*graph.Mapping]bool{}
	var walk func(cur *graph.Mapping, subst map[graph.Store]graph.Store)
	walk = func(cur *graph.Mapping, subst map[graph.Store]graph.Store) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		for _, set := range cur.ClassMappings {
			for _, s := range m.setStores(set) {
				if r, ok := subst[s]; ok {
					s = r
				}
				if !slices.Contains(out, s) {
					out = append(out, s)
				}
			}
		}
		for _, inc := range cur.Includes {
			next := subst
			if len(inc.StoreSubstitutions) > 0 {
				next = maps.Clone(subst)
				if next == nil {
					next = map[graph.Store]graph.Store{}
				}
				for _, ss := range inc.StoreSubstitutions {
					next[ss.Original] = ss.Substitute
				}
			}
			walk(inc.Included, next)
		}
	}
	walk(mp, nil)
	return out
}

// setStores returns the stores one class mapping reads from. A Pure
// instance mapping with a source class reads the model store; extensions
// report their own kinds.
func (m *PureModel) setStores(set graph.SetImplementation) []graph.Store {
	switch s := set.(type) {
	case *graph.PureInstanceSetImplementation:
		if s.SrcClass == nil {
			return nil
		}
		return []graph.Store{m.sys.ModelStore}
	case *graph.OperationSetImplementation:
		return nil
	case *graph.AggregationAwareSetImplementation:
		out := m.setStores(s.MainSetImplementation)
		for _, c := range s.AggregateSetImplementations {
			out = append(out, m.setStores(c.SetImplementation)...)
		}
		return out
	}
	stores, _ := m.ext.storesOf(set)
	return stores
}
