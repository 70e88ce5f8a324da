package relational

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/graph"
	"github.com/foundry-zero/purec/internal/report"
)

// Name is the name the extension is enabled by.
const Name = "relational"

// Extension registers the relational processors.
type Extension struct{}

// New returns the relational extension.
func New() compiler.Extension { return Extension{} }

func (Extension) Name() string { return Name }

func (Extension) Processors() compiler.Processors {
	return compiler.Processors{
		Elements: []compiler.ElementProcessor{
			{Type: ElementType, Declare: declareDatabase, Build: buildDatabase},
		},
		ClassMappings: []compiler.ClassMappingProcessor{
			{Type: ClassMappingType, Build: buildClassMapping, Validate: validateClassMapping},
		},
		Connections: []compiler.ConnectionProcessor{
			{Type: ConnectionType, Build: buildConnection},
		},
		StoreReporters: []compiler.StoreReporter{setStores},
		Validators:     []compiler.Validator{validateDatabaseIncludes},
	}
}

// validateDatabaseIncludes rejects databases that include themselves
// through a chain of includes.
func validateDatabaseIncludes(m *compiler.PureModel) error {
	dbs := lo.FilterMap(m.StoreList(), func(s graph.Store, _ int) (*Database, bool) {
		db, ok := s.(*Database)
		return db, ok
	})
	slices.SortFunc(dbs, func(a, b *Database) int { return strings.Compare(a.Path(), b.Path()) })

	for _, start := range dbs {
		if path := includePath(start, start, map[*Database]bool{}); path != nil {
			names := lo.Map(append([]*Database{start}, path...), func(d *Database, _ int) string { return d.Path() })
			return report.Errorf(start.Source, "Cycle detected in database include hierarchy: %s", strings.Join(names, " -> "))
		}
	}
	return nil
}

// includePath returns the include chain from cur back to target, ending
// with target, or nil when there is none.
func includePath(cur, target *Database, seen map[*Database]bool) []*Database {
	for _, inc := range cur.Includes {
		next, ok := inc.(*Database)
		if !ok {
			continue
		}
		if next == target {
			return []*Database{next}
		}
		if seen[next] {
			continue
		}
		seen[next] = true
		if rest := includePath(next, target, seen); rest != nil {
			return append([]*Database{next}, rest...)
		}
	}
	return nil
}
