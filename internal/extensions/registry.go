// Package extensions lists the compiler extensions that can be enabled by
// name.
package extensions

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/foundry-zero/purec/internal/compiler"
	"github.com/foundry-zero/purec/internal/extensions/relational"
)

var registry = map[string]func() compiler.Extension{
	relational.Name: relational.New,
}

// Names returns the known extension names, sorted.
func Names() []string {
	names := lo.Keys(registry)
	slices.Sort(names)
	return names
}

// Known reports whether name is a registered extension.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Lookup instantiates the named extensions in the given order. Repeated
// names are enabled once.
func Lookup(names []string) ([]compiler.Extension, error) {
	var out []compiler.Extension
	for _, name := range lo.Uniq(names) {
		newExt, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown extension %q (known: %v)", name, Names())
		}
		out = append(out, newExt())
	}
	return out, nil
}
