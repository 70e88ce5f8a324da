package graph

import "strings"

// PrintGenericType renders a generic type with full paths, e.g.
// "meta::pure::metamodel::type::Class<model::Person>".
func PrintGenericType(g *GenericType) string {
	return printGenericType(g, true)
}

// PrintGenericTypeShort renders a generic type with simple names.
func PrintGenericTypeShort(g *GenericType) string {
	return printGenericType(g, false)
}

func printGenericType(g *GenericType, full bool) string {
	if g == nil || g.RawType == nil {
		return "?"
	}
	var b strings.Builder
	if ft, ok := g.RawType.(*FunctionType); ok {
		b.WriteString(printFunctionType(ft, full))
	} else if full {
		b.WriteString(g.RawType.Path())
	} else {
		b.WriteString(g.RawType.Base().Name)
	}
	if len(g.TypeArguments) > 0 {
		args := make([]string, len(g.TypeArguments))
		for i, a := range g.TypeArguments {
			args[i] = printGenericType(a, full)
		}
		b.WriteString("<" + strings.Join(args, ", ") + ">")
	}
	return b.String()
}

func printFunctionType(ft *FunctionType, full bool) string {
	params := make([]string, len(ft.Parameters))
	for i, p := range ft.Parameters {
		params[i] = printGenericType(p.GenType, full) + p.Mult.String()
	}
	ret := printGenericType(ft.ReturnType, full)
	if ft.ReturnMultiplicity != nil {
		ret += ft.ReturnMultiplicity.String()
	}
	return "{" + strings.Join(params, ", ") + "->" + ret + "}"
}

// PrintTypeName renders the full path of a type, or "?" when unknown.
func PrintTypeName(t Type) string {
	if t == nil {
		return "?"
	}
	if ft, ok := t.(*FunctionType); ok {
		return printFunctionType(ft, true)
	}
	return t.Path()
}
