package system

import (
	"fmt"
	"strings"

	"github.com/foundry-zero/purec/internal/graph"
)

// Native is a function of the native library together with the rules that
// type its calls.
type Native struct {
	Function *graph.NativeFunction
	// Infer computes the result from the compiled arguments. Nil means the
	// declared return type and multiplicity.
	Infer Inference
	// LambdaParams types the parameters of a lambda passed as argument i.
	// Arguments that are lambdas are nil in args.
	LambdaParams LambdaParams
}

// Inference computes the result type of a call.
type Inference func(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity)

// LambdaParams types the parameters of the lambda at argument i.
type LambdaParams func(g *Graph, args []graph.ValueSpecification, i int) []TypedParam

// TypedParam is an inferred lambda parameter.
type TypedParam struct {
	Type         *graph.GenericType
	Multiplicity *graph.Multiplicity
}

// Result returns the result type of a call to n with args.
func (n *Native) Result(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
	if n.Infer != nil {
		return n.Infer(g, args)
	}
	return n.Function.ReturnType, n.Function.ReturnMultiplicity
}

// Router operation functions used by operation class mappings, by operator.
const (
	RouterPackage = "meta::pure::router::operations"

	StoreUnionFunction  = RouterPackage + "::special_union_OperationSetImplementation_1__SetImplementation_MANY_"
	RouterUnionFunction = RouterPackage + "::union_OperationSetImplementation_1__SetImplementation_MANY_"
	InheritanceFunction = RouterPackage + "::inheritance_OperationSetImplementation_1__SetImplementation_MANY_"
	MergeFunction       = RouterPackage + "::merge_OperationSetImplementation_1__SetImplementation_MANY_"
)

const (
	collectionPkg   = "meta::pure::functions::collection"
	booleanPkg      = "meta::pure::functions::boolean"
	mathPkg         = "meta::pure::functions::math"
	stringPkg       = "meta::pure::functions::string"
	langPkg         = "meta::pure::functions::lang"
	metaPkg         = "meta::pure::functions::meta"
	multiplicityPkg = "meta::pure::functions::multiplicity"
	graphFetchExec  = "meta::pure::graphFetch::execution"
)

type nativeDef struct {
	pkg    string
	sig    string
	infer  Inference
	lambda LambdaParams
}

var zeroMany, zeroOne, one, oneMany = graph.ZeroMany, graph.ZeroOne, graph.PureOne, graph.OneMany

// nativeDefs is the native library. Overloads of one name are tried in the
// order listed here.
var nativeDefs = []nativeDef{
	// collection
	{collectionPkg, "filter(Any[*], Function[1]): Any[*]", argType(0, zeroMany), elementOf(0)},
	{collectionPkg, "map(Any[*], Function[1]): Any[*]", mapResult, elementOf(0)},
	{collectionPkg, "exists(Any[*], Function[1]): Boolean[1]", nil, elementOf(0)},
	{collectionPkg, "forAll(Any[*], Function[1]): Boolean[1]", nil, elementOf(0)},
	{collectionPkg, "find(Any[*], Function[1]): Any[0..1]", argType(0, zeroOne), elementOf(0)},
	{collectionPkg, "sortBy(Any[*], Function[0..1]): Any[*]", argType(0, zeroMany), elementOf(0)},
	{collectionPkg, "sort(Any[*]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "fold(Any[*], Function[1], Any[*]): Any[*]", argTypeAndMult(2), foldParams},
	{collectionPkg, "size(Any[*]): Integer[1]", nil, nil},
	{collectionPkg, "count(Any[*]): Integer[1]", nil, nil},
	{collectionPkg, "isEmpty(Any[*]): Boolean[1]", nil, nil},
	{collectionPkg, "isNotEmpty(Any[*]): Boolean[1]", nil, nil},
	{collectionPkg, "first(Any[*]): Any[0..1]", argType(0, zeroOne), nil},
	{collectionPkg, "last(Any[*]): Any[0..1]", argType(0, zeroOne), nil},
	{collectionPkg, "at(Any[*], Integer[1]): Any[1]", argType(0, one), nil},
	{collectionPkg, "take(Any[*], Integer[1]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "drop(Any[*], Integer[1]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "slice(Any[*], Integer[1], Integer[1]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "distinct(Any[*]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "removeDuplicates(Any[*]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "reverse(Any[*]): Any[*]", argType(0, zeroMany), nil},
	{collectionPkg, "concatenate(Any[*], Any[*]): Any[*]", concatenation, nil},
	{collectionPkg, "union(Any[*], Any[*]): Any[*]", concatenation, nil},
	{collectionPkg, "add(Any[*], Any[1]): Any[1..*]", argType(0, oneMany), nil},
	{collectionPkg, "contains(Any[*], Any[1]): Boolean[1]", nil, nil},
	{collectionPkg, "in(Any[0..1], Any[*]): Boolean[1]", nil, nil},
	{collectionPkg, "range(Integer[1], Integer[1]): Integer[*]", nil, nil},
	{collectionPkg, "getAll(Class[1]): Any[*]", typeArgOf(0, zeroMany), nil},
	{collectionPkg, "getAll(Class[1], Date[1]): Any[*]", typeArgOf(0, zeroMany), nil},
	{collectionPkg, "getAll(Class[1], Date[1], Date[1]): Any[*]", typeArgOf(0, zeroMany), nil},
	{collectionPkg, "getAllVersions(Class[1]): Any[*]", typeArgOf(0, zeroMany), nil},
	{collectionPkg, "getAllVersionsInRange(Class[1], Date[1], Date[1]): Any[*]", typeArgOf(0, zeroMany), nil},

	// boolean
	{booleanPkg, "and(Boolean[1], Boolean[1]): Boolean[1]", nil, nil},
	{booleanPkg, "or(Boolean[1], Boolean[1]): Boolean[1]", nil, nil},
	{booleanPkg, "not(Boolean[1]): Boolean[1]", nil, nil},
	{booleanPkg, "equal(Any[*], Any[*]): Boolean[1]", nil, nil},
	{booleanPkg, "eq(Any[1], Any[1]): Boolean[1]", nil, nil},
	{booleanPkg, "is(Any[1], Any[1]): Boolean[1]", nil, nil},
	{booleanPkg, "isTrue(Boolean[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "isFalse(Boolean[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThan(Number[0..1], Number[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThan(Date[0..1], Date[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThan(String[0..1], String[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThan(Boolean[0..1], Boolean[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThanEqual(Number[0..1], Number[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThanEqual(Date[0..1], Date[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "greaterThanEqual(String[0..1], String[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "lessThan(Number[0..1], Number[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "lessThan(Date[0..1], Date[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "lessThan(String[0..1], String[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "lessThanEqual(Number[0..1], Number[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "lessThanEqual(Date[0..1], Date[0..1]): Boolean[1]", nil, nil},
	{booleanPkg, "lessThanEqual(String[0..1], String[0..1]): Boolean[1]", nil, nil},

	// math
	{mathPkg, "plus(Integer[*]): Integer[1]", nil, nil},
	{mathPkg, "plus(Float[*]): Float[1]", nil, nil},
	{mathPkg, "plus(Decimal[*]): Decimal[1]", nil, nil},
	{mathPkg, "plus(Number[*]): Number[1]", nil, nil},
	{stringPkg, "plus(String[*]): String[1]", nil, nil},
	{mathPkg, "minus(Integer[*]): Integer[1]", nil, nil},
	{mathPkg, "minus(Float[*]): Float[1]", nil, nil},
	{mathPkg, "minus(Decimal[*]): Decimal[1]", nil, nil},
	{mathPkg, "minus(Number[*]): Number[1]", nil, nil},
	{mathPkg, "times(Integer[*]): Integer[1]", nil, nil},
	{mathPkg, "times(Float[*]): Float[1]", nil, nil},
	{mathPkg, "times(Decimal[*]): Decimal[1]", nil, nil},
	{mathPkg, "times(Number[*]): Number[1]", nil, nil},
	{mathPkg, "divide(Number[1], Number[1]): Float[1]", nil, nil},
	{mathPkg, "abs(Integer[1]): Integer[1]", nil, nil},
	{mathPkg, "abs(Float[1]): Float[1]", nil, nil},
	{mathPkg, "abs(Number[1]): Number[1]", nil, nil},
	{mathPkg, "round(Number[1]): Integer[1]", nil, nil},
	{mathPkg, "floor(Number[1]): Integer[1]", nil, nil},
	{mathPkg, "ceiling(Number[1]): Integer[1]", nil, nil},
	{mathPkg, "sqrt(Number[1]): Float[1]", nil, nil},
	{mathPkg, "pow(Number[1], Number[1]): Number[1]", nil, nil},
	{mathPkg, "mod(Integer[1], Integer[1]): Integer[1]", nil, nil},
	{mathPkg, "rem(Number[1], Number[1]): Number[1]", nil, nil},
	{mathPkg, "max(Integer[*]): Integer[0..1]", nil, nil},
	{mathPkg, "max(Float[*]): Float[0..1]", nil, nil},
	{mathPkg, "max(Number[*]): Number[0..1]", nil, nil},
	{mathPkg, "min(Integer[*]): Integer[0..1]", nil, nil},
	{mathPkg, "min(Float[*]): Float[0..1]", nil, nil},
	{mathPkg, "min(Number[*]): Number[0..1]", nil, nil},
	{mathPkg, "sum(Integer[*]): Integer[1]", nil, nil},
	{mathPkg, "sum(Float[*]): Float[1]", nil, nil},
	{mathPkg, "sum(Number[*]): Number[1]", nil, nil},
	{mathPkg, "average(Number[*]): Float[1]", nil, nil},

	// string
	{stringPkg, "joinStrings(String[*]): String[1]", nil, nil},
	{stringPkg, "joinStrings(String[*], String[1]): String[1]", nil, nil},
	{stringPkg, "joinStrings(String[*], String[1], String[1], String[1]): String[1]", nil, nil},
	{stringPkg, "length(String[1]): Integer[1]", nil, nil},
	{stringPkg, "toUpper(String[1]): String[1]", nil, nil},
	{stringPkg, "toLower(String[1]): String[1]", nil, nil},
	{stringPkg, "trim(String[1]): String[1]", nil, nil},
	{stringPkg, "startsWith(String[1], String[1]): Boolean[1]", nil, nil},
	{stringPkg, "endsWith(String[1], String[1]): Boolean[1]", nil, nil},
	{stringPkg, "substring(String[1], Integer[1]): String[1]", nil, nil},
	{stringPkg, "substring(String[1], Integer[1], Integer[1]): String[1]", nil, nil},
	{stringPkg, "indexOf(String[1], String[1]): Integer[1]", nil, nil},
	{stringPkg, "replace(String[1], String[1], String[1]): String[1]", nil, nil},
	{stringPkg, "split(String[1], String[1]): String[*]", nil, nil},
	{stringPkg, "format(String[1], Any[*]): String[1]", nil, nil},
	{stringPkg, "toString(Any[1]): String[1]", nil, nil},
	{stringPkg, "parseInteger(String[1]): Integer[1]", nil, nil},
	{stringPkg, "parseFloat(String[1]): Float[1]", nil, nil},
	{stringPkg, "parseBoolean(String[1]): Boolean[1]", nil, nil},
	{stringPkg, "parseDate(String[1]): Date[1]", nil, nil},

	// date
	{datePackage, "now(): DateTime[1]", nil, nil},
	{datePackage, "today(): StrictDate[1]", nil, nil},
	{datePackage, "date(Integer[1], Integer[1], Integer[1]): StrictDate[1]", nil, nil},
	{datePackage, "datePart(Date[1]): Date[1]", nil, nil},
	{datePackage, "adjust(Date[1], Integer[1], DurationUnit[1]): Date[1]", nil, nil},
	{datePackage, "dateDiff(Date[1], Date[1], DurationUnit[1]): Integer[1]", nil, nil},
	{datePackage, "year(Date[1]): Integer[1]", nil, nil},
	{datePackage, "monthNumber(Date[1]): Integer[1]", nil, nil},
	{datePackage, "dayOfMonth(Date[1]): Integer[1]", nil, nil},
	{datePackage, "hour(Date[1]): Integer[1]", nil, nil},
	{datePackage, "minute(Date[1]): Integer[1]", nil, nil},
	{datePackage, "second(Date[1]): Integer[1]", nil, nil},
	{datePackage, "firstDayOfMonth(Date[1]): Date[1]", nil, nil},

	// lang and meta
	{langPkg, "if(Boolean[1], Function[1], Function[1]): Any[*]", ifResult, noParams},
	{langPkg, "letFunction(String[1], Any[*]): Any[*]", argTypeAndMult(1), nil},
	{langPkg, "cast(Any[*], Any[1]): Any[*]", castTo(1), nil},
	{langPkg, "eval(Function[1]): Any[*]", lambdaResultOf(0), noParams},
	{langPkg, "eval(Function[1], Any[*]): Any[*]", lambdaResultOf(0), evalParams},
	{langPkg, "new(Class[1]): Any[1]", typeArgOf(0, one), nil},
	{langPkg, "new(Class[1], String[1]): Any[1]", typeArgOf(0, one), nil},
	{langPkg, "subType(Any[*], Any[1]): Any[*]", castTo(1), nil},
	{langPkg, "extractEnumValue(Enumeration[1], String[1]): Any[1]", typeArgOf(0, one), nil},
	{metaPkg, "instanceOf(Any[1], Type[1]): Boolean[1]", nil, nil},
	{metaPkg, "id(Any[1]): String[1]", nil, nil},
	{multiplicityPkg, "toOne(Any[*]): Any[1]", argType(0, one), nil},
	{multiplicityPkg, "toOneMany(Any[*]): Any[1..*]", argType(0, oneMany), nil},

	// graph fetch
	{graphFetchExec, "graphFetch(Any[*], RootGraphFetchTree[1]): Any[*]", argType(0, zeroMany), nil},
	{graphFetchExec, "graphFetchChecked(Any[*], RootGraphFetchTree[1]): Any[*]", argType(0, zeroMany), nil},
	{graphFetchExec, "serialize(Any[*], RootGraphFetchTree[1]): String[1]", nil, nil},

	// router operations used by operation class mappings
	{RouterPackage, "special_union(OperationSetImplementation[1]): SetImplementation[*]", nil, nil},
	{RouterPackage, "union(OperationSetImplementation[1]): SetImplementation[*]", nil, nil},
	{RouterPackage, "inheritance(OperationSetImplementation[1]): SetImplementation[*]", nil, nil},
	{RouterPackage, "merge(OperationSetImplementation[1]): SetImplementation[*]", nil, nil},
}

func (g *Graph) buildNatives() {
	for _, def := range nativeDefs {
		n, err := g.parseNative(def)
		if err != nil {
			panic(fmt.Sprintf("native %q: %v", def.sig, err))
		}
		g.register(def.pkg, n.Function)
		g.natives[n.Function.FunctionName] = append(g.natives[n.Function.FunctionName], n)
		g.byPath[n.Function.Path()] = n
	}
}

// parseNative reads a declaration of the form "name(T[m], ...): R[m]".
func (g *Graph) parseNative(def nativeDef) (*Native, error) {
	open := strings.Index(def.sig, "(")
	closing := strings.LastIndex(def.sig, "): ")
	if open < 0 || closing < open {
		return nil, fmt.Errorf("malformed signature")
	}
	name := def.sig[:open]
	fn := &graph.NativeFunction{FunctionName: name}

	var sigParams []graph.SignatureParam
	if list := def.sig[open+1 : closing]; list != "" {
		for i, p := range strings.Split(list, ", ") {
			t, m, typeName, err := g.parseTypeRef(p)
			if err != nil {
				return nil, err
			}
			fn.Parameters = append(fn.Parameters, &graph.VariableExpression{
				ExprBase: graph.ExprBase{GenType: graph.NewGenericType(t), Mult: m},
				Name:     fmt.Sprintf("p%d", i),
			})
			sigParams = append(sigParams, graph.SignatureParam{Type: typeName, Multiplicity: m})
		}
	}
	ret, retMult, retName, err := g.parseTypeRef(def.sig[closing+3:])
	if err != nil {
		return nil, err
	}
	fn.ReturnType = graph.NewGenericType(ret)
	fn.ReturnMultiplicity = retMult
	fn.Name = graph.TerseSignature(name, sigParams, retName, retMult)
	return &Native{Function: fn, Infer: def.infer, LambdaParams: def.lambda}, nil
}

func (g *Graph) parseTypeRef(ref string) (graph.Type, *graph.Multiplicity, string, error) {
	i := strings.Index(ref, "[")
	if i < 0 || !strings.HasSuffix(ref, "]") {
		return nil, nil, "", fmt.Errorf("malformed type reference %q", ref)
	}
	name := ref[:i]
	t, ok := g.shortType(name)
	if !ok {
		return nil, nil, "", fmt.Errorf("unknown type %q", name)
	}
	m, err := ParseMultiplicity(ref[i:])
	if err != nil {
		return nil, nil, "", err
	}
	return t, m, name, nil
}

func (g *Graph) shortType(name string) (graph.Type, bool) {
	if p, ok := g.primitives[name]; ok {
		return p, true
	}
	switch name {
	case "Any":
		return g.Any, true
	case "Nil":
		return g.Nil, true
	case "Function":
		return g.FunctionClass, true
	case "Class":
		return g.ClassClass, true
	case "Enumeration":
		return g.EnumerationClass, true
	case "Type":
		return g.Type(typePackage + "::Type")
	case "DurationUnit":
		return g.DurationUnit, true
	case "RootGraphFetchTree":
		return g.RootGraphFetchTreeClass, true
	case "SetImplementation":
		return g.SetImplementationClass, true
	case "OperationSetImplementation":
		return g.OperationSetImplementationClass, true
	}
	return nil, false
}

// ParseMultiplicity reads "[1]", "[*]", "[0..1]" or "[1..*]".
func ParseMultiplicity(s string) (*graph.Multiplicity, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if body == "*" {
		return graph.ZeroMany, nil
	}
	lo, hi, found := strings.Cut(body, "..")
	if !found {
		hi = lo
	}
	var lower, upper int
	if _, err := fmt.Sscanf(lo, "%d", &lower); err != nil {
		return nil, fmt.Errorf("malformed multiplicity %q", s)
	}
	if hi == "*" {
		upper = graph.Many
	} else if _, err := fmt.Sscanf(hi, "%d", &upper); err != nil {
		return nil, fmt.Errorf("malformed multiplicity %q", s)
	}
	return graph.NewMultiplicity(lower, upper), nil
}

// LambdaSignature returns the function type of a lambda-valued expression.
func LambdaSignature(v graph.ValueSpecification) *graph.FunctionType {
	if l, ok := v.(*graph.LambdaFunction); ok && l.Type != nil {
		return l.Type
	}
	gt := v.GenericType()
	if gt == nil {
		return nil
	}
	if ft, ok := gt.RawType.(*graph.FunctionType); ok {
		return ft
	}
	for _, a := range gt.TypeArguments {
		if ft, ok := a.RawType.(*graph.FunctionType); ok {
			return ft
		}
	}
	return nil
}

func argType(i int, m *graph.Multiplicity) Inference {
	return func(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
		return args[i].GenericType(), m
	}
}

func argTypeAndMult(i int) Inference {
	return func(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
		return args[i].GenericType(), args[i].Multiplicity()
	}
}

// typeArgOf unwraps Class<T> or Enumeration<T> at argument i.
func typeArgOf(i int, m *graph.Multiplicity) Inference {
	return func(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
		gt := args[i].GenericType()
		if gt != nil && len(gt.TypeArguments) == 1 {
			return gt.TypeArguments[0], m
		}
		return graph.NewGenericType(g.Any), m
	}
}

// castTo types the result by the type referenced at argument i, keeping the
// multiplicity of the first argument.
func castTo(i int) Inference {
	return func(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
		gt := args[i].GenericType()
		if gt != nil && len(gt.TypeArguments) == 1 {
			gt = gt.TypeArguments[0]
		}
		return gt, args[0].Multiplicity()
	}
}

func lambdaResultOf(i int) Inference {
	return func(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
		if ft := LambdaSignature(args[i]); ft != nil {
			return ft.ReturnType, ft.ReturnMultiplicity
		}
		return graph.NewGenericType(g.Any), graph.ZeroMany
	}
}

// mapResult keeps [1] and [0..1] when both the collection and the lambda
// are at most to-one.
func mapResult(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
	ft := LambdaSignature(args[1])
	if ft == nil {
		return graph.NewGenericType(g.Any), graph.ZeroMany
	}
	in, out := args[0].Multiplicity(), ft.ReturnMultiplicity
	switch {
	case in.IsToOne() && out.IsToOne():
		return ft.ReturnType, graph.PureOne
	case in.Upper == 1 && out.Upper == 1:
		return ft.ReturnType, graph.ZeroOne
	default:
		return ft.ReturnType, graph.ZeroMany
	}
}

func concatenation(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
	t := graph.CommonSuperType([]graph.Type{graph.RawType(args[0]), graph.RawType(args[1])}, g.Any)
	return graph.NewGenericType(t), graph.SumMultiplicity(args[0].Multiplicity(), args[1].Multiplicity())
}

func ifResult(g *Graph, args []graph.ValueSpecification) (*graph.GenericType, *graph.Multiplicity) {
	then, otherwise := LambdaSignature(args[1]), LambdaSignature(args[2])
	if then == nil || otherwise == nil {
		return graph.NewGenericType(g.Any), graph.ZeroMany
	}
	t := graph.CommonSuperType([]graph.Type{then.ReturnType.RawType, otherwise.ReturnType.RawType}, g.Any)
	return graph.NewGenericType(t), graph.MaxMultiplicity(then.ReturnMultiplicity, otherwise.ReturnMultiplicity)
}

// elementOf types a single lambda parameter as one element of argument i.
func elementOf(i int) LambdaParams {
	return func(g *Graph, args []graph.ValueSpecification, _ int) []TypedParam {
		return []TypedParam{{Type: args[i].GenericType(), Multiplicity: graph.PureOne}}
	}
}

func noParams(*Graph, []graph.ValueSpecification, int) []TypedParam { return nil }

func foldParams(g *Graph, args []graph.ValueSpecification, _ int) []TypedParam {
	return []TypedParam{
		{Type: args[0].GenericType(), Multiplicity: graph.PureOne},
		{Type: args[2].GenericType(), Multiplicity: args[2].Multiplicity()},
	}
}

func evalParams(g *Graph, args []graph.ValueSpecification, _ int) []TypedParam {
	return []TypedParam{{Type: args[1].GenericType(), Multiplicity: args[1].Multiplicity()}}
}
