package eval

import (
	"sort"
	"sync"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Category groups registry entries for tooling and documentation.
type Category string

const (
	CategoryExistence  Category = "existence"
	CategoryFiltering  Category = "filtering"
	CategorySubsetting Category = "subsetting"
	CategoryCombining  Category = "combining"
	CategoryConversion Category = "conversion"
	CategoryString     Category = "string"
	CategoryMath       Category = "math"
	CategoryNavigation Category = "navigation"
	CategoryTypes      Category = "types"
	CategoryUtility    Category = "utility"
	CategoryFHIR       Category = "fhir"
	CategoryOperator   Category = "operator"
)

// FuncImpl is the signature for eager function implementations: every
// argument arrives fully evaluated.
type FuncImpl func(ctx *Context, input types.Collection, args []types.Collection) (types.Collection, error)

// LambdaImpl is the signature for functions with unevaluated
// arguments. The implementation receives the raw expressions and an
// Invoker to evaluate them under scopes of its choosing.
type LambdaImpl func(inv Invoker, ctx *Context, input types.Collection, args []ast.Expression) (types.Collection, error)

// Invoker evaluates an expression under a context. The evaluator
// implements it; function implementations use it to run lambda
// arguments per item.
type Invoker interface {
	Evaluate(ctx *Context, expr ast.Expression) (types.Collection, error)
}

// FuncDef defines a FHIRPath function with its dispatch metadata.
type FuncDef struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 means unbounded
	// Category classifies the function for tooling.
	Category Category
	// Pure marks functions whose result depends only on input and
	// arguments; impure functions (now, today, trace) are excluded
	// from any result memoization.
	Pure bool
	// LambdaArgs lists argument positions that must be passed
	// unevaluated. The evaluator consults this before evaluating
	// arguments, so a lambda parameter is never evaluated eagerly.
	LambdaArgs []int

	// Exactly one of Fn and LambdaFn is set.
	Fn       FuncImpl
	LambdaFn LambdaImpl
}

// IsLambdaArg reports whether argument position i is unevaluated.
func (d FuncDef) IsLambdaArg(i int) bool {
	for _, pos := range d.LambdaArgs {
		if pos == i {
			return true
		}
	}
	return false
}

// OpDef describes an operator for tooling; dispatch itself lives in
// the operator kernel.
type OpDef struct {
	Symbol     ast.BinaryOp
	Precedence int
	Category   Category
	// ThreeValued marks operators with FHIRPath three-valued logic.
	ThreeValued bool
}

// FuncRegistry is the lookup interface the evaluator consumes.
type FuncRegistry interface {
	Get(name string) (FuncDef, bool)
}

// Registry is the unified operator and function registry. It is safe
// for concurrent reads; registration happens at initialization and
// Seal freezes it before shared use.
type Registry struct {
	mu     sync.RWMutex
	funcs  map[string]FuncDef
	ops    map[ast.BinaryOp]OpDef
	sealed bool
}

// NewRegistry creates an empty registry preloaded with the operator
// table.
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]FuncDef),
		ops:   make(map[ast.BinaryOp]OpDef),
	}
	for _, op := range operatorTable {
		r.ops[op.Symbol] = op
	}
	return r
}

// operatorTable is the C6 metadata for every binary operator.
var operatorTable = []OpDef{
	{Symbol: ast.OpImplies, Precedence: 1, Category: CategoryOperator, ThreeValued: true},
	{Symbol: ast.OpOr, Precedence: 2, Category: CategoryOperator, ThreeValued: true},
	{Symbol: ast.OpXor, Precedence: 2, Category: CategoryOperator, ThreeValued: true},
	{Symbol: ast.OpAnd, Precedence: 3, Category: CategoryOperator, ThreeValued: true},
	{Symbol: ast.OpIn, Precedence: 4, Category: CategoryOperator},
	{Symbol: ast.OpContains, Precedence: 4, Category: CategoryOperator},
	{Symbol: ast.OpEqual, Precedence: 5, Category: CategoryOperator},
	{Symbol: ast.OpNotEqual, Precedence: 5, Category: CategoryOperator},
	{Symbol: ast.OpEquivalent, Precedence: 5, Category: CategoryOperator},
	{Symbol: ast.OpNotEquiv, Precedence: 5, Category: CategoryOperator},
	{Symbol: ast.OpLess, Precedence: 6, Category: CategoryOperator},
	{Symbol: ast.OpLessEq, Precedence: 6, Category: CategoryOperator},
	{Symbol: ast.OpGreater, Precedence: 6, Category: CategoryOperator},
	{Symbol: ast.OpGreaterEq, Precedence: 6, Category: CategoryOperator},
	{Symbol: ast.OpUnion, Precedence: 8, Category: CategoryOperator},
	{Symbol: ast.OpAdd, Precedence: 9, Category: CategoryOperator},
	{Symbol: ast.OpSubtract, Precedence: 9, Category: CategoryOperator},
	{Symbol: ast.OpConcat, Precedence: 9, Category: CategoryOperator},
	{Symbol: ast.OpMultiply, Precedence: 10, Category: CategoryOperator},
	{Symbol: ast.OpDivide, Precedence: 10, Category: CategoryOperator},
	{Symbol: ast.OpDiv, Precedence: 10, Category: CategoryOperator},
	{Symbol: ast.OpMod, Precedence: 10, Category: CategoryOperator},
}

// Register adds a function definition. Registering on a sealed
// registry panics: the registry is immutable once shared.
func (r *Registry) Register(def FuncDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic("fhirpath: registering function on sealed registry")
	}
	r.funcs[def.Name] = def
}

// Seal freezes the registry against further registration.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Get retrieves a function by name.
func (r *Registry) Get(name string) (FuncDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Has checks if a function exists.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Operator returns the metadata for a binary operator.
func (r *Registry) Operator(symbol ast.BinaryOp) (OpDef, bool) {
	op, ok := r.ops[symbol]
	return op, ok
}

// List returns all registered function names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
