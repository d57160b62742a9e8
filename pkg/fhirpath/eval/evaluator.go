package eval

import (
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Evaluator walks a parsed AST against an evaluation context. One
// evaluator serves one expression evaluation; it is single-threaded
// and strictly left-to-right depth-first.
type Evaluator struct {
	funcs FuncRegistry
	depth int
}

// NewEvaluator creates an evaluator dispatching through the given
// registry.
func NewEvaluator(funcs FuncRegistry) *Evaluator {
	return &Evaluator{funcs: funcs}
}

// Evaluate runs an expression under a context. It implements Invoker,
// so lambda-taking functions re-enter the walk through the same
// depth and cancellation guards.
func (e *Evaluator) Evaluate(ctx *Context, expr ast.Expression) (types.Collection, error) {
	if expr == nil {
		// A nil node navigates the current focus (e.g. a Path with no
		// base).
		return ctx.This(), nil
	}
	limit := ctx.Limits().MaxDepth
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > limit {
		return nil, NewEvalError(ErrDepthExceeded, "expression nesting exceeds depth limit %d", limit).WithSpan(expr.Span())
	}

	switch node := expr.(type) {
	case *ast.Literal:
		return types.Singleton(node.Value), nil

	case *ast.Null:
		return types.EmptyCollection, nil

	case *ast.Identifier:
		return e.evalIdentifier(ctx, node)

	case *ast.Variable:
		return e.evalVariable(ctx, node)

	case *ast.Path:
		base, err := e.Evaluate(ctx, node.Base)
		if err != nil {
			return nil, err
		}
		return Navigate(ctx, base, node.Name)

	case *ast.Index:
		return e.evalIndex(ctx, node)

	case *ast.Unary:
		return e.evalUnary(ctx, node)

	case *ast.Binary:
		return e.evalBinary(ctx, node)

	case *ast.TypeOp:
		return e.evalTypeOp(ctx, node)

	case *ast.FunctionCall:
		return e.evalFunctionCall(ctx, node)
	}
	return nil, NewEvalError(ErrInvalidExpression, "unsupported expression node").WithSpan(expr.Span())
}

// evalIdentifier resolves a head identifier: a resource-type match
// keeps the matching focus items; otherwise it is a property step on
// the focus.
func (e *Evaluator) evalIdentifier(ctx *Context, node *ast.Identifier) (types.Collection, error) {
	if IsTypeName(node.Name) {
		matched := types.Collection{}
		anyResource := false
		for _, item := range ctx.This() {
			ok, err := MatchesResourceHead(ctx, item, node.Name)
			if err != nil {
				return nil, err
			}
			if _, isObj := types.Unwrap(item).(*types.ObjectValue); isObj {
				anyResource = anyResource || ok
			}
			if ok {
				matched = append(matched, item)
			}
		}
		if anyResource {
			return matched, nil
		}
	}
	return Navigate(ctx, ctx.This(), node.Name)
}

func (e *Evaluator) evalVariable(ctx *Context, node *ast.Variable) (types.Collection, error) {
	if node.Env {
		if value, ok := ctx.GetVariable(node.Name); ok {
			return value, nil
		}
		return nil, NewEvalError(ErrInvalidPath, "undefined variable %%%s", node.Name).WithSpan(node.Src)
	}
	switch node.Name {
	case "this":
		return ctx.This(), nil
	case "index":
		if idx, ok := ctx.Index(); ok {
			return types.Collection{types.NewInteger(int64(idx))}, nil
		}
		return types.EmptyCollection, nil
	case "total":
		if total, ok := ctx.Total(); ok {
			return total, nil
		}
		return types.EmptyCollection, nil
	}
	return nil, NewEvalError(ErrInvalidPath, "unknown special variable $%s", node.Name).WithSpan(node.Src)
}

func (e *Evaluator) evalIndex(ctx *Context, node *ast.Index) (types.Collection, error) {
	base, err := e.Evaluate(ctx, node.Base)
	if err != nil {
		return nil, err
	}
	idxCol, err := e.Evaluate(ctx.WithThis(base), node.Idx)
	if err != nil {
		return nil, err
	}
	if idxCol.Empty() {
		return types.EmptyCollection, nil
	}
	idx, ok := types.Unwrap(idxCol[0]).(types.Integer)
	if !ok {
		return nil, TypeMismatchError("Integer", idxCol[0].Type(), "indexer").WithSpan(node.Idx.Span())
	}
	i := int(idx.Value())
	if i < 0 || i >= len(base) {
		return types.EmptyCollection, nil
	}
	return types.Collection{base[i]}, nil
}

func (e *Evaluator) evalUnary(ctx *Context, node *ast.Unary) (types.Collection, error) {
	col, err := e.Evaluate(ctx, node.Operand)
	if err != nil {
		return nil, err
	}
	if col.Empty() {
		return col, nil
	}
	if len(col) != 1 {
		return nil, SingletonError(len(col)).WithSpan(node.Src)
	}
	if node.Op == ast.OpPlus {
		return col, nil
	}
	negated, err := Negate(types.Unwrap(col[0]))
	if err != nil {
		return nil, withSpan(err, node.Src)
	}
	return types.Collection{negated}, nil
}

// evalBinary dispatches a binary operator. The logical operators
// short-circuit: `false and X` never evaluates X, dually for or.
func (e *Evaluator) evalBinary(ctx *Context, node *ast.Binary) (types.Collection, error) {
	if err := ctx.CheckCancellation(); err != nil {
		return nil, withSpan(err, node.Src)
	}

	switch node.Op {
	case ast.OpAnd, ast.OpOr:
		return e.evalShortCircuit(ctx, node)
	}

	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(ctx, node.Right)
	if err != nil {
		return nil, err
	}
	left = types.UnwrapAll(left)
	right = types.UnwrapAll(right)

	result, err := e.applyBinary(node.Op, left, right)
	if err != nil {
		return nil, withSpan(err, node.Src)
	}
	return result, nil
}

// evalShortCircuit evaluates and/or lazily.
func (e *Evaluator) evalShortCircuit(ctx *Context, node *ast.Binary) (types.Collection, error) {
	left, err := e.Evaluate(ctx, node.Left)
	if err != nil {
		return nil, err
	}
	l, lKnown, err := boolOperand(types.UnwrapAll(left))
	if err != nil {
		return nil, withSpan(err, node.Src)
	}
	if lKnown {
		if node.Op == ast.OpAnd && !l {
			return types.FalseCollection, nil
		}
		if node.Op == ast.OpOr && l {
			return types.TrueCollection, nil
		}
	}
	right, err := e.Evaluate(ctx, node.Right)
	if err != nil {
		return nil, err
	}
	right = types.UnwrapAll(right)
	if node.Op == ast.OpAnd {
		return And(boolCollectionFor(l, lKnown), right)
	}
	return Or(boolCollectionFor(l, lKnown), right)
}

func boolCollectionFor(v, known bool) types.Collection {
	if !known {
		return types.EmptyCollection
	}
	return types.BoolCollection(v)
}

// applyBinary routes an operator to its kernel. Collection-level
// operators take both sides whole; scalar operators get empty
// propagation and singleton enforcement here.
func (e *Evaluator) applyBinary(op ast.BinaryOp, left, right types.Collection) (types.Collection, error) {
	switch op {
	case ast.OpEqual:
		return Equal(left, right), nil
	case ast.OpNotEqual:
		return NotEqual(left, right), nil
	case ast.OpEquivalent:
		return Equivalent(left, right), nil
	case ast.OpNotEquiv:
		return NotEquivalent(left, right), nil
	case ast.OpUnion:
		return Union(left, right), nil
	case ast.OpConcat:
		return Concatenate(left, right)
	case ast.OpIn:
		return In(left, right)
	case ast.OpContains:
		return Contains(left, right)
	case ast.OpXor:
		return Xor(left, right)
	case ast.OpImplies:
		return Implies(left, right)
	}

	// Scalar operators: empty propagates, then singletons only.
	if left.Empty() || right.Empty() {
		return types.EmptyCollection, nil
	}
	if len(left) != 1 || len(right) != 1 {
		return nil, SingletonError(len(left) + len(right))
	}
	l, r := left[0], right[0]

	switch op {
	case ast.OpLess:
		return LessThan(l, r)
	case ast.OpLessEq:
		return LessOrEqual(l, r)
	case ast.OpGreater:
		return GreaterThan(l, r)
	case ast.OpGreaterEq:
		return GreaterOrEqual(l, r)
	}

	var result types.Value
	var err error
	switch op {
	case ast.OpAdd:
		result, err = Add(l, r)
	case ast.OpSubtract:
		result, err = Subtract(l, r)
	case ast.OpMultiply:
		result, err = Multiply(l, r)
	case ast.OpDivide:
		result, err = Divide(l, r)
	case ast.OpDiv:
		result, err = IntegerDivide(l, r)
	case ast.OpMod:
		result, err = Modulo(l, r)
	default:
		return nil, NewEvalError(ErrInvalidOperation, "unknown operator '%s'", op)
	}
	if err != nil {
		return nil, err
	}
	return types.Singleton(result), nil
}

// evalTypeOp implements the is and as operators.
func (e *Evaluator) evalTypeOp(ctx *Context, node *ast.TypeOp) (types.Collection, error) {
	col, err := e.Evaluate(ctx, node.Operand)
	if err != nil {
		return nil, err
	}
	if col.Empty() {
		return types.EmptyCollection, nil
	}
	if len(col) != 1 {
		return nil, SingletonError(len(col)).WithSpan(node.Src)
	}
	matches, err := TypeMatches(ctx, col[0], node.Type)
	if err != nil {
		return nil, withSpan(err, node.Src)
	}
	if node.Kind == ast.TypeOpIs {
		return types.BoolCollection(matches), nil
	}
	if matches {
		return col, nil
	}
	return types.EmptyCollection, nil
}

// TypeMatches reports whether a value is of the named type or one of
// its subtypes. System types match on the value variant; FHIR types
// consult the schema provider's hierarchy.
func TypeMatches(ctx *Context, v types.Value, typeName string) (bool, error) {
	spec := types.ParseTypeSpecifier(typeName)
	actual := types.Unwrap(v).TypeInfo()

	if spec.Namespace == types.NamespaceSystem {
		return actual.Namespace == types.NamespaceSystem && actual.Name == spec.Name, nil
	}

	// FHIR primitive codes (string, dateTime, ...) surface as System
	// values after JSON decoding; match them by case-folded name.
	if actual.Namespace == types.NamespaceSystem {
		return strings.EqualFold(actual.Name, spec.Name), nil
	}

	if actual.Name == spec.Name {
		return true, nil
	}
	return ctx.SchemaProvider().IsSubtypeOf(ctx.GoContext(), actual.Name, spec.Name)
}

// evalFunctionCall dispatches through the registry. Lambda argument
// positions come from the function's definition, never from syntax.
func (e *Evaluator) evalFunctionCall(ctx *Context, node *ast.FunctionCall) (types.Collection, error) {
	if err := ctx.CheckCancellation(); err != nil {
		return nil, withSpan(err, node.Src)
	}

	input := ctx.This()
	if node.Target != nil {
		base, err := e.Evaluate(ctx, node.Target)
		if err != nil {
			return nil, err
		}
		input = base
	}

	// iif belongs to the evaluator: both branches stay unevaluated
	// until the condition resolves.
	if node.Name == "iif" {
		return e.evalIif(ctx.WithThis(input), node)
	}

	def, ok := e.funcs.Get(node.Name)
	if !ok {
		return nil, FunctionNotFoundError(node.Name).WithSpan(node.Src)
	}
	argCount := len(node.Args)
	if argCount < def.MinArgs {
		return nil, ArityError(node.Name, def.MinArgs, argCount).WithSpan(node.Src)
	}
	if def.MaxArgs >= 0 && argCount > def.MaxArgs {
		return nil, ArityError(node.Name, def.MaxArgs, argCount).WithSpan(node.Src)
	}

	callCtx := ctx.WithThis(input)

	if def.LambdaFn != nil {
		result, err := def.LambdaFn(e, callCtx, input, node.Args)
		if err != nil {
			return nil, withSpan(err, node.Src)
		}
		return result, nil
	}

	args := make([]types.Collection, argCount)
	for i, argExpr := range node.Args {
		if def.IsLambdaArg(i) {
			// Defensive: a definition with lambda positions must use
			// LambdaFn; refusing here prevents eager evaluation bugs.
			return nil, NewEvalError(ErrInvalidArguments,
				"function '%s' declares lambda argument %d without a lambda implementation", node.Name, i).WithSpan(node.Src)
		}
		arg, err := e.Evaluate(ctx, argExpr)
		if err != nil {
			return nil, err
		}
		args[i] = types.UnwrapAll(arg)
	}

	result, err := def.Fn(callCtx, types.UnwrapAll(input), args)
	if err != nil {
		return nil, withSpan(err, node.Src)
	}
	return result, nil
}

// evalIif evaluates iif(criterion, then [, otherwise]) lazily:
// exactly one branch runs after the condition. A non-boolean
// criterion yields empty.
func (e *Evaluator) evalIif(ctx *Context, node *ast.FunctionCall) (types.Collection, error) {
	if len(node.Args) < 2 || len(node.Args) > 3 {
		return nil, ArityError("iif", 2, len(node.Args)).WithSpan(node.Src)
	}

	condCol, err := e.Evaluate(ctx, node.Args[0])
	if err != nil {
		return nil, err
	}
	cond := false
	switch len(condCol) {
	case 0:
	case 1:
		b, ok := types.Unwrap(condCol[0]).(types.Boolean)
		if !ok {
			return types.EmptyCollection, nil
		}
		cond = b.Bool()
	default:
		return nil, SingletonError(len(condCol)).WithSpan(node.Args[0].Span())
	}

	if cond {
		return e.Evaluate(ctx, node.Args[1])
	}
	if len(node.Args) == 3 {
		return e.Evaluate(ctx, node.Args[2])
	}
	return types.EmptyCollection, nil
}

// withSpan attaches a span to an EvalError flowing up without one.
func withSpan(err error, span ast.Span) error {
	if ee, ok := err.(*EvalError); ok && ee.Span.Line == 0 {
		return ee.WithSpan(span)
	}
	return err
}
