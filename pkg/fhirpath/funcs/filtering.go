package funcs

import (
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:       "where",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryFiltering,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnWhere,
	})
	Register(FuncDef{
		Name:       "select",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryFiltering,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnSelect,
	})
	Register(FuncDef{
		Name:       "repeat",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryFiltering,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnRepeat,
	})
	Register(FuncDef{
		Name:       "aggregate",
		MinArgs:    1,
		MaxArgs:    2,
		Category:   eval.CategoryFiltering,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnAggregate,
	})
	Register(FuncDef{
		Name:       "ofType",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryTypes,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnOfType,
	})
	Register(FuncDef{
		Name:       "is",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryTypes,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnIsFunction,
	})
	Register(FuncDef{
		Name:       "as",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryTypes,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnAsFunction,
	})
}

// fnWhere filters the input by a criteria lambda. A criteria error
// fails the whole call; it is never swallowed.
func fnWhere(inv eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	if err := ctx.CheckCollectionSize(input); err != nil {
		return nil, err
	}
	result := types.Collection{}
	for i, item := range input {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		match, err := lambdaMatches(inv, ctx, args[0], item, i)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, item)
		}
	}
	return result, nil
}

// fnSelect projects each input item through the lambda, flattening
// the per-item results in order.
func fnSelect(inv eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	if err := ctx.CheckCollectionSize(input); err != nil {
		return nil, err
	}
	result := types.Collection{}
	for i, item := range input {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		projected, err := inv.Evaluate(ctx.WithIteration(item, i), args[0])
		if err != nil {
			return nil, err
		}
		result = result.Append(projected)
		if err := ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// fnRepeat applies the projection to a fixed point: results feed back
// as input until no new items appear. Cycles are detected by value
// equality and iterations are capped.
func fnRepeat(inv eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	maxIterations := ctx.Limits().MaxRepeatIterations

	result := types.Collection{}
	frontier := input
	for iteration := 0; !frontier.Empty(); iteration++ {
		if iteration >= maxIterations {
			return nil, eval.NewEvalError(eval.ErrInvalidExpression,
				"repeat() exceeded %d iterations", maxIterations)
		}
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		next := types.Collection{}
		for i, item := range frontier {
			projected, err := inv.Evaluate(ctx.WithIteration(item, i), args[0])
			if err != nil {
				return nil, err
			}
			for _, p := range projected {
				if !result.Contains(p) && !next.Contains(p) {
					next = append(next, p)
				}
			}
		}
		result = result.Combine(next)
		if err := ctx.CheckCollectionSize(result); err != nil {
			return nil, err
		}
		frontier = next
	}
	return result, nil
}

// fnAggregate folds the input: $total starts at the init argument (or
// empty) and each iteration's result becomes the next $total.
func fnAggregate(inv eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	total := types.EmptyCollection
	if len(args) == 2 {
		init, err := inv.Evaluate(ctx, args[1])
		if err != nil {
			return nil, err
		}
		total = init
	}
	for i, item := range input {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		next, err := inv.Evaluate(ctx.WithIteration(item, i).WithTotal(total), args[0])
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// typeSpecifierName extracts the type name from an ofType/is/as
// argument, which parses as an identifier or dotted path and must not
// be evaluated as one.
func typeSpecifierName(arg ast.Expression) string {
	switch n := arg.(type) {
	case *ast.Identifier:
		return n.Name
	case *ast.Path:
		if base, ok := n.Base.(*ast.Identifier); ok {
			return base.Name + "." + n.Name
		}
	}
	return ""
}

// fnOfType filters the collection to items of the named type or its
// subtypes.
func fnOfType(_ eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	typeName := typeSpecifierName(args[0])
	if typeName == "" {
		return nil, eval.NewEvalError(eval.ErrInvalidArguments, "ofType() requires a type specifier")
	}
	result := types.Collection{}
	for _, item := range input {
		matches, err := eval.TypeMatches(ctx, item, typeName)
		if err != nil {
			return nil, err
		}
		if matches {
			result = append(result, item)
		}
	}
	return result, nil
}

// fnIsFunction is the function form of the is operator.
func fnIsFunction(_ eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	typeName := typeSpecifierName(args[0])
	if typeName == "" {
		return nil, eval.NewEvalError(eval.ErrInvalidArguments, "is() requires a type specifier")
	}
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}
	matches, err := eval.TypeMatches(ctx, input[0], typeName)
	if err != nil {
		return nil, err
	}
	return types.BoolCollection(matches), nil
}

// fnAsFunction is the function form of the as operator.
func fnAsFunction(_ eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	typeName := typeSpecifierName(args[0])
	if typeName == "" {
		return nil, eval.NewEvalError(eval.ErrInvalidArguments, "as() requires a type specifier")
	}
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}
	matches, err := eval.TypeMatches(ctx, input[0], typeName)
	if err != nil {
		return nil, err
	}
	if matches {
		return input, nil
	}
	return types.EmptyCollection, nil
}
