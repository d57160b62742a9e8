package funcs

import (
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "empty",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn:       fnEmpty,
	})
	Register(FuncDef{
		Name:       "exists",
		MaxArgs:    1,
		Category:   eval.CategoryExistence,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnExists,
	})
	Register(FuncDef{
		Name:       "all",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryExistence,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnAll,
	})
	Register(FuncDef{
		Name:       "any",
		MinArgs:    1,
		MaxArgs:    1,
		Category:   eval.CategoryExistence,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnExists,
	})
	Register(FuncDef{
		Name:     "allTrue",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.BoolCollection(input.AllTrue()), nil
		},
	})
	Register(FuncDef{
		Name:     "anyTrue",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.BoolCollection(input.AnyTrue()), nil
		},
	})
	Register(FuncDef{
		Name:     "allFalse",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.BoolCollection(input.AllFalse()), nil
		},
	})
	Register(FuncDef{
		Name:     "anyFalse",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.BoolCollection(input.AnyFalse()), nil
		},
	})
	Register(FuncDef{
		Name:     "count",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.Collection{types.NewInteger(int64(input.Count()))}, nil
		},
	})
	Register(FuncDef{
		Name:     "distinct",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return input.Distinct(), nil
		},
	})
	Register(FuncDef{
		Name:     "isDistinct",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.BoolCollection(input.IsDistinct()), nil
		},
	})
	Register(FuncDef{
		Name:     "subsetOf",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn:       fnSubsetOf,
	})
	Register(FuncDef{
		Name:     "supersetOf",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn:       fnSupersetOf,
	})
	Register(FuncDef{
		Name:     "not",
		Category: eval.CategoryExistence,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return eval.Not(input)
		},
	})
}

// fnEmpty returns true if the collection is empty.
func fnEmpty(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	return types.BoolCollection(input.Empty()), nil
}

// fnExists returns whether any element exists, optionally filtered by
// a criteria lambda. Also serves any(criteria).
func fnExists(inv eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	if len(args) == 0 {
		return types.BoolCollection(!input.Empty()), nil
	}
	for i, item := range input {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		match, err := lambdaMatches(inv, ctx, args[0], item, i)
		if err != nil {
			return nil, err
		}
		if match {
			return types.TrueCollection, nil
		}
	}
	return types.FalseCollection, nil
}

// fnAll returns true if every element satisfies the criteria. Empty
// input is vacuously true.
func fnAll(inv eval.Invoker, ctx *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	for i, item := range input {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		match, err := lambdaMatches(inv, ctx, args[0], item, i)
		if err != nil {
			return nil, err
		}
		if !match {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}

// lambdaMatches evaluates a criteria lambda for one item. A result is
// a match only when it is a single boolean true.
func lambdaMatches(inv eval.Invoker, ctx *eval.Context, criteria ast.Expression, item types.Value, index int) (bool, error) {
	result, err := inv.Evaluate(ctx.WithIteration(item, index), criteria)
	if err != nil {
		return false, err
	}
	if len(result) != 1 {
		return false, nil
	}
	b, ok := types.Unwrap(result[0]).(types.Boolean)
	return ok && b.Bool(), nil
}

func fnSubsetOf(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	for _, item := range input {
		if !args[0].Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}

func fnSupersetOf(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	for _, item := range args[0] {
		if !input.Contains(item) {
			return types.FalseCollection, nil
		}
	}
	return types.TrueCollection, nil
}
