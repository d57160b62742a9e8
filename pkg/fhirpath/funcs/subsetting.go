package funcs

import (
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "first",
		Category: eval.CategorySubsetting,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			if v, ok := input.First(); ok {
				return types.Collection{v}, nil
			}
			return types.EmptyCollection, nil
		},
	})
	Register(FuncDef{
		Name:     "last",
		Category: eval.CategorySubsetting,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			if v, ok := input.Last(); ok {
				return types.Collection{v}, nil
			}
			return types.EmptyCollection, nil
		},
	})
	Register(FuncDef{
		Name:     "tail",
		Category: eval.CategorySubsetting,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return input.Tail(), nil
		},
	})
	Register(FuncDef{
		Name:     "single",
		Category: eval.CategorySubsetting,
		Pure:     true,
		Fn:       fnSingle,
	})
	Register(FuncDef{
		Name:     "skip",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategorySubsetting,
		Pure:     true,
		Fn:       fnSkip,
	})
	Register(FuncDef{
		Name:     "take",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategorySubsetting,
		Pure:     true,
		Fn:       fnTake,
	})
	Register(FuncDef{
		Name:     "intersect",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryCombining,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
			return input.Intersect(args[0]), nil
		},
	})
	Register(FuncDef{
		Name:     "exclude",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryCombining,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
			return input.Exclude(args[0]), nil
		},
	})
	Register(FuncDef{
		Name:     "union",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryCombining,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
			return input.Union(args[0]), nil
		},
	})
	Register(FuncDef{
		Name:     "combine",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryCombining,
		Pure:     true,
		Fn: func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
			return input.Combine(args[0]), nil
		},
	})
}

// fnSingle returns the sole element; more than one is an error.
func fnSingle(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	switch len(input) {
	case 0:
		return types.EmptyCollection, nil
	case 1:
		return input, nil
	default:
		return nil, eval.SingletonError(len(input))
	}
}

// integerArg reads a required singleton integer argument.
func integerArg(name string, arg types.Collection) (int64, bool, error) {
	if arg.Empty() {
		return 0, false, nil
	}
	if len(arg) != 1 {
		return 0, false, eval.SingletonError(len(arg))
	}
	i, ok := arg[0].(types.Integer)
	if !ok {
		return 0, false, eval.TypeMismatchError("Integer", arg[0].Type(), name)
	}
	return i.Value(), true, nil
}

func fnSkip(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	n, ok, err := integerArg("skip", args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EmptyCollection, nil
	}
	return input.Skip(int(n)), nil
}

func fnTake(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	n, ok, err := integerArg("take", args[0])
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.EmptyCollection, nil
	}
	return input.Take(int(n)), nil
}
