package funcs

import (
	"fmt"
	"time"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "trace",
		MinArgs:  1,
		MaxArgs:  2,
		Category: eval.CategoryUtility,
		Fn:       fnTrace,
	})
	Register(FuncDef{
		Name:     "now",
		Category: eval.CategoryUtility,
		Fn: func(_ *eval.Context, _ types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.Collection{types.NewDateTimeFromTime(time.Now())}, nil
		},
	})
	Register(FuncDef{
		Name:     "today",
		Category: eval.CategoryUtility,
		Fn: func(_ *eval.Context, _ types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.Collection{types.NewDateFromTime(time.Now())}, nil
		},
	})
	Register(FuncDef{
		Name:     "timeOfDay",
		Category: eval.CategoryUtility,
		Fn: func(_ *eval.Context, _ types.Collection, _ []types.Collection) (types.Collection, error) {
			return types.Collection{types.NewTimeFromGoTime(time.Now())}, nil
		},
	})
	Register(FuncDef{
		Name:     "type",
		Category: eval.CategoryTypes,
		Pure:     true,
		Fn:       fnType,
	})
	Register(FuncDef{
		Name:     "children",
		Category: eval.CategoryNavigation,
		Pure:     true,
		Fn:       fnChildren,
	})
	Register(FuncDef{
		Name:     "descendants",
		Category: eval.CategoryNavigation,
		Pure:     true,
		Fn:       fnDescendants,
	})
}

// fnTrace writes the input through the context's trace writer and
// returns it unchanged.
func fnTrace(ctx *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	name, _, err := stringArg("trace", args[0])
	if err != nil {
		return nil, err
	}
	if w := ctx.TraceWriter(); w != nil {
		fmt.Fprintf(w, "TRACE[%s] %s\n", name, input.String())
	}
	return input, nil
}

// fnType reifies the type of each input value.
func fnType(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	result := make(types.Collection, len(input))
	for i, item := range input {
		result[i] = item.TypeInfo()
	}
	return result, nil
}

// fnChildren returns all immediate children of each item.
func fnChildren(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		if obj, ok := types.Unwrap(item).(*types.ObjectValue); ok {
			result = result.Append(obj.Children())
		}
	}
	return result, nil
}

// fnDescendants returns the transitive closure of children, not
// including the input items themselves.
func fnDescendants(ctx *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	result := types.Collection{}
	frontier := input
	for !frontier.Empty() {
		if err := ctx.CheckCancellation(); err != nil {
			return nil, err
		}
		next := types.Collection{}
		for _, item := range frontier {
			if obj, ok := types.Unwrap(item).(*types.ObjectValue); ok {
				next = next.Append(obj.Children())
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
