package funcs

import (
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "resolve",
		Category: eval.CategoryFHIR,
		Fn: func(ctx *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
			return eval.ResolveReferences(ctx, input)
		},
	})
	Register(FuncDef{
		Name:     "extension",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryFHIR,
		Pure:     true,
		Fn:       fnExtension,
	})
	Register(FuncDef{
		Name:     "hasExtension",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryFHIR,
		Pure:     true,
		Fn:       fnHasExtension,
	})
	Register(FuncDef{
		Name:       "getReferenceKey",
		MaxArgs:    1,
		Category:   eval.CategoryFHIR,
		Pure:       true,
		LambdaArgs: []int{0},
		LambdaFn:   fnGetReferenceKey,
	})
}

// fnExtension filters each item's extension array by url.
func fnExtension(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	url, ok, err := stringArg("extension", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	result := types.Collection{}
	for _, item := range input {
		obj, isObj := types.Unwrap(item).(*types.ObjectValue)
		if !isObj {
			continue
		}
		for _, ext := range obj.GetCollection("extension") {
			extObj, isExt := ext.(*types.ObjectValue)
			if !isExt {
				continue
			}
			if extURL, found := extObj.Get("url"); found {
				if s, isStr := extURL.(types.String); isStr && s.Value() == url {
					result = append(result, extObj)
				}
			}
		}
	}
	return result, nil
}

func fnHasExtension(ctx *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	extensions, err := fnExtension(ctx, input, args)
	if err != nil {
		return nil, err
	}
	return types.BoolCollection(!extensions.Empty()), nil
}

// fnGetReferenceKey extracts the id portion of each reference,
// optionally restricted to a resource type: Patient/123 -> 123. The
// argument is a type specifier, so it arrives unevaluated.
func fnGetReferenceKey(_ eval.Invoker, _ *eval.Context, input types.Collection, args []ast.Expression) (types.Collection, error) {
	wantType := ""
	if len(args) == 1 {
		wantType = typeSpecifierName(args[0])
		if wantType == "" {
			return nil, eval.NewEvalError(eval.ErrInvalidArguments, "getReferenceKey() requires a type specifier")
		}
	}

	result := types.Collection{}
	for _, item := range input {
		reference := ""
		switch v := types.Unwrap(item).(type) {
		case types.String:
			reference = v.Value()
		case *types.ObjectValue:
			if ref, ok := v.Get("reference"); ok {
				if s, isStr := ref.(types.String); isStr {
					reference = s.Value()
				}
			}
		}
		if reference == "" || strings.HasPrefix(reference, "#") {
			continue
		}
		// Keep only the trailing Type/id segment of absolute URLs.
		segments := strings.Split(reference, "/")
		if len(segments) < 2 {
			continue
		}
		resourceType := segments[len(segments)-2]
		id := segments[len(segments)-1]
		if wantType != "" && resourceType != wantType {
			continue
		}
		result = append(result, types.NewString(id))
	}
	return result, nil
}
