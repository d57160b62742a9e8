package eval

import (
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/schema"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Navigate resolves property name on every item of input, flattening
// the results. Unknown properties yield empty, never an error; only
// the validation surface reports them.
func Navigate(ctx *Context, input types.Collection, name string) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		values, err := navigateValue(ctx, types.Unwrap(item), name)
		if err != nil {
			return nil, err
		}
		result = result.Append(values)
	}
	return result, nil
}

// navigateValue resolves one property step on a single value.
func navigateValue(ctx *Context, v types.Value, name string) (types.Collection, error) {
	switch val := v.(type) {
	case *types.ObjectValue:
		return navigateObject(ctx, val, name)
	case types.Quantity:
		if p, ok := val.Property(name); ok {
			return types.Singleton(p), nil
		}
		return types.EmptyCollection, nil
	case types.TypeInfo:
		if p, ok := val.Property(name); ok {
			return types.Singleton(p), nil
		}
		return types.EmptyCollection, nil
	default:
		// Primitives have no navigable children.
		return types.EmptyCollection, nil
	}
}

// navigateObject implements the property-access ladder: direct
// property, schema-declared-but-absent, choice-type expansion.
func navigateObject(ctx *Context, obj *types.ObjectValue, name string) (types.Collection, error) {
	currentType := obj.Type()
	provider := ctx.SchemaProvider()
	info, err := provider.PropertyInfo(ctx.GoContext(), currentType, name)
	if err != nil {
		return nil, NewEvalError(ErrInvalidPath, "schema lookup failed for %s.%s", currentType, name).WithUnderlying(err)
	}

	if obj.Has(name) {
		col := obj.GetCollection(name)
		if info.Exists && info.Type != "" {
			col = annotateType(col, info.Type)
		}
		return col, nil
	}

	// Defined on the type but not populated in the instance:
	// distinguishes unknown from absent, both navigate to empty.
	if info.Exists && !info.IsChoice {
		return types.EmptyCollection, nil
	}

	return navigateChoice(ctx, obj, currentType, name, info.IsChoice)
}

// navigateChoice probes the concrete spellings of a choice element.
// With schema confirmation the resolved element type is attached; when
// the schema is silent the instance drives the expansion.
func navigateChoice(ctx *Context, obj *types.ObjectValue, currentType, name string, declared bool) (types.Collection, error) {
	provider := ctx.SchemaProvider()
	for _, suffix := range schema.ChoiceSuffixes() {
		concrete := name + suffix
		if !obj.Has(concrete) {
			continue
		}
		res, err := provider.ResolveChoice(ctx.GoContext(), currentType, name, suffix)
		if err != nil {
			return nil, NewEvalError(ErrInvalidPath, "choice resolution failed for %s.%s[x]", currentType, name).WithUnderlying(err)
		}
		if res.Resolved {
			return annotateType(obj.GetCollection(res.Property), res.Type), nil
		}
		if !declared {
			// Schema has no record of this element; accept the
			// instance's spelling so navigation works standalone.
			return annotateType(obj.GetCollection(concrete), suffix), nil
		}
	}
	return types.EmptyCollection, nil
}

// annotateType records the schema-declared element type on complex
// values so downstream ofType/is checks see it.
func annotateType(col types.Collection, fhirType string) types.Collection {
	if fhirType == "" {
		return col
	}
	out := make(types.Collection, len(col))
	for i, v := range col {
		if obj, ok := v.(*types.ObjectValue); ok {
			out[i] = obj.WithFHIRType(fhirType)
		} else {
			out[i] = v
		}
	}
	return out
}

// NavigateWrapped is Navigate with canonical-path tracking: each
// result carries its path, declared type, and index metadata.
func NavigateWrapped(ctx *Context, input []types.WrappedValue, name string) ([]types.WrappedValue, error) {
	var result []types.WrappedValue
	for _, item := range input {
		values, err := navigateValue(ctx, item.Value, name)
		if err != nil {
			return nil, err
		}
		childMeta := item.Meta.Child(name)
		if obj, ok := item.Value.(*types.ObjectValue); ok {
			if rt, isResource := obj.ResourceType(); isResource {
				childMeta.ResourceType = rt
			}
		}
		repeating := len(values) > 1
		for i, v := range values {
			meta := childMeta
			if obj, ok := v.(*types.ObjectValue); ok {
				meta = meta.WithType(obj.Type())
			} else {
				meta = meta.WithType(v.Type())
			}
			if repeating {
				meta = meta.Element(i)
			}
			result = append(result, types.Wrap(v, meta))
		}
	}
	return result, nil
}

// MatchesResourceHead reports whether a head identifier names the type
// (or a supertype) of the value, e.g. Patient in "Patient.name".
func MatchesResourceHead(ctx *Context, v types.Value, name string) (bool, error) {
	obj, ok := types.Unwrap(v).(*types.ObjectValue)
	if !ok {
		return false, nil
	}
	rt, isResource := obj.ResourceType()
	if !isResource {
		return false, nil
	}
	if rt == name {
		return true, nil
	}
	isSub, err := ctx.SchemaProvider().IsSubtypeOf(ctx.GoContext(), rt, name)
	if err != nil {
		return false, NewEvalError(ErrInvalidPath, "schema lookup failed for %s", name).WithUnderlying(err)
	}
	return isSub, nil
}

// IsTypeName reports whether a head identifier could be a type
// reference rather than a property: uppercase first letter by FHIR
// naming convention.
func IsTypeName(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z' && !strings.Contains(name, ".")
}
