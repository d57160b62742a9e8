package eval

import (
	"strings"

	"github.com/buger/jsonparser"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// ResolveReferences implements resolve(): each item that is a
// reference string or Reference element is resolved against the root
// resource's contained array, then the enclosing Bundle's entries,
// then the optional external resolver. Items that do not resolve are
// dropped. No network I/O happens unless a resolver was injected.
func ResolveReferences(ctx *Context, input types.Collection) (types.Collection, error) {
	result := types.Collection{}
	for _, item := range input {
		reference := referenceString(types.Unwrap(item))
		if reference == "" {
			continue
		}
		resolved, err := resolveOne(ctx, reference)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			result = append(result, resolved)
		}
	}
	return result, nil
}

// referenceString extracts the reference text from a string or a
// Reference element.
func referenceString(v types.Value) string {
	switch val := v.(type) {
	case types.String:
		return val.Value()
	case *types.ObjectValue:
		if ref, ok := val.Get("reference"); ok {
			if s, isStr := ref.(types.String); isStr {
				return s.Value()
			}
		}
	}
	return ""
}

func resolveOne(ctx *Context, reference string) (types.Value, error) {
	root := rootObject(ctx)

	// #id references target the contained array of the root resource.
	if strings.HasPrefix(reference, "#") {
		if root == nil {
			return nil, nil
		}
		return findContained(root, reference[1:]), nil
	}

	if root != nil {
		if rt, ok := root.ResourceType(); ok && rt == "Bundle" {
			if entry := findBundleEntry(root, reference); entry != nil {
				return entry, nil
			}
		}
	}

	if resolver := ctx.GetResolver(); resolver != nil {
		data, err := resolver.Resolve(ctx.GoContext(), reference)
		if err != nil || len(data) == 0 {
			// A failing resolver drops the item, matching the
			// local-resolution behavior.
			return nil, nil
		}
		resource, err := types.NewResourceValue(data)
		if err != nil {
			return nil, nil
		}
		return resource, nil
	}
	return nil, nil
}

func rootObject(ctx *Context) *types.ObjectValue {
	rootValue, ok := ctx.Root().First()
	if !ok {
		return nil
	}
	obj, ok := types.Unwrap(rootValue).(*types.ObjectValue)
	if !ok {
		return nil
	}
	return obj
}

// findContained locates the contained resource with the given id.
func findContained(root *types.ObjectValue, id string) types.Value {
	var found types.Value
	//nolint:errcheck // absent contained array is simply no match
	jsonparser.ArrayEach(root.Data(), func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if found != nil || dataType != jsonparser.Object {
			return
		}
		if containedID, err := jsonparser.GetString(value, "id"); err == nil && containedID == id {
			found = types.NewObjectValue(value)
		}
	}, "contained")
	return found
}

// findBundleEntry matches reference against each entry's fullUrl,
// exactly or as a relative suffix (Patient/123 matches
// http://server/fhir/Patient/123), returning the entry's resource.
func findBundleEntry(bundle *types.ObjectValue, reference string) types.Value {
	var found types.Value
	//nolint:errcheck // absent entry array is simply no match
	jsonparser.ArrayEach(bundle.Data(), func(entry []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if found != nil || dataType != jsonparser.Object {
			return
		}
		fullURL, err := jsonparser.GetString(entry, "fullUrl")
		if err != nil {
			return
		}
		if fullURL != reference && !strings.HasSuffix(fullURL, "/"+reference) {
			return
		}
		if resource, _, _, resErr := jsonparser.Get(entry, "resource"); resErr == nil {
			found = types.NewObjectValue(resource)
		}
	}, "entry")
	return found
}
