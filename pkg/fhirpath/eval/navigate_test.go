package eval

import (
	"testing"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

const wrappedPatient = `{
	"resourceType": "Patient",
	"name": [
		{"family": "Doe", "given": ["John", "James"]},
		{"family": "Roe", "given": ["Jane"]}
	]
}`

func TestNavigateWrappedPaths(t *testing.T) {
	ctx := NewContext([]byte(wrappedPatient))
	rootValue, _ := ctx.Root().First()
	root := []types.WrappedValue{
		types.Wrap(rootValue, types.Meta{ResourceType: "Patient", Path: "Patient", FHIRType: "Patient"}),
	}

	names, err := NavigateWrapped(ctx, root, "name")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if names[0].Meta.Path != "Patient.name[0]" || names[1].Meta.Path != "Patient.name[1]" {
		t.Errorf("paths %q, %q", names[0].Meta.Path, names[1].Meta.Path)
	}
	if names[0].Meta.ResourceType != "Patient" {
		t.Errorf("resource type %q", names[0].Meta.ResourceType)
	}

	given, err := NavigateWrapped(ctx, names[:1], "given")
	if err != nil {
		t.Fatal(err)
	}
	if len(given) != 2 {
		t.Fatalf("expected 2 given names, got %d", len(given))
	}
	if given[1].Meta.Path != "Patient.name[0].given[1]" {
		t.Errorf("canonical path %q", given[1].Meta.Path)
	}
	if given[1].Meta.Index != 1 {
		t.Errorf("index %d", given[1].Meta.Index)
	}
	if given[0].Value.String() != "John" {
		t.Errorf("value %s", given[0].Value)
	}
}

func TestNavigateMisc(t *testing.T) {
	ctx := NewContext([]byte(`{}`))

	t.Run("quantity properties", func(t *testing.T) {
		q, _ := types.NewQuantity("5 'mg'")
		got, err := Navigate(ctx, types.Collection{q}, "value")
		if err != nil || got.String() != "[5]" {
			t.Errorf("quantity.value: %s, %v", got, err)
		}
		got, err = Navigate(ctx, types.Collection{q}, "unit")
		if err != nil || got.String() != "[mg]" {
			t.Errorf("quantity.unit: %s, %v", got, err)
		}
		got, err = Navigate(ctx, types.Collection{q}, "other")
		if err != nil || !got.Empty() {
			t.Errorf("quantity.other: %s, %v", got, err)
		}
	})

	t.Run("typeinfo properties", func(t *testing.T) {
		ti := types.SystemType("Integer")
		got, err := Navigate(ctx, types.Collection{ti}, "namespace")
		if err != nil || got.String() != "[System]" {
			t.Errorf("typeinfo.namespace: %s, %v", got, err)
		}
		got, err = Navigate(ctx, types.Collection{ti}, "name")
		if err != nil || got.String() != "[Integer]" {
			t.Errorf("typeinfo.name: %s, %v", got, err)
		}
	})

	t.Run("primitives have no children", func(t *testing.T) {
		got, err := Navigate(ctx, types.Collection{types.NewString("x")}, "anything")
		if err != nil || !got.Empty() {
			t.Errorf("string navigation: %s, %v", got, err)
		}
	})
}
