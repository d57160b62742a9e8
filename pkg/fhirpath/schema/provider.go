// Package schema defines the contract the evaluator uses to answer
// type and property questions about FHIR structures. The engine never
// loads packages or StructureDefinitions itself; it consumes a
// Provider, which may be backed by anything from the embedded base
// tables to a full package manager.
package schema

import "context"

// PropertyInfo describes a property of a type.
type PropertyInfo struct {
	// Exists reports whether the property is defined on the type.
	Exists bool
	// Type is the element type of the property when known.
	Type string
	// Repeating reports whether the property has cardinality above 1.
	Repeating bool
	// IsChoice reports whether the property is a choice element
	// (value[x] style) realized under suffixed names.
	IsChoice bool
}

// ChoiceResolution is the outcome of resolving a choice element
// against a concrete type suffix.
type ChoiceResolution struct {
	// Resolved reports whether the suffix names a legal choice.
	Resolved bool
	// Property is the concrete property name, e.g. "valueString".
	Property string
	// Type is the element type for that choice, e.g. "string".
	Type string
}

// Provider answers schema questions. Every method takes a Context
// because implementations may fetch lazily; the evaluator calls them
// many times per evaluation and expects amortized O(1) answers.
type Provider interface {
	// HasResourceType reports whether name is a known resource type.
	HasResourceType(ctx context.Context, name string) (bool, error)

	// IsPrimitiveType reports whether name is a primitive type.
	IsPrimitiveType(ctx context.Context, name string) (bool, error)

	// IsComplexType reports whether name is a complex (non-resource,
	// non-primitive) type.
	IsComplexType(ctx context.Context, name string) (bool, error)

	// PropertyInfo describes property on typeName.
	PropertyInfo(ctx context.Context, typeName, property string) (PropertyInfo, error)

	// ResolveChoice resolves the choice element at typeName.path
	// against a concrete type suffix such as "String" or "Quantity".
	ResolveChoice(ctx context.Context, typeName, path, suffix string) (ChoiceResolution, error)

	// IsSubtypeOf reports whether child is parent or derives from it.
	IsSubtypeOf(ctx context.Context, child, parent string) (bool, error)

	// ResourceTypes lists every known resource type name.
	ResourceTypes(ctx context.Context) ([]string, error)
}
