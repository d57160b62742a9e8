package types

import (
	"fmt"
	"strings"
)

// Meta carries the navigation metadata attached to a wrapped value:
// the declared FHIR type of the slot, the resource type of the
// enclosing resource, the canonical path from the root, and the
// positional index when the parent slot is repeating.
type Meta struct {
	FHIRType     string
	ResourceType string
	Path         string
	Index        int
}

// Child extends the canonical path with a property step.
func (m Meta) Child(name string) Meta {
	out := m
	out.Index = 0
	if m.Path == "" {
		out.Path = name
	} else {
		out.Path = m.Path + "." + name
	}
	return out
}

// Element extends the canonical path with an index step, e.g.
// Patient.name -> Patient.name[0].
func (m Meta) Element(i int) Meta {
	out := m
	out.Index = i
	out.Path = fmt.Sprintf("%s[%d]", m.Path, i)
	return out
}

// WithType records the declared element type of the slot.
func (m Meta) WithType(fhirType string) Meta {
	out := m
	out.FHIRType = fhirType
	return out
}

// Parent returns the canonical path with its last step removed.
func (m Meta) Parent() string {
	if i := strings.LastIndexAny(m.Path, ".["); i >= 0 {
		return strings.TrimSuffix(m.Path[:i], "]")
	}
	return ""
}

// WrappedValue pairs a plain value with its navigation metadata. The
// evaluator lifts values to wrapped form while tracing and erases the
// metadata before handing values to the operator kernels.
type WrappedValue struct {
	Value Value
	Meta  Meta
}

// Wrap lifts a plain value. Wrapping a wrapped value replaces its
// metadata.
func Wrap(v Value, meta Meta) WrappedValue {
	if w, ok := v.(WrappedValue); ok {
		v = w.Value
	}
	return WrappedValue{Value: v, Meta: meta}
}

// Unwrap returns the plain value behind v, which may or may not be
// wrapped.
func Unwrap(v Value) Value {
	if w, ok := v.(WrappedValue); ok {
		return w.Value
	}
	return v
}

// UnwrapAll strips metadata from every element of a collection.
func UnwrapAll(c Collection) Collection {
	out := make(Collection, len(c))
	for i, v := range c {
		out[i] = Unwrap(v)
	}
	return out
}

// Type reports the declared FHIR type when known, falling back to the
// value's own type.
func (w WrappedValue) Type() string {
	if w.Meta.FHIRType != "" {
		return w.Meta.FHIRType
	}
	return w.Value.Type()
}

// TypeInfo reports the declared FHIR type when known, falling back to
// the reified type of the underlying value.
func (w WrappedValue) TypeInfo() TypeInfo {
	if w.Meta.FHIRType != "" {
		return FHIRType(w.Meta.FHIRType)
	}
	return w.Value.TypeInfo()
}

// Equal compares the underlying values; metadata never affects
// equality.
func (w WrappedValue) Equal(other Value) bool {
	return w.Value.Equal(Unwrap(other))
}

// Equivalent compares the underlying values.
func (w WrappedValue) Equivalent(other Value) bool {
	return w.Value.Equivalent(Unwrap(other))
}

// String returns the underlying value's representation.
func (w WrappedValue) String() string {
	return w.Value.String()
}

// IsEmpty reports whether the underlying value is empty.
func (w WrappedValue) IsEmpty() bool {
	return w.Value == nil || w.Value.IsEmpty()
}
