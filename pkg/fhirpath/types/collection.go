package types

import (
	"fmt"
	"strings"
)

// Collection is an ordered sequence of FHIRPath values. It is the
// fundamental return type for all FHIRPath expressions. A collection is
// always flat: it never contains another collection and never contains
// empty values. Use NewCollection or Append to preserve that invariant.
type Collection []Value

// NewCollection builds a flat collection from the given values, dropping
// nil/empty items and splicing nested collections in order.
func NewCollection(items ...Value) Collection {
	result := make(Collection, 0, len(items))
	return result.Append(items...)
}

// Append adds values to the collection, flattening nested collections
// and dropping nil/empty items.
func (c Collection) Append(items ...Value) Collection {
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case Collection:
			c = c.Append(v...)
		default:
			if !v.IsEmpty() {
				c = append(c, v)
			}
		}
	}
	return c
}

// Empty returns true if the collection has no elements.
func (c Collection) Empty() bool {
	return len(c) == 0
}

// IsEmpty implements Value; an empty collection is the empty value.
func (c Collection) IsEmpty() bool {
	return len(c) == 0
}

// Type returns "Collection".
func (c Collection) Type() string {
	return "Collection"
}

// TypeInfo returns System.Collection.
func (c Collection) TypeInfo() TypeInfo {
	return SystemType("Collection")
}

// Equal compares element-wise in order. A singleton collection is
// equal to its sole item.
func (c Collection) Equal(other Value) bool {
	if oc, ok := other.(Collection); ok {
		result, defined := c.EqualOrdered(oc)
		return defined && result
	}
	return len(c) == 1 && c[0].Equal(other)
}

// Equivalent compares order-insensitively. A singleton collection is
// equivalent to its sole item.
func (c Collection) Equivalent(other Value) bool {
	if oc, ok := other.(Collection); ok {
		return c.EquivalentUnordered(oc)
	}
	return len(c) == 1 && c[0].Equivalent(other)
}

// Count returns the number of elements in the collection.
func (c Collection) Count() int {
	return len(c)
}

// First returns the first element and true, or nil and false if empty.
func (c Collection) First() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[0], true
}

// Last returns the last element and true, or nil and false if empty.
func (c Collection) Last() (Value, bool) {
	if len(c) == 0 {
		return nil, false
	}
	return c[len(c)-1], true
}

// Single returns the sole element of a one-element collection.
// Returns an error if the collection holds more than one element and
// (nil, nil) when it is empty.
func (c Collection) Single() (Value, error) {
	switch len(c) {
	case 0:
		return nil, nil
	case 1:
		return c[0], nil
	default:
		return nil, fmt.Errorf("expected single value, got %d elements", len(c))
	}
}

// Tail returns all elements except the first.
func (c Collection) Tail() Collection {
	if len(c) <= 1 {
		return Collection{}
	}
	return c[1:]
}

// Skip returns a collection with the first n elements removed.
func (c Collection) Skip(n int) Collection {
	if n >= len(c) {
		return Collection{}
	}
	if n <= 0 {
		return c
	}
	return c[n:]
}

// Take returns a collection with only the first n elements.
func (c Collection) Take(n int) Collection {
	if n <= 0 {
		return Collection{}
	}
	if n >= len(c) {
		return c
	}
	return c[:n]
}

// Contains returns true if the collection contains a value equal to v.
func (c Collection) Contains(v Value) bool {
	for _, item := range c {
		if item.Equal(v) {
			return true
		}
	}
	return false
}

// ContainsEquivalent returns true if the collection contains a value
// equivalent to v.
func (c Collection) ContainsEquivalent(v Value) bool {
	for _, item := range c {
		if item.Equivalent(v) {
			return true
		}
	}
	return false
}

// Distinct returns a new collection with duplicate values removed,
// preserving the order of first occurrence.
func (c Collection) Distinct() Collection {
	if len(c) <= 1 {
		return c
	}
	result := make(Collection, 0, len(c))
	for _, item := range c {
		if !result.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// IsDistinct returns true if all elements in the collection are unique.
func (c Collection) IsDistinct() bool {
	return len(c) == len(c.Distinct())
}

// Union returns the set union of c and other with duplicates removed,
// preserving first-occurrence order.
func (c Collection) Union(other Collection) Collection {
	result := make(Collection, 0, len(c)+len(other))
	for _, item := range c {
		if !result.Contains(item) {
			result = append(result, item)
		}
	}
	for _, item := range other {
		if !result.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// Combine concatenates c and other. Unlike Union, duplicates are kept.
func (c Collection) Combine(other Collection) Collection {
	result := make(Collection, 0, len(c)+len(other))
	result = append(result, c...)
	result = append(result, other...)
	return result
}

// Intersect returns elements present in both collections, deduplicated.
func (c Collection) Intersect(other Collection) Collection {
	result := make(Collection, 0)
	for _, item := range c {
		if other.Contains(item) && !result.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// Exclude returns elements of c that are not in other. Order and
// duplicates of c are preserved.
func (c Collection) Exclude(other Collection) Collection {
	result := make(Collection, 0)
	for _, item := range c {
		if !other.Contains(item) {
			result = append(result, item)
		}
	}
	return result
}

// EqualOrdered compares two collections element-wise in order.
// Returns (result, defined); defined is false when either side is empty.
func (c Collection) EqualOrdered(other Collection) (bool, bool) {
	if len(c) == 0 || len(other) == 0 {
		return false, false
	}
	if len(c) != len(other) {
		return false, true
	}
	for i := range c {
		if !c[i].Equal(other[i]) {
			return false, true
		}
	}
	return true, true
}

// EquivalentUnordered compares two collections ignoring order, using
// equivalence semantics. Empty collections are equivalent to each other.
func (c Collection) EquivalentUnordered(other Collection) bool {
	if len(c) != len(other) {
		return false
	}
	used := make([]bool, len(other))
outer:
	for _, item := range c {
		for j, cand := range other {
			if !used[j] && item.Equivalent(cand) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// String returns a string representation of the collection.
func (c Collection) String() string {
	if len(c) == 0 {
		return "[]"
	}
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ToBoolean converts a singleton collection to a boolean per singleton
// evaluation rules: a boolean yields its value, any other single value
// yields true. Returns (value, defined, error).
func (c Collection) ToBoolean() (bool, bool, error) {
	switch len(c) {
	case 0:
		return false, false, nil
	case 1:
		if b, ok := c[0].(Boolean); ok {
			return b.Bool(), true, nil
		}
		return true, true, nil
	default:
		return false, false, fmt.Errorf("cannot convert collection with %d elements to boolean", len(c))
	}
}

// AllTrue returns true if all items are boolean true.
func (c Collection) AllTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || !b.Bool() {
			return false
		}
	}
	return true
}

// AnyTrue returns true if any item is boolean true.
func (c Collection) AnyTrue() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && b.Bool() {
			return true
		}
	}
	return false
}

// AllFalse returns true if all items are boolean false.
func (c Collection) AllFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); !ok || b.Bool() {
			return false
		}
	}
	return true
}

// AnyFalse returns true if any item is boolean false.
func (c Collection) AnyFalse() bool {
	for _, item := range c {
		if b, ok := item.(Boolean); ok && !b.Bool() {
			return true
		}
	}
	return false
}
