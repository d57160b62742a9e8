package eval

import (
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Three-valued logic. Operands are collections whose boolean value is
// taken per singleton evaluation rules; empty is the third value.
// The truth tables follow the FHIRPath specification exactly.

// boolOperand reduces a collection to (value, known) for the logical
// operators. A non-boolean singleton counts as true.
func boolOperand(col types.Collection) (bool, bool, error) {
	v, known, err := col.ToBoolean()
	if err != nil {
		return false, false, SingletonError(len(col))
	}
	return v, known, nil
}

// And implements the and operator:
//
//	true and true = true; anything and false = false;
//	true and empty = empty; empty and empty = empty.
func And(left, right types.Collection) (types.Collection, error) {
	l, lKnown, err := boolOperand(left)
	if err != nil {
		return nil, err
	}
	r, rKnown, err := boolOperand(right)
	if err != nil {
		return nil, err
	}
	switch {
	case lKnown && !l, rKnown && !r:
		return types.FalseCollection, nil
	case lKnown && rKnown:
		return types.TrueCollection, nil
	}
	return types.EmptyCollection, nil
}

// Or implements the or operator, dual to And.
func Or(left, right types.Collection) (types.Collection, error) {
	l, lKnown, err := boolOperand(left)
	if err != nil {
		return nil, err
	}
	r, rKnown, err := boolOperand(right)
	if err != nil {
		return nil, err
	}
	switch {
	case lKnown && l, rKnown && r:
		return types.TrueCollection, nil
	case lKnown && rKnown:
		return types.FalseCollection, nil
	}
	return types.EmptyCollection, nil
}

// Xor implements the xor operator: empty if either operand is empty.
func Xor(left, right types.Collection) (types.Collection, error) {
	l, lKnown, err := boolOperand(left)
	if err != nil {
		return nil, err
	}
	r, rKnown, err := boolOperand(right)
	if err != nil {
		return nil, err
	}
	if !lKnown || !rKnown {
		return types.EmptyCollection, nil
	}
	return types.BoolCollection(l != r), nil
}

// Implies implements the implies operator:
//
//	false implies anything = true; true implies X = X;
//	empty implies true = true; empty implies other = empty.
func Implies(left, right types.Collection) (types.Collection, error) {
	l, lKnown, err := boolOperand(left)
	if err != nil {
		return nil, err
	}
	r, rKnown, err := boolOperand(right)
	if err != nil {
		return nil, err
	}
	switch {
	case lKnown && !l:
		return types.TrueCollection, nil
	case rKnown && r:
		return types.TrueCollection, nil
	case lKnown && rKnown:
		return types.FalseCollection, nil
	}
	return types.EmptyCollection, nil
}

// Not implements the not() function: empty in, empty out; a
// non-boolean singleton yields empty; more than one item is an error.
func Not(col types.Collection) (types.Collection, error) {
	if col.Empty() {
		return types.EmptyCollection, nil
	}
	if len(col) != 1 {
		return nil, SingletonError(len(col))
	}
	b, ok := col[0].(types.Boolean)
	if !ok {
		return types.EmptyCollection, nil
	}
	return types.BoolCollection(!b.Bool()), nil
}
