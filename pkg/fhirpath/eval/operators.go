package eval

import (
	"errors"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Arithmetic operators. Each takes unwrapped singleton values; empty
// propagation and singleton checks happen in the evaluator.

// Add performs addition: numeric widening, string concatenation,
// temporal plus duration, quantity plus quantity.
func Add(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			sum, err := l.Add(r)
			if err != nil {
				return nil, arithmeticOrDivZero(err)
			}
			return sum, nil
		case types.Decimal:
			return l.ToDecimal().Add(r), nil
		case types.Quantity:
			return types.NewQuantityFromDecimal(l.ToDecimal().Value(), "").Add(r)
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return l.Add(r.ToDecimal()), nil
		case types.Decimal:
			return l.Add(r), nil
		case types.Quantity:
			return types.NewQuantityFromDecimal(l.Value(), "").Add(r)
		}
	case types.String:
		if r, ok := right.(types.String); ok {
			return types.NewString(l.Value() + r.Value()), nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return addDateDuration(l, q, 1)
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return addDateTimeDuration(l, q, 1)
		}
	case types.Time:
		if q, ok := right.(types.Quantity); ok {
			return addTimeDuration(l, q, 1)
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Add(r)
		}
	}
	return nil, InvalidOperationError("+", left.Type(), right.Type())
}

// Subtract performs subtraction.
func Subtract(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			diff, err := l.Subtract(r)
			if err != nil {
				return nil, arithmeticOrDivZero(err)
			}
			return diff, nil
		case types.Decimal:
			return l.ToDecimal().Subtract(r), nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return l.Subtract(r.ToDecimal()), nil
		case types.Decimal:
			return l.Subtract(r), nil
		}
	case types.Date:
		if q, ok := right.(types.Quantity); ok {
			return addDateDuration(l, q, -1)
		}
	case types.DateTime:
		if q, ok := right.(types.Quantity); ok {
			return addDateTimeDuration(l, q, -1)
		}
	case types.Time:
		if q, ok := right.(types.Quantity); ok {
			return addTimeDuration(l, q, -1)
		}
	case types.Quantity:
		if r, ok := right.(types.Quantity); ok {
			return l.Subtract(r)
		}
	}
	return nil, InvalidOperationError("-", left.Type(), right.Type())
}

func addDateDuration(d types.Date, q types.Quantity, sign int64) (types.Value, error) {
	value, unit, ok := q.DurationValue()
	if !ok {
		return nil, InvalidOperationError("+", d.Type(), q.Type())
	}
	out, ok := d.AddDuration(sign*value, unit)
	if !ok {
		return nil, InvalidOperationError("+", d.Type(), q.Type())
	}
	return out, nil
}

func addDateTimeDuration(dt types.DateTime, q types.Quantity, sign int64) (types.Value, error) {
	value, unit, ok := q.DurationValue()
	if !ok {
		return nil, InvalidOperationError("+", dt.Type(), q.Type())
	}
	out, ok := dt.AddDuration(sign*value, unit)
	if !ok {
		return nil, InvalidOperationError("+", dt.Type(), q.Type())
	}
	return out, nil
}

func addTimeDuration(t types.Time, q types.Quantity, sign int64) (types.Value, error) {
	value, unit, ok := q.DurationValue()
	if !ok {
		return nil, InvalidOperationError("+", t.Type(), q.Type())
	}
	out, ok := t.AddDuration(sign*value, unit)
	if !ok {
		return nil, InvalidOperationError("+", t.Type(), q.Type())
	}
	return out, nil
}

// Multiply performs multiplication.
func Multiply(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.Integer:
		switch r := right.(type) {
		case types.Integer:
			product, err := l.Multiply(r)
			if err != nil {
				return nil, arithmeticOrDivZero(err)
			}
			return product, nil
		case types.Decimal:
			return l.ToDecimal().Multiply(r), nil
		case types.Quantity:
			return r.Multiply(l.ToDecimal().Value()), nil
		}
	case types.Decimal:
		switch r := right.(type) {
		case types.Integer:
			return l.Multiply(r.ToDecimal()), nil
		case types.Decimal:
			return l.Multiply(r), nil
		case types.Quantity:
			return r.Multiply(l.Value()), nil
		}
	case types.Quantity:
		switch r := right.(type) {
		case types.Integer:
			return l.Multiply(r.ToDecimal().Value()), nil
		case types.Decimal:
			return l.Multiply(r.Value()), nil
		}
	}
	return nil, InvalidOperationError("*", left.Type(), right.Type())
}

// Divide performs decimal division. Division by zero yields empty,
// signalled with a nil value and nil error.
func Divide(left, right types.Value) (types.Value, error) {
	if lq, ok := left.(types.Quantity); ok {
		switch r := right.(type) {
		case types.Integer:
			return quantityDivide(lq, r.ToDecimal())
		case types.Decimal:
			return quantityDivide(lq, r)
		}
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}

	lDec, lok := toDecimalOperand(left)
	rDec, rok := toDecimalOperand(right)
	if !lok || !rok {
		return nil, InvalidOperationError("/", left.Type(), right.Type())
	}
	result, err := lDec.Divide(rDec)
	if err != nil {
		if errors.Is(err, types.ErrDivisionByZero) {
			return nil, nil
		}
		return nil, ArithmeticError(err)
	}
	return result, nil
}

func quantityDivide(q types.Quantity, divisor types.Decimal) (types.Value, error) {
	result, err := q.Divide(divisor.Value())
	if err != nil {
		if errors.Is(err, types.ErrDivisionByZero) {
			return nil, nil
		}
		return nil, ArithmeticError(err)
	}
	return result, nil
}

func toDecimalOperand(v types.Value) (types.Decimal, bool) {
	switch n := v.(type) {
	case types.Integer:
		return n.ToDecimal(), true
	case types.Decimal:
		return n, true
	}
	return types.Decimal{}, false
}

// IntegerDivide performs the div operator. Division by zero errors.
func IntegerDivide(left, right types.Value) (types.Value, error) {
	l, lok := toDecimalOperand(left)
	r, rok := toDecimalOperand(right)
	if !lok || !rok {
		return nil, InvalidOperationError("div", left.Type(), right.Type())
	}
	if li, ok := left.(types.Integer); ok {
		if ri, isInt := right.(types.Integer); isInt {
			out, err := li.Div(ri)
			if err != nil {
				return nil, arithmeticOrDivZero(err)
			}
			return out, nil
		}
	}
	if r.Value().IsZero() {
		return nil, DivisionByZeroError()
	}
	q, err := l.Divide(r)
	if err != nil {
		return nil, arithmeticOrDivZero(err)
	}
	return q.Truncate(), nil
}

// Modulo performs the mod operator. Division by zero errors.
func Modulo(left, right types.Value) (types.Value, error) {
	if li, ok := left.(types.Integer); ok {
		if ri, isInt := right.(types.Integer); isInt {
			out, err := li.Mod(ri)
			if err != nil {
				return nil, arithmeticOrDivZero(err)
			}
			return out, nil
		}
	}
	l, lok := toDecimalOperand(left)
	r, rok := toDecimalOperand(right)
	if !lok || !rok {
		return nil, InvalidOperationError("mod", left.Type(), right.Type())
	}
	if r.Value().IsZero() {
		return nil, DivisionByZeroError()
	}
	quotient, err := l.Divide(r)
	if err != nil {
		return nil, arithmeticOrDivZero(err)
	}
	return l.Subtract(quotient.Truncate().ToDecimal().Multiply(r)), nil
}

// Negate applies unary minus.
func Negate(value types.Value) (types.Value, error) {
	switch v := value.(type) {
	case types.Integer:
		out, err := v.Negate()
		if err != nil {
			return nil, arithmeticOrDivZero(err)
		}
		return out, nil
	case types.Decimal:
		return v.Negate(), nil
	case types.Quantity:
		return v.Negate(), nil
	}
	return nil, NewEvalError(ErrInvalidOperation, "cannot negate %s", value.Type())
}

// Compare orders two values, widening integers against decimals.
// Returns types.ErrIncomparable (wrapped) when no ordering exists.
func Compare(left, right types.Value) (int, error) {
	if cmp, ok := left.(types.Comparable); ok {
		return cmp.Compare(right)
	}
	return 0, NewEvalError(ErrType, "%s values are not ordered", left.Type())
}

// compareOp shares the relational dispatch: empty result when the
// operands have no defined ordering.
func compareOp(left, right types.Value, test func(int) bool) (types.Collection, error) {
	c, err := Compare(left, right)
	if err != nil {
		if errors.Is(err, types.ErrIncomparable) {
			return types.EmptyCollection, nil
		}
		return nil, err
	}
	return types.BoolCollection(test(c)), nil
}

// LessThan implements <.
func LessThan(left, right types.Value) (types.Collection, error) {
	return compareOp(left, right, func(c int) bool { return c < 0 })
}

// LessOrEqual implements <=.
func LessOrEqual(left, right types.Value) (types.Collection, error) {
	return compareOp(left, right, func(c int) bool { return c <= 0 })
}

// GreaterThan implements >.
func GreaterThan(left, right types.Value) (types.Collection, error) {
	return compareOp(left, right, func(c int) bool { return c > 0 })
}

// GreaterOrEqual implements >=.
func GreaterOrEqual(left, right types.Value) (types.Collection, error) {
	return compareOp(left, right, func(c int) bool { return c >= 0 })
}

// Equal implements = over collections: element-wise in order, empty
// when either side is empty.
func Equal(left, right types.Collection) types.Collection {
	result, defined := left.EqualOrdered(right)
	if !defined {
		return types.EmptyCollection
	}
	return types.BoolCollection(result)
}

// NotEqual implements !=.
func NotEqual(left, right types.Collection) types.Collection {
	result, defined := left.EqualOrdered(right)
	if !defined {
		return types.EmptyCollection
	}
	return types.BoolCollection(!result)
}

// Equivalent implements ~ over collections: order-insensitive, and
// defined for empty operands (empty ~ empty is true).
func Equivalent(left, right types.Collection) types.Collection {
	return types.BoolCollection(left.EquivalentUnordered(right))
}

// NotEquivalent implements !~.
func NotEquivalent(left, right types.Collection) types.Collection {
	return types.BoolCollection(!left.EquivalentUnordered(right))
}

// Concatenate implements &: empty operands act as empty strings.
func Concatenate(left, right types.Collection) (types.Collection, error) {
	l, err := concatOperand(left)
	if err != nil {
		return nil, err
	}
	r, err := concatOperand(right)
	if err != nil {
		return nil, err
	}
	return types.Collection{types.NewString(l + r)}, nil
}

func concatOperand(col types.Collection) (string, error) {
	switch len(col) {
	case 0:
		return "", nil
	case 1:
		if s, ok := col[0].(types.String); ok {
			return s.Value(), nil
		}
		return "", TypeMismatchError("String", col[0].Type(), "'&'")
	default:
		return "", SingletonError(len(col))
	}
}

// Union implements |: set union with first-occurrence ordering.
func Union(left, right types.Collection) types.Collection {
	return left.Union(right)
}

// In implements the in operator: left item contained in right
// collection under equality semantics. Empty left yields empty; empty
// right yields false.
func In(left, right types.Collection) (types.Collection, error) {
	if left.Empty() {
		return types.EmptyCollection, nil
	}
	if len(left) != 1 {
		return nil, SingletonError(len(left))
	}
	return types.BoolCollection(right.Contains(left[0])), nil
}

// Contains implements the contains operator, the converse of in.
func Contains(left, right types.Collection) (types.Collection, error) {
	return In(right, left)
}
