package types

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Integer represents a FHIRPath integer value backed by int64.
// Arithmetic checks for overflow and reports ErrOverflow instead of
// wrapping around.
type Integer struct {
	value int64
}

// NewInteger creates a new Integer value.
func NewInteger(v int64) Integer {
	return Integer{value: v}
}

// Value returns the underlying int64 value.
func (i Integer) Value() int64 {
	return i.value
}

// Type returns "Integer".
func (i Integer) Type() string {
	return "Integer"
}

// TypeInfo returns System.Integer.
func (i Integer) TypeInfo() TypeInfo {
	return SystemType("Integer")
}

// Equal returns true if other is an Integer with the same value, or a
// Decimal with an equal numeric value.
func (i Integer) Equal(other Value) bool {
	switch o := other.(type) {
	case Integer:
		return i.value == o.value
	case Decimal:
		return i.ToDecimal().Equal(o)
	}
	return false
}

// Equivalent is the same as Equal for integers.
func (i Integer) Equivalent(other Value) bool {
	return i.Equal(other)
}

// String returns the decimal string representation.
func (i Integer) String() string {
	return strconv.FormatInt(i.value, 10)
}

// IsEmpty returns false for integer values.
func (i Integer) IsEmpty() bool {
	return false
}

// ToDecimal converts the integer to a Decimal.
func (i Integer) ToDecimal() Decimal {
	return Decimal{value: decimal.NewFromInt(i.value)}
}

// Compare compares against another numeric value.
func (i Integer) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Integer:
		switch {
		case i.value < o.value:
			return -1, nil
		case i.value > o.value:
			return 1, nil
		}
		return 0, nil
	case Decimal:
		return i.ToDecimal().Compare(o)
	case Quantity:
		return i.ToDecimal().Compare(o)
	}
	return 0, incomparable("Integer", other.Type())
}

// Add returns the checked sum of two integers.
func (i Integer) Add(other Integer) (Integer, error) {
	sum := i.value + other.value
	if (i.value > 0 && other.value > 0 && sum < 0) ||
		(i.value < 0 && other.value < 0 && sum >= 0) {
		return Integer{}, ErrOverflow
	}
	return NewInteger(sum), nil
}

// Subtract returns the checked difference of two integers.
func (i Integer) Subtract(other Integer) (Integer, error) {
	if other.value == math.MinInt64 {
		if i.value >= 0 {
			return Integer{}, ErrOverflow
		}
		return NewInteger(i.value - other.value), nil
	}
	return i.Add(NewInteger(-other.value))
}

// Multiply returns the checked product of two integers.
func (i Integer) Multiply(other Integer) (Integer, error) {
	if i.value == 0 || other.value == 0 {
		return NewInteger(0), nil
	}
	product := i.value * other.value
	if product/other.value != i.value {
		return Integer{}, ErrOverflow
	}
	return NewInteger(product), nil
}

// Divide returns the result of decimal division.
func (i Integer) Divide(other Integer) (Decimal, error) {
	return i.ToDecimal().Divide(other.ToDecimal())
}

// Div returns truncated integer division. Division by zero is an error.
func (i Integer) Div(other Integer) (Integer, error) {
	if other.value == 0 {
		return Integer{}, ErrDivisionByZero
	}
	if i.value == math.MinInt64 && other.value == -1 {
		return Integer{}, ErrOverflow
	}
	return NewInteger(i.value / other.value), nil
}

// Mod returns the modulo result. Division by zero is an error.
func (i Integer) Mod(other Integer) (Integer, error) {
	if other.value == 0 {
		return Integer{}, ErrDivisionByZero
	}
	if i.value == math.MinInt64 && other.value == -1 {
		return NewInteger(0), nil
	}
	return NewInteger(i.value % other.value), nil
}

// Negate returns the checked negation of the integer.
func (i Integer) Negate() (Integer, error) {
	if i.value == math.MinInt64 {
		return Integer{}, ErrOverflow
	}
	return NewInteger(-i.value), nil
}

// Abs returns the checked absolute value.
func (i Integer) Abs() (Integer, error) {
	if i.value < 0 {
		return i.Negate()
	}
	return i, nil
}
