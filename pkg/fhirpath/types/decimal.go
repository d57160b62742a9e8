package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TypeNameDecimal is the FHIRPath type name for decimal values.
const TypeNameDecimal = "Decimal"

// maxDecimalDigits is the representational limit used by the boundary
// functions: precision beyond this yields empty.
const maxDecimalDigits = 28

// Decimal represents a FHIRPath decimal value with arbitrary precision.
// The scale of the literal it was parsed from is preserved; it drives
// precision(), lowBoundary() and highBoundary().
type Decimal struct {
	value decimal.Decimal
}

// NewDecimal creates a new Decimal from a string.
func NewDecimal(s string) (Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %s", s)
	}
	return Decimal{value: d}, nil
}

// NewDecimalFromInt creates a new Decimal from an int64.
func NewDecimalFromInt(v int64) Decimal {
	return Decimal{value: decimal.NewFromInt(v)}
}

// NewDecimalFromFloat creates a new Decimal from a float64.
func NewDecimalFromFloat(v float64) Decimal {
	return Decimal{value: decimal.NewFromFloat(v)}
}

// NewDecimalFromDecimal wraps a shopspring decimal.
func NewDecimalFromDecimal(v decimal.Decimal) Decimal {
	return Decimal{value: v}
}

// MustDecimal creates a new Decimal, panicking on error.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Value returns the underlying decimal.Decimal value.
func (d Decimal) Value() decimal.Decimal {
	return d.value
}

// Type returns "Decimal".
func (d Decimal) Type() string {
	return TypeNameDecimal
}

// TypeInfo returns System.Decimal.
func (d Decimal) TypeInfo() TypeInfo {
	return SystemType(TypeNameDecimal)
}

// Equal returns true if other is numerically equal.
func (d Decimal) Equal(other Value) bool {
	switch o := other.(type) {
	case Decimal:
		return d.value.Equal(o.value)
	case Integer:
		return d.value.Equal(decimal.NewFromInt(o.value))
	}
	return false
}

// Equivalent compares at the scale of the less precise operand,
// rounding half away from zero.
func (d Decimal) Equivalent(other Value) bool {
	var o decimal.Decimal
	switch v := other.(type) {
	case Decimal:
		o = v.value
	case Integer:
		o = decimal.NewFromInt(v.value)
	default:
		return false
	}
	scale := d.Scale()
	if s := int(o.Exponent() * -1); s < scale {
		scale = s
	}
	if scale < 0 {
		scale = 0
	}
	return d.value.Round(int32(scale)).Equal(o.Round(int32(scale)))
}

// String returns the decimal string representation.
func (d Decimal) String() string {
	return d.value.String()
}

// IsEmpty returns false for decimal values.
func (d Decimal) IsEmpty() bool {
	return false
}

// ToDecimal returns itself (implements Numeric).
func (d Decimal) ToDecimal() Decimal {
	return d
}

// Scale returns the number of decimal places carried by the value.
func (d Decimal) Scale() int {
	if e := d.value.Exponent(); e < 0 {
		return int(-e)
	}
	return 0
}

// Compare compares against another numeric value.
func (d Decimal) Compare(other Value) (int, error) {
	switch o := other.(type) {
	case Decimal:
		return d.value.Cmp(o.value), nil
	case Integer:
		return d.value.Cmp(decimal.NewFromInt(o.value)), nil
	}
	return 0, incomparable(TypeNameDecimal, other.Type())
}

// Add returns the sum of two decimals.
func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{value: d.value.Add(other.value)}
}

// Subtract returns the difference of two decimals.
func (d Decimal) Subtract(other Decimal) Decimal {
	return Decimal{value: d.value.Sub(other.value)}
}

// Multiply returns the product of two decimals.
func (d Decimal) Multiply(other Decimal) Decimal {
	return Decimal{value: d.value.Mul(other.value)}
}

// Divide returns the result of division at 16 digits of scale.
// Division by zero yields an empty result upstream, signalled here
// with ErrDivisionByZero.
func (d Decimal) Divide(other Decimal) (Decimal, error) {
	if other.value.IsZero() {
		return Decimal{}, ErrDivisionByZero
	}
	return Decimal{value: d.value.DivRound(other.value, 16)}, nil
}

// Negate returns the negation of the decimal.
func (d Decimal) Negate() Decimal {
	return Decimal{value: d.value.Neg()}
}

// Abs returns the absolute value.
func (d Decimal) Abs() Decimal {
	return Decimal{value: d.value.Abs()}
}

// Ceiling returns the smallest integer >= d.
func (d Decimal) Ceiling() Integer {
	return NewInteger(d.value.Ceil().IntPart())
}

// Floor returns the largest integer <= d.
func (d Decimal) Floor() Integer {
	return NewInteger(d.value.Floor().IntPart())
}

// Truncate returns the integer part.
func (d Decimal) Truncate() Integer {
	return NewInteger(d.value.Truncate(0).IntPart())
}

// Round rounds to the given number of decimal places, half away
// from zero.
func (d Decimal) Round(places int32) Decimal {
	return Decimal{value: d.value.Round(places)}
}

// Power returns d raised to the given power. Returns false when the
// result is not a real number (e.g. negative base, fractional exponent).
func (d Decimal) Power(exp Decimal) (Decimal, bool) {
	if exp.value.IsInteger() {
		return Decimal{value: d.value.Pow(exp.value)}, true
	}
	base, _ := d.value.Float64()
	exponent, _ := exp.value.Float64()
	result := math.Pow(base, exponent)
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return Decimal{}, false
	}
	return NewDecimalFromFloat(result), true
}

// Sqrt returns the square root. Returns false for negative input.
func (d Decimal) Sqrt() (Decimal, bool) {
	if d.value.IsNegative() {
		return Decimal{}, false
	}
	f, _ := d.value.Float64()
	return NewDecimalFromFloat(math.Sqrt(f)), true
}

// Exp returns e^d.
func (d Decimal) Exp() Decimal {
	f, _ := d.value.Float64()
	return NewDecimalFromFloat(math.Exp(f))
}

// Ln returns the natural logarithm. Returns false for non-positive input.
func (d Decimal) Ln() (Decimal, bool) {
	if !d.value.IsPositive() {
		return Decimal{}, false
	}
	f, _ := d.value.Float64()
	return NewDecimalFromFloat(math.Log(f)), true
}

// Log returns the logarithm with the given base. Returns false for
// invalid operands.
func (d Decimal) Log(base Decimal) (Decimal, bool) {
	if !d.value.IsPositive() || !base.value.IsPositive() || base.value.Equal(decimal.NewFromInt(1)) {
		return Decimal{}, false
	}
	f, _ := d.value.Float64()
	b, _ := base.value.Float64()
	return NewDecimalFromFloat(math.Log(f) / math.Log(b)), true
}

// IsInteger returns true if the decimal has no fractional part.
func (d Decimal) IsInteger() bool {
	return d.value.Equal(d.value.Truncate(0))
}

// ToInteger converts to Integer if it is a whole number.
func (d Decimal) ToInteger() (Integer, bool) {
	if d.IsInteger() {
		return NewInteger(d.value.IntPart()), true
	}
	return Integer{}, false
}

// Precision returns the number of decimal places, the value reported
// by the precision() function for decimals.
func (d Decimal) Precision() int {
	return d.Scale()
}

// LowBoundary returns the inclusive lower bound of the range implied by
// the value's scale, expressed at the target precision. A target beyond
// the 28-digit representational limit yields false.
func (d Decimal) LowBoundary(precision int) (Decimal, bool) {
	return d.boundary(precision, false)
}

// HighBoundary returns the inclusive upper bound of the range implied
// by the value's scale, expressed at the target precision.
func (d Decimal) HighBoundary(precision int) (Decimal, bool) {
	return d.boundary(precision, true)
}

func (d Decimal) boundary(precision int, high bool) (Decimal, bool) {
	if precision < 0 || precision > maxDecimalDigits {
		return Decimal{}, false
	}
	// Half a unit in the last place of the input's scale.
	half := decimal.New(5, int32(-(d.Scale() + 1)))
	var bound decimal.Decimal
	if high {
		bound = d.value.Add(half)
	} else {
		bound = d.value.Sub(half)
	}
	// Round away from the value so the bound covers the implied range.
	if high {
		bound = bound.RoundCeil(int32(precision))
	} else {
		bound = bound.RoundFloor(int32(precision))
	}
	return Decimal{value: bound}, true
}

// FormatScale renders the decimal with exactly the given number of
// decimal places, preserving trailing zeros.
func (d Decimal) FormatScale(places int) string {
	s := d.value.StringFixed(int32(places))
	return s
}

// countSignificantDigits counts the digits of the coefficient, used to
// enforce the representational limit.
func (d Decimal) countSignificantDigits() int {
	s := d.value.Abs().String()
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// WithinRepresentationalLimit reports whether the value fits in the
// 28-digit decimal representation.
func (d Decimal) WithinRepresentationalLimit() bool {
	return d.countSignificantDigits() <= maxDecimalDigits
}

// ParseDecimalOrInteger parses numeric literal text into an Integer
// when it has no fraction or exponent, a Decimal otherwise.
func ParseDecimalOrInteger(text string) (Value, error) {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return NewInteger(i), nil
		}
	}
	return NewDecimal(text)
}
