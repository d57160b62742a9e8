package types

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robertoaraneda/fhirpath/pkg/ucum"
)

// Quantity represents a FHIRPath quantity value: a decimal value with
// an optional UCUM unit code.
type Quantity struct {
	value decimal.Decimal
	unit  string
}

var quantityPattern = regexp.MustCompile(`^([+-]?\d+\.?\d*)\s*(?:'([^']+)'|(\S+))?$`)

// NewQuantity creates a Quantity from text like "5 'mg'" or "5 days".
// Calendar words are normalized to their UCUM codes.
func NewQuantity(s string) (Quantity, error) {
	m := quantityPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Quantity{}, fmt.Errorf("invalid quantity format: %s", s)
	}
	val, err := decimal.NewFromString(m[1])
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity value: %s", m[1])
	}
	unit := m[2]
	if unit == "" && m[3] != "" {
		unit = ucum.FromCalendarWord(m[3])
	}
	return Quantity{value: val, unit: unit}, nil
}

// NewQuantityFromDecimal creates a Quantity from a decimal value and unit.
func NewQuantityFromDecimal(value decimal.Decimal, unit string) Quantity {
	return Quantity{value: value, unit: unit}
}

// Type returns "Quantity".
func (q Quantity) Type() string {
	return "Quantity"
}

// TypeInfo returns System.Quantity.
func (q Quantity) TypeInfo() TypeInfo {
	return SystemType("Quantity")
}

// Value returns the numeric value.
func (q Quantity) Value() decimal.Decimal {
	return q.value
}

// Unit returns the unit code.
func (q Quantity) Unit() string {
	return q.unit
}

// Equal checks equality with another value; quantities with different
// but convertible units are compared in canonical form.
func (q Quantity) Equal(other Value) bool {
	o, ok := other.(Quantity)
	if !ok {
		return false
	}
	if q.unit == o.unit || q.unit == "" || o.unit == "" {
		return q.value.Equal(o.value)
	}
	n1, ok1 := ucum.Normalize(q.value, q.unit)
	n2, ok2 := ucum.Normalize(o.value, o.unit)
	if !ok1 || !ok2 || n1.Code != n2.Code {
		return false
	}
	return n1.Value.Equal(n2.Value)
}

// Equivalent checks equivalence: units compared case-insensitively and
// values in canonical form at the coarser scale.
func (q Quantity) Equivalent(other Value) bool {
	o, ok := other.(Quantity)
	if !ok {
		return false
	}
	if strings.EqualFold(q.unit, o.unit) || q.unit == "" || o.unit == "" {
		return NewDecimalFromDecimal(q.value).Equivalent(NewDecimalFromDecimal(o.value))
	}
	n1, ok1 := ucum.Normalize(q.value, q.unit)
	n2, ok2 := ucum.Normalize(o.value, o.unit)
	if !ok1 || !ok2 || n1.Code != n2.Code {
		return false
	}
	return NewDecimalFromDecimal(n1.Value).Equivalent(NewDecimalFromDecimal(n2.Value))
}

// String returns the canonical literal form.
func (q Quantity) String() string {
	if q.unit == "" {
		return q.value.String()
	}
	return fmt.Sprintf("%s '%s'", q.value.String(), q.unit)
}

// IsEmpty returns false for Quantity.
func (q Quantity) IsEmpty() bool {
	return false
}

// Property gives navigation access to the value and unit members; all
// other names are absent.
func (q Quantity) Property(name string) (Value, bool) {
	switch name {
	case "value":
		return NewDecimalFromDecimal(q.value), true
	case "unit", "code":
		if q.unit == "" {
			return nil, false
		}
		return NewString(q.unit), true
	}
	return nil, false
}

// Compare orders two quantities. Incompatible units return
// ErrIncomparable so the comparison yields empty.
func (q Quantity) Compare(other Value) (int, error) {
	var o Quantity
	switch v := other.(type) {
	case Quantity:
		o = v
	case Integer:
		o = Quantity{value: decimal.NewFromInt(v.Value())}
	case Decimal:
		o = Quantity{value: v.Value()}
	default:
		return 0, incomparable("Quantity", other.Type())
	}

	if q.unit == o.unit || q.unit == "" || o.unit == "" {
		return q.value.Cmp(o.value), nil
	}
	n1, ok1 := ucum.Normalize(q.value, q.unit)
	n2, ok2 := ucum.Normalize(o.value, o.unit)
	if !ok1 || !ok2 || n1.Code != n2.Code {
		return 0, fmt.Errorf("%w: units %q and %q", ErrIncomparable, q.unit, o.unit)
	}
	return n1.Value.Cmp(n2.Value), nil
}

// ConvertTo converts the quantity to the target unit. Returns false
// when the units are not convertible.
func (q Quantity) ConvertTo(unit string) (Quantity, bool) {
	if q.unit == unit {
		return q, true
	}
	converted, ok := ucum.Convert(q.value, q.unit, unit)
	if !ok {
		return Quantity{}, false
	}
	return Quantity{value: converted, unit: unit}, true
}

// Add adds two quantities, converting the right operand when needed.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	rhs, ok := other.alignedTo(q)
	if !ok {
		return Quantity{}, fmt.Errorf("incompatible units: %s and %s", q.unit, other.unit)
	}
	unit := q.unit
	if unit == "" {
		unit = other.unit
	}
	return Quantity{value: q.value.Add(rhs.value), unit: unit}, nil
}

// Subtract subtracts two quantities, converting when needed.
func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	rhs, ok := other.alignedTo(q)
	if !ok {
		return Quantity{}, fmt.Errorf("incompatible units: %s and %s", q.unit, other.unit)
	}
	unit := q.unit
	if unit == "" {
		unit = other.unit
	}
	return Quantity{value: q.value.Sub(rhs.value), unit: unit}, nil
}

// alignedTo expresses other in q's unit when the units differ.
func (other Quantity) alignedTo(q Quantity) (Quantity, bool) {
	if q.unit == other.unit || q.unit == "" || other.unit == "" {
		return other, true
	}
	return other.ConvertTo(q.unit)
}

// Multiply multiplies the quantity by a number.
func (q Quantity) Multiply(factor decimal.Decimal) Quantity {
	return Quantity{value: q.value.Mul(factor), unit: q.unit}
}

// Divide divides the quantity by a number.
func (q Quantity) Divide(divisor decimal.Decimal) (Quantity, error) {
	if divisor.IsZero() {
		return Quantity{}, ErrDivisionByZero
	}
	return Quantity{value: q.value.DivRound(divisor, 16), unit: q.unit}, nil
}

// Negate returns the quantity with its value negated.
func (q Quantity) Negate() Quantity {
	return Quantity{value: q.value.Neg(), unit: q.unit}
}

// DurationValue reports the quantity as a whole-number calendar
// duration usable for date/time arithmetic.
func (q Quantity) DurationValue() (int64, string, bool) {
	if !q.value.IsInteger() {
		return 0, "", false
	}
	return q.value.IntPart(), q.unit, true
}
