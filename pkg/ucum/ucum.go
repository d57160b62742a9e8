// Package ucum provides UCUM (Unified Code for Units of Measure)
// normalization for FHIRPath quantity comparison and conversion.
//
// Units are reduced to a canonical base unit per dimension so that
// quantities in compatible units can be ordered and converted
// (e.g. 10 mg = 0.01 g). The table covers the units the comparison
// and conversion operators need, not full UCUM arithmetic.
//
// Reference: https://ucum.org/ucum.html
package ucum

import (
	"github.com/shopspring/decimal"
)

// Normalized is a quantity value reduced to its canonical unit.
type Normalized struct {
	Value decimal.Decimal // value in canonical units
	Code  string          // canonical unit code
}

// conversion defines how a unit maps to its canonical form.
type conversion struct {
	canonical string
	factor    decimal.Decimal
}

func factor(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// canonicalUnits maps UCUM codes to canonical conversions, organized
// by dimension.
var canonicalUnits = map[string]conversion{
	// mass (canonical: g)
	"kg":      {"g", factor("1000")},
	"g":       {"g", factor("1")},
	"mg":      {"g", factor("0.001")},
	"ug":      {"g", factor("0.000001")},
	"ng":      {"g", factor("0.000000001")},
	"pg":      {"g", factor("0.000000000001")},
	"[lb_av]": {"g", factor("453.59237")},
	"[oz_av]": {"g", factor("28.349523125")},

	// length (canonical: m)
	"km":     {"m", factor("1000")},
	"m":      {"m", factor("1")},
	"dm":     {"m", factor("0.1")},
	"cm":     {"m", factor("0.01")},
	"mm":     {"m", factor("0.001")},
	"um":     {"m", factor("0.000001")},
	"nm":     {"m", factor("0.000000001")},
	"[in_i]": {"m", factor("0.0254")},
	"[ft_i]": {"m", factor("0.3048")},
	"[yd_i]": {"m", factor("0.9144")},
	"[mi_i]": {"m", factor("1609.344")},

	// volume (canonical: L)
	"L":        {"L", factor("1")},
	"l":        {"L", factor("1")},
	"dL":       {"L", factor("0.1")},
	"dl":       {"L", factor("0.1")},
	"cL":       {"L", factor("0.01")},
	"cl":       {"L", factor("0.01")},
	"mL":       {"L", factor("0.001")},
	"ml":       {"L", factor("0.001")},
	"uL":       {"L", factor("0.000001")},
	"ul":       {"L", factor("0.000001")},
	"m3":       {"L", factor("1000")},
	"cm3":      {"L", factor("0.001")},
	"[gal_us]": {"L", factor("3.785411784")},
	"[qt_us]":  {"L", factor("0.946352946")},
	"[pt_us]":  {"L", factor("0.473176473")},
	"[foz_us]": {"L", factor("0.0295735295625")},

	// time (canonical: s)
	"a":   {"s", factor("31557600")}, // Julian year
	"mo":  {"s", factor("2629800")},  // mean month, 30.4375 d
	"wk":  {"s", factor("604800")},
	"d":   {"s", factor("86400")},
	"h":   {"s", factor("3600")},
	"min": {"s", factor("60")},
	"s":   {"s", factor("1")},
	"ms":  {"s", factor("0.001")},
	"us":  {"s", factor("0.000001")},
	"ns":  {"s", factor("0.000000001")},

	// frequency (canonical: Hz)
	"Hz":  {"Hz", factor("1")},
	"kHz": {"Hz", factor("1000")},
	"MHz": {"Hz", factor("1000000")},

	// pressure (canonical: Pa)
	"Pa":       {"Pa", factor("1")},
	"kPa":      {"Pa", factor("1000")},
	"bar":      {"Pa", factor("100000")},
	"mbar":     {"Pa", factor("100")},
	"mm[Hg]":   {"Pa", factor("133.322387415")},
	"atm":      {"Pa", factor("101325")},
	"cm[H2O]":  {"Pa", factor("98.0665")},
	"[psi]":    {"Pa", factor("6894.757293168")},
	"[in_i'H2O]": {"Pa", factor("249.0889")},

	// energy (canonical: J)
	"J":     {"J", factor("1")},
	"kJ":    {"J", factor("1000")},
	"cal":   {"J", factor("4.184")},
	"kcal":  {"J", factor("4184")},
	"[Cal]": {"J", factor("4184")},
}

// calendarWords maps the FHIRPath calendar duration keywords to their
// UCUM codes, used when parsing quantity literals like "5 days".
var calendarWords = map[string]string{
	"year": "a", "years": "a",
	"month": "mo", "months": "mo",
	"week": "wk", "weeks": "wk",
	"day": "d", "days": "d",
	"hour": "h", "hours": "h",
	"minute": "min", "minutes": "min",
	"second": "s", "seconds": "s",
	"millisecond": "ms", "milliseconds": "ms",
}

// FromCalendarWord normalizes a calendar keyword to its UCUM code.
// Unknown words are returned unchanged.
func FromCalendarWord(word string) string {
	if code, ok := calendarWords[word]; ok {
		return code
	}
	return word
}

// IsCalendarWord reports whether word is a FHIRPath calendar keyword.
func IsCalendarWord(word string) bool {
	_, ok := calendarWords[word]
	return ok
}

// Normalize reduces a value and unit to canonical form. Unknown units
// normalize to themselves with factor 1 so that identical unknown
// codes still compare, but different ones do not.
func Normalize(value decimal.Decimal, unit string) (Normalized, bool) {
	if conv, ok := canonicalUnits[unit]; ok {
		return Normalized{Value: value.Mul(conv.factor), Code: conv.canonical}, true
	}
	if unit == "" || unit == "1" {
		return Normalized{Value: value, Code: "1"}, true
	}
	return Normalized{Value: value, Code: unit}, false
}

// Comparable reports whether two units share a dimension.
func Comparable(unit1, unit2 string) bool {
	n1, _ := Normalize(decimal.Zero, unit1)
	n2, _ := Normalize(decimal.Zero, unit2)
	return n1.Code == n2.Code
}

// Convert expresses value (in fromUnit) in toUnit. Returns false when
// the units are not in the same dimension.
func Convert(value decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, bool) {
	if fromUnit == toUnit {
		return value, true
	}
	from, okFrom := canonicalUnits[fromUnit]
	to, okTo := canonicalUnits[toUnit]
	if !okFrom || !okTo || from.canonical != to.canonical {
		return decimal.Decimal{}, false
	}
	return value.Mul(from.factor).DivRound(to.factor, 16), true
}
