package types

import (
	"errors"
	"math"
	"testing"
)

func TestCollectionInvariants(t *testing.T) {
	t.Run("flattens nested collections", func(t *testing.T) {
		inner := Collection{NewInteger(2), NewInteger(3)}
		c := NewCollection(NewInteger(1), inner, NewInteger(4))
		if c.Count() != 4 {
			t.Fatalf("expected 4 elements, got %d", c.Count())
		}
		for _, v := range c {
			if _, ok := v.(Collection); ok {
				t.Error("nested collection survived construction")
			}
		}
	})

	t.Run("drops nil and empty", func(t *testing.T) {
		c := NewCollection(nil, NewInteger(1), Collection{}, NewInteger(2))
		if c.Count() != 2 {
			t.Fatalf("expected 2 elements, got %d", c.Count())
		}
	})

	t.Run("union dedups with first-occurrence order", func(t *testing.T) {
		a := Collection{NewInteger(3), NewInteger(1), NewInteger(3)}
		b := Collection{NewInteger(1), NewInteger(2)}
		u := a.Union(b)
		want := []int64{3, 1, 2}
		if u.Count() != len(want) {
			t.Fatalf("expected %d elements, got %s", len(want), u)
		}
		for i, w := range want {
			if u[i].(Integer).Value() != w {
				t.Errorf("position %d: expected %d, got %s", i, w, u[i])
			}
		}
	})

	t.Run("union with self equals distinct", func(t *testing.T) {
		a := Collection{NewInteger(1), NewInteger(2), NewInteger(2)}
		if !a.Union(a).Equal(a.Distinct()) {
			t.Errorf("a | a = %s, distinct = %s", a.Union(a), a.Distinct())
		}
	})

	t.Run("combine keeps duplicates", func(t *testing.T) {
		a := Collection{NewInteger(1)}
		if a.Combine(a).Count() != 2 {
			t.Error("combine dropped a duplicate")
		}
	})
}

func TestEqualityAndEquivalence(t *testing.T) {
	t.Run("integer widens to decimal", func(t *testing.T) {
		if !NewInteger(1).Equal(MustDecimal("1.0")) {
			t.Error("1 = 1.0 should hold")
		}
		if !MustDecimal("1.0").Equal(NewInteger(1)) {
			t.Error("1.0 = 1 should hold")
		}
	})

	t.Run("string equivalence normalizes case and whitespace", func(t *testing.T) {
		a := NewString("  Hello\t World ")
		b := NewString("hello world")
		if a.Equal(b) {
			t.Error("strings should not be equal")
		}
		if !a.Equivalent(b) {
			t.Error("strings should be equivalent")
		}
	})

	t.Run("decimal equivalence uses coarser scale", func(t *testing.T) {
		if !MustDecimal("1.00").Equivalent(MustDecimal("1.0")) {
			t.Error("1.00 ~ 1.0 should hold")
		}
		if !MustDecimal("1.587").Equivalent(NewInteger(2)) {
			t.Error("1.587 ~ 2 should hold at scale 0")
		}
		if MustDecimal("1.54").Equivalent(MustDecimal("1.6")) {
			t.Error("1.54 ~ 1.6 should not hold at scale 1")
		}
	})

	t.Run("equality implies equivalence", func(t *testing.T) {
		values := []Value{
			NewInteger(5), MustDecimal("2.50"), NewString("abc"),
			NewBoolean(true), mustDate(t, "2014-05-01"),
		}
		for _, a := range values {
			for _, b := range values {
				if a.Equal(b) && !a.Equivalent(b) {
					t.Errorf("%s = %s but not ~", a, b)
				}
			}
		}
	})

	t.Run("equivalence is reflexive and symmetric", func(t *testing.T) {
		values := []Value{NewInteger(1), NewString("A b"), MustDecimal("3.14")}
		for _, v := range values {
			if !v.Equivalent(v) {
				t.Errorf("%s not equivalent to itself", v)
			}
		}
		a, b := NewString("X Y"), NewString("x  y")
		if a.Equivalent(b) != b.Equivalent(a) {
			t.Error("equivalence is not symmetric")
		}
	})
}

func TestIntegerOverflow(t *testing.T) {
	t.Run("add overflows", func(t *testing.T) {
		_, err := NewInteger(math.MaxInt64).Add(NewInteger(1))
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})
	t.Run("multiply overflows", func(t *testing.T) {
		_, err := NewInteger(math.MaxInt64).Multiply(NewInteger(2))
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})
	t.Run("negate min value overflows", func(t *testing.T) {
		_, err := NewInteger(math.MinInt64).Negate()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})
	t.Run("div by zero", func(t *testing.T) {
		_, err := NewInteger(1).Div(NewInteger(0))
		if !errors.Is(err, ErrDivisionByZero) {
			t.Errorf("expected division by zero, got %v", err)
		}
	})
	t.Run("normal arithmetic survives", func(t *testing.T) {
		sum, err := NewInteger(2).Add(NewInteger(3))
		if err != nil || sum.Value() != 5 {
			t.Errorf("2+3: got %v, %v", sum, err)
		}
	})
}

func TestDecimalBoundaries(t *testing.T) {
	t.Run("high boundary of 1.587 at 2", func(t *testing.T) {
		d := MustDecimal("1.587")
		high, ok := d.HighBoundary(2)
		if !ok || high.String() != "1.59" {
			t.Errorf("expected 1.59, got %s (ok=%t)", high, ok)
		}
	})
	t.Run("low boundary of 1.587 at 2", func(t *testing.T) {
		d := MustDecimal("1.587")
		low, ok := d.LowBoundary(2)
		if !ok || low.String() != "1.58" {
			t.Errorf("expected 1.58, got %s (ok=%t)", low, ok)
		}
	})
	t.Run("bounds bracket the value", func(t *testing.T) {
		for _, s := range []string{"0.1", "1.587", "-2.4", "100", "0.999"} {
			d := MustDecimal(s)
			low, _ := d.LowBoundary(8)
			high, _ := d.HighBoundary(8)
			if c, _ := low.Compare(d); c > 0 {
				t.Errorf("lowBoundary(%s) = %s exceeds the value", s, low)
			}
			if c, _ := high.Compare(d); c < 0 {
				t.Errorf("highBoundary(%s) = %s is below the value", s, high)
			}
		}
	})
	t.Run("precision beyond representation yields none", func(t *testing.T) {
		if _, ok := MustDecimal("1.5").HighBoundary(29); ok {
			t.Error("expected no boundary above 28 digits")
		}
	})
}

func TestQuantityComparison(t *testing.T) {
	q := func(s string) Quantity {
		v, err := NewQuantity(s)
		if err != nil {
			t.Fatalf("NewQuantity(%s): %v", s, err)
		}
		return v
	}

	t.Run("convertible units compare", func(t *testing.T) {
		c, err := q("1 'kg'").Compare(q("1000 'g'"))
		if err != nil || c != 0 {
			t.Errorf("1 kg vs 1000 g: got %d, %v", c, err)
		}
		c, err = q("2 'm'").Compare(q("150 'cm'"))
		if err != nil || c != 1 {
			t.Errorf("2 m vs 150 cm: got %d, %v", c, err)
		}
	})

	t.Run("incompatible units are incomparable", func(t *testing.T) {
		_, err := q("1 'kg'").Compare(q("1 'm'"))
		if !errors.Is(err, ErrIncomparable) {
			t.Errorf("expected incomparable, got %v", err)
		}
	})

	t.Run("calendar word literal normalizes to ucum", func(t *testing.T) {
		if q("5 days").Unit() != "d" {
			t.Errorf("expected unit d, got %q", q("5 days").Unit())
		}
	})

	t.Run("equality across units", func(t *testing.T) {
		if !q("10 'mg'").Equal(q("0.01 'g'")) {
			t.Error("10 mg = 0.01 g should hold")
		}
	})
}

func TestMetaPathArithmetic(t *testing.T) {
	root := Meta{ResourceType: "Patient", Path: "Patient"}
	name0 := root.Child("name").Element(0)
	given1 := name0.Child("given").Element(1)
	if given1.Path != "Patient.name[0].given[1]" {
		t.Errorf("unexpected canonical path %q", given1.Path)
	}
	if given1.Index != 1 {
		t.Errorf("expected index 1, got %d", given1.Index)
	}
	if name0.Parent() != "Patient.name" {
		t.Errorf("unexpected parent %q", name0.Parent())
	}
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := NewDate(s)
	if err != nil {
		t.Fatalf("NewDate(%s): %v", s, err)
	}
	return d
}
