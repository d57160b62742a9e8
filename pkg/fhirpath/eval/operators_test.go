package eval

import (
	"errors"
	"testing"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func TestThreeValuedLogic(t *testing.T) {
	tr := types.TrueCollection
	fa := types.FalseCollection
	em := types.EmptyCollection

	name := func(c types.Collection) string {
		switch {
		case c.Empty():
			return "empty"
		case c[0].(types.Boolean).Bool():
			return "true"
		default:
			return "false"
		}
	}

	type row struct{ l, r, want types.Collection }

	t.Run("and", func(t *testing.T) {
		rows := []row{
			{tr, tr, tr}, {tr, fa, fa}, {fa, tr, fa}, {fa, fa, fa},
			{tr, em, em}, {em, tr, em}, {fa, em, fa}, {em, fa, fa}, {em, em, em},
		}
		for _, r := range rows {
			got, err := And(r.l, r.r)
			if err != nil {
				t.Fatal(err)
			}
			if name(got) != name(r.want) {
				t.Errorf("%s and %s = %s, want %s", name(r.l), name(r.r), name(got), name(r.want))
			}
		}
	})

	t.Run("or", func(t *testing.T) {
		rows := []row{
			{tr, tr, tr}, {tr, fa, tr}, {fa, tr, tr}, {fa, fa, fa},
			{tr, em, tr}, {em, tr, tr}, {fa, em, em}, {em, fa, em}, {em, em, em},
		}
		for _, r := range rows {
			got, err := Or(r.l, r.r)
			if err != nil {
				t.Fatal(err)
			}
			if name(got) != name(r.want) {
				t.Errorf("%s or %s = %s, want %s", name(r.l), name(r.r), name(got), name(r.want))
			}
		}
	})

	t.Run("xor", func(t *testing.T) {
		rows := []row{
			{tr, tr, fa}, {tr, fa, tr}, {fa, tr, tr}, {fa, fa, fa},
			{tr, em, em}, {em, fa, em}, {em, em, em},
		}
		for _, r := range rows {
			got, err := Xor(r.l, r.r)
			if err != nil {
				t.Fatal(err)
			}
			if name(got) != name(r.want) {
				t.Errorf("%s xor %s = %s, want %s", name(r.l), name(r.r), name(got), name(r.want))
			}
		}
	})

	t.Run("implies", func(t *testing.T) {
		rows := []row{
			{tr, tr, tr}, {tr, fa, fa}, {fa, tr, tr}, {fa, fa, tr},
			{fa, em, tr}, {em, tr, tr}, {em, fa, em}, {tr, em, em}, {em, em, em},
		}
		for _, r := range rows {
			got, err := Implies(r.l, r.r)
			if err != nil {
				t.Fatal(err)
			}
			if name(got) != name(r.want) {
				t.Errorf("%s implies %s = %s, want %s", name(r.l), name(r.r), name(got), name(r.want))
			}
		}
	})
}

func TestArithmeticOperators(t *testing.T) {
	t.Run("integer add", func(t *testing.T) {
		v, err := Add(types.NewInteger(2), types.NewInteger(3))
		if err != nil || v.(types.Integer).Value() != 5 {
			t.Errorf("2+3: %v, %v", v, err)
		}
	})

	t.Run("mixed numeric widens", func(t *testing.T) {
		v, err := Add(types.NewInteger(1), types.MustDecimal("0.5"))
		if err != nil || v.String() != "1.5" {
			t.Errorf("1+0.5: %v, %v", v, err)
		}
	})

	t.Run("string plus string", func(t *testing.T) {
		v, err := Add(types.NewString("ab"), types.NewString("cd"))
		if err != nil || v.String() != "abcd" {
			t.Errorf("'ab'+'cd': %v, %v", v, err)
		}
	})

	t.Run("incompatible add errors", func(t *testing.T) {
		if _, err := Add(types.NewString("a"), types.NewInteger(1)); err == nil {
			t.Error("string + integer should error")
		}
	})

	t.Run("decimal division by zero is empty", func(t *testing.T) {
		v, err := Divide(types.NewInteger(1), types.NewInteger(0))
		if err != nil || v != nil {
			t.Errorf("1/0: %v, %v", v, err)
		}
	})

	t.Run("div by zero errors", func(t *testing.T) {
		_, err := IntegerDivide(types.NewInteger(1), types.NewInteger(0))
		var ee *EvalError
		if !errors.As(err, &ee) || ee.Type != ErrDivisionByZero {
			t.Errorf("1 div 0: %v", err)
		}
	})

	t.Run("mod", func(t *testing.T) {
		v, err := Modulo(types.NewInteger(7), types.NewInteger(3))
		if err != nil || v.(types.Integer).Value() != 1 {
			t.Errorf("7 mod 3: %v, %v", v, err)
		}
	})

	t.Run("date plus duration", func(t *testing.T) {
		d, _ := types.NewDate("2014-05-21")
		q, _ := types.NewQuantity("3 days")
		v, err := Add(d, q)
		if err != nil || v.String() != "2014-05-24" {
			t.Errorf("date+3d: %v, %v", v, err)
		}
	})
}

func TestComparisonOperators(t *testing.T) {
	t.Run("numeric ordering", func(t *testing.T) {
		got, err := LessThan(types.NewInteger(1), types.MustDecimal("1.5"))
		if err != nil || !got[0].(types.Boolean).Bool() {
			t.Errorf("1 < 1.5: %v, %v", got, err)
		}
	})

	t.Run("incomparable types yield empty", func(t *testing.T) {
		got, err := LessThan(types.NewInteger(1), types.NewString("a"))
		if err != nil || !got.Empty() {
			t.Errorf("1 < 'a': %v, %v", got, err)
		}
	})

	t.Run("ambiguous temporal precision yields empty", func(t *testing.T) {
		a, _ := types.NewDate("2014")
		b, _ := types.NewDate("2014-05")
		got, err := GreaterThan(a, b)
		if err != nil || !got.Empty() {
			t.Errorf("@2014 > @2014-05: %v, %v", got, err)
		}
	})

	t.Run("incompatible units yield empty", func(t *testing.T) {
		kg, _ := types.NewQuantity("1 'kg'")
		m, _ := types.NewQuantity("1 'm'")
		got, err := LessThan(kg, m)
		if err != nil || !got.Empty() {
			t.Errorf("1kg < 1m: %v, %v", got, err)
		}
	})
}

func TestMembershipAndUnion(t *testing.T) {
	one := types.Collection{types.NewInteger(1)}
	list := types.Collection{types.NewInteger(1), types.NewInteger(2)}

	t.Run("in", func(t *testing.T) {
		got, err := In(one, list)
		if err != nil || !got[0].(types.Boolean).Bool() {
			t.Errorf("1 in [1,2]: %v, %v", got, err)
		}
	})

	t.Run("empty in yields empty", func(t *testing.T) {
		got, err := In(types.EmptyCollection, list)
		if err != nil || !got.Empty() {
			t.Errorf("{} in [1,2]: %v, %v", got, err)
		}
	})

	t.Run("contains", func(t *testing.T) {
		got, err := Contains(list, one)
		if err != nil || !got[0].(types.Boolean).Bool() {
			t.Errorf("[1,2] contains 1: %v, %v", got, err)
		}
	})

	t.Run("concatenate treats empty as empty string", func(t *testing.T) {
		got, err := Concatenate(types.EmptyCollection, types.Collection{types.NewString("x")})
		if err != nil || got[0].String() != "x" {
			t.Errorf("{} & 'x': %v, %v", got, err)
		}
	})
}
