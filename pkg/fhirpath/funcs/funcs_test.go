package funcs

import (
	"testing"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func col(values ...types.Value) types.Collection {
	return types.NewCollection(values...)
}

func str(s string) types.Value { return types.NewString(s) }
func num(i int64) types.Value { return types.NewInteger(i) }
func dec(s string) types.Value { return types.MustDecimal(s) }

func call(t *testing.T, name string, input types.Collection, args ...types.Collection) types.Collection {
	t.Helper()
	fn, ok := Get(name)
	if !ok {
		t.Fatalf("function %s not registered", name)
	}
	ctx := eval.NewContext([]byte(`{}`))
	result, err := fn.Fn(ctx, input, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return result
}

func TestSubsettingFunctions(t *testing.T) {
	input := col(num(10), num(20), num(30))

	t.Run("first and last", func(t *testing.T) {
		if got := call(t, "first", input); got.String() != "[10]" {
			t.Errorf("first: %s", got)
		}
		if got := call(t, "last", input); got.String() != "[30]" {
			t.Errorf("last: %s", got)
		}
		if got := call(t, "first", col()); !got.Empty() {
			t.Errorf("first of empty: %s", got)
		}
	})

	t.Run("tail skip take", func(t *testing.T) {
		if got := call(t, "tail", input); got.String() != "[20, 30]" {
			t.Errorf("tail: %s", got)
		}
		if got := call(t, "skip", input, col(num(2))); got.String() != "[30]" {
			t.Errorf("skip 2: %s", got)
		}
		if got := call(t, "take", input, col(num(2))); got.String() != "[10, 20]" {
			t.Errorf("take 2: %s", got)
		}
	})

	t.Run("single errors on many", func(t *testing.T) {
		fn, _ := Get("single")
		ctx := eval.NewContext([]byte(`{}`))
		if _, err := fn.Fn(ctx, input, nil); err == nil {
			t.Error("single on 3 elements should error")
		}
		if got := call(t, "single", col(num(7))); got.String() != "[7]" {
			t.Errorf("single: %s", got)
		}
	})

	t.Run("set operations", func(t *testing.T) {
		other := col(num(20), num(40))
		if got := call(t, "intersect", input, other); got.String() != "[20]" {
			t.Errorf("intersect: %s", got)
		}
		if got := call(t, "exclude", input, other); got.String() != "[10, 30]" {
			t.Errorf("exclude: %s", got)
		}
		if got := call(t, "union", input, other); got.Count() != 4 {
			t.Errorf("union: %s", got)
		}
		if got := call(t, "combine", input, input); got.Count() != 6 {
			t.Errorf("combine: %s", got)
		}
	})
}

func TestExistenceFunctions(t *testing.T) {
	t.Run("empty and count", func(t *testing.T) {
		if got := call(t, "empty", col()); got.String() != "[true]" {
			t.Errorf("empty: %s", got)
		}
		if got := call(t, "count", col(num(1), num(1))); got.String() != "[2]" {
			t.Errorf("count: %s", got)
		}
	})

	t.Run("distinct and isDistinct", func(t *testing.T) {
		dup := col(num(1), num(2), num(1))
		if got := call(t, "distinct", dup); got.String() != "[1, 2]" {
			t.Errorf("distinct: %s", got)
		}
		if got := call(t, "isDistinct", dup); got.String() != "[false]" {
			t.Errorf("isDistinct: %s", got)
		}
	})

	t.Run("subsetOf and supersetOf", func(t *testing.T) {
		small := col(num(1))
		big := col(num(1), num(2))
		if got := call(t, "subsetOf", small, big); got.String() != "[true]" {
			t.Errorf("subsetOf: %s", got)
		}
		if got := call(t, "supersetOf", big, small); got.String() != "[true]" {
			t.Errorf("supersetOf: %s", got)
		}
	})

	t.Run("boolean aggregates", func(t *testing.T) {
		bools := col(types.NewBoolean(true), types.NewBoolean(false))
		if got := call(t, "allTrue", bools); got.String() != "[false]" {
			t.Errorf("allTrue: %s", got)
		}
		if got := call(t, "anyTrue", bools); got.String() != "[true]" {
			t.Errorf("anyTrue: %s", got)
		}
	})
}

func TestStringFunctions(t *testing.T) {
	hello := col(str("Hello World"))

	t.Run("length uses code points", func(t *testing.T) {
		if got := call(t, "length", col(str("héllo"))); got.String() != "[5]" {
			t.Errorf("length: %s", got)
		}
	})

	t.Run("startsWith endsWith contains", func(t *testing.T) {
		if got := call(t, "startsWith", hello, col(str("Hel"))); got.String() != "[true]" {
			t.Errorf("startsWith: %s", got)
		}
		if got := call(t, "endsWith", hello, col(str("rld"))); got.String() != "[true]" {
			t.Errorf("endsWith: %s", got)
		}
		if got := call(t, "contains", hello, col(str("lo W"))); got.String() != "[true]" {
			t.Errorf("contains: %s", got)
		}
	})

	t.Run("indexOf", func(t *testing.T) {
		if got := call(t, "indexOf", hello, col(str("World"))); got.String() != "[6]" {
			t.Errorf("indexOf: %s", got)
		}
		if got := call(t, "indexOf", hello, col(str(""))); got.String() != "[0]" {
			t.Errorf("indexOf empty needle: %s", got)
		}
		if got := call(t, "indexOf", hello, col(str("zz"))); got.String() != "[-1]" {
			t.Errorf("indexOf missing: %s", got)
		}
	})

	t.Run("substring", func(t *testing.T) {
		if got := call(t, "substring", hello, col(num(6)), col(num(5))); got.String() != "[World]" {
			t.Errorf("substring: %s", got)
		}
		if got := call(t, "substring", hello, col(num(99))); !got.Empty() {
			t.Errorf("out-of-range start: %s", got)
		}
		if got := call(t, "substring", hello, col(num(-1))); !got.Empty() {
			t.Errorf("negative start: %s", got)
		}
		if got := call(t, "substring", hello, col(num(0)), col(num(-2))); !got.Empty() {
			t.Errorf("negative length: %s", got)
		}
	})

	t.Run("replace split join", func(t *testing.T) {
		if got := call(t, "replace", hello, col(str("World")), col(str("Go"))); got.String() != "[Hello Go]" {
			t.Errorf("replace: %s", got)
		}
		if got := call(t, "split", col(str("a,b,c")), col(str(","))); got.Count() != 3 {
			t.Errorf("split: %s", got)
		}
		if got := call(t, "join", col(str("a"), str("b")), col(str("-"))); got.String() != "[a-b]" {
			t.Errorf("join: %s", got)
		}
	})

	t.Run("matches uses single-line mode", func(t *testing.T) {
		if got := call(t, "matches", col(str("a\nb")), col(str("a.b"))); got.String() != "[true]" {
			t.Errorf("dot should match newline: %s", got)
		}
	})

	t.Run("invalid regex errors", func(t *testing.T) {
		fn, _ := Get("matches")
		ctx := eval.NewContext([]byte(`{}`))
		if _, err := fn.Fn(ctx, col(str("x")), []types.Collection{col(str("["))}); err == nil {
			t.Error("invalid pattern should error")
		}
	})

	t.Run("escape and unescape", func(t *testing.T) {
		if got := call(t, "escape", col(str(`a"b`)), col(str("json"))); got.String() != `[a\"b]` {
			t.Errorf("escape json: %s", got)
		}
		if got := call(t, "unescape", col(str(`a\"b`)), col(str("json"))); got.String() != `[a"b]` {
			t.Errorf("unescape json: %s", got)
		}
		if got := call(t, "escape", col(str("<b>")), col(str("html"))); got.String() != "[&lt;b&gt;]" {
			t.Errorf("escape html: %s", got)
		}
	})

	t.Run("empty input propagates", func(t *testing.T) {
		if got := call(t, "upper", col()); !got.Empty() {
			t.Errorf("upper of empty: %s", got)
		}
	})
}

func TestMathFunctions(t *testing.T) {
	t.Run("abs keeps the variant", func(t *testing.T) {
		if got := call(t, "abs", col(num(-5))); got.String() != "[5]" {
			t.Errorf("abs int: %s", got)
		}
		if got := call(t, "abs", col(dec("-1.5"))); got.String() != "[1.5]" {
			t.Errorf("abs dec: %s", got)
		}
	})

	t.Run("rounding family", func(t *testing.T) {
		if got := call(t, "ceiling", col(dec("1.1"))); got.String() != "[2]" {
			t.Errorf("ceiling: %s", got)
		}
		if got := call(t, "floor", col(dec("-1.1"))); got.String() != "[-2]" {
			t.Errorf("floor: %s", got)
		}
		if got := call(t, "truncate", col(dec("-1.9"))); got.String() != "[-1]" {
			t.Errorf("truncate: %s", got)
		}
		if got := call(t, "round", col(dec("1.55")), col(num(1))); got.String() != "[1.6]" {
			t.Errorf("round: %s", got)
		}
	})

	t.Run("power", func(t *testing.T) {
		if got := call(t, "power", col(num(2)), col(num(10))); got.String() != "[1024]" {
			t.Errorf("2^10: %s", got)
		}
		if got := call(t, "power", col(num(-1)), col(dec("0.5"))); !got.Empty() {
			t.Errorf("sqrt(-1) should be empty: %s", got)
		}
	})

	t.Run("sqrt of negative is empty", func(t *testing.T) {
		if got := call(t, "sqrt", col(dec("-4"))); !got.Empty() {
			t.Errorf("got %s", got)
		}
	})

	t.Run("precision", func(t *testing.T) {
		if got := call(t, "precision", col(dec("1.58700"))); got.String() != "[5]" {
			t.Errorf("decimal precision: %s", got)
		}
		d, _ := types.NewDate("2014")
		if got := call(t, "precision", col(d)); got.String() != "[4]" {
			t.Errorf("date precision: %s", got)
		}
		tm, _ := types.NewTime("10:30")
		if got := call(t, "precision", col(tm)); got.String() != "[5]" {
			t.Errorf("time precision: %s", got)
		}
	})

	t.Run("boundaries", func(t *testing.T) {
		if got := call(t, "highBoundary", col(dec("1.587")), col(num(2))); got.String() != "[1.59]" {
			t.Errorf("highBoundary: %s", got)
		}
		if got := call(t, "lowBoundary", col(dec("1.587")), col(num(2))); got.String() != "[1.58]" {
			t.Errorf("lowBoundary: %s", got)
		}
		d, _ := types.NewDate("2014-02")
		if got := call(t, "lowBoundary", col(d)); got.String() != "[2014-02-01]" {
			t.Errorf("date lowBoundary: %s", got)
		}
		if got := call(t, "highBoundary", col(d)); got.String() != "[2014-02-28]" {
			t.Errorf("date highBoundary: %s", got)
		}
		if got := call(t, "highBoundary", col(dec("1.5")), col(num(29))); !got.Empty() {
			t.Errorf("beyond 28 digits should be empty: %s", got)
		}
	})
}

func TestConversionFunctions(t *testing.T) {
	t.Run("toInteger", func(t *testing.T) {
		if got := call(t, "toInteger", col(str("42"))); got.String() != "[42]" {
			t.Errorf("got %s", got)
		}
		if got := call(t, "toInteger", col(str("abc"))); !got.Empty() {
			t.Errorf("got %s", got)
		}
	})

	t.Run("toDecimal and toString", func(t *testing.T) {
		if got := call(t, "toDecimal", col(str("3.14"))); got.String() != "[3.14]" {
			t.Errorf("got %s", got)
		}
		if got := call(t, "toString", col(num(7))); got.String() != "[7]" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("toBoolean accepts the spelled forms", func(t *testing.T) {
		if got := call(t, "toBoolean", col(str("Yes"))); got.String() != "[true]" {
			t.Errorf("got %s", got)
		}
		if got := call(t, "toBoolean", col(num(0))); got.String() != "[false]" {
			t.Errorf("got %s", got)
		}
		if got := call(t, "toBoolean", col(num(7))); !got.Empty() {
			t.Errorf("got %s", got)
		}
	})

	t.Run("convertsTo reports without converting", func(t *testing.T) {
		if got := call(t, "convertsToInteger", col(str("42"))); got.String() != "[true]" {
			t.Errorf("got %s", got)
		}
		if got := call(t, "convertsToDate", col(str("not a date"))); got.String() != "[false]" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("temporal conversions", func(t *testing.T) {
		if got := call(t, "toDate", col(str("2014-05-21"))); got.String() != "[2014-05-21]" {
			t.Errorf("got %s", got)
		}
		if got := call(t, "toTime", col(str("14:30"))); got.String() != "[14:30]" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("toQuantity", func(t *testing.T) {
		if got := call(t, "toQuantity", col(str("5 'mg'"))); got.String() != "[5 'mg']" {
			t.Errorf("got %s", got)
		}
	})
}

func TestRegistryMetadata(t *testing.T) {
	t.Run("lambda positions are marked", func(t *testing.T) {
		for _, name := range []string{"where", "select", "all", "exists", "repeat", "aggregate"} {
			def, ok := Get(name)
			if !ok {
				t.Fatalf("%s missing", name)
			}
			if !def.IsLambdaArg(0) {
				t.Errorf("%s argument 0 should be a lambda position", name)
			}
			if def.LambdaFn == nil {
				t.Errorf("%s should have a lambda implementation", name)
			}
		}
	})

	t.Run("impure functions are marked", func(t *testing.T) {
		for _, name := range []string{"now", "today", "timeOfDay", "trace"} {
			def, ok := Get(name)
			if !ok {
				t.Fatalf("%s missing", name)
			}
			if def.Pure {
				t.Errorf("%s should not be pure", name)
			}
		}
	})

	t.Run("registry is sealed", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("registering on the sealed registry should panic")
			}
		}()
		GetRegistry().Register(FuncDef{Name: "late"})
	})
}
