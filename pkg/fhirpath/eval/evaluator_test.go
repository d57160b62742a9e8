package eval_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/funcs"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/parser"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func run(t *testing.T, resource, expr string) types.Collection {
	t.Helper()
	result, err := runE(resource, expr)
	if err != nil {
		t.Fatalf("evaluate %q: %v", expr, err)
	}
	return result
}

func runE(resource, expr string) (types.Collection, error) {
	tree, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	ctx := eval.NewContext([]byte(resource))
	return eval.NewEvaluator(funcs.GetRegistry()).Evaluate(ctx, tree)
}

const patientJSON = `{
	"resourceType": "Patient",
	"id": "p1",
	"active": true,
	"name": [
		{"use": "official", "family": "Doe", "given": ["John", "James"]},
		{"use": "nickname", "given": ["Johnny"]}
	],
	"birthDate": "1974-12-25"
}`

func TestNavigation(t *testing.T) {
	t.Run("resource head and path", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.name.given")
		want := []string{"John", "James", "Johnny"}
		if got.Count() != len(want) {
			t.Fatalf("got %s", got)
		}
		for i, w := range want {
			if got[i].String() != w {
				t.Errorf("position %d: got %s, want %s", i, got[i], w)
			}
		}
	})

	t.Run("head identifier of the wrong type yields empty", func(t *testing.T) {
		got := run(t, patientJSON, "Observation.value")
		if !got.Empty() {
			t.Errorf("got %s", got)
		}
	})

	t.Run("unknown property yields empty not error", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.nosuchthing.more")
		if !got.Empty() {
			t.Errorf("got %s", got)
		}
	})

	t.Run("indexer", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.name[1].given[0]")
		if got.Count() != 1 || got[0].String() != "Johnny" {
			t.Errorf("got %s", got)
		}
		if !run(t, patientJSON, "Patient.name[9]").Empty() {
			t.Error("out-of-range index should be empty")
		}
	})

	t.Run("choice type resolution", func(t *testing.T) {
		obs := `{"resourceType":"Observation","valueString":"x"}`
		got := run(t, obs, "Observation.value")
		if got.Count() != 1 || got[0].String() != "x" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("quantity members", func(t *testing.T) {
		obs := `{"resourceType":"Observation","valueQuantity":{"value":185,"unit":"cm"}}`
		got := run(t, obs, "Observation.value.value")
		if got.Count() != 1 || got[0].String() != "185" {
			t.Errorf("got %s", got)
		}
	})
}

func TestLambdaScoping(t *testing.T) {
	t.Run("where binds this", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.name.where(use = 'official').family")
		if got.Count() != 1 || got[0].String() != "Doe" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("select projects and flattens", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.name.select(given)")
		if got.Count() != 3 {
			t.Errorf("got %s", got)
		}
	})

	t.Run("this inside where is the item", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.name.given.where($this = 'John')")
		if got.Count() != 1 || got[0].String() != "John" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("index enumerates", func(t *testing.T) {
		got := run(t, patientJSON, "Patient.name.given.select($index)")
		if got.Count() != 3 {
			t.Fatalf("got %s", got)
		}
		for i := range got {
			if got[i].(types.Integer).Value() != int64(i) {
				t.Errorf("position %d: got %s", i, got[i])
			}
		}
	})

	t.Run("aggregate threads total", func(t *testing.T) {
		got := run(t, `{}`, "(1 | 2 | 3).aggregate($this + $total, 0)")
		if got.Count() != 1 || got[0].(types.Integer).Value() != 6 {
			t.Errorf("got %s", got)
		}
	})

	t.Run("repeat reaches a fixed point", func(t *testing.T) {
		nested := `{"resourceType":"Questionnaire","item":[
			{"linkId":"a","item":[{"linkId":"a.1"},{"linkId":"a.2","item":[{"linkId":"a.2.1"}]}]},
			{"linkId":"b"}
		]}`
		got := run(t, nested, "Questionnaire.repeat(item).linkId")
		if got.Count() != 5 {
			t.Errorf("expected 5 linkIds, got %s", got)
		}
	})

	t.Run("errors in criteria are not swallowed", func(t *testing.T) {
		_, err := runE(patientJSON, "Patient.name.where(1 div 0 > 0)")
		if err == nil {
			t.Fatal("expected the predicate error to surface")
		}
	})
}

func TestOperatorsEndToEnd(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"(1 | 2 | 2 | 3)", "[1, 2, 3]"},
		{"1 + 2 * 3", "[7]"},
		{"'a' & {} & 'b'", "[ab]"},
		{"5 > 3", "[true]"},
		{"1 != 2", "[true]"},
		{"(1 | 2) contains 2", "[true]"},
		{"3 in (1 | 2)", "[false]"},
		{"true and false", "[false]"},
		{"{} or true", "[true]"},
		{"7 div 2", "[3]"},
		{"7 mod 2", "[1]"},
		{"1.0 = 1", "[true]"},
		{"'Hello' ~ 'hello'", "[true]"},
	}
	for _, tc := range cases {
		got := run(t, `{}`, tc.expr)
		if got.String() != tc.want {
			t.Errorf("%s = %s, want %s", tc.expr, got, tc.want)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	registry := eval.NewRegistry()
	calls := 0
	registry.Register(eval.FuncDef{
		Name: "bomb",
		Fn: func(_ *eval.Context, _ types.Collection, _ []types.Collection) (types.Collection, error) {
			calls++
			return types.TrueCollection, nil
		},
	})
	registry.Seal()

	evaluate := func(src string) {
		tree, err := parser.Parse(src)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := eval.NewEvaluator(registry).Evaluate(eval.NewContext([]byte(`{}`)), tree); err != nil {
			t.Fatal(err)
		}
	}

	evaluate("false and bomb()")
	if calls != 0 {
		t.Errorf("false and X evaluated X %d times", calls)
	}
	evaluate("true or bomb()")
	if calls != 0 {
		t.Errorf("true or X evaluated X %d times", calls)
	}
	evaluate("true and bomb()")
	if calls != 1 {
		t.Errorf("true and X should evaluate X once, got %d", calls)
	}
}

func TestIifLaziness(t *testing.T) {
	got := run(t, `{}`, "iif(true, 'a', 1 div 0)")
	if got.Count() != 1 || got[0].String() != "a" {
		t.Errorf("got %s", got)
	}
	if _, err := runE(`{}`, "iif(false, 'a', 1 div 0)"); err == nil {
		t.Error("taken branch error should surface")
	}
	if !run(t, `{}`, "iif(5, 'a', 'b')").Empty() {
		t.Error("non-boolean criterion should yield empty")
	}
}

func TestTypeOperators(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"5 is Integer", "[true]"},
		{"5 is Decimal", "[false]"},
		{"'x' is String", "[true]"},
		{"5 as Integer", "[5]"},
		{"('x' as Integer).empty()", "[true]"},
		{"@2014 is Date", "[true]"},
	}
	for _, tc := range cases {
		got := run(t, `{}`, tc.expr)
		if got.String() != tc.want {
			t.Errorf("%s = %s, want %s", tc.expr, got, tc.want)
		}
	}

	t.Run("ofType filters by subtype", func(t *testing.T) {
		bundle := `{"resourceType":"Bundle","entry":[
			{"resource":{"resourceType":"Patient","id":"p"}},
			{"resource":{"resourceType":"Observation","id":"o"}}
		]}`
		got := run(t, bundle, "Bundle.entry.resource.ofType(DomainResource).id")
		if got.Count() != 2 {
			t.Errorf("both resources derive from DomainResource, got %s", got)
		}
		got = run(t, bundle, "Bundle.entry.resource.ofType(Patient).id")
		if got.Count() != 1 || got[0].String() != "p" {
			t.Errorf("got %s", got)
		}
	})
}

func TestGuards(t *testing.T) {
	t.Run("depth limit", func(t *testing.T) {
		deep := strings.Repeat("-", 150) + "1"
		tree, err := parser.Parse(deep)
		if err != nil {
			t.Fatal(err)
		}
		ctx := eval.NewContext([]byte(`{}`))
		ctx.SetLimits(eval.Limits{MaxDepth: 100})
		_, err = eval.NewEvaluator(funcs.GetRegistry()).Evaluate(ctx, tree)
		var ee *eval.EvalError
		if !errors.As(err, &ee) || ee.Type != eval.ErrDepthExceeded {
			t.Errorf("expected depth exceeded, got %v", err)
		}
	})

	t.Run("cancellation", func(t *testing.T) {
		tree, err := parser.Parse("name.where(use = 'official')")
		if err != nil {
			t.Fatal(err)
		}
		goCtx, cancel := context.WithCancel(context.Background())
		cancel()
		ctx := eval.NewContext([]byte(patientJSON))
		ctx.SetGoContext(goCtx)
		_, err = eval.NewEvaluator(funcs.GetRegistry()).Evaluate(ctx, tree)
		var ee *eval.EvalError
		if !errors.As(err, &ee) || ee.Type != eval.ErrCancelled {
			t.Errorf("expected cancelled, got %v", err)
		}
	})

	t.Run("timeout maps to its own error type", func(t *testing.T) {
		tree, err := parser.Parse("name.where(use = 'official')")
		if err != nil {
			t.Fatal(err)
		}
		goCtx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)
		ctx := eval.NewContext([]byte(patientJSON))
		ctx.SetGoContext(goCtx)
		_, err = eval.NewEvaluator(funcs.GetRegistry()).Evaluate(ctx, tree)
		var ee *eval.EvalError
		if !errors.As(err, &ee) || ee.Type != eval.ErrTimeout {
			t.Errorf("expected timeout, got %v", err)
		}
	})
}

func TestVariables(t *testing.T) {
	t.Run("resource and context are preseeded", func(t *testing.T) {
		got := run(t, patientJSON, "%resource.id")
		if got.Count() != 1 || got[0].String() != "p1" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		tree, err := parser.Parse("%threshold + 1")
		if err != nil {
			t.Fatal(err)
		}
		ctx := eval.NewContext([]byte(`{}`))
		ctx.SetVariable("threshold", types.Collection{types.NewInteger(4)})
		got, err := eval.NewEvaluator(funcs.GetRegistry()).Evaluate(ctx, tree)
		if err != nil || got.String() != "[5]" {
			t.Errorf("got %s, %v", got, err)
		}
	})

	t.Run("unknown variable errors", func(t *testing.T) {
		_, err := runE(`{}`, "%nope")
		var ee *eval.EvalError
		if !errors.As(err, &ee) || ee.Type != eval.ErrInvalidPath {
			t.Errorf("expected invalid path, got %v", err)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("contained references", func(t *testing.T) {
		res := `{
			"resourceType": "MedicationRequest",
			"contained": [{"resourceType": "Medication", "id": "med1", "code": {"text": "aspirin"}}],
			"medicationReference": {"reference": "#med1"}
		}`
		got := run(t, res, "MedicationRequest.medication.resolve().code.text")
		if got.Count() != 1 || got[0].String() != "aspirin" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("bundle references by relative fullUrl suffix", func(t *testing.T) {
		bundle := `{"resourceType":"Bundle","entry":[
			{"fullUrl":"http://x.org/fhir/Patient/p1","resource":{"resourceType":"Patient","id":"p1","name":[{"family":"Doe"}]}},
			{"fullUrl":"http://x.org/fhir/Observation/o1","resource":{"resourceType":"Observation","subject":{"reference":"Patient/p1"}}}
		]}`
		got := run(t, bundle, "Bundle.entry.resource.ofType(Observation).subject.resolve().name.family")
		if got.Count() != 1 || got[0].String() != "Doe" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("unresolvable references are dropped", func(t *testing.T) {
		res := `{"resourceType":"Observation","subject":{"reference":"Patient/nowhere"}}`
		if got := run(t, res, "Observation.subject.resolve()"); !got.Empty() {
			t.Errorf("got %s", got)
		}
	})
}

// TestNoMutation evaluates the same expression twice against the same
// input and expects identical results.
func TestNoMutation(t *testing.T) {
	exprs := []string{
		"Patient.name.given",
		"Patient.name.where(use = 'official').family",
		"Patient.name.given.distinct()",
	}
	for _, expr := range exprs {
		first := run(t, patientJSON, expr)
		second := run(t, patientJSON, expr)
		ok, defined := first.EqualOrdered(second)
		if defined && !ok {
			t.Errorf("%s changed between evaluations: %s then %s", expr, first, second)
		}
	}
}

// TestFlatness checks the collection invariants over a spread of
// expressions: no empties, no nested collections.
func TestFlatness(t *testing.T) {
	exprs := []string{
		"Patient.name.given",
		"Patient.name.select(given)",
		"(1 | 2).combine(3 | 4)",
		"Patient.name",
	}
	for _, expr := range exprs {
		got := run(t, patientJSON, expr)
		for _, v := range got {
			if v == nil || v.IsEmpty() {
				t.Errorf("%s produced an empty element", expr)
			}
			if _, ok := v.(types.Collection); ok {
				t.Errorf("%s produced a nested collection", expr)
			}
		}
	}
}
