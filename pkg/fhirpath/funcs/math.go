package funcs

import (
	"errors"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "abs",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       fnAbs,
	})
	Register(FuncDef{
		Name:     "ceiling",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn: numericFn("ceiling", func(d types.Decimal) (types.Value, error) {
			return d.Ceiling(), nil
		}),
	})
	Register(FuncDef{
		Name:     "floor",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn: numericFn("floor", func(d types.Decimal) (types.Value, error) {
			return d.Floor(), nil
		}),
	})
	Register(FuncDef{
		Name:     "truncate",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn: numericFn("truncate", func(d types.Decimal) (types.Value, error) {
			return d.Truncate(), nil
		}),
	})
	Register(FuncDef{
		Name:     "round",
		MaxArgs:  1,
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       fnRound,
	})
	Register(FuncDef{
		Name:     "sqrt",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn: numericFn("sqrt", func(d types.Decimal) (types.Value, error) {
			out, ok := d.Sqrt()
			if !ok {
				return nil, nil
			}
			return out, nil
		}),
	})
	Register(FuncDef{
		Name:     "exp",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn: numericFn("exp", func(d types.Decimal) (types.Value, error) {
			return d.Exp(), nil
		}),
	})
	Register(FuncDef{
		Name:     "ln",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn: numericFn("ln", func(d types.Decimal) (types.Value, error) {
			out, ok := d.Ln()
			if !ok {
				return nil, nil
			}
			return out, nil
		}),
	})
	Register(FuncDef{
		Name:     "log",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       fnLog,
	})
	Register(FuncDef{
		Name:     "power",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       fnPower,
	})
	Register(FuncDef{
		Name:     "precision",
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       fnPrecision,
	})
	Register(FuncDef{
		Name:     "lowBoundary",
		MaxArgs:  1,
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       boundaryFn(false),
	})
	Register(FuncDef{
		Name:     "highBoundary",
		MaxArgs:  1,
		Category: eval.CategoryMath,
		Pure:     true,
		Fn:       boundaryFn(true),
	})
}

// numericInput reduces the input to a singleton decimal, remembering
// whether it started as an integer.
func numericInput(name string, input types.Collection) (types.Decimal, bool, bool, error) {
	if input.Empty() {
		return types.Decimal{}, false, false, nil
	}
	if len(input) != 1 {
		return types.Decimal{}, false, false, eval.SingletonError(len(input))
	}
	switch v := input[0].(type) {
	case types.Integer:
		return v.ToDecimal(), true, true, nil
	case types.Decimal:
		return v, false, true, nil
	case types.Quantity:
		return types.NewDecimalFromDecimal(v.Value()), false, true, nil
	}
	return types.Decimal{}, false, false, eval.TypeMismatchError("Integer or Decimal", input[0].Type(), name)
}

// numericFn adapts a decimal operation; a nil result maps to empty.
func numericFn(name string, op func(types.Decimal) (types.Value, error)) eval.FuncImpl {
	return func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
		d, _, ok, err := numericInput(name, input)
		if err != nil || !ok {
			return types.EmptyCollection, err
		}
		v, err := op(d)
		if err != nil {
			return nil, err
		}
		return types.Singleton(v), nil
	}
}

// fnAbs preserves the input variant: integers stay integers,
// quantities keep their unit.
func fnAbs(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}
	switch v := input[0].(type) {
	case types.Integer:
		out, err := v.Abs()
		if err != nil {
			if errors.Is(err, types.ErrOverflow) {
				return nil, eval.ArithmeticError(err)
			}
			return nil, err
		}
		return types.Collection{out}, nil
	case types.Decimal:
		return types.Collection{v.Abs()}, nil
	case types.Quantity:
		if v.Value().IsNegative() {
			return types.Collection{v.Negate()}, nil
		}
		return input, nil
	}
	return nil, eval.TypeMismatchError("Integer, Decimal or Quantity", input[0].Type(), "abs")
}

func fnRound(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	d, _, ok, err := numericInput("round", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	var precision int64
	if len(args) == 1 {
		p, present, err := integerArg("round", args[0])
		if err != nil {
			return nil, err
		}
		if !present {
			return types.EmptyCollection, nil
		}
		if p < 0 {
			return nil, eval.NewEvalError(eval.ErrInvalidArguments, "round() precision must be >= 0")
		}
		precision = p
	}
	return types.Collection{d.Round(int32(precision))}, nil
}

func fnLog(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	d, _, ok, err := numericInput("log", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	base, _, ok, err := numericInput("log", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	out, valid := d.Log(base)
	if !valid {
		return types.EmptyCollection, nil
	}
	return types.Collection{out}, nil
}

// fnPower returns base^exponent. Integer inputs with an integer result
// stay integers; a result outside the reals yields empty.
func fnPower(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	base, baseInt, ok, err := numericInput("power", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	exp, expInt, ok, err := numericInput("power", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	result, valid := base.Power(exp)
	if !valid {
		return types.EmptyCollection, nil
	}
	if baseInt && expInt {
		if i, isInt := result.ToInteger(); isInt {
			return types.Collection{i}, nil
		}
	}
	return types.Collection{result}, nil
}

// fnPrecision reports decimal places for numerics and the canonical
// literal length for temporals.
func fnPrecision(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
	if input.Empty() {
		return types.EmptyCollection, nil
	}
	if len(input) != 1 {
		return nil, eval.SingletonError(len(input))
	}
	var p int
	switch v := input[0].(type) {
	case types.Decimal:
		p = v.Precision()
	case types.Integer:
		p = 0
	case types.Date:
		p = v.CanonicalLength()
	case types.DateTime:
		p = v.CanonicalLength()
	case types.Time:
		p = v.CanonicalLength()
	default:
		return nil, eval.TypeMismatchError("Decimal, Integer, Date, DateTime or Time", input[0].Type(), "precision")
	}
	return types.Collection{types.NewInteger(int64(p))}, nil
}

// boundaryFn builds lowBoundary/highBoundary: the inclusive range
// bound induced by the input's implicit precision, expressed at the
// target precision. Temporal inputs fill missing fields with their
// minimum or maximum.
func boundaryFn(high bool) eval.FuncImpl {
	name := "lowBoundary"
	if high {
		name = "highBoundary"
	}
	return func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
		if input.Empty() {
			return types.EmptyCollection, nil
		}
		if len(input) != 1 {
			return nil, eval.SingletonError(len(input))
		}

		precision := -1
		if len(args) == 1 {
			p, present, err := integerArg(name, args[0])
			if err != nil {
				return nil, err
			}
			if !present {
				return types.EmptyCollection, nil
			}
			precision = int(p)
		}

		switch v := input[0].(type) {
		case types.Decimal:
			return decimalBoundary(v, precision, high), nil
		case types.Integer:
			return decimalBoundary(v.ToDecimal(), precision, high), nil
		case types.Quantity:
			bound := decimalBoundary(types.NewDecimalFromDecimal(v.Value()), precision, high)
			if bound.Empty() {
				return bound, nil
			}
			d := bound[0].(types.Decimal)
			return types.Collection{types.NewQuantityFromDecimal(d.Value(), v.Unit())}, nil
		case types.Date:
			if high {
				return types.Collection{v.HighBoundary()}, nil
			}
			return types.Collection{v.LowBoundary()}, nil
		case types.DateTime:
			if high {
				return types.Collection{v.HighBoundary()}, nil
			}
			return types.Collection{v.LowBoundary()}, nil
		case types.Time:
			if high {
				return types.Collection{v.HighBoundary()}, nil
			}
			return types.Collection{v.LowBoundary()}, nil
		}
		return nil, eval.TypeMismatchError("numeric or temporal", input[0].Type(), name)
	}
}

func decimalBoundary(d types.Decimal, precision int, high bool) types.Collection {
	if precision < 0 {
		// Default boundary precision for decimals.
		precision = 8
	}
	var bound types.Decimal
	var ok bool
	if high {
		bound, ok = d.HighBoundary(precision)
	} else {
		bound, ok = d.LowBoundary(precision)
	}
	if !ok || !bound.WithinRepresentationalLimit() {
		return types.EmptyCollection
	}
	return types.Collection{bound}
}
