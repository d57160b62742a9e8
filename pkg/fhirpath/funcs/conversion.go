package funcs

import (
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	conversions := []struct {
		name    string
		convert func(types.Value) (types.Value, bool)
	}{
		{"toBoolean", toBoolean},
		{"toInteger", toInteger},
		{"toDecimal", toDecimal},
		{"toString", toString},
		{"toDate", toDate},
		{"toDateTime", toDateTime},
		{"toTime", toTime},
		{"toQuantity", toQuantity},
	}
	for _, c := range conversions {
		convert := c.convert
		Register(FuncDef{
			Name:     c.name,
			Category: eval.CategoryConversion,
			Pure:     true,
			Fn:       conversionFn(convert),
		})
		Register(FuncDef{
			Name:     "convertsTo" + strings.TrimPrefix(c.name, "to"),
			Category: eval.CategoryConversion,
			Pure:     true,
			Fn:       convertsToFn(convert),
		})
	}
}

// conversionFn adapts a conversion: empty in, empty out; a value that
// does not convert yields empty per the FHIRPath conversion rules.
func conversionFn(convert func(types.Value) (types.Value, bool)) eval.FuncImpl {
	return func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
		if input.Empty() {
			return types.EmptyCollection, nil
		}
		if len(input) != 1 {
			return nil, eval.SingletonError(len(input))
		}
		if out, ok := convert(input[0]); ok {
			return types.Collection{out}, nil
		}
		return types.EmptyCollection, nil
	}
}

func convertsToFn(convert func(types.Value) (types.Value, bool)) eval.FuncImpl {
	return func(_ *eval.Context, input types.Collection, _ []types.Collection) (types.Collection, error) {
		if input.Empty() {
			return types.EmptyCollection, nil
		}
		if len(input) != 1 {
			return nil, eval.SingletonError(len(input))
		}
		_, ok := convert(input[0])
		return types.BoolCollection(ok), nil
	}
}

func toBoolean(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.Boolean:
		return val, true
	case types.Integer:
		switch val.Value() {
		case 0:
			return types.NewBoolean(false), true
		case 1:
			return types.NewBoolean(true), true
		}
	case types.Decimal:
		if val.Equal(types.NewDecimalFromInt(0)) {
			return types.NewBoolean(false), true
		}
		if val.Equal(types.NewDecimalFromInt(1)) {
			return types.NewBoolean(true), true
		}
	case types.String:
		switch strings.ToLower(val.Value()) {
		case "true", "t", "yes", "y", "1", "1.0":
			return types.NewBoolean(true), true
		case "false", "f", "no", "n", "0", "0.0":
			return types.NewBoolean(false), true
		}
	}
	return nil, false
}

func toInteger(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.Integer:
		return val, true
	case types.Boolean:
		if val.Bool() {
			return types.NewInteger(1), true
		}
		return types.NewInteger(0), true
	case types.String:
		parsed, err := types.ParseDecimalOrInteger(val.Value())
		if err != nil {
			return nil, false
		}
		if i, ok := parsed.(types.Integer); ok {
			return i, true
		}
	}
	return nil, false
}

func toDecimal(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.Decimal:
		return val, true
	case types.Integer:
		return val.ToDecimal(), true
	case types.Boolean:
		if val.Bool() {
			return types.NewDecimalFromInt(1), true
		}
		return types.NewDecimalFromInt(0), true
	case types.String:
		d, err := types.NewDecimal(strings.TrimSpace(val.Value()))
		if err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func toString(v types.Value) (types.Value, bool) {
	switch v.(type) {
	case *types.ObjectValue, types.Collection:
		return nil, false
	}
	return types.NewString(v.String()), true
}

func toDate(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.Date:
		return val, true
	case types.DateTime:
		return val.ToDate(), true
	case types.String:
		d, err := types.NewDate(val.Value())
		if err != nil {
			if dt, dtErr := types.NewDateTime(val.Value()); dtErr == nil {
				return dt.ToDate(), true
			}
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func toDateTime(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.DateTime:
		return val, true
	case types.Date:
		return val.ToDateTime(), true
	case types.String:
		dt, err := types.NewDateTime(val.Value())
		if err != nil {
			return nil, false
		}
		return dt, true
	}
	return nil, false
}

func toTime(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.Time:
		return val, true
	case types.String:
		t, err := types.NewTime(val.Value())
		if err != nil {
			return nil, false
		}
		return t, true
	}
	return nil, false
}

func toQuantity(v types.Value) (types.Value, bool) {
	switch val := v.(type) {
	case types.Quantity:
		return val, true
	case types.Integer:
		return types.NewQuantityFromDecimal(val.ToDecimal().Value(), "1"), true
	case types.Decimal:
		return types.NewQuantityFromDecimal(val.Value(), "1"), true
	case types.String:
		q, err := types.NewQuantity(val.Value())
		if err != nil {
			return nil, false
		}
		return q, true
	case types.Boolean:
		if val.Bool() {
			return types.NewQuantityFromDecimal(types.NewDecimalFromInt(1).Value(), "1"), true
		}
		return types.NewQuantityFromDecimal(types.NewDecimalFromInt(0).Value(), "1"), true
	}
	return nil, false
}
