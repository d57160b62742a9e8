package funcs

import (
	"encoding/base64"
	"encoding/hex"
	"html"
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

func init() {
	Register(FuncDef{
		Name:     "length",
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       stringFn("length", func(s types.String, _ []types.Collection) (types.Value, error) {
			return types.NewInteger(int64(s.Length())), nil
		}),
	})
	Register(FuncDef{
		Name:     "startsWith",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringWithArgFn("startsWith", func(s types.String, arg string) (types.Value, error) {
			return types.NewBoolean(s.StartsWith(arg)), nil
		}),
	})
	Register(FuncDef{
		Name:     "endsWith",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringWithArgFn("endsWith", func(s types.String, arg string) (types.Value, error) {
			return types.NewBoolean(s.EndsWith(arg)), nil
		}),
	})
	Register(FuncDef{
		Name:     "contains",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringWithArgFn("contains", func(s types.String, arg string) (types.Value, error) {
			return types.NewBoolean(s.Contains(arg)), nil
		}),
	})
	Register(FuncDef{
		Name:     "upper",
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringFn("upper", func(s types.String, _ []types.Collection) (types.Value, error) {
			return s.Upper(), nil
		}),
	})
	Register(FuncDef{
		Name:     "lower",
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringFn("lower", func(s types.String, _ []types.Collection) (types.Value, error) {
			return s.Lower(), nil
		}),
	})
	Register(FuncDef{
		Name:     "trim",
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringFn("trim", func(s types.String, _ []types.Collection) (types.Value, error) {
			return s.Trim(), nil
		}),
	})
	Register(FuncDef{
		Name:     "indexOf",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringWithArgFn("indexOf", func(s types.String, arg string) (types.Value, error) {
			return types.NewInteger(int64(s.IndexOf(arg))), nil
		}),
	})
	Register(FuncDef{
		Name:     "substring",
		MinArgs:  1,
		MaxArgs:  2,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnSubstring,
	})
	Register(FuncDef{
		Name:     "replace",
		MinArgs:  2,
		MaxArgs:  2,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnReplace,
	})
	Register(FuncDef{
		Name:     "split",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringWithArgFn("split", func(s types.String, sep string) (types.Value, error) {
			parts := strings.Split(s.Value(), sep)
			result := make(types.Collection, len(parts))
			for i, p := range parts {
				result[i] = types.NewString(p)
			}
			return result, nil
		}),
	})
	Register(FuncDef{
		Name:     "join",
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnJoin,
	})
	Register(FuncDef{
		Name:     "toChars",
		Category: eval.CategoryString,
		Pure:     true,
		Fn: stringFn("toChars", func(s types.String, _ []types.Collection) (types.Value, error) {
			return s.ToChars(), nil
		}),
	})
	Register(FuncDef{
		Name:     "encode",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnEncode,
	})
	Register(FuncDef{
		Name:     "decode",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnDecode,
	})
	Register(FuncDef{
		Name:     "escape",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnEscape,
	})
	Register(FuncDef{
		Name:     "unescape",
		MinArgs:  1,
		MaxArgs:  1,
		Category: eval.CategoryString,
		Pure:     true,
		Fn:       fnUnescape,
	})
}

// stringInput reduces the input to its singleton string, reporting
// empty input as (zero, false, nil).
func stringInput(name string, input types.Collection) (types.String, bool, error) {
	if input.Empty() {
		return types.String{}, false, nil
	}
	if len(input) != 1 {
		return types.String{}, false, eval.SingletonError(len(input))
	}
	s, ok := input[0].(types.String)
	if !ok {
		return types.String{}, false, eval.TypeMismatchError("String", input[0].Type(), name)
	}
	return s, true, nil
}

// stringArg reads a required singleton string argument; empty argument
// propagates empty.
func stringArg(name string, arg types.Collection) (string, bool, error) {
	if arg.Empty() {
		return "", false, nil
	}
	if len(arg) != 1 {
		return "", false, eval.SingletonError(len(arg))
	}
	s, ok := arg[0].(types.String)
	if !ok {
		return "", false, eval.TypeMismatchError("String", arg[0].Type(), name)
	}
	return s.Value(), true, nil
}

// stringFn adapts a unary string operation into a FuncImpl with the
// standard empty and singleton handling.
func stringFn(name string, op func(types.String, []types.Collection) (types.Value, error)) eval.FuncImpl {
	return func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
		s, ok, err := stringInput(name, input)
		if err != nil || !ok {
			return types.EmptyCollection, err
		}
		v, err := op(s, args)
		if err != nil {
			return nil, err
		}
		return types.NewCollection(v), nil
	}
}

// stringWithArgFn adapts a string operation with one string argument.
func stringWithArgFn(name string, op func(types.String, string) (types.Value, error)) eval.FuncImpl {
	return func(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
		s, ok, err := stringInput(name, input)
		if err != nil || !ok {
			return types.EmptyCollection, err
		}
		arg, ok, err := stringArg(name, args[0])
		if err != nil || !ok {
			return types.EmptyCollection, err
		}
		v, err := op(s, arg)
		if err != nil {
			return nil, err
		}
		return types.NewCollection(v), nil
	}
}

// fnSubstring returns the code-point substring; out-of-range or
// negative arguments yield empty.
func fnSubstring(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("substring", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	start, ok, err := integerArg("substring", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	length := int64(s.Length())
	if len(args) == 2 {
		length, ok, err = integerArg("substring", args[1])
		if err != nil || !ok {
			return types.EmptyCollection, err
		}
	}
	sub, ok := s.Substring(int(start), int(length))
	if !ok {
		return types.EmptyCollection, nil
	}
	return types.Collection{sub}, nil
}

func fnReplace(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("replace", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	pattern, ok, err := stringArg("replace", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	replacement, ok, err := stringArg("replace", args[1])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	return types.Collection{s.Replace(pattern, replacement)}, nil
}

// fnJoin concatenates a collection of strings with an optional
// separator.
func fnJoin(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	sep := ""
	if len(args) == 1 {
		var ok bool
		var err error
		sep, ok, err = stringArg("join", args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			sep = ""
		}
	}
	parts := make([]string, 0, len(input))
	for _, item := range input {
		s, ok := item.(types.String)
		if !ok {
			return nil, eval.TypeMismatchError("String", item.Type(), "join")
		}
		parts = append(parts, s.Value())
	}
	return types.Collection{types.NewString(strings.Join(parts, sep))}, nil
}

func fnEncode(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("encode", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	format, ok, err := stringArg("encode", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch format {
	case "base64":
		return types.Collection{types.NewString(base64.StdEncoding.EncodeToString([]byte(s.Value())))}, nil
	case "urlbase64":
		return types.Collection{types.NewString(base64.URLEncoding.EncodeToString([]byte(s.Value())))}, nil
	case "hex":
		return types.Collection{types.NewString(hex.EncodeToString([]byte(s.Value())))}, nil
	}
	return nil, eval.NewEvalError(eval.ErrInvalidArguments, "unknown encoding %q", format)
}

func fnDecode(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("decode", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	format, ok, err := stringArg("decode", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	var decoded []byte
	switch format {
	case "base64":
		decoded, err = base64.StdEncoding.DecodeString(s.Value())
	case "urlbase64":
		decoded, err = base64.URLEncoding.DecodeString(s.Value())
	case "hex":
		decoded, err = hex.DecodeString(s.Value())
	default:
		return nil, eval.NewEvalError(eval.ErrInvalidArguments, "unknown encoding %q", format)
	}
	if err != nil {
		return types.EmptyCollection, nil
	}
	return types.Collection{types.NewString(string(decoded))}, nil
}

func fnEscape(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("escape", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	target, ok, err := stringArg("escape", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch target {
	case "html":
		return types.Collection{types.NewString(html.EscapeString(s.Value()))}, nil
	case "json":
		return types.Collection{types.NewString(escapeJSON(s.Value()))}, nil
	}
	return nil, eval.NewEvalError(eval.ErrInvalidArguments, "unknown escape target %q", target)
}

func fnUnescape(_ *eval.Context, input types.Collection, args []types.Collection) (types.Collection, error) {
	s, ok, err := stringInput("unescape", input)
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	target, ok, err := stringArg("unescape", args[0])
	if err != nil || !ok {
		return types.EmptyCollection, err
	}
	switch target {
	case "html":
		return types.Collection{types.NewString(html.UnescapeString(s.Value()))}, nil
	case "json":
		return types.Collection{types.NewString(unescapeJSON(s.Value()))}, nil
	}
	return nil, eval.NewEvalError(eval.ErrInvalidArguments, "unknown escape target %q", target)
}

func escapeJSON(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeJSON(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
