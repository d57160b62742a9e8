package fhirpath

import (
	"context"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/funcs"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/parser"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/schema"
)

// ValidationResult is the outcome of the validation surface: the
// parse outcome plus semantic diagnostics for syntactically valid
// expressions.
type ValidationResult struct {
	// Valid is true when no diagnostics were produced.
	Valid bool
	// Expression is the compiled form when parsing succeeded.
	Expression *Expression
	// Diagnostics lists every problem found, syntax first.
	Diagnostics []*parser.Diagnostic
}

// ValidateOptions configures validation.
type ValidateOptions struct {
	// SchemaProvider backs the referential property checks; nil uses
	// the embedded base provider.
	SchemaProvider schema.Provider
	// Variables lists the environment variable names that will be
	// supplied at evaluation time; references outside this set are
	// flagged. Nil skips variable checking entirely.
	Variables []string
	// MaxErrors caps parser diagnostics.
	MaxErrors int
}

// Validate checks an expression for syntax errors and, when it
// parses, for unknown functions, wrong arities, unknown special
// variables and unknown properties on schema-known types.
func Validate(ctx context.Context, source string, opts ValidateOptions) ValidationResult {
	tree, err := parser.ParseWithOptions(source, parser.Options{MaxErrors: opts.MaxErrors})
	if err != nil {
		diags, ok := err.(parser.ErrorList)
		if !ok {
			diags = parser.ErrorList{{Code: parser.CodeUnexpectedToken, Message: err.Error()}}
		}
		return ValidationResult{Diagnostics: diags}
	}

	provider := opts.SchemaProvider
	if provider == nil {
		provider = schema.Base()
	}

	v := &validator{
		ctx:      ctx,
		provider: provider,
		registry: funcs.GetRegistry(),
	}
	if opts.Variables != nil {
		v.variables = make(map[string]bool, len(opts.Variables))
		for _, name := range opts.Variables {
			v.variables[name] = true
		}
		// The engine preseeds these two.
		v.variables["resource"] = true
		v.variables["context"] = true
	}
	v.walk(tree)

	return ValidationResult{
		Valid:       len(v.diags) == 0,
		Expression:  &Expression{source: source, tree: tree},
		Diagnostics: v.diags,
	}
}

type validator struct {
	ctx       context.Context
	provider  schema.Provider
	registry  interface{ Get(string) (funcs.FuncDef, bool) }
	variables map[string]bool
	diags     []*parser.Diagnostic
}

func (v *validator) report(code, message string, span ast.Span, help string) {
	v.diags = append(v.diags, &parser.Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Help:    help,
	})
}

func (v *validator) walk(tree ast.Expression) {
	ast.Walk(tree, func(node ast.Expression) bool {
		switch n := node.(type) {
		case *ast.FunctionCall:
			v.checkFunction(n)
		case *ast.Variable:
			v.checkVariable(n)
		case *ast.Path:
			v.checkPath(n)
		}
		return true
	})
}

func (v *validator) checkFunction(n *ast.FunctionCall) {
	if n.Name == "iif" {
		if len(n.Args) < 2 || len(n.Args) > 3 {
			v.report(parser.CodeWrongArity, "iif() takes 2 or 3 arguments", n.Src, "")
		}
		return
	}
	def, ok := v.registry.Get(n.Name)
	if !ok {
		v.report(parser.CodeUnknownFunction, "unknown function '"+n.Name+"'", n.Src, "")
		return
	}
	if len(n.Args) < def.MinArgs || (def.MaxArgs >= 0 && len(n.Args) > def.MaxArgs) {
		v.report(parser.CodeWrongArity, "wrong number of arguments to '"+n.Name+"'", n.Src, "")
	}
}

func (v *validator) checkVariable(n *ast.Variable) {
	if !n.Env {
		if n.Name != "this" && n.Name != "index" && n.Name != "total" {
			v.report(parser.CodeUnknownVariable, "unknown special variable $"+n.Name, n.Src, "")
		}
		return
	}
	if v.variables != nil && !v.variables[n.Name] {
		v.report(parser.CodeUnknownVariable, "undefined variable %"+n.Name, n.Src, "")
	}
}

// checkPath validates the first property step below a resource-type
// head. Deeper steps would require full element-type threading, which
// belongs to a schema-complete provider; this boundary pass flags the
// common misspellings with authoritative answers only.
func (v *validator) checkPath(n *ast.Path) {
	head, ok := n.Base.(*ast.Identifier)
	if !ok {
		return
	}
	isResource, err := v.provider.HasResourceType(v.ctx, head.Name)
	if err != nil || !isResource {
		return
	}
	if !v.providerEnumerates(head.Name) {
		return
	}
	info, err := v.provider.PropertyInfo(v.ctx, head.Name, n.Name)
	if err != nil || info.Exists {
		return
	}
	choice, err := v.provider.PropertyInfo(v.ctx, head.Name, n.Name+"[x]")
	if err == nil && choice.Exists {
		return
	}
	v.report(parser.CodeUnknownProperty,
		"type "+head.Name+" has no property '"+n.Name+"'", n.Src, "")
}

// providerEnumerates probes whether the provider can enumerate the
// type's elements: a provider that cannot (like the embedded base
// tables) reports even 'id' as absent and is skipped rather than
// flooding false positives.
func (v *validator) providerEnumerates(typeName string) bool {
	info, err := v.provider.PropertyInfo(v.ctx, typeName, "id")
	return err == nil && info.Exists
}
