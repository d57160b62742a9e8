package fhirpath

import (
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/funcs"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Expression is a compiled FHIRPath expression: the source text and
// its immutable AST. It is safe for concurrent evaluation.
type Expression struct {
	source string
	tree   ast.Expression
}

// Evaluate executes the expression against a JSON resource with
// default options.
func (e *Expression) Evaluate(resource []byte) (types.Collection, error) {
	return e.EvaluateWithContext(eval.NewContext(resource))
}

// EvaluateWithContext executes the expression with a prepared
// evaluation context.
func (e *Expression) EvaluateWithContext(ctx *eval.Context) (types.Collection, error) {
	evaluator := eval.NewEvaluator(funcs.GetRegistry())
	result, err := evaluator.Evaluate(ctx, e.tree)
	if err != nil {
		return nil, err
	}
	return types.UnwrapAll(result), nil
}

// String returns the original expression source.
func (e *Expression) String() string {
	return e.source
}

// Canonical returns the canonical printing of the expression's tree.
// Cache keys are not this form; they come from NormalizeKey.
func (e *Expression) Canonical() string {
	return ast.Print(e.tree)
}

// Tree exposes the parsed AST for tooling.
func (e *Expression) Tree() ast.Expression {
	return e.tree
}
