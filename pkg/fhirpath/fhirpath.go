package fhirpath

import (
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/parser"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// Evaluate parses and evaluates a FHIRPath expression against a JSON
// resource in one step.
func Evaluate(resource []byte, expr string) (types.Collection, error) {
	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}

// MustEvaluate is like Evaluate but panics on error.
func MustEvaluate(resource []byte, expr string) types.Collection {
	result, err := Evaluate(resource, expr)
	if err != nil {
		panic(err)
	}
	return result
}

// Compile parses a FHIRPath expression into a reusable Expression.
func Compile(expr string) (*Expression, error) {
	tree, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &Expression{source: expr, tree: tree}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Expression {
	compiled, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}
