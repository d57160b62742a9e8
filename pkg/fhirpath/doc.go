// Package fhirpath provides a FHIRPath expression engine for FHIR
// resources.
//
// FHIRPath is a path-based navigation and extraction language. This
// implementation covers the full expression pipeline: a hand-written
// lexer and Pratt parser producing a typed AST, a polymorphic value
// model with precision-carrying temporals and arbitrary-precision
// decimals, a unified operator/function registry, schema-aware
// navigation with choice-type resolution, and a tree-walking
// evaluator with lambda scopes, three-valued logic and cooperative
// cancellation.
//
// Usage:
//
//	result, err := fhirpath.Evaluate(patientJSON, "name.given.first()")
//
//	expr, err := fhirpath.Compile("name.where(use = 'official').family")
//	result, err := expr.Evaluate(patientJSON)
//
// Compiled expressions are immutable and safe for concurrent use; use
// an ExpressionCache to share them across evaluations.
package fhirpath
