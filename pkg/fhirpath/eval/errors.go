// Package eval provides the FHIRPath expression evaluator: the tree
// walk, the operator kernel, schema-aware navigation, and the
// operator/function registry.
package eval

import (
	"errors"
	"fmt"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// ErrorType categorizes evaluation errors. The set and its codes are
// part of the public surface.
type ErrorType int

const (
	// ErrParse indicates a parsing error surfaced at evaluation time.
	ErrParse ErrorType = iota
	// ErrType indicates an operator or function applied to values of
	// incompatible types.
	ErrType
	// ErrSingletonExpected indicates multiple values where one was
	// expected.
	ErrSingletonExpected
	// ErrFunctionNotFound indicates an unknown function.
	ErrFunctionNotFound
	// ErrInvalidArguments indicates a wrong argument count or shape.
	ErrInvalidArguments
	// ErrArithmetic indicates overflow or a domain error in math.
	ErrArithmetic
	// ErrDivisionByZero indicates integer div/mod by zero.
	ErrDivisionByZero
	// ErrInvalidPath indicates an invalid path or variable reference.
	ErrInvalidPath
	// ErrCancelled indicates the evaluation context was cancelled.
	ErrCancelled
	// ErrTimeout indicates the evaluation deadline passed.
	ErrTimeout
	// ErrDepthExceeded indicates the AST recursion limit tripped.
	ErrDepthExceeded
	// ErrInvalidOperation indicates an unsupported operation.
	ErrInvalidOperation
	// ErrInvalidExpression indicates an expression-level limit tripped.
	ErrInvalidExpression
)

// String returns the stable name of the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrParse:
		return "ParseError"
	case ErrType:
		return "TypeError"
	case ErrSingletonExpected:
		return "SingletonExpectedError"
	case ErrFunctionNotFound:
		return "FunctionNotFoundError"
	case ErrInvalidArguments:
		return "InvalidArgumentsError"
	case ErrArithmetic:
		return "ArithmeticError"
	case ErrDivisionByZero:
		return "DivisionByZeroError"
	case ErrInvalidPath:
		return "InvalidPathError"
	case ErrCancelled:
		return "CancelledError"
	case ErrTimeout:
		return "TimeoutError"
	case ErrDepthExceeded:
		return "DepthExceededError"
	case ErrInvalidOperation:
		return "InvalidOperationError"
	case ErrInvalidExpression:
		return "InvalidExpressionError"
	default:
		return "UnknownError"
	}
}

// EvalError is the error type produced by evaluation.
//
//nolint:revive // EvalError reads better than eval.Error at call sites
type EvalError struct {
	Type       ErrorType
	Message    string
	Span       ast.Span // source range when known
	Underlying error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Span.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Type, e.Span.Line, e.Span.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *EvalError) Unwrap() error {
	return e.Underlying
}

// NewEvalError creates an evaluation error with Sprintf formatting.
func NewEvalError(errType ErrorType, format string, args ...interface{}) *EvalError {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	return &EvalError{Type: errType, Message: message}
}

// WithSpan attaches source position information.
func (e *EvalError) WithSpan(span ast.Span) *EvalError {
	e.Span = span
	return e
}

// WithUnderlying attaches an underlying error.
func (e *EvalError) WithUnderlying(err error) *EvalError {
	e.Underlying = err
	return e
}

// TypeMismatchError creates a type error.
func TypeMismatchError(expected, actual, operation string) *EvalError {
	return NewEvalError(ErrType, "expected %s, got %s in %s", expected, actual, operation)
}

// SingletonError creates a singleton expected error.
func SingletonError(count int) *EvalError {
	return NewEvalError(ErrSingletonExpected, "expected single value, got %d elements", count)
}

// FunctionNotFoundError creates a function not found error.
func FunctionNotFoundError(name string) *EvalError {
	return NewEvalError(ErrFunctionNotFound, "unknown function '%s'", name)
}

// ArityError creates an invalid-argument-count error.
func ArityError(funcName string, expected, actual int) *EvalError {
	return NewEvalError(ErrInvalidArguments, "function '%s' expects %d arguments, got %d", funcName, expected, actual)
}

// DivisionByZeroError creates a division by zero error.
func DivisionByZeroError() *EvalError {
	return NewEvalError(ErrDivisionByZero, "division by zero")
}

// ArithmeticError wraps an arithmetic failure such as overflow.
func ArithmeticError(err error) *EvalError {
	return NewEvalError(ErrArithmetic, "%s", err.Error()).WithUnderlying(err)
}

// InvalidOperationError creates an unsupported-operation error.
func InvalidOperationError(op, leftType, rightType string) *EvalError {
	return NewEvalError(ErrInvalidOperation, "cannot apply '%s' to %s and %s", op, leftType, rightType)
}

// arithmeticOrDivZero classifies an error from the numeric types.
func arithmeticOrDivZero(err error) *EvalError {
	if errors.Is(err, types.ErrDivisionByZero) {
		return DivisionByZeroError()
	}
	return ArithmeticError(err)
}
