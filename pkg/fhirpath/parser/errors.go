package parser

import (
	"fmt"
	"strings"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
)

// Diagnostic codes form part of the public surface and never change
// meaning across releases.
const (
	CodeUnexpectedToken    = "FP1001"
	CodeUnterminatedString = "FP1002"
	CodeInvalidEscape      = "FP1003"
	CodeInvalidNumber      = "FP1004"
	CodeInvalidTemporal    = "FP1005"
	CodeUnclosedDelimiter  = "FP1006"
	CodeInvalidCharacter   = "FP1007"
	CodeTooManyErrors      = "FP1008"

	// Semantic codes reported by the validation surface.
	CodeUnknownFunction = "FP2001"
	CodeWrongArity      = "FP2002"
	CodeUnknownProperty = "FP2003"
	CodeUnknownVariable = "FP2004"
)

// Diagnostic is a single problem found in an expression, with a span
// into the source and a stable code.
type Diagnostic struct {
	Code    string
	Message string
	Span    ast.Span
	// Help optionally suggests a fix, e.g. a near-miss property name.
	Help string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", d.Code, d.Span.Line, d.Span.Column, d.Message)
}

// ErrorList collects diagnostics; parsing surfaces every problem it
// can find before giving up rather than stopping at the first.
type ErrorList []*Diagnostic

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(l))
	for _, d := range l {
		b.WriteString("\n\t")
		b.WriteString(d.Error())
	}
	return b.String()
}

// Err returns the list as an error, or nil when it is empty.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
