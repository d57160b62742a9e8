package ast

import (
	"fmt"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

// LiteralKind tags the sub-variant of a literal node.
type LiteralKind int

const (
	LitBoolean LiteralKind = iota
	LitInteger
	LitDecimal
	LitString
	LitDate
	LitDateTime
	LitTime
	LitQuantity
)

func (k LiteralKind) String() string {
	switch k {
	case LitBoolean:
		return "Boolean"
	case LitInteger:
		return "Integer"
	case LitDecimal:
		return "Decimal"
	case LitString:
		return "String"
	case LitDate:
		return "Date"
	case LitDateTime:
		return "DateTime"
	case LitTime:
		return "Time"
	case LitQuantity:
		return "Quantity"
	}
	return "Unknown"
}

// Literal holds a constant value parsed from source text. The value is
// materialized at parse time so evaluation never re-parses literal
// text.
type Literal struct {
	Kind  LiteralKind
	Value types.Value
	// Text is the literal's source spelling, kept for the canonical
	// printer.
	Text string
	Src  Span
}

// NewBooleanLiteral builds a boolean literal node.
func NewBooleanLiteral(v bool, span Span) *Literal {
	text := "false"
	if v {
		text = "true"
	}
	return &Literal{Kind: LitBoolean, Value: types.NewBoolean(v), Text: text, Src: span}
}

// NewStringLiteral builds a string literal node from its unescaped
// value.
func NewStringLiteral(v string, span Span) *Literal {
	return &Literal{Kind: LitString, Value: types.NewString(v), Text: v, Src: span}
}

// NewNumberLiteral parses numeric literal text into an integer or
// decimal literal node.
func NewNumberLiteral(text string, span Span) (*Literal, error) {
	v, err := types.ParseDecimalOrInteger(text)
	if err != nil {
		return nil, err
	}
	kind := LitDecimal
	if _, ok := v.(types.Integer); ok {
		kind = LitInteger
	}
	return &Literal{Kind: kind, Value: v, Text: text, Src: span}, nil
}

// NewTemporalLiteral parses an @-prefixed date, datetime or time
// literal. The text includes the @ prefix.
func NewTemporalLiteral(text string, span Span) (*Literal, error) {
	if len(text) < 2 || text[0] != '@' {
		return nil, fmt.Errorf("invalid temporal literal: %s", text)
	}
	body := text[1:]
	if body[0] == 'T' {
		t, err := types.NewTime(body)
		if err != nil {
			return nil, err
		}
		return &Literal{Kind: LitTime, Value: t, Text: text, Src: span}, nil
	}
	if containsTimePart(body) {
		dt, err := types.NewDateTime(body)
		if err != nil {
			return nil, err
		}
		return &Literal{Kind: LitDateTime, Value: dt, Text: text, Src: span}, nil
	}
	d, err := types.NewDate(body)
	if err != nil {
		return nil, err
	}
	return &Literal{Kind: LitDate, Value: d, Text: text, Src: span}, nil
}

func containsTimePart(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 'T' || s[i] == 'Z' || s[i] == '+' {
			return true
		}
	}
	return false
}

// NewQuantityLiteral builds a quantity literal from its numeric text
// and already-normalized unit code.
func NewQuantityLiteral(number, unit string, span Span) (*Literal, error) {
	q, err := types.NewQuantity(number + " '" + unit + "'")
	if err != nil {
		return nil, err
	}
	return &Literal{
		Kind:  LitQuantity,
		Value: q,
		Text:  number + " '" + unit + "'",
		Src:   span,
	}, nil
}
