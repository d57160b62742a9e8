package parser

import (
	"fmt"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/ast"
	"github.com/robertoaraneda/fhirpath/pkg/ucum"
)

// DefaultMaxErrors bounds how many diagnostics are collected before
// parsing abandons the input.
const DefaultMaxErrors = 10

// Options configures a parse.
type Options struct {
	// MaxErrors caps collected diagnostics; zero means DefaultMaxErrors.
	MaxErrors int
}

// Parse turns source text into an AST, collecting as many diagnostics
// as it can. On failure the AST is nil and the error is an ErrorList.
func Parse(src string) (ast.Expression, error) {
	return ParseWithOptions(src, Options{})
}

// ParseWithOptions is Parse with explicit limits.
func ParseWithOptions(src string, opts Options) (ast.Expression, error) {
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	p := &parser{lex: newLexer(src), maxErrors: maxErrors}
	p.advance()
	expr := p.parseExpression(0)
	// Recovery loop: report every stray trailing token so callers see
	// all problems at once, bounded by maxErrors.
	for p.tok.Kind != TokEOF && !p.bailed {
		p.errorf(p.tokSpan(), CodeUnexpectedToken, "unexpected %s after expression", p.tok.Kind)
		p.advance()
	}
	if errs := p.errors(); len(errs) > 0 {
		return nil, errs
	}
	return expr, nil
}

// parser is a Pratt parser over the token stream.
type parser struct {
	lex       *lexer
	tok       Token
	maxErrors int
	bailed    bool
	errs      ErrorList
}

// Binding powers, lowest to highest. Postfix ('.', '[') binds above
// every operator.
const (
	bpImplies = iota + 1
	bpOr
	bpAnd
	bpMembership
	bpEquality
	bpRelational
	bpTypeOp
	bpUnion
	bpAdditive
	bpMultiplicative
	bpUnary
	bpPostfix
)

func (p *parser) advance() {
	p.tok = p.lex.next()
}

func (p *parser) errors() ErrorList {
	return append(p.lex.errors, p.errs...)
}

func (p *parser) errorf(span ast.Span, code, format string, args ...interface{}) {
	if p.bailed {
		return
	}
	if len(p.errs) >= p.maxErrors {
		p.errs = append(p.errs, &Diagnostic{
			Code:    CodeTooManyErrors,
			Message: "too many errors, giving up",
			Span:    span,
		})
		p.bailed = true
		return
	}
	p.errs = append(p.errs, &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	})
}

func (p *parser) tokSpan() ast.Span {
	return ast.Span{Start: p.tok.Start, End: p.tok.End, Line: p.tok.Line, Column: p.tok.Column}
}

func (p *parser) expect(kind Kind) bool {
	if p.tok.Kind == kind {
		p.advance()
		return true
	}
	p.errorf(p.tokSpan(), CodeUnexpectedToken, "expected %s, found %s", kind, p.tok.Kind)
	return false
}

// parseExpression is the Pratt loop: parse a prefix form, then fold
// infix operators whose binding power exceeds minBP.
func (p *parser) parseExpression(minBP int) ast.Expression {
	if p.bailed {
		return &ast.Null{Src: p.tokSpan()}
	}
	left := p.parsePrefix()

	for {
		if p.bailed {
			return left
		}
		op, bp, ok := p.peekBinaryOp()
		if !ok || bp < minBP {
			return left
		}

		// is / as take a type specifier, not a general expression.
		if op == "is" || op == "as" {
			p.advance()
			typeName, span := p.parseTypeSpecifier()
			kind := ast.TypeOpIs
			if op == "as" {
				kind = ast.TypeOpAs
			}
			left = &ast.TypeOp{
				Kind:    kind,
				Operand: left,
				Type:    typeName,
				Src:     left.Span().Extend(span),
			}
			continue
		}

		p.advance()
		right := p.parseExpression(bp + 1)
		left = &ast.Binary{
			Op:    ast.BinaryOp(op),
			Left:  left,
			Right: right,
			Src:   left.Span().Extend(right.Span()),
		}
	}
}

// peekBinaryOp reports the operator at the cursor, its binding power,
// and whether one is present.
func (p *parser) peekBinaryOp() (string, int, bool) {
	switch p.tok.Kind {
	case TokPlus:
		return "+", bpAdditive, true
	case TokMinus:
		return "-", bpAdditive, true
	case TokAmp:
		return "&", bpAdditive, true
	case TokStar:
		return "*", bpMultiplicative, true
	case TokSlash:
		return "/", bpMultiplicative, true
	case TokPipe:
		return "|", bpUnion, true
	case TokEq:
		return "=", bpEquality, true
	case TokNotEq:
		return "!=", bpEquality, true
	case TokTilde:
		return "~", bpEquality, true
	case TokNotTilde:
		return "!~", bpEquality, true
	case TokLess:
		return "<", bpRelational, true
	case TokLessEq:
		return "<=", bpRelational, true
	case TokGreater:
		return ">", bpRelational, true
	case TokGreaterEq:
		return ">=", bpRelational, true
	case TokIdent:
		switch p.tok.Text {
		case "and":
			return "and", bpAnd, true
		case "or":
			return "or", bpOr, true
		case "xor":
			return "xor", bpOr, true
		case "implies":
			return "implies", bpImplies, true
		case "in":
			return "in", bpMembership, true
		case "contains":
			return "contains", bpMembership, true
		case "div":
			return "div", bpMultiplicative, true
		case "mod":
			return "mod", bpMultiplicative, true
		case "is":
			return "is", bpTypeOp, true
		case "as":
			return "as", bpTypeOp, true
		}
	}
	return "", 0, false
}

// parsePrefix parses a primary term with its postfix chain.
func (p *parser) parsePrefix() ast.Expression {
	var expr ast.Expression

	switch p.tok.Kind {
	case TokPlus, TokMinus:
		op := ast.OpPlus
		if p.tok.Kind == TokMinus {
			op = ast.OpNegate
		}
		span := p.tokSpan()
		p.advance()
		operand := p.parseExpression(bpUnary)
		return &ast.Unary{Op: op, Operand: operand, Src: span.Extend(operand.Span())}

	case TokLParen:
		p.advance()
		expr = p.parseExpression(0)
		p.expect(TokRParen)

	case TokLBrace:
		span := p.tokSpan()
		p.advance()
		p.expect(TokRBrace)
		expr = &ast.Null{Src: span}

	case TokNumber:
		expr = p.parseNumberOrQuantity()

	case TokString:
		expr = ast.NewStringLiteral(p.tok.Text, p.tokSpan())
		p.advance()

	case TokTemporal:
		lit, err := ast.NewTemporalLiteral(p.tok.Text, p.tokSpan())
		if err != nil {
			p.errorf(p.tokSpan(), CodeInvalidTemporal, "invalid date/time literal %q", p.tok.Text)
			lit = &ast.Literal{Kind: ast.LitString, Src: p.tokSpan()}
		}
		p.advance()
		expr = lit

	case TokDollar:
		// Any $name lexes; unknown special variables are reported by
		// the semantic layers, not the grammar.
		expr = &ast.Variable{Name: p.tok.Text, Src: p.tokSpan()}
		p.advance()

	case TokPercent:
		expr = &ast.Variable{Name: p.tok.Text, Env: true, Src: p.tokSpan()}
		p.advance()

	case TokIdent, TokBacktickIdent:
		expr = p.parseIdentifierTerm()

	default:
		p.errorf(p.tokSpan(), CodeUnexpectedToken, "unexpected %s", p.tok.Kind)
		span := p.tokSpan()
		if p.tok.Kind != TokEOF {
			p.advance()
		}
		return &ast.Null{Src: span}
	}

	return p.parsePostfix(expr)
}

// parseIdentifierTerm parses a bare identifier, which may be a boolean
// literal, a function call, or a path head.
func (p *parser) parseIdentifierTerm() ast.Expression {
	name := p.tok.Text
	span := p.tokSpan()

	if p.tok.Kind == TokIdent && (name == "true" || name == "false") {
		p.advance()
		return ast.NewBooleanLiteral(name == "true", span)
	}

	p.advance()
	if p.tok.Kind == TokLParen {
		return p.parseFunctionCall(nil, name, span)
	}
	return &ast.Identifier{Name: name, Src: span}
}

// parsePostfix folds '.' member/function steps and '[' indexers.
func (p *parser) parsePostfix(expr ast.Expression) ast.Expression {
	for {
		switch p.tok.Kind {
		case TokDot:
			p.advance()
			if p.tok.Kind != TokIdent && p.tok.Kind != TokBacktickIdent {
				p.errorf(p.tokSpan(), CodeUnexpectedToken, "expected identifier after '.', found %s", p.tok.Kind)
				return expr
			}
			name := p.tok.Text
			span := p.tokSpan()
			p.advance()
			if p.tok.Kind == TokLParen {
				expr = p.parseFunctionCall(expr, name, span)
			} else {
				expr = &ast.Path{Base: expr, Name: name, Src: expr.Span().Extend(span)}
			}

		case TokLBracket:
			p.advance()
			idx := p.parseExpression(0)
			end := p.tokSpan()
			p.expect(TokRBracket)
			expr = &ast.Index{Base: expr, Idx: idx, Src: expr.Span().Extend(end)}

		default:
			return expr
		}
	}
}

// parseFunctionCall parses the argument list after the function name;
// the opening parenthesis is at the cursor.
func (p *parser) parseFunctionCall(target ast.Expression, name string, nameSpan ast.Span) ast.Expression {
	p.advance() // consume '('
	var args []ast.Expression
	if p.tok.Kind != TokRParen {
		for {
			args = append(args, p.parseExpression(0))
			if p.tok.Kind != TokComma {
				break
			}
			p.advance()
		}
	}
	end := p.tokSpan()
	p.expect(TokRParen)

	span := nameSpan.Extend(end)
	if target != nil {
		span = target.Span().Extend(end)
	}
	return &ast.FunctionCall{Target: target, Name: name, Args: args, Src: span}
}

// parseNumberOrQuantity parses a numeric literal, folding a following
// unit string or calendar keyword into a quantity literal.
func (p *parser) parseNumberOrQuantity() ast.Expression {
	text := p.tok.Text
	span := p.tokSpan()
	p.advance()

	var unit string
	switch {
	case p.tok.Kind == TokString:
		unit = p.tok.Text
	case p.tok.Kind == TokIdent && ucum.IsCalendarWord(p.tok.Text):
		unit = ucum.FromCalendarWord(p.tok.Text)
	}
	if unit != "" {
		span = span.Extend(p.tokSpan())
		p.advance()
		lit, err := ast.NewQuantityLiteral(text, unit, span)
		if err != nil {
			p.errorf(span, CodeInvalidNumber, "invalid quantity literal %q", text+" "+unit)
			return &ast.Null{Src: span}
		}
		return lit
	}

	lit, err := ast.NewNumberLiteral(text, span)
	if err != nil {
		p.errorf(span, CodeInvalidNumber, "invalid number %q", text)
		return &ast.Null{Src: span}
	}
	return lit
}

// parseTypeSpecifier parses a possibly-qualified type name after is/as.
func (p *parser) parseTypeSpecifier() (string, ast.Span) {
	if p.tok.Kind != TokIdent && p.tok.Kind != TokBacktickIdent {
		p.errorf(p.tokSpan(), CodeUnexpectedToken, "expected type name, found %s", p.tok.Kind)
		return "", p.tokSpan()
	}
	name := p.tok.Text
	span := p.tokSpan()
	p.advance()
	if p.tok.Kind == TokDot {
		p.advance()
		if p.tok.Kind != TokIdent && p.tok.Kind != TokBacktickIdent {
			p.errorf(p.tokSpan(), CodeUnexpectedToken, "expected type name after '.', found %s", p.tok.Kind)
			return name, span
		}
		name = name + "." + p.tok.Text
		span = span.Extend(p.tokSpan())
		p.advance()
	}
	return name, span
}
