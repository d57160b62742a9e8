package ast

import (
	"strings"
)

// Print renders the tree back to FHIRPath source in canonical form:
// no redundant whitespace, every binary operator parenthesized by
// precedence only where required. Parsing the output yields an equal
// tree.
func Print(e Expression) string {
	var b strings.Builder
	printExpr(&b, e, 0)
	return b.String()
}

// precedence mirrors the parser's ladder; higher binds tighter.
func precedence(op BinaryOp) int {
	switch op {
	case OpImplies:
		return 1
	case OpOr, OpXor:
		return 2
	case OpAnd:
		return 3
	case OpIn, OpContains:
		return 4
	case OpEqual, OpEquivalent, OpNotEqual, OpNotEquiv:
		return 5
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		return 6
	case OpUnion:
		return 8
	case OpAdd, OpSubtract, OpConcat:
		return 9
	case OpMultiply, OpDivide, OpDiv, OpMod:
		return 10
	}
	return 0
}

const (
	typeOpPrecedence  = 7
	unaryPrecedence   = 11
	postfixPrecedence = 12
)

func printExpr(b *strings.Builder, e Expression, parent int) {
	switch n := e.(type) {
	case *Literal:
		printLiteral(b, n)
	case *Null:
		b.WriteString("{}")
	case *Identifier:
		b.WriteString(quoteIdentifier(n.Name))
	case *Variable:
		if n.Env {
			b.WriteByte('%')
		} else {
			b.WriteByte('$')
		}
		b.WriteString(n.Name)
	case *Path:
		if n.Base != nil {
			printExpr(b, n.Base, postfixPrecedence)
			b.WriteByte('.')
		}
		b.WriteString(quoteIdentifier(n.Name))
	case *Index:
		printExpr(b, n.Base, postfixPrecedence)
		b.WriteByte('[')
		printExpr(b, n.Idx, 0)
		b.WriteByte(']')
	case *FunctionCall:
		if n.Target != nil {
			printExpr(b, n.Target, postfixPrecedence)
			b.WriteByte('.')
		}
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			printExpr(b, arg, 0)
		}
		b.WriteByte(')')
	case *Unary:
		needParens := parent > unaryPrecedence
		if needParens {
			b.WriteByte('(')
		}
		b.WriteString(string(n.Op))
		printExpr(b, n.Operand, unaryPrecedence)
		if needParens {
			b.WriteByte(')')
		}
	case *TypeOp:
		needParens := parent > typeOpPrecedence
		if needParens {
			b.WriteByte('(')
		}
		printExpr(b, n.Operand, typeOpPrecedence)
		b.WriteByte(' ')
		b.WriteString(n.Kind.String())
		b.WriteByte(' ')
		b.WriteString(n.Type)
		if needParens {
			b.WriteByte(')')
		}
	case *Binary:
		prec := precedence(n.Op)
		needParens := parent > prec
		if needParens {
			b.WriteByte('(')
		}
		printExpr(b, n.Left, prec)
		b.WriteByte(' ')
		b.WriteString(string(n.Op))
		b.WriteByte(' ')
		// Left-associative: the right operand needs one level more.
		printExpr(b, n.Right, prec+1)
		if needParens {
			b.WriteByte(')')
		}
	}
}

func printLiteral(b *strings.Builder, n *Literal) {
	switch n.Kind {
	case LitString:
		b.WriteByte('\'')
		b.WriteString(escapeString(n.Text))
		b.WriteByte('\'')
	case LitDate, LitDateTime, LitTime, LitQuantity, LitBoolean, LitInteger, LitDecimal:
		b.WriteString(n.Text)
	}
}

func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\f':
			b.WriteString(`\f`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// quoteIdentifier backtick-quotes names that are not plain
// identifiers.
func quoteIdentifier(name string) string {
	if isPlainIdentifier(name) {
		return name
	}
	return "`" + name + "`"
}

func isPlainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
