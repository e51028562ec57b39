// Package parser implements the pseudocode expression parser.
//
// Precedence, lowest to highest: ||, &&, == !=, > >= < <=, + -, * / %,
// unary minus. Parentheses group.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes an expression and parses it into an AST.
func Parse(source, filename string) (ast.Expr, []diagnostics.Diagnostic) {
	return ParseAt(source, filename, 1, 1)
}

// ParseAt is like Parse but positions spans at the given line and column.
func ParseAt(source, filename string, line, col int) (ast.Expr, []diagnostics.Diagnostic) {
	tokens, err := lexer.TokenizeAt(source, filename, line, col)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	if p.peek() == lexer.TokEOF {
		tok := p.current()
		p.addError("expected an expression", &tok.Span)
		return nil, p.diags
	}
	expr := p.parseExpr()
	if expr != nil && p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return expr, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		got := tok.Value
		if tok.Type == lexer.TokEOF {
			got = "end of expression"
		}
		p.addError(fmt.Sprintf("expected %s, got '%s'", tokenName(typ), got), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.ESyntax, msg, span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokRBracket:
		return "']'"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokLBracket:
		return "'['"
	case lexer.TokLParen:
		return "'('"
	default:
		return fmt.Sprintf("token %d", t)
	}
}

func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

// --- Precedence climbing ---

// binaryLevel parses one left-associative precedence level.
func (p *parser) binaryLevel(next func() ast.Expr, ops map[lexer.TokenType]ast.BinaryOp) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}

	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

var (
	orOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokOrOr: ast.OpOr,
	}
	andOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokAndAnd: ast.OpAnd,
	}
	equalityOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokEqEq:   ast.OpEqEq,
		lexer.TokBangEq: ast.OpNeq,
	}
	relationalOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokGt:   ast.OpGt,
		lexer.TokLt:   ast.OpLt,
		lexer.TokGtEq: ast.OpGtEq,
		lexer.TokLtEq: ast.OpLtEq,
	}
	additiveOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokPlus:  ast.OpAdd,
		lexer.TokMinus: ast.OpSub,
	}
	multiplicativeOps = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokStar:    ast.OpMul,
		lexer.TokSlash:   ast.OpDiv,
		lexer.TokPercent: ast.OpMod,
	}
)

func (p *parser) parseOr() ast.Expr {
	return p.binaryLevel(p.parseAnd, orOps)
}

func (p *parser) parseAnd() ast.Expr {
	return p.binaryLevel(p.parseEquality, andOps)
}

func (p *parser) parseEquality() ast.Expr {
	return p.binaryLevel(p.parseRelational, equalityOps)
}

func (p *parser) parseRelational() ast.Expr {
	return p.binaryLevel(p.parseAdditive, relationalOps)
}

func (p *parser) parseAdditive() ast.Expr {
	return p.binaryLevel(p.parseMultiplicative, additiveOps)
}

func (p *parser) parseMultiplicative() ast.Expr {
	return p.binaryLevel(p.parseUnary, multiplicativeOps)
}

func (p *parser) parseUnary() ast.Expr {
	if p.peek() == lexer.TokMinus {
		start := p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			Span:    p.spanFromTo(start.Span, operand.NodeSpan()),
			Op:      ast.OpNeg,
			Operand: operand,
		}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.peek() {
	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr

	case lexer.TokIntLit:
		tok := p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("integer literal out of range: %s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.IntLiteral{Span: tok.Span, Value: val}

	case lexer.TokFloatLit:
		tok := p.advance()
		val, _ := strconv.ParseFloat(tok.Value, 64)
		return &ast.FloatLiteral{Span: tok.Span, Value: val}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokIdent:
		return p.parseIdentOrIndex()

	default:
		tok := p.current()
		if tok.Type == lexer.TokEOF {
			p.addError("unexpected end of expression", &tok.Span)
		} else {
			p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
		}
		return nil
	}
}

func (p *parser) parseIdentOrIndex() ast.Expr {
	tok := p.advance()
	if p.peek() != lexer.TokLBracket {
		return &ast.Ident{Span: tok.Span, Name: tok.Value}
	}
	p.advance() // consume '['
	index := p.parseExpr()
	if index == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	return &ast.IndexExpr{
		Span:  p.spanFromTo(tok.Span, end.Span),
		Name:  tok.Value,
		Index: index,
	}
}
