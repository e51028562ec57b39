// Package lexer implements the pseudocode expression tokenizer.
//
// Textual operator aliases are normalized while scanning: gt, ge, lt, le,
// equals, and, or and mod (the last one case-insensitively) become the
// canonical operator tokens, as do the dash forms -gt, -ge, -lt, -le and the
// <> spelling of not-equal.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Literals
	TokIntLit TokenType = iota
	TokFloatLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBracket // [
	TokRBracket // ]
	TokLParen   // (
	TokRParen   // )

	// Comparison operators
	TokGtEq   // >=
	TokLtEq   // <=
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokLt     // <

	// Logical operators
	TokAndAnd // &&
	TokOrOr   // ||

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// aliases maps case-sensitive word operators to their canonical token.
var aliases = map[string]TokenType{
	"gt":     TokGt,
	"ge":     TokGtEq,
	"lt":     TokLt,
	"le":     TokLtEq,
	"equals": TokEqEq,
	"and":    TokAndAnd,
	"or":     TokOrOr,
}

// dashAliases are the comparison aliases that also accept a leading '-'.
var dashAliases = map[string]TokenType{
	"gt": TokGt,
	"ge": TokGtEq,
	"lt": TokLt,
	"le": TokLtEq,
}

var canonical = map[TokenType]string{
	TokGt:      ">",
	TokGtEq:    ">=",
	TokLt:      "<",
	TokLtEq:    "<=",
	TokEqEq:    "==",
	TokBangEq:  "!=",
	TokAndAnd:  "&&",
	TokOrOr:    "||",
	TokPercent: "%",
}

// IsAlias reports whether word is normalized to an operator.
func IsAlias(word string) bool {
	if _, ok := aliases[word]; ok {
		return true
	}
	return strings.EqualFold(word, "mod")
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string, line, col int) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     line,
		col:      col,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	s.col++
	return ch
}

func (s *scanner) span(startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: s.line,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespace() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else {
			break
		}
	}
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

// wordAt returns the identifier starting at offset from the current position.
func (s *scanner) wordAt(offset int) string {
	start := s.pos + offset
	end := start
	for end < len(s.source) && isAlphaNumeric(s.source[end]) {
		end++
	}
	return s.source[start:end]
}

// scanString reads a double-quoted literal. There are no escape sequences:
// everything up to the next quote is the literal's content.
func (s *scanner) scanString() (Token, error) {
	startCol := s.col
	s.advance() // consume opening "

	start := s.pos
	for !s.atEnd() {
		if s.peek() == '"' {
			value := s.source[start:s.pos]
			s.advance() // consume closing "
			if !utf8.ValidString(value) {
				return Token{}, s.lexError(startCol, "invalid UTF-8 character in string")
			}
			return Token{Type: TokStringLit, Value: value, Span: s.span(startCol)}, nil
		}
		s.advance()
	}
	return Token{}, s.lexError(startCol, "unterminated string literal")
}

func (s *scanner) scanNumber() Token {
	startCol := s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Fractional part only when a digit follows the point.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		isFloat = true
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	tokType := TokIntLit
	if isFloat {
		tokType = TokFloatLit
	}
	return Token{Type: tokType, Value: s.source[startPos:s.pos], Span: s.span(startCol)}
}

func (s *scanner) scanIdentOrAlias() Token {
	startCol := s.col
	text := s.wordAt(0)
	for i := 0; i < len(text); i++ {
		s.advance()
	}

	if tokType, ok := aliases[text]; ok {
		return Token{Type: tokType, Value: canonical[tokType], Span: s.span(startCol)}
	}
	if strings.EqualFold(text, "mod") {
		return Token{Type: TokPercent, Value: "%", Span: s.span(startCol)}
	}
	return Token{Type: TokIdent, Value: text, Span: s.span(startCol)}
}

func (s *scanner) lexError(col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: s.line, StartCol: col, EndLine: s.line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) single(typ TokenType, value string) (Token, error) {
	startCol := s.col
	for i := 0; i < len(value); i++ {
		s.advance()
	}
	if c, ok := canonical[typ]; ok {
		value = c
	}
	return Token{Type: typ, Value: value, Span: s.span(startCol)}, nil
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespace()

	if s.atEnd() {
		return Token{Type: TokEOF, Value: "", Span: s.span(s.col)}, nil
	}

	ch := s.peek()
	startCol := s.col

	switch ch {
	case '[':
		return s.single(TokLBracket, "[")
	case ']':
		return s.single(TokRBracket, "]")
	case '(':
		return s.single(TokLParen, "(")
	case ')':
		return s.single(TokRParen, ")")
	case '+':
		return s.single(TokPlus, "+")
	case '*':
		return s.single(TokStar, "*")
	case '%':
		return s.single(TokPercent, "%")
	case '/':
		return s.single(TokSlash, "/")
	}

	switch ch {
	case '-':
		word := s.wordAt(1)
		if typ, ok := dashAliases[word]; ok {
			return s.single(typ, "-"+word)
		}
		return s.single(TokMinus, "-")

	case '=':
		if s.peekAt(1) == '=' {
			return s.single(TokEqEq, "==")
		}
		s.advance()
		return Token{}, s.lexError(startCol, "unexpected '=' (use '==' or 'equals' to compare)")

	case '!':
		if s.peekAt(1) == '=' {
			return s.single(TokBangEq, "!=")
		}
		s.advance()
		return Token{}, s.lexError(startCol, "unexpected character '!'")

	case '>':
		if s.peekAt(1) == '=' {
			return s.single(TokGtEq, ">=")
		}
		return s.single(TokGt, ">")

	case '<':
		switch s.peekAt(1) {
		case '=':
			return s.single(TokLtEq, "<=")
		case '>':
			return s.single(TokBangEq, "<>")
		}
		return s.single(TokLt, "<")

	case '&':
		if s.peekAt(1) == '&' {
			return s.single(TokAndAnd, "&&")
		}
	case '|':
		if s.peekAt(1) == '|' {
			return s.single(TokOrOr, "||")
		}
	}

	if isDigit(ch) {
		return s.scanNumber(), nil
	}

	if ch == '"' {
		return s.scanString()
	}

	if isAlpha(ch) {
		return s.scanIdentOrAlias(), nil
	}

	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	s.advance()
	return Token{}, s.lexError(startCol, fmt.Sprintf("unexpected character '%c'", r))
}

// Tokenize breaks an expression into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	return TokenizeAt(source, filename, 1, 1)
}

// TokenizeAt is like Tokenize but reports spans relative to the given
// 1-based line and column, for expressions embedded in a statement.
func TokenizeAt(source, filename string, line, col int) ([]Token, error) {
	s := newScanner(source, filename, line, col)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
