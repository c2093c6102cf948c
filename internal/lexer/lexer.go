// Package lexer turns toylang source text into tokens.
//
// Whitespace and comments ("//" or "#" to end of line) are dropped. Number
// literals are range-checked against the 32-bit value payloads here, so the
// parser never sees a literal it cannot represent.
package lexer

import (
	"strconv"

	"toylang/internal/diag"
	"toylang/internal/span"
	"toylang/internal/token"
)

// Lexer scans one source text. It is single-use.
type Lexer struct {
	source   string
	filename string

	pos  int // byte offset of the next unread character
	line int
	col  int

	diags []diag.Diagnostic
}

// New creates a lexer over source. filename is informational.
func New(source, filename string) *Lexer {
	return &Lexer{source: source, filename: filename, line: 1, col: 1}
}

// Tokenize scans to the end of input. The token slice always ends with
// EOF; lexical errors are reported as diagnostics next to ILLEGAL tokens.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			return tokens, l.diags
		}
	}
}

// ---- cursor ----

func (l *Lexer) atEnd() bool { return l.pos >= len(l.source) }

// peekAt looks n bytes ahead without consuming; 0 past the end.
func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.source) {
		return 0
	}
	return l.source[l.pos+n]
}

func (l *Lexer) peek() byte { return l.peekAt(0) }

func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// consumeWhile advances past every byte satisfying pred.
func (l *Lexer) consumeWhile(pred func(byte) bool) {
	for !l.atEnd() && pred(l.peek()) {
		l.advance()
	}
}

func (l *Lexer) position() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) emit(kind token.Kind, start span.Position) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: l.source[start.Offset:l.pos],
		Span:   span.Span{Start: start, End: l.position()},
	}
}

func (l *Lexer) errorf(code string, start span.Position, format string, args ...interface{}) {
	s := span.Span{Start: start, End: l.position()}
	l.diags = append(l.diags, diag.Errorf(code, s, format, args...))
}

// skipTrivia drops whitespace and comments.
func (l *Lexer) skipTrivia() {
	for !l.atEnd() {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '#' || (ch == '/' && l.peekAt(1) == '/'):
			l.consumeWhile(func(c byte) bool { return c != '\n' })
		default:
			return
		}
	}
}

// ---- tokens ----

// single maps one-byte tokens that never start a longer operator.
var single = map[byte]token.Kind{
	'(': token.LPAREN,
	')': token.RPAREN,
	'{': token.LBRACE,
	'}': token.RBRACE,
	',': token.COMMA,
	';': token.SEMICOLON,
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.STAR,
	'/': token.SLASH,
	'~': token.TILDE,
}

// withEquals maps a byte to its kind alone and its kind when followed by '='.
// "=" and "==" both mean equality.
var withEquals = map[byte][2]token.Kind{
	':': {token.COLON, token.ASSIGN},
	'=': {token.EQ, token.EQ},
	'<': {token.LT, token.LTE},
	'>': {token.GT, token.GTE},
}

func (l *Lexer) next() token.Token {
	l.skipTrivia()
	start := l.position()
	if l.atEnd() {
		return l.emit(token.EOF, start)
	}

	switch ch := l.peek(); {
	case isDigit(ch):
		return l.number(start)
	case isIdentStart(ch):
		l.consumeWhile(isIdentPart)
		tok := l.emit(token.IDENT, start)
		tok.Kind = token.LookupIdent(tok.Lexeme)
		return tok
	}

	ch := l.advance()
	if kind, ok := single[ch]; ok {
		return l.emit(kind, start)
	}
	if kinds, ok := withEquals[ch]; ok {
		if l.peek() == '=' {
			l.advance()
			return l.emit(kinds[1], start)
		}
		return l.emit(kinds[0], start)
	}

	if ch >= 0x80 {
		l.errorf(diag.CodeUnexpectedChar, start, "unexpected byte 0x%02x", ch)
	} else {
		l.errorf(diag.CodeUnexpectedChar, start, "unexpected character: '%c'", ch)
	}
	return l.emit(token.ILLEGAL, start)
}

// number scans digits with an optional fraction. A '.' not followed by a
// digit ends the literal.
func (l *Lexer) number(start span.Position) token.Token {
	l.consumeWhile(isDigit)
	if l.peek() != '.' || !isDigit(l.peekAt(1)) {
		tok := l.emit(token.INT, start)
		if _, err := strconv.ParseInt(tok.Lexeme, 10, 32); err != nil {
			l.errorf(diag.CodeBadNumber, start, "integer literal %s does not fit in 32 bits", tok.Lexeme)
		}
		return tok
	}

	l.advance()
	l.consumeWhile(isDigit)
	tok := l.emit(token.FLOAT, start)
	if _, err := strconv.ParseFloat(tok.Lexeme, 32); err != nil {
		l.errorf(diag.CodeBadNumber, start, "float literal %s is out of range", tok.Lexeme)
	}
	return tok
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }
