// Package token defines the token types produced by the lexer.
package token

import (
	"fmt"
	"toylang/internal/span"
)

// Kind represents the type of a token.
type Kind int

const (
	// Special tokens
	ILLEGAL Kind = iota
	EOF

	// Literals
	IDENT // identifiers: x, total, n1
	INT   // integer literals: 123
	FLOAT // float literals: 3.14

	// Operators
	ASSIGN // :=
	PLUS   // +
	MINUS  // -
	STAR   // *
	SLASH  // /
	TILDE  // ~ (negation)

	EQ  // = or ==
	LT  // <
	LTE // <=
	GT  // >
	GTE // >=

	// Delimiters
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :

	// Keywords
	KW_BEGIN
	KW_END
	KW_VAR
	KW_FUN
	KW_INT
	KW_FLOAT
	KW_IF
	KW_IFELSE
	KW_ELSE
	KW_WHILE
	KW_READ
	KW_PRINT
	KW_RETURN
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT: "IDENT",
	INT:   "INT",
	FLOAT: "FLOAT",

	ASSIGN: ":=",
	PLUS:   "+",
	MINUS:  "-",
	STAR:   "*",
	SLASH:  "/",
	TILDE:  "~",
	EQ:     "==",
	LT:     "<",
	LTE:    "<=",
	GT:     ">",
	GTE:    ">=",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",

	KW_BEGIN:  "begin",
	KW_END:    "end",
	KW_VAR:    "var",
	KW_FUN:    "fun",
	KW_INT:    "int",
	KW_FLOAT:  "float",
	KW_IF:     "if",
	KW_IFELSE: "ifelse",
	KW_ELSE:   "else",
	KW_WHILE:  "while",
	KW_READ:   "read",
	KW_PRINT:  "print",
	KW_RETURN: "return",
}

// String returns the human-readable name for a token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword returns true if the kind is a keyword.
func (k Kind) IsKeyword() bool {
	return k >= KW_BEGIN && k <= KW_RETURN
}

// IsLiteral returns true if the kind is a literal (ident/int/float).
func (k Kind) IsLiteral() bool {
	return k >= IDENT && k <= FLOAT
}

// IsRelational returns true for the comparison operators.
func (k Kind) IsRelational() bool {
	return k >= EQ && k <= GTE
}

// IsType returns true for the type keywords.
func (k Kind) IsType() bool {
	return k == KW_INT || k == KW_FLOAT
}

var keywords = map[string]Kind{
	"begin":  KW_BEGIN,
	"end":    KW_END,
	"var":    KW_VAR,
	"fun":    KW_FUN,
	"int":    KW_INT,
	"float":  KW_FLOAT,
	"if":     KW_IF,
	"ifelse": KW_IFELSE,
	"else":   KW_ELSE,
	"while":  KW_WHILE,
	"read":   KW_READ,
	"print":  KW_PRINT,
	"return": KW_RETURN,
}

// LookupIdent returns the keyword Kind for ident, or IDENT if it is not a keyword.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return IDENT
}

// Token represents a lexical token with its kind, text, and source location.
type Token struct {
	Kind   Kind      `json:"kind"`
	Lexeme string    `json:"lexeme"`
	Span   span.Span `json:"span"`
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s %q %s", t.Kind, t.Lexeme, t.Span.Start)
}
