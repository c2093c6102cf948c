// Package parser implements the syntax analysis for toylang.
// It uses precedence climbing for expressions and recursive descent for
// statements and declarations. The result is the AST the runtime executes:
// a Program whose body is a right-nested chain of Sequence nodes.
package parser

import (
	"fmt"
	"strconv"

	"toylang/internal/ast"
	"toylang/internal/diag"
	"toylang/internal/span"
	"toylang/internal/token"
	"toylang/internal/value"
)

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone     = 0
	bpAdditive = 50 // + -
	bpMultiply = 60 // * /
	bpPrefix   = 70 // - ~
)

// infixBP returns the left binding power for an infix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.PLUS, token.MINUS:
		return bpAdditive
	case token.STAR, token.SLASH:
		return bpMultiply
	default:
		return bpNone
	}
}

var arithOps = map[token.Kind]value.Op{
	token.PLUS:  value.Sum,
	token.MINUS: value.Subtract,
	token.STAR:  value.Multiply,
	token.SLASH: value.Divide,
}

var relOps = map[token.Kind]value.Op{
	token.EQ:  value.Equals,
	token.LT:  value.Less,
	token.LTE: value.LessEqual,
	token.GT:  value.Greater,
	token.GTE: value.GreaterEqual,
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// ParseFile parses the entire token stream and returns the program root and
// diagnostics. An empty file yields a program whose body is an empty
// sequence.
func (p *Parser) ParseFile() (*ast.ProgramNode, []diag.Diagnostic) {
	startPos := p.peek().Span.Start

	var items []ast.Node
	for !p.isAtEnd() {
		before := p.pos
		if node := p.parseItem(); node != nil {
			items = append(items, node)
		}
		if p.pos == before {
			// a block closer with no open block
			tok := p.advance()
			p.error(diag.CodeUnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Lexeme))
		}
	}

	prog := ast.MakeProgram("", p.sequence(items, startPos))
	prog.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return prog, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) peekNextKind() token.Kind {
	if p.pos+1 >= len(p.tokens) {
		return token.EOF
	}
	return p.tokens[p.pos+1].Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error(diag.CodeExpected, tok.Span, fmt.Sprintf("expected '%s', got '%s'", kind, describe(tok)))
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

func (p *Parser) error(code string, s span.Span, msg string) {
	p.diags = append(p.diags, diag.Errorf(code, s, "%s", msg))
}

func describe(tok token.Token) string {
	if tok.Kind == token.EOF {
		return "end of file"
	}
	return tok.Lexeme
}

// ============================================================
// Error recovery
// ============================================================

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		// Stop after a terminator
		if p.check(token.SEMICOLON) {
			p.advance()
			return
		}
		// Stop at block closers
		if p.match(token.RBRACE, token.KW_END) {
			return
		}
		// Stop at statement-starting keywords
		if p.match(token.KW_IF, token.KW_IFELSE, token.KW_WHILE, token.KW_READ, token.KW_PRINT,
			token.KW_RETURN, token.KW_VAR, token.KW_FUN, token.KW_BEGIN) {
			return
		}
		p.advance()
	}
}

// ============================================================
// Items and blocks
// ============================================================

func (p *Parser) parseItem() ast.Node {
	switch p.peekKind() {
	case token.KW_VAR:
		return p.parseVarDecl()
	case token.KW_FUN:
		return p.parseFuncDecl()
	default:
		return p.parseStmt()
	}
}

// sequence chains items; an empty list becomes an empty sequence so that
// bodies are never missing.
func (p *Parser) sequence(items []ast.Node, start span.Position) ast.Node {
	if seq := ast.SequenceOf(items...); seq != nil {
		return seq
	}
	empty := ast.MakeSequence(nil, nil)
	empty.Span = p.makeSpan(start)
	return empty
}

// parseBlock parses: "{" { item } "}" | "begin" { item } "end"
func (p *Parser) parseBlock() ast.Node {
	start := p.peek()
	closer := token.RBRACE
	switch start.Kind {
	case token.LBRACE:
	case token.KW_BEGIN:
		closer = token.KW_END
	default:
		p.error(diag.CodeExpected, start.Span, fmt.Sprintf("expected '{' or 'begin', got '%s'", describe(start)))
		p.synchronize()
		return p.sequence(nil, start.Span.Start)
	}
	p.advance()

	var items []ast.Node
	for !p.check(closer) && !p.isAtEnd() {
		before := p.pos
		if node := p.parseItem(); node != nil {
			items = append(items, node)
		}
		if p.pos == before {
			// a stray closer of the other block style
			tok := p.advance()
			p.error(diag.CodeUnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", tok.Lexeme))
		}
	}
	p.expect(closer)

	return p.sequence(items, start.Span.Start)
}

// ============================================================
// Declaration parsing
// ============================================================

// parseType parses: "int" | "float"
func (p *Parser) parseType() value.Kind {
	tok := p.peek()
	if !tok.Kind.IsType() {
		p.error(diag.CodeBadType, tok.Span, fmt.Sprintf("expected type 'int' or 'float', got '%s'", describe(tok)))
		return value.Unknown
	}
	p.advance()
	kind, _ := value.ParseKind(tok.Lexeme)
	return kind
}

// parseVarDecl parses: var IDENT : type ;
func (p *Parser) parseVarDecl() ast.Node {
	start := p.advance() // consume 'var'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	if _, ok := p.expect(token.COLON); !ok {
		p.synchronize()
		return nil
	}
	kind := p.parseType()
	p.expect(token.SEMICOLON)

	decl := ast.MakeDeclare(nameTok.Lexeme, kind)
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseFuncDecl parses: fun IDENT ( [ param { , param } ] ) : type block
func (p *Parser) parseFuncDecl() ast.Node {
	start := p.advance() // consume 'fun'

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	params := p.parseParamList()
	p.expect(token.COLON)
	ret := p.parseType()
	body := p.parseBlock()

	decl := ast.MakeFunctionDecl(nameTok.Lexeme, value.ZeroOf(ret), params, body)
	decl.Span = p.makeSpan(start.Span.Start)
	if !containsReturn(body) {
		p.diags = append(p.diags, diag.Warningf(diag.CodeNoReturn, nameTok.Span,
			"function '%s' never returns a value", nameTok.Lexeme).
			WithHint("calls will evaluate to the function's previous result"))
	}
	return decl
}

// parseParamList parses: ( [ IDENT : type { , IDENT : type } ] )
func (p *Parser) parseParamList() []ast.Param {
	if _, ok := p.expect(token.LPAREN); !ok {
		return nil
	}
	var params []ast.Param
	for !p.check(token.RPAREN) && !p.isAtEnd() {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		p.expect(token.COLON)
		kind := p.parseType()
		params = append(params, ast.Param{Name: nameTok.Lexeme, Default: value.ZeroOf(kind)})
		if !p.check(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return params
}

// containsReturn reports whether a return statement appears anywhere in node.
func containsReturn(node ast.Node) bool {
	switch n := node.(type) {
	case *ast.ReturnNode:
		return true
	case *ast.SequenceNode:
		return containsReturn(n.First) || containsReturn(n.Second)
	case *ast.IfNode:
		return containsReturn(n.Body)
	case *ast.IfElseNode:
		return containsReturn(n.Then) || containsReturn(n.Else)
	case *ast.WhileNode:
		return containsReturn(n.Body)
	default:
		return false
	}
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Node {
	switch p.peekKind() {
	case token.IDENT:
		return p.parseIdentStmt()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_IFELSE:
		return p.parseIfElseStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.KW_READ:
		return p.parseReadStmt()
	case token.KW_PRINT:
		return p.parsePrintStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.LBRACE, token.KW_BEGIN:
		return p.parseBlock()
	case token.SEMICOLON:
		p.advance() // empty statement
		return nil
	case token.RBRACE, token.KW_END:
		// closer handled by the enclosing block
		return nil
	default:
		tok := p.peek()
		p.error(diag.CodeUnexpectedToken, tok.Span, fmt.Sprintf("unexpected token: '%s'", describe(tok)))
		p.advance()
		p.synchronize()
		return nil
	}
}

// parseIdentStmt parses: IDENT := expr ; | IDENT ( args ) ;
func (p *Parser) parseIdentStmt() ast.Node {
	start := p.peek()

	if p.peekNextKind() == token.LPAREN {
		call := p.parseCall()
		p.expect(token.SEMICOLON)
		return call
	}

	nameTok := p.advance()
	if _, ok := p.expect(token.ASSIGN); !ok {
		p.synchronize()
		return nil
	}
	target := p.ident(nameTok)
	source := p.parseRequiredExpr()
	p.expect(token.SEMICOLON)

	stmt := ast.MakeAssign(target, source)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseIfStmt parses: if ( cond ) block [ else ( block | if-stmt ) ]
func (p *Parser) parseIfStmt() ast.Node {
	start := p.advance() // consume 'if'
	cond := p.parseParenCond()
	body := p.parseBlock()

	if !p.check(token.KW_ELSE) {
		stmt := ast.MakeIf(cond, body)
		stmt.Span = p.makeSpan(start.Span.Start)
		return stmt
	}
	p.advance() // consume 'else'

	var elseBody ast.Node
	if p.check(token.KW_IF) {
		elseBody = p.parseIfStmt()
	} else {
		elseBody = p.parseBlock()
	}
	stmt := ast.MakeIfElse(cond, body, elseBody)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseIfElseStmt parses: ifelse ( cond ) block block
func (p *Parser) parseIfElseStmt() ast.Node {
	start := p.advance() // consume 'ifelse'
	cond := p.parseParenCond()
	thenBody := p.parseBlock()
	elseBody := p.parseBlock()

	stmt := ast.MakeIfElse(cond, thenBody, elseBody)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseWhileStmt parses: while ( cond ) block
func (p *Parser) parseWhileStmt() ast.Node {
	start := p.advance() // consume 'while'
	cond := p.parseParenCond()
	body := p.parseBlock()

	stmt := ast.MakeWhile(cond, body)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseReadStmt parses: read IDENT ;
func (p *Parser) parseReadStmt() ast.Node {
	start := p.advance() // consume 'read'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.synchronize()
		return nil
	}
	p.expect(token.SEMICOLON)

	stmt := ast.MakeRead(p.ident(nameTok))
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parsePrintStmt parses: print expr ;
func (p *Parser) parsePrintStmt() ast.Node {
	start := p.advance() // consume 'print'
	operand := p.parseRequiredExpr()
	p.expect(token.SEMICOLON)

	stmt := ast.MakePrint(operand)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseReturnStmt parses: return expr ;
func (p *Parser) parseReturnStmt() ast.Node {
	start := p.advance() // consume 'return'
	operand := p.parseRequiredExpr()
	p.expect(token.SEMICOLON)

	stmt := ast.MakeReturn(operand)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// ============================================================
// Conditions
// ============================================================

// parseParenCond parses: ( cond )
func (p *Parser) parseParenCond() *ast.RelationalNode {
	if _, ok := p.expect(token.LPAREN); !ok {
		p.synchronize()
		return nil
	}
	cond := p.parseCond()
	p.expect(token.RPAREN)
	return cond
}

// parseCond parses: expr [ relop expr ]. Without a relational operator the
// condition tests the expression against zero.
func (p *Parser) parseCond() *ast.RelationalNode {
	start := p.peek().Span.Start
	left := p.parseRequiredExpr()

	var cond *ast.RelationalNode
	if op, ok := relOps[p.peekKind()]; ok {
		p.advance()
		cond = ast.MakeRelationalExpr(op, left, p.parseRequiredExpr())
	} else {
		cond = ast.MakeRelationalExpr(value.Zero, left, nil)
	}
	cond.Span = p.makeSpan(start)
	return cond
}

// ============================================================
// Expression parsing (precedence climbing)
// ============================================================

// parseRequiredExpr parses an expression and reports a diagnostic when none
// is present.
func (p *Parser) parseRequiredExpr() ast.Expr {
	expr := p.parseExpr(bpNone)
	if expr == nil {
		tok := p.peek()
		p.error(diag.CodeExpected, tok.Span, fmt.Sprintf("expected expression, got '%s'", describe(tok)))
	}
	return expr
}

// parseExpr parses an expression with the given minimum binding power.
func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()
	if left == nil {
		return nil
	}

	for {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			break
		}
		left = p.led(left, bp)
	}

	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.INT:
		p.advance()
		n, _ := strconv.ParseInt(tok.Lexeme, 10, 32)
		lit := ast.MakeLiteral(value.Int(int32(n)))
		lit.Span = tok.Span
		return lit

	case token.FLOAT:
		p.advance()
		f, _ := strconv.ParseFloat(tok.Lexeme, 32)
		lit := ast.MakeLiteral(value.Float(float32(f)))
		lit.Span = tok.Span
		return lit

	case token.IDENT:
		if p.peekNextKind() == token.LPAREN {
			return p.parseCall()
		}
		p.advance()
		return p.ident(tok)

	case token.LPAREN:
		// Grouped expression: ( expr )
		p.advance() // consume '('
		expr := p.parseRequiredExpr()
		p.expect(token.RPAREN)
		return expr

	case token.MINUS, token.TILDE:
		// Unary negation: -expr or ~expr
		p.advance()
		operand := p.parseExpr(bpPrefix)
		if operand == nil {
			p.error(diag.CodeExpected, p.peek().Span, fmt.Sprintf("expected operand after '%s'", tok.Lexeme))
			return nil
		}
		neg := ast.MakeArithmeticExpr(value.Negative, operand, nil)
		neg.Span = span.Span{Start: tok.Span.Start, End: operand.GetSpan().End}
		return neg

	default:
		return nil
	}
}

// led handles infix (left denotation) parsing.
func (p *Parser) led(left ast.Expr, bp int) ast.Expr {
	opTok := p.advance()
	right := p.parseExpr(bp)
	if right == nil {
		p.error(diag.CodeExpected, p.peek().Span, fmt.Sprintf("expected operand after '%s'", opTok.Lexeme))
		return left
	}
	node := ast.MakeArithmeticExpr(arithOps[opTok.Kind], left, right)
	node.Span = span.Join(left.GetSpan(), right.GetSpan())
	return node
}

// parseCall parses: IDENT ( [ expr { , expr } ] )
func (p *Parser) parseCall() *ast.CallNode {
	nameTok := p.advance()
	p.advance() // consume '('

	var args []ast.Expr
	for !p.check(token.RPAREN) && !p.isAtEnd() {
		arg := p.parseRequiredExpr()
		if arg == nil {
			break
		}
		args = append(args, arg)
		if !p.check(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)

	chain := ast.ArgsOf(args...)
	for a := chain; a != nil; a = a.Rest {
		a.Span = a.Arg.GetSpan()
	}
	call := ast.MakeFunctionCall(nameTok.Lexeme, chain)
	call.Span = p.makeSpan(nameTok.Span.Start)
	return call
}

func (p *Parser) ident(tok token.Token) *ast.IdentNode {
	id := ast.MakeIdentifier(tok.Lexeme)
	id.Span = tok.Span
	return id
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}
