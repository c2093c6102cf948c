package parser

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"toylang/internal/ast"
	"toylang/internal/diag"
	"toylang/internal/lexer"
	"toylang/internal/value"
)

// helper: parse source and return AST + check for no errors
func parseOK(t *testing.T, source string) *ast.ProgramNode {
	t.Helper()
	l := lexer.New(source, "test.toy")
	tokens, lexDiags := l.Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	p := New(tokens)
	prog, parseDiags := p.ParseFile()
	if diag.HasErrors(parseDiags) {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return prog
}

// helper: parse source expecting diagnostics
func parseDiags(t *testing.T, source string) []diag.Diagnostic {
	t.Helper()
	l := lexer.New(source, "test.toy")
	tokens, lexDiags := l.Tokenize()
	p := New(tokens)
	_, diags := p.ParseFile()
	return append(lexDiags, diags...)
}

// items flattens the right-nested sequence chain of a body.
func items(node ast.Node) []ast.Node {
	seq, ok := node.(*ast.SequenceNode)
	if !ok {
		if node == nil {
			return nil
		}
		return []ast.Node{node}
	}
	return append(items(seq.First), items(seq.Second)...)
}

// helper: parse and return JSON string (for golden-test style checks)
func parseToJSON(t *testing.T, source string) string {
	t.Helper()
	prog := parseOK(t, source)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ast.NodeToMap(prog)); err != nil {
		t.Fatalf("json error: %v", err)
	}
	return buf.String()
}

func TestParseVarDecl(t *testing.T) {
	prog := parseOK(t, `var x : int; var y : float;`)
	body := items(prog.Body)
	if len(body) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(body))
	}
	decl, ok := body[0].(*ast.DeclareNode)
	if !ok {
		t.Fatalf("expected DeclareNode, got %T", body[0])
	}
	if decl.Name != "x" || decl.Kind != value.IntegerKind {
		t.Errorf("expected x:integer, got %s:%s", decl.Name, decl.Kind)
	}
	if body[1].(*ast.DeclareNode).Kind != value.FloatKind {
		t.Error("expected y to be float")
	}
}

func TestParseEmptyProgram(t *testing.T) {
	prog := parseOK(t, "// nothing here\n")
	seq, ok := prog.Body.(*ast.SequenceNode)
	if !ok || seq.First != nil || seq.Second != nil {
		t.Fatalf("expected an empty sequence, got %#v", prog.Body)
	}
}

func TestParseAssignPrecedence(t *testing.T) {
	prog := parseOK(t, `z := 1 + 2 * 3;`)
	assign, ok := prog.Body.(*ast.AssignNode)
	if !ok {
		t.Fatalf("expected AssignNode, got %T", prog.Body)
	}
	if assign.Target.Name != "z" {
		t.Errorf("expected target z, got %q", assign.Target.Name)
	}
	// 1 + (2 * 3)
	sum, ok := assign.Source.(*ast.ArithNode)
	if !ok || sum.Op != value.Sum || sum.Instruction() != ast.AdditiveExpr {
		t.Fatalf("expected additive '+', got %#v", assign.Source)
	}
	prod, ok := sum.Right.(*ast.ArithNode)
	if !ok || prod.Op != value.Multiply || prod.Instruction() != ast.MultiplicativeExpr {
		t.Fatalf("expected multiplicative '*' on the right, got %#v", sum.Right)
	}
}

func TestParseLeftAssociative(t *testing.T) {
	prog := parseOK(t, `z := 10 - 4 - 3;`)
	outer := prog.Body.(*ast.AssignNode).Source.(*ast.ArithNode)
	if _, ok := outer.Left.(*ast.ArithNode); !ok {
		t.Fatalf("expected (10 - 4) - 3, got right operand %T", outer.Right)
	}
}

func TestParseUnaryNegation(t *testing.T) {
	for _, src := range []string{`z := -x;`, `z := ~x;`} {
		prog := parseOK(t, src)
		neg, ok := prog.Body.(*ast.AssignNode).Source.(*ast.ArithNode)
		if !ok || neg.Op != value.Negative || neg.Right != nil {
			t.Errorf("%s: expected negation node, got %#v", src, prog.Body)
		}
	}
}

func TestParseConditions(t *testing.T) {
	tests := []struct {
		src string
		op  value.Op
	}{
		{`if (x < 1) {}`, value.Less},
		{`if (x > 1) {}`, value.Greater},
		{`if (x = 1) {}`, value.Equals},
		{`if (x == 1) {}`, value.Equals},
		{`if (x <= 1) {}`, value.LessEqual},
		{`if (x >= 1) {}`, value.GreaterEqual},
		{`if (x) {}`, value.Zero},
	}
	for _, tt := range tests {
		prog := parseOK(t, tt.src)
		stmt, ok := prog.Body.(*ast.IfNode)
		if !ok {
			t.Fatalf("%s: expected IfNode, got %T", tt.src, prog.Body)
		}
		if stmt.Cond.Op != tt.op {
			t.Errorf("%s: expected op %s, got %s", tt.src, tt.op, stmt.Cond.Op)
		}
		if tt.op == value.Zero && stmt.Cond.Right != nil {
			t.Errorf("%s: zero test should have no right operand", tt.src)
		}
	}
}

func TestParseIfElseForms(t *testing.T) {
	for _, src := range []string{
		`if (x) { print 1; } else { print 2; }`,
		`ifelse (x) { print 1; } { print 2; }`,
		`ifelse (x) begin print 1; end begin print 2; end`,
	} {
		prog := parseOK(t, src)
		stmt, ok := prog.Body.(*ast.IfElseNode)
		if !ok {
			t.Fatalf("%s: expected IfElseNode, got %T", src, prog.Body)
		}
		if _, ok := stmt.Then.(*ast.PrintNode); !ok {
			t.Errorf("%s: expected print in then branch, got %T", src, stmt.Then)
		}
		if _, ok := stmt.Else.(*ast.PrintNode); !ok {
			t.Errorf("%s: expected print in else branch, got %T", src, stmt.Else)
		}
	}
}

func TestParseElseIfChain(t *testing.T) {
	prog := parseOK(t, `if (x < 0) { print 0; } else if (x < 10) { print 1; } else { print 2; }`)
	outer := prog.Body.(*ast.IfElseNode)
	if _, ok := outer.Else.(*ast.IfElseNode); !ok {
		t.Fatalf("expected nested IfElseNode, got %T", outer.Else)
	}
}

func TestParseWhile(t *testing.T) {
	prog := parseOK(t, `
i := 0;
while (i < 3) {
  print i;
  i := i + 1;
}
`)
	body := items(prog.Body)
	if len(body) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(body))
	}
	loop, ok := body[1].(*ast.WhileNode)
	if !ok {
		t.Fatalf("expected WhileNode, got %T", body[1])
	}
	if len(items(loop.Body)) != 2 {
		t.Errorf("expected 2 statements in loop body, got %d", len(items(loop.Body)))
	}
}

func TestParseReadPrint(t *testing.T) {
	prog := parseOK(t, `read n; print n * 2;`)
	body := items(prog.Body)
	if r, ok := body[0].(*ast.ReadNode); !ok || r.Target.Name != "n" {
		t.Errorf("expected read n, got %#v", body[0])
	}
	if _, ok := body[1].(*ast.PrintNode); !ok {
		t.Errorf("expected PrintNode, got %T", body[1])
	}
}

func TestParseFuncDecl(t *testing.T) {
	prog := parseOK(t, `
fun add(a: int, b: float): float {
  return b + 1.0;
}
print add(1, 2.0);
add(3, 4.0);
`)
	body := items(prog.Body)
	if len(body) != 3 {
		t.Fatalf("expected 3 items, got %d", len(body))
	}
	decl, ok := body[0].(*ast.FunctionDeclNode)
	if !ok {
		t.Fatalf("expected FunctionDeclNode, got %T", body[0])
	}
	if decl.Name != "add" || len(decl.Params) != 2 {
		t.Fatalf("expected add with 2 params, got %s with %d", decl.Name, len(decl.Params))
	}
	if decl.Params[0].Name != "a" || decl.Params[0].Default.Kind() != value.IntegerKind {
		t.Errorf("unexpected first param %+v", decl.Params[0])
	}
	if decl.Params[1].Default.Kind() != value.FloatKind || decl.Return.Kind() != value.FloatKind {
		t.Error("expected float param and float return")
	}

	call, ok := body[1].(*ast.PrintNode).Operand.(*ast.CallNode)
	if !ok || call.Name != "add" || call.ArgCount() != 2 {
		t.Fatalf("expected call add/2, got %#v", body[1])
	}
	if _, ok := body[2].(*ast.CallNode); !ok {
		t.Errorf("expected call statement, got %T", body[2])
	}
}

func TestParseFunctionWithoutReturnWarns(t *testing.T) {
	diags := parseDiags(t, `fun f(): int { print 1; }`)
	if diag.HasErrors(diags) {
		t.Fatalf("unexpected errors: %v", diags)
	}
	if len(diags) != 1 || diags[0].Code != diag.CodeNoReturn || diags[0].Severity != diag.Warning {
		t.Errorf("expected a %s warning, got %v", diag.CodeNoReturn, diags)
	}
}

func TestParseBeginEndBlock(t *testing.T) {
	prog := parseOK(t, `begin var x : int; x := 1; end`)
	if len(items(prog.Body)) != 2 {
		t.Errorf("expected block with 2 items, got %#v", prog.Body)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		code string
	}{
		{`x := ;`, diag.CodeExpected},
		{`var x : string;`, diag.CodeBadType},
		{`print 1`, diag.CodeExpected},
		{`+ 1;`, diag.CodeUnexpectedToken},
		{`while x < 1 {}`, diag.CodeExpected},
		{`}`, diag.CodeUnexpectedToken},
	}
	for _, tt := range tests {
		diags := parseDiags(t, tt.src)
		if len(diags) == 0 {
			t.Errorf("%q: expected diagnostics", tt.src)
			continue
		}
		if diags[0].Code != tt.code {
			t.Errorf("%q: expected %s first, got %v", tt.src, tt.code, diags)
		}
	}
}

func TestParseRecoversAfterError(t *testing.T) {
	diags := parseDiags(t, "x := ;\ny := ;\nprint 1;")
	if len(diags) != 2 {
		t.Errorf("expected one diagnostic per broken statement, got %v", diags)
	}
}

func TestParseSpans(t *testing.T) {
	prog := parseOK(t, "var x : int;\nx := 42;")
	assign := items(prog.Body)[1].(*ast.AssignNode)
	s := assign.GetSpan()
	if s.Start.Line != 2 || s.Start.Column != 1 {
		t.Errorf("expected assignment at 2:1, got %s", s.Start)
	}
	if assign.Source.GetSpan().Start.Column != 6 {
		t.Errorf("expected literal at column 6, got %s", assign.Source.GetSpan().Start)
	}
}

func TestParseToJSON(t *testing.T) {
	out := parseToJSON(t, `i := 0; while (i < 3) { i := i + 1; } if (i >= 3) { print i; }`)
	for _, want := range []string{`"kind": "Program"`, `"kind": "While"`, `"op": "<"`, `"op": ">="`, `"kind": "AdditiveExpr"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in JSON:\n%s", want, out)
		}
	}
}
