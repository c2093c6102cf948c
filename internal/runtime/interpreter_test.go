package runtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"toylang/internal/ast"
	"toylang/internal/diag"
	"toylang/internal/lexer"
	"toylang/internal/parser"
	"toylang/internal/symtab"
	"toylang/internal/value"
)

// runWith parses and executes source with the given console input and
// options, returning captured output, the global table and any error.
func runWith(t *testing.T, source, input string, opts Options) (string, *symtab.Table, error) {
	t.Helper()
	l := lexer.New(source, "test.toy")
	tokens, lexDiags := l.Tokenize()
	p := parser.New(tokens)
	prog, parseDiags := p.ParseFile()
	if diags := append(lexDiags, parseDiags...); diag.HasErrors(diags) {
		t.Fatalf("parse errors: %v", diags)
	}

	var buf bytes.Buffer
	console, err := NewConsole(strings.NewReader(input), &buf, "", "")
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	global := symtab.New(symtab.DefaultCapacity)
	err = NewInterpreter(console, opts).Run(prog, global)
	return buf.String(), global, err
}

// runSource runs source in compatibility mode without input.
func runSource(t *testing.T, source string) (string, error) {
	t.Helper()
	out, _, err := runWith(t, source, "", DefaultOptions())
	return out, err
}

func strictOptions() Options {
	opts := DefaultOptions()
	opts.Strict = true
	return opts
}

func expectOutput(t *testing.T, source, expected string) {
	t.Helper()
	out, err := runSource(t, source)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if strings.TrimRight(out, "\n") != strings.TrimRight(expected, "\n") {
		t.Errorf("output mismatch:\nexpected: %q\ngot:      %q", expected, out)
	}
}

func expectError(t *testing.T, source, contains string) error {
	t.Helper()
	_, err := runSource(t, source)
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", contains)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Errorf("expected error containing %q, got: %v", contains, err)
	}
	return err
}

func expectStructural(t *testing.T, err error, instr ast.InstructionKind) {
	t.Helper()
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StructuralError, got %T: %v", err, err)
	}
	if se.Instruction != instr {
		t.Errorf("expected failing instruction %s, got %s", instr, se.Instruction)
	}
}

// ---- Source-level tests ----

func TestPrintLiteral(t *testing.T) {
	expectOutput(t, `print 42;`, "42\n")
	expectOutput(t, `print 2.5;`, "2.5\n")
}

func TestArithmetic(t *testing.T) {
	expectOutput(t, `print 1 + 2 * 3;`, "7\n")
	expectOutput(t, `print (1 + 2) * 3;`, "9\n")
	expectOutput(t, `print 10 / 3;`, "3\n") // integer division
	expectOutput(t, `print 1.5 + 2.5;`, "4\n")
	expectOutput(t, `print -4 + 1;`, "-3\n")
	expectOutput(t, `print ~2.5;`, "-2.5\n")
}

func TestSumScenario(t *testing.T) {
	out, global, err := runWith(t, `x := 3; y := 4; z := x + y; print z;`, "", DefaultOptions())
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "7\n" {
		t.Errorf("expected 7, got %q", out)
	}
	if v := global.Value("z"); v != value.Int(7) {
		t.Errorf("expected z bound to integer 7, got %#v", v)
	}
}

func TestWhileScenario(t *testing.T) {
	expectOutput(t, `
i := 0;
while (i < 3) {
  print i;
  i := i + 1;
}
`, "0\n1\n2\n")
}

func TestDeclarationsStartAtZero(t *testing.T) {
	expectOutput(t, `
var n : int;
var f : float;
print n;
print f;
`, "0\n0\n")
}

func TestRedeclareSameKindIsNoop(t *testing.T) {
	expectOutput(t, `var n : int; n := 5; var n : int; print n;`, "5\n")
}

func TestRedeclareDifferentKind(t *testing.T) {
	err := expectError(t, `var n : int; var n : float;`, "already declared")
	if !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestIfElse(t *testing.T) {
	expectOutput(t, `
x := 10;
if (x > 5) { print 1; } else { print 2; }
ifelse (x < 5) { print 3; } { print 4; }
if (x) { print 5; }
if (x - 10) { print 6; }
`, "1\n4\n5\n")
}

func TestElseIfChain(t *testing.T) {
	expectOutput(t, `
x := 3;
if (x > 5) {
  print 1;
} else if (x > 1) {
  print 2;
} else {
  print 3;
}
`, "2\n")
}

func TestRelationalOperators(t *testing.T) {
	expectOutput(t, `
if (2 <= 2) { print 1; }
if (3 >= 4) { print 2; }
if (2 = 2) { print 3; }
if (2 == 3) { print 4; }
if (2.5 > 1.5) { print 5; }
`, "1\n3\n5\n")
}

func TestAssignKindMismatch(t *testing.T) {
	_, err := runSource(t, `var x : int; x := 1.5;`)
	if err == nil {
		t.Fatal("expected error")
	}
	expectStructural(t, err, ast.Assign)
}

func TestUnboundIdentifier(t *testing.T) {
	// compatibility mode reads unbound names as integer zero
	expectOutput(t, `print y;`, "0\n")

	_, _, err := runWith(t, `print y;`, "", strictOptions())
	if !errors.Is(err, ErrUnboundIdentifier) {
		t.Fatalf("expected ErrUnboundIdentifier, got %v", err)
	}
	_, _, err = runWith(t, `y := 1;`, "", strictOptions())
	if !errors.Is(err, ErrUnboundIdentifier) {
		t.Fatalf("strict assignment to undeclared name: expected ErrUnboundIdentifier, got %v", err)
	}
}

func TestMixedArithmeticModes(t *testing.T) {
	expectOutput(t, `print 1 + 2.5;`, "0\n")

	_, _, err := runWith(t, `print 1 + 2.5;`, "", strictOptions())
	if !errors.Is(err, value.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch in strict mode, got %v", err)
	}
}

func TestMixedComparisonModes(t *testing.T) {
	expectOutput(t, `if (5 = 5.0) { print 1; } else { print 2; }`, "2\n")

	_, _, err := runWith(t, `if (5 = 5.0) { print 1; }`, "", strictOptions())
	if !errors.Is(err, value.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch in strict mode, got %v", err)
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{`print 1 / 0;`, `print 1.0 / 0.0;`} {
		_, err := runSource(t, src)
		if !errors.Is(err, value.ErrDivisionByZero) {
			t.Errorf("%s: expected ErrDivisionByZero, got %v", src, err)
		}
		var re *RuntimeError
		if !errors.As(err, &re) || re.Span.Start.Line != 1 {
			t.Errorf("%s: expected a located RuntimeError, got %v", src, err)
		}
	}
}

// ---- Functions ----

func TestFunction(t *testing.T) {
	expectOutput(t, `
fun add(a: int, b: int): int {
  return a + b;
}
print add(2, 3);
`, "5\n")
}

func TestFunctionResultPersistsUnderName(t *testing.T) {
	out, global, err := runWith(t, `
fun twice(n: int): int { return n * 2; }
twice(21);
print twice;
`, "", DefaultOptions())
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "42\n" {
		t.Errorf("expected 42, got %q", out)
	}
	if !global.IsFunction("twice") || global.Value("twice") != value.Int(42) {
		t.Errorf("expected twice to hold 42, got %v", global.Value("twice"))
	}
}

func TestReturnEndsFunction(t *testing.T) {
	expectOutput(t, `
fun sign(n: int): int {
  if (n < 0) { return -1; }
  while (n > 0) { return 1; }
  return 0;
}
print sign(-5);
print sign(7);
print sign(0);
`, "-1\n1\n0\n")
}

func TestRecursion(t *testing.T) {
	expectOutput(t, `
fun fact(n: int): int {
  if (n <= 1) { return 1; }
  return n * fact(n - 1);
}
fun fib(n: int): int {
  if (n < 2) { return n; }
  return fib(n - 1) + fib(n - 2);
}
print fact(10);
print fib(15);
`, "3628800\n610\n")
}

func TestParametersDoNotLeak(t *testing.T) {
	expectOutput(t, `
n := 100;
fun f(n: int): int { local := n + 1; return local; }
print f(1);
print n;
print local;
`, "2\n100\n0\n")
}

func TestFunctionSeesGlobals(t *testing.T) {
	expectOutput(t, `
total := 0;
fun bump(by: int): int { total := total + by; return total; }
bump(2);
bump(3);
print total;
`, "5\n")
}

func TestNestedFunctionRecursion(t *testing.T) {
	expectOutput(t, `
fun outer(n: int): int {
  fun inner(k: int): int {
    if (k < 1) { return 0; }
    return k + inner(k - 1);
  }
  return inner(n);
}
print outer(3);
print outer(4);
`, "6\n10\n")
}

func TestNestedFunctionDoesNotSeeCallerLocals(t *testing.T) {
	expectOutput(t, `
fun peek(): int { return hidden; }
fun caller(): int { hidden := 9; return peek(); }
print caller();
`, "0\n")
}

func TestFunctionDeclaredInLoopBody(t *testing.T) {
	out, global, err := runWith(t, `
i := 0;
while (i < 2) {
  fun twice(n: int): int { return n * 2; }
  print twice(i);
  i := i + 1;
}
`, "", DefaultOptions())
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "0\n2\n" {
		t.Errorf("unexpected output %q", out)
	}
	if !global.IsFunction("twice") {
		t.Error("expected twice to stay bound in the global table")
	}

	err = expectError(t, `
fun f(): int { return 1; }
fun f(): int { return 2; }
`, "already declared")
	if !errors.Is(err, symtab.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for a distinct redeclaration, got %v", err)
	}
}

func TestFunctionWithoutReturnKeepsPreviousResult(t *testing.T) {
	expectOutput(t, `
fun noop(): int { x := 1; }
print noop();
`, "0\n")
}

func TestArityMismatch(t *testing.T) {
	err := expectError(t, `fun f(a: int, b: int): int { return a; } print f(1);`, "expects 2 arguments")
	expectStructural(t, err, ast.FunctionCall)

	err = expectError(t, `fun f(a: int): int { return a; } print f(1, 2);`, "too many arguments")
	expectStructural(t, err, ast.ArgBinding)
}

func TestCallOfNonFunction(t *testing.T) {
	err := expectError(t, `x := 1; print x(2);`, "not a function")
	expectStructural(t, err, ast.FunctionCall)
}

func TestArgumentKindInStrictMode(t *testing.T) {
	src := `fun f(a: int): int { return a; } print f(1.5);`
	if _, err := runSource(t, src); err != nil {
		t.Fatalf("compatibility mode should bind as given: %v", err)
	}
	_, _, err := runWith(t, src, "", strictOptions())
	if !errors.Is(err, value.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestCallDepthLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCallDepth = 50
	_, _, err := runWith(t, `fun loop(n: int): int { return loop(n + 1); } print loop(0);`, "", opts)
	if err == nil || !strings.Contains(err.Error(), "maximum call depth 50") {
		t.Fatalf("expected call depth error, got %v", err)
	}
}

func TestReturnOutsideFunction(t *testing.T) {
	err := expectError(t, `return 1;`, "return outside of function")
	expectStructural(t, err, ast.Return)
}

// ---- Console input ----

func TestRead(t *testing.T) {
	out, global, err := runWith(t, `
var n : int;
var f : float;
read n;
read f;
print n * 2;
print f;
`, "21\n 0.5", DefaultOptions())
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "42\n0.5\n" {
		t.Errorf("unexpected output %q", out)
	}
	if global.Value("f") != value.Float(0.5) {
		t.Errorf("expected f = 0.5, got %v", global.Value("f"))
	}
}

func TestReadRetriesMalformedInput(t *testing.T) {
	out, _, err := runWith(t, `var n : int; read n; print n;`, "abc 1.5 7", DefaultOptions())
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if out != "7\n" {
		t.Errorf("expected 7, got %q", out)
	}

	opts := DefaultOptions()
	opts.ReadRetries = 1
	_, _, err = runWith(t, `var n : int; read n;`, "abc def 7", opts)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput after retries, got %v", err)
	}
}

func TestReadInputExhausted(t *testing.T) {
	_, _, err := runWith(t, `var n : int; read n;`, "", DefaultOptions())
	if !errors.Is(err, ErrInputExhausted) {
		t.Fatalf("expected ErrInputExhausted, got %v", err)
	}
}

func TestReadPrompt(t *testing.T) {
	var buf bytes.Buffer
	console, err := NewConsole(strings.NewReader("3"), &buf, "%s? ", "")
	if err != nil {
		t.Fatal(err)
	}
	prog := ast.MakeProgram("", ast.SequenceOf(
		ast.MakeDeclare("n", value.IntegerKind),
		ast.MakeRead(ast.MakeIdentifier("n")),
		ast.MakePrint(ast.MakeIdentifier("n")),
	))
	if err := NewInterpreter(console, DefaultOptions()).Run(prog, symtab.New(0)); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if buf.String() != "n? 3\n" {
		t.Errorf("unexpected console output %q", buf.String())
	}
}

func TestPromptKeepsLiteralPercent(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"100% %s> ", "100% n> "},
		{"%d %s %s: ", "%d n n: "},
		{"> ", "> "},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		console, err := NewConsole(nil, &buf, tt.prompt, "")
		if err != nil {
			t.Fatal(err)
		}
		console.Prompt("n")
		if buf.String() != tt.want {
			t.Errorf("prompt %q: expected %q, got %q", tt.prompt, tt.want, buf.String())
		}
	}
}

func TestLocalizedPrint(t *testing.T) {
	var buf bytes.Buffer
	console, err := NewConsole(nil, &buf, "", "en")
	if err != nil {
		t.Fatal(err)
	}
	prog := ast.MakeProgram("", ast.MakePrint(ast.MakeLiteral(value.Int(1234567))))
	if err := NewInterpreter(console, DefaultOptions()).Run(prog, nil); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if buf.String() != "1,234,567\n" {
		t.Errorf("expected grouped digits, got %q", buf.String())
	}

	if _, err := NewConsole(nil, &buf, "", "not a locale!"); err == nil {
		t.Error("expected an error for a malformed locale")
	}
}

// ---- Builder-level tests ----

func TestBuiltSumScenario(t *testing.T) {
	x, y, z := ast.MakeIdentifier("x"), ast.MakeIdentifier("y"), ast.MakeIdentifier("z")
	prog := ast.SequenceOf(
		ast.MakeAssign(ast.MakeIdentifier("x"), ast.MakeLiteral(value.Int(3))),
		ast.MakeAssign(ast.MakeIdentifier("y"), ast.MakeLiteral(value.Int(4))),
		ast.MakeAssign(z, ast.MakeArithmeticExpr(value.Sum, x, y)),
		ast.MakePrint(ast.MakeIdentifier("z")),
	)

	var buf bytes.Buffer
	console, _ := NewConsole(nil, &buf, "", "")
	global := symtab.New(symtab.DefaultCapacity)
	if err := NewInterpreter(console, DefaultOptions()).Run(prog, global); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if buf.String() != "7\n" {
		t.Errorf("expected 7, got %q", buf.String())
	}
	if z.Result() != value.Int(7) {
		t.Errorf("expected target node to cache 7, got %#v", z.Result())
	}
}

func TestWhileConditionIsReevaluated(t *testing.T) {
	i := func() *ast.IdentNode { return ast.MakeIdentifier("i") }
	cond := ast.MakeRelationalExpr(value.Less, i(), ast.MakeLiteral(value.Int(3)))
	prog := ast.SequenceOf(
		ast.MakeAssign(i(), ast.MakeLiteral(value.Int(0))),
		ast.MakeWhile(cond, ast.SequenceOf(
			ast.MakePrint(i()),
			ast.MakeAssign(i(), ast.MakeArithmeticExpr(value.Sum, i(), ast.MakeLiteral(value.Int(1)))),
		)),
	)

	var buf bytes.Buffer
	console, _ := NewConsole(nil, &buf, "", "")
	if err := NewInterpreter(console, DefaultOptions()).Run(prog, nil); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if buf.String() != "0\n1\n2\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
	if cond.Evaluation {
		t.Error("condition should be false after the loop exits")
	}
}

func TestMissingChildren(t *testing.T) {
	lit := ast.MakeLiteral(value.Int(1))
	cond := ast.MakeRelationalExpr(value.Zero, lit, nil)
	tests := []struct {
		node  ast.Node
		instr ast.InstructionKind
	}{
		{ast.MakeProgram("", nil), ast.Program},
		{ast.MakeAssign(nil, lit), ast.Assign},
		{ast.MakeAssign(ast.MakeIdentifier("x"), nil), ast.Assign},
		{ast.MakeIf(nil, ast.MakePrint(lit)), ast.If},
		{ast.MakeIf(cond, nil), ast.If},
		{ast.MakeIfElse(cond, ast.MakePrint(lit), nil), ast.IfElse},
		{ast.MakeWhile(cond, nil), ast.While},
		{ast.MakeRead(nil), ast.Read},
		{ast.MakePrint(nil), ast.Print},
		{ast.MakeRelationalExpr(value.Less, lit, nil), ast.RelationalExpr},
		{ast.MakeRelationalExpr(value.Zero, nil, nil), ast.RelationalExpr},
		{ast.MakeArithmeticExpr(value.Sum, lit, nil), ast.AdditiveExpr},
		{ast.MakeArithmeticExpr(value.Negative, nil, nil), ast.MultiplicativeExpr},
		{ast.MakeArgBinding(lit, nil), ast.ArgBinding},
	}
	for _, tt := range tests {
		console, _ := NewConsole(nil, &bytes.Buffer{}, "", "")
		err := NewInterpreter(console, DefaultOptions()).Run(tt.node, nil)
		if err == nil {
			t.Errorf("%s: expected a structural error", tt.instr)
			continue
		}
		expectStructural(t, err, tt.instr)
	}
}

func TestPrintUnknownKind(t *testing.T) {
	console, _ := NewConsole(nil, &bytes.Buffer{}, "", "")
	err := NewInterpreter(console, DefaultOptions()).Run(ast.MakePrint(ast.MakeLiteral(value.Value{})), nil)
	expectStructural(t, err, ast.Print)
}

func TestCapacityExceeded(t *testing.T) {
	var src strings.Builder
	for i := 0; i <= 4; i++ {
		src.WriteString("var v")
		src.WriteByte(byte('a' + i))
		src.WriteString(" : int;\n")
	}
	l := lexer.New(src.String(), "test.toy")
	tokens, _ := l.Tokenize()
	prog, _ := parser.New(tokens).ParseFile()

	console, _ := NewConsole(nil, &bytes.Buffer{}, "", "")
	global := symtab.New(4)
	err := NewInterpreter(console, DefaultOptions()).Run(prog, global)
	if !errors.Is(err, symtab.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if global.Size() != 4 {
		t.Errorf("expected 4 bindings to survive, got %d", global.Size())
	}
}

func TestSharedGlobalsAcrossRuns(t *testing.T) {
	var buf bytes.Buffer
	console, _ := NewConsole(nil, &buf, "", "")
	interp := NewInterpreter(console, DefaultOptions())
	global := symtab.New(symtab.DefaultCapacity)

	first := ast.MakeAssign(ast.MakeIdentifier("x"), ast.MakeLiteral(value.Int(9)))
	second := ast.MakePrint(ast.MakeIdentifier("x"))
	if err := interp.Run(first, global); err != nil {
		t.Fatal(err)
	}
	if err := interp.Run(second, global); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "9\n" {
		t.Errorf("expected 9, got %q", buf.String())
	}
	if v, ok := interp.Env().Get("x"); !ok || v != value.Int(9) {
		t.Errorf("environment should expose x = 9, got %v", v)
	}
}
