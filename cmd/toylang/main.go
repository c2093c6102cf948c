// Command toylang is the CLI entry point for the toylang interpreter.
//
// Usage:
//
//	toylang run     <file> [--strict] [--capacity N] [--config path] [--dump text|yaml|json]
//	toylang symbols <file> [--format text|yaml|json] [--strict] [--capacity N] [--config path]
//	toylang parse   <file>            Print AST as JSON
//	toylang tokens  <file> [--json]   Print tokens
//	toylang repl    [--strict] [--capacity N] [--config path]
//	toylang init    [dir] [--strict] [--capacity N]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/samber/do"

	"toylang/internal/ast"
	"toylang/internal/config"
	"toylang/internal/diag"
	"toylang/internal/lexer"
	"toylang/internal/parser"
	"toylang/internal/runtime"
	"toylang/internal/span"
	"toylang/internal/symtab"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one CLI invocation and returns the process exit status:
// 0 on success, 1 for program or I/O failures, 2 for usage errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	command := args[0]
	switch command {
	case "run", "symbols", "parse", "tokens", "repl", "init":
	default:
		fmt.Fprintf(stderr, "error: unknown command '%s'\n", command)
		usage(stderr)
		return 2
	}

	flags, err := parseFlags(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	if command != "repl" && command != "init" && flags.file == "" {
		fmt.Fprintln(stderr, "error: missing file argument")
		return 2
	}

	s := streams{in: stdin, out: stdout, err: stderr, interactive: isTerminal(stdin)}
	switch command {
	case "tokens":
		return cmdTokens(flags, s)
	case "parse":
		return cmdParse(flags, s)
	case "run":
		return cmdRun(flags, s)
	case "symbols":
		return cmdSymbols(flags, s)
	case "init":
		return cmdInit(flags, s)
	default:
		return cmdRepl(flags, s)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  toylang run     <file> [flags]   Run a source file")
	fmt.Fprintln(w, "  toylang symbols <file> [flags]   Run a source file and dump the global symbol table")
	fmt.Fprintln(w, "  toylang parse   <file>           Parse and print AST (JSON)")
	fmt.Fprintln(w, "  toylang tokens  <file> [--json]  Tokenize and print tokens")
	fmt.Fprintln(w, "  toylang repl    [flags]          Start interactive REPL")
	fmt.Fprintln(w, "  toylang init    [dir] [flags]    Write a default toylang.toml")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --config <path>     settings file (default ./toylang.toml)")
	fmt.Fprintln(w, "  --strict            fail on mixed-kind operations and unbound names")
	fmt.Fprintln(w, "  --capacity <n>      symbol table slots")
	fmt.Fprintln(w, "  --dump <fmt>        after run, print globals as text, yaml or json")
	fmt.Fprintln(w, "  --format <fmt>      symbols output format (default text)")
}

// ---- flags ----

type cliFlags struct {
	file       string
	configPath string
	strict     bool
	capacity   int
	dump       string
	format     string
	json       bool
}

func parseFlags(args []string) (cliFlags, error) {
	f := cliFlags{format: "text"}
	for n := 0; n < len(args); n++ {
		arg := args[n]
		name, inline, hasInline := strings.Cut(arg, "=")
		next := func() (string, error) {
			if hasInline {
				return inline, nil
			}
			if n+1 >= len(args) {
				return "", fmt.Errorf("flag %s needs a value", name)
			}
			n++
			return args[n], nil
		}

		switch name {
		case "--strict":
			f.strict = true
		case "--json":
			f.json = true
		case "--config":
			v, err := next()
			if err != nil {
				return f, err
			}
			f.configPath = v
		case "--capacity":
			v, err := next()
			if err != nil {
				return f, err
			}
			c, err := strconv.Atoi(v)
			if err != nil || c < 1 {
				return f, fmt.Errorf("--capacity wants a positive integer, got %q", v)
			}
			f.capacity = c
		case "--dump", "--format":
			v, err := next()
			if err != nil {
				return f, err
			}
			if !validFormat(v) {
				return f, fmt.Errorf("%s wants text, yaml or json, got %q", name, v)
			}
			if name == "--dump" {
				f.dump = v
			} else {
				f.format = v
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return f, fmt.Errorf("unknown flag %s", arg)
			}
			if f.file != "" {
				return f, fmt.Errorf("unexpected argument %s", arg)
			}
			f.file = arg
		}
	}
	return f, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && readline.IsTerminal(int(f.Fd()))
}

// ---- front end ----

// loadProgram reads, tokenizes and parses filename. Diagnostics, warnings
// included, go to w; ok is false when any of them is an error.
func loadProgram(filename string, w io.Writer) (*ast.ProgramNode, bool) {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(w, "error: cannot read file %s: %v\n", filename, err)
		return nil, false
	}
	prog, diags := parseSource(string(source), filename)
	printDiagsText(w, diags)
	if diag.HasErrors(diags) {
		return nil, false
	}
	return prog, true
}

func parseSource(source, filename string) (*ast.ProgramNode, []diag.Diagnostic) {
	l := lexer.New(source, filename)
	tokens, lexDiags := l.Tokenize()
	p := parser.New(tokens)
	prog, parseDiags := p.ParseFile()
	prog.Name = filename
	return prog, append(lexDiags, parseDiags...)
}

// runtimeDiag turns an evaluator error into a coded diagnostic.
func runtimeDiag(err error) diag.Diagnostic {
	var se *runtime.StructuralError
	if errors.As(err, &se) {
		return diag.Errorf(diag.CodeStructural, se.Span, "%s: %s", se.Instruction, se.Message)
	}
	var re *runtime.RuntimeError
	if errors.As(err, &re) {
		d := diag.Errorf(diag.CodeRuntime, re.Span, "%s", re.Message)
		if re.Err != nil {
			d.Message += ": " + re.Err.Error()
		}
		return d
	}
	return diag.Errorf(diag.CodeRuntime, span.Span{}, "%v", err)
}

// ---- tokens command ----

func cmdTokens(flags cliFlags, s streams) int {
	source, err := os.ReadFile(flags.file)
	if err != nil {
		fmt.Fprintf(s.err, "error: cannot read file %s: %v\n", flags.file, err)
		return 1
	}
	l := lexer.New(string(source), flags.file)
	tokens, diags := l.Tokenize()

	if flags.json {
		if err := printTokensJSON(s.out, tokens, diags); err != nil {
			fmt.Fprintf(s.err, "error: JSON encoding failed: %v\n", err)
			return 1
		}
	} else {
		printTokensText(s.out, tokens)
		printDiagsText(s.err, diags)
	}

	if diag.HasErrors(diags) {
		return 1
	}
	return 0
}

// ---- parse command ----

func cmdParse(flags cliFlags, s streams) int {
	source, err := os.ReadFile(flags.file)
	if err != nil {
		fmt.Fprintf(s.err, "error: cannot read file %s: %v\n", flags.file, err)
		return 1
	}
	prog, diags := parseSource(string(source), flags.file)

	output := map[string]interface{}{
		"ast":         ast.NodeToMap(prog),
		"diagnostics": diagsToSlice(diags),
	}
	if err := printJSON(s.out, output); err != nil {
		fmt.Fprintf(s.err, "error: JSON encoding failed: %v\n", err)
		return 1
	}

	if diag.HasErrors(diags) {
		return 1
	}
	return 0
}

// ---- run and symbols commands ----

func cmdRun(flags cliFlags, s streams) int {
	prog, ok := loadProgram(flags.file, s.err)
	if !ok {
		return 1
	}

	injector := newInjector(flags, s)
	globals, status := execute(injector, prog, s.err)
	if globals != nil && flags.dump != "" {
		if err := writeSymbols(s.out, globals, flags.dump); err != nil {
			fmt.Fprintf(s.err, "error: symbol dump failed: %v\n", err)
			return 1
		}
	}
	return status
}

// cmdSymbols runs the program with its output sent to stderr so stdout
// carries only the table dump.
func cmdSymbols(flags cliFlags, s streams) int {
	prog, ok := loadProgram(flags.file, s.err)
	if !ok {
		return 1
	}

	programStreams := s
	programStreams.out = s.err
	injector := newInjector(flags, programStreams)
	globals, status := execute(injector, prog, s.err)
	if globals == nil {
		return status
	}
	if err := writeSymbols(s.out, globals, flags.format); err != nil {
		fmt.Fprintf(s.err, "error: symbol dump failed: %v\n", err)
		return 1
	}
	return status
}

// execute resolves the interpreter and globals from injector and runs
// prog. globals is nil when wiring failed.
func execute(injector *do.Injector, prog *ast.ProgramNode, stderr io.Writer) (*symtab.Table, int) {
	interp, err := do.Invoke[*runtime.Interpreter](injector)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, 1
	}
	globals := do.MustInvoke[*symtab.Table](injector)

	if err := interp.Run(prog, globals); err != nil {
		printDiagsText(stderr, []diag.Diagnostic{runtimeDiag(err)})
		return globals, 1
	}
	return globals, 0
}

// ---- init command ----

// cmdInit writes the default settings, with --strict and --capacity
// applied, to toylang.toml in the given directory. An existing file is
// left alone.
func cmdInit(flags cliFlags, s streams) int {
	dir := flags.file
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(s.err, "error: %s already exists\n", path)
		return 1
	}

	cfg := config.Default()
	cfg.Runtime.Strict = flags.strict
	if flags.capacity > 0 {
		cfg.Symbols.Capacity = flags.capacity
	}
	if err := config.Save(dir, &cfg); err != nil {
		fmt.Fprintf(s.err, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(s.out, "wrote %s\n", path)
	return 0
}
