package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/samber/do"

	"toylang/internal/diag"
	"toylang/internal/lexer"
	"toylang/internal/runtime"
	"toylang/internal/symtab"
	"toylang/internal/token"
)

// ---- ANSI colors ----

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

const (
	promptMain  = colorGreen + "toy> " + colorReset
	promptMore  = colorGray + "...  " + colorReset
	promptInput = colorYellow + "? " + colorReset
)

// ---- repl command ----

func cmdRepl(flags cliFlags, s streams) int {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".toylang_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptMain,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(s.err, "readline init failed: %v\n", err)
		return 1
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s%stoylang REPL%s %s(type 'exit' or Ctrl+D to quit, ':symbols' to list globals)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	// read statements pull their input through the same line editor
	replStreams := streams{
		in:  &lineReader{rl: rl, restore: promptMain},
		out: rl.Stdout(),
		err: rl.Stderr(),
	}
	interp, globals, err := replSession(flags, replStreams, nil)
	if err != nil {
		fmt.Fprintf(rl.Stderr(), "%serror: %v%s\n", colorRed, err, colorReset)
		return 1
	}

	var accumulated strings.Builder
	depth := 0

	for {
		if depth > 0 {
			rl.SetPrompt(promptMore)
		} else {
			rl.SetPrompt(promptMain)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if depth > 0 {
					accumulated.Reset()
					depth = 0
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if depth == 0 {
			switch strings.TrimSpace(line) {
			case "exit":
				return 0
			case ":symbols":
				if err := globals.Fprint(rl.Stdout()); err != nil {
					fmt.Fprintf(rl.Stderr(), "%serror: %v%s\n", colorRed, err, colorReset)
				}
				continue
			}
		}

		depth += blockDepthDelta(line)
		accumulated.WriteString(line)
		accumulated.WriteString("\n")
		if depth > 0 {
			continue
		}
		depth = 0

		source := accumulated.String()
		accumulated.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		prog, diags := parseSource(source, "<repl>")
		if len(diags) > 0 {
			printDiagsColored(rl.Stderr(), diags)
		}
		if diag.HasErrors(diags) {
			continue
		}

		err = interp.Run(prog, globals)
		if err == nil {
			continue
		}
		printDiagsColored(rl.Stderr(), []diag.Diagnostic{runtimeDiag(err)})
		if errors.Is(err, runtime.ErrInputExhausted) {
			// the console's scanner is finished; start a fresh one over the same globals
			if interp, _, err = replSession(flags, replStreams, globals); err != nil {
				fmt.Fprintf(rl.Stderr(), "%serror: %v%s\n", colorRed, err, colorReset)
				return 1
			}
		}
	}
	return 0
}

// replSession wires an interpreter for the REPL. A non-nil globals replaces
// the injector's fresh table so bindings survive the rebuild.
func replSession(flags cliFlags, s streams, globals *symtab.Table) (*runtime.Interpreter, *symtab.Table, error) {
	injector := newInjector(flags, s)
	if globals != nil {
		do.OverrideValue(injector, globals)
	}
	interp, err := do.Invoke[*runtime.Interpreter](injector)
	if err != nil {
		return nil, nil, err
	}
	return interp, do.MustInvoke[*symtab.Table](injector), nil
}

// blockDepthDelta is the net number of blocks line opens, counting braces
// and begin/end keywords. Comments and malformed input are ignored.
func blockDepthDelta(line string) int {
	tokens, _ := lexer.New(line, "<repl>").Tokenize()
	delta := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case token.LBRACE, token.KW_BEGIN:
			delta++
		case token.RBRACE, token.KW_END:
			delta--
		}
	}
	return delta
}

// lineReader feeds read statements from the line editor, one line per
// Read, under the input prompt.
type lineReader struct {
	rl      *readline.Instance
	restore string
	buf     bytes.Buffer
}

func (r *lineReader) Read(p []byte) (int, error) {
	if r.buf.Len() == 0 {
		r.rl.SetPrompt(promptInput)
		line, err := r.rl.Readline()
		r.rl.SetPrompt(r.restore)
		if err != nil {
			// an interrupt or EOF ends the pending read, not the session
			return 0, io.EOF
		}
		r.buf.WriteString(line)
		r.buf.WriteByte('\n')
	}
	return r.buf.Read(p)
}

// printDiagsColored prints diagnostics for REPL display, errors in red and
// warnings in yellow.
func printDiagsColored(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		color := colorRed
		if d.Severity == diag.Warning {
			color = colorYellow
		}
		fmt.Fprintf(w, "%s%s%s\n", color, d.String(), colorReset)
	}
}
