package runtime

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"toylang/internal/value"
)

// Console is the interpreter's only I/O boundary: Read pulls whitespace
// separated tokens from in, Print writes one line per value to out.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
	printer *message.Printer
}

// NewConsole creates a console. prompt is written before every read; a
// "%s" in it is replaced by the target name, and an empty prompt disables
// prompting. A non-empty locale ("de", "en-US", ...) formats printed
// numbers with that locale's separators.
func NewConsole(in io.Reader, out io.Writer, prompt, locale string) (*Console, error) {
	c := &Console{out: out, prompt: prompt}
	if in != nil {
		c.scanner = bufio.NewScanner(in)
		c.scanner.Split(bufio.ScanWords)
	}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("console locale %q: %w", locale, err)
		}
		c.printer = message.NewPrinter(tag)
	}
	return c, nil
}

// Prompt announces a pending read of name.
func (c *Console) Prompt(name string) {
	if c.prompt == "" {
		return
	}
	fmt.Fprint(c.out, strings.ReplaceAll(c.prompt, "%s", name))
}

// ReadValue consumes one token and parses it as kind. Unknown kinds accept
// an integer and fall back to a float.
func (c *Console) ReadValue(kind value.Kind) (value.Value, error) {
	if c.scanner == nil || !c.scanner.Scan() {
		if c.scanner != nil && c.scanner.Err() != nil {
			return value.Value{}, fmt.Errorf("%w: %v", ErrInputExhausted, c.scanner.Err())
		}
		return value.Value{}, ErrInputExhausted
	}
	return parseToken(c.scanner.Text(), kind)
}

func parseToken(tok string, kind value.Kind) (value.Value, error) {
	switch kind {
	case value.IntegerKind:
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidInput, tok)
		}
		return value.Int(int32(n)), nil
	case value.FloatKind:
		f, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return value.Value{}, fmt.Errorf("%w: %q is not a float", ErrInvalidInput, tok)
		}
		return value.Float(float32(f)), nil
	default:
		if n, err := strconv.ParseInt(tok, 10, 32); err == nil {
			return value.Int(int32(n)), nil
		}
		if f, err := strconv.ParseFloat(tok, 32); err == nil {
			return value.Float(float32(f)), nil
		}
		return value.Value{}, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, tok)
	}
}

// WriteValue prints v on its own line.
func (c *Console) WriteValue(v value.Value) error {
	if c.printer == nil {
		_, err := fmt.Fprintln(c.out, v.String())
		return err
	}
	var n interface{}
	if i, ok := v.AsInt(); ok {
		n = number.Decimal(i)
	} else {
		n = number.Decimal(v.Float64())
	}
	_, err := c.printer.Fprintf(c.out, "%v\n", n)
	return err
}
