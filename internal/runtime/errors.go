package runtime

import (
	"errors"
	"fmt"

	"toylang/internal/ast"
	"toylang/internal/span"
)

var (
	// ErrUnboundIdentifier is raised in strict mode when a name has no binding.
	ErrUnboundIdentifier = errors.New("unbound identifier")
	// ErrInvalidInput is returned by the console for a token that does not
	// parse as the requested kind.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInputExhausted is returned when a read hits end of input.
	ErrInputExhausted = errors.New("input exhausted")
)

// StructuralError reports a construct that cannot be executed: a missing
// child, an arity mismatch, an assignment across kinds. Execution stops.
type StructuralError struct {
	Instruction ast.InstructionKind
	Span        span.Span
	Message     string
}

func (e *StructuralError) Error() string {
	if e.Span.IsZero() {
		return fmt.Sprintf("structural error in %s: %s", e.Instruction, e.Message)
	}
	return fmt.Sprintf("structural error at %d:%d in %s: %s",
		e.Span.Start.Line, e.Span.Start.Column, e.Instruction, e.Message)
}

func structuralErr(node ast.Node, format string, args ...interface{}) *StructuralError {
	return &StructuralError{
		Instruction: node.Instruction(),
		Span:        node.GetSpan(),
		Message:     fmt.Sprintf(format, args...),
	}
}

// RuntimeError wraps a failure raised while executing a well-formed node.
// Err is one of the package sentinels or one from value or symtab.
type RuntimeError struct {
	Message string
	Span    span.Span
	Err     error
}

func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Span.IsZero() {
		return "runtime error: " + msg
	}
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, msg)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

func runtimeErr(s span.Span, err error, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...), Span: s, Err: err}
}
