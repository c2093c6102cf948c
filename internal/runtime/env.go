package runtime

import (
	"fmt"

	"toylang/internal/symtab"
	"toylang/internal/value"
)

// Environment is the activation stack: the global table at the bottom and
// one frame per active function call above it. A frame is a child of the
// table the called function was declared in, so a call sees its own locals,
// then its enclosing declarations, and never the locals of its caller.
type Environment struct {
	frames []*symtab.Table
}

// NewEnvironment creates a stack holding only global.
func NewEnvironment(global *symtab.Table) *Environment {
	return &Environment{frames: []*symtab.Table{global}}
}

// Global returns the bottom frame.
func (e *Environment) Global() *symtab.Table { return e.frames[0] }

// Current returns the innermost frame.
func (e *Environment) Current() *symtab.Table { return e.frames[len(e.frames)-1] }

// Depth returns the number of active function calls.
func (e *Environment) Depth() int { return len(e.frames) - 1 }

// NewFrame allocates an activation frame under parent, sized like the
// global table. A nil parent means the global table.
func (e *Environment) NewFrame(parent *symtab.Table) *symtab.Table {
	if parent == nil {
		parent = e.Global()
	}
	return symtab.NewChild(parent, e.Global().Capacity())
}

func (e *Environment) push(frame *symtab.Table) { e.frames = append(e.frames, frame) }

func (e *Environment) pop() {
	if len(e.frames) == 1 {
		panic("pop of the global frame")
	}
	e.frames[len(e.frames)-1] = nil
	e.frames = e.frames[:len(e.frames)-1]
}

// Define declares a scalar in the current frame.
func (e *Environment) Define(name string, v value.Value) error {
	return e.Current().InsertScalar(name, v)
}

// Get looks up a name by walking from the current frame to the global one.
func (e *Environment) Get(name string) (value.Value, bool) {
	if _, b := e.Current().Resolve(name); b != nil {
		return b.Value, true
	}
	return value.Value{}, false
}

// Set assigns to the nearest existing scalar called name.
func (e *Environment) Set(name string, v value.Value) error {
	owner, b := e.Current().Resolve(name)
	if b == nil {
		return fmt.Errorf("%w: '%s'", symtab.ErrNotFound, name)
	}
	return owner.Assign(name, v)
}
