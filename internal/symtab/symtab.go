// Package symtab implements the symbol environment: a fixed-capacity,
// open-addressed hash table with linear probing that maps identifiers to
// scalar or function bindings.
//
// Tables can be chained through a parent pointer. Function activations get
// a fresh child of the global table so parameters and locals never clobber
// globals or the frames of outer calls.
package symtab

import (
	"errors"
	"fmt"

	"toylang/internal/ast"
	"toylang/internal/value"
)

const (
	// DefaultCapacity is the slot count used when none is configured.
	DefaultCapacity = 30
	// NotFound is returned by Find for absent names.
	NotFound = -1
)

var (
	ErrCapacityExceeded = errors.New("symbol table capacity exceeded")
	ErrDuplicate        = errors.New("identifier already declared")
	ErrNotFound         = errors.New("identifier not declared")
	ErrNotScalar        = errors.New("identifier is not a scalar")
	ErrNotFunction      = errors.New("identifier is not a function")
)

// Kind tells scalar bindings from function bindings.
type Kind uint8

const (
	Empty Kind = iota
	Scalar
	Function
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Function:
		return "function"
	default:
		return "empty"
	}
}

// Binding is one declared name.
type Binding struct {
	Name  string
	Key   int32
	Kind  Kind
	Value value.Value // scalar value, or a function's most recent result
	// Function-only fields.
	Params []ast.Param
	Body   ast.Node
}

// ArgCount returns the number of formal parameters.
func (b *Binding) ArgCount() int { return len(b.Params) }

type slot struct {
	occupied bool
	binding  Binding
}

// Table is a fixed-capacity symbol environment.
type Table struct {
	slots  []slot
	size   int
	parent *Table
}

// New creates an empty table. A capacity below one falls back to
// DefaultCapacity.
func New(capacity int) *Table {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Table{slots: make([]slot, capacity)}
}

// NewChild creates an empty table whose lookups fall back to parent.
func NewChild(parent *Table, capacity int) *Table {
	t := New(capacity)
	t.parent = parent
	return t
}

// Parent returns the enclosing table, nil for the global one.
func (t *Table) Parent() *Table { return t.parent }

// Capacity returns the number of slots.
func (t *Table) Capacity() int { return len(t.slots) }

// Size returns the number of occupied slots.
func (t *Table) Size() int { return t.size }

// Full reports whether every slot is occupied.
func (t *Table) Full() bool { return t.size == len(t.slots) }

// Hash is the base-31 polynomial string hash: the sum of
// name[i] * 31^(len-1-i), wrapping at 32 bits.
func Hash(name string) int32 {
	var key int32
	for i := 0; i < len(name); i++ {
		key = key*31 + int32(name[i])
	}
	return key
}

// BucketIndex maps a key to its home slot: abs(key mod capacity).
func (t *Table) BucketIndex(key int32) int {
	idx := int(key) % len(t.slots)
	if idx < 0 {
		idx = -idx
	}
	return idx
}

// Find returns the slot holding name, or NotFound. It follows the insert
// probe sequence and stops at the first unoccupied slot or after a full
// wrap-around.
func (t *Table) Find(name string) int {
	key := Hash(name)
	start := t.BucketIndex(key)
	curr := start
	for t.slots[curr].occupied {
		b := &t.slots[curr].binding
		if b.Key == key && b.Name == name {
			return curr
		}
		curr = (curr + 1) % len(t.slots)
		if curr == start {
			return NotFound
		}
	}
	return NotFound
}

// Exists reports whether name is bound in this table.
func (t *Table) Exists(name string) bool { return t.Find(name) != NotFound }

// IsScalar reports whether name is bound to a scalar in this table.
func (t *Table) IsScalar(name string) bool { return t.kindOf(name) == Scalar }

// IsFunction reports whether name is bound to a function in this table.
func (t *Table) IsFunction(name string) bool { return t.kindOf(name) == Function }

func (t *Table) kindOf(name string) Kind {
	if b := t.Binding(name); b != nil {
		return b.Kind
	}
	return Empty
}

// Binding returns the binding for name in this table, or nil.
func (t *Table) Binding(name string) *Binding {
	idx := t.Find(name)
	if idx == NotFound {
		return nil
	}
	return &t.slots[idx].binding
}

// At returns the binding stored in slot idx, or nil if the slot is empty.
func (t *Table) At(idx int) *Binding {
	if idx < 0 || idx >= len(t.slots) || !t.slots[idx].occupied {
		return nil
	}
	return &t.slots[idx].binding
}

// InsertScalar binds name to v.
func (t *Table) InsertScalar(name string, v value.Value) error {
	return t.insert(Binding{Name: name, Kind: Scalar, Value: v})
}

// InsertFunction binds name to a function. ret seeds the binding's value.
func (t *Table) InsertFunction(name string, ret value.Value, params []ast.Param, body ast.Node) error {
	return t.insert(Binding{Name: name, Kind: Function, Value: ret, Params: params, Body: body})
}

func (t *Table) insert(b Binding) error {
	if t.Full() {
		return fmt.Errorf("%w: cannot insert '%s' (%d slots)", ErrCapacityExceeded, b.Name, len(t.slots))
	}
	if t.Exists(b.Name) {
		return fmt.Errorf("%w: '%s'", ErrDuplicate, b.Name)
	}

	b.Key = Hash(b.Name)
	start := t.BucketIndex(b.Key)
	curr := start
	for t.slots[curr].occupied {
		curr = (curr + 1) % len(t.slots)
		if curr == start {
			return fmt.Errorf("%w: no free slot for '%s'", ErrCapacityExceeded, b.Name)
		}
	}
	t.slots[curr] = slot{occupied: true, binding: b}
	t.size++
	return nil
}

// Assign overwrites the value of the scalar bound to name in this table.
func (t *Table) Assign(name string, v value.Value) error {
	b := t.Binding(name)
	if b == nil {
		return fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	if b.Kind != Scalar {
		return fmt.Errorf("%w: '%s' is a %s", ErrNotScalar, name, b.Kind)
	}
	b.Value = v
	return nil
}

// SetResult records v as the latest result of the function bound to name.
func (t *Table) SetResult(name string, v value.Value) error {
	b := t.Binding(name)
	if b == nil {
		return fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	if b.Kind != Function {
		return fmt.Errorf("%w: '%s' is a %s", ErrNotFunction, name, b.Kind)
	}
	b.Value = v
	return nil
}

// Lookup returns the value bound to name in this table.
func (t *Table) Lookup(name string) (value.Value, bool) {
	if b := t.Binding(name); b != nil {
		return b.Value, true
	}
	return value.Value{}, false
}

// Value returns the value bound to name in this table, or integer zero when
// the name is absent.
func (t *Table) Value(name string) value.Value {
	if v, ok := t.Lookup(name); ok {
		return v
	}
	return value.Int(0)
}

// Params returns the parameter list of a function binding, nil otherwise.
func (t *Table) Params(name string) []ast.Param {
	if b := t.Binding(name); b != nil && b.Kind == Function {
		return b.Params
	}
	return nil
}

// Body returns the body of a function binding, nil otherwise.
func (t *Table) Body(name string) ast.Node {
	if b := t.Binding(name); b != nil && b.Kind == Function {
		return b.Body
	}
	return nil
}

// ArgCount returns the parameter count of a function binding, 0 otherwise.
func (t *Table) ArgCount(name string) int {
	if b := t.Binding(name); b != nil {
		return b.ArgCount()
	}
	return 0
}

// ArgumentCountMatches reports whether supplied equals the parameter count
// of the function bound to name.
func (t *Table) ArgumentCountMatches(name string, supplied int) bool {
	return t.ArgCount(name) == supplied
}

// Resolve finds name in this table or the nearest ancestor that has it.
func (t *Table) Resolve(name string) (*Table, *Binding) {
	for env := t; env != nil; env = env.parent {
		if b := env.Binding(name); b != nil {
			return env, b
		}
	}
	return nil, nil
}

// Bindings returns the occupied slots in slot order.
func (t *Table) Bindings() []*Binding {
	out := make([]*Binding, 0, t.size)
	for i := range t.slots {
		if t.slots[i].occupied {
			out = append(out, &t.slots[i].binding)
		}
	}
	return out
}
