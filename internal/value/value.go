// Package value implements the typed numeric scalar that every toylang
// expression evaluates to: a 32-bit integer or a single-precision float.
package value

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTypeMismatch is returned by the strict operations when the two
	// operands carry different kinds.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDivisionByZero is returned for integer or float division by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrUnknownOperator is returned when an operation code does not apply.
	ErrUnknownOperator = errors.New("unknown operator")
)

// Kind discriminates the payload of a Value.
type Kind uint8

const (
	Unknown Kind = iota
	IntegerKind
	FloatKind
)

func (k Kind) String() string {
	switch k {
	case IntegerKind:
		return "integer"
	case FloatKind:
		return "float"
	default:
		return "unknown"
	}
}

// ParseKind maps a source type name ("int", "float") to a Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "int", "integer":
		return IntegerKind, true
	case "float":
		return FloatKind, true
	default:
		return Unknown, false
	}
}

// Value is a tagged numeric scalar. Only the payload selected by kind is
// meaningful; the zero Value has kind Unknown.
type Value struct {
	kind Kind
	i    int32
	f    float32
}

// Int returns an integer value.
func Int(n int32) Value { return Value{kind: IntegerKind, i: n} }

// Float returns a float value.
func Float(f float32) Value { return Value{kind: FloatKind, f: f} }

// Create builds a value of the given kind from raw, truncating toward zero
// for integers. An unknown kind yields the zero Value.
func Create(kind Kind, raw float64) Value {
	switch kind {
	case IntegerKind:
		return Int(int32(raw))
	case FloatKind:
		return Float(float32(raw))
	default:
		return Value{}
	}
}

// ZeroOf returns the zero of kind, used for fresh declarations.
func ZeroOf(kind Kind) Value {
	return Create(kind, 0)
}

// Kind returns the discriminant.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the integer payload; ok is false for non-integers.
func (v Value) AsInt() (n int32, ok bool) { return v.i, v.kind == IntegerKind }

// AsFloat returns the float payload; ok is false for non-floats.
func (v Value) AsFloat() (f float32, ok bool) { return v.f, v.kind == FloatKind }

// Float64 widens the payload regardless of kind.
func (v Value) Float64() float64 {
	switch v.kind {
	case IntegerKind:
		return float64(v.i)
	case FloatKind:
		return float64(v.f)
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.kind {
	case IntegerKind:
		return strconv.FormatInt(int64(v.i), 10)
	case FloatKind:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	default:
		return "<unknown>"
	}
}

// GoString is used by %#v in test failure messages.
func (v Value) GoString() string {
	return fmt.Sprintf("value.%s(%s)", v.kind, v)
}

// KindsMatch reports whether a and b carry the same kind.
func KindsMatch(a, b Value) bool {
	return a.kind == b.kind
}

// IsZero reports whether a is integer 0 or float exactly 0.0.
// Unknown kinds are never zero.
func IsZero(a Value) bool {
	switch a.kind {
	case IntegerKind:
		return a.i == 0
	case FloatKind:
		return a.f == 0
	default:
		return false
	}
}

// Negate multiplies the payload by -1 according to its kind.
func Negate(a Value) Value {
	switch a.kind {
	case IntegerKind:
		return Int(a.i * -1)
	case FloatKind:
		return Float(a.f * -1)
	default:
		return Int(0)
	}
}

// Compare applies a relational operator. Mismatched kinds, unknown kinds
// and non-relational operators all evaluate to false.
func Compare(a, b Value, op Op) bool {
	ok, _ := CompareStrict(a, b, op)
	return ok
}

// CompareStrict is Compare with the failure cases reported as errors.
func CompareStrict(a, b Value, op Op) (bool, error) {
	if !KindsMatch(a, b) {
		return false, fmt.Errorf("%w: cannot compare %s with %s", ErrTypeMismatch, a.kind, b.kind)
	}
	switch a.kind {
	case IntegerKind:
		return compareOrdered(a.i, b.i, op)
	case FloatKind:
		return compareOrdered(a.f, b.f, op)
	default:
		return false, fmt.Errorf("%w: cannot compare %s values", ErrTypeMismatch, a.kind)
	}
}

func compareOrdered[T int32 | float32](x, y T, op Op) (bool, error) {
	switch op {
	case Less:
		return x < y, nil
	case Greater:
		return x > y, nil
	case Equals:
		return x == y, nil
	case LessEqual:
		return x <= y, nil
	case GreaterEqual:
		return x >= y, nil
	default:
		return false, fmt.Errorf("%w: %q is not relational", ErrUnknownOperator, op)
	}
}

// Arithmetic applies a binary arithmetic operator under the compatibility
// policy: operands of different kinds produce integer zero instead of an
// error. Division by zero is always an error.
func Arithmetic(a, b Value, op Op) (Value, error) {
	if !KindsMatch(a, b) || a.kind == Unknown {
		return Int(0), nil
	}
	out, err := ArithmeticStrict(a, b, op)
	if errors.Is(err, ErrUnknownOperator) {
		return ZeroOf(a.kind), nil
	}
	return out, err
}

// ArithmeticStrict applies a binary arithmetic operator and reports kind
// mismatches and unknown operators as errors.
func ArithmeticStrict(a, b Value, op Op) (Value, error) {
	if !KindsMatch(a, b) {
		return Int(0), fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, a.kind, op, b.kind)
	}
	switch a.kind {
	case IntegerKind:
		n, err := arith(a.i, b.i, op)
		return Int(n), err
	case FloatKind:
		f, err := arith(a.f, b.f, op)
		return Float(f), err
	default:
		return Int(0), fmt.Errorf("%w: arithmetic on %s values", ErrTypeMismatch, a.kind)
	}
}

func arith[T int32 | float32](x, y T, op Op) (T, error) {
	switch op {
	case Sum:
		return x + y, nil
	case Subtract:
		return x - y, nil
	case Multiply:
		return x * y, nil
	case Divide:
		if y == 0 {
			return 0, ErrDivisionByZero
		}
		return x / y, nil
	default:
		return 0, fmt.Errorf("%w: %q is not arithmetic", ErrUnknownOperator, op)
	}
}
