package value

import "fmt"

// Op is an operation code. Arithmetic and relational operators share one
// code space so an AST node can carry either in a single field.
type Op byte

const (
	Sum      Op = '+'
	Subtract Op = '-'
	Multiply Op = '*'
	Divide   Op = '/'
	Negative Op = '~' // unary

	Less         Op = '<'
	Greater      Op = '>'
	Equals       Op = '='
	LessEqual    Op = 'l'
	GreaterEqual Op = 'g'
	Zero         Op = 'z' // unary: true when the operand is non-zero
)

var opNames = map[Op]string{
	Sum:          "+",
	Subtract:     "-",
	Multiply:     "*",
	Divide:       "/",
	Negative:     "-",
	Less:         "<",
	Greater:      ">",
	Equals:       "==",
	LessEqual:    "<=",
	GreaterEqual: ">=",
	Zero:         "!= 0",
}

// String returns the source spelling of the operator.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", byte(o))
}

// IsArithmetic reports whether o is one of + - * / or unary negation.
func (o Op) IsArithmetic() bool {
	switch o {
	case Sum, Subtract, Multiply, Divide, Negative:
		return true
	}
	return false
}

// IsRelational reports whether o is a comparison or the zero test.
func (o Op) IsRelational() bool {
	switch o {
	case Less, Greater, Equals, LessEqual, GreaterEqual, Zero:
		return true
	}
	return false
}

// IsUnary reports whether o takes a single operand.
func (o Op) IsUnary() bool {
	return o == Negative || o == Zero
}
