// Package ast defines the abstract syntax tree executed by the toylang runtime.
//
// Every node is one concrete struct from a closed set. Interior nodes own
// their children; nothing in the tree refers to another subtree except by
// name (function calls are resolved through the symbol table at run time).
package ast

import (
	"toylang/internal/span"
	"toylang/internal/value"
)

// ============================================================
// Kinds
// ============================================================

// NodeKind is the broad category of a node.
type NodeKind uint8

const (
	Instruction NodeKind = iota
	Identifier
	Value
)

func (k NodeKind) String() string {
	switch k {
	case Instruction:
		return "Instruction"
	case Identifier:
		return "Identifier"
	case Value:
		return "Value"
	default:
		return "Unknown"
	}
}

// InstructionKind identifies what an Instruction node does.
type InstructionKind uint8

const (
	NoInstruction InstructionKind = iota
	Sequence
	Assign
	If
	IfElse
	While
	Read
	Print
	RelationalExpr
	AdditiveExpr
	MultiplicativeExpr
	FunctionCall
	Return
	ArgBinding
	Declare
	FunctionDecl
	Program
)

var instructionNames = [...]string{
	NoInstruction:      "None",
	Sequence:           "Sequence",
	Assign:             "Assign",
	If:                 "If",
	IfElse:             "IfElse",
	While:              "While",
	Read:               "Read",
	Print:              "Print",
	RelationalExpr:     "RelationalExpr",
	AdditiveExpr:       "AdditiveExpr",
	MultiplicativeExpr: "MultiplicativeExpr",
	FunctionCall:       "FunctionCall",
	Return:             "Return",
	ArgBinding:         "ArgBinding",
	Declare:            "Declare",
	FunctionDecl:       "FunctionDecl",
	Program:            "Program",
}

func (k InstructionKind) String() string {
	if int(k) < len(instructionNames) {
		return instructionNames[k]
	}
	return "Unknown"
}

// ============================================================
// Node interfaces
// ============================================================

// Node is implemented by every AST node. The unexported marker keeps the
// set of implementations closed to this package.
type Node interface {
	nodeNode()
	GetSpan() span.Span
	NodeKind() NodeKind
	Instruction() InstructionKind
}

// Expr is a node that evaluates to a typed value. The most recent result is
// cached on the node itself.
type Expr interface {
	Node
	exprNode()
	Result() value.Value
}

// ============================================================
// Base types
// ============================================================

// NodeBase carries the source span.
type NodeBase struct {
	Span span.Span
}

func (NodeBase) nodeNode()            {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// InstrBase is embedded by instruction nodes.
type InstrBase struct{ NodeBase }

func (InstrBase) NodeKind() NodeKind { return Instruction }

// ExprBase is embedded by expression nodes and holds the value computed the
// last time the node was executed.
type ExprBase struct {
	NodeBase
	Current value.Value
}

func (ExprBase) exprNode()                  {}
func (e *ExprBase) Result() value.Value     { return e.Current }
func (e *ExprBase) SetResult(v value.Value) { e.Current = v }

// ============================================================
// Program structure
// ============================================================

// ProgramNode is the root handed to the runtime.
type ProgramNode struct {
	InstrBase
	Name string // source file name, informational
	Body Node
}

func (*ProgramNode) Instruction() InstructionKind { return Program }

// SequenceNode executes First then Second. Either half may be nil.
type SequenceNode struct {
	InstrBase
	First  Node
	Second Node
}

func (*SequenceNode) Instruction() InstructionKind { return Sequence }

// DeclareNode declares a scalar of the given kind in the current scope.
type DeclareNode struct {
	InstrBase
	Name string
	Kind value.Kind
}

func (*DeclareNode) Instruction() InstructionKind { return Declare }

// Param is one formal parameter. Default fixes the parameter's kind and is
// the value seen if the parameter is read before any call binds it.
type Param struct {
	Name    string
	Default value.Value
}

// FunctionDeclNode registers a function. Return seeds the value the
// function's binding holds until its first call completes.
type FunctionDeclNode struct {
	InstrBase
	Name   string
	Return value.Value
	Params []Param
	Body   Node
}

func (*FunctionDeclNode) Instruction() InstructionKind { return FunctionDecl }

// ============================================================
// Statements
// ============================================================

// AssignNode copies Source's value into the binding named by Target.
type AssignNode struct {
	InstrBase
	Target *IdentNode
	Source Expr
}

func (*AssignNode) Instruction() InstructionKind { return Assign }

// IfNode runs Body when Cond evaluates true.
type IfNode struct {
	InstrBase
	Cond *RelationalNode
	Body Node
}

func (*IfNode) Instruction() InstructionKind { return If }

// IfElseNode runs Then or Else depending on Cond.
type IfElseNode struct {
	InstrBase
	Cond *RelationalNode
	Then Node
	Else Node
}

func (*IfElseNode) Instruction() InstructionKind { return IfElse }

// WhileNode re-evaluates Cond before every iteration.
type WhileNode struct {
	InstrBase
	Cond *RelationalNode
	Body Node
}

func (*WhileNode) Instruction() InstructionKind { return While }

// ReadNode reads one value from the console into Target.
type ReadNode struct {
	InstrBase
	Target *IdentNode
}

func (*ReadNode) Instruction() InstructionKind { return Read }

// PrintNode writes the value of Operand to the console.
type PrintNode struct {
	InstrBase
	Operand Expr
}

func (*PrintNode) Instruction() InstructionKind { return Print }

// ReturnNode ends the enclosing function call with Operand's value.
type ReturnNode struct {
	InstrBase
	Operand Expr
	Current value.Value
}

func (*ReturnNode) Instruction() InstructionKind { return Return }

// ============================================================
// Expressions
// ============================================================

// RelationalNode is a condition. For the unary Zero test Right is nil.
// Evaluation caches the truth value of the most recent execution.
type RelationalNode struct {
	InstrBase
	Op         value.Op
	Left       Expr
	Right      Expr
	Evaluation bool
}

func (*RelationalNode) Instruction() InstructionKind { return RelationalExpr }

// ArithNode is a binary arithmetic operation, or unary negation when Op is
// value.Negative (Right is then nil). Level records the precedence tier the
// parser reduced it at: AdditiveExpr or MultiplicativeExpr.
type ArithNode struct {
	ExprBase
	Level InstructionKind
	Op    value.Op
	Left  Expr
	Right Expr
}

func (*ArithNode) NodeKind() NodeKind             { return Instruction }
func (n *ArithNode) Instruction() InstructionKind { return n.Level }

// CallNode invokes the function bound to Name. Args is the head of the
// argument chain, nil for a call without arguments.
type CallNode struct {
	ExprBase
	Name string
	Args *ArgNode
}

func (*CallNode) NodeKind() NodeKind           { return Instruction }
func (*CallNode) Instruction() InstructionKind { return FunctionCall }

// ArgCount returns the number of arguments in the chain.
func (n *CallNode) ArgCount() int {
	count := 0
	for a := n.Args; a != nil; a = a.Rest {
		count++
	}
	return count
}

// ArgNode is one link of a call's argument chain.
type ArgNode struct {
	InstrBase
	Arg  Expr
	Rest *ArgNode
}

func (*ArgNode) Instruction() InstructionKind { return ArgBinding }

// ============================================================
// Terminals
// ============================================================

// IdentNode references a binding by name.
type IdentNode struct {
	ExprBase
	Name string
}

func (*IdentNode) NodeKind() NodeKind           { return Identifier }
func (*IdentNode) Instruction() InstructionKind { return NoInstruction }

// LiteralNode is a constant; its value is set at construction.
type LiteralNode struct {
	ExprBase
}

func (*LiteralNode) NodeKind() NodeKind           { return Value }
func (*LiteralNode) Instruction() InstructionKind { return NoInstruction }
