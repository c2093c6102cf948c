package ast

import "toylang/internal/value"

// The Make* builders wire children into a fresh node. They never evaluate
// anything; in particular relational nodes are only evaluated when the
// runtime visits them.

// MakeProgram wraps body as the root node.
func MakeProgram(name string, body Node) *ProgramNode {
	return &ProgramNode{Name: name, Body: body}
}

// MakeSequence runs first, then second.
func MakeSequence(first, second Node) *SequenceNode {
	return &SequenceNode{First: first, Second: second}
}

// SequenceOf chains nodes into right-nested sequences, the shape a
// left-to-right reduction produces. Nil entries are skipped; an empty list
// yields nil and a single node is returned unwrapped.
func SequenceOf(nodes ...Node) Node {
	var kept []Node
	for _, n := range nodes {
		if n != nil {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	out := kept[len(kept)-1]
	for i := len(kept) - 2; i >= 0; i-- {
		out = MakeSequence(kept[i], out)
	}
	return out
}

// MakeDeclare declares name with the zero value of kind.
func MakeDeclare(name string, kind value.Kind) *DeclareNode {
	return &DeclareNode{Name: name, Kind: kind}
}

// MakeFunctionDecl declares a function whose binding starts out holding ret.
func MakeFunctionDecl(name string, ret value.Value, params []Param, body Node) *FunctionDeclNode {
	return &FunctionDeclNode{Name: name, Return: ret, Params: params, Body: body}
}

// MakeAssign assigns source to the binding named by target.
func MakeAssign(target *IdentNode, source Expr) *AssignNode {
	return &AssignNode{Target: target, Source: source}
}

// MakeIf runs body when cond holds.
func MakeIf(cond *RelationalNode, body Node) *IfNode {
	return &IfNode{Cond: cond, Body: body}
}

// MakeIfElse runs thenBody or elseBody.
func MakeIfElse(cond *RelationalNode, thenBody, elseBody Node) *IfElseNode {
	return &IfElseNode{Cond: cond, Then: thenBody, Else: elseBody}
}

// MakeWhile loops body while cond holds.
func MakeWhile(cond *RelationalNode, body Node) *WhileNode {
	return &WhileNode{Cond: cond, Body: body}
}

// MakeRead reads console input into target.
func MakeRead(target *IdentNode) *ReadNode {
	return &ReadNode{Target: target}
}

// MakePrint writes operand's value.
func MakePrint(operand Expr) *PrintNode {
	return &PrintNode{Operand: operand}
}

// MakeReturn returns operand's value from the enclosing function.
func MakeReturn(operand Expr) *ReturnNode {
	return &ReturnNode{Operand: operand}
}

// MakeRelationalExpr builds a condition. For value.Zero pass a nil right.
func MakeRelationalExpr(op value.Op, left, right Expr) *RelationalNode {
	return &RelationalNode{Op: op, Left: left, Right: right}
}

// MakeArithmeticExpr builds an arithmetic node. Sum and Subtract reduce at
// the additive tier; everything else, unary negation included, at the
// multiplicative tier.
func MakeArithmeticExpr(op value.Op, left, right Expr) *ArithNode {
	level := MultiplicativeExpr
	if op == value.Sum || op == value.Subtract {
		level = AdditiveExpr
	}
	return &ArithNode{Level: level, Op: op, Left: left, Right: right}
}

// MakeFunctionCall calls name with the given argument chain.
func MakeFunctionCall(name string, args *ArgNode) *CallNode {
	return &CallNode{Name: name, Args: args}
}

// MakeArgBinding prepends arg to the chain rest.
func MakeArgBinding(arg Expr, rest *ArgNode) *ArgNode {
	return &ArgNode{Arg: arg, Rest: rest}
}

// ArgsOf builds an argument chain from a slice, preserving order.
func ArgsOf(args ...Expr) *ArgNode {
	var head *ArgNode
	for i := len(args) - 1; i >= 0; i-- {
		head = MakeArgBinding(args[i], head)
	}
	return head
}

// MakeIdentifier references the binding called name.
func MakeIdentifier(name string) *IdentNode {
	return &IdentNode{Name: name}
}

// MakeLiteral returns a constant node holding v.
func MakeLiteral(v value.Value) *LiteralNode {
	n := &LiteralNode{}
	n.Current = v
	return n
}

// MakeTerminal builds an Identifier or Value leaf. It returns nil for any
// other kind, or when the piece the kind needs is missing.
func MakeTerminal(kind NodeKind, name string, v *value.Value) Expr {
	switch kind {
	case Identifier:
		if name == "" {
			return nil
		}
		id := MakeIdentifier(name)
		if v != nil {
			id.Current = *v
		}
		return id
	case Value:
		if v == nil {
			return nil
		}
		return MakeLiteral(*v)
	default:
		return nil
	}
}
