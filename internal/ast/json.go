package ast

import (
	"toylang/internal/span"
	"toylang/internal/value"
)

// NodeToMap converts an AST node to a map suitable for JSON serialization.
// Every node becomes a tagged union with a "kind" field.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil || isNilNode(node) {
		return nil
	}

	switch n := node.(type) {
	case *ProgramNode:
		return m("Program", n.Span, "name", n.Name, "body", NodeToMap(n.Body))
	case *SequenceNode:
		return m("Sequence", n.Span, "first", NodeToMap(n.First), "second", NodeToMap(n.Second))
	case *DeclareNode:
		return m("Declare", n.Span, "name", n.Name, "type", n.Kind.String())
	case *FunctionDeclNode:
		params := make([]interface{}, len(n.Params))
		for i, p := range n.Params {
			params[i] = map[string]interface{}{
				"name": p.Name,
				"type": p.Default.Kind().String(),
			}
		}
		return m("FunctionDecl", n.Span,
			"name", n.Name,
			"returns", valueToMap(n.Return),
			"params", params,
			"body", NodeToMap(n.Body))

	// ---- Statements ----
	case *AssignNode:
		return m("Assign", n.Span, "target", NodeToMap(n.Target), "source", NodeToMap(n.Source))
	case *IfNode:
		return m("If", n.Span, "cond", NodeToMap(n.Cond), "body", NodeToMap(n.Body))
	case *IfElseNode:
		return m("IfElse", n.Span,
			"cond", NodeToMap(n.Cond),
			"then", NodeToMap(n.Then),
			"else", NodeToMap(n.Else))
	case *WhileNode:
		return m("While", n.Span, "cond", NodeToMap(n.Cond), "body", NodeToMap(n.Body))
	case *ReadNode:
		return m("Read", n.Span, "target", NodeToMap(n.Target))
	case *PrintNode:
		return m("Print", n.Span, "operand", NodeToMap(n.Operand))
	case *ReturnNode:
		return m("Return", n.Span, "operand", NodeToMap(n.Operand))

	// ---- Expressions ----
	case *RelationalNode:
		result := m("RelationalExpr", n.Span, "op", n.Op.String(), "left", NodeToMap(n.Left))
		if n.Right != nil {
			result["right"] = NodeToMap(n.Right)
		}
		return result
	case *ArithNode:
		result := m(n.Level.String(), n.Span, "op", n.Op.String(), "left", NodeToMap(n.Left))
		if n.Right != nil {
			result["right"] = NodeToMap(n.Right)
		}
		return result
	case *CallNode:
		args := make([]interface{}, 0, n.ArgCount())
		for a := n.Args; a != nil; a = a.Rest {
			args = append(args, NodeToMap(a.Arg))
		}
		return m("FunctionCall", n.Span, "name", n.Name, "args", args)
	case *ArgNode:
		return m("ArgBinding", n.Span, "arg", NodeToMap(n.Arg), "rest", NodeToMap(n.Rest))

	// ---- Terminals ----
	case *IdentNode:
		return m("Identifier", n.Span, "name", n.Name)
	case *LiteralNode:
		return m("Value", n.Span, "value", valueToMap(n.Current))

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ---- helpers ----

// isNilNode catches typed nil pointers stored in a Node interface, which
// the parser produces for optional children.
func isNilNode(node Node) bool {
	switch n := node.(type) {
	case *RelationalNode:
		return n == nil
	case *IdentNode:
		return n == nil
	case *ArgNode:
		return n == nil
	}
	return false
}

// m builds a map with kind, span, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind": kind,
		"span": spanToMap(s),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func spanToMap(s span.Span) map[string]interface{} {
	return map[string]interface{}{
		"start": map[string]interface{}{
			"offset": s.Start.Offset,
			"line":   s.Start.Line,
			"column": s.Start.Column,
		},
		"end": map[string]interface{}{
			"offset": s.End.Offset,
			"line":   s.End.Line,
			"column": s.End.Column,
		},
	}
}

func valueToMap(v value.Value) map[string]interface{} {
	return map[string]interface{}{
		"type":  v.Kind().String(),
		"value": v.String(),
	}
}
