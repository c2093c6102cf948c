package runtime

import (
	"errors"
	"io"
	"log/slog"

	"toylang/internal/ast"
	"toylang/internal/symtab"
	"toylang/internal/value"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from node execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult carries a control flow signal and, for SigReturn, the value
// handed back to the caller.
type ExecResult struct {
	Signal ExecSignal
	Value  value.Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Options
// ============================================================

const (
	// DefaultMaxCallDepth bounds recursion when Options leave it unset.
	DefaultMaxCallDepth = 1000
	// DefaultReadRetries is how often a malformed read is re-prompted.
	DefaultReadRetries = 3
)

// Options tune the interpreter.
type Options struct {
	// Strict turns the silent fallbacks (mismatched arithmetic and
	// comparisons, reads of unbound names) into errors.
	Strict bool
	// MaxCallDepth bounds nested function activations.
	MaxCallDepth int
	// ReadRetries is how many times a malformed read is re-prompted
	// before the run fails.
	ReadRetries int
	// Logger receives debug events. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns compatibility mode with the default limits.
func DefaultOptions() Options {
	return Options{MaxCallDepth: DefaultMaxCallDepth, ReadRetries: DefaultReadRetries}
}

// ============================================================
// Interpreter
// ============================================================

// Interpreter walks the AST and executes it. It is not safe for concurrent
// use.
type Interpreter struct {
	opts    Options
	console *Console
	env     *Environment
	log     *slog.Logger
}

// NewInterpreter creates an interpreter that talks to console.
func NewInterpreter(console *Console, opts Options) *Interpreter {
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultMaxCallDepth
	}
	if opts.ReadRetries < 0 {
		opts.ReadRetries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Interpreter{opts: opts, console: console, log: logger}
}

// Run executes root against global. The table keeps every binding the run
// made, so a caller can run several programs against the same globals.
func (i *Interpreter) Run(root ast.Node, global *symtab.Table) error {
	if root == nil {
		return &StructuralError{Instruction: ast.Program, Message: "no program to run"}
	}
	if global == nil {
		global = symtab.New(symtab.DefaultCapacity)
	}
	i.env = NewEnvironment(global)
	_, err := i.execute(root)
	return err
}

// Env returns the environment of the last run (useful for REPL).
func (i *Interpreter) Env() *Environment {
	return i.env
}

// Strict reports whether strict mode is on.
func (i *Interpreter) Strict() bool { return i.opts.Strict }

// ============================================================
// Node dispatch
// ============================================================

func (i *Interpreter) execute(node ast.Node) (ExecResult, error) {
	switch n := node.(type) {
	case *ast.ProgramNode:
		if n.Body == nil {
			return resultNone, structuralErr(n, "program has no body")
		}
		return i.execute(n.Body)

	case *ast.SequenceNode:
		return i.execSequence(n)

	case *ast.DeclareNode:
		return resultNone, i.execDeclare(n)

	case *ast.FunctionDeclNode:
		return resultNone, i.execFunctionDecl(n)

	case *ast.AssignNode:
		return resultNone, i.execAssign(n)

	case *ast.IfNode:
		if n.Cond == nil || n.Body == nil {
			return resultNone, structuralErr(n, "if needs a condition and a body")
		}
		if err := i.evalCond(n.Cond); err != nil {
			return resultNone, err
		}
		if n.Cond.Evaluation {
			return i.execute(n.Body)
		}
		return resultNone, nil

	case *ast.IfElseNode:
		if n.Cond == nil || n.Then == nil || n.Else == nil {
			return resultNone, structuralErr(n, "ifelse needs a condition and two bodies")
		}
		if err := i.evalCond(n.Cond); err != nil {
			return resultNone, err
		}
		if n.Cond.Evaluation {
			return i.execute(n.Then)
		}
		return i.execute(n.Else)

	case *ast.WhileNode:
		return i.execWhile(n)

	case *ast.ReadNode:
		return resultNone, i.execRead(n)

	case *ast.PrintNode:
		return resultNone, i.execPrint(n)

	case *ast.ReturnNode:
		return i.execReturn(n)

	case *ast.RelationalNode:
		return resultNone, i.evalCond(n)

	case *ast.ArgNode:
		return resultNone, structuralErr(n, "argument binding outside of a call")

	case ast.Expr:
		_, err := i.eval(n)
		return resultNone, err

	default:
		return resultNone, runtimeErr(node.GetSpan(), nil, "unexpected node type: %T", node)
	}
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execSequence(n *ast.SequenceNode) (ExecResult, error) {
	for _, child := range [2]ast.Node{n.First, n.Second} {
		if child == nil {
			continue
		}
		result, err := i.execute(child)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate return
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execDeclare(n *ast.DeclareNode) error {
	frame := i.env.Current()
	if b := frame.Binding(n.Name); b != nil {
		if b.Kind == symtab.Scalar && b.Value.Kind() == n.Kind {
			return nil
		}
		if b.Kind == symtab.Function {
			return runtimeErr(n.GetSpan(), symtab.ErrDuplicate, "cannot redeclare function '%s'", n.Name)
		}
		return runtimeErr(n.GetSpan(), value.ErrTypeMismatch,
			"'%s' already declared as %s, not %s", n.Name, b.Value.Kind(), n.Kind)
	}
	if err := frame.InsertScalar(n.Name, value.ZeroOf(n.Kind)); err != nil {
		i.logInsertFailure(n.Name, err)
		return runtimeErr(n.GetSpan(), err, "declare '%s'", n.Name)
	}
	i.log.Debug("declare",
		slog.String("name", n.Name),
		slog.String("type", n.Kind.String()),
		slog.Int("stack-size", i.env.Depth()))
	return nil
}

func (i *Interpreter) execFunctionDecl(n *ast.FunctionDeclNode) error {
	if n.Body == nil {
		return structuralErr(n, "function '%s' has no body", n.Name)
	}
	scope := i.env.Current()
	if b := scope.Binding(n.Name); b != nil && b.Kind == symtab.Function && b.Body == n.Body {
		// the same declaration met again, e.g. on a later loop iteration
		return nil
	}
	if err := scope.InsertFunction(n.Name, n.Return, n.Params, n.Body); err != nil {
		i.logInsertFailure(n.Name, err)
		return runtimeErr(n.GetSpan(), err, "declare function '%s'", n.Name)
	}
	i.log.Debug("declare function",
		slog.String("name", n.Name),
		slog.Int("argument-count", len(n.Params)))
	return nil
}

func (i *Interpreter) execAssign(n *ast.AssignNode) error {
	if n.Target == nil || n.Source == nil {
		return structuralErr(n, "assignment needs a target and a source")
	}
	src, err := i.eval(n.Source)
	if err != nil {
		return err
	}

	name := n.Target.Name
	owner, b := i.env.Current().Resolve(name)
	if b == nil {
		if i.opts.Strict {
			return runtimeErr(n.Target.GetSpan(), ErrUnboundIdentifier, "assign to '%s'", name)
		}
		if err := i.env.Define(name, src); err != nil {
			i.logInsertFailure(name, err)
			return runtimeErr(n.GetSpan(), err, "assign to '%s'", name)
		}
		n.Target.SetResult(src)
		return nil
	}
	if b.Kind != symtab.Scalar {
		return structuralErr(n, "cannot assign to function '%s'", name)
	}
	if !value.KindsMatch(b.Value, src) {
		return structuralErr(n, "cannot assign %s to '%s' of type %s", src.Kind(), name, b.Value.Kind())
	}
	if err := owner.Assign(name, src); err != nil {
		return runtimeErr(n.GetSpan(), err, "assign to '%s'", name)
	}
	n.Target.SetResult(src)
	return nil
}

func (i *Interpreter) execWhile(n *ast.WhileNode) (ExecResult, error) {
	if n.Cond == nil || n.Body == nil {
		return resultNone, structuralErr(n, "while needs a condition and a body")
	}
	for {
		if err := i.evalCond(n.Cond); err != nil {
			return resultNone, err
		}
		if !n.Cond.Evaluation {
			return resultNone, nil
		}
		result, err := i.execute(n.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}
	}
}

func (i *Interpreter) execRead(n *ast.ReadNode) error {
	if n.Target == nil {
		return structuralErr(n, "read needs a target")
	}
	name := n.Target.Name
	current, err := i.evalIdent(n.Target)
	if err != nil {
		return err
	}
	kind := current.Kind()
	if kind == value.Unknown {
		return structuralErr(n, "cannot read into '%s' of unknown type", name)
	}

	var v value.Value
	for attempt := 0; ; attempt++ {
		i.console.Prompt(name)
		v, err = i.console.ReadValue(kind)
		if err == nil {
			break
		}
		if errors.Is(err, ErrInvalidInput) && attempt < i.opts.ReadRetries {
			i.log.Warn("invalid input",
				slog.String("name", name),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			continue
		}
		return runtimeErr(n.GetSpan(), err, "read '%s'", name)
	}

	err = i.env.Set(name, v)
	if errors.Is(err, symtab.ErrNotFound) {
		// unbound target, compatibility mode
		err = i.env.Define(name, v)
		i.logInsertFailure(name, err)
	}
	if err != nil {
		return runtimeErr(n.GetSpan(), err, "read '%s'", name)
	}
	n.Target.SetResult(v)
	return nil
}

func (i *Interpreter) execPrint(n *ast.PrintNode) error {
	if n.Operand == nil {
		return structuralErr(n, "print needs an operand")
	}
	v, err := i.eval(n.Operand)
	if err != nil {
		return err
	}
	if v.Kind() == value.Unknown {
		return structuralErr(n, "cannot print a value of unknown type")
	}
	if err := i.console.WriteValue(v); err != nil {
		return runtimeErr(n.GetSpan(), err, "print")
	}
	return nil
}

func (i *Interpreter) execReturn(n *ast.ReturnNode) (ExecResult, error) {
	if n.Operand == nil {
		return resultNone, structuralErr(n, "return needs an operand")
	}
	if i.env.Depth() == 0 {
		return resultNone, structuralErr(n, "return outside of function")
	}
	v, err := i.eval(n.Operand)
	if err != nil {
		return resultNone, err
	}
	n.Current = v
	return ExecResult{Signal: SigReturn, Value: v}, nil
}

// ============================================================
// Expression evaluation
// ============================================================

// eval executes an expression node, caches its result on the node and
// returns it.
func (i *Interpreter) eval(expr ast.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralNode:
		return e.Result(), nil
	case *ast.IdentNode:
		return i.evalIdent(e)
	case *ast.ArithNode:
		return i.evalArith(e)
	case *ast.CallNode:
		return i.evalCall(e)
	default:
		return value.Value{}, runtimeErr(expr.GetSpan(), nil, "unhandled expression type: %T", expr)
	}
}

func (i *Interpreter) evalIdent(e *ast.IdentNode) (value.Value, error) {
	v, ok := i.env.Get(e.Name)
	if !ok {
		if i.opts.Strict {
			return value.Value{}, runtimeErr(e.GetSpan(), ErrUnboundIdentifier, "'%s'", e.Name)
		}
		v = value.Int(0)
	}
	e.SetResult(v)
	return v, nil
}

// evalCond evaluates a condition and caches the outcome in Evaluation. It
// runs every time the node is visited so loops see fresh bindings.
func (i *Interpreter) evalCond(n *ast.RelationalNode) error {
	if n.Left == nil {
		return structuralErr(n, "condition needs an operand")
	}
	left, err := i.eval(n.Left)
	if err != nil {
		return err
	}
	if n.Op == value.Zero {
		n.Evaluation = !value.IsZero(left)
		return nil
	}
	if n.Right == nil {
		return structuralErr(n, "'%s' needs two operands", n.Op)
	}
	right, err := i.eval(n.Right)
	if err != nil {
		return err
	}
	if !i.opts.Strict {
		n.Evaluation = value.Compare(left, right, n.Op)
		return nil
	}
	ok, err := value.CompareStrict(left, right, n.Op)
	if err != nil {
		return runtimeErr(n.GetSpan(), err, "%s %s %s", left.Kind(), n.Op, right.Kind())
	}
	n.Evaluation = ok
	return nil
}

func (i *Interpreter) evalArith(e *ast.ArithNode) (value.Value, error) {
	if e.Left == nil {
		return value.Value{}, structuralErr(e, "'%s' needs an operand", e.Op)
	}
	left, err := i.eval(e.Left)
	if err != nil {
		return value.Value{}, err
	}
	if e.Op == value.Negative {
		result := value.Negate(left)
		e.SetResult(result)
		return result, nil
	}
	if e.Right == nil {
		return value.Value{}, structuralErr(e, "'%s' needs two operands", e.Op)
	}
	right, err := i.eval(e.Right)
	if err != nil {
		return value.Value{}, err
	}

	var result value.Value
	if i.opts.Strict {
		result, err = value.ArithmeticStrict(left, right, e.Op)
	} else {
		result, err = value.Arithmetic(left, right, e.Op)
	}
	if err != nil {
		return value.Value{}, runtimeErr(e.GetSpan(), err, "%s %s %s", left, e.Op, right)
	}
	e.SetResult(result)
	return result, nil
}

// ============================================================
// Function calls
// ============================================================

func (i *Interpreter) evalCall(e *ast.CallNode) (value.Value, error) {
	owner, fn := i.env.Current().Resolve(e.Name)
	if fn == nil || fn.Kind != symtab.Function {
		return value.Value{}, structuralErr(e, "'%s' is not a function", e.Name)
	}
	if fn.Body == nil {
		return value.Value{}, structuralErr(e, "function '%s' has no body", e.Name)
	}
	if supplied := e.ArgCount(); supplied < fn.ArgCount() {
		return value.Value{}, structuralErr(e, "'%s' expects %d arguments, got %d", e.Name, fn.ArgCount(), supplied)
	}
	if i.env.Depth() >= i.opts.MaxCallDepth {
		return value.Value{}, structuralErr(e, "maximum call depth %d exceeded in '%s'", i.opts.MaxCallDepth, e.Name)
	}

	// owner is the table the function was declared in
	frame := i.env.NewFrame(owner)
	if err := i.bindArgs(e, e.Args, fn.Params, frame); err != nil {
		return value.Value{}, err
	}

	i.log.Debug("function call",
		slog.String("function", e.Name),
		slog.Int("argument-count", e.ArgCount()))
	i.env.push(frame)
	i.log.Debug("push stack frame", slog.Int("stack-size", i.env.Depth()))

	result, err := i.execute(fn.Body)

	i.env.pop()
	i.log.Debug("pop stack frame", slog.Int("stack-size", i.env.Depth()))
	if err != nil {
		return value.Value{}, err
	}

	ret := fn.Value
	if result.Signal == SigReturn {
		ret = result.Value
	}
	if i.opts.Strict && fn.Value.Kind() != value.Unknown && !value.KindsMatch(fn.Value, ret) {
		return value.Value{}, runtimeErr(e.GetSpan(), value.ErrTypeMismatch,
			"'%s' returns %s, got %s", e.Name, fn.Value.Kind(), ret.Kind())
	}
	if err := owner.SetResult(e.Name, ret); err != nil {
		return value.Value{}, runtimeErr(e.GetSpan(), err, "call '%s'", e.Name)
	}
	e.SetResult(ret)
	return ret, nil
}

// bindArgs walks the argument chain alongside the parameter list. Each
// argument is evaluated in the caller's frame and bound in frame.
func (i *Interpreter) bindArgs(call *ast.CallNode, arg *ast.ArgNode, params []ast.Param, frame *symtab.Table) error {
	if arg == nil {
		return nil
	}
	if len(params) == 0 {
		return structuralErr(arg, "too many arguments to '%s'", call.Name)
	}
	if arg.Arg == nil {
		return structuralErr(arg, "missing argument value in call to '%s'", call.Name)
	}
	v, err := i.eval(arg.Arg)
	if err != nil {
		return err
	}
	param := params[0]
	if i.opts.Strict && !value.KindsMatch(param.Default, v) {
		return runtimeErr(arg.Arg.GetSpan(), value.ErrTypeMismatch,
			"parameter '%s' of '%s' is %s, got %s", param.Name, call.Name, param.Default.Kind(), v.Kind())
	}
	if err := frame.InsertScalar(param.Name, v); err != nil {
		return runtimeErr(arg.GetSpan(), err, "bind parameter '%s'", param.Name)
	}
	return i.bindArgs(call, arg.Rest, params[1:], frame)
}

func (i *Interpreter) logInsertFailure(name string, err error) {
	if err != nil && errors.Is(err, symtab.ErrCapacityExceeded) {
		i.log.Warn("symbol table full",
			slog.String("name", name),
			slog.Int("stack-size", i.env.Depth()))
	}
}
