package engine

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
)

// CompletionKind classifies how a statement finished.
type CompletionKind uint8

const (
	Normal CompletionKind = iota
	Break
	Continue
	Return
	Throw
)

func (k CompletionKind) String() string {
	return [...]string{"normal", "break", "continue", "return", "throw"}[k]
}

// Completion is the outcome of an abrupt transfer of control.
type Completion struct {
	Kind  CompletionKind
	Value Value
	Label string
}

// State is one frame of the explicit evaluation stack: the node being
// evaluated, its scope, the value its last child produced and the progress
// fields a handler needs to resume where it stopped.
type State struct {
	Node  ast.Node
	Scope *Scope
	Value Value

	phase int
	n     int

	// components asks a member or identifier node for a reference rather
	// than a value.
	components bool
	ref        reference

	left Value
	obj  *Object
	key  string
	keys []string
	vals []Value

	// call frames
	fn    Value
	this  Value
	args  []Value
	isNew bool

	// control flow
	labels   []string
	isLoop   bool
	isSwitch bool
	cv       *Completion

	// switch; m indexes the consequent of the current case
	m           int
	matched     bool
	tested      bool
	defaultCase int

	// program and function bodies
	stmts        []ast.Statement
	done         bool
	functionBody bool
}

// reference is the result of evaluating an assignment target: either a
// variable name in a scope, or a property name on a base value.
type reference struct {
	scope *Scope
	base  Value
	name  string
}

func (r reference) isVariable() bool { return r.scope != nil }

// syntheticCall is the node of a call frame made up by the interpreter, for
// accessor invocations and calls started from the host. Callee, receiver and
// arguments are already resolved.
type syntheticCall struct {
	at file.Idx
}

func (s *syntheticCall) Idx0() file.Idx { return s.at }
func (s *syntheticCall) Idx1() file.Idx { return s.at }

// EvaluationContext carries the cross-step flags of the evaluator: pending
// accessor calls and the async suspension.
type EvaluationContext struct {
	getterPending bool
	setterPending bool
	accessor      *Object

	paused bool
	// wake belongs to the current suspension only
	wake chan asyncResult

	// redirect is set by Function.prototype.call/apply/bind to re-target the
	// current call frame.
	redirect *redirect
}

type asyncResult struct {
	value  Value
	err    error
	finish func(in *Interpreter) (Value, error)
}

type redirect struct {
	fn   Value
	this Value
	args []Value
}

func (ec *EvaluationContext) takeAccessor() *Object {
	fn := ec.accessor
	ec.accessor = nil
	ec.getterPending = false
	ec.setterPending = false
	return fn
}
