package engine

import (
	"sync"

	"github.com/dop251/goja/ast"
)

// Progress of a call frame.
const (
	phaseCallee = iota
	phaseMethod
	phaseCalleeValue
	phaseArgs
	phaseExec
	phaseReturn
)

// callAccessor pushes a synthetic call of the pending getter or setter on
// this with args. Its result lands in the caller's Value.
func (in *Interpreter) callAccessor(st *State, this Value, args []Value) *State {
	return in.callMethod(st, in.ec.takeAccessor(), this, args)
}

// callMethod pushes a synthetic call of fn on this with args. Its result
// lands in the caller's Value.
func (in *Interpreter) callMethod(st *State, fn *Object, this Value, args []Value) *State {
	return &State{
		Node:  &syntheticCall{at: st.Node.Idx0()},
		Scope: st.Scope,
		fn:    ObjectValue(fn),
		this:  this,
		args:  args,
		phase: phaseExec,
	}
}

func callParts(node ast.Node) (callee ast.Expression, args []ast.Expression, isNew bool) {
	switch n := node.(type) {
	case *ast.CallExpression:
		return n.Callee, n.ArgumentList, false
	case *ast.NewExpression:
		return n.Callee, n.ArgumentList, true
	}
	return nil, nil, false
}

// stepCall evaluates the callee (keeping the receiver of a member call), the
// arguments left to right, then executes the call.
func (in *Interpreter) stepCall(st *State) (*State, error) {
	callee, argList, isNew := callParts(st.Node)
	for {
		switch st.phase {
		case phaseCallee:
			st.isNew = isNew
			switch callee.(type) {
			case *ast.DotExpression, *ast.BracketExpression:
				st.phase = phaseMethod
				next := in.child(st, callee)
				next.components = true
				return next, nil
			}
			st.phase = phaseCalleeValue
			return in.child(st, callee), nil
		case phaseMethod:
			// new a.B() constructs a fresh receiver in exec
			if !st.isNew {
				st.this = st.ref.base
			}
			v, err := in.getProperty(st.ref.base, st.ref.name)
			if err != nil {
				return nil, in.raise(err)
			}
			st.phase = phaseCalleeValue
			if in.ec.getterPending {
				return in.callAccessor(st, st.ref.base, nil), nil
			}
			st.Value = v
		case phaseCalleeValue:
			st.fn = st.Value
			st.phase = phaseArgs
			st.n = 0
		case phaseArgs:
			if st.n > 0 {
				st.args = append(st.args, st.Value)
			}
			if st.n < len(argList) {
				arg := argList[st.n]
				st.n++
				if _, ok := arg.(*ast.SpreadElement); ok {
					return nil, in.raise(in.Errorf(SyntaxError, "spread arguments are not supported"))
				}
				return in.child(st, arg), nil
			}
			st.phase = phaseExec
		case phaseExec:
			return in.exec(st, callee)
		case phaseReturn:
			v := st.Value
			if st.isNew && v.kind != KindObject {
				v = st.this
			}
			in.ascend(v)
			return nil, nil
		}
	}
}

// exec starts the call described by st.fn, st.this and st.args.
func (in *Interpreter) exec(st *State, callee ast.Expression) (*State, error) {
	for {
		if !st.fn.IsFunction() {
			what := describeCallee(callee)
			if st.isNew {
				return nil, in.raise(in.Errorf(TypeError, "%s is not a constructor", what))
			}
			return nil, in.raise(in.Errorf(TypeError, "%s is not a function", what))
		}
		fnObj := st.fn.o
		f := fnObj.fn
		if st.isNew && st.this.kind != KindObject {
			if f.arrow || (f.IsNative() && !f.ctor) {
				return nil, in.raise(in.Errorf(TypeError, "%s is not a constructor", describeCallee(callee)))
			}
			proto := in.protos.object
			if p := fnObj.dataGet("prototype"); p.kind == KindObject {
				proto = p.o
			}
			st.this = ObjectValue(newObject(proto, classObject))
		}
		st.phase = phaseReturn
		st.Value = Undefined()
		switch {
		case f.node != nil:
			return in.enter(st, fnObj)
		case f.native != nil:
			v, err := f.native(in, Call{This: st.this, Args: st.args, IsNew: st.isNew})
			if r := in.ec.redirect; r != nil {
				in.ec.redirect = nil
				if err != nil {
					return nil, in.raise(err)
				}
				st.fn, st.this, st.args = r.fn, r.this, r.args
				continue
			}
			if err != nil {
				return nil, in.raise(err)
			}
			st.Value = v
			return nil, nil
		case f.async != nil:
			if in.ec.paused {
				return nil, &EngineFault{Message: ErrSuspended.Error(), Trace: in.trace()}
			}
			// each suspension gets its own channel so a callback that
			// arrives after a manual Resume cannot answer a later call
			in.ec.paused = true
			wake := make(chan asyncResult, 1)
			in.ec.wake = wake
			var once sync.Once
			f.async(in, Call{This: st.this, Args: st.args, IsNew: st.isNew}, func(v Value, err error) {
				r := asyncResult{value: v, err: err}
				if d, ok := err.(*deferred); ok {
					r = asyncResult{finish: d.fn}
				}
				once.Do(func() { wake <- r })
			})
			// A callback fired before returning completes the call now.
			select {
			case r := <-wake:
				return nil, in.apply(r)
			default:
			}
			return nil, nil
		}
		return nil, faultf("function %q has no implementation", f.name)
	}
}

// enter sets up the scope of an interpreted function and pushes its body.
func (in *Interpreter) enter(st *State, fnObj *Object) (*State, error) {
	f := fnObj.fn
	scope := in.newScope(f.scope, f.strict)
	for i, p := range f.params {
		v := Undefined()
		if i < len(st.args) {
			v = st.args[i]
		}
		scope.Object.define(p, v, 0)
	}
	if f.rest != "" {
		var rest []Value
		if len(st.args) > len(f.params) {
			rest = append(rest, st.args[len(f.params):]...)
		}
		scope.Object.define(f.rest, ObjectValue(in.NewArray(rest)), 0)
	}
	if !f.arrow {
		this := st.this
		if !f.strict && this.IsNullish() {
			this = ObjectValue(in.global.Object)
		}
		scope.Object.define("this", this, attrNotWritable|attrNotConfigurable)
		args := newObject(in.protos.object, classArguments)
		for i, a := range st.args {
			args.define(indexKey(i), a, 0)
		}
		args.define("length", Int(len(st.args)), hidden)
		args.define("callee", ObjectValue(fnObj), hidden)
		scope.Object.define("arguments", ObjectValue(args), 0)
	}
	switch n := f.node.(type) {
	case *ast.FunctionLiteral:
		if err := in.hoist(scope, n, n.Body.List); err != nil {
			return nil, in.raise(err)
		}
		return &State{Node: n.Body, Scope: scope, functionBody: true}, nil
	case *ast.ArrowFunctionLiteral:
		switch body := n.Body.(type) {
		case *ast.BlockStatement:
			if err := in.hoist(scope, n, body.List); err != nil {
				return nil, in.raise(err)
			}
			return &State{Node: body, Scope: scope, functionBody: true}, nil
		case *ast.ExpressionBody:
			return &State{Node: body, Scope: scope}, nil
		}
	}
	return nil, faultf("unexpected function body %T", f.node)
}

// Redirect re-targets the call frame of the running native to fn with the
// given receiver and arguments. It backs Function.prototype.call, apply and
// bound functions.
func (in *Interpreter) Redirect(fn, this Value, args []Value) {
	in.ec.redirect = &redirect{fn: fn, this: this, args: args}
}

func describeCallee(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Name.String()
	case *ast.DotExpression:
		return describeCallee(n.Left) + "." + n.Identifier.Name.String()
	case *ast.BracketExpression:
		return describeCallee(n.Left) + "[...]"
	case *ast.ThisExpression:
		return "this"
	case nil:
		return "value"
	}
	return "expression"
}
