package engine

import (
	"github.com/dop251/goja/ast"
)

// Call is the receiver and argument list handed to a native function.
type Call struct {
	This  Value
	Args  []Value
	IsNew bool
}

// Arg returns the i-th argument or undefined.
func (c Call) Arg(i int) Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return Undefined()
}

// NativeFunc is a host function that returns synchronously. Returning a
// *ThrowError (see Interpreter.Errorf) raises a catchable guest exception.
type NativeFunc func(in *Interpreter, c Call) (Value, error)

// Callback delivers the result of an async native. It may be invoked from any
// goroutine, exactly once.
type Callback func(Value, error)

type deferred struct {
	fn func(in *Interpreter) (Value, error)
}

func (d *deferred) Error() string { return "deferred async result" }

// Later wraps fn so that an async native can hand it to its Callback from any
// goroutine. fn runs on the goroutine driving the interpreter, which is the
// only place guest values may be built.
func Later(fn func(in *Interpreter) (Value, error)) error {
	return &deferred{fn: fn}
}

// AsyncFunc is a host function that suspends the interpreter until done is
// called.
type AsyncFunc func(in *Interpreter, c Call, done Callback)

// Function holds exactly one of the interpreted, native or async variants.
type Function struct {
	name string

	// interpreted
	node   ast.Node
	scope  *Scope
	params []string
	rest   string
	arrow  bool
	strict bool
	text   string

	native NativeFunc
	async  AsyncFunc

	// ctor marks natives usable with new.
	ctor bool
}

// Name returns the function's declared name.
func (f *Function) Name() string { return f.name }

// IsNative reports whether the function is implemented by the host.
func (f *Function) IsNative() bool { return f.native != nil || f.async != nil }

func (f *Function) source() string {
	if f.text != "" {
		return f.text
	}
	return "function " + f.name + "() { [native code] }"
}

func (in *Interpreter) newFunctionObject(f *Function, nparams int) *Object {
	o := newObject(in.protos.function, classFunction)
	o.fn = f
	o.define("length", Int(nparams), attrNotEnumerable|attrNotWritable)
	o.define("name", String(f.name), attrNotEnumerable|attrNotWritable)
	return o
}

// NewNative wraps a synchronous host function.
func (in *Interpreter) NewNative(name string, nparams int, fn NativeFunc) *Object {
	return in.newFunctionObject(&Function{name: name, native: fn}, nparams)
}

// NewAsync wraps a host function that completes through a callback.
func (in *Interpreter) NewAsync(name string, nparams int, fn AsyncFunc) *Object {
	return in.newFunctionObject(&Function{name: name, async: fn}, nparams)
}

// newConstructor wraps a native usable with new and gives it a prototype
// object.
func (in *Interpreter) newConstructor(name string, nparams int, proto *Object, fn NativeFunc) *Object {
	o := in.newFunctionObject(&Function{name: name, native: fn, ctor: true}, nparams)
	o.define("prototype", ObjectValue(proto), attrNotEnumerable|attrNotWritable|attrNotConfigurable)
	proto.define("constructor", ObjectValue(o), hidden)
	return o
}

// newClosure creates an interpreted function over node, closing over scope.
func (in *Interpreter) newClosure(node ast.Node, scope *Scope, name string) (*Object, error) {
	f := &Function{node: node, scope: scope, name: name}
	var params *ast.ParameterList
	switch n := node.(type) {
	case *ast.FunctionLiteral:
		if n.Async || n.Generator {
			return nil, in.Errorf(SyntaxError, "async and generator functions are not supported")
		}
		params = n.ParameterList
		f.text = n.Source
		f.strict = scope.Strict || hasUseStrict(n.Body.List)
		if f.name == "" && n.Name != nil {
			f.name = n.Name.Name.String()
		}
	case *ast.ArrowFunctionLiteral:
		if n.Async {
			return nil, in.Errorf(SyntaxError, "async functions are not supported")
		}
		params = n.ParameterList
		f.arrow = true
		f.text = n.Source
		f.strict = scope.Strict
		if b, ok := n.Body.(*ast.BlockStatement); ok {
			f.strict = f.strict || hasUseStrict(b.List)
		}
	default:
		return nil, faultf("cannot create closure from %T", node)
	}
	if params != nil {
		for _, b := range params.List {
			id, ok := b.Target.(*ast.Identifier)
			if !ok || b.Initializer != nil {
				return nil, in.Errorf(SyntaxError, "only plain parameters are supported")
			}
			f.params = append(f.params, id.Name.String())
		}
		if params.Rest != nil {
			id, ok := params.Rest.(*ast.Identifier)
			if !ok {
				return nil, in.Errorf(SyntaxError, "only plain rest parameters are supported")
			}
			f.rest = id.Name.String()
		}
	}
	o := in.newFunctionObject(f, len(f.params))
	if !f.arrow {
		proto := in.NewObject()
		proto.define("constructor", ObjectValue(o), hidden)
		o.define("prototype", ObjectValue(proto), attrNotEnumerable)
	}
	return o, nil
}

func hasUseStrict(list []ast.Statement) bool {
	for _, st := range list {
		es, ok := st.(*ast.ExpressionStatement)
		if !ok {
			return false
		}
		lit, ok := es.Expression.(*ast.StringLiteral)
		if !ok {
			return false
		}
		if lit.Value.String() == "use strict" {
			return true
		}
	}
	return false
}
