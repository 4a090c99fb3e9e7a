package engine

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// dispatch runs the handler for the node on top of the stack. A handler
// either returns a child state to push, or finishes by popping itself.
func (in *Interpreter) dispatch(st *State) (*State, error) {
	switch n := st.Node.(type) {
	case *ast.Program:
		return in.stepProgram(st)
	case *ast.BlockStatement:
		return in.stepBlock(st, n)
	case *ast.ExpressionStatement:
		return in.stepExpressionStatement(st, n)
	case *ast.VariableStatement:
		return in.stepBindings(st, n.List, false, false)
	case *ast.LexicalDeclaration:
		return in.stepBindings(st, n.List, true, n.Token == token.CONST)
	case *ast.FunctionDeclaration, *ast.EmptyStatement, *ast.DebuggerStatement:
		in.pop()
		return nil, nil
	case *ast.IfStatement:
		return in.stepIf(st, n)
	case *ast.ForStatement:
		return in.stepFor(st, n)
	case *ast.ForInStatement:
		return in.stepForIn(st, n.Into, n.Source, n.Body, false)
	case *ast.ForOfStatement:
		return in.stepForIn(st, n.Into, n.Source, n.Body, true)
	case *ast.WhileStatement:
		return in.stepWhile(st, n)
	case *ast.DoWhileStatement:
		return in.stepDoWhile(st, n)
	case *ast.BranchStatement:
		return in.stepBranch(st, n)
	case *ast.LabelledStatement:
		return in.stepLabelled(st, n)
	case *ast.ReturnStatement:
		return in.stepReturn(st, n)
	case *ast.ThrowStatement:
		return in.stepThrow(st, n)
	case *ast.TryStatement:
		return in.stepTry(st, n)
	case *ast.CatchStatement:
		return in.stepCatch(st, n)
	case *ast.SwitchStatement:
		return in.stepSwitch(st, n)
	case *ast.WithStatement:
		return nil, in.raise(in.Errorf(SyntaxError, "with statements are not supported"))
	case *ast.ExpressionBody:
		return in.stepExpressionBody(st, n)
	}
	return in.dispatchExpression(st)
}

func (in *Interpreter) child(st *State, node ast.Node) *State {
	return &State{Node: node, Scope: st.Scope}
}

func (in *Interpreter) stepProgram(st *State) (*State, error) {
	if st.n < len(st.stmts) {
		next := in.child(st, st.stmts[st.n])
		st.n++
		return next, nil
	}
	st.done = true
	return nil, nil
}

func (in *Interpreter) stepBlock(st *State, n *ast.BlockStatement) (*State, error) {
	if st.n == 0 && !st.functionBody && st.phase == 0 {
		st.phase = 1
		if d := in.blockDeclarations(n); d != nil {
			st.Scope = in.newScope(st.Scope, st.Scope.Strict)
			in.declareLexical(st.Scope, d)
		}
	}
	if st.n < len(n.List) {
		next := in.child(st, n.List[st.n])
		st.n++
		return next, nil
	}
	in.pop()
	return nil, nil
}

func (in *Interpreter) stepExpressionStatement(st *State, n *ast.ExpressionStatement) (*State, error) {
	if st.phase == 0 {
		st.phase = 1
		return in.child(st, n.Expression), nil
	}
	in.pop()
	in.value = st.Value
	return nil, nil
}

// stepBindings runs var, let and const declarations. Each initializer is
// evaluated in turn and assigned; let and const bind in the current scope.
func (in *Interpreter) stepBindings(st *State, list []*ast.Binding, lexical, constant bool) (*State, error) {
	for {
		switch st.phase {
		case 1:
			st.phase = 0
			b := list[st.n-1]
			name := b.Target.(*ast.Identifier).Name.String()
			v := st.Value
			if lexical {
				a := attrNotConfigurable
				if constant {
					a |= attrNotWritable | attrConst
				}
				st.Scope.Object.define(name, v, a)
				continue
			}
			if err := in.setValue(st.Scope, name, v); err != nil {
				return nil, in.raise(err)
			}
			if in.ec.setterPending {
				st.phase = 2
				return in.callAccessor(st, ObjectValue(in.global.Object), []Value{v}), nil
			}
		case 2:
			st.phase = 0
		}
		if st.n >= len(list) {
			in.pop()
			return nil, nil
		}
		b := list[st.n]
		st.n++
		id, ok := b.Target.(*ast.Identifier)
		if !ok {
			return nil, in.raise(in.Errorf(SyntaxError, "destructuring declarations are not supported"))
		}
		if b.Initializer != nil {
			st.phase = 1
			return in.namedChild(st, b.Initializer, id.Name.String()), nil
		}
		if lexical {
			st.Scope.Object.define(id.Name.String(), Undefined(), attrNotConfigurable)
		}
	}
}

// namedChild evaluates expr; an anonymous function literal takes name.
func (in *Interpreter) namedChild(st *State, expr ast.Expression, name string) *State {
	next := in.child(st, expr)
	switch f := expr.(type) {
	case *ast.FunctionLiteral:
		if f.Name == nil {
			next.key = name
		}
	case *ast.ArrowFunctionLiteral:
		next.key = name
	}
	return next
}

func (in *Interpreter) stepIf(st *State, n *ast.IfStatement) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		return in.child(st, n.Test), nil
	case 1:
		in.pop()
		if ToBoolean(st.Value) {
			return in.child(st, n.Consequent), nil
		}
		if n.Alternate != nil {
			return in.child(st, n.Alternate), nil
		}
	}
	return nil, nil
}

func (in *Interpreter) stepFor(st *State, n *ast.ForStatement) (*State, error) {
	for {
		switch st.phase {
		case 0:
			st.phase = 1
			switch init := n.Initializer.(type) {
			case *ast.ForLoopInitializerExpression:
				return in.child(st, init.Expression), nil
			case *ast.ForLoopInitializerVarDeclList:
				return in.child(st, &ast.VariableStatement{Var: init.Idx0(), List: init.List}), nil
			case *ast.ForLoopInitializerLexicalDecl:
				st.Scope = in.newScope(st.Scope, st.Scope.Strict)
				return in.child(st, &init.LexicalDeclaration), nil
			}
		case 1:
			st.phase = 2
			if n.Test != nil {
				return in.child(st, n.Test), nil
			}
			st.Value = Bool(true)
		case 2:
			if !ToBoolean(st.Value) {
				in.pop()
				return nil, nil
			}
			st.phase = 3
			st.isLoop = true
			return in.child(st, n.Body), nil
		case 3:
			st.phase = 1
			if n.Update != nil {
				return in.child(st, n.Update), nil
			}
		}
	}
}

func (in *Interpreter) stepWhile(st *State, n *ast.WhileStatement) (*State, error) {
	if st.phase == 0 {
		st.phase = 1
		return in.child(st, n.Test), nil
	}
	if !ToBoolean(st.Value) {
		in.pop()
		return nil, nil
	}
	st.phase = 0
	st.isLoop = true
	return in.child(st, n.Body), nil
}

func (in *Interpreter) stepDoWhile(st *State, n *ast.DoWhileStatement) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		st.isLoop = true
		return in.child(st, n.Body), nil
	case 1:
		st.phase = 2
		return in.child(st, n.Test), nil
	}
	if !ToBoolean(st.Value) {
		in.pop()
		return nil, nil
	}
	st.phase = 1
	return in.child(st, n.Body), nil
}

// stepForIn drives for-in (enumerable keys along the prototype chain,
// skipping keys deleted mid-loop) and for-of (array-like values).
func (in *Interpreter) stepForIn(st *State, into ast.ForInto, source ast.Expression, body ast.Statement, of bool) (*State, error) {
	for {
		switch st.phase {
		case 0:
			st.phase = 1
			if _, ok := into.(*ast.ForDeclaration); ok {
				st.Scope = in.newScope(st.Scope, st.Scope.Strict)
			}
			return in.child(st, source), nil
		case 1:
			src := st.Value
			if src.IsNullish() {
				if of {
					return nil, in.raise(in.Errorf(TypeError, "%s is not iterable", src.kind))
				}
				in.pop()
				return nil, nil
			}
			o, err := in.toObject(src)
			if err != nil {
				return nil, in.raise(err)
			}
			st.obj = o
			if of {
				n := arrayLength(o)
				if o.class == classString {
					n = len([]rune(o.primitive.s))
				} else if o.class != classArray && o.class != classArguments {
					return nil, in.raise(in.Errorf(TypeError, "%s is not iterable", in.ToString(src)))
				}
				st.vals = make([]Value, n)
				for i := range st.vals {
					st.vals[i] = o.dataGet(indexKey(i))
				}
			} else {
				st.keys = forInKeys(o)
			}
			st.phase = 2
		case 2:
			var item Value
			if of {
				if st.n >= len(st.vals) {
					in.pop()
					return nil, nil
				}
				item = st.vals[st.n]
			} else {
				if st.n >= len(st.keys) {
					in.pop()
					return nil, nil
				}
				key := st.keys[st.n]
				if st.obj.lookup(key) == nil {
					st.n++
					continue
				}
				item = String(key)
			}
			st.n++
			st.left = item
			switch t := into.(type) {
			case *ast.ForIntoVar:
				id, ok := t.Binding.Target.(*ast.Identifier)
				if !ok {
					return nil, in.raise(in.Errorf(SyntaxError, "destructuring declarations are not supported"))
				}
				if err := in.setValue(st.Scope, id.Name.String(), item); err != nil {
					return nil, in.raise(err)
				}
			case *ast.ForDeclaration:
				id, ok := t.Target.(*ast.Identifier)
				if !ok {
					return nil, in.raise(in.Errorf(SyntaxError, "destructuring declarations are not supported"))
				}
				a := attrNotConfigurable
				if t.IsConst {
					a |= attrNotWritable | attrConst
				}
				st.Scope.Object.define(id.Name.String(), item, a)
			case *ast.ForIntoExpression:
				st.phase = 3
				next := in.child(st, t.Expression)
				next.components = true
				return next, nil
			}
			if in.ec.setterPending {
				st.phase = 4
				return in.callAccessor(st, ObjectValue(in.global.Object), []Value{item}), nil
			}
			st.phase = 2
			st.isLoop = true
			return in.child(st, body), nil
		case 3:
			if err := in.assignRef(st.ref, st.left); err != nil {
				return nil, in.raise(err)
			}
			if in.ec.setterPending {
				st.phase = 4
				return in.callAccessor(st, st.ref.base, []Value{st.left}), nil
			}
			st.phase = 4
		case 4:
			st.phase = 2
			st.isLoop = true
			return in.child(st, body), nil
		}
	}
}

// forInKeys lists enumerable keys of o and its prototypes, shadowed keys
// once.
func forInKeys(o *Object) []string {
	seen := make(map[string]bool)
	var keys []string
	for cur := o; cur != nil; cur = cur.proto {
		for _, k := range cur.ownKeys() {
			if seen[k] {
				continue
			}
			seen[k] = true
			if cur.isEnumerable(k) {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func (in *Interpreter) stepBranch(st *State, n *ast.BranchStatement) (*State, error) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name.String()
	}
	kind := Break
	if n.Token == token.CONTINUE {
		kind = Continue
	}
	return nil, in.unwind(kind, Undefined(), label)
}

func (in *Interpreter) stepLabelled(st *State, n *ast.LabelledStatement) (*State, error) {
	in.pop()
	next := in.child(st, n.Statement)
	next.labels = append(append([]string(nil), st.labels...), n.Label.Name.String())
	return next, nil
}

func (in *Interpreter) stepReturn(st *State, n *ast.ReturnStatement) (*State, error) {
	if n.Argument != nil && st.phase == 0 {
		st.phase = 1
		return in.child(st, n.Argument), nil
	}
	return nil, in.unwind(Return, st.Value, "")
}

func (in *Interpreter) stepExpressionBody(st *State, n *ast.ExpressionBody) (*State, error) {
	if st.phase == 0 {
		st.phase = 1
		return in.child(st, n.Expression), nil
	}
	return nil, in.unwind(Return, st.Value, "")
}

func (in *Interpreter) stepThrow(st *State, n *ast.ThrowStatement) (*State, error) {
	if st.phase == 0 {
		st.phase = 1
		return in.child(st, n.Argument), nil
	}
	return nil, in.throw(st.Value)
}

// stepTry runs the block, then the handler if the block threw, then the
// finalizer; a completion recorded by unwind resumes after the finalizer.
func (in *Interpreter) stepTry(st *State, n *ast.TryStatement) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		return in.child(st, n.Body), nil
	case 1:
		st.phase = 2
		if st.cv != nil && st.cv.Kind == Throw && n.Catch != nil {
			thrown := st.cv.Value
			st.cv = nil
			next := in.child(st, n.Catch)
			next.left = thrown
			return next, nil
		}
		fallthrough
	case 2:
		if n.Finally != nil {
			st.phase = 3
			return in.child(st, n.Finally), nil
		}
	}
	in.pop()
	if cv := st.cv; cv != nil {
		return nil, in.unwind(cv.Kind, cv.Value, cv.Label)
	}
	return nil, nil
}

func (in *Interpreter) stepCatch(st *State, n *ast.CatchStatement) (*State, error) {
	in.pop()
	scope := in.newScope(st.Scope, st.Scope.Strict)
	if n.Parameter != nil {
		id, ok := n.Parameter.(*ast.Identifier)
		if !ok {
			return nil, in.raise(in.Errorf(SyntaxError, "destructuring catch parameters are not supported"))
		}
		scope.declare(id.Name.String(), st.left)
	}
	return &State{Node: n.Body, Scope: scope}, nil
}

func (in *Interpreter) stepSwitch(st *State, n *ast.SwitchStatement) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		return in.child(st, n.Discriminant), nil
	case 1:
		st.phase = 2
		st.left = st.Value
		st.defaultCase = -1
		st.n = 0
	}
	for {
		var c *ast.CaseStatement
		if st.n < len(n.Body) {
			c = n.Body[st.n]
		}
		if !st.matched && c != nil && c.Test == nil {
			st.defaultCase = st.n
			st.n++
			continue
		}
		if c == nil && !st.matched && st.defaultCase != -1 {
			st.matched = true
			st.n = st.defaultCase
			continue
		}
		if c == nil {
			in.pop()
			return nil, nil
		}
		if !st.matched && !st.tested && c.Test != nil {
			st.tested = true
			return in.child(st, c.Test), nil
		}
		if st.matched || StrictEquals(st.Value, st.left) {
			st.matched = true
			if st.m < len(c.Consequent) {
				st.isSwitch = true
				st.m++
				return in.child(st, c.Consequent[st.m-1]), nil
			}
		}
		st.tested = false
		st.m = 0
		st.n++
	}
}
