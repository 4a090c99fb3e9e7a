package engine

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

func (in *Interpreter) dispatchExpression(st *State) (*State, error) {
	switch n := st.Node.(type) {
	case *ast.NumberLiteral:
		switch v := n.Value.(type) {
		case int64:
			in.ascend(Number(float64(v)))
		case float64:
			in.ascend(Number(v))
		case *big.Int:
			return nil, in.raise(in.Errorf(SyntaxError, "BigInt literals are not supported"))
		default:
			return nil, faultf("unexpected number literal %T", n.Value)
		}
		return nil, nil
	case *ast.StringLiteral:
		in.ascend(String(n.Value.String()))
		return nil, nil
	case *ast.BooleanLiteral:
		in.ascend(Bool(n.Value))
		return nil, nil
	case *ast.NullLiteral:
		in.ascend(Null())
		return nil, nil
	case *ast.RegExpLiteral:
		re, err := in.newRegExp(n.Pattern, n.Flags)
		if err != nil {
			return nil, in.raise(err)
		}
		in.ascend(ObjectValue(re))
		return nil, nil
	case *ast.TemplateLiteral:
		return in.stepTemplate(st, n)
	case *ast.Identifier:
		return in.stepIdentifier(st, n)
	case *ast.ThisExpression:
		in.ascend(in.thisValue(st.Scope))
		return nil, nil
	case *ast.DotExpression:
		return in.stepMember(st, n.Left, nil, n.Identifier.Name.String())
	case *ast.BracketExpression:
		return in.stepMember(st, n.Left, n.Member, "")
	case *ast.AssignExpression:
		return in.stepAssign(st, n)
	case *ast.UnaryExpression:
		return in.stepUnary(st, n)
	case *ast.BinaryExpression:
		return in.stepBinary(st, n)
	case *ast.ConditionalExpression:
		return in.stepConditional(st, n)
	case *ast.SequenceExpression:
		return in.stepSequence(st, n)
	case *ast.ArrayLiteral:
		return in.stepArrayLiteral(st, n)
	case *ast.ObjectLiteral:
		return in.stepObjectLiteral(st, n)
	case *ast.FunctionLiteral:
		return in.stepFunctionLiteral(st, n)
	case *ast.ArrowFunctionLiteral:
		fn, err := in.newClosure(n, st.Scope, st.key)
		if err != nil {
			return nil, in.raise(err)
		}
		in.ascend(ObjectValue(fn))
		return nil, nil
	case *ast.CallExpression, *ast.NewExpression, *syntheticCall:
		return in.stepCall(st)
	}
	return nil, in.raise(in.Errorf(SyntaxError, "unsupported syntax %s", strings.TrimPrefix(fmt.Sprintf("%T", st.Node), "*ast.")))
}

// thisValue resolves the receiver: the nearest function scope binding of
// "this", or the global object at top level.
func (in *Interpreter) thisValue(scope *Scope) Value {
	for s := scope; s != nil && !s.isGlobal(); s = s.Parent {
		if v, ok := s.Object.props["this"]; ok {
			return v
		}
	}
	return ObjectValue(in.global.Object)
}

func (in *Interpreter) stepIdentifier(st *State, n *ast.Identifier) (*State, error) {
	name := n.Name.String()
	if st.components {
		in.ascendRef(reference{scope: st.Scope, name: name})
		return nil, nil
	}
	if st.phase == 1 {
		in.ascend(st.Value)
		return nil, nil
	}
	v, err := in.getValue(st.Scope, name)
	if err != nil {
		return nil, in.raise(err)
	}
	if in.ec.getterPending {
		st.phase = 1
		return in.callAccessor(st, ObjectValue(in.global.Object), nil), nil
	}
	in.ascend(v)
	return nil, nil
}

// stepMember evaluates obj.name or obj[member]. In components mode the
// result is a reference for the parent to read or assign.
func (in *Interpreter) stepMember(st *State, left, member ast.Expression, name string) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		return in.child(st, left), nil
	case 1:
		st.left = st.Value
		if member != nil {
			st.phase = 2
			return in.child(st, member), nil
		}
		st.key = name
	case 2:
		st.key = in.toPropertyKey(st.Value)
	case 3:
		in.ascend(st.Value)
		return nil, nil
	}
	if st.components {
		in.ascendRef(reference{base: st.left, name: st.key})
		return nil, nil
	}
	v, err := in.getProperty(st.left, st.key)
	if err != nil {
		return nil, in.raise(err)
	}
	if in.ec.getterPending {
		st.phase = 3
		return in.callAccessor(st, st.left, nil), nil
	}
	in.ascend(v)
	return nil, nil
}

// readRef reads through a reference, leaving a getter pending if needed.
func (in *Interpreter) readRef(r reference) (Value, error) {
	if r.isVariable() {
		return in.getValue(r.scope, r.name)
	}
	return in.getProperty(r.base, r.name)
}

// assignRef writes through a reference, leaving a setter pending if needed.
func (in *Interpreter) assignRef(r reference, v Value) error {
	if r.isVariable() {
		return in.setValue(r.scope, r.name, v)
	}
	return in.setProperty(r.base, r.name, v)
}

func (in *Interpreter) refReceiver(r reference) Value {
	if r.isVariable() {
		return ObjectValue(in.global.Object)
	}
	return r.base
}

// stepAssign evaluates the target as a reference, reads it for compound
// operators, evaluates the right side and writes.
func (in *Interpreter) stepAssign(st *State, n *ast.AssignExpression) (*State, error) {
	// The parser folds compound operators: "a += b" carries PLUS.
	op := n.Operator
	compound := op != token.ASSIGN
	for {
		switch st.phase {
		case 0:
			switch n.Left.(type) {
			case *ast.Identifier, *ast.DotExpression, *ast.BracketExpression:
			default:
				return nil, in.raise(in.Errorf(SyntaxError, "destructuring assignment is not supported"))
			}
			st.phase = 1
			next := in.child(st, n.Left)
			next.components = true
			return next, nil
		case 1:
			if !compound {
				st.phase = 3
				name := ""
				if id, ok := n.Left.(*ast.Identifier); ok {
					name = id.Name.String()
				}
				return in.namedChild(st, n.Right, name), nil
			}
			v, err := in.readRef(st.ref)
			if err != nil {
				return nil, in.raise(err)
			}
			st.phase = 2
			if in.ec.getterPending {
				return in.callAccessor(st, in.refReceiver(st.ref), nil), nil
			}
			st.Value = v
		case 2:
			st.left = st.Value
			switch op {
			case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
				if !needsRight(op, st.left) {
					in.ascend(st.left)
					return nil, nil
				}
			}
			st.phase = 3
			return in.child(st, n.Right), nil
		case 3:
			v := st.Value
			if compound {
				switch op {
				case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
				default:
					var err error
					if v, err = in.binaryOp(op, st.left, v); err != nil {
						return nil, in.raise(err)
					}
				}
			}
			st.left = v
			if err := in.assignRef(st.ref, v); err != nil {
				return nil, in.raise(err)
			}
			if in.ec.setterPending {
				st.phase = 4
				return in.callAccessor(st, in.refReceiver(st.ref), []Value{v}), nil
			}
			in.ascend(v)
			return nil, nil
		case 4:
			in.ascend(st.left)
			return nil, nil
		}
	}
}

func needsRight(op token.Token, left Value) bool {
	switch op {
	case token.LOGICAL_AND:
		return ToBoolean(left)
	case token.LOGICAL_OR:
		return !ToBoolean(left)
	default:
		return left.IsNullish()
	}
}

func (in *Interpreter) stepUnary(st *State, n *ast.UnaryExpression) (*State, error) {
	switch n.Operator {
	case token.INCREMENT, token.DECREMENT:
		return in.stepUpdate(st, n)
	case token.DELETE:
		return in.stepDelete(st, n)
	case token.TYPEOF:
		if id, ok := n.Operand.(*ast.Identifier); ok && st.phase == 0 {
			if st.Scope.resolve(id.Name.String()) == nil {
				in.ascend(String("undefined"))
				return nil, nil
			}
		}
	}
	if st.phase == 0 {
		st.phase = 1
		return in.child(st, n.Operand), nil
	}
	v := st.Value
	var out Value
	switch n.Operator {
	case token.NOT:
		out = Bool(!ToBoolean(v))
	case token.MINUS:
		out = Number(-in.ToNumber(v))
	case token.PLUS:
		out = Number(in.ToNumber(v))
	case token.BITWISE_NOT:
		out = Number(float64(^toInt32(in.ToNumber(v))))
	case token.TYPEOF:
		out = String(v.TypeOf())
	case token.VOID:
		out = Undefined()
	default:
		return nil, faultf("unknown unary operator %s", n.Operator)
	}
	in.ascend(out)
	return nil, nil
}

func (in *Interpreter) stepUpdate(st *State, n *ast.UnaryExpression) (*State, error) {
	for {
		switch st.phase {
		case 0:
			st.phase = 1
			next := in.child(st, n.Operand)
			next.components = true
			return next, nil
		case 1:
			v, err := in.readRef(st.ref)
			if err != nil {
				return nil, in.raise(err)
			}
			st.phase = 2
			if in.ec.getterPending {
				return in.callAccessor(st, in.refReceiver(st.ref), nil), nil
			}
			st.Value = v
		case 2:
			old := in.ToNumber(st.Value)
			updated := old + 1
			if n.Operator == token.DECREMENT {
				updated = old - 1
			}
			st.left = Number(updated)
			if n.Postfix {
				st.left = Number(old)
			}
			if err := in.assignRef(st.ref, Number(updated)); err != nil {
				return nil, in.raise(err)
			}
			if in.ec.setterPending {
				st.phase = 3
				return in.callAccessor(st, in.refReceiver(st.ref), []Value{Number(updated)}), nil
			}
			in.ascend(st.left)
			return nil, nil
		case 3:
			in.ascend(st.left)
			return nil, nil
		}
	}
}

func (in *Interpreter) stepDelete(st *State, n *ast.UnaryExpression) (*State, error) {
	switch n.Operand.(type) {
	case *ast.DotExpression, *ast.BracketExpression:
	case *ast.Identifier:
		if st.Scope.Strict {
			return nil, in.raise(in.Errorf(SyntaxError, "Delete of an unqualified identifier in strict mode."))
		}
		in.ascend(Bool(false))
		return nil, nil
	default:
		in.ascend(Bool(true))
		return nil, nil
	}
	if st.phase == 0 {
		st.phase = 1
		next := in.child(st, n.Operand)
		next.components = true
		return next, nil
	}
	ok, err := in.deleteProperty(st.ref.base, st.ref.name)
	if err != nil {
		return nil, in.raise(err)
	}
	in.ascend(Bool(ok))
	return nil, nil
}

func (in *Interpreter) stepBinary(st *State, n *ast.BinaryExpression) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		return in.child(st, n.Left), nil
	case 1:
		st.left = st.Value
		switch n.Operator {
		case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
			if !needsRight(n.Operator, st.left) {
				in.ascend(st.left)
				return nil, nil
			}
			st.phase = 3
		default:
			st.phase = 2
		}
		return in.child(st, n.Right), nil
	case 2:
		if !coerces(n.Operator, st.left, st.Value) {
			break
		}
		st.vals = []Value{st.left, st.Value}
		st.n = 0
		st.phase = 4
		if next := in.convertOperands(st); next != nil {
			return next, nil
		}
	case 3:
		in.ascend(st.Value)
		return nil, nil
	case 4:
		if st.Value.kind != KindObject {
			st.vals[st.n] = st.Value
		}
		st.n++
		if next := in.convertOperands(st); next != nil {
			return next, nil
		}
	}
	v, err := in.binaryOp(n.Operator, st.left, st.Value)
	if err != nil {
		return nil, in.raise(err)
	}
	in.ascend(v)
	return nil, nil
}

// convertOperands pushes a call of the next guest valueOf or toString among
// the operands in st.vals, left to right. When none is left it stores the
// converted operands in st.left and st.Value and returns nil.
func (in *Interpreter) convertOperands(st *State) *State {
	for ; st.n < len(st.vals); st.n++ {
		v := st.vals[st.n]
		if m := in.guestConversion(v); m != nil {
			return in.callMethod(st, m, v, nil)
		}
	}
	st.left, st.Value = st.vals[0], st.vals[1]
	return nil
}

// coerces reports whether op converts an object operand to a primitive.
func coerces(op token.Token, a, b Value) bool {
	switch op {
	case token.STRICT_EQUAL, token.STRICT_NOT_EQUAL, token.IN, token.INSTANCEOF:
		return false
	case token.EQUAL, token.NOT_EQUAL:
		if a.IsNullish() || b.IsNullish() {
			return false
		}
		return (a.kind == KindObject) != (b.kind == KindObject)
	}
	return a.kind == KindObject || b.kind == KindObject
}

// guestConversion returns the guest-defined valueOf or toString that a
// primitive conversion of v calls first, or nil when the built-in
// conversion applies. The built-in Object.prototype.valueOf yields the
// object itself, so the lookup moves on to toString past it.
func (in *Interpreter) guestConversion(v Value) *Object {
	if v.kind != KindObject || v.o.primitive.kind != KindUndefined {
		return nil
	}
	for _, name := range [...]string{"valueOf", "toString"} {
		m := v.o.dataGet(name)
		if !m.IsFunction() {
			continue
		}
		if !m.o.fn.IsNative() {
			return m.o
		}
		if name == "toString" {
			return nil
		}
	}
	return nil
}

// binaryOp applies a non-short-circuit binary operator.
func (in *Interpreter) binaryOp(op token.Token, a, b Value) (Value, error) {
	switch op {
	case token.PLUS:
		pa, pb := in.toPrimitive(a), in.toPrimitive(b)
		if pa.kind == KindString || pb.kind == KindString {
			return String(in.ToString(pa) + in.ToString(pb)), nil
		}
		return Number(in.ToNumber(pa) + in.ToNumber(pb)), nil
	case token.MINUS:
		return Number(in.ToNumber(a) - in.ToNumber(b)), nil
	case token.MULTIPLY:
		return Number(in.ToNumber(a) * in.ToNumber(b)), nil
	case token.SLASH:
		return Number(in.ToNumber(a) / in.ToNumber(b)), nil
	case token.REMAINDER:
		return Number(math.Mod(in.ToNumber(a), in.ToNumber(b))), nil
	case token.EXPONENT:
		return Number(pow(in.ToNumber(a), in.ToNumber(b))), nil
	case token.AND:
		return Number(float64(toInt32(in.ToNumber(a)) & toInt32(in.ToNumber(b)))), nil
	case token.OR:
		return Number(float64(toInt32(in.ToNumber(a)) | toInt32(in.ToNumber(b)))), nil
	case token.EXCLUSIVE_OR:
		return Number(float64(toInt32(in.ToNumber(a)) ^ toInt32(in.ToNumber(b)))), nil
	case token.SHIFT_LEFT:
		return Number(float64(toInt32(in.ToNumber(a)) << (toUint32(in.ToNumber(b)) & 31))), nil
	case token.SHIFT_RIGHT:
		return Number(float64(toInt32(in.ToNumber(a)) >> (toUint32(in.ToNumber(b)) & 31))), nil
	case token.UNSIGNED_SHIFT_RIGHT:
		return Number(float64(toUint32(in.ToNumber(a)) >> (toUint32(in.ToNumber(b)) & 31))), nil
	case token.EQUAL:
		return Bool(in.looseEquals(a, b)), nil
	case token.NOT_EQUAL:
		return Bool(!in.looseEquals(a, b)), nil
	case token.STRICT_EQUAL:
		return Bool(StrictEquals(a, b)), nil
	case token.STRICT_NOT_EQUAL:
		return Bool(!StrictEquals(a, b)), nil
	case token.LESS:
		less, nan := in.compare(a, b)
		return Bool(less && !nan), nil
	case token.GREATER:
		less, nan := in.compare(b, a)
		return Bool(less && !nan), nil
	case token.LESS_OR_EQUAL:
		less, nan := in.compare(b, a)
		return Bool(!less && !nan), nil
	case token.GREATER_OR_EQUAL:
		less, nan := in.compare(a, b)
		return Bool(!less && !nan), nil
	case token.IN:
		if b.kind != KindObject {
			return Undefined(), in.Errorf(TypeError, "Cannot use 'in' operator to search for '%s' in %s", in.ToString(a), in.ToString(b))
		}
		return Bool(in.hasProperty(b.o, in.toPropertyKey(a))), nil
	case token.INSTANCEOF:
		return in.instanceOf(a, b)
	}
	return Undefined(), faultf("unknown binary operator %s", op)
}

// compare reports a < b and whether the comparison involved NaN.
func (in *Interpreter) compare(a, b Value) (less, nan bool) {
	pa, pb := in.toPrimitive(a), in.toPrimitive(b)
	if pa.kind == KindString && pb.kind == KindString {
		return pa.s < pb.s, false
	}
	x, y := in.ToNumber(pa), in.ToNumber(pb)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false, true
	}
	return x < y, false
}

func (in *Interpreter) instanceOf(v, ctor Value) (Value, error) {
	if !ctor.IsFunction() {
		return Undefined(), in.Errorf(TypeError, "Right-hand side of 'instanceof' is not callable")
	}
	if v.kind != KindObject {
		return Bool(false), nil
	}
	proto := ctor.o.dataGet("prototype")
	if proto.kind != KindObject {
		return Undefined(), in.Errorf(TypeError, "Function has non-object prototype in instanceof check")
	}
	for p := v.o.proto; p != nil; p = p.proto {
		if p == proto.o {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func (in *Interpreter) stepConditional(st *State, n *ast.ConditionalExpression) (*State, error) {
	switch st.phase {
	case 0:
		st.phase = 1
		return in.child(st, n.Test), nil
	case 1:
		st.phase = 2
		if ToBoolean(st.Value) {
			return in.child(st, n.Consequent), nil
		}
		return in.child(st, n.Alternate), nil
	}
	in.ascend(st.Value)
	return nil, nil
}

func (in *Interpreter) stepSequence(st *State, n *ast.SequenceExpression) (*State, error) {
	if st.n < len(n.Sequence) {
		st.n++
		return in.child(st, n.Sequence[st.n-1]), nil
	}
	in.ascend(st.Value)
	return nil, nil
}

func (in *Interpreter) stepTemplate(st *State, n *ast.TemplateLiteral) (*State, error) {
	if n.Tag != nil {
		return nil, in.raise(in.Errorf(SyntaxError, "tagged templates are not supported"))
	}
	if st.n > 0 {
		st.key += in.ToString(st.Value)
	}
	if st.n < len(n.Expressions) {
		st.key += n.Elements[st.n].Parsed.String()
		st.n++
		return in.child(st, n.Expressions[st.n-1]), nil
	}
	if st.n < len(n.Elements) {
		st.key += n.Elements[st.n].Parsed.String()
	}
	in.ascend(String(st.key))
	return nil, nil
}

func (in *Interpreter) stepArrayLiteral(st *State, n *ast.ArrayLiteral) (*State, error) {
	if st.obj == nil {
		st.obj = in.NewArray(nil)
	}
	if st.phase == 1 {
		st.phase = 0
		st.obj.Set(indexKey(st.n-1), st.Value)
	}
	for st.n < len(n.Value) {
		el := n.Value[st.n]
		st.n++
		if el == nil {
			continue
		}
		if _, ok := el.(*ast.SpreadElement); ok {
			return nil, in.raise(in.Errorf(SyntaxError, "spread elements are not supported"))
		}
		st.phase = 1
		return in.child(st, el), nil
	}
	st.obj.props["length"] = Int(len(n.Value))
	in.ascend(ObjectValue(st.obj))
	return nil, nil
}

// stepObjectLiteral defines each property in source order. Computed keys
// are evaluated before their values; accessors become getter and setter
// pairs.
func (in *Interpreter) stepObjectLiteral(st *State, n *ast.ObjectLiteral) (*State, error) {
	if st.obj == nil {
		st.obj = in.NewObject()
	}
	for {
		switch st.phase {
		case 1:
			st.key = in.toPropertyKey(st.Value)
			st.phase = 2
			continue
		case 3:
			v := st.Value
			if st.key == "__proto__" && !isComputed(n.Value[st.n]) {
				switch v.kind {
				case KindObject:
					st.obj.proto = v.o
				case KindNull:
					st.obj.proto = nil
				}
			} else {
				st.obj.define(st.key, v, 0)
			}
			st.n++
			st.phase = 0
			continue
		}
		if st.n >= len(n.Value) {
			in.ascend(ObjectValue(st.obj))
			return nil, nil
		}
		switch p := n.Value[st.n].(type) {
		case *ast.PropertyShort:
			if p.Initializer != nil {
				return nil, in.raise(in.Errorf(SyntaxError, "shorthand initializers are not supported"))
			}
			st.key = p.Name.Name.String()
			st.phase = 3
			return in.child(st, &p.Name), nil
		case *ast.PropertyKeyed:
			if st.phase == 0 {
				if p.Computed {
					st.phase = 1
					return in.child(st, p.Key), nil
				}
				key, err := literalKey(p.Key)
				if err != nil {
					return nil, in.raise(in.Errorf(SyntaxError, "%v", err))
				}
				st.key = key
			}
			switch p.Kind {
			case ast.PropertyKindGet, ast.PropertyKindSet:
				fn, err := in.newClosure(p.Value, st.Scope, st.key)
				if err != nil {
					return nil, in.raise(err)
				}
				var get, set *Object
				if st.obj.isAccessor(st.key) {
					get, set = st.obj.getters[st.key], st.obj.setters[st.key]
				}
				if p.Kind == ast.PropertyKindGet {
					get = fn
				} else {
					set = fn
				}
				st.obj.defineAccessor(st.key, get, set, 0)
				st.n++
				st.phase = 0
				continue
			}
			st.phase = 3
			return in.namedChild(st, p.Value, st.key), nil
		case *ast.SpreadElement:
			return nil, in.raise(in.Errorf(SyntaxError, "spread properties are not supported"))
		default:
			return nil, faultf("unexpected property %T", p)
		}
	}
}

var errUnsupportedKey = errors.New("unsupported property key")

func isComputed(p ast.Property) bool {
	k, ok := p.(*ast.PropertyKeyed)
	return ok && k.Computed
}

func literalKey(e ast.Expression) (string, error) {
	switch k := e.(type) {
	case *ast.StringLiteral:
		return k.Value.String(), nil
	case *ast.Identifier:
		return k.Name.String(), nil
	case *ast.NumberLiteral:
		switch v := k.Value.(type) {
		case int64:
			return NumberToString(float64(v)), nil
		case float64:
			return NumberToString(v), nil
		}
	}
	return "", errUnsupportedKey
}

func (in *Interpreter) stepFunctionLiteral(st *State, n *ast.FunctionLiteral) (*State, error) {
	scope := st.Scope
	if n.Name != nil {
		// A named function expression sees its own name.
		scope = in.newScope(scope, scope.Strict)
	}
	fn, err := in.newClosure(n, scope, st.key)
	if err != nil {
		return nil, in.raise(err)
	}
	if n.Name != nil {
		scope.declare(n.Name.Name.String(), ObjectValue(fn))
	}
	in.ascend(ObjectValue(fn))
	return nil, nil
}
