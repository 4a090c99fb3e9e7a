package engine

import (
	"math"
	"strings"
)

// NewObject creates an empty plain object.
func (in *Interpreter) NewObject() *Object {
	return newObject(in.protos.object, classObject)
}

// NewArray creates an array holding vals.
func (in *Interpreter) NewArray(vals []Value) *Object {
	o := newObject(in.protos.array, classArray)
	for i, v := range vals {
		o.define(indexKey(i), v, 0)
	}
	o.define("length", Int(len(vals)), attrNotEnumerable|attrNotConfigurable)
	return o
}

// ArrayValues returns the elements of an array-like object.
func (in *Interpreter) ArrayValues(o *Object) []Value {
	n := lengthOf(in, o)
	out := make([]Value, n)
	for i := range out {
		out[i] = o.dataGet(indexKey(i))
	}
	return out
}

func lengthOf(in *Interpreter, o *Object) int {
	if o.class == classArray {
		return arrayLength(o)
	}
	if o.class == classString {
		return len([]rune(o.primitive.s))
	}
	return int(toUint32(in.ToNumber(o.dataGet("length"))))
}

func (in *Interpreter) method(o *Object, name string, nparams int, fn NativeFunc) {
	o.define(name, ObjectValue(in.NewNative(name, nparams, fn)), hidden)
}

func (in *Interpreter) asyncMethod(o *Object, name string, nparams int, fn AsyncFunc) {
	o.define(name, ObjectValue(in.NewAsync(name, nparams, fn)), hidden)
}

func (in *Interpreter) initGlobals() {
	objectProto := newObject(nil, classObject)
	in.protos.object = objectProto
	fnProto := newObject(objectProto, classFunction)
	fnProto.fn = &Function{native: func(*Interpreter, Call) (Value, error) { return Undefined(), nil }}
	in.protos.function = fnProto

	global := newObject(objectProto, "global")
	in.global = &Scope{Object: global}

	in.initObject()
	in.initFunction()
	in.initArray()
	in.initString()
	in.initNumber()
	in.initBoolean()
	in.initErrors()
	in.initMath()
	in.initJSON()
	in.initRegExp()
	in.initConsole()
	in.initGlobalFunctions()

	global.define("globalThis", ObjectValue(global), hidden)
	const fixed = attrNotEnumerable | attrNotWritable | attrNotConfigurable
	global.define("undefined", Undefined(), fixed)
	global.define("NaN", Number(math.NaN()), fixed)
	global.define("Infinity", Number(math.Inf(1)), fixed)
}

func (in *Interpreter) initObject() {
	proto := in.protos.object
	ctor := in.newConstructor("Object", 1, proto, func(in *Interpreter, c Call) (Value, error) {
		v := c.Arg(0)
		if v.IsNullish() {
			return ObjectValue(in.NewObject()), nil
		}
		o, err := in.toObject(v)
		return ObjectValue(o), err
	})
	in.SetGlobal("Object", ObjectValue(ctor))
	in.ctors["Object"] = ctor

	in.method(ctor, "create", 2, func(in *Interpreter, c Call) (Value, error) {
		p := c.Arg(0)
		if p.kind != KindObject && p.kind != KindNull {
			return Undefined(), in.Errorf(TypeError, "Object prototype may only be an Object or null: %s", in.ToString(p))
		}
		o := newObject(p.o, classObject)
		if props := c.Arg(1); !props.IsUndefined() {
			if err := in.defineProperties(o, props); err != nil {
				return Undefined(), err
			}
		}
		return ObjectValue(o), nil
	})
	in.method(ctor, "defineProperty", 3, func(in *Interpreter, c Call) (Value, error) {
		target := c.Arg(0)
		if target.kind != KindObject {
			return Undefined(), in.Errorf(TypeError, "Object.defineProperty called on non-object")
		}
		d, err := in.toDescriptor(c.Arg(2))
		if err != nil {
			return Undefined(), err
		}
		if err := in.defineOwnProperty(target.o, in.toPropertyKey(c.Arg(1)), d); err != nil {
			return Undefined(), err
		}
		return target, nil
	})
	in.method(ctor, "defineProperties", 2, func(in *Interpreter, c Call) (Value, error) {
		target := c.Arg(0)
		if target.kind != KindObject {
			return Undefined(), in.Errorf(TypeError, "Object.defineProperties called on non-object")
		}
		return target, in.defineProperties(target.o, c.Arg(1))
	})
	in.method(ctor, "getOwnPropertyDescriptor", 2, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.Arg(0))
		if err != nil {
			return Undefined(), err
		}
		return in.fromDescriptor(o, in.toPropertyKey(c.Arg(1))), nil
	})
	in.method(ctor, "getPrototypeOf", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.Arg(0))
		if err != nil {
			return Undefined(), err
		}
		return ObjectValue(o.proto), nil
	})
	in.method(ctor, "setPrototypeOf", 2, func(in *Interpreter, c Call) (Value, error) {
		target, p := c.Arg(0), c.Arg(1)
		if p.kind != KindObject && p.kind != KindNull {
			return Undefined(), in.Errorf(TypeError, "Object prototype may only be an Object or null: %s", in.ToString(p))
		}
		if target.kind == KindObject {
			for cur := p.o; cur != nil; cur = cur.proto {
				if cur == target.o {
					return Undefined(), in.Errorf(TypeError, "Cyclic __proto__ value")
				}
			}
			target.o.proto = p.o
		}
		return target, nil
	})
	keys := func(enumerableOnly bool) NativeFunc {
		return func(in *Interpreter, c Call) (Value, error) {
			o, err := in.toObject(c.Arg(0))
			if err != nil {
				return Undefined(), err
			}
			var out []Value
			for _, k := range o.ownKeys() {
				if !enumerableOnly || o.isEnumerable(k) {
					out = append(out, String(k))
				}
			}
			return ObjectValue(in.NewArray(out)), nil
		}
	}
	in.method(ctor, "keys", 1, keys(true))
	in.method(ctor, "getOwnPropertyNames", 1, keys(false))
	in.method(ctor, "preventExtensions", 1, func(in *Interpreter, c Call) (Value, error) {
		if v := c.Arg(0); v.kind == KindObject {
			v.o.extensible = false
		}
		return c.Arg(0), nil
	})
	in.method(ctor, "isExtensible", 1, func(in *Interpreter, c Call) (Value, error) {
		v := c.Arg(0)
		return Bool(v.kind == KindObject && v.o.extensible), nil
	})
	in.method(ctor, "freeze", 1, func(in *Interpreter, c Call) (Value, error) {
		if v := c.Arg(0); v.kind == KindObject {
			for _, k := range v.o.ownKeys() {
				if _, ok := v.o.props[k]; ok {
					v.o.setAttr(k, v.o.attrs[k]|attrNotWritable|attrNotConfigurable)
				}
			}
			v.o.extensible = false
		}
		return c.Arg(0), nil
	})

	in.method(proto, "hasOwnProperty", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		return Bool(o.HasOwn(in.toPropertyKey(c.Arg(0)))), nil
	})
	in.method(proto, "propertyIsEnumerable", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		k := in.toPropertyKey(c.Arg(0))
		return Bool(o.HasOwn(k) && o.isEnumerable(k)), nil
	})
	in.method(proto, "isPrototypeOf", 1, func(in *Interpreter, c Call) (Value, error) {
		v := c.Arg(0)
		if v.kind != KindObject || c.This.kind != KindObject {
			return Bool(false), nil
		}
		for p := v.o.proto; p != nil; p = p.proto {
			if p == c.This.o {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	})
	in.method(proto, "toString", 0, func(in *Interpreter, c Call) (Value, error) {
		switch c.This.kind {
		case KindUndefined:
			return String("[object Undefined]"), nil
		case KindNull:
			return String("[object Null]"), nil
		}
		o, _ := in.toObject(c.This)
		return String("[object " + o.class + "]"), nil
	})
	in.method(proto, "toLocaleString", 0, func(in *Interpreter, c Call) (Value, error) {
		return String(in.ToString(c.This)), nil
	})
	in.method(proto, "valueOf", 0, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		return ObjectValue(o), err
	})
}

func (in *Interpreter) defineProperties(o *Object, props Value) error {
	src, err := in.toObject(props)
	if err != nil {
		return err
	}
	for _, k := range src.Keys() {
		d, err := in.toDescriptor(src.dataGet(k))
		if err != nil {
			return err
		}
		if err := in.defineOwnProperty(o, k, d); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) initFunction() {
	proto := in.protos.function
	ctor := in.newConstructor("Function", 1, proto, func(in *Interpreter, c Call) (Value, error) {
		return Undefined(), in.Errorf(EvalError, "Function constructor is not supported")
	})
	in.SetGlobal("Function", ObjectValue(ctor))
	in.ctors["Function"] = ctor

	in.method(proto, "call", 1, func(in *Interpreter, c Call) (Value, error) {
		var args []Value
		if len(c.Args) > 1 {
			args = append(args, c.Args[1:]...)
		}
		in.Redirect(c.This, c.Arg(0), args)
		return Undefined(), nil
	})
	in.method(proto, "apply", 2, func(in *Interpreter, c Call) (Value, error) {
		var args []Value
		switch list := c.Arg(1); list.kind {
		case KindUndefined, KindNull:
		case KindObject:
			args = in.ArrayValues(list.o)
		default:
			return Undefined(), in.Errorf(TypeError, "CreateListFromArrayLike called on non-object")
		}
		in.Redirect(c.This, c.Arg(0), args)
		return Undefined(), nil
	})
	in.method(proto, "bind", 1, func(in *Interpreter, c Call) (Value, error) {
		target := c.This
		if !target.IsFunction() {
			return Undefined(), in.Errorf(TypeError, "Bind must be called on a function")
		}
		boundThis := c.Arg(0)
		var boundArgs []Value
		if len(c.Args) > 1 {
			boundArgs = append(boundArgs, c.Args[1:]...)
		}
		name := "bound " + target.o.fn.name
		n := int(in.ToNumber(target.o.dataGet("length"))) - len(boundArgs)
		if n < 0 {
			n = 0
		}
		bound := in.NewNative(name, n, func(in *Interpreter, c Call) (Value, error) {
			args := append(append([]Value(nil), boundArgs...), c.Args...)
			in.Redirect(target, boundThis, args)
			return Undefined(), nil
		})
		return ObjectValue(bound), nil
	})
	in.method(proto, "toString", 0, func(in *Interpreter, c Call) (Value, error) {
		if !c.This.IsFunction() {
			return Undefined(), in.Errorf(TypeError, "Function.prototype.toString requires that 'this' be a Function")
		}
		return String(c.This.o.fn.source()), nil
	})
}

func (in *Interpreter) initGlobalFunctions() {
	in.SetGlobal("isNaN", ObjectValue(in.NewNative("isNaN", 1, func(in *Interpreter, c Call) (Value, error) {
		return Bool(math.IsNaN(in.ToNumber(c.Arg(0)))), nil
	})))
	in.SetGlobal("isFinite", ObjectValue(in.NewNative("isFinite", 1, func(in *Interpreter, c Call) (Value, error) {
		n := in.ToNumber(c.Arg(0))
		return Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})))
	in.SetGlobal("parseFloat", ObjectValue(in.NewNative("parseFloat", 1, func(in *Interpreter, c Call) (Value, error) {
		return Number(parseFloatPrefix(strings.TrimSpace(in.ToString(c.Arg(0))))), nil
	})))
	in.SetGlobal("parseInt", ObjectValue(in.NewNative("parseInt", 2, func(in *Interpreter, c Call) (Value, error) {
		return Number(parseIntPrefix(strings.TrimSpace(in.ToString(c.Arg(0))), int(toInt32(in.ToNumber(c.Arg(1)))))), nil
	})))
}

// parseFloatPrefix parses the longest numeric prefix of s.
func parseFloatPrefix(s string) float64 {
	if strings.HasPrefix(s, "Infinity") || strings.HasPrefix(s, "+Infinity") {
		return math.Inf(1)
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1)
	}
	end, seenDot, seenExp, digits := 0, false, false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits = true
			end = i + 1
		case (ch == '+' || ch == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case ch == '.' && !seenDot && !seenExp:
			seenDot = true
		case (ch == 'e' || ch == 'E') && digits && !seenExp:
			seenExp = true
		default:
			i = len(s)
		}
	}
	if !digits {
		return math.NaN()
	}
	return StringToNumber(s[:end])
}

// parseIntPrefix parses the integer prefix of s in radix (0 means 10, or 16
// with a 0x prefix).
func parseIntPrefix(s string, radix int) float64 {
	sign := 1.0
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	if radix == 0 || radix == 16 {
		if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s = s[2:]
			radix = 16
		}
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	var n float64
	digits := 0
	for _, r := range s {
		var d int
		switch {
		case r >= '0' && r <= '9':
			d = int(r - '0')
		case r >= 'a' && r <= 'z':
			d = int(r-'a') + 10
		case r >= 'A' && r <= 'Z':
			d = int(r-'A') + 10
		default:
			d = radix
		}
		if d >= radix {
			break
		}
		n = n*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	return sign * n
}
