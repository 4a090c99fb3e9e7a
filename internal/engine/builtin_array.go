package engine

import (
	"math"
	"strings"
)

func (in *Interpreter) initArray() {
	proto := newObject(in.protos.object, classArray)
	proto.define("length", Int(0), attrNotEnumerable|attrNotConfigurable)
	in.protos.array = proto

	ctor := in.newConstructor("Array", 1, proto, func(in *Interpreter, c Call) (Value, error) {
		if len(c.Args) == 1 && c.Args[0].kind == KindNumber {
			n := c.Args[0].n
			if n < 0 || n != math.Trunc(n) || n >= 1<<32 {
				return Undefined(), in.Errorf(RangeError, "Invalid array length")
			}
			a := in.NewArray(nil)
			a.props["length"] = Number(n)
			return ObjectValue(a), nil
		}
		return ObjectValue(in.NewArray(append([]Value(nil), c.Args...))), nil
	})
	in.SetGlobal("Array", ObjectValue(ctor))
	in.ctors["Array"] = ctor

	in.method(ctor, "isArray", 1, func(in *Interpreter, c Call) (Value, error) {
		return Bool(c.Arg(0).isClass(classArray)), nil
	})
	in.method(ctor, "of", 0, func(in *Interpreter, c Call) (Value, error) {
		return ObjectValue(in.NewArray(append([]Value(nil), c.Args...))), nil
	})
	in.method(ctor, "from", 1, func(in *Interpreter, c Call) (Value, error) {
		src := c.Arg(0)
		if src.IsNullish() {
			return Undefined(), in.Errorf(TypeError, "%s is not iterable", in.ToString(src))
		}
		o, err := in.toObject(src)
		if err != nil {
			return Undefined(), err
		}
		return ObjectValue(in.NewArray(in.ArrayValues(o))), nil
	})

	in.method(proto, "push", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		n := lengthOf(in, o)
		for _, v := range c.Args {
			putIndex(o, n, v)
			n++
		}
		setLength(o, n)
		return Int(n), nil
	})
	in.method(proto, "pop", 0, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		n := lengthOf(in, o)
		if n == 0 {
			setLength(o, 0)
			return Undefined(), nil
		}
		v := o.dataGet(indexKey(n - 1))
		o.remove(indexKey(n - 1))
		setLength(o, n-1)
		return v, nil
	})
	in.method(proto, "shift", 0, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		if len(vals) == 0 {
			setLength(o, 0)
			return Undefined(), nil
		}
		rewrite(o, vals[1:])
		return vals[0], nil
	})
	in.method(proto, "unshift", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := append(append([]Value(nil), c.Args...), in.ArrayValues(o)...)
		rewrite(o, vals)
		return Int(len(vals)), nil
	})
	in.method(proto, "slice", 2, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		start, end := in.sliceBounds(c.Arg(0), c.Arg(1), len(vals))
		return ObjectValue(in.NewArray(append([]Value(nil), vals[start:end]...))), nil
	})
	in.method(proto, "splice", 2, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		start := relativeIndex(toInteger(in.ToNumber(c.Arg(0))), len(vals))
		count := len(vals) - start
		switch {
		case len(c.Args) == 0:
			count = 0
		case len(c.Args) >= 2:
			count = int(math.Max(0, math.Min(toInteger(in.ToNumber(c.Args[1])), float64(len(vals)-start))))
		}
		removed := append([]Value(nil), vals[start:start+count]...)
		var insert []Value
		if len(c.Args) > 2 {
			insert = c.Args[2:]
		}
		out := make([]Value, 0, len(vals)-count+len(insert))
		out = append(out, vals[:start]...)
		out = append(out, insert...)
		out = append(out, vals[start+count:]...)
		rewrite(o, out)
		return ObjectValue(in.NewArray(removed)), nil
	})
	in.method(proto, "concat", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		out := in.ArrayValues(o)
		for _, a := range c.Args {
			if a.isClass(classArray) {
				out = append(out, in.ArrayValues(a.o)...)
			} else {
				out = append(out, a)
			}
		}
		return ObjectValue(in.NewArray(out)), nil
	})
	in.method(proto, "join", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		sep := ","
		if s := c.Arg(0); !s.IsUndefined() {
			sep = in.ToString(s)
		}
		if o.class == classArray {
			return String(in.joinArray(o, sep, map[*Object]bool{o: true})), nil
		}
		vals := in.ArrayValues(o)
		parts := make([]string, len(vals))
		for i, v := range vals {
			if !v.IsNullish() {
				parts[i] = in.ToString(v)
			}
		}
		return String(strings.Join(parts, sep)), nil
	})
	in.method(proto, "toString", 0, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		if o.class != classArray {
			return String("[object " + o.class + "]"), nil
		}
		return String(in.joinArray(o, ",", map[*Object]bool{o: true})), nil
	})
	in.method(proto, "reverse", 0, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
			vals[i], vals[j] = vals[j], vals[i]
		}
		rewrite(o, vals)
		return ObjectValue(o), nil
	})
	in.method(proto, "indexOf", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		start := 0
		if len(c.Args) > 1 {
			start = relativeIndex(toInteger(in.ToNumber(c.Args[1])), len(vals))
		}
		for i := start; i < len(vals); i++ {
			if o.HasOwn(indexKey(i)) && StrictEquals(vals[i], c.Arg(0)) {
				return Int(i), nil
			}
		}
		return Int(-1), nil
	})
	in.method(proto, "lastIndexOf", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		start := len(vals) - 1
		if len(c.Args) > 1 {
			k := toInteger(in.ToNumber(c.Args[1]))
			if k < 0 {
				k += float64(len(vals))
			}
			start = int(math.Min(k, float64(len(vals)-1)))
		}
		for i := start; i >= 0; i-- {
			if o.HasOwn(indexKey(i)) && StrictEquals(vals[i], c.Arg(0)) {
				return Int(i), nil
			}
		}
		return Int(-1), nil
	})
	in.method(proto, "includes", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		vals := in.ArrayValues(o)
		start := 0
		if len(c.Args) > 1 {
			start = relativeIndex(toInteger(in.ToNumber(c.Args[1])), len(vals))
		}
		for _, v := range vals[start:] {
			if sameValueZero(v, c.Arg(0)) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	})
	in.method(proto, "fill", 1, func(in *Interpreter, c Call) (Value, error) {
		o, err := in.toObject(c.This)
		if err != nil {
			return Undefined(), err
		}
		n := lengthOf(in, o)
		start, end := in.sliceBounds(c.Arg(1), c.Arg(2), n)
		for i := start; i < end; i++ {
			putIndex(o, i, c.Arg(0))
		}
		return ObjectValue(o), nil
	})
}

// sliceBounds resolves relative start and end arguments against n.
func (in *Interpreter) sliceBounds(startArg, endArg Value, n int) (int, int) {
	start := relativeIndex(toInteger(in.ToNumber(startArg)), n)
	end := n
	if !endArg.IsUndefined() {
		end = relativeIndex(toInteger(in.ToNumber(endArg)), n)
	}
	if end < start {
		end = start
	}
	return start, end
}

// relativeIndex clamps k into [0, n], counting negative values from the end.
func relativeIndex(k float64, n int) int {
	if k < 0 {
		k += float64(n)
		if k < 0 {
			return 0
		}
	}
	if k > float64(n) {
		return n
	}
	return int(k)
}

func putIndex(o *Object, i int, v Value) {
	k := indexKey(i)
	if _, own := o.props[k]; own {
		o.props[k] = v
		if o.class == classArray && i >= arrayLength(o) {
			o.props["length"] = Int(i + 1)
		}
		return
	}
	o.Set(k, v)
}

func setLength(o *Object, n int) {
	if o.class == classArray {
		truncateArray(o, n)
		o.props["length"] = Int(n)
		return
	}
	if _, own := o.props["length"]; own {
		o.props["length"] = Int(n)
		return
	}
	o.define("length", Int(n), 0)
}

// rewrite replaces the indexed elements of o with vals.
func rewrite(o *Object, vals []Value) {
	old := 0
	if o.class == classArray {
		old = arrayLength(o)
	} else if v := o.dataGet("length"); v.kind == KindNumber {
		old = int(v.n)
	}
	for i := len(vals); i < old; i++ {
		o.remove(indexKey(i))
	}
	for i, v := range vals {
		putIndex(o, i, v)
	}
	setLength(o, len(vals))
}
