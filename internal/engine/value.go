package engine

import (
	"math"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a guest value. The zero Value is undefined.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	o    *Object
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer as a number.
func Int(i int) Value { return Value{kind: KindNumber, n: float64(i)} }

// String wraps a Go string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// ObjectValue wraps an object reference. A nil object yields null.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null()
	}
	return Value{kind: KindObject, o: o}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullish() bool   { return v.kind <= KindNull }
func (v Value) IsObject() bool    { return v.kind == KindObject }
func (v Value) IsPrimitive() bool { return v.kind != KindObject }
func (v Value) AsBool() bool      { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsString() string  { return v.s }
func (v Value) AsObject() *Object { return v.o }
func (v Value) IsFunction() bool  { return v.kind == KindObject && v.o.fn != nil }

func (v Value) isClass(c string) bool { return v.kind == KindObject && v.o.class == c }

// TypeOf returns the guest typeof string.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object"
	case KindObject:
		if v.o.fn != nil {
			return "function"
		}
		return "object"
	default:
		return v.kind.String()
	}
}

// Export converts a guest value into plain Go data: nil, bool, float64,
// string, []any and map[string]any. Functions become a descriptive string and
// cyclic references are cut.
func (v Value) Export() any {
	return export(v, map[*Object]bool{})
}

func export(v Value, seen map[*Object]bool) any {
	switch v.kind {
	case KindUndefined, KindNull:
		return nil
	case KindBoolean:
		return v.b
	case KindNumber:
		// NaN and the infinities have no JSON form.
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return NumberToString(v.n)
		}
		return v.n
	case KindString:
		return v.s
	}
	o := v.o
	if seen[o] {
		return "[Circular]"
	}
	seen[o] = true
	defer delete(seen, o)
	switch {
	case o.fn != nil:
		return "[Function: " + o.fn.name + "]"
	case o.class == classArray:
		n := arrayLength(o)
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = export(o.dataGet(indexKey(i)), seen)
		}
		return out
	case o.primitive.kind != KindUndefined:
		return export(o.primitive, seen)
	}
	out := make(map[string]any)
	for _, k := range o.ownKeys() {
		if o.isEnumerable(k) && !o.isAccessor(k) {
			out[k] = export(o.props[k], seen)
		}
	}
	return out
}

// FromGo converts plain Go data into a guest value. Maps become objects with
// sorted keys and slices become arrays. Unsupported types become undefined.
func (in *Interpreter) FromGo(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(t)
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case []any:
		vals := make([]Value, len(t))
		for i, e := range t {
			vals[i] = in.FromGo(e)
		}
		return ObjectValue(in.NewArray(vals))
	case []float64:
		vals := make([]Value, len(t))
		for i, e := range t {
			vals[i] = Number(e)
		}
		return ObjectValue(in.NewArray(vals))
	case []string:
		vals := make([]Value, len(t))
		for i, e := range t {
			vals[i] = String(e)
		}
		return ObjectValue(in.NewArray(vals))
	case map[string]any:
		o := in.NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			o.Set(k, in.FromGo(t[k]))
		}
		return ObjectValue(o)
	}
	return Undefined()
}
