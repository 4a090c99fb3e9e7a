package engine

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dop251/goja/ftoa"
)

// NumberToString formats a number the way guest code prints it.
func NumberToString(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	return string(ftoa.FToStr(n, ftoa.ModeStandard, 0, nil))
}

// ToBoolean applies guest truthiness.
func ToBoolean(v Value) bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	case KindObject:
		return true
	}
	return false
}

// StringToNumber parses numeric text with guest rules: surrounding
// whitespace is ignored, the empty string is 0 and garbage is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	// ParseFloat accepts forms guest code does not.
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-') {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return n
		}
		return math.NaN()
	}
	return n
}

// ToNumber converts a value to a number. Objects convert through their
// primitive form without calling guest valueOf or toString.
func (in *Interpreter) ToNumber(v Value) float64 {
	switch v.kind {
	case KindUndefined:
		return math.NaN()
	case KindNull:
		return 0
	case KindBoolean:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.n
	case KindString:
		return StringToNumber(v.s)
	}
	return in.ToNumber(in.toPrimitive(v))
}

// ToString converts a value to a string without calling guest methods.
func (in *Interpreter) ToString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return NumberToString(v.n)
	case KindString:
		return v.s
	}
	return in.objectToString(v.o, map[*Object]bool{})
}

func (in *Interpreter) objectToString(o *Object, seen map[*Object]bool) string {
	if o.primitive.kind != KindUndefined {
		return in.ToString(o.primitive)
	}
	switch o.class {
	case classArray:
		if seen[o] {
			return ""
		}
		seen[o] = true
		defer delete(seen, o)
		return in.joinArray(o, ",", seen)
	case classError:
		name := in.ToString(o.dataGet("name"))
		msg := o.dataGet("message")
		if msg.IsUndefined() || in.ToString(msg) == "" {
			return name
		}
		return name + ": " + in.ToString(msg)
	case classFunction:
		return o.fn.source()
	case classRegExp:
		if re, ok := o.internal.(*regexpData); ok {
			return "/" + re.pattern.Source + "/" + re.pattern.Flags
		}
	}
	return "[object " + o.class + "]"
}

func (in *Interpreter) joinArray(o *Object, sep string, seen map[*Object]bool) string {
	n := arrayLength(o)
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		e := o.dataGet(indexKey(i))
		switch {
		case e.IsNullish():
		case e.kind == KindObject:
			parts[i] = in.objectToString(e.o, seen)
		default:
			parts[i] = in.ToString(e)
		}
	}
	return strings.Join(parts, sep)
}

// toPrimitive returns the primitive form of v: the boxed primitive if there
// is one, otherwise the built-in string conversion. It never runs guest code;
// binary operators call guest valueOf and toString before reaching it, while
// String(x), template literals, property keys and compound assignment use
// the built-in conversion only.
func (in *Interpreter) toPrimitive(v Value) Value {
	if v.kind != KindObject {
		return v
	}
	o := v.o
	if o.primitive.kind != KindUndefined {
		return o.primitive
	}
	return String(in.objectToString(o, map[*Object]bool{}))
}

// toPropertyKey converts a value to a property name.
func (in *Interpreter) toPropertyKey(v Value) string {
	if v.kind == KindNumber && v.n >= 0 && v.n == math.Trunc(v.n) && v.n < 1<<32-1 {
		return strconv.FormatUint(uint64(v.n), 10)
	}
	return in.ToString(v)
}

// toObject boxes primitives. Nullish values fail with a TypeError.
func (in *Interpreter) toObject(v Value) (*Object, error) {
	switch v.kind {
	case KindObject:
		return v.o, nil
	case KindString:
		o := newObject(in.protos.string, classString)
		o.primitive = v
		return o, nil
	case KindNumber:
		o := newObject(in.protos.number, classNumber)
		o.primitive = v
		return o, nil
	case KindBoolean:
		o := newObject(in.protos.boolean, classBoolean)
		o.primitive = v
		return o, nil
	}
	return nil, in.Errorf(TypeError, "Cannot convert %s to object", v.kind)
}

func toInteger(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	if math.IsInf(n, 0) {
		return n
	}
	return math.Trunc(n)
}

func toInt32(n float64) int32 {
	return int32(toUint32(n))
}

func toUint32(n float64) uint32 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	n = math.Mod(math.Trunc(n), 1<<32)
	if n < 0 {
		n += 1 << 32
	}
	return uint32(n)
}

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	}
	return a.o == b.o
}

// sameValueZero treats NaN as equal to itself.
func sameValueZero(a, b Value) bool {
	if a.kind == KindNumber && b.kind == KindNumber && math.IsNaN(a.n) && math.IsNaN(b.n) {
		return true
	}
	return StrictEquals(a, b)
}

// looseEquals implements ==.
func (in *Interpreter) looseEquals(a, b Value) bool {
	for {
		if a.kind == b.kind {
			return StrictEquals(a, b)
		}
		switch {
		case a.IsNullish() && b.IsNullish():
			return true
		case a.IsNullish() || b.IsNullish():
			return false
		case a.kind == KindNumber && b.kind == KindString:
			return a.n == StringToNumber(b.s)
		case a.kind == KindString && b.kind == KindNumber:
			return StringToNumber(a.s) == b.n
		case a.kind == KindBoolean:
			a = Number(in.ToNumber(a))
		case b.kind == KindBoolean:
			b = Number(in.ToNumber(b))
		case a.kind == KindObject:
			a = in.toPrimitive(a)
		case b.kind == KindObject:
			b = in.toPrimitive(b)
		default:
			return false
		}
	}
}
