package engine

import (
	"maps"
	"math"
	"slices"

	"github.com/dop251/goja/ftoa"
)

func (in *Interpreter) initNumber() {
	proto := newObject(in.protos.object, classNumber)
	proto.primitive = Int(0)
	in.protos.number = proto

	ctor := in.newConstructor("Number", 1, proto, func(in *Interpreter, c Call) (Value, error) {
		n := Int(0)
		if len(c.Args) > 0 {
			n = Number(in.ToNumber(c.Args[0]))
		}
		if c.IsNew {
			o, _ := in.toObject(n)
			return ObjectValue(o), nil
		}
		return n, nil
	})
	in.SetGlobal("Number", ObjectValue(ctor))
	in.ctors["Number"] = ctor

	const fixed = attrNotEnumerable | attrNotWritable | attrNotConfigurable
	for _, k := range []struct {
		name string
		v    float64
	}{
		{"MAX_SAFE_INTEGER", 1<<53 - 1},
		{"MIN_SAFE_INTEGER", -(1<<53 - 1)},
		{"EPSILON", math.Nextafter(1, 2) - 1},
		{"MAX_VALUE", math.MaxFloat64},
		{"MIN_VALUE", math.SmallestNonzeroFloat64},
		{"POSITIVE_INFINITY", math.Inf(1)},
		{"NEGATIVE_INFINITY", math.Inf(-1)},
		{"NaN", math.NaN()},
	} {
		ctor.define(k.name, Number(k.v), fixed)
	}

	isInteger := func(v Value) bool {
		return v.kind == KindNumber && !math.IsInf(v.n, 0) && v.n == math.Trunc(v.n)
	}
	in.method(ctor, "isInteger", 1, func(in *Interpreter, c Call) (Value, error) {
		return Bool(isInteger(c.Arg(0))), nil
	})
	in.method(ctor, "isSafeInteger", 1, func(in *Interpreter, c Call) (Value, error) {
		v := c.Arg(0)
		return Bool(isInteger(v) && math.Abs(v.n) <= 1<<53-1), nil
	})
	in.method(ctor, "isFinite", 1, func(in *Interpreter, c Call) (Value, error) {
		v := c.Arg(0)
		return Bool(v.kind == KindNumber && !math.IsNaN(v.n) && !math.IsInf(v.n, 0)), nil
	})
	in.method(ctor, "isNaN", 1, func(in *Interpreter, c Call) (Value, error) {
		v := c.Arg(0)
		return Bool(v.kind == KindNumber && math.IsNaN(v.n)), nil
	})

	thisNumber := func(in *Interpreter, c Call) (float64, error) {
		switch {
		case c.This.kind == KindNumber:
			return c.This.n, nil
		case c.This.isClass(classNumber):
			return c.This.o.primitive.n, nil
		}
		return 0, in.Errorf(TypeError, "Number.prototype method called on incompatible receiver")
	}
	in.method(proto, "valueOf", 0, func(in *Interpreter, c Call) (Value, error) {
		n, err := thisNumber(in, c)
		return Number(n), err
	})
	in.method(proto, "toString", 1, func(in *Interpreter, c Call) (Value, error) {
		n, err := thisNumber(in, c)
		if err != nil {
			return Undefined(), err
		}
		radix := 10
		if r := c.Arg(0); !r.IsUndefined() {
			radix = int(toInteger(in.ToNumber(r)))
		}
		if radix < 2 || radix > 36 {
			return Undefined(), in.Errorf(RangeError, "toString() radix must be between 2 and 36")
		}
		if radix == 10 || math.IsNaN(n) || math.IsInf(n, 0) {
			return String(NumberToString(n)), nil
		}
		return String(ftoa.FToBaseStr(n, radix)), nil
	})
	in.method(proto, "toLocaleString", 0, func(in *Interpreter, c Call) (Value, error) {
		n, err := thisNumber(in, c)
		return String(NumberToString(n)), err
	})
	in.method(proto, "toFixed", 1, func(in *Interpreter, c Call) (Value, error) {
		n, err := thisNumber(in, c)
		if err != nil {
			return Undefined(), err
		}
		digits := toInteger(in.ToNumber(c.Arg(0)))
		if digits < 0 || digits > 100 {
			return Undefined(), in.Errorf(RangeError, "toFixed() digits argument must be between 0 and 100")
		}
		if math.IsNaN(n) || math.Abs(n) >= 1e21 {
			return String(NumberToString(n)), nil
		}
		return String(string(ftoa.FToStr(n, ftoa.ModeFixed, int(digits), nil))), nil
	})
	in.method(proto, "toPrecision", 1, func(in *Interpreter, c Call) (Value, error) {
		n, err := thisNumber(in, c)
		if err != nil {
			return Undefined(), err
		}
		if c.Arg(0).IsUndefined() || math.IsNaN(n) || math.IsInf(n, 0) {
			return String(NumberToString(n)), nil
		}
		p := toInteger(in.ToNumber(c.Arg(0)))
		if p < 1 || p > 100 {
			return Undefined(), in.Errorf(RangeError, "toPrecision() argument must be between 1 and 100")
		}
		return String(string(ftoa.FToStr(n, ftoa.ModePrecision, int(p), nil))), nil
	})
}

func (in *Interpreter) initBoolean() {
	proto := newObject(in.protos.object, classBoolean)
	proto.primitive = Bool(false)
	in.protos.boolean = proto

	ctor := in.newConstructor("Boolean", 1, proto, func(in *Interpreter, c Call) (Value, error) {
		b := Bool(ToBoolean(c.Arg(0)))
		if c.IsNew {
			o, _ := in.toObject(b)
			return ObjectValue(o), nil
		}
		return b, nil
	})
	in.SetGlobal("Boolean", ObjectValue(ctor))
	in.ctors["Boolean"] = ctor

	thisBool := func(in *Interpreter, c Call) (bool, error) {
		switch {
		case c.This.kind == KindBoolean:
			return c.This.b, nil
		case c.This.isClass(classBoolean):
			return c.This.o.primitive.b, nil
		}
		return false, in.Errorf(TypeError, "Boolean.prototype method called on incompatible receiver")
	}
	in.method(proto, "valueOf", 0, func(in *Interpreter, c Call) (Value, error) {
		b, err := thisBool(in, c)
		return Bool(b), err
	})
	in.method(proto, "toString", 0, func(in *Interpreter, c Call) (Value, error) {
		b, err := thisBool(in, c)
		return String(in.ToString(Bool(b))), err
	})
}

func (in *Interpreter) initMath() {
	m := in.NewObject()
	m.class = "Math"
	in.SetGlobal("Math", ObjectValue(m))

	const fixed = attrNotEnumerable | attrNotWritable | attrNotConfigurable
	for _, k := range []struct {
		name string
		v    float64
	}{
		{"PI", math.Pi},
		{"E", math.E},
		{"LN2", math.Ln2},
		{"LN10", math.Ln10},
		{"LOG2E", math.Log2E},
		{"LOG10E", math.Log10E},
		{"SQRT2", math.Sqrt2},
		{"SQRT1_2", math.Sqrt2 / 2},
	} {
		m.define(k.name, Number(k.v), fixed)
	}

	unary := map[string]func(float64) float64{
		"abs":   math.Abs,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"trunc": math.Trunc,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"exp":   math.Exp,
		"expm1": math.Expm1,
		"log":   math.Log,
		"log1p": math.Log1p,
		"log2":  math.Log2,
		"log10": math.Log10,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"sinh":  math.Sinh,
		"cosh":  math.Cosh,
		"tanh":  math.Tanh,
		"round": func(x float64) float64 {
			if math.IsNaN(x) || math.IsInf(x, 0) || x == math.Trunc(x) {
				return x
			}
			return math.Floor(x + 0.5)
		},
		"sign": func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return x
		},
	}
	for _, name := range slices.Sorted(maps.Keys(unary)) {
		fn := unary[name]
		in.method(m, name, 1, func(in *Interpreter, c Call) (Value, error) {
			return Number(fn(in.ToNumber(c.Arg(0)))), nil
		})
	}
	in.method(m, "atan2", 2, func(in *Interpreter, c Call) (Value, error) {
		return Number(math.Atan2(in.ToNumber(c.Arg(0)), in.ToNumber(c.Arg(1)))), nil
	})
	in.method(m, "pow", 2, func(in *Interpreter, c Call) (Value, error) {
		return Number(pow(in.ToNumber(c.Arg(0)), in.ToNumber(c.Arg(1)))), nil
	})
	in.method(m, "hypot", 2, func(in *Interpreter, c Call) (Value, error) {
		var sum float64
		for _, a := range c.Args {
			n := in.ToNumber(a)
			if math.IsInf(n, 0) {
				return Number(math.Inf(1)), nil
			}
			sum += n * n
		}
		return Number(math.Sqrt(sum)), nil
	})
	in.method(m, "max", 2, func(in *Interpreter, c Call) (Value, error) {
		out := math.Inf(-1)
		for _, a := range c.Args {
			n := in.ToNumber(a)
			if math.IsNaN(n) {
				return Number(n), nil
			}
			out = math.Max(out, n)
		}
		return Number(out), nil
	})
	in.method(m, "min", 2, func(in *Interpreter, c Call) (Value, error) {
		out := math.Inf(1)
		for _, a := range c.Args {
			n := in.ToNumber(a)
			if math.IsNaN(n) {
				return Number(n), nil
			}
			out = math.Min(out, n)
		}
		return Number(out), nil
	})
	in.method(m, "random", 0, func(in *Interpreter, c Call) (Value, error) {
		return Number(in.rand.Float64()), nil
	})
}

// pow follows guest exponent rules where they differ from math.Pow.
func pow(x, y float64) float64 {
	if math.IsNaN(y) || (math.Abs(x) == 1 && math.IsInf(y, 0)) {
		return math.NaN()
	}
	return math.Pow(x, y)
}
