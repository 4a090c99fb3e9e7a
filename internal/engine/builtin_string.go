package engine

import (
	"math"
	"strings"
	"unicode"

	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

func (in *Interpreter) initString() {
	proto := newObject(in.protos.object, classString)
	proto.primitive = String("")
	in.protos.string = proto

	ctor := in.newConstructor("String", 1, proto, func(in *Interpreter, c Call) (Value, error) {
		s := String("")
		if len(c.Args) > 0 {
			s = String(in.ToString(c.Args[0]))
		}
		if c.IsNew {
			o, _ := in.toObject(s)
			return ObjectValue(o), nil
		}
		return s, nil
	})
	in.SetGlobal("String", ObjectValue(ctor))
	in.ctors["String"] = ctor

	in.method(ctor, "fromCharCode", 1, func(in *Interpreter, c Call) (Value, error) {
		var b strings.Builder
		for _, a := range c.Args {
			b.WriteRune(rune(toUint32(in.ToNumber(a)) & 0xffff))
		}
		return String(b.String()), nil
	})
	in.method(ctor, "fromCodePoint", 1, func(in *Interpreter, c Call) (Value, error) {
		var b strings.Builder
		for _, a := range c.Args {
			n := in.ToNumber(a)
			if n < 0 || n > unicode.MaxRune || n != math.Trunc(n) {
				return Undefined(), in.Errorf(RangeError, "Invalid code point %s", NumberToString(n))
			}
			b.WriteRune(rune(n))
		}
		return String(b.String()), nil
	})

	valueOf := func(in *Interpreter, c Call) (Value, error) {
		switch {
		case c.This.kind == KindString:
			return c.This, nil
		case c.This.isClass(classString):
			return c.This.o.primitive, nil
		}
		return Undefined(), in.Errorf(TypeError, "String.prototype.valueOf requires that 'this' be a String")
	}
	in.method(proto, "toString", 0, valueOf)
	in.method(proto, "valueOf", 0, valueOf)

	str := func(fn func(in *Interpreter, s []rune, c Call) (Value, error)) NativeFunc {
		return func(in *Interpreter, c Call) (Value, error) {
			if c.This.IsNullish() {
				return Undefined(), in.Errorf(TypeError, "String.prototype method called on null or undefined")
			}
			return fn(in, []rune(in.ToString(c.This)), c)
		}
	}

	in.method(proto, "charAt", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		i := toInteger(in.ToNumber(c.Arg(0)))
		if i < 0 || i >= float64(len(s)) {
			return String(""), nil
		}
		return String(string(s[int(i)])), nil
	}))
	in.method(proto, "charCodeAt", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		i := toInteger(in.ToNumber(c.Arg(0)))
		if i < 0 || i >= float64(len(s)) {
			return Number(math.NaN()), nil
		}
		return Int(int(s[int(i)])), nil
	}))
	in.method(proto, "codePointAt", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		i := toInteger(in.ToNumber(c.Arg(0)))
		if i < 0 || i >= float64(len(s)) {
			return Undefined(), nil
		}
		return Int(int(s[int(i)])), nil
	}))
	in.method(proto, "indexOf", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		sub := []rune(in.ToString(c.Arg(0)))
		start := int(math.Min(math.Max(toInteger(in.ToNumber(c.Arg(1))), 0), float64(len(s))))
		return Int(runeIndex(s, sub, start)), nil
	}))
	in.method(proto, "lastIndexOf", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		sub := []rune(in.ToString(c.Arg(0)))
		from := len(s)
		if n := in.ToNumber(c.Arg(1)); !math.IsNaN(n) {
			from = int(math.Min(math.Max(toInteger(n), 0), float64(len(s))))
		}
		for i := min(from, len(s)-len(sub)); i >= 0; i-- {
			if runesEqual(s[i:i+len(sub)], sub) {
				return Int(i), nil
			}
		}
		return Int(-1), nil
	}))
	in.method(proto, "includes", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		if c.Arg(0).isClass(classRegExp) {
			return Undefined(), in.Errorf(TypeError, "First argument to String.prototype.includes must not be a regular expression")
		}
		sub := []rune(in.ToString(c.Arg(0)))
		start := int(math.Min(math.Max(toInteger(in.ToNumber(c.Arg(1))), 0), float64(len(s))))
		return Bool(runeIndex(s, sub, start) >= 0), nil
	}))
	in.method(proto, "startsWith", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		sub := []rune(in.ToString(c.Arg(0)))
		start := int(math.Min(math.Max(toInteger(in.ToNumber(c.Arg(1))), 0), float64(len(s))))
		return Bool(start+len(sub) <= len(s) && runesEqual(s[start:start+len(sub)], sub)), nil
	}))
	in.method(proto, "endsWith", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		sub := []rune(in.ToString(c.Arg(0)))
		end := len(s)
		if e := c.Arg(1); !e.IsUndefined() {
			end = int(math.Min(math.Max(toInteger(in.ToNumber(e)), 0), float64(len(s))))
		}
		start := end - len(sub)
		return Bool(start >= 0 && runesEqual(s[start:end], sub)), nil
	}))
	in.method(proto, "slice", 2, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		start, end := in.sliceBounds(c.Arg(0), c.Arg(1), len(s))
		return String(string(s[start:end])), nil
	}))
	in.method(proto, "substring", 2, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		clamp := func(v Value, def int) int {
			if v.IsUndefined() {
				return def
			}
			n := toInteger(in.ToNumber(v))
			return int(math.Min(math.Max(n, 0), float64(len(s))))
		}
		start, end := clamp(c.Arg(0), 0), clamp(c.Arg(1), len(s))
		if start > end {
			start, end = end, start
		}
		return String(string(s[start:end])), nil
	}))
	in.method(proto, "substr", 2, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		start := relativeIndex(toInteger(in.ToNumber(c.Arg(0))), len(s))
		n := len(s) - start
		if l := c.Arg(1); !l.IsUndefined() {
			n = int(math.Min(math.Max(toInteger(in.ToNumber(l)), 0), float64(n)))
		}
		return String(string(s[start : start+n])), nil
	}))
	in.method(proto, "toUpperCase", 0, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		return String(strings.ToUpper(string(s))), nil
	}))
	in.method(proto, "toLowerCase", 0, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		return String(strings.ToLower(string(s))), nil
	}))
	in.method(proto, "trim", 0, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		return String(strings.TrimFunc(string(s), isJSSpace)), nil
	}))
	in.method(proto, "trimStart", 0, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		return String(strings.TrimLeftFunc(string(s), isJSSpace)), nil
	}))
	in.method(proto, "trimEnd", 0, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		return String(strings.TrimRightFunc(string(s), isJSSpace)), nil
	}))
	pad := func(atStart bool) NativeFunc {
		return str(func(in *Interpreter, s []rune, c Call) (Value, error) {
			target := int(toInteger(in.ToNumber(c.Arg(0))))
			filler := " "
			if f := c.Arg(1); !f.IsUndefined() {
				filler = in.ToString(f)
			}
			fr := []rune(filler)
			if target <= len(s) || len(fr) == 0 {
				return String(string(s)), nil
			}
			padding := make([]rune, 0, target-len(s))
			for len(padding) < target-len(s) {
				padding = append(padding, fr[len(padding)%len(fr)])
			}
			if atStart {
				return String(string(padding) + string(s)), nil
			}
			return String(string(s) + string(padding)), nil
		})
	}
	in.method(proto, "padStart", 2, pad(true))
	in.method(proto, "padEnd", 2, pad(false))
	in.method(proto, "repeat", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		n := toInteger(in.ToNumber(c.Arg(0)))
		if n < 0 || math.IsInf(n, 0) {
			return Undefined(), in.Errorf(RangeError, "Invalid count value: %s", NumberToString(n))
		}
		if float64(len(s))*n > maxStringLength {
			return Undefined(), in.Errorf(RangeError, "Invalid string length")
		}
		return String(strings.Repeat(string(s), int(n))), nil
	}))
	in.method(proto, "concat", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		var b strings.Builder
		b.WriteString(string(s))
		for _, a := range c.Args {
			b.WriteString(in.ToString(a))
		}
		return String(b.String()), nil
	}))
	in.method(proto, "localeCompare", 1, str(func(in *Interpreter, s []rune, c Call) (Value, error) {
		return Int(strings.Compare(string(s), in.ToString(c.Arg(0)))), nil
	}))

	// The pattern-aware methods suspend when handed a RegExp evaluated off
	// the interpreter goroutine.
	in.asyncMethod(proto, "split", 2, in.stringSplit)
	in.asyncMethod(proto, "match", 1, in.stringMatch)
	in.asyncMethod(proto, "search", 1, in.stringSearch)
	in.asyncMethod(proto, "replace", 2, in.stringReplace)
}

// maxStringLength bounds strings built by repeat and padding.
const maxStringLength = 1 << 28

func isJSSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func runeIndex(s, sub []rune, start int) int {
	for i := start; i+len(sub) <= len(s); i++ {
		if runesEqual(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (in *Interpreter) stringSplit(_ *Interpreter, c Call, done Callback) {
	if c.This.IsNullish() {
		done(Undefined(), in.Errorf(TypeError, "String.prototype.split called on null or undefined"))
		return
	}
	s := in.ToString(c.This)
	limit := -1
	if l := c.Arg(1); !l.IsUndefined() {
		limit = int(toUint32(in.ToNumber(l)))
	}
	sep := c.Arg(0)
	if re, ok := regexpOf(sep); ok {
		req := pattern.Request{Pattern: patternOf(re), Subject: s, All: true}
		in.runPattern(req, done, func(in *Interpreter, ms []pattern.Match) (Value, error) {
			return ObjectValue(in.NewArray(capLimit(splitMatches(s, ms), limit))), nil
		})
		return
	}
	var parts []Value
	switch {
	case sep.IsUndefined():
		parts = []Value{String(s)}
	default:
		sepStr := in.ToString(sep)
		if sepStr == "" {
			for _, r := range s {
				parts = append(parts, String(string(r)))
			}
		} else {
			for _, p := range strings.Split(s, sepStr) {
				parts = append(parts, String(p))
			}
		}
	}
	done(ObjectValue(in.NewArray(capLimit(parts, limit))), nil)
}

func capLimit(parts []Value, limit int) []Value {
	if limit >= 0 && len(parts) > limit {
		return parts[:limit]
	}
	return parts
}

func (in *Interpreter) stringMatch(_ *Interpreter, c Call, done Callback) {
	if c.This.IsNullish() {
		done(Undefined(), in.Errorf(TypeError, "String.prototype.match called on null or undefined"))
		return
	}
	s := in.ToString(c.This)
	re, err := in.coercePattern(c.Arg(0))
	if err != nil {
		done(Undefined(), err)
		return
	}
	p := patternOf(re)
	if !p.Global {
		in.regexpExec(re, s, done)
		return
	}
	in.runPattern(pattern.Request{Pattern: p, Subject: s, All: true}, done, func(in *Interpreter, ms []pattern.Match) (Value, error) {
		re.define("lastIndex", Int(0), attrNotEnumerable|attrNotConfigurable)
		if len(ms) == 0 {
			return Null(), nil
		}
		out := make([]Value, len(ms))
		for i, m := range ms {
			out[i] = String(m.Groups[0].Text)
		}
		return ObjectValue(in.NewArray(out)), nil
	})
}

func (in *Interpreter) stringSearch(_ *Interpreter, c Call, done Callback) {
	if c.This.IsNullish() {
		done(Undefined(), in.Errorf(TypeError, "String.prototype.search called on null or undefined"))
		return
	}
	s := in.ToString(c.This)
	re, err := in.coercePattern(c.Arg(0))
	if err != nil {
		done(Undefined(), err)
		return
	}
	in.runPattern(pattern.Request{Pattern: patternOf(re), Subject: s}, done, func(in *Interpreter, ms []pattern.Match) (Value, error) {
		if len(ms) == 0 {
			return Int(-1), nil
		}
		return Int(ms[0].Index), nil
	})
}

// stringReplace handles string and template replacements. Function
// replacements are layered on top by guest code.
func (in *Interpreter) stringReplace(_ *Interpreter, c Call, done Callback) {
	if c.This.IsNullish() {
		done(Undefined(), in.Errorf(TypeError, "String.prototype.replace called on null or undefined"))
		return
	}
	s := in.ToString(c.This)
	replacement := in.ToString(c.Arg(1))
	if re, ok := regexpOf(c.Arg(0)); ok {
		p := patternOf(re)
		in.runPattern(pattern.Request{Pattern: p, Subject: s, All: p.Global}, done, func(in *Interpreter, ms []pattern.Match) (Value, error) {
			if p.Global {
				re.define("lastIndex", Int(0), attrNotEnumerable|attrNotConfigurable)
			}
			return String(replaceMatches(s, ms, replacement)), nil
		})
		return
	}
	needle := in.ToString(c.Arg(0))
	i := runeIndex([]rune(s), []rune(needle), 0)
	if i < 0 {
		done(String(s), nil)
		return
	}
	m := pattern.Match{Index: i, Groups: []pattern.Group{{Text: needle, Matched: true}}}
	done(String(replaceMatches(s, []pattern.Match{m}, replacement)), nil)
}

// replaceMatches substitutes each match in s, expanding $-patterns in
// replacement.
func replaceMatches(s string, matches []pattern.Match, replacement string) string {
	rs := []rune(s)
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(string(rs[last:m.Index]))
		b.WriteString(expandReplacement(replacement, rs, m))
		last = m.End()
	}
	b.WriteString(string(rs[last:]))
	return b.String()
}

func expandReplacement(tmpl string, subject []rune, m pattern.Match) string {
	if !strings.Contains(tmpl, "$") {
		return tmpl
	}
	t := []rune(tmpl)
	var b strings.Builder
	for i := 0; i < len(t); i++ {
		if t[i] != '$' || i+1 == len(t) {
			b.WriteRune(t[i])
			continue
		}
		switch next := t[i+1]; {
		case next == '$':
			b.WriteRune('$')
			i++
		case next == '&':
			b.WriteString(m.Groups[0].Text)
			i++
		case next == '`':
			b.WriteString(string(subject[:m.Index]))
			i++
		case next == '\'':
			b.WriteString(string(subject[m.End():]))
			i++
		case next >= '0' && next <= '9':
			n := int(next - '0')
			width := 1
			if i+2 < len(t) && t[i+2] >= '0' && t[i+2] <= '9' {
				if nn := n*10 + int(t[i+2]-'0'); nn > 0 && nn < len(m.Groups) {
					n, width = nn, 2
				}
			}
			if n == 0 || n >= len(m.Groups) {
				b.WriteRune('$')
				continue
			}
			b.WriteString(m.Groups[n].Text)
			i += width
		default:
			b.WriteRune('$')
		}
	}
	return b.String()
}

// splitMatches cuts s around the separator matches, including captured
// groups in the result.
func splitMatches(s string, matches []pattern.Match) []Value {
	rs := []rune(s)
	if len(rs) == 0 {
		if len(matches) > 0 {
			return []Value{}
		}
		return []Value{String("")}
	}
	var out []Value
	last := 0
	for _, m := range matches {
		end := m.End()
		if end == m.Index && (m.Index == 0 || m.Index >= len(rs) || m.Index == last) {
			continue
		}
		out = append(out, String(string(rs[last:m.Index])))
		for _, g := range m.Groups[1:] {
			if g.Matched {
				out = append(out, String(g.Text))
			} else {
				out = append(out, Undefined())
			}
		}
		last = end
	}
	return append(out, String(string(rs[last:])))
}
