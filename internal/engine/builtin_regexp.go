package engine

import (
	"errors"
	"strconv"

	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

type regexpData struct {
	pattern *pattern.Pattern
}

// TimeoutFault is thrown into the guest when a pattern match exceeds the
// worker timeout.
type TimeoutFault struct {
	Err error
}

func (f *TimeoutFault) Error() string     { return f.Err.Error() }
func (f *TimeoutFault) Unwrap() error     { return f.Err }
func (f *TimeoutFault) ErrorName() string { return "TimeoutFault" }

func (in *Interpreter) initRegExp() {
	proto := newObject(in.protos.object, classObject)
	in.protos.regexp = proto

	ctor := in.newConstructor("RegExp", 2, proto, func(in *Interpreter, c Call) (Value, error) {
		src, flags := c.Arg(0), c.Arg(1)
		if re, ok := regexpOf(src); ok {
			if flags.IsUndefined() && !c.IsNew {
				return src, nil
			}
			p := patternOf(re)
			src = String(p.Source)
			if flags.IsUndefined() {
				flags = String(p.Flags)
			}
		}
		source := ""
		if !src.IsUndefined() {
			source = in.ToString(src)
		}
		f := ""
		if !flags.IsUndefined() {
			f = in.ToString(flags)
		}
		re, err := in.newRegExp(source, f)
		return ObjectValue(re), err
	})
	in.SetGlobal("RegExp", ObjectValue(ctor))
	in.ctors["RegExp"] = ctor

	in.asyncMethod(proto, "exec", 1, func(in *Interpreter, c Call, done Callback) {
		re, ok := regexpOf(c.This)
		if !ok {
			done(Undefined(), in.Errorf(TypeError, "RegExp.prototype.exec called on incompatible receiver"))
			return
		}
		in.regexpExec(re, in.ToString(c.Arg(0)), done)
	})
	in.asyncMethod(proto, "test", 1, func(in *Interpreter, c Call, done Callback) {
		re, ok := regexpOf(c.This)
		if !ok {
			done(Undefined(), in.Errorf(TypeError, "RegExp.prototype.test called on incompatible receiver"))
			return
		}
		in.regexpExec(re, in.ToString(c.Arg(0)), then(done, func(v Value) Value {
			return Bool(!v.IsNull())
		}))
	})
	in.method(proto, "toString", 0, func(in *Interpreter, c Call) (Value, error) {
		if re, ok := regexpOf(c.This); ok {
			p := patternOf(re)
			return String("/" + p.Source + "/" + p.Flags), nil
		}
		return Undefined(), in.Errorf(TypeError, "RegExp.prototype.toString called on incompatible receiver")
	})
}

// newRegExp compiles a pattern into a guest RegExp object. Invalid patterns
// are guest SyntaxErrors.
func (in *Interpreter) newRegExp(source, flags string) (*Object, error) {
	p, err := in.patterns.Compile(source, flags)
	if err != nil {
		return nil, in.Errorf(SyntaxError, "%s", err)
	}
	o := newObject(in.protos.regexp, classRegExp)
	o.internal = &regexpData{pattern: p}
	const fixed = attrNotEnumerable | attrNotWritable | attrNotConfigurable
	o.define("source", String(p.Source), fixed)
	o.define("flags", String(p.Flags), fixed)
	o.define("global", Bool(p.Global), fixed)
	o.define("ignoreCase", Bool(p.IgnoreCase), fixed)
	o.define("multiline", Bool(p.Multiline), fixed)
	o.define("sticky", Bool(p.Sticky), fixed)
	o.define("unicode", Bool(p.Unicode), fixed)
	o.define("dotAll", Bool(p.DotAll), fixed)
	o.define("lastIndex", Int(0), attrNotEnumerable|attrNotConfigurable)
	return o, nil
}

func regexpOf(v Value) (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	_, ok := v.o.internal.(*regexpData)
	return v.o, ok
}

func patternOf(re *Object) *pattern.Pattern {
	return re.internal.(*regexpData).pattern
}

// coercePattern returns v as a RegExp, compiling its string form otherwise.
func (in *Interpreter) coercePattern(v Value) (*Object, error) {
	if re, ok := regexpOf(v); ok {
		return re, nil
	}
	source := ""
	if !v.IsUndefined() {
		source = in.ToString(v)
	}
	return in.newRegExp(source, "")
}

// deferred carries a result that must be built on the interpreter's own
// goroutine. Async natives hand it to their callback as the error.
// then maps the value delivered through done with f.
func then(done Callback, f func(Value) Value) Callback {
	return func(v Value, err error) {
		var d *deferred
		if errors.As(err, &d) {
			done(Undefined(), Later(func(in *Interpreter) (Value, error) {
				v, err := d.fn(in)
				if err != nil {
					return Undefined(), err
				}
				return f(v), nil
			}))
			return
		}
		if err != nil {
			done(Undefined(), err)
			return
		}
		done(f(v), nil)
	}
}

// runPattern searches through the pattern engine and completes done with
// finish applied to the matches.
func (in *Interpreter) runPattern(req pattern.Request, done Callback, finish func(in *Interpreter, ms []pattern.Match) (Value, error)) {
	in.patterns.FindAsync(req, func(ms []pattern.Match, err error) {
		done(Undefined(), Later(func(in *Interpreter) (Value, error) {
			if err != nil {
				return Undefined(), in.patternError(err)
			}
			return finish(in, ms)
		}))
	})
}

func (in *Interpreter) patternError(err error) error {
	switch {
	case errors.Is(err, pattern.ErrTimeout):
		in.log.Warn("pattern match timed out")
		return &TimeoutFault{Err: err}
	case errors.Is(err, pattern.ErrDisallowed):
		return in.Errorf(Error, "Regular expressions are disabled")
	}
	return err
}

// regexpExec runs exec semantics, honoring lastIndex for global and sticky
// patterns.
func (in *Interpreter) regexpExec(re *Object, s string, done Callback) {
	p := patternOf(re)
	tracked := p.Global || p.Sticky
	start := 0
	if tracked {
		start = int(toInteger(in.ToNumber(re.dataGet("lastIndex"))))
		if start < 0 || start > len([]rune(s)) {
			re.define("lastIndex", Int(0), attrNotEnumerable|attrNotConfigurable)
			done(Null(), nil)
			return
		}
	}
	in.runPattern(pattern.Request{Pattern: p, Subject: s, Start: start}, done, func(in *Interpreter, ms []pattern.Match) (Value, error) {
		if len(ms) == 0 {
			if tracked {
				re.define("lastIndex", Int(0), attrNotEnumerable|attrNotConfigurable)
			}
			return Null(), nil
		}
		m := ms[0]
		if tracked {
			re.define("lastIndex", Int(m.End()), attrNotEnumerable|attrNotConfigurable)
		}
		return ObjectValue(in.matchArray(m, s)), nil
	})
}

// matchArray builds the exec result: the groups plus index, input and the
// named groups object.
func (in *Interpreter) matchArray(m pattern.Match, s string) *Object {
	vals := make([]Value, 0, len(m.Groups))
	var named *Object
	for _, g := range m.Groups {
		if _, err := strconv.Atoi(g.Name); err != nil && g.Name != "" {
			if named == nil {
				named = newObject(nil, classObject)
			}
			if g.Matched {
				named.define(g.Name, String(g.Text), 0)
			} else {
				named.define(g.Name, Undefined(), 0)
			}
		}
		if g.Matched {
			vals = append(vals, String(g.Text))
		} else {
			vals = append(vals, Undefined())
		}
	}
	a := in.NewArray(vals)
	a.define("index", Int(m.Index), 0)
	a.define("input", String(s), 0)
	a.define("groups", ObjectValue(named).orUndefined(), 0)
	return a
}
