package engine

import (
	"math"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

func (in *Interpreter) initJSON() {
	j := in.NewObject()
	j.class = "JSON"
	in.SetGlobal("JSON", ObjectValue(j))

	in.method(j, "stringify", 3, func(in *Interpreter, c Call) (Value, error) {
		w := jsonWriter{in: in, seen: map[*Object]bool{}}
		switch r := c.Arg(1); {
		case r.IsFunction():
			return Undefined(), in.Errorf(TypeError, "JSON.stringify replacer functions are not supported")
		case r.isClass(classArray):
			w.allow = map[string]bool{}
			for _, k := range in.ArrayValues(r.o) {
				w.allow[in.ToString(k)] = true
			}
		}
		switch sp := c.Arg(2); sp.kind {
		case KindNumber:
			w.indent = strings.Repeat(" ", int(math.Max(0, math.Min(10, toInteger(sp.n)))))
		case KindString:
			w.indent = sp.s
			if len([]rune(w.indent)) > 10 {
				w.indent = string([]rune(w.indent)[:10])
			}
		}
		ok, err := w.write(c.Arg(0), "")
		if err != nil || !ok {
			return Undefined(), err
		}
		return String(w.b.String()), nil
	})
	in.method(j, "parse", 2, func(in *Interpreter, c Call) (Value, error) {
		if c.Arg(1).IsFunction() {
			return Undefined(), in.Errorf(TypeError, "JSON.parse revivers are not supported")
		}
		return in.ParseJSON(in.ToString(c.Arg(0)))
	})
}

// ParseJSON decodes JSON text into guest values, keeping object key order.
func (in *Interpreter) ParseJSON(text string) (Value, error) {
	var probe any
	if err := sonic.UnmarshalString(text, &probe); err != nil {
		return Undefined(), in.Errorf(SyntaxError, "Unexpected token in JSON: %s", firstLine(err.Error()))
	}
	root, err := sonic.GetFromString(text)
	if err != nil {
		return Undefined(), in.Errorf(SyntaxError, "Unexpected token in JSON: %s", firstLine(err.Error()))
	}
	v, err := in.fromJSONNode(&root)
	if err != nil {
		return Undefined(), in.Errorf(SyntaxError, "Unexpected token in JSON: %s", firstLine(err.Error()))
	}
	return v, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (in *Interpreter) fromJSONNode(n *ast.Node) (Value, error) {
	switch n.TypeSafe() {
	case ast.V_NULL:
		return Null(), nil
	case ast.V_TRUE:
		return Bool(true), nil
	case ast.V_FALSE:
		return Bool(false), nil
	case ast.V_NUMBER:
		f, err := n.Float64()
		return Number(f), err
	case ast.V_STRING:
		s, err := n.String()
		return String(s), err
	case ast.V_ARRAY:
		it, err := n.Values()
		if err != nil {
			return Undefined(), err
		}
		var vals []Value
		var elem ast.Node
		for it.Next(&elem) {
			v, err := in.fromJSONNode(&elem)
			if err != nil {
				return Undefined(), err
			}
			vals = append(vals, v)
		}
		return ObjectValue(in.NewArray(vals)), nil
	case ast.V_OBJECT:
		it, err := n.Properties()
		if err != nil {
			return Undefined(), err
		}
		o := in.NewObject()
		var p ast.Pair
		for it.Next(&p) {
			v, err := in.fromJSONNode(&p.Value)
			if err != nil {
				return Undefined(), err
			}
			o.Set(p.Key, v)
		}
		return ObjectValue(o), nil
	}
	return Undefined(), n.Check()
}

type jsonWriter struct {
	in     *Interpreter
	b      strings.Builder
	indent string
	allow  map[string]bool
	seen   map[*Object]bool
}

func (w *jsonWriter) quote(s string) {
	q, err := sonic.MarshalString(s)
	if err != nil {
		q = `""`
	}
	w.b.WriteString(q)
}

// write emits v and reports false when v has no JSON form (undefined and
// functions).
func (w *jsonWriter) write(v Value, cur string) (bool, error) {
	if v.kind == KindObject && v.o.fn == nil && v.o.primitive.kind != KindUndefined {
		v = v.o.primitive
	}
	switch v.kind {
	case KindUndefined:
		return false, nil
	case KindNull:
		w.b.WriteString("null")
	case KindBoolean:
		w.b.WriteString(w.in.ToString(v))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			w.b.WriteString("null")
		} else {
			w.b.WriteString(NumberToString(v.n))
		}
	case KindString:
		w.quote(v.s)
	case KindObject:
		o := v.o
		if o.fn != nil {
			return false, nil
		}
		if w.seen[o] {
			return false, w.in.Errorf(TypeError, "Converting circular structure to JSON")
		}
		w.seen[o] = true
		defer delete(w.seen, o)
		if o.class == classArray {
			return true, w.writeArray(o, cur)
		}
		return true, w.writeObject(o, cur)
	}
	return true, nil
}

func (w *jsonWriter) writeArray(o *Object, cur string) error {
	n := arrayLength(o)
	if n == 0 {
		w.b.WriteString("[]")
		return nil
	}
	inner := cur + w.indent
	w.b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			w.b.WriteByte(',')
		}
		w.newline(inner)
		ok, err := w.write(o.dataGet(indexKey(i)), inner)
		if err != nil {
			return err
		}
		if !ok {
			w.b.WriteString("null")
		}
	}
	w.newline(cur)
	w.b.WriteByte(']')
	return nil
}

func (w *jsonWriter) writeObject(o *Object, cur string) error {
	inner := cur + w.indent
	w.b.WriteByte('{')
	wrote := false
	for _, k := range o.Keys() {
		if w.allow != nil && !w.allow[k] {
			continue
		}
		if o.isAccessor(k) {
			continue
		}
		v := o.props[k]
		if v.kind == KindUndefined || v.IsFunction() {
			continue
		}
		if wrote {
			w.b.WriteByte(',')
		}
		w.newline(inner)
		w.quote(k)
		w.b.WriteByte(':')
		if w.indent != "" {
			w.b.WriteByte(' ')
		}
		if _, err := w.write(v, inner); err != nil {
			return err
		}
		wrote = true
	}
	if wrote {
		w.newline(cur)
	}
	w.b.WriteByte('}')
	return nil
}

func (w *jsonWriter) newline(indent string) {
	if w.indent == "" {
		return
	}
	w.b.WriteByte('\n')
	w.b.WriteString(indent)
}
