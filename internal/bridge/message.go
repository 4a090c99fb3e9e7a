package bridge

import (
	"fmt"
)

// Kind tags a wire Value.
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindObject    Kind = "object"
	KindFunction  Kind = "function"
)

// Value is what crosses the boundary: a primitive copy, or a reference made
// of a path and the property names advertised for it.
//
// A primitive may also carry plain data (nested []any and map[string]any)
// copied out of the guest. Objects owned by the host never travel by value.
type Value struct {
	Type Kind
	// Data is the primitive payload. Defined distinguishes undefined from
	// null, which both have a nil Data.
	Data    any
	Defined bool

	Path Path
	Keys []string
}

// Primitive returns a primitive value. nil means null.
func Primitive(x any) Value {
	return Value{Type: KindPrimitive, Data: x, Defined: true}
}

// Undefined returns the undefined primitive.
func Undefined() Value {
	return Value{Type: KindPrimitive}
}

// Reference returns an object or function reference.
func Reference(path Path, keys []string, callable bool) Value {
	kind := KindObject
	if callable {
		kind = KindFunction
	}
	return Value{Type: kind, Path: path, Keys: keys}
}

// IsReference reports whether v addresses a host value.
func (v Value) IsReference() bool {
	return v.Type == KindObject || v.Type == KindFunction
}

func (v Value) toMap() map[string]any {
	m := map[string]any{"type": string(v.Type)}
	if v.IsReference() {
		m["path"] = v.Path.wire()
		keys := make([]any, len(v.Keys))
		for i, k := range v.Keys {
			keys[i] = k
		}
		m["keys"] = keys
		return m
	}
	if v.Defined {
		m["value"] = v.Data
	}
	return m
}

func valueFrom(x any) (Value, error) {
	m, ok := x.(map[string]any)
	if !ok {
		return Value{}, fmt.Errorf("%w: value must be an object, got %T", ErrMalformed, x)
	}
	kind, _ := m["type"].(string)
	switch Kind(kind) {
	case KindPrimitive:
		data, defined := m["value"]
		return Value{Type: KindPrimitive, Data: data, Defined: defined}, nil
	case KindObject, KindFunction:
		path, err := pathFrom(m["path"])
		if err != nil {
			return Value{}, err
		}
		if len(path) == 0 {
			return Value{}, fmt.Errorf("%w: reference without a path", ErrMalformed)
		}
		var keys []string
		if raw, ok := m["keys"].([]any); ok {
			keys = make([]string, 0, len(raw))
			for _, k := range raw {
				s, ok := k.(string)
				if !ok {
					return Value{}, fmt.Errorf("%w: key of type %T", ErrMalformed, k)
				}
				keys = append(keys, s)
			}
		}
		return Value{Type: Kind(kind), Path: path, Keys: keys}, nil
	}
	return Value{}, fmt.Errorf("%w: unknown value type %q", ErrMalformed, kind)
}

// Op names a bridge operation.
type Op string

const (
	OpGet  Op = "get"
	OpSet  Op = "set"
	OpCall Op = "call"
)

// Message is one request from the sandbox to a host.
type Message struct {
	// ID correlates the response on transports that multiplex.
	ID    string
	Op    Op
	Path  Path
	Value *Value
	Args  []Value
}

// Response answers a Message. Error is set, and Value nil, on failure.
type Response struct {
	ID    string
	Value *Value
	Error string
}

func (m Message) toMap() map[string]any {
	out := map[string]any{
		"op":   string(m.Op),
		"path": m.Path.wire(),
	}
	if m.ID != "" {
		out["id"] = m.ID
	}
	if m.Value != nil {
		out["value"] = m.Value.toMap()
	}
	if m.Op == OpCall {
		args := make([]any, len(m.Args))
		for i, a := range m.Args {
			args[i] = a.toMap()
		}
		out["args"] = args
	}
	return out
}

func messageFrom(m map[string]any) (Message, error) {
	var msg Message
	msg.ID, _ = m["id"].(string)
	op, _ := m["op"].(string)
	msg.Op = Op(op)
	switch msg.Op {
	case OpGet, OpSet, OpCall:
	default:
		return msg, fmt.Errorf("%w: unknown op %q", ErrMalformed, op)
	}
	path, err := pathFrom(m["path"])
	if err != nil {
		return msg, err
	}
	msg.Path = path
	if raw, ok := m["value"]; ok {
		v, err := valueFrom(raw)
		if err != nil {
			return msg, err
		}
		msg.Value = &v
	}
	if msg.Op == OpSet && msg.Value == nil {
		return msg, fmt.Errorf("%w: set without a value", ErrMalformed)
	}
	if raw, ok := m["args"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return msg, fmt.Errorf("%w: args must be a list", ErrMalformed)
		}
		msg.Args = make([]Value, len(list))
		for i, a := range list {
			if msg.Args[i], err = valueFrom(a); err != nil {
				return msg, err
			}
		}
	}
	return msg, nil
}

func (r Response) toMap() map[string]any {
	out := map[string]any{}
	if r.ID != "" {
		out["id"] = r.ID
	}
	if r.Value != nil {
		out["value"] = r.Value.toMap()
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return out
}

func responseFrom(m map[string]any) (Response, error) {
	var r Response
	r.ID, _ = m["id"].(string)
	r.Error, _ = m["error"].(string)
	if raw, ok := m["value"]; ok {
		v, err := valueFrom(raw)
		if err != nil {
			return r, err
		}
		r.Value = &v
	}
	return r, nil
}
