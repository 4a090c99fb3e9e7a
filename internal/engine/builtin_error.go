package engine

func (in *Interpreter) initErrors() {
	var base *Object
	for _, kind := range errorTypes {
		parent := in.protos.object
		if base != nil {
			parent = base
		}
		proto := newObject(parent, classObject)
		proto.define("name", String(string(kind)), hidden)
		proto.define("message", String(""), hidden)
		in.errorProtos[kind] = proto
		if kind == Error {
			base = proto
		}

		ctor := in.newConstructor(string(kind), 1, proto, func(in *Interpreter, c Call) (Value, error) {
			msg := ""
			if m := c.Arg(0); !m.IsUndefined() {
				msg = in.ToString(m)
			}
			return ObjectValue(in.newErrorWithProto(proto, msg)), nil
		})
		if kind != Error {
			ctor.proto = in.ctors[string(Error)]
		}
		in.SetGlobal(string(kind), ObjectValue(ctor))
		in.ctors[string(kind)] = ctor
	}

	in.method(base, "toString", 0, func(in *Interpreter, c Call) (Value, error) {
		if c.This.kind != KindObject {
			return Undefined(), in.Errorf(TypeError, "Error.prototype.toString called on non-object")
		}
		o := c.This.o
		name := "Error"
		if n := o.dataGet("name"); !n.IsUndefined() {
			name = in.ToString(n)
		}
		msg := ""
		if m := o.dataGet("message"); !m.IsUndefined() {
			msg = in.ToString(m)
		}
		switch {
		case name == "":
			return String(msg), nil
		case msg == "":
			return String(name), nil
		}
		return String(name + ": " + msg), nil
	})
}
