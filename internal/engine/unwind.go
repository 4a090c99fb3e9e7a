package engine

import (
	"github.com/dop251/goja/ast"
)

// unwind transfers control for an abrupt completion. Throw stops at the
// nearest try statement, Return at the nearest call frame, Break at the
// matching label or the nearest loop or switch, Continue at the matching
// loop. It returns a non-nil error only when the completion escapes the
// program, which is fatal.
func (in *Interpreter) unwind(kind CompletionKind, v Value, label string) error {
	if kind == Normal {
		return faultf("unwind with a normal completion")
	}
	if in.onCompletion != nil {
		in.onCompletion(Completion{Kind: kind, Value: v, Label: label})
	}
	var trace []Frame
	if kind == Throw {
		trace = in.trace()
	}
	for len(in.stack) > 0 {
		st := in.top()
		switch st.Node.(type) {
		case *ast.TryStatement:
			st.cv = &Completion{Kind: kind, Value: v, Label: label}
			return nil
		case *ast.CallExpression, *ast.NewExpression, *syntheticCall:
			if st.phase == phaseReturn {
				switch kind {
				case Return:
					st.Value = v
					return nil
				case Break, Continue:
					return faultf("unsyntactic %s", kind)
				}
			}
		case *ast.Program:
			// The program frame stays so later Append calls still work.
			return in.escaped(kind, v, trace)
		}
		switch kind {
		case Break:
			if label != "" && hasLabel(st.labels, label) || label == "" && (st.isLoop || st.isSwitch) {
				in.pop()
				return nil
			}
		case Continue:
			if st.isLoop && (label == "" || hasLabel(st.labels, label)) {
				return nil
			}
		}
		in.pop()
	}
	return in.escaped(kind, v, trace)
}

func (in *Interpreter) escaped(kind CompletionKind, v Value, trace []Frame) error {
	if kind == Throw {
		return &UncaughtError{Value: v, Message: in.describeUncaught(v), Trace: trace}
	}
	return &EngineFault{Message: "illegal " + kind.String() + " outside of any target", Trace: trace}
}

func (in *Interpreter) describeUncaught(v Value) string {
	if v.kind == KindObject && v.o.class == classError {
		return in.ToString(v)
	}
	if v.kind == KindString {
		return v.s
	}
	return in.ToString(v)
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// throw raises v in the guest. It returns nil when a try statement caught
// it.
func (in *Interpreter) throw(v Value) error {
	return in.unwind(Throw, v, "")
}

// raise converts err into a guest throw and unwinds. Engine faults pass
// through as fatal.
func (in *Interpreter) raise(err error) error {
	v, fault := in.asThrow(err)
	if fault != nil {
		if len(fault.Trace) == 0 {
			fault.Trace = in.trace()
		}
		return fault
	}
	return in.throw(v)
}
