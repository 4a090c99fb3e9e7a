package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType names one of the guest error constructors.
type ErrorType string

const (
	Error          ErrorType = "Error"
	TypeError      ErrorType = "TypeError"
	RangeError     ErrorType = "RangeError"
	ReferenceError ErrorType = "ReferenceError"
	SyntaxError    ErrorType = "SyntaxError"
	EvalError      ErrorType = "EvalError"
	URIError       ErrorType = "URIError"
)

var errorTypes = []ErrorType{Error, TypeError, RangeError, ReferenceError, SyntaxError, EvalError, URIError}

var (
	// ErrSuspended is returned when a second async call is started while one
	// is still outstanding.
	ErrSuspended = errors.New("interpreter already suspended")
	// ErrNotSuspended is returned by Resume when nothing is pending.
	ErrNotSuspended = errors.New("interpreter is not suspended")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("interpreter closed")
)

// ParseError reports guest source that failed to parse.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Filename, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EngineFault is an internal invariant violation. It is never catchable by
// guest code.
type EngineFault struct {
	Message string
	Trace   []Frame
}

func (e *EngineFault) Error() string {
	return "engine fault: " + e.Message + formatTrace(e.Trace)
}

func faultf(format string, args ...any) *EngineFault {
	return &EngineFault{Message: fmt.Sprintf(format, args...)}
}

// ThrowError carries a guest value being thrown. Natives return it to raise a
// catchable exception.
type ThrowError struct {
	Value Value
}

func (e *ThrowError) Error() string {
	return "guest throw: " + describeThrown(e.Value)
}

// UncaughtError is a guest throw that no try statement handled.
type UncaughtError struct {
	Value   Value
	Message string
	Trace   []Frame
}

func (e *UncaughtError) Error() string {
	return "uncaught " + e.Message + formatTrace(e.Trace)
}

// NamedError lets host errors surface in the guest as Error objects with a
// specific name, such as BridgeFault or TimeoutFault.
type NamedError interface {
	error
	ErrorName() string
}

// Frame is one entry of a guest stack trace.
type Frame struct {
	Function string
	Position string
}

func (f Frame) String() string {
	if f.Function == "" {
		return f.Position
	}
	return f.Function + " (" + f.Position + ")"
}

func formatTrace(trace []Frame) string {
	if len(trace) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range trace {
		b.WriteString("\n    at ")
		b.WriteString(f.String())
	}
	return b.String()
}

func describeThrown(v Value) string {
	if v.kind == KindObject && v.o.class == classError {
		name := v.o.dataGet("name")
		msg := v.o.dataGet("message")
		if msg.kind == KindString && msg.s != "" {
			return name.s + ": " + msg.s
		}
		return name.s
	}
	if v.kind == KindString {
		return v.s
	}
	return v.TypeOf()
}

// Errorf builds a guest error object of the given type and returns it wrapped
// as a *ThrowError.
func (in *Interpreter) Errorf(kind ErrorType, format string, args ...any) error {
	return &ThrowError{Value: ObjectValue(in.NewError(kind, fmt.Sprintf(format, args...)))}
}

// NewError creates a guest error object with a captured stack.
func (in *Interpreter) NewError(kind ErrorType, message string) *Object {
	proto := in.errorProtos[kind]
	if proto == nil {
		proto = in.errorProtos[Error]
	}
	return in.newErrorWithProto(proto, message)
}

func (in *Interpreter) newErrorWithProto(proto *Object, message string) *Object {
	o := newObject(proto, classError)
	if message != "" {
		o.define("message", String(message), hidden)
	}
	o.define("stack", String(in.stackString(o)), hidden)
	return o
}

func (in *Interpreter) stackString(errObj *Object) string {
	return describeThrown(ObjectValue(errObj)) + formatTrace(in.trace())
}

// asThrow converts an error returned by a native into a guest value. Engine
// faults are returned unchanged as fatal.
func (in *Interpreter) asThrow(err error) (Value, *EngineFault) {
	var fault *EngineFault
	if errors.As(err, &fault) {
		return Undefined(), fault
	}
	var te *ThrowError
	if errors.As(err, &te) {
		return te.Value, nil
	}
	var named NamedError
	if errors.As(err, &named) {
		o := in.NewError(Error, err.Error())
		o.define("name", String(named.ErrorName()), hidden)
		o.define("stack", String(in.stackString(o)), hidden)
		return ObjectValue(o), nil
	}
	return ObjectValue(in.NewError(Error, err.Error())), nil
}
