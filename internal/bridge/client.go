package bridge

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/engine"
)

// Names of the natives Client installs in the guest global scope.
const (
	NativeGet  = "__bridgeGet"
	NativeSet  = "__bridgeSet"
	NativeCall = "__bridgeCall"
	NativeTag  = "__bridgeTag"
)

// handle is the internal slot of a guest stub: the path it stands for.
type handle struct {
	path Path
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClientObserver installs a per-round-trip hook.
func WithClientObserver(o Observer) ClientOption {
	return func(c *Client) { c.observe = o }
}

// Client is the sandbox end of the bridge. It installs the get, set, call and
// tag natives and forwards each guest operation through a Transport. Every
// operation suspends the interpreter until its response arrives, so messages
// leave in guest order, one at a time.
type Client struct {
	transport Transport
	log       *zap.Logger
	observe   Observer

	mu      sync.Mutex
	ctx     context.Context
	journal []Message
}

// NewClient creates a client sending through t.
func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{transport: t, log: zap.NewNop(), ctx: context.Background()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetContext sets the context round trips run under.
func (c *Client) SetContext(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

// Journal returns the messages sent so far, in order.
func (c *Client) Journal() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.journal...)
}

// Install registers the bridge natives on in. It is meant to run from an
// interpreter init hook.
func (c *Client) Install(in *engine.Interpreter) error {
	in.SetGlobal(NativeGet, engine.ObjectValue(in.NewAsync(NativeGet, 1, func(in *engine.Interpreter, call engine.Call, done engine.Callback) {
		path, err := guestPath(in, call.Arg(0))
		if err != nil {
			done(engine.Undefined(), err)
			return
		}
		c.send(Message{Op: OpGet, Path: path}, done)
	})))

	in.SetGlobal(NativeSet, engine.ObjectValue(in.NewAsync(NativeSet, 2, func(in *engine.Interpreter, call engine.Call, done engine.Callback) {
		path, err := guestPath(in, call.Arg(0))
		if err != nil {
			done(engine.Undefined(), err)
			return
		}
		v, err := toWire(in, call.Arg(1))
		if err != nil {
			done(engine.Undefined(), err)
			return
		}
		c.send(Message{Op: OpSet, Path: path, Value: &v}, done)
	})))

	in.SetGlobal(NativeCall, engine.ObjectValue(in.NewAsync(NativeCall, 2, func(in *engine.Interpreter, call engine.Call, done engine.Callback) {
		path, err := guestPath(in, call.Arg(0))
		if err != nil {
			done(engine.Undefined(), err)
			return
		}
		var args []Value
		if list := call.Arg(1); list.IsObject() {
			for _, a := range in.ArrayValues(list.AsObject()) {
				v, err := toWire(in, a)
				if err != nil {
					done(engine.Undefined(), err)
					return
				}
				args = append(args, v)
			}
		}
		c.send(Message{Op: OpCall, Path: path, Args: args}, done)
	})))

	in.SetGlobal(NativeTag, engine.ObjectValue(in.NewNative(NativeTag, 2, func(in *engine.Interpreter, call engine.Call) (engine.Value, error) {
		stub := call.Arg(0)
		if !stub.IsObject() {
			return engine.Undefined(), in.Errorf(engine.TypeError, "%s expects an object", NativeTag)
		}
		path, err := guestPath(in, call.Arg(1))
		if err != nil {
			return engine.Undefined(), err
		}
		stub.AsObject().SetInternal(&handle{path: path})
		return stub, nil
	})))
	return nil
}

// inline is implemented by in-process transports that answer without
// blocking on a peer.
type inline interface{ inline() }

func (Direct) inline()   {}
func (Loopback) inline() {}

func (c *Client) send(m Message, done engine.Callback) {
	m.ID = uuid.NewString()
	c.mu.Lock()
	c.journal = append(c.journal, m)
	ctx := c.ctx
	c.mu.Unlock()

	trip := func() {
		start := time.Now()
		resp, err := c.transport.RoundTrip(ctx, m)
		if err == nil && resp.Error != "" {
			err = &Fault{Op: m.Op, Path: m.Path, Message: resp.Error}
		} else if err != nil {
			err = fault(m.Op, m.Path, err)
		}
		if c.observe != nil {
			c.observe(m.Op, err, time.Since(start))
		}
		if err != nil {
			c.log.Debug("bridge round trip failed", zap.String("op", string(m.Op)), zap.Stringer("path", m.Path), zap.Error(err))
			done(engine.Undefined(), err)
			return
		}
		result := Undefined()
		if resp.Value != nil {
			result = *resp.Value
		}
		done(engine.Undefined(), engine.Later(func(in *engine.Interpreter) (engine.Value, error) {
			return fromWire(in, result), nil
		}))
	}
	if _, ok := c.transport.(inline); ok {
		trip()
		return
	}
	go trip()
}

// guestPath reads a path argument: an array of strings and non-negative
// integers.
func guestPath(in *engine.Interpreter, v engine.Value) (Path, error) {
	if !v.IsObject() || v.AsObject().Class() != "Array" {
		return nil, in.Errorf(engine.TypeError, "bridge path must be an array")
	}
	elems := in.ArrayValues(v.AsObject())
	p := make(Path, len(elems))
	for i, e := range elems {
		switch e.Kind() {
		case engine.KindString:
			p[i] = Key(e.AsString())
		case engine.KindNumber:
			n := e.AsNumber()
			if n < 0 || n != math.Trunc(n) || math.IsInf(n, 0) {
				return nil, in.Errorf(engine.TypeError, "bridge path index %v is not a valid index", n)
			}
			p[i] = Index(int(n))
		default:
			return nil, in.Errorf(engine.TypeError, "bridge path segment must be a string or number, got %s", e.TypeOf())
		}
	}
	return p, nil
}

// toWire marshals a guest value. Stubs travel as references, plain guest
// data is copied, guest functions cannot cross.
func toWire(in *engine.Interpreter, v engine.Value) (Value, error) {
	if v.IsUndefined() {
		return Undefined(), nil
	}
	if !v.IsObject() {
		return Primitive(v.Export()), nil
	}
	o := v.AsObject()
	if h, ok := o.Internal().(*handle); ok {
		return Reference(h.path, nil, v.IsFunction()), nil
	}
	if v.IsFunction() {
		return Value{}, in.Errorf(engine.TypeError, "guest functions cannot be passed to the host")
	}
	return Primitive(v.Export()), nil
}

// fromWire builds the descriptor the guest prelude materializes:
// {type, value} for primitives and {type, path, keys} for references.
func fromWire(in *engine.Interpreter, v Value) engine.Value {
	d := in.NewObject()
	d.Set("type", engine.String(string(v.Type)))
	if !v.IsReference() {
		if v.Defined {
			d.Set("value", in.FromGo(v.Data))
		} else {
			d.Set("value", engine.Undefined())
		}
		return engine.ObjectValue(d)
	}
	segs := make([]engine.Value, len(v.Path))
	for i, s := range v.Path {
		if s.IsIndex() {
			segs[i] = engine.Int(s.Int())
		} else {
			segs[i] = engine.String(s.String())
		}
	}
	keys := make([]engine.Value, len(v.Keys))
	for i, k := range v.Keys {
		keys[i] = engine.String(k)
	}
	d.Set("path", engine.ObjectValue(in.NewArray(segs)))
	d.Set("keys", engine.ObjectValue(in.NewArray(keys)))
	return engine.ObjectValue(d)
}

// PathOf returns the host path a guest stub stands for.
func PathOf(v engine.Value) (Path, bool) {
	if !v.IsObject() {
		return nil, false
	}
	h, ok := v.AsObject().Internal().(*handle)
	if !ok {
		return nil, false
	}
	return h.path, true
}
