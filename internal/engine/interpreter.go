package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

// Infinite disables the polyfill budget: polyfill code runs until user code
// is reached.
const Infinite time.Duration = -1

type options struct {
	filename       string
	polyfillBudget time.Duration
	patterns       pattern.Config
	logger         *zap.Logger
	init           func(in *Interpreter, global *Object) error
	seed           uint64
	polyfill       bool
	preludes       []prelude
}

type prelude struct {
	name, src string
	polyfill  bool
}

// Option configures an Interpreter.
type Option func(*options)

// WithFilename names the initial source in positions and traces.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithPolyfillBudget sets how long polyfill code may run per Step. Zero runs
// one micro-step; Infinite runs until user code is reached.
func WithPolyfillBudget(d time.Duration) Option {
	return func(o *options) { o.polyfillBudget = d }
}

// WithPatterns selects how regular expressions are evaluated.
func WithPatterns(cfg pattern.Config) Option {
	return func(o *options) { o.patterns = cfg }
}

// WithLogger sets the logger receiving console output and engine events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInit registers a hook run after the built-ins exist and before any
// guest code, typically to install natives on the global object.
func WithInit(fn func(in *Interpreter, global *Object) error) Option {
	return func(o *options) { o.init = fn }
}

// WithSeed seeds Math.random.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithPrelude adds source that runs before the program, after the built-in
// polyfills. Preludes run in the order given and share the global scope.
func WithPrelude(name, src string, polyfill bool) Option {
	return func(o *options) {
		o.preludes = append(o.preludes, prelude{name: name, src: src, polyfill: polyfill})
	}
}

// AsPolyfill marks the initial source as polyfill code.
func AsPolyfill() Option {
	return func(o *options) { o.polyfill = true }
}

type protos struct {
	object   *Object
	function *Object
	array    *Object
	string   *Object
	number   *Object
	boolean  *Object
	regexp   *Object
}

type span struct {
	lo, hi file.Idx
}

// Interpreter evaluates one guest program a step at a time. It is not safe
// for concurrent use; only async callbacks may be called from other
// goroutines.
type Interpreter struct {
	stack  []*State
	global *Scope
	ec     EvaluationContext

	protos      protos
	errorProtos map[ErrorType]*Object
	ctors       map[string]*Object

	value     Value
	fileSet   *file.FileSet
	sources   []*file.File
	polyfills []span
	decls     map[ast.Node]*declarations

	opts     options
	log      *zap.Logger
	patterns *pattern.Engine
	rand     *rand.Rand
	console  []ConsoleEntry

	steps  uint64
	err    error
	closed bool

	onCompletion func(Completion)
}

// New parses src and prepares it for stepping.
func New(src string, opts ...Option) (*Interpreter, error) {
	in := newInterpreter(opts)
	prog, err := in.parse(in.opts.filename, src, in.opts.polyfill)
	if err != nil {
		return nil, err
	}
	return in, in.start(prog)
}

// NewFromAST prepares an already parsed program for stepping.
func NewFromAST(prog *ast.Program, opts ...Option) (*Interpreter, error) {
	in := newInterpreter(opts)
	if prog.File != nil {
		f := prog.File
		// Keep later parses out of this program's index range.
		in.fileSet.AddFile("<reserved>", strings.Repeat(" ", f.Base()+len(f.Source())))
		in.sources = append(in.sources, f)
		if in.opts.polyfill {
			in.polyfills = append(in.polyfills, fileSpan(f))
		}
	}
	return in, in.start(prog)
}

func newInterpreter(opts []Option) *Interpreter {
	o := options{
		filename:       "main.js",
		polyfillBudget: time.Second,
		patterns:       pattern.DefaultConfig(),
		seed:           1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	in := &Interpreter{
		opts:        o,
		log:         o.logger,
		fileSet:     &file.FileSet{},
		decls:       make(map[ast.Node]*declarations),
		errorProtos: make(map[ErrorType]*Object),
		ctors:       make(map[string]*Object),
		patterns:    pattern.New(o.patterns),
		rand:        rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)),
	}
	in.ec.wake = make(chan asyncResult, 1)
	return in
}

func (in *Interpreter) start(prog *ast.Program) error {
	in.initGlobals()
	if in.opts.init != nil {
		if err := in.opts.init(in, in.global.Object); err != nil {
			return fmt.Errorf("init hook: %w", err)
		}
	}
	in.global.Strict = hasUseStrict(prog.Body)
	pre, err := in.loadPolyfills()
	if err != nil {
		return err
	}
	st := &State{Node: prog, Scope: in.global}
	st.stmts = append(st.stmts, pre...)
	for _, p := range in.opts.preludes {
		code, err := in.parse(p.name, p.src, p.polyfill)
		if err != nil {
			return err
		}
		if err := in.hoist(in.global, code, code.Body); err != nil {
			return err
		}
		st.stmts = append(st.stmts, code.Body...)
	}
	st.stmts = append(st.stmts, prog.Body...)
	if err := in.hoist(in.global, prog, prog.Body); err != nil {
		return err
	}
	in.push(st)
	return nil
}

func (in *Interpreter) parse(name, src string, polyfill bool) (*ast.Program, error) {
	prog, err := parser.ParseFile(in.fileSet, name, src, parser.IgnoreRegExpErrors, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, &ParseError{Filename: name, Err: err}
	}
	in.sources = append(in.sources, prog.File)
	if polyfill {
		in.polyfills = append(in.polyfills, fileSpan(prog.File))
	}
	return prog, nil
}

func fileSpan(f *file.File) span {
	return span{lo: file.Idx(f.Base()), hi: file.Idx(f.Base() + len(f.Source()))}
}

// Append parses src and adds its statements to the end of the running
// global program.
func (in *Interpreter) Append(name, src string) error {
	return in.appendSource(name, src, false)
}

// AppendPolyfill is Append for code that runs under the polyfill budget.
func (in *Interpreter) AppendPolyfill(name, src string) error {
	return in.appendSource(name, src, true)
}

func (in *Interpreter) appendSource(name, src string, polyfill bool) error {
	if in.closed {
		return ErrClosed
	}
	if in.err != nil {
		return in.err
	}
	prog, err := in.parse(name, src, polyfill)
	if err != nil {
		return err
	}
	if len(in.stack) == 0 {
		return faultf("no program to append to")
	}
	root := in.stack[0]
	if err := in.hoist(in.global, prog, prog.Body); err != nil {
		return err
	}
	root.stmts = append(root.stmts, prog.Body...)
	root.done = false
	return nil
}

// Step advances evaluation. It reports false once the program has no more
// work, or when it failed. Polyfill nodes may run several micro-steps under
// the configured budget; user code advances exactly one.
func (in *Interpreter) Step() (bool, error) {
	if in.closed {
		return false, ErrClosed
	}
	if in.err != nil {
		return false, in.err
	}
	var deadline time.Time
	for {
		if in.ec.paused {
			return true, nil
		}
		st := in.top()
		if st == nil || (len(in.stack) == 1 && st.done) {
			return false, nil
		}
		next, err := in.dispatch(st)
		if err != nil {
			in.fail(err)
			return false, in.err
		}
		if next != nil {
			in.push(next)
		}
		if in.ec.getterPending || in.ec.setterPending {
			in.fail(faultf("accessor call left pending by %T", st.Node))
			return false, in.err
		}
		in.steps++
		if !in.isPolyfill(st.Node) {
			return true, nil
		}
		switch budget := in.opts.polyfillBudget; {
		case budget == 0:
			return true, nil
		case budget > 0:
			if deadline.IsZero() {
				deadline = time.Now().Add(budget)
			} else if time.Now().After(deadline) {
				return true, nil
			}
		}
	}
}

// Run steps until the program finishes or suspends on an async call.
func (in *Interpreter) Run() (paused bool, err error) {
	for {
		more, err := in.Step()
		if err != nil {
			return false, err
		}
		if in.ec.paused {
			return true, nil
		}
		if !more {
			return false, nil
		}
	}
}

// Paused reports whether an async call is outstanding.
func (in *Interpreter) Paused() bool { return in.ec.paused }

// Await blocks until the outstanding async call completes and applies its
// result.
func (in *Interpreter) Await(ctx context.Context) error {
	if !in.ec.paused {
		return ErrNotSuspended
	}
	select {
	case r := <-in.ec.wake:
		return in.apply(r)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume completes the outstanding async call with v.
func (in *Interpreter) Resume(v Value) error {
	return in.resume(asyncResult{value: v})
}

// ResumeThrow completes the outstanding async call by throwing v into the
// guest.
func (in *Interpreter) ResumeThrow(v Value) error {
	return in.resume(asyncResult{err: &ThrowError{Value: v}})
}

func (in *Interpreter) resume(r asyncResult) error {
	if !in.ec.paused {
		return ErrNotSuspended
	}
	in.ec.wake = nil
	return in.apply(r)
}

func (in *Interpreter) apply(r asyncResult) error {
	in.ec.paused = false
	v, err := r.value, r.err
	if r.finish != nil && err == nil {
		v, err = r.finish(in)
	}
	if err != nil {
		if thrown := in.raise(err); thrown != nil {
			in.fail(thrown)
			return in.err
		}
		return nil
	}
	if st := in.top(); st != nil {
		st.Value = v
	}
	return nil
}

// Value returns the value of the last evaluated expression statement.
func (in *Interpreter) Value() Value { return in.value }

// Steps returns the number of micro-steps executed.
func (in *Interpreter) Steps() uint64 { return in.steps }

// Err returns the fatal error that stopped the interpreter, if any.
func (in *Interpreter) Err() error { return in.err }

// Global returns the global object.
func (in *Interpreter) Global() *Object { return in.global.Object }

// SetGlobal binds name on the global object as a non-enumerable property.
func (in *Interpreter) SetGlobal(name string, v Value) {
	in.global.Object.define(name, v, hidden)
}

// OnCompletion registers a hook observing every abrupt completion.
func (in *Interpreter) OnCompletion(fn func(Completion)) { in.onCompletion = fn }

// Logger returns the interpreter's logger.
func (in *Interpreter) Logger() *zap.Logger { return in.log }

// PatternStats reports regular expression activity so far.
func (in *Interpreter) PatternStats() pattern.Stats { return in.patterns.Stats() }

// Close drops the evaluation state. Pending finally blocks do not run and an
// outstanding async callback is ignored.
func (in *Interpreter) Close() {
	in.closed = true
	in.stack = nil
	in.ec = EvaluationContext{wake: make(chan asyncResult, 1)}
	in.decls = nil
}

func (in *Interpreter) fail(err error) {
	in.err = err
	in.ec.paused = false
	in.log.Debug("interpreter stopped", zap.Error(err))
}

func (in *Interpreter) push(st *State) { in.stack = append(in.stack, st) }

func (in *Interpreter) pop() *State {
	st := in.stack[len(in.stack)-1]
	in.stack[len(in.stack)-1] = nil
	in.stack = in.stack[:len(in.stack)-1]
	return st
}

func (in *Interpreter) top() *State {
	if len(in.stack) == 0 {
		return nil
	}
	return in.stack[len(in.stack)-1]
}

// ascend pops the current state and hands v to its parent.
func (in *Interpreter) ascend(v Value) {
	in.pop()
	if p := in.top(); p != nil {
		p.Value = v
	}
}

func (in *Interpreter) ascendRef(r reference) {
	in.pop()
	if p := in.top(); p != nil {
		p.ref = r
	}
}

func (in *Interpreter) strict() bool {
	if st := in.top(); st != nil && st.Scope != nil {
		return st.Scope.Strict
	}
	return false
}

func (in *Interpreter) isPolyfill(node ast.Node) bool {
	switch node.(type) {
	case *ast.Program, *syntheticCall:
		return false
	}
	idx := node.Idx0()
	for _, s := range in.polyfills {
		if idx >= s.lo && idx <= s.hi {
			return true
		}
	}
	return false
}

func (in *Interpreter) position(node ast.Node) string {
	if node == nil {
		return ""
	}
	switch node.(type) {
	case *ast.Program, *syntheticCall:
		return ""
	}
	idx := node.Idx0()
	for _, f := range in.sources {
		if int(idx) >= f.Base() && int(idx) <= f.Base()+len(f.Source()) {
			return f.Position(int(idx) - f.Base()).String()
		}
	}
	return ""
}

// trace walks the stack from the innermost frame outwards.
func (in *Interpreter) trace() []Frame {
	var frames []Frame
	var at ast.Node
	for i := len(in.stack) - 1; i >= 0; i-- {
		st := in.stack[i]
		if at == nil && in.position(st.Node) != "" {
			at = st.Node
		}
		switch st.Node.(type) {
		case *ast.CallExpression, *ast.NewExpression, *syntheticCall:
			if st.phase < phaseReturn {
				continue
			}
			name := "<anonymous>"
			if st.fn.kind == KindObject && st.fn.o.fn != nil && st.fn.o.fn.name != "" {
				name = st.fn.o.fn.name
			}
			if pos := in.position(at); pos != "" {
				frames = append(frames, Frame{Function: name, Position: pos})
			}
			at = nil
			if in.position(st.Node) != "" {
				at = st.Node
			}
		}
	}
	if pos := in.position(at); pos != "" {
		frames = append(frames, Frame{Position: pos})
	}
	return frames
}
