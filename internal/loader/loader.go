package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja/ast"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine"
	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

var (
	// ErrStepLimit is returned when a run exceeds Options.MaxSteps.
	ErrStepLimit = errors.New("step limit exceeded")
)

// Options are the tunables of a program.
type Options struct {
	Filename       string
	PolyfillBudget time.Duration
	Patterns       pattern.Config
	Seed           uint64
	// MaxSteps bounds each RunContext call; zero means unbounded.
	MaxSteps uint64
	Logger   *zap.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Filename:       "main.js",
		PolyfillBudget: time.Second,
		Patterns:       pattern.DefaultConfig(),
		Seed:           1,
	}
}

type config struct {
	Options
	host      *bridge.Host
	transport bridge.Transport
	values    []namedValue
	links     []Link
	init      func(in *engine.Interpreter, global *engine.Object) error
	observer  bridge.Observer
}

type namedValue struct {
	name  string
	value any
}

// Option configures a Program.
type Option func(*config)

// WithOptions replaces the tunables.
func WithOptions(o Options) Option {
	return func(c *config) { c.Options = o }
}

// WithHost sets the host that stores linked values. By default every
// program gets its own.
func WithHost(h *bridge.Host) Option {
	return func(c *config) { c.host = h }
}

// WithTransport routes bridge messages through t instead of straight to the
// program's host.
func WithTransport(t bridge.Transport) Option {
	return func(c *config) { c.transport = t }
}

// WithValue links a host value under name. Primitives are bound by copy;
// maps, slices and bridge.Func values are bound as references.
func WithValue(name string, v any) Option {
	return func(c *config) { c.values = append(c.values, namedValue{name: name, value: v}) }
}

// WithLink binds name to a wire value advertised by some host, typically a
// remote one reached through WithTransport.
func WithLink(name string, v bridge.Value) Option {
	return func(c *config) { c.links = append(c.links, Link{Name: name, Value: v}) }
}

// WithInit registers an extra interpreter init hook, run after the bridge
// natives are installed.
func WithInit(fn func(in *engine.Interpreter, global *engine.Object) error) Option {
	return func(c *config) { c.init = fn }
}

// WithObserver reports every bridge round trip, for metrics.
func WithObserver(o bridge.Observer) Option {
	return func(c *config) { c.observer = o }
}

// Program is a loaded sandbox: the prelude, the link block and the payload,
// ready to step.
type Program struct {
	in     *engine.Interpreter
	client *bridge.Client
	host   *bridge.Host
	opts   Options
	log    *zap.Logger

	mu     sync.Mutex
	nextID int
}

// New parses source and links the configured values.
func New(source string, opts ...Option) (*Program, error) {
	return build(opts, func(eopts []engine.Option) (*engine.Interpreter, error) {
		return engine.New(source, eopts...)
	})
}

// NewFromAST loads an already parsed payload.
func NewFromAST(prog *ast.Program, opts ...Option) (*Program, error) {
	return build(opts, func(eopts []engine.Option) (*engine.Interpreter, error) {
		return engine.NewFromAST(prog, eopts...)
	})
}

func build(opts []Option, create func([]engine.Option) (*engine.Interpreter, error)) (*Program, error) {
	c := config{Options: DefaultOptions()}
	for _, opt := range opts {
		opt(&c)
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if c.host == nil {
		c.host = bridge.NewHost(bridge.NewStore(), bridge.WithHostLogger(log))
	}
	if c.transport == nil {
		c.transport = bridge.Direct{Host: c.host}
	}

	links := make([]Link, 0, len(c.values)+len(c.links))
	for _, nv := range c.values {
		v, err := c.host.Link(nv.name, nv.value)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", nv.name, err)
		}
		links = append(links, Link{Name: nv.name, Value: v})
	}
	links = append(links, c.links...)
	block, err := linkBlock(links)
	if err != nil {
		return nil, err
	}

	p := &Program{
		client: bridge.NewClient(c.transport, bridge.WithClientLogger(log), bridge.WithClientObserver(c.observer)),
		host:   c.host,
		opts:   c.Options,
		log:    log,
	}
	in, err := create([]engine.Option{
		engine.WithFilename(c.Filename),
		engine.WithPolyfillBudget(c.PolyfillBudget),
		engine.WithPatterns(c.Patterns),
		engine.WithSeed(c.Seed),
		engine.WithLogger(log),
		engine.WithPrelude("<prelude>", preludeSource, true),
		engine.WithPrelude("<links>", block, false),
		engine.WithInit(func(in *engine.Interpreter, global *engine.Object) error {
			if err := p.client.Install(in); err != nil {
				return err
			}
			if c.init != nil {
				return c.init(in, global)
			}
			return nil
		}),
	})
	if err != nil {
		return nil, err
	}
	p.in = in
	return p, nil
}

// Interpreter exposes the underlying interpreter.
func (p *Program) Interpreter() *engine.Interpreter { return p.in }

// Host returns the host holding this program's linked values.
func (p *Program) Host() *bridge.Host { return p.host }

// Journal returns the bridge messages sent so far.
func (p *Program) Journal() []bridge.Message { return p.client.Journal() }

// Console returns the guest console output so far.
func (p *Program) Console() []engine.ConsoleEntry { return p.in.Console() }

// Step advances the program. See engine.Interpreter.Step.
func (p *Program) Step() (bool, error) { return p.in.Step() }

// Run steps until the program finishes or suspends.
func (p *Program) Run() (bool, error) { return p.in.Run() }

// Append adds top-level statements to the running program.
func (p *Program) Append(name, code string) error { return p.in.Append(name, code) }

const ctxCheckEvery = 256

// RunContext drives the program to completion, waiting out bridge round
// trips and other async calls. It stops with ctx's error when ctx ends and
// with ErrStepLimit after Options.MaxSteps steps.
func (p *Program) RunContext(ctx context.Context) (engine.Value, error) {
	p.client.SetContext(ctx)
	defer p.client.SetContext(context.Background())

	start := p.in.Steps()
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return engine.Undefined(), err
			}
		}
		more, err := p.in.Step()
		if err != nil {
			return engine.Undefined(), err
		}
		if p.in.Paused() {
			if err := p.in.Await(ctx); err != nil {
				return engine.Undefined(), err
			}
			continue
		}
		if !more {
			return p.in.Value(), nil
		}
		if p.opts.MaxSteps > 0 && p.in.Steps()-start > p.opts.MaxSteps {
			p.log.Warn("step limit exceeded", zap.Uint64("max_steps", p.opts.MaxSteps))
			return engine.Undefined(), fmt.Errorf("%w: %d", ErrStepLimit, p.opts.MaxSteps)
		}
	}
}

// Close tears the program down. In-flight guest state is dropped without
// running finally blocks.
func (p *Program) Close() { p.in.Close() }
