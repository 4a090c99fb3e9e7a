package loader

import (
	"context"
	"fmt"
	"strings"
)

// Callable invokes an exported guest function with host arguments. Arguments
// are linked like any other host value, so maps and functions cross as
// references. The guest function's return value becomes the program's
// completion value, readable through Interpreter().Value().
type Callable func(ctx context.Context, args ...any) error

// Compiled is a program whose top level has run, with some of its global
// functions exposed to the host.
type Compiled struct {
	*Program
	Exports map[string]Callable
}

// Compile links names to values, runs source to completion and exposes the
// exported global functions. Exported calls share the program and must not
// run concurrently.
func Compile(ctx context.Context, names []string, values []any, source string, exported []string, opts ...Option) (*Compiled, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("compile: %d names for %d values", len(names), len(values))
	}
	for i, name := range names {
		opts = append(opts, WithValue(name, values[i]))
	}
	p, err := New(source, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := p.RunContext(ctx); err != nil {
		p.Close()
		return nil, err
	}

	c := &Compiled{Program: p, Exports: make(map[string]Callable, len(exported))}
	for _, name := range exported {
		fn, err := p.Export(name)
		if err != nil {
			p.Close()
			return nil, err
		}
		c.Exports[name] = fn
	}
	return c, nil
}

// Export returns a Callable for the global function name. The program's top
// level should have run first.
func (p *Program) Export(name string) (Callable, error) {
	if !isIdentifier(name) {
		return nil, fmt.Errorf("export %q is not an identifier", name)
	}
	if !p.in.Global().Get(name).IsFunction() {
		return nil, fmt.Errorf("export %s is not a function", name)
	}
	return func(ctx context.Context, args ...any) error {
		p.mu.Lock()
		defer p.mu.Unlock()

		exprs := make([]string, len(args))
		for i, a := range args {
			id := fmt.Sprintf("_arg%d", p.nextID)
			p.nextID++
			v, err := p.host.Link(id, a)
			if err != nil {
				return fmt.Errorf("%s argument %d: %w", name, i, err)
			}
			if exprs[i], err = expression(v); err != nil {
				return fmt.Errorf("%s argument %d: %w", name, i, err)
			}
		}
		src := fmt.Sprintf("%s(%s);", name, strings.Join(exprs, ", "))
		if err := p.in.Append("<call "+name+">", src); err != nil {
			return err
		}
		_, err := p.RunContext(ctx)
		return err
	}, nil
}
