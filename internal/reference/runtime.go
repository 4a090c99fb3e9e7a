package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrInterrupted is returned when a program is stopped by timeout or
// cancellation.
var ErrInterrupted = errors.New("reference execution interrupted")

// Runtime wraps a goja VM with the host-reaching globals removed
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console []LogEntry
}

// New creates a reference runtime
func New(config Config) (*Runtime, error) {
	r := &Runtime{config: config}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Execute runs a script and exports its completion value
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, errors.New("reference runtime closed")
	}

	start := time.Now()
	r.console = nil

	timeout := r.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// Interrupt the VM from outside; goja polls the flag between instructions
	stop := make(chan struct{})
	defer close(stop)
	vm := r.vm
	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-stop:
		}
	}()

	val, err := vm.RunString(script)
	result := &Result{
		Duration: time.Since(start),
		Console:  append([]LogEntry(nil), r.console...),
	}
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			vm.ClearInterrupt()
			return result, fmt.Errorf("%w: %v", ErrInterrupted, interrupted.Value())
		}
		return result, err
	}

	if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
		result.Value = val.Export()
	}
	return result, nil
}

// reset builds a fresh VM and installs globals
func (r *Runtime) reset() error {
	vm := goja.New()
	if r.config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}

	for _, name := range []string{"require", "process", "module", "exports", "setTimeout", "setInterval"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("remove global %s: %w", name, err)
		}
	}

	if r.config.EnableConsole {
		console := vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error", "debug"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := vm.Set("console", console); err != nil {
			return err
		}
	}

	r.vm = vm
	r.console = nil
	return nil
}

// makeConsoleFunc creates a console function recording into the buffer
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
		})
		return goja.Undefined()
	}
}

// Reset discards all global state
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reset()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}
