package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/sandbox/internal/loader"
	"github.com/GriffinCanCode/sandbox/internal/runner"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
)

var (
	// ErrHostAttached is returned when a second remote host connects.
	ErrHostAttached = errors.New("remote host already attached")
	// ErrNoRemote is returned when attaching a host to a session that has
	// no remote links.
	ErrNoRemote = errors.New("session has no remote links")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Remote describes a link served by the client's own host.
type Remote struct {
	Keys     []string `json:"keys"`
	Callable bool     `json:"callable,omitempty"`
}

// Result is the outcome of one session operation.
type Result struct {
	Outcome string                `json:"outcome"`
	Value   any                   `json:"value,omitempty"`
	Error   string                `json:"error,omitempty"`
	Console []engine.ConsoleEntry `json:"console,omitempty"`
	Steps   uint64                `json:"steps"`
}

// Info is the listing form of a session.
type Info struct {
	ID        id.SessionID `json:"id"`
	Name      string       `json:"name,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Ops       int          `json:"ops"`
	Remote    []string     `json:"remote,omitempty"`
	Attached  bool         `json:"attached"`
	// Circuit is the state of the remote host's breaker, when attached.
	Circuit string `json:"circuit,omitempty"`
}

// Session is one live sandbox.
type Session struct {
	ID        id.SessionID
	Name      string
	CreatedAt time.Time

	program *loader.Program
	mux     *bridge.Mux
	codec   bridge.Codec
	remote  []string
	timeout time.Duration
	circuit resilience.Settings
	log     *zap.Logger
	onOp    func(outcome string, d time.Duration, steps uint64)

	mu       sync.Mutex
	host     *bridge.WebSocket
	guard    *resilience.Transport
	ops      int
	appended int
	seen     int
	closed   bool
}

// Run runs the payload, or whatever top-level code is pending.
func (s *Session) Run(ctx context.Context) Result {
	return s.do(ctx, func(ctx context.Context) error {
		_, err := s.program.RunContext(ctx)
		return err
	})
}

// Append adds top-level code and runs it.
func (s *Session) Append(ctx context.Context, code string) Result {
	return s.do(ctx, func(ctx context.Context) error {
		s.appended++
		if err := s.program.Append(fmt.Sprintf("<append %d>", s.appended), code); err != nil {
			return err
		}
		_, err := s.program.RunContext(ctx)
		return err
	})
}

// Invoke calls an exported guest function.
func (s *Session) Invoke(ctx context.Context, export string, args []any) Result {
	return s.do(ctx, func(ctx context.Context) error {
		fn, err := s.program.Export(export)
		if err != nil {
			return err
		}
		return fn(ctx, args...)
	})
}

func (s *Session) do(ctx context.Context, op func(context.Context) error) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{Outcome: runner.Classify(ErrClosed), Error: ErrClosed.Error()}
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	before := s.program.Interpreter().Steps()
	err := op(ctx)
	s.ops++

	res := Result{
		Outcome: runner.Classify(err),
		Steps:   s.program.Interpreter().Steps() - before,
	}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Value = s.program.Interpreter().Value().Export()
	}
	console := s.program.Console()
	if s.seen < len(console) {
		res.Console = console[s.seen:]
		s.seen = len(console)
	}
	if s.onOp != nil {
		s.onOp(res.Outcome, time.Since(start), res.Steps)
	}
	s.log.Debug("session op", zap.String("outcome", res.Outcome), zap.Uint64("steps", res.Steps))
	return res
}

// AttachHost serves the session's remote links from the peer on conn. The
// session takes ownership of conn.
func (s *Session) AttachHost(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrClosed
	case len(s.remote) == 0:
		return ErrNoRemote
	case s.host != nil:
		return ErrHostAttached
	}
	settings := s.circuit
	settings.OnStateChange = func(name string, from, to resilience.State) {
		s.log.Warn("remote host circuit changed", zap.String("from", from.String()), zap.String("to", to.String()))
	}
	s.host = bridge.NewWebSocket(conn, s.codec)
	s.guard = resilience.Guard(s.host, resilience.New(s.ID.String(), settings))
	for _, root := range s.remote {
		s.mux.Route(root, s.guard)
	}
	s.log.Info("remote host attached", zap.Strings("roots", s.remote))
	return nil
}

// Journal returns the bridge messages the session has sent.
func (s *Session) Journal() []runner.JournalEntry {
	return runner.Journal(s.program.Journal())
}

// Info returns the listing form of s.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		Ops:       s.ops,
		Remote:    s.remote,
		Attached:  s.host != nil,
	}
	if s.guard != nil {
		info.Circuit = s.guard.Breaker().State().String()
	}
	return info
}

// Close tears the session down and drops its remote host.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.host != nil {
		s.host.Close()
	}
	s.program.Close()
}
