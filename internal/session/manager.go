package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/sandbox/internal/loader"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/runner"
	"github.com/GriffinCanCode/sandbox/internal/service"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
)

// ErrTooManySessions is returned when the session limit is reached.
var ErrTooManySessions = errors.New("too many sessions")

// Config holds session defaults.
type Config struct {
	Options loader.Options
	// Timeout bounds each operation.
	Timeout time.Duration
	// Codec encodes bridge traffic to remote hosts, and to the local host
	// when Loopback is set.
	Codec    bridge.Codec
	Loopback bool
	// MaxSessions caps live sessions; zero means no cap.
	MaxSessions int
	// Circuit guards each attached remote host.
	Circuit resilience.Settings
}

// DefaultConfig returns the defaults used by tests.
func DefaultConfig() Config {
	return Config{
		Options:     loader.DefaultOptions(),
		Timeout:     5 * time.Second,
		Codec:       bridge.JSONCodec{},
		MaxSessions: 64,
		Circuit:     resilience.DefaultSettings(),
	}
}

// Spec describes a session to create: a manifest plus the links the client
// serves itself.
type Spec struct {
	manifest.Manifest
	Remote map[string]Remote `json:"remote,omitempty"`
}

// Manager tracks live sessions.
type Manager struct {
	cfg      Config
	registry *service.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger

	sessions sync.Map
	count    atomic.Int64
}

// NewManager creates a session manager.
func NewManager(cfg Config, registry *service.Registry, logger *logging.Logger) *Manager {
	if registry == nil {
		registry = service.NewRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.Codec == nil {
		cfg.Codec = bridge.JSONCodec{}
	}
	return &Manager{cfg: cfg, registry: registry, logger: logger}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create builds a session. The payload is parsed and linked but not run.
func (m *Manager) Create(spec *Spec) (*Session, error) {
	if m.cfg.MaxSessions > 0 && m.count.Load() >= int64(m.cfg.MaxSessions) {
		return nil, ErrTooManySessions
	}
	code, err := spec.Code()
	if err != nil {
		return nil, err
	}
	names, values, err := runner.Bind(m.registry, m.metrics, &spec.Manifest)
	if err != nil {
		return nil, err
	}

	sid := id.NewSessionID()
	log := m.logger.Session(string(sid))

	host := bridge.NewHost(bridge.NewStore(), bridge.WithHostLogger(log))
	var local bridge.Transport = bridge.Direct{Host: host}
	if m.cfg.Loopback {
		local = bridge.Loopback{Host: host, Codec: m.cfg.Codec}
	}
	mux := bridge.NewMux(local)

	opts := m.cfg.Options
	opts.Filename = spec.Filename()
	opts.Logger = log
	lopts := []loader.Option{loader.WithOptions(opts), loader.WithHost(host), loader.WithTransport(mux)}
	if m.metrics != nil {
		lopts = append(lopts, loader.WithObserver(m.metrics.BridgeObserver()))
	}
	for i, name := range names {
		lopts = append(lopts, loader.WithValue(name, values[i]))
	}

	remote := make([]string, 0, len(spec.Remote))
	for name := range spec.Remote {
		remote = append(remote, name)
	}
	sort.Strings(remote)
	for _, name := range remote {
		for _, taken := range names {
			if taken == name {
				return nil, fmt.Errorf("remote link %q collides with a local value", name)
			}
		}
		r := spec.Remote[name]
		lopts = append(lopts, loader.WithLink(name, bridge.Reference(bridge.Path{bridge.Key(name)}, r.Keys, r.Callable)))
	}

	p, err := loader.New(code, lopts...)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        sid,
		Name:      spec.Name,
		CreatedAt: time.Now(),
		program:   p,
		mux:       mux,
		codec:     m.cfg.Codec,
		remote:    remote,
		timeout:   m.cfg.Timeout,
		circuit:   m.cfg.Circuit,
		log:       log,
	}
	if m.metrics != nil {
		s.onOp = func(outcome string, d time.Duration, steps uint64) {
			m.metrics.RecordRun(outcome, d, steps)
			m.metrics.RecordPatterns(p.Interpreter().PatternStats())
		}
	}
	m.sessions.Store(sid, s)
	m.setActive(m.count.Add(1))
	log.Info("session created", zap.String("name", spec.Name), zap.Strings("remote", remote))
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(sid id.SessionID) (*Session, bool) {
	v, ok := m.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Close closes and forgets a session.
func (m *Manager) Close(sid id.SessionID) bool {
	v, ok := m.sessions.LoadAndDelete(sid)
	if !ok {
		return false
	}
	v.(*Session).Close()
	m.setActive(m.count.Add(-1))
	return true
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.sessions.Range(func(key, _ any) bool {
		m.Close(key.(id.SessionID))
		return true
	})
}

// Reap closes sessions created before cutoff and returns how many it closed.
func (m *Manager) Reap(cutoff time.Time) int {
	n := 0
	m.sessions.Range(func(key, v any) bool {
		if v.(*Session).CreatedAt.Before(cutoff) && m.Close(key.(id.SessionID)) {
			n++
		}
		return true
	})
	return n
}

// ReapEvery closes sessions older than ttl every interval until ctx ends.
func (m *Manager) ReapEvery(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Reap(now.Add(-ttl)); n > 0 {
				m.logger.Info("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []Info {
	var out []Info
	m.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats returns manager statistics.
func (m *Manager) Stats() map[string]any {
	return map[string]any{
		"active":       m.count.Load(),
		"max_sessions": m.cfg.MaxSessions,
	}
}

func (m *Manager) setActive(n int64) {
	if m.metrics != nil {
		m.metrics.SetSessionsActive(int(n))
	}
}
