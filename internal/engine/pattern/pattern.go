// Package pattern evaluates guest regular expressions with ECMAScript
// semantics. Matching can be refused, run inline, or run on a worker
// goroutine under a timeout so a catastrophic pattern cannot stall the
// interpreter.
package pattern

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlclark/regexp2"
)

// Mode selects how matches are evaluated.
type Mode int

const (
	// Disallowed rejects every regular expression operation.
	Disallowed Mode = iota
	// Direct matches on the calling goroutine without a timeout.
	Direct
	// Worker matches on a separate goroutine bounded by Config.Timeout.
	Worker
)

func (m Mode) String() string {
	switch m {
	case Disallowed:
		return "disallowed"
	case Direct:
		return "direct"
	case Worker:
		return "worker"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "disallowed", "off", "0":
		return Disallowed, nil
	case "direct", "native", "1":
		return Direct, nil
	case "worker", "sandboxed", "2":
		return Worker, nil
	}
	return Disallowed, fmt.Errorf("unknown pattern mode %q", s)
}

var (
	// ErrDisallowed is returned when regular expressions are turned off.
	ErrDisallowed = errors.New("regular expressions are disabled")
	// ErrTimeout is returned when a match exceeds the configured timeout.
	ErrTimeout = errors.New("regular expression timed out")
)

// Config controls the pattern engine.
type Config struct {
	Mode    Mode
	Timeout time.Duration
}

// DefaultConfig matches on a worker with a one second timeout.
func DefaultConfig() Config {
	return Config{Mode: Worker, Timeout: time.Second}
}

// Stats counts engine activity.
type Stats struct {
	Compiled uint64
	Matches  uint64
	Timeouts uint64
}

// Engine compiles and runs patterns under one Config.
type Engine struct {
	cfg Config

	compiled atomic.Uint64
	matches  atomic.Uint64
	timeouts atomic.Uint64
}

// New creates an engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Mode returns the configured evaluation mode.
func (e *Engine) Mode() Mode { return e.cfg.Mode }

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Compiled: e.compiled.Load(),
		Matches:  e.matches.Load(),
		Timeouts: e.timeouts.Load(),
	}
}

// Pattern is a compiled regular expression and its flags.
type Pattern struct {
	Source string
	Flags  string

	Global     bool
	IgnoreCase bool
	Multiline  bool
	DotAll     bool
	Unicode    bool
	Sticky     bool

	re *regexp2.Regexp
}

// GroupNames returns the capture group names, indexed by group number.
func (p *Pattern) GroupNames() []string {
	return p.re.GetGroupNames()
}

// Compile parses source with the given flags. Compilation is allowed even in
// Disallowed mode so literals can exist; matching is what gets refused.
func (e *Engine) Compile(source, flags string) (*Pattern, error) {
	p := &Pattern{Source: source, Flags: flags}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, f := range flags {
		var seen *bool
		switch f {
		case 'g':
			seen = &p.Global
		case 'i':
			seen = &p.IgnoreCase
			opts |= regexp2.IgnoreCase
		case 'm':
			seen = &p.Multiline
			opts |= regexp2.Multiline
		case 's':
			seen = &p.DotAll
			opts |= regexp2.Singleline
		case 'u':
			seen = &p.Unicode
			opts |= regexp2.Unicode
		case 'y':
			seen = &p.Sticky
		default:
			return nil, fmt.Errorf("invalid flags supplied to RegExp constructor '%s'", flags)
		}
		if *seen {
			return nil, fmt.Errorf("invalid flags supplied to RegExp constructor '%s'", flags)
		}
		*seen = true
	}
	if p.Source == "" {
		p.Source = "(?:)"
	}
	re, err := regexp2.Compile(source, opts)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: /%s/%s: %w", source, flags, err)
	}
	if e.cfg.Mode == Worker && e.cfg.Timeout > 0 {
		re.MatchTimeout = e.cfg.Timeout
	}
	p.re = re
	e.compiled.Add(1)
	return p, nil
}

// Group is one capture group of a match. Text is empty and Matched false when
// the group did not participate.
type Group struct {
	Name    string
	Text    string
	Matched bool
}

// Match is one match. Index counts runes from the start of the subject.
type Match struct {
	Index  int
	Groups []Group
}

// End returns the rune index just past the match.
func (m Match) End() int {
	return m.Index + len([]rune(m.Groups[0].Text))
}

// Request describes one search.
type Request struct {
	Pattern *Pattern
	Subject string
	// Start is the rune index the search begins at.
	Start int
	// All collects every match after Start instead of the first.
	All bool
}

// Find runs req on the calling goroutine, bounded by ctx and, in Worker mode,
// the configured timeout. It returns no matches and no error when nothing
// matches.
func (e *Engine) Find(ctx context.Context, req Request) ([]Match, error) {
	if e.cfg.Mode == Disallowed {
		return nil, ErrDisallowed
	}
	if e.cfg.Mode == Worker && e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return e.record(e.find(ctx, req))
}

// record updates the counters for one finished search.
func (e *Engine) record(out []Match, err error) ([]Match, error) {
	if err != nil {
		if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			e.timeouts.Add(1)
			return nil, ErrTimeout
		}
		return nil, err
	}
	e.matches.Add(1)
	return out, nil
}

// FindAsync runs req on a worker goroutine and reports through done exactly
// once. In Direct mode the search runs inline before FindAsync returns. In
// Worker mode done gets ErrTimeout when the timeout passes, even if the
// matcher has not stopped yet; its late result is dropped.
func (e *Engine) FindAsync(req Request, done func([]Match, error)) {
	switch e.cfg.Mode {
	case Disallowed:
		done(nil, ErrDisallowed)
	case Direct:
		done(e.Find(context.Background(), req))
	default:
		e.findWorker(req, done)
	}
}

func (e *Engine) findWorker(req Request, done func([]Match, error)) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if e.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
	}
	var once sync.Once
	report := func(out []Match, err error) {
		once.Do(func() {
			cancel()
			done(e.record(out, err))
		})
	}

	var timer *time.Timer
	if e.cfg.Timeout > 0 {
		timer = time.AfterFunc(e.cfg.Timeout, func() { report(nil, ErrTimeout) })
	}
	go func() {
		out, err := e.find(ctx, req)
		if timer != nil {
			timer.Stop()
		}
		report(out, err)
	}()
}

func (e *Engine) find(ctx context.Context, req Request) ([]Match, error) {
	p := req.Pattern
	re := p.re
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runes := []rune(req.Subject)
	if req.Start > len(runes) {
		return nil, nil
	}
	m, err := re.FindRunesMatchStartingAt(runes, req.Start)
	var out []Match
	for {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if m == nil {
			return out, nil
		}
		if p.Sticky && m.Index != req.Start {
			return out, nil
		}
		out = append(out, convert(m))
		if !req.All {
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err = re.FindNextMatch(m)
	}
}

func convert(m *regexp2.Match) Match {
	groups := m.Groups()
	out := Match{Index: m.Index, Groups: make([]Group, len(groups))}
	for i, g := range groups {
		out.Groups[i] = Group{Name: g.Name, Matched: len(g.Captures) > 0}
		if out.Groups[i].Matched {
			out.Groups[i].Text = g.String()
		}
	}
	return out
}
