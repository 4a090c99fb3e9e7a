package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/loader"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/service"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
)

// Config holds the defaults every run starts from.
type Config struct {
	Options loader.Options
	// Timeout bounds a whole run, exported calls included. Zero means no
	// limit beyond the caller's context.
	Timeout time.Duration
	// Codec, when set, sends bridge traffic through a loopback that encodes
	// every message.
	Codec bridge.Codec
	// History is how many reports are kept for Get and List.
	History int
}

// DefaultConfig returns the defaults used by tests and the CLI.
func DefaultConfig() Config {
	return Config{
		Options: loader.DefaultOptions(),
		Timeout: 5 * time.Second,
		History: 100,
	}
}

// Runner runs manifests.
type Runner struct {
	cfg      Config
	registry *service.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger

	reports sync.Map
	mu      sync.Mutex
	order   []id.RunID
}

// New creates a runner. registry may be nil when no services are offered.
func New(cfg Config, registry *service.Registry, logger *logging.Logger) *Runner {
	if registry == nil {
		registry = service.NewRegistry()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{cfg: cfg, registry: registry, logger: logger}
}

// WithMetrics attaches a metrics collector.
func (r *Runner) WithMetrics(m *monitoring.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run executes m to completion. The returned report is also kept for Get.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	code, err := m.Code()
	if err != nil {
		return nil, err
	}
	names, values, err := Bind(r.registry, r.metrics, m)
	if err != nil {
		return nil, err
	}

	runID := id.NewRunID()
	log := r.logger.Run(string(runID))

	opts := r.cfg.Options
	opts.Filename = m.Filename()
	opts.Logger = log
	opts.MaxSteps = tighter(opts.MaxSteps, m.Limits.MaxSteps)

	timeout := r.cfg.Timeout
	if t := m.Timeout(); t > 0 && (timeout == 0 || t < timeout) {
		timeout = t
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lopts := []loader.Option{loader.WithOptions(opts)}
	if r.metrics != nil {
		lopts = append(lopts, loader.WithObserver(r.metrics.BridgeObserver()))
	}
	if r.cfg.Codec != nil {
		host := bridge.NewHost(bridge.NewStore(), bridge.WithHostLogger(log))
		lopts = append(lopts, loader.WithHost(host), loader.WithTransport(bridge.Loopback{Host: host, Codec: r.cfg.Codec}))
	}
	for i, name := range names {
		lopts = append(lopts, loader.WithValue(name, values[i]))
	}

	report := &Report{ID: runID, Name: m.Name, StartedAt: time.Now()}
	p, err := loader.New(code, lopts...)
	if err != nil {
		var perr *engine.ParseError
		if !errors.As(err, &perr) {
			return nil, err
		}
		r.finish(report, nil, err, log)
		return report, nil
	}
	defer p.Close()

	log.Debug("run started", zap.String("name", m.Name), zap.Strings("services", m.Services))
	_, err = p.RunContext(ctx)
	for i := 0; err == nil && i < len(m.Calls); i++ {
		var fn loader.Callable
		if fn, err = p.Export(m.Calls[i].Export); err == nil {
			err = fn(ctx, m.Calls[i].Args...)
		}
	}
	r.finish(report, p, err, log)
	return report, nil
}

// Bind returns the guest globals for m: its services first, then its links
// in name order.
func Bind(registry *service.Registry, metrics *monitoring.Metrics, m *manifest.Manifest) ([]string, []any, error) {
	var names []string
	var values []any
	if len(m.Services) > 0 {
		caps, err := registry.Capabilities(metrics, m.Services...)
		if err != nil {
			return nil, nil, err
		}
		for _, s := range m.Services {
			names = append(names, s)
			values = append(values, caps[s])
		}
	}
	for _, name := range m.LinkNames() {
		names = append(names, name)
		values = append(values, m.Links[name])
	}
	return names, values, nil
}

func (r *Runner) finish(report *Report, p *loader.Program, err error, log *zap.Logger) {
	report.Duration = time.Since(report.StartedAt)
	report.Outcome = Classify(err)
	report.Console = []engine.ConsoleEntry{}
	report.Journal = []JournalEntry{}
	if p != nil {
		report.Steps = p.Interpreter().Steps()
		report.Console = p.Console()
		report.Journal = Journal(p.Journal())
		if err == nil {
			report.Value = p.Interpreter().Value().Export()
		}
	}
	if err != nil {
		report.Error = err.Error()
	}

	if r.metrics != nil {
		r.metrics.RecordRun(report.Outcome, report.Duration, report.Steps)
		if p != nil {
			r.metrics.RecordPatterns(p.Interpreter().PatternStats())
		}
	}
	log.Info("run finished",
		zap.String("outcome", report.Outcome),
		zap.Uint64("steps", report.Steps),
		zap.Int("bridge_messages", len(report.Journal)),
		zap.Duration("duration", report.Duration),
	)
	r.keep(report)
}

func (r *Runner) keep(report *Report) {
	if r.cfg.History <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports.Store(report.ID, report)
	r.order = append(r.order, report.ID)
	for len(r.order) > r.cfg.History {
		r.reports.Delete(r.order[0])
		r.order = r.order[1:]
	}
}

// Get returns a kept report.
func (r *Runner) Get(runID id.RunID) (*Report, bool) {
	v, ok := r.reports.Load(runID)
	if !ok {
		return nil, false
	}
	return v.(*Report), true
}

// List returns summaries of the kept reports, newest first.
func (r *Runner) List() []Summary {
	var out []Summary
	r.reports.Range(func(_, v any) bool {
		out = append(out, v.(*Report).Summary())
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Stats counts kept reports by outcome.
func (r *Runner) Stats() map[string]any {
	outcomes := make(map[string]int)
	total := 0
	r.reports.Range(func(_, v any) bool {
		outcomes[v.(*Report).Outcome]++
		total++
		return true
	})
	return map[string]any{
		"kept_runs": total,
		"outcomes":  outcomes,
	}
}

// Classify maps a run error to a monitoring outcome.
func Classify(err error) string {
	var (
		perr *engine.ParseError
		uerr *engine.UncaughtError
	)
	switch {
	case err == nil:
		return monitoring.OutcomeOK
	case errors.As(err, &perr):
		return monitoring.OutcomeParse
	case errors.As(err, &uerr):
		return monitoring.OutcomeUncaught
	case errors.Is(err, loader.ErrStepLimit):
		return monitoring.OutcomeStepLimit
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return monitoring.OutcomeTimeout
	}
	return monitoring.OutcomeFault
}

func tighter(limit, override uint64) uint64 {
	if override == 0 || (limit != 0 && limit < override) {
		return limit
	}
	return override
}

// String renders a report's headline for the CLI.
func (r *Report) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%s %s: %s", r.ID, r.Outcome, r.Error)
	}
	return fmt.Sprintf("%s %s: %v", r.ID, r.Outcome, r.Value)
}
