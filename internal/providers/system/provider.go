package system

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/types"
)

// Entry is one message a guest logged through system.log.
type Entry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

var levels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Provider is the system host service: runtime information, the clock and
// a shared log that outlives individual runs.
type Provider struct {
	started time.Time
	now     func() time.Time
	logs    *Ring[Entry]
	logger  *zap.Logger
}

// NewProvider creates a system provider keeping the last capacity log
// entries. Logged messages are also written to logger under "guest".
func NewProvider(capacity int, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		started: time.Now(),
		now:     time.Now,
		logs:    NewRing[Entry](capacity),
		logger:  logger.Named("guest"),
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:           "system",
		Name:         "System Service",
		Description:  "Host runtime information, clock and shared logging",
		Category:     types.CategorySystem,
		Capabilities: []string{"info", "clock", "logging"},
		Tools: []types.Tool{
			{ID: "system.info", Name: "System Info", Description: "Host runtime information", Returns: "object"},
			{ID: "system.time", Name: "Current Time", Description: "Current host time", Returns: "object"},
			{ID: "system.ping", Name: "Ping", Description: "Test service availability", Returns: "object"},
			{
				ID:          "system.log",
				Name:        "Log Message",
				Description: "Append a message to the shared log",
				Parameters: []types.Parameter{
					{Name: "message", Type: "string", Description: "Log message", Required: true},
					{Name: "level", Type: "string", Description: "debug, info, warn or error", Required: false},
				},
				Returns: "boolean",
			},
			{
				ID:          "system.logs",
				Name:        "Recent Logs",
				Description: "Most recent shared log entries, newest first",
				Parameters: []types.Parameter{
					{Name: "limit", Type: "number", Description: "Maximum entries (default 100)", Required: false},
					{Name: "level", Type: "string", Description: "Only entries at this level", Required: false},
				},
				Returns: "array",
			},
		},
	}
}

// Execute runs a system tool.
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]any) (*types.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch toolID {
	case "system.info":
		return p.info()
	case "system.time":
		return p.clock()
	case "system.ping":
		return success(map[string]any{"pong": true})
	case "system.log":
		return p.log(params)
	case "system.logs":
		return p.recent(params)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) info() (*types.Result, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return success(map[string]any{
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"cpus":           runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"uptime_seconds": time.Since(p.started).Seconds(),
	})
}

func (p *Provider) clock() (*types.Result, error) {
	now := p.now()
	return success(map[string]any{
		"timestamp": now.Unix(),
		"unix_ms":   now.UnixMilli(),
		"iso":       now.UTC().Format(time.RFC3339),
	})
}

func (p *Provider) log(params map[string]any) (*types.Result, error) {
	message, _ := params["message"].(string)
	if message == "" {
		return failure("message required")
	}
	level := "info"
	if l, ok := params["level"].(string); ok && l != "" {
		level = l
	}
	if !levels[level] {
		return failure(fmt.Sprintf("unknown level %q", level))
	}

	p.logs.Add(Entry{Timestamp: p.now(), Level: level, Message: message})
	switch level {
	case "debug":
		p.logger.Debug(message)
	case "warn":
		p.logger.Warn(message)
	case "error":
		p.logger.Error(message)
	default:
		p.logger.Info(message)
	}
	return &types.Result{Success: true, Data: map[string]any{"result": true}}, nil
}

func (p *Provider) recent(params map[string]any) (*types.Result, error) {
	limit := 100
	if l, ok := params["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	level, _ := params["level"].(string)

	entries := p.logs.Recent(limit, func(e Entry) bool { return level == "" || e.Level == level })
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
			"level":     e.Level,
			"message":   e.Message,
		}
	}
	return &types.Result{Success: true, Data: map[string]any{"result": out}}, nil
}

func success(data map[string]any) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	return &types.Result{Success: false, Error: &message}, nil
}
