package runner

import (
	"time"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
)

// JournalEntry is one bridge message, as reported to callers.
type JournalEntry struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	Args int    `json:"args,omitempty"`
}

// Report is the outcome of one run.
type Report struct {
	ID        id.RunID              `json:"id"`
	Name      string                `json:"name,omitempty"`
	Outcome   string                `json:"outcome"`
	Value     any                   `json:"value"`
	Error     string                `json:"error,omitempty"`
	Console   []engine.ConsoleEntry `json:"console"`
	Journal   []JournalEntry        `json:"journal"`
	Steps     uint64                `json:"steps"`
	StartedAt time.Time             `json:"started_at"`
	Duration  time.Duration         `json:"duration_ns"`
}

// Summary is the listing form of a report.
type Summary struct {
	ID        id.RunID  `json:"id"`
	Name      string    `json:"name,omitempty"`
	Outcome   string    `json:"outcome"`
	Steps     uint64    `json:"steps"`
	StartedAt time.Time `json:"started_at"`
}

// Summary returns the listing form of r.
func (r *Report) Summary() Summary {
	return Summary{ID: r.ID, Name: r.Name, Outcome: r.Outcome, Steps: r.Steps, StartedAt: r.StartedAt}
}

// Journal converts bridge messages to their reported form.
func Journal(msgs []bridge.Message) []JournalEntry {
	out := make([]JournalEntry, len(msgs))
	for i, m := range msgs {
		out[i] = JournalEntry{Op: string(m.Op), Path: m.Path.String(), Args: len(m.Args)}
	}
	return out
}
