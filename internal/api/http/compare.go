package http

import (
	"bytes"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/shared/utils"
)

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	Source string `json:"source" binding:"required"`
}

// Comparison reports how the sandbox and the reference runtime disagree on
// one program.
type Comparison struct {
	Outcome        string   `json:"outcome"`
	Sandbox        any      `json:"sandbox"`
	SandboxError   string   `json:"sandbox_error,omitempty"`
	Reference      any      `json:"reference"`
	ReferenceError string   `json:"reference_error,omitempty"`
	ValueMatch     bool     `json:"value_match"`
	ConsoleMatch   bool     `json:"console_match"`
	SandboxLog     []string `json:"sandbox_console"`
	ReferenceLog   []string `json:"reference_console"`
}

// Compare runs self-contained source in both runtimes. Values are compared
// by their canonical JSON encoding, so integer and float exports agree.
func (h *Handlers) Compare(c *gin.Context) {
	if h.reference == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reference runtime disabled"})
		return
	}
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateSource(req.Source, "source"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	report, err := h.runner.Run(ctx, &manifest.Manifest{Name: "compare", Source: req.Source})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmp := Comparison{
		Outcome:      report.Outcome,
		Sandbox:      report.Value,
		SandboxError: report.Error,
		SandboxLog:   make([]string, 0, len(report.Console)),
	}
	for _, e := range report.Console {
		cmp.SandboxLog = append(cmp.SandboxLog, e.Message)
	}

	ref, err := h.reference.Execute(ctx, req.Source)
	if err != nil {
		cmp.ReferenceError = err.Error()
	}
	cmp.ReferenceLog = []string{}
	if ref != nil {
		cmp.Reference = ref.Value
		for _, e := range ref.Console {
			cmp.ReferenceLog = append(cmp.ReferenceLog, e.Message)
		}
	}

	sandboxOK := report.Outcome == monitoring.OutcomeOK
	switch {
	case sandboxOK && err == nil:
		cmp.ValueMatch = sameJSON(cmp.Sandbox, cmp.Reference)
	case !sandboxOK && err != nil:
		cmp.ValueMatch = true
	}
	cmp.ConsoleMatch = sameJSON(cmp.SandboxLog, cmp.ReferenceLog)
	c.JSON(http.StatusOK, cmp)
}

func sameJSON(a, b any) bool {
	x, errA := sonic.ConfigStd.Marshal(a)
	y, errB := sonic.ConfigStd.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}
