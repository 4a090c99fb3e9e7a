package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/reference"
	"github.com/GriffinCanCode/sandbox/internal/runner"
	"github.com/GriffinCanCode/sandbox/internal/service"
	"github.com/GriffinCanCode/sandbox/internal/session"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/sandbox/internal/shared/utils"
	"github.com/GriffinCanCode/sandbox/internal/types"
)

const version = "0.3.0"

// Deps are the components the handlers serve.
type Deps struct {
	Runner   *runner.Runner
	Registry *service.Registry
	Sessions *session.Manager
	// Reference is optional; without it /compare answers 503.
	Reference *reference.Pool
	Metrics   *monitoring.Metrics
	Gatherer  prometheus.Gatherer
	Tracer    *tracing.Tracer
	Logger    *zap.Logger
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	runner    *runner.Runner
	registry  *service.Registry
	sessions  *session.Manager
	reference *reference.Pool
	metrics   *monitoring.Metrics
	gatherer  prometheus.Gatherer
	tracer    *tracing.Tracer
	logger    *zap.Logger
	started   time.Time
}

// NewHandlers creates a handler set.
func NewHandlers(d Deps) *Handlers {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{
		runner:    d.Runner,
		registry:  d.Registry,
		sessions:  d.Sessions,
		reference: d.Reference,
		metrics:   d.Metrics,
		gatherer:  d.Gatherer,
		tracer:    d.Tracer,
		logger:    d.Logger,
		started:   time.Now(),
	}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.POST("/run", h.Run)
	r.GET("/runs", h.ListRuns)
	r.GET("/runs/:id", h.GetRun)
	r.POST("/compare", h.Compare)
	r.GET("/services", h.ListServices)
	r.GET("/services/:id", h.GetService)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.GET("/stats", h.Stats)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}

// Root handles the banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "sandbox",
		"version": version,
	})
}

// Health handles detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"uptime":   time.Since(h.started).String(),
		"runs":     h.runner.Stats(),
		"services": h.registry.Stats(),
		"sessions": h.sessions.Stats(),
	})
}

// Run executes a manifest and returns its report. Guest failures are
// reported with 200 and a failing outcome; only setup errors are 400s.
func (h *Handlers) Run(c *gin.Context) {
	m, ok := h.readManifest(c)
	if !ok {
		return
	}
	span, ctx := h.startSpan(c.Request.Context(), "run")
	report, err := h.runner.Run(ctx, m)
	if err != nil {
		h.finishSpan(span, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if span != nil {
		span.SetTag("run_id", report.ID.String())
		span.SetTag("outcome", report.Outcome)
	}
	h.finishSpan(span, nil)
	c.JSON(http.StatusOK, report)
}

// ListRuns lists recent runs, newest first.
func (h *Handlers) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"runs":  h.runner.List(),
		"stats": h.runner.Stats(),
	})
}

// GetRun returns one kept report.
func (h *Handlers) GetRun(c *gin.Context) {
	runID, err := id.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, ok := h.runner.Get(runID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListServices lists host services, filtered by category or ranked by a
// free-text query.
func (h *Handlers) ListServices(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		if err := utils.ValidateString(q, "q", 1, utils.MaxQueryLength, true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"services": h.registry.Discover(q, 10)})
		return
	}

	var category *types.Category
	if s := c.Query("category"); s != "" {
		if err := utils.ValidateCategory(s, false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cat := types.Category(s)
		category = &cat
	}
	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// GetService returns one service definition.
func (h *Handlers) GetService(c *gin.Context) {
	serviceID := c.Param("id")
	if err := utils.ValidateID(serviceID, "service_id", true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	provider, ok := h.registry.Get(serviceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	c.JSON(http.StatusOK, provider.Definition())
}

// CreateSession opens a session. The body is a JSON manifest with an
// optional "remote" map of links the client will serve over /host.
func (h *Handlers) CreateSession(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	var spec session.Spec
	if err := sonic.Unmarshal(body, &spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session: " + err.Error()})
		return
	}
	if spec.Source == "" && spec.Payload == "" {
		// empty sessions are filled through append
		spec.Source = ";"
	}
	if err := spec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateManifest(&spec.Manifest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.sessions.Create(&spec)
	switch {
	case errors.Is(err, session.ErrTooManySessions):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	base := "/sessions/" + s.ID.String()
	resp := gin.H{"session": s.Info(), "stream": base + "/stream"}
	if len(spec.Remote) > 0 {
		resp["host"] = base + "/host"
	}
	c.JSON(http.StatusCreated, resp)
}

// ListSessions lists live sessions.
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.sessions.List(),
		"stats":    h.sessions.Stats(),
	})
}

// DeleteSession closes a session.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.sessions.Close(sid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session_id": sid})
}

// Stats aggregates the counters of every component.
func (h *Handlers) Stats(c *gin.Context) {
	stats := gin.H{
		"uptime_seconds": time.Since(h.started).Seconds(),
		"runs":           h.runner.Stats(),
		"services":       h.registry.Stats(),
		"sessions":       h.sessions.Stats(),
	}
	if h.metrics != nil {
		stats["metrics"] = h.metrics.Snapshot()
	}
	if h.reference != nil {
		stats["reference"] = h.reference.Stats()
	}
	c.JSON(http.StatusOK, stats)
}

// readBody reads the request body within the request size limit.
func (h *Handlers) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return nil, false
	}
	if err := utils.ValidateSize(body, utils.MaxRequestSize); err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return nil, false
	}
	return body, true
}

// readManifest parses the body in the format its Content-Type names.
func (h *Handlers) readManifest(c *gin.Context) (*manifest.Manifest, bool) {
	body, ok := h.readBody(c)
	if !ok {
		return nil, false
	}
	m, err := manifest.Parse(body, formatOf(c.ContentType()))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if err := utils.ValidateManifest(m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return m, true
}

func formatOf(contentType string) manifest.Format {
	switch {
	case strings.Contains(contentType, "yaml"):
		return manifest.FormatYAML
	case strings.Contains(contentType, "toml"):
		return manifest.FormatTOML
	default:
		return manifest.FormatJSON
	}
}

func (h *Handlers) startSpan(ctx context.Context, name string) (*tracing.Span, context.Context) {
	if h.tracer == nil {
		return nil, ctx
	}
	return h.tracer.StartSpan(ctx, name)
}

func (h *Handlers) finishSpan(span *tracing.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetError(err)
	}
	h.tracer.Finish(span)
}
