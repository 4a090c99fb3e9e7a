package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

// Run outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeUncaught  = "uncaught"
	OutcomeFault     = "fault"
	OutcomeStepLimit = "step_limit"
	OutcomeTimeout   = "timeout"
	OutcomeParse     = "parse_error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Sandbox metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	StepsTotal  prometheus.Counter

	// Bridge metrics
	BridgeMessages *prometheus.CounterVec
	BridgeDuration *prometheus.HistogramVec

	// Pattern metrics
	PatternMatches  prometheus.Counter
	PatternTimeouts prometheus.Counter

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	TotalRuns      int64
	FailedRuns     int64
	TotalSteps     uint64
	BridgeMessages int64
	ActiveSessions int64
	TotalDuration  float64 // sum of all request durations
	RequestCount   int64   // count for averaging
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Sandbox metrics
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_runs_total",
				Help: "Total number of sandbox runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sandbox_run_duration_seconds",
				Help:    "Wall clock time of sandbox runs in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		StepsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_steps_total",
				Help: "Total number of interpreter micro-steps executed",
			},
		),

		// Bridge metrics
		BridgeMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_bridge_messages_total",
				Help: "Total number of bridge messages by operation and status",
			},
			[]string{"op", "status"},
		),
		BridgeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_bridge_duration_seconds",
				Help:    "Bridge round trip duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),

		// Pattern metrics
		PatternMatches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_pattern_matches_total",
				Help: "Total number of regular expression searches",
			},
		),
		PatternTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_pattern_timeouts_total",
				Help: "Total number of regular expression searches that timed out",
			},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_service_calls_total",
				Help: "Total number of host service tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_service_duration_seconds",
				Help:    "Host service tool call duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"service", "tool"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_sessions_active",
				Help: "Number of live interactive sessions",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sandbox_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRun records a finished sandbox run.
func (m *Metrics) RecordRun(outcome string, duration time.Duration, steps uint64) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.StepsTotal.Add(float64(steps))

	m.mu.Lock()
	m.snapshot.TotalRuns++
	m.snapshot.TotalSteps += steps
	if outcome != OutcomeOK {
		m.snapshot.FailedRuns++
	}
	m.mu.Unlock()
}

// RecordBridge records one bridge round trip.
func (m *Metrics) RecordBridge(op bridge.Op, err error, elapsed time.Duration) {
	status := "ok"
	switch {
	case bridge.IsConfinement(err):
		status = "refused"
	case err != nil:
		status = "error"
	}
	m.BridgeMessages.WithLabelValues(string(op), status).Inc()
	m.BridgeDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())

	m.mu.Lock()
	m.snapshot.BridgeMessages++
	m.mu.Unlock()
}

// BridgeObserver adapts RecordBridge to a bridge.Observer.
func (m *Metrics) BridgeObserver() bridge.Observer {
	return m.RecordBridge
}

// RecordPatterns adds a run's pattern engine counters.
func (m *Metrics) RecordPatterns(s pattern.Stats) {
	m.PatternMatches.Add(float64(s.Matches))
	m.PatternTimeouts.Add(float64(s.Timeouts))
}

// RecordServiceCall records a host service tool call
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current values for the JSON stats endpoint.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Uptime returns the time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
