package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	mathprovider "github.com/GriffinCanCode/sandbox/internal/providers/math"
	"github.com/GriffinCanCode/sandbox/internal/reference"
	"github.com/GriffinCanCode/sandbox/internal/runner"
	"github.com/GriffinCanCode/sandbox/internal/service"
	"github.com/GriffinCanCode/sandbox/internal/session"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := service.NewRegistry()
	require.NoError(t, reg.Register(mathprovider.NewProvider()))
	prom := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(prom)
	pool, err := reference.NewPool(reference.DefaultConfig(), 1)
	require.NoError(t, err)
	sessions := session.NewManager(session.DefaultConfig(), reg, nil).WithMetrics(metrics)
	t.Cleanup(func() {
		sessions.CloseAll()
		pool.Close()
	})

	h := NewHandlers(Deps{
		Runner:    runner.New(runner.DefaultConfig(), reg, nil).WithMetrics(metrics),
		Registry:  reg,
		Sessions:  sessions,
		Reference: pool,
		Metrics:   metrics,
		Gatherer:  prom,
	})
	r := gin.New()
	h.Register(r)
	return r
}

func do(r http.Handler, method, path, contentType, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = sonic.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRoot(t *testing.T) {
	r := setup(t)

	w, body := do(r, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "online", body["status"])

	w, body = do(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "sessions")
}

func TestRun(t *testing.T) {
	r := setup(t)

	tests := []struct {
		name        string
		contentType string
		body        string
		code        int
		outcome     string
		value       any
	}{
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"source": "1 + 2"}`,
			code:        http.StatusOK,
			outcome:     monitoring.OutcomeOK,
			value:       3.0,
		},
		{
			name:        "yaml with links",
			contentType: "application/yaml",
			body:        "source: |\n  base * 21;\nlinks:\n  base: 2\n",
			code:        http.StatusOK,
			outcome:     monitoring.OutcomeOK,
			value:       42.0,
		},
		{
			name:        "service call",
			contentType: "application/json",
			body:        `{"source": "math.mean([2, 4, 6])", "services": ["math"]}`,
			code:        http.StatusOK,
			outcome:     monitoring.OutcomeOK,
			value:       4.0,
		},
		{
			name:        "guest throw",
			contentType: "application/json",
			body:        `{"source": "throw new Error('nope')"}`,
			code:        http.StatusOK,
			outcome:     monitoring.OutcomeUncaught,
		},
		{
			name:        "payload path rejected",
			contentType: "application/json",
			body:        `{"payload": "/etc/passwd"}`,
			code:        http.StatusBadRequest,
		},
		{
			name:        "unknown service",
			contentType: "application/json",
			body:        `{"source": "1", "services": ["nope"]}`,
			code:        http.StatusBadRequest,
		},
		{
			name:        "malformed",
			contentType: "application/json",
			body:        `{"source": `,
			code:        http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, http.MethodPost, "/run", tt.contentType, tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			if tt.code != http.StatusOK {
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.Equal(t, tt.outcome, body["outcome"])
			if tt.value != nil {
				assert.Equal(t, tt.value, body["value"])
			}
		})
	}
}

func TestRunsLookup(t *testing.T) {
	r := setup(t)

	_, run := do(r, http.MethodPost, "/run", "application/json", `{"name": "first", "source": "7"}`)
	runID, _ := run["id"].(string)
	require.NotEmpty(t, runID)

	w, body := do(r, http.MethodGet, "/runs/"+runID, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "first", body["name"])
	assert.Equal(t, 7.0, body["value"])

	w, body = do(r, http.MethodGet, "/runs", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["runs"], 1)

	w, _ = do(r, http.MethodGet, "/runs/bogus", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodGet, "/runs/"+id.NewRunID().String(), "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServices(t *testing.T) {
	r := setup(t)

	tests := []struct {
		path  string
		code  int
		count int
	}{
		{"/services", http.StatusOK, 1},
		{"/services?category=math", http.StatusOK, 1},
		{"/services?category=system", http.StatusOK, 0},
		{"/services?category=Not_Valid", http.StatusBadRequest, 0},
		{"/services?q=math", http.StatusOK, 1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w, body := do(r, http.MethodGet, tt.path, "", "")
			require.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				services, _ := body["services"].([]any)
				assert.Len(t, services, tt.count)
			}
		})
	}

	w, body := do(r, http.MethodGet, "/services/math", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "math", body["id"])

	w, _ = do(r, http.MethodGet, "/services/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessions(t *testing.T) {
	r := setup(t)

	w, body := do(r, http.MethodPost, "/sessions", "application/json", `{"name": "repl"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	info, _ := body["session"].(map[string]any)
	sid, _ := info["id"].(string)
	require.NotEmpty(t, sid)
	assert.Equal(t, "/sessions/"+sid+"/stream", body["stream"])
	assert.NotContains(t, body, "host")

	w, body = do(r, http.MethodPost, "/sessions", "application/json",
		`{"source": "inbox.count", "remote": {"inbox": {"keys": ["count"]}}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, body, "host")

	w, body = do(r, http.MethodGet, "/sessions", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["sessions"], 2)

	w, _ = do(r, http.MethodDelete, "/sessions/"+sid, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(r, http.MethodDelete, "/sessions/"+sid, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(r, http.MethodPost, "/sessions", "application/json", `{"payload": "main.js"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompare(t *testing.T) {
	r := setup(t)

	tests := []struct {
		name    string
		source  string
		value   bool
		console bool
	}{
		{"arithmetic", `var a = [1, 2, 3]; a.length * 2;`, true, true},
		{"console", `console.log("hi", 3); "done";`, true, true},
		{"both throw", `throw new TypeError("x")`, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := sonic.MarshalString(CompareRequest{Source: tt.source})
			require.NoError(t, err)
			w, out := do(r, http.MethodPost, "/compare", "application/json", body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.value, out["value_match"], w.Body.String())
			assert.Equal(t, tt.console, out["console_match"], w.Body.String())
		})
	}

	w, _ := do(r, http.MethodPost, "/compare", "application/json", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAndMetrics(t *testing.T) {
	r := setup(t)
	do(r, http.MethodPost, "/run", "application/json", `{"source": "1"}`)

	w, body := do(r, http.MethodGet, "/stats", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	for _, key := range []string{"runs", "services", "sessions", "metrics", "reference"} {
		assert.Contains(t, body, key)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sandbox_runs_total{outcome="ok"} 1`)
}
