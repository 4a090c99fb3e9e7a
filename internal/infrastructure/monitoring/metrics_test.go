package monitoring

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

func TestRecordRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRun(OutcomeOK, 10*time.Millisecond, 120)
	m.RecordRun(OutcomeStepLimit, time.Second, 1000)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(OutcomeStepLimit)))
	assert.Equal(t, 1120.0, testutil.ToFloat64(m.StepsTotal))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRuns)
	assert.Equal(t, int64(1), snap.FailedRuns)
	assert.Equal(t, uint64(1120), snap.TotalSteps)
}

func TestBridgeObserver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	observe := m.BridgeObserver()

	observe(bridge.OpGet, nil, time.Millisecond)
	observe(bridge.OpGet, fmt.Errorf("x: %w", bridge.ErrNotExposed), time.Millisecond)
	observe(bridge.OpCall, errors.New("denied"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeMessages.WithLabelValues("get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeMessages.WithLabelValues("get", "refused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeMessages.WithLabelValues("call", "error")))
	assert.Equal(t, int64(3), m.Snapshot().BridgeMessages)
}

func TestRecordPatterns(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordPatterns(pattern.Stats{Compiled: 4, Matches: 3, Timeouts: 1})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PatternMatches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatternTimeouts))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusTeapot, "no") })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/:id", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, int64(3), m.Snapshot().TotalErrors)
}

func TestTimer(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	NewTimer(m, "math", "mean").Stop("success")
	NewTimer(nil, "math", "mean").Stop("success")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServiceCalls.WithLabelValues("math", "mean", "success")))
}
