package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartSpanNesting(t *testing.T) {
	tracer := New("sandbox", zap.NewNop())
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "request")
	child, ctx := tracer.StartSpan(ctx, "run")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.NotEqual(t, parent.SpanID, child.SpanID)
	assert.Equal(t, child.SpanID, SpanIDFrom(ctx))
	assert.Equal(t, parent.TraceID, TraceIDFrom(ctx))
}

func TestFinishLogsSpans(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := New("sandbox", zap.New(core))

	ok, _ := tracer.StartSpan(context.Background(), "run")
	ok.SetTag("outcome", "ok")
	tracer.Finish(ok)

	bad, _ := tracer.StartSpan(context.Background(), "invoke")
	bad.SetError(errors.New("boom"))
	tracer.Finish(bad)
	tracer.Close()

	require.Eventually(t, func() bool { return logs.Len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("span finished").FilterField(zap.String("outcome", "ok")).Len())
	assert.Equal(t, 1, logs.FilterMessage("span failed").Len())
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("sandbox", zap.NewNop())
	defer tracer.Close()

	var seen TraceID
	r := gin.New()
	r.Use(HTTPMiddleware(tracer))
	r.GET("/ping", func(c *gin.Context) {
		seen = TraceIDFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"trace header", HeaderTraceID, "trace-1"},
		{"request id", HeaderRequestID, "req-1"},
		{"generated", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNoContent, w.Code)
			got := w.Header().Get(HeaderTraceID)
			if tt.value != "" {
				assert.Equal(t, tt.value, got)
			} else {
				assert.NotEmpty(t, got)
			}
			assert.Equal(t, TraceID(got), seen)
			assert.Equal(t, got, w.Header().Get(HeaderRequestID))
			assert.NotEmpty(t, w.Header().Get(HeaderSpanID))
		})
	}
}
