package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/infrastructure/config"
)

func TestServerRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = "0"
	cfg.Reference.PoolSize = 1
	s, err := NewServer(cfg)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Close(ctx)
	}()

	tests := []struct {
		method string
		path   string
		body   string
		code   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/services", "", http.StatusOK},
		{http.MethodPost, "/run", `{"source": "math.sqrt(81)", "services": ["math"]}`, http.StatusOK},
		{http.MethodPost, "/compare", `{"source": "2 + 2"}`, http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/sessions/not-an-id/stream", "", http.StatusBadRequest},
		{http.MethodGet, "/missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestServerRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Sandbox.PatternMode = "turbo"
	_, err := NewServer(cfg)
	assert.Error(t, err)
}
