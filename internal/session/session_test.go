package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/providers/math"
	"github.com/GriffinCanCode/sandbox/internal/service"
)

func newManager(t *testing.T, cfg Config) (*Manager, *monitoring.Metrics) {
	t.Helper()
	registry := service.NewRegistry()
	require.NoError(t, registry.Register(math.NewProvider()))
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	m := NewManager(cfg, registry, nil).WithMetrics(metrics)
	t.Cleanup(m.CloseAll)
	return m, metrics
}

func spec(source string) *Spec {
	return &Spec{Manifest: manifest.Manifest{Source: source}}
}

func TestSessionOperations(t *testing.T) {
	m, metrics := newManager(t, DefaultConfig())
	ctx := context.Background()

	sp := spec("var n = 0; function inc(k) { n += k; console.log('n is', n); return n; }")
	sp.Services = []string{"math"}
	s, err := m.Create(sp)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionsActive))

	res := s.Run(ctx)
	require.Equal(t, monitoring.OutcomeOK, res.Outcome, res.Error)

	res = s.Invoke(ctx, "inc", []any{2.0})
	require.Equal(t, monitoring.OutcomeOK, res.Outcome, res.Error)
	assert.Equal(t, 2.0, res.Value)
	require.Len(t, res.Console, 1)
	assert.Equal(t, "n is 2", res.Console[0].Message)

	res = s.Append(ctx, "math.multiply(n, 10)")
	require.Equal(t, monitoring.OutcomeOK, res.Outcome, res.Error)
	assert.Equal(t, 20.0, res.Value)
	assert.Empty(t, res.Console)
	assert.NotEmpty(t, s.Journal())

	res = s.Invoke(ctx, "missing", nil)
	assert.Equal(t, monitoring.OutcomeFault, res.Outcome)
	assert.Contains(t, res.Error, "not a function")

	assert.Equal(t, 4, s.Info().Ops)
	assert.True(t, m.Close(s.ID))
	assert.False(t, m.Close(s.ID))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SessionsActive))

	res = s.Run(ctx)
	assert.Contains(t, res.Error, ErrClosed.Error())
}

func TestSessionTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	m, _ := newManager(t, cfg)

	s, err := m.Create(spec("while (true) {}"))
	require.NoError(t, err)
	res := s.Run(context.Background())
	assert.Equal(t, monitoring.OutcomeTimeout, res.Outcome)
}

func TestManagerLimitsAndListing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 2
	m, _ := newManager(t, cfg)

	a, err := m.Create(spec("1"))
	require.NoError(t, err)
	b, err := m.Create(spec("2"))
	require.NoError(t, err)
	_, err = m.Create(spec("3"))
	assert.ErrorIs(t, err, ErrTooManySessions)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.Equal(t, 2, m.Reap(time.Now().Add(time.Second)))
	assert.Empty(t, m.List())
}

func TestCreateErrors(t *testing.T) {
	m, _ := newManager(t, DefaultConfig())

	_, err := m.Create(spec("var = ;"))
	assert.Error(t, err)

	sp := spec("1")
	sp.Links = map[string]any{"ui": 1.0}
	sp.Remote = map[string]Remote{"ui": {}}
	_, err = m.Create(sp)
	assert.ErrorContains(t, err, "collides")

	s, err := m.Create(spec("1"))
	require.NoError(t, err)
	assert.ErrorIs(t, s.AttachHost(nil), ErrNoRemote)
}

func TestRemoteHost(t *testing.T) {
	m, _ := newManager(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peer := bridge.NewHost(bridge.NewStore(), bridge.WithMintPrefix("_peer"))
	ui, err := peer.Link("ui", map[string]any{
		"title": "inbox",
		"count": bridge.Func(func(ctx context.Context, args []any) (any, error) {
			return float64(len(args)), nil
		}),
	})
	require.NoError(t, err)

	sp := spec("ui.title + ':' + ui.count(1, 2, 3)")
	sp.Remote = map[string]Remote{"ui": {Keys: ui.Keys}}
	s, err := m.Create(sp)
	require.NoError(t, err)

	attached := make(chan error, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			attached <- err
			return
		}
		attached <- s.AttachHost(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	go bridge.ServeWebSocket(ctx, conn, peer, bridge.JSONCodec{}, nil)
	require.NoError(t, <-attached)

	res := s.Run(ctx)
	require.Equal(t, monitoring.OutcomeOK, res.Outcome, res.Error)
	assert.Equal(t, "inbox:3", res.Value)
	assert.True(t, s.Info().Attached)
	assert.Equal(t, "closed", s.Info().Circuit)
	assert.ErrorIs(t, s.AttachHost(nil), ErrHostAttached)
}
