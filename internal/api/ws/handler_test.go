package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/session"
)

func setup(t *testing.T) (*session.Manager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sessions := session.NewManager(session.DefaultConfig(), nil, nil)
	t.Cleanup(sessions.CloseAll)

	h := NewHandler(sessions, nil, nil)
	router := gin.New()
	router.GET("/sessions/:id/stream", h.HandleStream)
	router.GET("/sessions/:id/host", h.HandleHost)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return sessions, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, msg Envelope) Envelope {
	t.Helper()
	data, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, sonic.Unmarshal(data, &env))
	return env
}

func TestStream(t *testing.T) {
	sessions, base := setup(t)
	s, err := sessions.Create(&session.Spec{Manifest: manifest.Manifest{
		Source: "var total = 0; function add(n) { total += n; return total; }",
	}})
	require.NoError(t, err)

	conn := dial(t, base+"/sessions/"+string(s.ID)+"/stream")
	hello := read(t, conn)
	assert.Equal(t, "connected", hello.Type)
	assert.Equal(t, string(s.ID), hello.Session)

	tests := []struct {
		name    string
		msg     Envelope
		typ     string
		outcome string
		value   any
	}{
		{"run", Envelope{Type: "run", Ref: "1"}, "result", monitoring.OutcomeOK, nil},
		{"invoke", Envelope{Type: "invoke", Ref: "2", Export: "add", Args: []any{5.0}}, "result", monitoring.OutcomeOK, 5.0},
		{"append", Envelope{Type: "append", Ref: "3", Code: "total * 2"}, "result", monitoring.OutcomeOK, 10.0},
		{"uncaught", Envelope{Type: "append", Ref: "4", Code: "throw new Error('boom')"}, "result", monitoring.OutcomeUncaught, nil},
		{"ping", Envelope{Type: "ping", Ref: "5"}, "pong", "", nil},
		{"missing export", Envelope{Type: "invoke", Ref: "6"}, "error", "", nil},
		{"unknown", Envelope{Type: "dance", Ref: "7"}, "error", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := exchange(t, conn, tt.msg)
			assert.Equal(t, tt.typ, reply.Type)
			assert.Equal(t, tt.msg.Ref, reply.Ref)
			if tt.outcome == "" {
				return
			}
			require.NotNil(t, reply.Result)
			assert.Equal(t, tt.outcome, reply.Result.Outcome, reply.Result.Error)
			if tt.value != nil {
				assert.Equal(t, tt.value, reply.Result.Value)
			}
		})
	}
}

func TestStreamUnknownSession(t *testing.T) {
	_, base := setup(t)
	_, resp, err := websocket.DefaultDialer.Dial(base+"/sessions/sess_01ARZ3NDEKTSV4RRFFQ69G5FAV/stream", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"/sessions/bogus/stream", nil)
	require.Error(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestRemoteHostOverHandler(t *testing.T) {
	sessions, base := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peer := bridge.NewHost(bridge.NewStore())
	cfg, err := peer.Link("cfg", map[string]any{"greeting": "hello"})
	require.NoError(t, err)

	s, err := sessions.Create(&session.Spec{
		Manifest: manifest.Manifest{Source: "cfg.greeting + ' world'"},
		Remote:   map[string]session.Remote{"cfg": {Keys: cfg.Keys}},
	})
	require.NoError(t, err)

	hostConn := dial(t, base+"/sessions/"+string(s.ID)+"/host")
	go bridge.ServeWebSocket(ctx, hostConn, peer, bridge.JSONCodec{}, nil)

	stream := dial(t, base+"/sessions/"+string(s.ID)+"/stream")
	read(t, stream)
	require.Eventually(t, func() bool { return s.Info().Attached }, 2*time.Second, 10*time.Millisecond)

	reply := exchange(t, stream, Envelope{Type: "run"})
	require.NotNil(t, reply.Result)
	assert.Equal(t, "hello world", reply.Result.Value, reply.Result.Error)
}
