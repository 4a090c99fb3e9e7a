package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/session"
	"github.com/GriffinCanCode/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/sandbox/internal/shared/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; CORS middleware governs HTTP routes
	},
}

// Envelope is a control stream frame in either direction.
type Envelope struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Code    string          `json:"code,omitempty"`
	Export  string          `json:"export,omitempty"`
	Args    []any           `json:"args,omitempty"`
	Session string          `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  *session.Result `json:"result,omitempty"`
	Journal any             `json:"journal,omitempty"`
	Time    int64           `json:"timestamp,omitempty"`
}

// Handler manages websocket connections to sessions.
type Handler struct {
	sessions *session.Manager
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandler creates a websocket handler. metrics may be nil.
func NewHandler(sessions *session.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, metrics: metrics, logger: logger}
}

func (h *Handler) lookup(c *gin.Context) (*session.Session, bool) {
	sid, err := id.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	s, ok := h.sessions.Get(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}

// HandleStream serves a session's control stream.
func (h *Handler) HandleStream(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(utils.MaxFrameSize)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	log := h.logger.With(zap.String("session_id", string(s.ID)))
	ctx := c.Request.Context()

	h.send(conn, Envelope{Type: "connected", Session: string(s.ID)})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		var msg Envelope
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "", "malformed message")
			continue
		}
		h.record("in", msg.Type)
		if err := h.dispatch(ctx, conn, s, msg); err != nil {
			log.Debug("websocket write error", zap.Error(err))
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, s *session.Session, msg Envelope) error {
	switch msg.Type {
	case "run":
		return h.result(conn, msg.Ref, s.Run(ctx))
	case "append":
		if err := utils.ValidateSource(msg.Code, "code"); err != nil {
			return h.sendError(conn, msg.Ref, err.Error())
		}
		return h.result(conn, msg.Ref, s.Append(ctx, msg.Code))
	case "invoke":
		if msg.Export == "" {
			return h.sendError(conn, msg.Ref, "export is required")
		}
		return h.result(conn, msg.Ref, s.Invoke(ctx, msg.Export, msg.Args))
	case "journal":
		return h.send(conn, Envelope{Type: "journal", Ref: msg.Ref, Journal: s.Journal()})
	case "ping":
		return h.send(conn, Envelope{Type: "pong", Ref: msg.Ref})
	}
	return h.sendError(conn, msg.Ref, "unknown message type")
}

// HandleHost attaches the connection as the session's remote host. The
// session owns the connection afterwards.
func (h *Handler) HandleHost(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	if err := s.AttachHost(conn); err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	h.record("in", "host_attach")
}

func (h *Handler) result(conn *websocket.Conn, ref string, res session.Result) error {
	return h.send(conn, Envelope{Type: "result", Ref: ref, Result: &res})
}

func (h *Handler) send(conn *websocket.Conn, env Envelope) error {
	env.Time = time.Now().Unix()
	data, err := sonic.Marshal(env)
	if err != nil {
		return err
	}
	h.record("out", env.Type)
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) sendError(conn *websocket.Conn, ref, msg string) error {
	return h.send(conn, Envelope{Type: "error", Ref: ref, Message: msg})
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
