package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func frameType(c Codec) int {
	if c.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// WebSocket is a Transport over a dedicated websocket connection whose peer
// runs ServeWebSocket.
type WebSocket struct {
	*Remote
	conn *websocket.Conn
	wmu  sync.Mutex
	done chan struct{}
}

// NewWebSocket starts reading responses from conn. Close stops it.
func NewWebSocket(conn *websocket.Conn, codec Codec) *WebSocket {
	w := &WebSocket{conn: conn, done: make(chan struct{})}
	w.Remote = NewRemote(codec, w.write)
	go w.readLoop()
	return w
}

func (w *WebSocket) write(data []byte) error {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	return w.conn.WriteMessage(frameType(w.Remote.Codec()), data)
}

func (w *WebSocket) readLoop() {
	defer close(w.done)
	defer w.Remote.Close()
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		// A malformed frame only loses that response; its caller times out.
		_ = w.Deliver(data)
	}
}

// Close closes the connection and fails pending round trips.
func (w *WebSocket) Close() error {
	err := w.conn.Close()
	<-w.done
	return err
}

// ServeWebSocket answers bridge messages arriving on conn from host until the
// connection closes or ctx ends. Messages are handled one at a time, in
// arrival order.
func ServeWebSocket(ctx context.Context, conn *websocket.Conn, host *Host, codec Codec, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read bridge frame: %w", err)
		}
		m, err := codec.DecodeMessage(data)
		var resp Response
		if err != nil {
			log.Warn("dropping malformed bridge frame", zap.Error(err))
			if !errors.Is(err, ErrMalformed) {
				return err
			}
			resp = Response{ID: m.ID, Error: err.Error()}
		} else {
			resp = host.Handle(ctx, m)
		}
		out, err := codec.EncodeResponse(resp)
		if err != nil {
			return fmt.Errorf("encode bridge response: %w", err)
		}
		if err := conn.WriteMessage(frameType(codec), out); err != nil {
			return fmt.Errorf("write bridge frame: %w", err)
		}
	}
}
