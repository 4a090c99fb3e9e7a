// Package ws provides the websocket endpoints of interactive sessions.
//
// Two connections can be attached to a session:
//
//	/sessions/:id/stream  control stream, JSON envelopes
//	/sessions/:id/host    remote host, raw bridge frames in the session codec
//
// Message Types (Client → Server, stream):
//   - run: Run the payload or pending top-level code
//   - append: Append top-level code ("code") and run it
//   - invoke: Call an exported function ("export", "args")
//   - journal: Fetch the bridge messages sent so far
//   - ping: Keep-alive ping
//
// Message Types (Server → Client, stream):
//   - connected: Sent once, carries the session ID
//   - result: Outcome of run, append or invoke
//   - journal: Bridge message log
//   - pong: Reply to ping
//   - error: Malformed or unknown message
//
// Every reply echoes the "ref" the client sent, if any.
//
// Example Usage:
//
//	handler := ws.NewHandler(sessions, metrics, logger)
//	router.GET("/sessions/:id/stream", handler.HandleStream)
//	router.GET("/sessions/:id/host", handler.HandleHost)
package ws
