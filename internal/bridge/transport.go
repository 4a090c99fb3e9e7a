package bridge

import (
	"context"
	"fmt"
	"sync"
)

// Transport carries one message to a host and returns its response. The
// sandbox issues at most one round trip at a time, in guest order.
type Transport interface {
	RoundTrip(ctx context.Context, m Message) (Response, error)
}

// Direct calls a Host in process.
type Direct struct {
	Host *Host
}

func (d Direct) RoundTrip(ctx context.Context, m Message) (Response, error) {
	return d.Host.Handle(ctx, m), nil
}

// Loopback serves a Host in process but passes every message and response
// through a Codec, so the host sees exactly the bytes a remote peer would.
type Loopback struct {
	Host  *Host
	Codec Codec
}

func (l Loopback) RoundTrip(ctx context.Context, m Message) (Response, error) {
	data, err := l.Codec.EncodeMessage(m)
	if err != nil {
		return Response{}, err
	}
	decoded, err := l.Codec.DecodeMessage(data)
	if err != nil {
		return Response{}, err
	}
	resp := l.Host.Handle(ctx, decoded)
	if data, err = l.Codec.EncodeResponse(resp); err != nil {
		return Response{}, err
	}
	return l.Codec.DecodeResponse(data)
}

// Remote is a rendezvous transport for a peer reached over some framed
// connection. RoundTrip encodes the message and hands it to send; the
// connection's reader passes the peer's answers to Deliver, which wakes the
// waiting call with the matching ID.
type Remote struct {
	codec Codec
	send  func([]byte) error

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool
}

// NewRemote creates a remote transport.
func NewRemote(codec Codec, send func([]byte) error) *Remote {
	return &Remote{
		codec:   codec,
		send:    send,
		pending: make(map[string]chan Response),
	}
}

// Codec returns the codec frames are encoded with.
func (r *Remote) Codec() Codec { return r.codec }

func (r *Remote) RoundTrip(ctx context.Context, m Message) (Response, error) {
	if m.ID == "" {
		return Response{}, fmt.Errorf("%w: remote messages need an id", ErrMalformed)
	}
	data, err := r.codec.EncodeMessage(m)
	if err != nil {
		return Response{}, err
	}

	ch := make(chan Response, 1)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Response{}, ErrClosed
	}
	r.pending[m.ID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, m.ID)
		r.mu.Unlock()
	}()

	if err := r.send(data); err != nil {
		return Response{}, fmt.Errorf("send bridge message: %w", err)
	}
	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Deliver routes an encoded response to the call waiting for it. Responses
// nobody waits for are dropped.
func (r *Remote) Deliver(data []byte) error {
	resp, err := r.codec.DecodeResponse(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.pending[resp.ID]; ok {
		select {
		case ch <- resp:
		default:
		}
	}
	return nil
}

// Close fails every waiting and future round trip.
func (r *Remote) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

// Mux routes messages to transports by the root segment of their path. Roots
// of references returned through a route are learned, so minted results keep
// going back to the host that minted them.
type Mux struct {
	mu       sync.RWMutex
	routes   map[string]Transport
	fallback Transport
}

// NewMux creates a mux sending unrouted roots to fallback, which may be nil.
func NewMux(fallback Transport) *Mux {
	return &Mux{routes: make(map[string]Transport), fallback: fallback}
}

// Route sends messages rooted at root to t.
func (x *Mux) Route(root string, t Transport) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.routes[root] = t
}

func (x *Mux) RoundTrip(ctx context.Context, m Message) (Response, error) {
	root := m.Path.Root()
	x.mu.RLock()
	t, ok := x.routes[root]
	if !ok {
		t = x.fallback
	}
	x.mu.RUnlock()
	if t == nil {
		return Response{ID: m.ID, Error: fmt.Sprintf("%v: no host serves %q", ErrNotExposed, root)}, nil
	}

	resp, err := t.RoundTrip(ctx, m)
	if err != nil || resp.Value == nil || !resp.Value.IsReference() {
		return resp, err
	}
	learned := resp.Value.Path.Root()
	x.mu.Lock()
	defer x.mu.Unlock()
	if prev, ok := x.routes[learned]; ok && prev != t {
		return Response{ID: m.ID, Error: fmt.Sprintf("root %q is served by another host", learned)}, nil
	}
	x.routes[learned] = t
	return resp, nil
}
