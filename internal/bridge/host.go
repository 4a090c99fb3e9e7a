package bridge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMintPrefix names the roots minted for call results.
const DefaultMintPrefix = "_retobj"

// Observer is told about every handled message.
type Observer func(op Op, err error, elapsed time.Duration)

// HostOption configures a Host.
type HostOption func(*Host)

// WithMintPrefix changes the root prefix for call results. Hosts sharing one
// sandbox through a Mux need distinct prefixes.
func WithMintPrefix(prefix string) HostOption {
	return func(h *Host) { h.prefix = prefix }
}

// WithObserver installs a per-message hook, used for metrics.
func WithObserver(o Observer) HostOption {
	return func(h *Host) { h.observe = o }
}

// WithHostLogger sets the logger.
func WithHostLogger(l *zap.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// Host serves bridge messages against a Store.
//
// Only exposed paths are reachable: a path is reachable if it was itself
// exposed (linked roots, references handed to the guest) or if its parent was
// exposed and advertised the last segment as a key. Call results are stored
// under fresh roots, so the same host object returned twice yields two
// references that do not compare equal in the guest.
type Host struct {
	store   *Store
	log     *zap.Logger
	prefix  string
	observe Observer

	mu      sync.Mutex
	exposed map[string][]string
	minted  uint64
}

// NewHost creates a host over store.
func NewHost(store *Store, opts ...HostOption) *Host {
	h := &Host{
		store:   store,
		log:     zap.NewNop(),
		prefix:  DefaultMintPrefix,
		exposed: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Store returns the backing store.
func (h *Host) Store() *Store { return h.store }

// Link stores v under the root name and returns the value to bind in the
// guest. Primitives are returned by copy; containers and functions are
// exposed and returned as references.
func (h *Host) Link(name string, v any) (Value, error) {
	path := Path{Key(name)}
	if err := h.store.Set(path, v); err != nil {
		return Value{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.marshal(path, v)
}

// Handle executes one message.
func (h *Host) Handle(ctx context.Context, m Message) Response {
	start := time.Now()
	v, err := h.handle(ctx, m)
	if h.observe != nil {
		h.observe(m.Op, err, time.Since(start))
	}
	if err != nil {
		h.log.Debug("bridge message failed",
			zap.String("op", string(m.Op)),
			zap.Stringer("path", m.Path),
			zap.Error(err))
		return Response{ID: m.ID, Error: err.Error()}
	}
	return Response{ID: m.ID, Value: &v}
}

func (h *Host) handle(ctx context.Context, m Message) (Value, error) {
	switch m.Op {
	case OpGet:
		return h.get(m.Path)
	case OpSet:
		if m.Value == nil {
			return Value{}, fmt.Errorf("%w: set without a value", ErrMalformed)
		}
		return Undefined(), h.set(m.Path, *m.Value)
	case OpCall:
		return h.call(ctx, m.Path, m.Args)
	}
	return Value{}, fmt.Errorf("%w: unknown op %q", ErrMalformed, m.Op)
}

func (h *Host) get(path Path) (Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.reachable(path); err != nil {
		return Value{}, err
	}
	v, err := h.store.Get(path)
	if err != nil {
		return Value{}, err
	}
	return h.marshal(path, v)
}

func (h *Host) set(path Path, v Value) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.reachable(path); err != nil {
		return err
	}
	stored, err := h.unmarshal(v, false)
	if err != nil {
		return err
	}
	if v.IsReference() {
		stored = Ref{Path: v.Path}
	}
	return h.store.Set(path, stored)
}

func (h *Host) call(ctx context.Context, path Path, args []Value) (Value, error) {
	h.mu.Lock()
	if err := h.reachable(path); err != nil {
		h.mu.Unlock()
		return Value{}, err
	}
	target, err := h.store.Get(path)
	if err != nil {
		h.mu.Unlock()
		return Value{}, err
	}
	fn, ok := target.(Func)
	if !ok {
		h.mu.Unlock()
		return Value{}, fmt.Errorf("%w: %s", ErrNotCallable, path)
	}
	in := make([]any, len(args))
	for i, a := range args {
		if in[i], err = h.unmarshal(a, true); err != nil {
			h.mu.Unlock()
			return Value{}, err
		}
	}
	h.mu.Unlock()

	// The host function may take its time; the lock is not held across it.
	result, err := fn(ctx, in)
	if err != nil {
		return Value{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !isObject(result) {
		return h.marshal(path, result)
	}
	h.minted++
	root := Path{Key(fmt.Sprintf("%s%d", h.prefix, h.minted))}
	if err := h.store.Set(root, result); err != nil {
		return Value{}, err
	}
	return h.marshal(root, result)
}

// marshal converts the host value found at path. Containers and functions
// are exposed under path. Callers hold h.mu.
func (h *Host) marshal(path Path, v any) (Value, error) {
	if !isObject(v) {
		p, err := toPrimitive(v)
		if err != nil {
			return Value{}, err
		}
		return Primitive(p), nil
	}
	keys := keysOf(v)
	h.exposed[path.key()] = keys
	_, callable := v.(Func)
	return Reference(path, keys, callable), nil
}

// unmarshal converts a guest value. References must be reachable; resolve
// swaps them for the host value they address. Callers hold h.mu.
func (h *Host) unmarshal(v Value, resolve bool) (any, error) {
	if !v.IsReference() {
		return v.Data, nil
	}
	if err := h.reachable(v.Path); err != nil {
		return nil, err
	}
	if !resolve {
		return nil, nil
	}
	return h.store.Get(v.Path)
}

// reachable enforces capability confinement. Callers hold h.mu.
func (h *Host) reachable(path Path) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrNotExposed)
	}
	if _, ok := h.exposed[path.key()]; ok {
		return nil
	}
	if len(path) > 1 {
		if keys, ok := h.exposed[path.Parent().key()]; ok && slices.Contains(keys, path.Last().String()) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotExposed, path)
}

// Exposed reports whether path is reachable from the guest.
func (h *Host) Exposed(path Path) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reachable(path) == nil
}

// IsConfinement reports whether err came from a confinement check.
func IsConfinement(err error) bool {
	return errors.Is(err, ErrNotExposed)
}
