package bridge

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Func is a host callable. Arguments are primitives, plain data copied from
// the guest, or host values resolved from references.
type Func func(ctx context.Context, args []any) (any, error)

// Ref is stored when guest code assigns a reference: reading it resolves the
// path it points at.
type Ref struct {
	Path Path
}

const maxRefDepth = 32

// Store is the host's tree-shaped value store. It is addressed only by path.
// Containers are map[string]any and []any; leaves are primitives, Func and
// Ref.
type Store struct {
	mu   sync.RWMutex
	root map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{root: make(map[string]any)}
}

// Get resolves path.
func (s *Store) Get(path Path) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve(path, 0)
}

// Set writes v at path. The parent must exist and be a container.
func (s *Store) Set(path Path, v any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: cannot replace the root", ErrMalformed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(path) == 1 {
		s.root[path[0].String()] = v
		return nil
	}
	parent, err := s.resolve(path.Parent(), 0)
	if err != nil {
		return err
	}
	last := path.Last()
	switch c := parent.(type) {
	case map[string]any:
		c[last.String()] = v
		return nil
	case []any:
		i, ok := sliceIndex(last)
		if !ok || i >= len(c) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		c[i] = v
		return nil
	}
	return fmt.Errorf("%w: %s is not a container", ErrNotFound, path.Parent())
}

// Delete removes a root entry.
func (s *Store) Delete(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.root, root)
}

// Roots lists the root names in sorted order.
func (s *Store) Roots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.root))
	for k := range s.root {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *Store) resolve(path Path, depth int) (any, error) {
	if depth > maxRefDepth {
		return nil, fmt.Errorf("%w: reference chain too deep at %s", ErrNotFound, path)
	}
	var cur any = s.root
	for i, seg := range path {
		var err error
		if cur, err = s.follow(cur, depth); err != nil {
			return nil, err
		}
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg.String()]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, path[:i+1])
			}
			cur = v
		case []any:
			if seg.String() == "length" {
				cur = float64(len(c))
				continue
			}
			idx, ok := sliceIndex(seg)
			if !ok || idx >= len(c) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, path[:i+1])
			}
			cur = c[idx]
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path[:i+1])
		}
	}
	return s.follow(cur, depth)
}

func (s *Store) follow(v any, depth int) (any, error) {
	if r, ok := v.(Ref); ok {
		return s.resolve(r.Path, depth+1)
	}
	return v, nil
}

func sliceIndex(seg Segment) (int, bool) {
	if seg.IsIndex() {
		return seg.Int(), true
	}
	i, err := strconv.Atoi(seg.String())
	return i, err == nil && i >= 0
}

// keysOf returns the property names advertised for a container, or nil for
// anything else.
func keysOf(v any) []string {
	switch c := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	case []any:
		keys := make([]string, 0, len(c)+1)
		for i := range c {
			keys = append(keys, strconv.Itoa(i))
		}
		return append(keys, "length")
	}
	return nil
}

// isObject reports whether v must cross the boundary by reference.
func isObject(v any) bool {
	switch v.(type) {
	case map[string]any, []any, Func:
		return true
	}
	return false
}

// toPrimitive normalizes host scalars to the wire's primitive types.
func toPrimitive(v any) (any, error) {
	switch n := v.(type) {
	case nil, bool, string, float64:
		return v, nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	}
	return nil, fmt.Errorf("unsupported host value of type %T", v)
}
