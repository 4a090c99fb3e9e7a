package bridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: a property name or an array index.
type Segment struct {
	name    string
	index   int
	isIndex bool
}

// Key returns a named segment.
func Key(name string) Segment { return Segment{name: name} }

// Index returns a numeric segment.
func Index(i int) Segment { return Segment{index: i, isIndex: true} }

// IsIndex reports whether the segment is numeric.
func (s Segment) IsIndex() bool { return s.isIndex }

// Int returns the index of a numeric segment.
func (s Segment) Int() int { return s.index }

// String returns the property name the segment addresses.
func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

func (s Segment) wire() any {
	if s.isIndex {
		return s.index
	}
	return s.name
}

func segmentFrom(x any) (Segment, error) {
	switch v := x.(type) {
	case string:
		return Key(v), nil
	case float64:
		if v != float64(int(v)) || v < 0 {
			return Segment{}, fmt.Errorf("%w: path index %v", ErrMalformed, v)
		}
		return Index(int(v)), nil
	case int:
		return Index(v), nil
	case int64:
		return Index(int(v)), nil
	}
	return Segment{}, fmt.Errorf("%w: path segment of type %T", ErrMalformed, x)
}

// Path addresses a value in a host store, starting at the root.
type Path []Segment

// ParsePath builds a path from names; numeric names become index segments.
func ParsePath(names ...string) Path {
	p := make(Path, len(names))
	for i, n := range names {
		if idx, err := strconv.Atoi(n); err == nil && idx >= 0 && strconv.Itoa(idx) == n {
			p[i] = Index(idx)
			continue
		}
		p[i] = Key(n)
	}
	return p
}

// Child returns a new path extended by seg. The receiver is not modified.
func (p Path) Child(seg Segment) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// Last returns the final segment. It panics on an empty path.
func (p Path) Last() Segment { return p[len(p)-1] }

// Root returns the first segment's name, or "" for the empty path.
func (p Path) Root() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].String()
}

// String renders the path the way guest code would write it.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		switch {
		case s.isIndex:
			fmt.Fprintf(&b, "[%d]", s.index)
		case i == 0:
			b.WriteString(s.name)
		default:
			b.WriteByte('.')
			b.WriteString(s.name)
		}
	}
	return b.String()
}

// key is a map key identifying the addressed property. Index and name
// segments with the same text address the same property.
func (p Path) key() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, "\x00")
}

func (p Path) wire() []any {
	out := make([]any, len(p))
	for i, s := range p {
		out[i] = s.wire()
	}
	return out
}

func pathFrom(x any) (Path, error) {
	list, ok := x.([]any)
	if !ok {
		if x == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: path must be a list, got %T", ErrMalformed, x)
	}
	p := make(Path, len(list))
	for i, e := range list {
		seg, err := segmentFrom(e)
		if err != nil {
			return nil, err
		}
		p[i] = seg
	}
	return p, nil
}
