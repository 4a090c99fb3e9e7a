package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHost(t *testing.T) (*Host, Value) {
	t.Helper()
	h := NewHost(NewStore())
	root, err := h.Link("host", map[string]any{
		"a":     1,
		"b":     map[string]any{"x": "y"},
		"items": []any{"p", "q"},
		"add": Func(func(ctx context.Context, args []any) (any, error) {
			return args[0].(float64) + args[1].(float64), nil
		}),
		"point": Func(func(ctx context.Context, args []any) (any, error) {
			return map[string]any{"x": 1.0, "y": 2.0}, nil
		}),
		"fail": Func(func(ctx context.Context, args []any) (any, error) {
			return nil, errors.New("denied")
		}),
	})
	require.NoError(t, err)
	return h, root
}

func get(h *Host, names ...string) Response {
	return h.Handle(context.Background(), Message{ID: "t", Op: OpGet, Path: ParsePath(names...)})
}

func TestLinkAdvertisesKeys(t *testing.T) {
	_, root := testHost(t)

	assert.Equal(t, KindObject, root.Type)
	assert.Equal(t, "host", root.Path.String())
	assert.Equal(t, []string{"a", "add", "b", "fail", "items", "point"}, root.Keys)
}

func TestLinkPrimitive(t *testing.T) {
	h := NewHost(NewStore())

	v, err := h.Link("n", 3)
	require.NoError(t, err)
	assert.Equal(t, Primitive(float64(3)), v)

	_, err = h.Link("bad", struct{}{})
	assert.Error(t, err)
}

func TestHostGet(t *testing.T) {
	h, _ := testHost(t)

	resp := get(h, "host", "a")
	require.Empty(t, resp.Error)
	assert.Equal(t, float64(1), resp.Value.Data)

	resp = get(h, "host", "b")
	require.Empty(t, resp.Error)
	assert.Equal(t, KindObject, resp.Value.Type)
	assert.Equal(t, []string{"x"}, resp.Value.Keys)

	resp = get(h, "host", "add")
	require.Empty(t, resp.Error)
	assert.Equal(t, KindFunction, resp.Value.Type)

	resp = get(h, "host", "items")
	require.Empty(t, resp.Error)
	assert.Equal(t, []string{"0", "1", "length"}, resp.Value.Keys)
	assert.Equal(t, float64(2), get(h, "host", "items", "length").Value.Data)
	assert.Equal(t, "q", get(h, "host", "items", "1").Value.Data)
}

func TestHostConfinement(t *testing.T) {
	h, _ := testHost(t)
	require.NoError(t, h.Store().Set(ParsePath("secret"), "hunter2"))

	tests := []struct {
		name string
		path []string
	}{
		{name: "unadvertised key", path: []string{"host", "c"}},
		{name: "unlinked root", path: []string{"secret"}},
		{name: "grandchild before parent was handed out", path: []string{"host", "b", "x"}},
		{name: "minted root never minted", path: []string{"_retobj7"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(h, tt.path...)
			assert.Nil(t, resp.Value)
			assert.Contains(t, resp.Error, ErrNotExposed.Error())
			assert.False(t, h.Exposed(ParsePath(tt.path...)))
		})
	}

	require.Empty(t, get(h, "host", "b").Error)
	assert.Equal(t, "y", get(h, "host", "b", "x").Value.Data)
}

func TestHostSet(t *testing.T) {
	h, _ := testHost(t)
	ctx := context.Background()

	seven := Primitive(float64(7))
	resp := h.Handle(ctx, Message{Op: OpSet, Path: ParsePath("host", "a"), Value: &seven})
	require.Empty(t, resp.Error)
	assert.Equal(t, float64(7), get(h, "host", "a").Value.Data)

	// A reference assigned elsewhere resolves to the value it names.
	require.Empty(t, get(h, "host", "b").Error)
	ref := Reference(ParsePath("host", "b"), nil, false)
	resp = h.Handle(ctx, Message{Op: OpSet, Path: ParsePath("host", "a"), Value: &ref})
	require.Empty(t, resp.Error)
	resp = get(h, "host", "a")
	require.Empty(t, resp.Error)
	assert.Equal(t, []string{"x"}, resp.Value.Keys)

	forged := Reference(ParsePath("secret"), nil, false)
	resp = h.Handle(ctx, Message{Op: OpSet, Path: ParsePath("host", "a"), Value: &forged})
	assert.Contains(t, resp.Error, ErrNotExposed.Error())

	resp = h.Handle(ctx, Message{Op: OpSet, Path: ParsePath("host", "zzz"), Value: &seven})
	assert.Contains(t, resp.Error, ErrNotExposed.Error())
}

func TestHostCall(t *testing.T) {
	h, _ := testHost(t)
	ctx := context.Background()
	call := func(name string, args ...Value) Response {
		return h.Handle(ctx, Message{Op: OpCall, Path: ParsePath("host", name), Args: args})
	}

	resp := call("add", Primitive(2.0), Primitive(3.0))
	require.Empty(t, resp.Error)
	assert.Equal(t, Primitive(5.0), *resp.Value)

	resp = call("fail")
	assert.Equal(t, "denied", resp.Error)

	resp = call("a")
	assert.Contains(t, resp.Error, ErrNotCallable.Error())
}

func TestHostCallResultsAreMinted(t *testing.T) {
	h, _ := testHost(t)
	ctx := context.Background()

	first := h.Handle(ctx, Message{Op: OpCall, Path: ParsePath("host", "point")})
	second := h.Handle(ctx, Message{Op: OpCall, Path: ParsePath("host", "point")})
	require.Empty(t, first.Error)
	require.Empty(t, second.Error)

	assert.Equal(t, DefaultMintPrefix+"1", first.Value.Path.String())
	assert.Equal(t, DefaultMintPrefix+"2", second.Value.Path.String())
	assert.Equal(t, []string{"x", "y"}, first.Value.Keys)
	assert.Equal(t, float64(2), get(h, DefaultMintPrefix+"2", "y").Value.Data)
}

func TestHostMintPrefixAndObserver(t *testing.T) {
	var seen []string
	h := NewHost(NewStore(),
		WithMintPrefix("_svc"),
		WithObserver(func(op Op, err error, _ time.Duration) {
			seen = append(seen, fmt.Sprintf("%s:%v", op, err != nil))
		}))
	_, err := h.Link("mk", Func(func(ctx context.Context, args []any) (any, error) {
		return []any{1}, nil
	}))
	require.NoError(t, err)

	resp := h.Handle(context.Background(), Message{Op: OpCall, Path: ParsePath("mk")})
	require.Empty(t, resp.Error)
	assert.Equal(t, "_svc1", resp.Value.Path.Root())

	h.Handle(context.Background(), Message{Op: OpGet, Path: ParsePath("nope")})
	assert.Equal(t, []string{"call:false", "get:true"}, seen)
}

func TestHostRejectsUnknownOp(t *testing.T) {
	h, _ := testHost(t)
	resp := h.Handle(context.Background(), Message{Op: "delete", Path: ParsePath("host")})
	assert.Contains(t, resp.Error, ErrMalformed.Error())
}

func TestStoreRefCycle(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(ParsePath("a"), Ref{Path: ParsePath("b")}))
	require.NoError(t, s.Set(ParsePath("b"), Ref{Path: ParsePath("a")}))

	_, err := s.Get(ParsePath("a"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSliceCannotGrow(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Set(ParsePath("xs"), []any{1}))

	require.NoError(t, s.Set(ParsePath("xs", "0"), 2))
	assert.ErrorIs(t, s.Set(ParsePath("xs", "1"), 3), ErrNotFound)

	v, err := s.Get(ParsePath("xs", "0"))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, []string{"xs"}, s.Roots())
}
