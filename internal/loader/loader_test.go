package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine"
)

func hostValue() map[string]any {
	return map[string]any{
		"a": 1,
		"add": bridge.Func(func(ctx context.Context, args []any) (any, error) {
			return args[0].(float64) + args[1].(float64), nil
		}),
		"point": bridge.Func(func(ctx context.Context, args []any) (any, error) {
			return map[string]any{"x": 1.0}, nil
		}),
		"deny": bridge.Func(func(ctx context.Context, args []any) (any, error) {
			return nil, errors.New("denied")
		}),
	}
}

func run(t *testing.T, src string, opts ...Option) (*Program, any) {
	t.Helper()
	p, err := New(src, opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	v, err := p.RunContext(ctx)
	require.NoError(t, err)
	return p, v.Export()
}

func ops(journal []bridge.Message) []string {
	out := make([]string, len(journal))
	for i, m := range journal {
		out[i] = string(m.Op) + " " + m.Path.String()
	}
	return out
}

func TestCallThroughBridge(t *testing.T) {
	p, v := run(t, "host.add(2, 3);", WithValue("host", hostValue()))

	assert.Equal(t, 5.0, v)
	assert.Equal(t, []string{"get host.add", "call host.add"}, ops(p.Journal()))
}

func TestGuestPrograms(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    any
		journal int
	}{
		{name: "primitive read", src: "host.a + 1;", want: 2.0, journal: 1},
		{name: "unadvertised key stays local", src: "typeof host.c;", want: "undefined", journal: 0},
		{name: "keys are enumerable", src: "Object.keys(host).join(',');", want: "a,add,deny,point", journal: 0},
		{name: "host error is catchable", src: "try { host.deny(); } catch (e) { e.name + ': ' + e.message; }", want: "BridgeFault: bridge call host.deny: denied", journal: 2},
		{
			name:    "forged path is refused",
			src:     "try { __bridgeGet(['secret']); 'leaked'; } catch (e) { e.name; }",
			want:    "BridgeFault",
			journal: 1,
		},
		{
			name:    "guest functions do not cross",
			src:     "try { host.add(function () {}, 1); } catch (e) { e.name; }",
			want:    "TypeError",
			journal: 1,
		},
		{
			name:    "call results are fresh references",
			src:     "var f = host.point; var p = f(), q = f(); [p === q, p.x, q.x].join(' ');",
			want:    "false 1 1",
			journal: 5,
		},
		{name: "stubs remember their path", src: "typeof host.point;", want: "function", journal: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, v := run(t, tt.src, WithValue("host", hostValue()))
			assert.Equal(t, tt.want, v)
			assert.Len(t, p.Journal(), tt.journal)
		})
	}
}

func TestGuestWritesReachHost(t *testing.T) {
	p, _ := run(t, "host.a = {n: [1, 2]}; host.a = 7;", WithValue("host", hostValue()))

	v, err := p.Host().Store().Get(bridge.ParsePath("host", "a"))
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, []string{"set host.a", "set host.a"}, ops(p.Journal()))

	p, _ = run(t, "host.a = {n: [1, 2]};", WithValue("host", hostValue()))
	v, err = p.Host().Store().Get(bridge.ParsePath("host", "a"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": []any{1.0, 2.0}}, v)
}

func TestPrimitiveLinksAreCopies(t *testing.T) {
	p, v := run(t, "limit * 2 + name.length;", WithValue("limit", 10), WithValue("name", "abc"))

	assert.Equal(t, 23.0, v)
	assert.Empty(t, p.Journal())
}

func TestLoopbackTransport(t *testing.T) {
	for _, c := range []bridge.Codec{bridge.JSONCodec{}, bridge.ProtoCodec{}} {
		t.Run(c.Name(), func(t *testing.T) {
			h := bridge.NewHost(bridge.NewStore())
			_, v := run(t, "host.add(host.a, 41);",
				WithHost(h),
				WithTransport(bridge.Loopback{Host: h, Codec: c}),
				WithValue("host", hostValue()))
			assert.Equal(t, 42.0, v)
		})
	}
}

func TestRemoteTransportWaitsOffThread(t *testing.T) {
	h := bridge.NewHost(bridge.NewStore())
	var remote *bridge.Remote
	remote = bridge.NewRemote(bridge.JSONCodec{}, func(data []byte) error {
		go func() {
			m, err := bridge.JSONCodec{}.DecodeMessage(data)
			if err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
			out, _ := bridge.JSONCodec{}.EncodeResponse(h.Handle(context.Background(), m))
			_ = remote.Deliver(out)
		}()
		return nil
	})

	_, v := run(t, "var s = 0; for (var i = 0; i < 3; i++) { s += host.add(i, 1); } s;",
		WithHost(h), WithTransport(remote), WithValue("host", hostValue()))
	assert.Equal(t, 6.0, v)
}

func TestRunContextCancelled(t *testing.T) {
	silent := bridge.NewRemote(bridge.JSONCodec{}, func([]byte) error { return nil })
	p, err := New("host.a;", WithTransport(silent), WithLink("host", bridge.Reference(bridge.ParsePath("host"), []string{"a"}, false)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.RunContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStepLimit(t *testing.T) {
	o := DefaultOptions()
	o.MaxSteps = 1000
	p, err := New("while (true) {}", WithOptions(o))
	require.NoError(t, err)

	_, err = p.RunContext(context.Background())
	assert.ErrorIs(t, err, ErrStepLimit)
}

func TestUncaughtError(t *testing.T) {
	p, err := New("host.deny();", WithValue("host", hostValue()))
	require.NoError(t, err)

	_, err = p.RunContext(context.Background())
	var uncaught *engine.UncaughtError
	require.ErrorAs(t, err, &uncaught)
	assert.Contains(t, uncaught.Message, "denied")
}

func TestInvalidLinkName(t *testing.T) {
	_, err := New("1;", WithValue("not-a-name", 1))
	assert.Error(t, err)
	_, err = New("1;", WithValue("var", 1))
	assert.Error(t, err)
}

func TestCompile(t *testing.T) {
	sink := map[string]any{"last": "", "count": 0.0}
	c, err := Compile(context.Background(),
		[]string{"sink"}, []any{sink},
		"function record(e) { sink.last = e.kind; sink.count = sink.count + 1; } function helper() {}",
		[]string{"record"})
	require.NoError(t, err)
	defer c.Close()

	record := c.Exports["record"]
	require.NotNil(t, record)
	require.NoError(t, record(context.Background(), map[string]any{"kind": "click"}))
	require.NoError(t, record(context.Background(), map[string]any{"kind": "key"}))

	assert.Equal(t, "key", sink["last"])
	assert.Equal(t, 2.0, sink["count"])
	assert.NotContains(t, c.Exports, "helper")
}

func TestCompileRejectsMissingExport(t *testing.T) {
	_, err := Compile(context.Background(), nil, nil, "var record = 1;", []string{"record"})
	assert.Error(t, err)

	_, err = Compile(context.Background(), []string{"a"}, nil, "1;", nil)
	assert.Error(t, err)
}

func TestExportCompletionValue(t *testing.T) {
	ctx := context.Background()
	p, err := New("function twice(n) { return n * 2; }")
	require.NoError(t, err)
	defer p.Close()
	_, err = p.RunContext(ctx)
	require.NoError(t, err)

	twice, err := p.Export("twice")
	require.NoError(t, err)
	require.NoError(t, twice(ctx, 21.0))
	assert.Equal(t, 42.0, p.Interpreter().Value().Export())

	_, err = p.Export("missing")
	assert.Error(t, err)
	_, err = p.Export("var")
	assert.Error(t, err)
}

func TestLinkBlock(t *testing.T) {
	block, err := linkBlock([]Link{
		{Name: "n", Value: bridge.Primitive(1.5)},
		{Name: "u", Value: bridge.Undefined()},
		{Name: "s", Value: bridge.Primitive(`a"b`)},
		{Name: "f", Value: bridge.Reference(bridge.Path{bridge.Key("svc"), bridge.Index(2)}, []string{"x"}, true)},
	})
	require.NoError(t, err)
	assert.Equal(t, "var n = (1.5);\nvar u = undefined;\nvar s = (\"a\\\"b\");\nvar f = __link([\"svc\",2], [\"x\"], true);\n", block)
}
