package reference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeExecution(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)
	defer rt.Close()

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{name: "arithmetic", script: "1 + 2", want: int64(3)},
		{name: "string", script: "'hello'.toUpperCase()", want: "HELLO"},
		{name: "json", script: "JSON.stringify({b: 1, a: [true, null]})", want: `{"b":1,"a":[true,null]}`},
		{name: "undefined", script: "undefined", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rt.Execute(context.Background(), tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestRuntimeConsole(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)
	defer rt.Close()

	res, err := rt.Execute(context.Background(), "console.log('a', 1); console.warn('b')")
	require.NoError(t, err)
	assert.Equal(t, []LogEntry{{Level: "log", Message: "a 1"}, {Level: "warn", Message: "b"}}, res.Console)
}

func TestRuntimeRemovesHostGlobals(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)
	defer rt.Close()

	for _, name := range []string{"require", "process", "module", "exports"} {
		res, err := rt.Execute(context.Background(), "typeof "+name)
		require.NoError(t, err)
		assert.Equal(t, "undefined", res.Value, name)
	}
}

func TestRuntimeTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	rt, err := New(config)
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Execute(context.Background(), "for (;;) {}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInterrupted))

	// The VM stays usable after an interrupt.
	res, err := rt.Execute(context.Background(), "40 + 2")
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Value)
}

func TestPoolResetsBetweenUses(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 1)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Execute(context.Background(), "var leaked = 1")
	require.NoError(t, err)

	res, err := pool.Execute(context.Background(), "typeof leaked")
	require.NoError(t, err)
	assert.Equal(t, "undefined", res.Value)

	stats := pool.Stats()
	assert.Equal(t, 1, stats["available"])
}

func TestPoolClosed(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), 2)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}
