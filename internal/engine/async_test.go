package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
)

func withAsync(name string, fn AsyncFunc) Option {
	return WithInit(func(in *Interpreter, global *Object) error {
		in.SetGlobal(name, ObjectValue(in.NewAsync(name, 1, fn)))
		return nil
	})
}

func TestAsyncNativeSuspends(t *testing.T) {
	release := make(chan struct{})
	opt := withAsync("fetch", func(in *Interpreter, c Call, done Callback) {
		arg := in.ToString(c.Arg(0))
		go func() {
			<-release
			done(String("got "+arg), nil)
		}()
	})

	in, err := New("var r = fetch('key'); r + '!';", opt)
	require.NoError(t, err)

	paused, err := in.Run()
	require.NoError(t, err)
	require.True(t, paused)
	assert.True(t, in.Paused())

	// Stepping while suspended makes no progress.
	steps := in.Steps()
	more, err := in.Step()
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, steps, in.Steps())

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, in.Await(ctx))
	runToEnd(t, in)
	assert.Equal(t, "got key!", in.Value().Export())
}

func TestAsyncSynchronousCallback(t *testing.T) {
	opt := withAsync("now", func(in *Interpreter, c Call, done Callback) {
		done(Number(42), nil)
	})
	in, err := New("now() + 1;", opt)
	require.NoError(t, err)

	paused, err := in.Run()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, 43.0, in.Value().Export())
}

func TestAsyncErrorIsCatchable(t *testing.T) {
	opt := withAsync("load", func(in *Interpreter, c Call, done Callback) {
		go done(Undefined(), in.Errorf(RangeError, "too far"))
	})
	got := eval(t, "var r; try { load(); } catch (e) { r = e.name + ':' + e.message; } r;", opt)
	assert.Equal(t, "RangeError:too far", got)
}

func TestHostResume(t *testing.T) {
	opt := withAsync("pending", func(*Interpreter, Call, Callback) {})

	t.Run("value", func(t *testing.T) {
		in, err := New("pending() * 2;", opt)
		require.NoError(t, err)
		paused, err := in.Run()
		require.NoError(t, err)
		require.True(t, paused)

		require.NoError(t, in.Resume(Number(21)))
		runToEnd(t, in)
		assert.Equal(t, 42.0, in.Value().Export())
	})

	t.Run("throw", func(t *testing.T) {
		in, err := New("var r; try { pending(); } catch (e) { r = 'caught ' + e; } r;", opt)
		require.NoError(t, err)
		_, err = in.Run()
		require.NoError(t, err)

		require.NoError(t, in.ResumeThrow(String("denied")))
		runToEnd(t, in)
		assert.Equal(t, "caught denied", in.Value().Export())
	})

	t.Run("uncaught throw fails", func(t *testing.T) {
		in, err := New("pending();", opt)
		require.NoError(t, err)
		_, err = in.Run()
		require.NoError(t, err)

		err = in.ResumeThrow(String("boom"))
		var uncaught *UncaughtError
		require.ErrorAs(t, err, &uncaught)
		assert.Equal(t, "boom", uncaught.Message)
	})
}

func TestLateCallbackAfterResume(t *testing.T) {
	var callbacks []Callback
	opt := withAsync("pending", func(_ *Interpreter, _ Call, done Callback) {
		callbacks = append(callbacks, done)
	})
	in, err := New("var a = pending(); var b = pending(); a + ':' + b;", opt)
	require.NoError(t, err)

	paused, err := in.Run()
	require.NoError(t, err)
	require.True(t, paused)
	require.NoError(t, in.Resume(String("first")))

	// the first call's own callback fires after the host already answered
	callbacks[0](String("stale"), nil)

	paused, err = in.Run()
	require.NoError(t, err)
	require.True(t, paused)
	require.Len(t, callbacks, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, in.Await(ctx), context.DeadlineExceeded)
	assert.True(t, in.Paused())

	callbacks[1](String("second"), nil)
	require.NoError(t, in.Await(context.Background()))
	runToEnd(t, in)
	assert.Equal(t, "first:second", in.Value().Export())
}

func TestResumeWithoutSuspension(t *testing.T) {
	in, err := New("1;")
	require.NoError(t, err)
	assert.ErrorIs(t, in.Resume(Undefined()), ErrNotSuspended)
	assert.ErrorIs(t, in.Await(context.Background()), ErrNotSuspended)
}

func TestPatternTimeout(t *testing.T) {
	opt := WithPatterns(pattern.Config{Mode: pattern.Worker, Timeout: 50 * time.Millisecond})
	start := time.Now()
	got := eval(t, `var r;
		try { /(a+)+$/.test("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa!"); r = "finished"; }
		catch (e) { r = e.name; }
		r;`, opt)
	assert.Equal(t, "TimeoutFault", got)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPatternModes(t *testing.T) {
	tests := []struct {
		name string
		mode pattern.Mode
		want any
	}{
		{name: "disallowed", mode: pattern.Disallowed, want: "Error:Regular expressions are disabled"},
		{name: "direct", mode: pattern.Direct, want: "ok:true"},
		{name: "worker", mode: pattern.Worker, want: "ok:true"},
	}
	src := `var r;
		try { r = "ok:" + /b/.test("abc"); } catch (e) { r = e.name + ":" + e.message; }
		r;`
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := WithPatterns(pattern.Config{Mode: tt.mode, Timeout: time.Second})
			assert.Equal(t, tt.want, eval(t, src, opt))
		})
	}
}
