package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
)

func request(b *Breaker, success bool) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}
	done(success)
	return nil
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name:          "stays closed on successes",
			settings:      Settings{Timeout: time.Minute},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				Timeout:     time.Minute,
				ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 3 },
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure run",
			settings: Settings{
				Timeout:     time.Minute,
				ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
			},
			requests:      []bool{false, true, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)
			for _, success := range tt.requests {
				_ = request(breaker, success)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{})

	require.NoError(t, request(breaker, true))
	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	require.NoError(t, request(breaker, false))
	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerHalfOpen(t *testing.T) {
	var transitions []string
	breaker := New("test", Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 2 },
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = request(breaker, false)
	_ = request(breaker, false)
	assert.Equal(t, StateOpen, breaker.State())
	assert.ErrorIs(t, request(breaker, true), ErrCircuitOpen)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	done1, err := breaker.Allow()
	require.NoError(t, err)
	done2, err := breaker.Allow()
	require.NoError(t, err)
	_, err = breaker.Allow()
	assert.ErrorIs(t, err, ErrTooManyRequests)
	done1(true)
	done2(true)

	assert.Equal(t, StateClosed, breaker.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("test", Settings{
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool { return counts.ConsecutiveFailures >= 1 },
	})
	_ = request(breaker, false)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())
	require.NoError(t, request(breaker, false))
	assert.Equal(t, StateOpen, breaker.State())
}

type flaky struct {
	err  error
	resp bridge.Response
	hits int
}

func (f *flaky) RoundTrip(ctx context.Context, m bridge.Message) (bridge.Response, error) {
	f.hits++
	return f.resp, f.err
}

func TestTransport(t *testing.T) {
	trip := func(c Counts) bool { return c.ConsecutiveFailures >= 2 }

	t.Run("host errors do not trip", func(t *testing.T) {
		next := &flaky{resp: bridge.Response{Error: "not exposed"}}
		guard := Guard(next, New("host", Settings{ReadyToTrip: trip}))
		for i := 0; i < 5; i++ {
			resp, err := guard.RoundTrip(context.Background(), bridge.Message{ID: "x"})
			require.NoError(t, err)
			assert.Equal(t, "not exposed", resp.Error)
		}
		assert.Equal(t, StateClosed, guard.Breaker().State())
	})

	t.Run("transport errors trip", func(t *testing.T) {
		next := &flaky{err: errors.New("connection reset")}
		guard := Guard(next, New("host", Settings{ReadyToTrip: trip, Timeout: time.Minute}))
		for i := 0; i < 2; i++ {
			_, err := guard.RoundTrip(context.Background(), bridge.Message{ID: "x"})
			assert.ErrorContains(t, err, "connection reset")
		}
		_, err := guard.RoundTrip(context.Background(), bridge.Message{ID: "x"})
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, 2, next.hits)
	})
}
