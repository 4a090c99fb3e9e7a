package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/sandbox/internal/loader"
	"github.com/GriffinCanCode/sandbox/internal/manifest"
	"github.com/GriffinCanCode/sandbox/internal/providers/math"
	"github.com/GriffinCanCode/sandbox/internal/service"
)

func newRunner(t *testing.T, cfg Config) (*Runner, *monitoring.Metrics) {
	t.Helper()
	registry := service.NewRegistry()
	require.NoError(t, registry.Register(math.NewProvider()))
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return New(cfg, registry, nil).WithMetrics(metrics), metrics
}

func parse(t *testing.T, doc string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(doc), manifest.FormatJSON)
	require.NoError(t, err)
	return m
}

func TestRunOutcomes(t *testing.T) {
	r, metrics := newRunner(t, DefaultConfig())

	tests := []struct {
		name      string
		doc       string
		outcome   string
		value     any
		errSubstr string
	}{
		{"value", `{"source": "1 + 2"}`, monitoring.OutcomeOK, 3.0, ""},
		{"links", `{"source": "prices.length + tax", "links": {"prices": [1, 2], "tax": 0.5}}`, monitoring.OutcomeOK, 2.5, ""},
		{"service", `{"source": "math.mean(prices)", "services": ["math"], "links": {"prices": [2, 4]}}`, monitoring.OutcomeOK, 3.0, ""},
		{"uncaught", `{"source": "throw new RangeError('bad')"}`, monitoring.OutcomeUncaught, nil, "bad"},
		{"parse", `{"source": "var = ;"}`, monitoring.OutcomeParse, nil, "parse"},
		{"step limit", `{"source": "while (true) {}", "limits": {"max_steps": 500}}`, monitoring.OutcomeStepLimit, nil, "step limit"},
		{"timeout", `{"source": "while (true) {}", "limits": {"timeout": "20ms"}}`, monitoring.OutcomeTimeout, nil, "deadline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := r.Run(context.Background(), parse(t, tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, report.Outcome)
			if tt.errSubstr == "" {
				assert.Empty(t, report.Error)
				assert.Equal(t, tt.value, report.Value)
			} else {
				assert.Contains(t, report.Error, tt.errSubstr)
			}
			got, ok := r.Get(report.ID)
			require.True(t, ok)
			assert.Same(t, report, got)
		})
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(monitoring.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RunsTotal.WithLabelValues(monitoring.OutcomeParse)))
}

func TestRunCalls(t *testing.T) {
	r, _ := newRunner(t, DefaultConfig())
	m := parse(t, `{
		"source": "var seen = 0; function total(n) { seen++; console.log('n', n); return math.sum(prices) * n; }",
		"services": ["math"],
		"links": {"prices": [1, 2, 3]},
		"exports": ["total"],
		"calls": [{"export": "total", "args": [2]}, {"export": "total", "args": [10]}]
	}`)

	report, err := r.Run(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, monitoring.OutcomeOK, report.Outcome, report.Error)
	assert.Equal(t, 60.0, report.Value)
	require.Len(t, report.Console, 2)
	assert.Equal(t, "n 10", report.Console[1].Message)
	assert.NotEmpty(t, report.Journal)
	assert.Equal(t, "get", report.Journal[0].Op)
	assert.Positive(t, report.Steps)
}

func TestRunKeepsConsoleOnFailure(t *testing.T) {
	r, _ := newRunner(t, DefaultConfig())
	report, err := r.Run(context.Background(), parse(t, `{"source": "console.warn('before'); null.x"}`))
	require.NoError(t, err)
	assert.Equal(t, monitoring.OutcomeUncaught, report.Outcome)
	require.Len(t, report.Console, 1)
	assert.Equal(t, "before", report.Console[0].Message)
}

func TestRunThroughCodec(t *testing.T) {
	for _, codec := range []bridge.Codec{bridge.JSONCodec{}, bridge.ProtoCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Codec = codec
			r, _ := newRunner(t, cfg)
			report, err := r.Run(context.Background(), parse(t, `{"source": "math.add(box.n, 1)", "services": ["math"], "links": {"box": {"n": 41}}}`))
			require.NoError(t, err)
			assert.Equal(t, 42.0, report.Value, report.Error)
		})
	}
}

func TestRunSetupErrors(t *testing.T) {
	r, _ := newRunner(t, DefaultConfig())

	_, err := r.Run(context.Background(), parse(t, `{"source": "1", "services": ["nope"]}`))
	assert.ErrorContains(t, err, "service not found")

	_, err = r.Run(context.Background(), parse(t, `{"source": "1", "links": {"not valid": 1}}`))
	assert.ErrorContains(t, err, "not an identifier")

	_, err = r.Run(context.Background(), parse(t, `{"payload": "/nonexistent/payload.js"}`))
	assert.ErrorContains(t, err, "read payload")
}

func TestHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History = 2
	r, _ := newRunner(t, cfg)

	var first *Report
	for i := 0; i < 3; i++ {
		report, err := r.Run(context.Background(), parse(t, `{"source": "1"}`))
		require.NoError(t, err)
		if first == nil {
			first = report
		}
	}
	_, ok := r.Get(first.ID)
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.True(t, list[0].ID > list[1].ID)
	assert.Equal(t, 2, r.Stats()["kept_runs"])
}

func TestClassify(t *testing.T) {
	assert.Equal(t, monitoring.OutcomeOK, Classify(nil))
	assert.Equal(t, monitoring.OutcomeStepLimit, Classify(loader.ErrStepLimit))
	assert.Equal(t, monitoring.OutcomeTimeout, Classify(context.Canceled))
	assert.Equal(t, monitoring.OutcomeFault, Classify(errors.New("boom")))
}

func TestTighter(t *testing.T) {
	assert.Equal(t, uint64(10), tighter(10, 0))
	assert.Equal(t, uint64(5), tighter(10, 5))
	assert.Equal(t, uint64(10), tighter(10, 50))
	assert.Equal(t, uint64(50), tighter(0, 50))
}
