package system

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSystemInfo(t *testing.T) {
	sys := NewProvider(10, nil)

	result, err := sys.Execute(context.Background(), "system.info", nil)
	if err != nil || !result.Success {
		t.Fatalf("System info failed: %v", err)
	}
	if result.Data["go_version"] == nil {
		t.Error("Expected go_version in response")
	}
}

func TestSystemTime(t *testing.T) {
	sys := NewProvider(10, nil)
	sys.now = func() time.Time { return time.Unix(1700000000, 0) }

	result, err := sys.Execute(context.Background(), "system.time", nil)
	if err != nil || !result.Success {
		t.Fatalf("System time failed: %v", err)
	}
	if got := result.Data["timestamp"]; got != int64(1700000000) {
		t.Errorf("timestamp = %v", got)
	}
	if got := result.Data["iso"]; got != "2023-11-14T22:13:20Z" {
		t.Errorf("iso = %v", got)
	}
}

func TestSystemLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sys := NewProvider(2, zap.New(core))
	ctx := context.Background()

	for _, tc := range []struct{ message, level string }{
		{"first", "info"},
		{"second", "warn"},
		{"third", ""},
	} {
		result, err := sys.Execute(ctx, "system.log", map[string]any{"message": tc.message, "level": tc.level})
		if err != nil || !result.Success {
			t.Fatalf("Log %q failed: %v", tc.message, err)
		}
	}
	if logs.Len() != 3 {
		t.Errorf("expected 3 zap entries, got %d", logs.Len())
	}

	// The ring keeps the last two, newest first.
	result, err := sys.Execute(ctx, "system.logs", map[string]any{"limit": 10.0})
	if err != nil || !result.Success {
		t.Fatalf("Get logs failed: %v", err)
	}
	entries := result.Data["result"].([]any)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if msg := entries[0].(map[string]any)["message"]; msg != "third" {
		t.Errorf("newest entry = %v", msg)
	}

	result, _ = sys.Execute(ctx, "system.logs", map[string]any{"level": "warn"})
	if n := len(result.Data["result"].([]any)); n != 1 {
		t.Errorf("expected 1 warn entry, got %d", n)
	}
}

func TestSystemFailures(t *testing.T) {
	sys := NewProvider(10, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		tool   string
		params map[string]any
	}{
		{"missing message", "system.log", map[string]any{}},
		{"bad level", "system.log", map[string]any{"message": "x", "level": "loud"}},
		{"unknown tool", "system.reboot", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sys.Execute(ctx, tt.tool, tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success || result.Error == nil {
				t.Errorf("expected failure, got %+v", result)
			}
		})
	}
}

func TestRing(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Add(i)
	}
	got := r.Recent(10, nil)
	want := []int{5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("Recent = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Recent = %v, want %v", got, want)
		}
	}
	if even := r.Recent(10, func(v int) bool { return v%2 == 0 }); len(even) != 1 || even[0] != 4 {
		t.Errorf("filtered = %v", even)
	}
	if r.Len() != 3 {
		t.Errorf("Len = %d", r.Len())
	}
}
