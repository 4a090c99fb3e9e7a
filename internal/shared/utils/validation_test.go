package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/sandbox/internal/manifest"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		required bool
		wantErr  bool
	}{
		{"ok", "math", true, false},
		{"dash", "my-service_2", true, false},
		{"empty optional", "", false, false},
		{"empty required", "", true, true},
		{"dot", "a.b", true, true},
		{"too long", strings.Repeat("a", MaxIDLength+1), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "id", tt.required)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("math", true))
	assert.NoError(t, ValidateCategory("", false))
	assert.Error(t, ValidateCategory("Math", true))
}

func TestValidateJSONDepth(t *testing.T) {
	deep := any(1.0)
	for i := 0; i < 5; i++ {
		deep = []any{deep}
	}
	assert.NoError(t, ValidateJSONDepth(deep, 5))
	assert.Error(t, ValidateJSONDepth(deep, 4))
}

func TestValidateString(t *testing.T) {
	assert.Error(t, ValidateString("a\x00b", "field", 0, 10, false))
	assert.Error(t, ValidateString("abc", "field", 5, 10, true))
	assert.NoError(t, ValidateString("héllo", "field", 1, 5, true))
}

func TestValidateManifest(t *testing.T) {
	tests := []struct {
		name    string
		m       manifest.Manifest
		wantErr string
	}{
		{"ok", manifest.Manifest{Source: "1", Services: []string{"math"}}, ""},
		{"payload", manifest.Manifest{Payload: "/etc/passwd"}, "payload files"},
		{"large source", manifest.Manifest{Source: strings.Repeat("1", MaxSourceSize+1)}, "exceeds maximum"},
		{"bad service", manifest.Manifest{Source: "1", Services: []string{"a b"}}, "invalid characters"},
		{"too many calls", manifest.Manifest{Source: "1", Calls: make([]manifest.Call, MaxCallCount+1)}, "calls exceed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManifest(&tt.m)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateSize(t *testing.T) {
	assert.NoError(t, ValidateSize([]byte("abc"), 3))
	assert.Error(t, ValidateSize([]byte("abcd"), 3))
}
