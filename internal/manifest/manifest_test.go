package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
name: totals
payload: totals.js
services: [math]
links:
  prices: [3, 4.5, 10]
  tax: 0.2
  shop:
    name: corner
exports: [total]
calls:
  - export: total
    args: [2]
limits:
  max_steps: 1000
  timeout: 2s
`

const tomlManifest = `
name = "totals"
payload = "totals.js"
services = ["math"]
exports = ["total"]

[links]
prices = [3, 4.5, 10]
tax = 0.2

[links.shop]
name = "corner"

[[calls]]
export = "total"
args = [2]

[limits]
max_steps = 1000
timeout = "2s"
`

const jsonManifest = `{
  "name": "totals",
  "payload": "totals.js",
  "services": ["math"],
  "links": {"prices": [3, 4.5, 10], "tax": 0.2, "shop": {"name": "corner"}},
  "exports": ["total"],
  "calls": [{"export": "total", "args": [2]}],
  "limits": {"max_steps": 1000, "timeout": "2s"}
}`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", yamlManifest, FormatYAML},
		{"toml", tomlManifest, FormatTOML},
		{"json", jsonManifest, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)

			assert.Equal(t, "totals", m.Name)
			assert.Equal(t, []string{"math"}, m.Services)
			assert.Equal(t, []any{3.0, 4.5, 10.0}, m.Links["prices"])
			assert.Equal(t, 0.2, m.Links["tax"])
			assert.Equal(t, map[string]any{"name": "corner"}, m.Links["shop"])
			assert.Equal(t, []Call{{Export: "total", Args: []any{2.0}}}, m.Calls)
			assert.Equal(t, uint64(1000), m.Limits.MaxSteps)
			assert.Equal(t, "2s", m.Limits.Timeout)
			assert.Equal(t, []string{"prices", "shop", "tax"}, m.LinkNames())
			assert.Equal(t, "totals.js", m.Filename())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"no payload", `{"name": "x"}`, "no payload"},
		{"both", `{"source": "1", "payload": "a.js"}`, "both source and payload"},
		{"unexported call", `{"source": "1", "calls": [{"export": "f"}]}`, `"f" is not exported`},
		{"service collision", `{"source": "1", "services": ["math"], "links": {"math": 1}}`, "collides"},
		{"bad timeout", `{"source": "1", "limits": {"timeout": "soon"}}`, "limits.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatJSON)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadResolvesPayload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "totals.js"), []byte("function total(n) { return n; }"), 0o644))
	path := filepath.Join(dir, "run.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlManifest), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	code, err := m.Code()
	require.NoError(t, err)
	assert.Contains(t, code, "function total")
	assert.Equal(t, 2*time.Second, m.Timeout())
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := Load("run.ini")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestInlineSource(t *testing.T) {
	m, err := Parse([]byte(`{"source": "1 + 1"}`), FormatJSON)
	require.NoError(t, err)
	code, err := m.Code()
	require.NoError(t, err)
	assert.Equal(t, "1 + 1", code)
	assert.Equal(t, "main.js", m.Filename())
	assert.Zero(t, m.Timeout())
}
