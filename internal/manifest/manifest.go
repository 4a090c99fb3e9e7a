package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrNoPayload is returned when a manifest has neither source nor payload.
	ErrNoPayload = errors.New("manifest has no payload")
	// ErrUnknownFormat is returned for unsupported file extensions.
	ErrUnknownFormat = errors.New("unknown manifest format")
)

// Format is a manifest encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Call invokes an exported guest function after the payload has run.
type Call struct {
	Export string `json:"export" yaml:"export" toml:"export"`
	Args   []any  `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
}

// Limits override the server or CLI defaults for one run.
type Limits struct {
	MaxSteps uint64 `json:"max_steps,omitempty" yaml:"max_steps,omitempty" toml:"max_steps,omitempty"`
	Timeout  string `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// Manifest describes one sandbox run.
type Manifest struct {
	Name     string         `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Source   string         `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	Payload  string         `json:"payload,omitempty" yaml:"payload,omitempty" toml:"payload,omitempty"`
	Links    map[string]any `json:"links,omitempty" yaml:"links,omitempty" toml:"links,omitempty"`
	Services []string       `json:"services,omitempty" yaml:"services,omitempty" toml:"services,omitempty"`
	Exports  []string       `json:"exports,omitempty" yaml:"exports,omitempty" toml:"exports,omitempty"`
	Calls    []Call         `json:"calls,omitempty" yaml:"calls,omitempty" toml:"calls,omitempty"`
	Limits   Limits         `json:"limits,omitempty" yaml:"limits,omitempty" toml:"limits,omitempty"`

	dir string
}

// FormatOf picks the format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads and validates a manifest file. A relative payload path is
// resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	case FormatJSON:
		err = sonic.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s manifest: %w", format, err)
	}
	m.Links = normalizeMap(m.Links)
	for i := range m.Calls {
		m.Calls[i].Args = normalizeSlice(m.Calls[i].Args)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest is internally consistent.
func (m *Manifest) Validate() error {
	if m.Source == "" && m.Payload == "" {
		return ErrNoPayload
	}
	if m.Source != "" && m.Payload != "" {
		return errors.New("manifest sets both source and payload")
	}
	for _, s := range m.Services {
		if _, taken := m.Links[s]; taken {
			return fmt.Errorf("service %q collides with a link of the same name", s)
		}
	}
	exported := make(map[string]bool, len(m.Exports))
	for _, e := range m.Exports {
		exported[e] = true
	}
	for i, c := range m.Calls {
		if !exported[c.Export] {
			return fmt.Errorf("call %d: %q is not exported", i, c.Export)
		}
	}
	if m.Limits.Timeout != "" {
		if _, err := time.ParseDuration(m.Limits.Timeout); err != nil {
			return fmt.Errorf("limits.timeout: %w", err)
		}
	}
	return nil
}

// Code returns the payload source, reading the payload file if needed.
func (m *Manifest) Code() (string, error) {
	if m.Source != "" {
		return m.Source, nil
	}
	path := m.Payload
	if !filepath.IsAbs(path) && m.dir != "" {
		path = filepath.Join(m.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	return string(data), nil
}

// Filename is the name guest stack traces report for the payload.
func (m *Manifest) Filename() string {
	if m.Payload != "" {
		return filepath.Base(m.Payload)
	}
	if m.Name != "" {
		return m.Name + ".js"
	}
	return "main.js"
}

// Timeout returns the run timeout override, or zero.
func (m *Manifest) Timeout() time.Duration {
	d, _ := time.ParseDuration(m.Limits.Timeout)
	return d
}

// LinkNames returns the link names in sorted order, so link blocks are
// deterministic.
func (m *Manifest) LinkNames() []string {
	names := make([]string, 0, len(m.Links))
	for name := range m.Links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeMap converts decoder output into the shapes the bridge store
// accepts: map[string]any, []any and float64 numbers.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalizeSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch n := v.(type) {
	case map[string]any:
		return normalizeMap(n)
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		return normalizeSlice(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case time.Time:
		return n.Format(time.RFC3339Nano)
	case toml.LocalDate, toml.LocalTime, toml.LocalDateTime:
		return fmt.Sprint(n)
	}
	return v
}
