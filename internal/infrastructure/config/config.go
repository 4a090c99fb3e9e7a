package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/sandbox/internal/bridge"
	"github.com/GriffinCanCode/sandbox/internal/engine/pattern"
	"github.com/GriffinCanCode/sandbox/internal/loader"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Sandbox   SandboxConfig
	Session   SessionConfig
	Reference ReferenceConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SandboxConfig holds interpreter and bridge settings for hosted runs.
type SandboxConfig struct {
	PatternMode    string        `envconfig:"SANDBOX_PATTERN_MODE" default:"worker"`
	PatternTimeout time.Duration `envconfig:"SANDBOX_PATTERN_TIMEOUT" default:"1s"`
	// PolyfillBudget is the wall clock a polyfill may run per step. Zero
	// means one micro-step, negative means no limit.
	PolyfillBudget time.Duration `envconfig:"SANDBOX_POLYFILL_BUDGET" default:"1s"`
	RunTimeout     time.Duration `envconfig:"SANDBOX_RUN_TIMEOUT" default:"5s"`
	MaxSteps       uint64        `envconfig:"SANDBOX_MAX_STEPS" default:"5000000"`
	WireCodec      string        `envconfig:"SANDBOX_WIRE_CODEC" default:"json"`
}

// SessionConfig holds interactive session limits.
type SessionConfig struct {
	MaxSessions  int           `envconfig:"SESSION_MAX" default:"64"`
	TTL          time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	ReapInterval time.Duration `envconfig:"SESSION_REAP_INTERVAL" default:"1m"`
	// Loopback encodes local bridge traffic with the wire codec too.
	Loopback bool `envconfig:"SESSION_LOOPBACK" default:"false"`
	// HostFailures consecutive transport errors open a remote host's
	// circuit for HostCooldown.
	HostFailures uint32        `envconfig:"SESSION_HOST_FAILURES" default:"5"`
	HostCooldown time.Duration `envconfig:"SESSION_HOST_COOLDOWN" default:"10s"`
}

// ReferenceConfig holds the differential reference runtime settings.
type ReferenceConfig struct {
	Enabled  bool `envconfig:"REFERENCE_ENABLED" default:"true"`
	PoolSize int  `envconfig:"REFERENCE_POOL_SIZE" default:"4"`
}

// Options converts the sandbox section to loader options.
func (s SandboxConfig) Options() (loader.Options, error) {
	mode, err := pattern.ParseMode(s.PatternMode)
	if err != nil {
		return loader.Options{}, err
	}
	o := loader.DefaultOptions()
	o.Patterns = pattern.Config{Mode: mode, Timeout: s.PatternTimeout}
	o.PolyfillBudget = s.PolyfillBudget
	o.MaxSteps = s.MaxSteps
	return o, nil
}

// Codec returns the configured wire codec.
func (s SandboxConfig) Codec() (bridge.Codec, error) {
	return bridge.CodecFor(s.WireCodec)
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if _, err := c.Sandbox.Options(); err != nil {
		return err
	}
	if _, err := c.Sandbox.Codec(); err != nil {
		return err
	}
	if c.Sandbox.RunTimeout <= 0 {
		return fmt.Errorf("SANDBOX_RUN_TIMEOUT must be positive, got %s", c.Sandbox.RunTimeout)
	}
	if c.Session.TTL <= 0 || c.Session.ReapInterval <= 0 {
		return fmt.Errorf("SESSION_TTL and SESSION_REAP_INTERVAL must be positive")
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sandbox: SandboxConfig{
			PatternMode:    "worker",
			PatternTimeout: time.Second,
			PolyfillBudget: time.Second,
			RunTimeout:     5 * time.Second,
			MaxSteps:       5_000_000,
			WireCodec:      "json",
		},
		Session: SessionConfig{
			MaxSessions:  64,
			TTL:          30 * time.Minute,
			ReapInterval: time.Minute,
			HostFailures: 5,
			HostCooldown: 10 * time.Second,
		},
		Reference: ReferenceConfig{
			Enabled:  true,
			PoolSize: 4,
		},
	}
}
