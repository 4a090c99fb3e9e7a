// Package config provides 12-factor configuration for the sandbox service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Sandbox: pattern mode, polyfill budget, run limits and wire codec
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	opts, err := cfg.Sandbox.Options()
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SANDBOX_PATTERN_MODE, SANDBOX_PATTERN_TIMEOUT, SANDBOX_POLYFILL_BUDGET
//   - SANDBOX_RUN_TIMEOUT, SANDBOX_MAX_STEPS, SANDBOX_WIRE_CODEC
package config
