// Package main is the entry point for the sandbox server.
//
// The server runs untrusted guest programs on the step-machine interpreter
// and serves their host capabilities over the bridge:
//
//	client ──HTTP──▶ /run, /compare, /services, /runs
//	client ──WS────▶ /sessions/:id/stream   (run, append, invoke)
//	host   ──WS────▶ /sessions/:id/host     (serves remote links)
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags override the environment
//
// Example:
//
//	SANDBOX_WIRE_CODEC=proto ./server -port 8080
package main
