package reference

import (
	"time"
)

// Config defines reference runtime configuration
type Config struct {
	Timeout       time.Duration // Execution timeout
	EnableConsole bool          // Record console.log/warn/error
	MaxCallStack  int           // Maximum call stack depth
}

// Result holds execution result
type Result struct {
	Value    interface{}   `json:"value"`
	Console  []LogEntry    `json:"console"`
	Duration time.Duration `json:"duration"`
}

// LogEntry represents console output
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// DefaultConfig returns the configuration used by tests and the server
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		EnableConsole: true,
		MaxCallStack:  1024,
	}
}
