package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/sandbox/internal/manifest"
)

// Size limits (in bytes)
const (
	MaxRequestSize = 1 * 1024 * 1024 // 1MB - maximum request body
	MaxSourceSize  = 256 * 1024      // 256KB - payload or appended source
	MaxFrameSize   = 512 * 1024      // 512KB - one websocket frame
)

// Structural limits
const (
	MaxLinkDepth   = 32
	MaxIDLength    = 128
	MaxNameLength  = 256
	MaxQueryLength = 256
	MaxCallCount   = 64
	MaxCategoryLen = 64
)

var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// CategoryPattern allows lowercase letters, numbers and hyphens
	CategoryPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ValidateSize checks a body against a byte limit.
func ValidateSize(data []byte, max int) error {
	if len(data) > max {
		return fmt.Errorf("body size %d bytes exceeds maximum %d bytes", len(data), max)
	}
	return nil
}

// ValidateJSONDepth checks nesting depth of decoded JSON.
func ValidateJSONDepth(data any, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data any, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}
	switch v := data.(type) {
	case map[string]any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []any:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateID validates an ID field
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}
	return nil
}

// ValidateCategory validates a category filter
func ValidateCategory(category string, required bool) error {
	if err := ValidateString(category, "category", 0, MaxCategoryLen, required); err != nil {
		return err
	}
	if category != "" && !CategoryPattern.MatchString(category) {
		return fmt.Errorf("category must contain only lowercase letters, numbers, and hyphens")
	}
	return nil
}

// ValidateSource checks guest source text.
func ValidateSource(src, fieldName string) error {
	if len(src) > MaxSourceSize {
		return fmt.Errorf("%s size %d bytes exceeds maximum %d bytes", fieldName, len(src), MaxSourceSize)
	}
	if !utf8.ValidString(src) {
		return fmt.Errorf("%s is not valid UTF-8", fieldName)
	}
	return nil
}

// ValidateManifest applies request limits to a manifest received over the
// network. Remote manifests must be inline: a payload path would read the
// server's filesystem.
func ValidateManifest(m *manifest.Manifest) error {
	if m.Payload != "" {
		return fmt.Errorf("payload files are not accepted over the network; use source")
	}
	if err := ValidateString(m.Name, "name", 0, MaxNameLength, false); err != nil {
		return err
	}
	if err := ValidateSource(m.Source, "source"); err != nil {
		return err
	}
	for _, s := range m.Services {
		if err := ValidateID(s, "service", true); err != nil {
			return err
		}
	}
	for name, v := range m.Links {
		if err := ValidateJSONDepth(v, MaxLinkDepth); err != nil {
			return fmt.Errorf("link %s: %w", name, err)
		}
	}
	if len(m.Calls) > MaxCallCount {
		return fmt.Errorf("%d calls exceed maximum %d", len(m.Calls), MaxCallCount)
	}
	return nil
}
