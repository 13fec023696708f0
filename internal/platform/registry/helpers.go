package registry

import (
	"fmt"
	"time"
)

// Options son los parámetros de construcción de un adapter. Las factories
// los leen con los helpers Get*Option, que nunca fallan: un valor ausente
// o de tipo incorrecto devuelve el default.
type Options map[string]any

// GetStringOption extracts a string value with a default fallback.
// Empty strings count as missing.
func GetStringOption(opts Options, key, defaultValue string) string {
	if val, ok := opts[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// GetIntOption extracts an int value with a default fallback.
// Handles both int and float64 (YAML/JSON numbers).
func GetIntOption(opts Options, key string, defaultValue int) int {
	switch val := opts[key].(type) {
	case int:
		return val
	case float64:
		return int(val)
	}
	return defaultValue
}

// GetBoolOption extracts a bool value with a default fallback.
func GetBoolOption(opts Options, key string, defaultValue bool) bool {
	if val, ok := opts[key].(bool); ok {
		return val
	}
	return defaultValue
}

// GetFloat64Option extracts a float64 value with a default fallback.
func GetFloat64Option(opts Options, key string, defaultValue float64) float64 {
	switch val := opts[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// GetDurationOption extracts a time.Duration. Accepts time.Duration,
// int (seconds) or a string parseable by time.ParseDuration.
func GetDurationOption(opts Options, key string, defaultValue time.Duration) time.Duration {
	switch val := opts[key].(type) {
	case time.Duration:
		return val
	case int:
		return time.Duration(val) * time.Second
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}

// ValidateRequiredString validates that a required string field is not empty.
func ValidateRequiredString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required and cannot be empty", fieldName)
	}
	return nil
}

// ValidateEnum validates that a string value is one of the allowed options.
func ValidateEnum(fieldName, value string, allowed []string) error {
	for _, option := range allowed {
		if value == option {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %s", fieldName, allowed, value)
}
