package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the sentinel matched by every ConfigError.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ConfigErrorCode categorizes construction errors.
type ConfigErrorCode string

const (
	// ErrCodeInvalidConfiguration indicates a depth or alphabet size below 1.
	ErrCodeInvalidConfiguration ConfigErrorCode = "INVALID_CONFIGURATION"
)

// ConfigError reports why New refused a configuration.
// It is the only error the engine ever returns: Tick and Claim are total.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Field names the offending Config field ("n", "sounds", "positions").
	Field string

	// Value is the rejected value.
	Value int

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (%s=%d)", e.Code, e.Message, e.Field, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// newConfigError creates a ConfigError for a value below its minimum.
func newConfigError(field string, value, minimum int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidConfiguration,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("%s must be >= %d", field, minimum),
	}
}
