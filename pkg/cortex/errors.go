package cortex

import (
	"fmt"
	"strings"
)

// ConfigError represents an error in connection configuration
type ConfigError struct {
	Fields  []string // Settings that failed to resolve
	Message string   // Error description
	Cause   error    // Underlying error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	var msg string
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("config error in %s: %s", strings.Join(e.Fields, ", "), e.Message)
	} else {
		msg = fmt.Sprintf("config error: %s", e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, cause error, fields ...string) *ConfigError {
	return &ConfigError{
		Fields:  fields,
		Message: message,
		Cause:   cause,
	}
}

// QueryError wraps a failure reported by the session while running a Cortex call.
// The vendor error is kept intact and reachable through Unwrap.
type QueryError struct {
	Model    string
	Function string
	Err      error
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return fmt.Sprintf("cortex %s(%s): %v", e.Function, e.Model, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *QueryError) Unwrap() error {
	return e.Err
}

// ResponseError is returned when Cortex replies with a payload that cannot be read
type ResponseError struct {
	Message string
	Raw     string
}

// Error implements the error interface
func (e *ResponseError) Error() string {
	return "invalid cortex response: " + e.Message
}
