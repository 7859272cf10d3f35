package core

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration problem with an actionable fix.
type ConfigError struct {
	Code    string // stable code for programmatic handling
	Message string
	Action  string // what the user should change
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Configuration error codes.
const (
	ErrCodeMissingConfig  = "MISSING_CONFIG"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeInvalidURL     = "INVALID_URL"
	ErrCodeUnknownBackend = "UNKNOWN_PROVIDER"
)

// ErrMissingConfig reports a required variable that is not set.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or in .env", varName),
	}
}

// ErrInvalidValue reports a variable whose value cannot be used.
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s %q: %s", varName, value, reason),
		Action:  fmt.Sprintf("Fix %s in the environment or in .env", varName),
	}
}

// ErrInvalidURL reports a malformed endpoint URL.
func ErrInvalidURL(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidURL,
		Message: fmt.Sprintf("Invalid %s URL %q: %s", varName, value, reason),
		Action:  fmt.Sprintf("Set %s to an absolute http(s) URL", varName),
	}
}

// ErrUnknownProvider reports an unsupported generation backend name.
func ErrUnknownProvider(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnknownBackend,
		Message: fmt.Sprintf("Unknown generation provider %q", name),
		Action:  "Set NFTGEN_PROVIDER to one of: local, remote, openai",
	}
}

// IsConfigError unwraps err looking for a *ConfigError.
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}
