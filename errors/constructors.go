package errors

import (
	"fmt"
	"os"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *Error {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ProjectNotFound creates a project not found error
func ProjectNotFound(projectPath string) *Error {
	return New(ErrCodeProjectNotFound, fmt.Sprintf("no Claude Code project found for '%s'", projectPath)).
		WithDetail("projectPath", projectPath)
}

// SessionNotFound creates a session not found error
func SessionNotFound(projectPath, sessionID string) *Error {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session '%s' not found", sessionID)).
		WithDetail("projectPath", projectPath).
		WithDetail("sessionId", sessionID)
}

// ScanTimeout creates a line scan timeout error
func ScanTimeout(path string, timeout time.Duration) *Error {
	return New(ErrCodeScanTimeout,
		fmt.Sprintf("scanning '%s' did not finish within %s", path, timeout)).
		WithDetail("path", path).
		WithDetail("timeout", timeout.String())
}

// ReadFailed creates a read failure error. Permission problems get their own
// code so callers can tell them apart from corrupt input.
func ReadFailed(path string, err error) *Error {
	code := ErrCodeReadFailed
	if os.IsPermission(err) {
		code = ErrCodePermissionDenied
	}
	return Wrap(err, code, fmt.Sprintf("failed to read %s", path)).
		WithDetail("path", path)
}

// InvalidInput creates an invalid input error
func InvalidInput(field string, value interface{}, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field).
		WithDetail("value", value)
}

// Internal wraps an unexpected environment failure
func Internal(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
