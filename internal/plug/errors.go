package plug

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for plug control operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConfiguration indicates invalid setup (unknown model, bad port, malformed token)
	ErrTypeConfiguration ErrorType = iota
	// ErrTypeConnection indicates the plug could not be reached or its GATT layout was wrong
	ErrTypeConnection
	// ErrTypeAuth indicates the plug never confirmed the access key
	ErrTypeAuth
	// ErrTypePairing indicates a pairing exchange failure
	ErrTypePairing
	// ErrTypeTimeout indicates the plug stopped answering mid-session
	ErrTypeTimeout
	// ErrTypeWrite indicates a characteristic write failure
	ErrTypeWrite
	// ErrTypeCanceled indicates the caller's context ended the operation
	ErrTypeCanceled
	// ErrTypeClosed indicates the plug handle was closed
	ErrTypeClosed
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConfiguration:
		return "Configuration Error"
	case ErrTypeConnection:
		return "Connection Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypePairing:
		return "Pairing Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeWrite:
		return "Write Error"
	case ErrTypeCanceled:
		return "Canceled"
	case ErrTypeClosed:
		return "Closed"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// PlugError represents an error that occurred while talking to a plug
type PlugError struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Address   string    // Device address (for context)
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *PlugError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *PlugError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *PlugError {
	return &PlugError{
		Type:      ErrTypeConfiguration,
		Message:   message,
		Retryable: false,
	}
}

// NewConnectionError creates a connection-level error
func NewConnectionError(message string, err error) *PlugError {
	return &PlugError{
		Type:      ErrTypeConnection,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string, err error) *PlugError {
	return &PlugError{
		Type:      ErrTypeAuth,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewPairingError creates a pairing error
func NewPairingError(message string, err error) *PlugError {
	return &PlugError{
		Type:      ErrTypePairing,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string, err error) *PlugError {
	return &PlugError{
		Type:      ErrTypeTimeout,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewWriteError creates a characteristic write error
func NewWriteError(message string, err error) *PlugError {
	return &PlugError{
		Type:      ErrTypeWrite,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewCanceledError creates a cancellation error wrapping the context error
func NewCanceledError(message string, err error) *PlugError {
	return &PlugError{
		Type:      ErrTypeCanceled,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewClosedError creates an error for operations on a closed plug handle
func NewClosedError(message string) *PlugError {
	return &PlugError{
		Type:      ErrTypeClosed,
		Message:   message,
		Retryable: false,
	}
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypeConfiguration
	}
	return false
}

// IsConnectionError checks if an error is a connection error
func IsConnectionError(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypeConnection
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypeAuth
	}
	return false
}

// IsPairingError checks if an error is a pairing error
func IsPairingError(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypePairing
	}
	return false
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypeTimeout
	}
	return false
}

// IsCanceled checks if an error came from context cancellation
func IsCanceled(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypeCanceled
	}
	return false
}

// IsClosed checks if an error came from a closed plug handle
func IsClosed(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Type == ErrTypeClosed
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var plugErr *PlugError
	if errors.As(err, &plugErr) {
		return plugErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	var plugErr *PlugError
	if !errors.As(err, &plugErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch plugErr.Type {
	case ErrTypeConnection:
		return strings.Join([]string{
			"Could not establish a connection to the plug.",
			"Troubleshooting:",
			"  • Move closer to the plug, BLE range is short through walls",
			"  • Close the Govee Home app, plugs accept a single connection",
			"  • Check the Bluetooth adapter is powered (bluetoothctl power on)",
			"  • Power cycle the plug at the wall",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"The plug did not accept the stored access key.",
			"Troubleshooting:",
			"  • Pair again: keys change after a factory reset",
			"  • Check the right device is stored for this address",
		}, "\n")

	case ErrTypePairing:
		return strings.Join([]string{
			"Pairing did not complete.",
			"Troubleshooting:",
			"  • Hold the plug's power button until the LED flashes",
			"  • Keep holding or re-enter pairing mode, it times out quickly",
			"  • Move closer to the plug before retrying",
		}, "\n")

	case ErrTypeTimeout:
		return strings.Join([]string{
			"The plug stopped answering mid-session.",
			"Troubleshooting:",
			"  • Move closer to the plug to improve signal strength",
			"  • Power cycle the plug at the wall",
			"  • Retry, plugs occasionally drop a session under load",
		}, "\n")

	case ErrTypeWrite:
		return strings.Join([]string{
			"Writing to the plug failed.",
			"Troubleshooting:",
			"  • The connection likely dropped, retry the command",
			"  • Move closer to the plug",
		}, "\n")

	case ErrTypeConfiguration:
		return "The device configuration is invalid. Check the error message for details."

	case ErrTypeClosed:
		return "This plug handle has been closed. Create a new one to keep controlling the device."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var plugErr *PlugError
	if !errors.As(err, &plugErr) {
		return err.Error()
	}

	switch plugErr.Type {
	case ErrTypeConnection:
		return "Plug unreachable - check range and that no app is connected"
	case ErrTypeAuth:
		return "Access key rejected - pair again"
	case ErrTypePairing:
		return "Pairing failed - is the plug in pairing mode?"
	case ErrTypeTimeout:
		return "Plug not responding (timeout)"
	case ErrTypeWrite:
		return "Write failed - connection dropped"
	case ErrTypeCanceled:
		return "Operation canceled"
	case ErrTypeClosed:
		return "Plug handle closed"
	default:
		return plugErr.Message
	}
}
