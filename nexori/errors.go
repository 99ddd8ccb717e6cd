package nexori

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// Protocol Errors (from server error frames)
	ErrorUnknown ErrorCode = iota
	ErrorUnauthorized
	ErrorInvalidMessage
	ErrorBadRequest
	ErrorRoomNotFound
	ErrorAccessDenied
	ErrorRateLimited
	ErrorInternalServer

	// Client-side Errors
	ErrorMissingCredential
	ErrorTimeout
	ErrorTransport
	ErrorServerDisconnected
	ErrorReconnectFailed
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorHandlerPanic
	ErrorStaleUpdate
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorInvalidMessage:
		return "invalid_message"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorRoomNotFound:
		return "room_not_found"
	case ErrorAccessDenied:
		return "access_denied"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorMissingCredential:
		return "missing_credential"
	case ErrorTimeout:
		return "timeout"
	case ErrorTransport:
		return "transport_error"
	case ErrorServerDisconnected:
		return "server_disconnected"
	case ErrorReconnectFailed:
		return "reconnect_failed"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorHandlerPanic:
		return "handler_panic"
	case ErrorStaleUpdate:
		return "stale_update"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode converts a protocol error code string to ErrorCode.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "unauthorized":
		return ErrorUnauthorized
	case "invalid_message":
		return ErrorInvalidMessage
	case "bad_request":
		return ErrorBadRequest
	case "room_not_found":
		return ErrorRoomNotFound
	case "access_denied":
		return ErrorAccessDenied
	case "rate_limited":
		return ErrorRateLimited
	case "internal_error":
		return ErrorInternalServer
	default:
		return ErrorUnknown
	}
}

// NexoriError is a structured error with code and context.
type NexoriError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *NexoriError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *NexoriError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface for error comparison.
// Two NexoriErrors match when their codes match.
func (e *NexoriError) Is(target error) bool {
	t, ok := target.(*NexoriError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors for errors.Is checks.
var (
	ErrMissingCredential  = NewError(ErrorMissingCredential, "no credential available")
	ErrTimeout            = NewError(ErrorTimeout, "handshake deadline exceeded")
	ErrTransport          = NewError(ErrorTransport, "transport error")
	ErrServerDisconnected = NewError(ErrorServerDisconnected, "server closed the session")
	ErrReconnectFailed    = NewError(ErrorReconnectFailed, "reconnect attempts exhausted")
	ErrNotConnected       = NewError(ErrorNotConnected, "not connected")
)

// NewError creates a new NexoriError with the given code and message.
func NewError(code ErrorCode, message string) *NexoriError {
	return &NexoriError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a NexoriError.
func WrapError(code ErrorCode, message string, err error) *NexoriError {
	return &NexoriError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// FromProtocolError converts a protocol Error to NexoriError.
func FromProtocolError(e *Error) *NexoriError {
	if e == nil {
		return nil
	}
	return &NexoriError{
		Code:    ParseErrorCode(e.Code),
		Message: e.Msg,
	}
}

// IsProtocolError checks if an error is a protocol error (from server).
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var ne *NexoriError
	if !errors.As(err, &ne) {
		return false
	}
	return ne.Code >= ErrorUnauthorized && ne.Code <= ErrorInternalServer
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ne *NexoriError
	if !errors.As(err, &ne) {
		return false
	}
	switch ne.Code {
	case ErrorTransport, ErrorServerDisconnected, ErrorTimeout, ErrorReconnectFailed:
		return true
	default:
		return false
	}
}
