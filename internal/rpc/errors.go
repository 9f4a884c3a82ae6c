package rpc

import "errors"

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	// Standard JSON-RPC 2.0 error codes.
	ErrParseError     ErrorCode = -32700
	ErrInvalidRequest ErrorCode = -32600
	ErrMethodNotFound ErrorCode = -32601
	ErrInvalidParams  ErrorCode = -32602
	ErrInternalError  ErrorCode = -32603

	// Implementation-defined server errors (-32000 to -32099).
	ErrServerError ErrorCode = -32000
	// ErrQueueFull signals reverse-connection backpressure: the pending
	// queue is at capacity and the caller should retry later.
	ErrQueueFull ErrorCode = -32001
	// ErrNotReady signals a request was accepted and queued because the
	// handshake has not completed; it will be processed automatically.
	ErrNotReady ErrorCode = -32002
)

// Error is a JSON-RPC error object. It implements the error interface so
// handlers can return it directly.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a JSON-RPC error.
func NewError(code ErrorCode, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// CodeOf extracts the JSON-RPC code from an error, or ErrInternalError when
// the error is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternalError
}

// IsCode reports whether err is a JSON-RPC error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
