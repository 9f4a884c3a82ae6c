package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure. Transports map kinds onto their own
// wire conventions (HTTP status vs embedded body, JSON-RPC code vs tool
// error content).
type Kind int

const (
	// KindUnknownAction: no handler matches the normalized action name.
	KindUnknownAction Kind = iota
	// KindMissingParameter: a required field is absent. Only package name
	// and input text are required; numeric params default to zero.
	KindMissingParameter
	// KindOperationFailed: the device call reported failure.
	KindOperationFailed
	// KindMalformedInput: unparseable body, base64, or JSON.
	KindMalformedInput
	// KindTimeout: a wait condition was not met in time.
	KindTimeout
)

// Error is a classified dispatch failure. No handler panic or device error
// ever crosses the dispatcher boundary as anything but one of these.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func unknownAction(name string) *Error {
	return &Error{Kind: KindUnknownAction, Message: fmt.Sprintf("unknown action %q", name)}
}

func missingParam(name string) *Error {
	return &Error{Kind: KindMissingParameter, Message: fmt.Sprintf("missing required parameter %q", name)}
}

func operationFailed(err error) *Error {
	return &Error{Kind: KindOperationFailed, Message: err.Error()}
}

func malformedInput(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, or KindOperationFailed for
// errors that are not a dispatch *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOperationFailed
}
