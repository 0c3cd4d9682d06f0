package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the user.
type ErrorKind int

const (
	// KindUnknown covers anything not classified below; the original
	// error message is passed through.
	KindUnknown ErrorKind = iota

	// KindValidation is a local form validation failure. It never
	// reaches the network.
	KindValidation

	// KindServer is a non-2xx response from the backend.
	KindServer

	// KindConnectivity means no response was received (network failure
	// or timeout).
	KindConnectivity
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// User-facing messages for normalized errors.
const (
	MsgServerDefault = "An error occurred"
	MsgConnectivity  = "No response from server. Please check your connection."
)

// Error is the single error shape produced at the adapter boundary.
type Error struct {
	Kind ErrorKind

	// Status is the HTTP status code for KindServer, zero otherwise.
	Status int

	// Message is the human-readable text shown to the user.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError builds a KindValidation error with the given message.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Errors that did not pass through the
// adapter are KindUnknown.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsConnectivity reports whether err (or any error in its chain) is a
// connectivity failure.
func IsConnectivity(err error) bool {
	return KindOf(err) == KindConnectivity
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// Message returns the user-facing text for err, defaulting to the
// generic server message for nil-message errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgServerDefault
}
