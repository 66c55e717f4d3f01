// Package domainerrors provides coded errors for service boundaries.
//
// Services wrap store sentinels and collaborator failures into a Code so
// handlers can translate uniformly to HTTP statuses and callers can branch on
// the class of failure without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks a malformed input (missing required fields for
	// the store type, bad enum value).
	CodeValidation Code = "validation"
	// CodeBadRequest marks an unparseable or structurally invalid request.
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a storage uniqueness violation that could not be
	// recovered locally.
	CodeConflict Code = "conflict"
	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"
	// CodeProvider marks a failure in an external provider
	// (reverse geocoding, place lookup).
	CodeProvider Code = "provider_error"
	// CodeCapability marks an absent or denied device capability
	// (geolocation unsupported, permission denied, timeout).
	CodeCapability Code = "capability_error"
	// CodeInternal marks an unexpected failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode, matching the call sites that read better as
// dErrors.Is(err, dErrors.CodeBadRequest).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeProvider:
		return http.StatusBadGateway
	case CodeCapability:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
