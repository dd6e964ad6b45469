// Package domainerrors defines the coded errors surfaced across service
// boundaries. Stores return sentinel errors (pkg/platform/sentinel) for
// infrastructure facts; services translate those into coded errors here, and
// the HTTP layer maps codes to statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and logging.
type Code string

const (
	// CodeBadRequest covers malformed or missing input.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound covers a missing record or a program-scope mismatch.
	CodeNotFound Code = "not_found"
	// CodeOrgNotFound covers a non-organization association attempted against
	// an organization that does not exist in the caller's program.
	CodeOrgNotFound Code = "organization_not_found"
	// CodeConflict covers uniqueness violations (duplicate value).
	CodeConflict Code = "duplicate_value"
	// CodeUnauthorized covers failed authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal covers persistence and other unexpected failures. Always
	// implies the enclosing transaction rolled back.
	CodeInternal Code = "persistence_error"
	// CodeTimeout covers cancelled or deadline-exceeded operations.
	CodeTimeout Code = "timeout"
)

// Error carries a stable code plus a human-readable detail. The detail never
// references internal values created before a rollback.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal so unexpected
// failures never leak as anything more specific.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing detail from err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// HTTPStatus maps a code to its transport status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound, CodeOrgNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
