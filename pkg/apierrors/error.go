package apierrors

import (
	"fmt"
	"net/http"
)

// Error is a typed, wrapped error carrying enough context to render an
// ErrorEnvelope and pick an HTTP status without string-sniffing.
type Error struct {
	Type    Code
	Message string
	Cause   error
}

// NewError builds an *Error of the given type.
func NewError(t Code, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Envelope renders the error as an ErrorEnvelope.
func (e *Error) Envelope() Envelope {
	return Failure(e.Type, e.Message, nil)
}

// httpStatus maps a symbolic error_code to the HTTP status spec §6 assigns
// it. Unknown codes (e.g. a domain "<OP>_FAILED") default to 500.
func httpStatus(code Code) int {
	switch code {
	case CodeValidationError, CodeMissingParameter, CodeInvalidParameter:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeGroupNotFound, CodeNoRoute, CodeUnknownTool:
		return http.StatusNotFound
	case CodeRequestTimeout:
		return http.StatusRequestTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeQueueFull, CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeCommandInjection, CodePathTraversal:
		return http.StatusBadRequest
	case CodeEmptyResponse, CodeInvalidResponse, CodeConnectionError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// StatusForErr extracts the HTTP status to use for err. Errors that are
// not *Error (programmer errors escaping a handler) map to 500.
func StatusForErr(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ae *Error
	if as(err, &ae) {
		return httpStatus(ae.Type)
	}
	return http.StatusInternalServerError
}

// StatusForCode exposes the symbolic-code-to-HTTP-status mapping for
// callers (the response normalizer) that already hold a Code rather
// than an error.
func StatusForCode(code Code) int {
	return httpStatus(code)
}

// as is a tiny errors.As wrapper kept local to avoid importing errors
// twice in call sites that already alias the stdlib package.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Convenience constructors mirroring the teacher's per-type helpers.
func NewValidationError(msg string, cause error) *Error {
	return NewError(CodeValidationError, msg, cause)
}
func NewUnauthorizedError(msg string, cause error) *Error {
	return NewError(CodeUnauthorized, msg, cause)
}
func NewNotFoundError(msg string, cause error) *Error {
	return NewError(CodeNotFound, msg, cause)
}
func NewQueueFullError(msg string, cause error) *Error {
	return NewError(CodeQueueFull, msg, cause)
}
func NewTimeoutError(msg string, cause error) *Error {
	return NewError(CodeRequestTimeout, msg, cause)
}
func NewInternalError(msg string, cause error) *Error {
	return NewError(CodeServiceUnavailable, msg, cause)
}
