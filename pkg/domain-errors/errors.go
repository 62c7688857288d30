// Package domainerrors provides coded errors shared by all dronewatch
// modules. Services and stores return these so transport layers and
// schedulers can branch on the code without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for retry and rendering decisions.
type Code string

const (
	// CodeValidation marks caller bugs: bad parameter values, wrong types,
	// counting mismatches. Never retryable.
	CodeValidation Code = "validation"
	// CodeTransport marks network or IO failures. Retryable by the
	// scheduler that owns the call.
	CodeTransport Code = "transport"
	// CodeParse marks a malformed feed document. Retryable, the upstream
	// may serve a corrupted snapshot transiently.
	CodeParse Code = "parse"
	// CodeMalformedResponse marks a lookup body that decoded but cannot
	// represent an identity record. Not retryable.
	CodeMalformedResponse Code = "malformed_response"
	// CodePrivacyRejected marks a lookup blocked by the retention policy.
	// Must not be retried and must not degrade to a stub record.
	CodePrivacyRejected Code = "privacy_rejected"
	// CodeNotFound marks an expected absence (unknown serial).
	CodeNotFound Code = "not_found"
	// CodeConflict marks a rejected state transition on a sealed record.
	CodeConflict Code = "conflict"
	// CodeInternal is the fallback for unclassified failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error, preserving the
// cause for errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	for errors.As(err, &coded) {
		if coded.Code == code {
			return true
		}
		err = coded.Err
		coded = nil
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// ToHTTPStatus translates a code into an HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePrivacyRejected:
		return http.StatusForbidden
	case CodeTransport, CodeParse, CodeMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
