// Package domainerrors provides code-tagged errors that services return and
// transport layers translate into user-facing responses.
//
// Services wrap infrastructure failures (see pkg/platform/sentinel) into one of
// the codes below so callers can branch on the violated rule without string
// matching:
//
//	if dErrors.HasCode(err, dErrors.CodeInvalidAlphabet) { ... }
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the rule or failure class behind an error.
type Code string

const (
	// CodeInvalidAlphabet means the input holds characters outside {A,T,C,G}.
	CodeInvalidAlphabet Code = "invalid_alphabet"
	// CodeEmptyContent means the input was empty once normalized.
	CodeEmptyContent Code = "empty_content"
	// CodeNotFound means the referenced identifier is not in the store.
	CodeNotFound Code = "not_found"
	// CodeBadRequest means the request could not be decoded.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput means a parameter failed format checks (ids, accessions).
	CodeInvalidInput Code = "invalid_input"
	// CodeFetchFailed means a remote source returned nothing usable.
	CodeFetchFailed Code = "fetch_failed"
	// CodeUnavailable means a collaborator is temporarily unavailable.
	CodeUnavailable Code = "unavailable"
	// CodeTimeout means the operation ran out of time.
	CodeTimeout Code = "timeout"
	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a domain error carrying a Code and an actionable message.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in err's chain is a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the message of the outermost domain error, or "".
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
