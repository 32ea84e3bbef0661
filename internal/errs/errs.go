// Package errs defines coded errors for the reply verification suite.
// Codes separate run-fatal failures (bad config, login that never lands)
// from per-case failures (a reply that does not match).
package errs

import (
	"errors"
)

// Code is an application error code.
type Code string

const (
	InvalidConfig Code = "invalid_config"
	LoginTimeout  Code = "login_timeout"
	ReplyMismatch Code = "reply_mismatch"
	Unavailable   Code = "unavailable"
	Internal      Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns a user-facing error message.
// Errors without a typed wrapper collapse to "internal error" so raw driver
// output and file paths do not end up in test reports verbatim.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// Fatal reports whether an error code aborts the whole run rather than a
// single test case. A failed login means the shared session never exists,
// so every dependent case is dead anyway.
func Fatal(code Code) bool {
	switch code {
	case InvalidConfig, LoginTimeout:
		return true
	default:
		return false
	}
}
