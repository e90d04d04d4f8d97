// Package fverrors carries the coded error type used across the engine.
// Every fallible operation returns an Error holding a numeric code and a
// traceback that grows one segment per call-stack level, so a single log
// line shows the whole path a failure took. Codes follow net/http status
// semantics: 500 for infrastructure failures, 404 for absent entities and
// fields, 400 for schema misuse.
package fverrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/emberhall/fieldvault/fvlog"
)

type Error interface {
	error
	// Wrap prepends a message segment to the traceback. Call it at every
	// level that returns the error upward.
	Wrap(msg string) Error
	// WrapWithLog wraps and logs the message at the Error level.
	WrapWithLog(msg string, log fvlog.Logger) Error
	Code() int
	Error() string
	Unwrap() error
	UnwrapLastError() string
}

const (
	codeSeparate  = " | "
	errorSeparate = " -> "
)

type fvError struct {
	code      int
	cause     error
	traceback string
}

// FromError builds an Error around an existing cause. The cause stays
// reachable through Unwrap, so errors.Is sees sentinels threaded into it.
func FromError(code int, cause error, wrap string) Error {
	return &fvError{
		code:      code,
		cause:     cause,
		traceback: fmt.Sprintf("%s: %v", wrap, cause),
	}
}

// FromErrorWithLog builds an Error around an existing cause and logs the
// resulting message at the Error level.
func FromErrorWithLog(code int, cause error, wrap string, log fvlog.Logger) Error {
	msg := fmt.Sprintf("%s: %v", wrap, cause)
	log.Error(msg)

	return &fvError{
		code:      code,
		cause:     cause,
		traceback: msg,
	}
}

// FromString builds an Error from a bare message.
func FromString(code int, msg string) Error {
	return &fvError{
		code:      code,
		cause:     errors.New(msg), //nolint:err113
		traceback: msg,
	}
}

// FromStringWithLog builds an Error from a bare message and logs it at the
// Error level.
func FromStringWithLog(code int, msg string, log fvlog.Logger) Error {
	log.Error(msg)

	return &fvError{
		code:      code,
		cause:     errors.New(msg), //nolint:err113
		traceback: msg,
	}
}

// Error renders the code and the full traceback.
func (e *fvError) Error() string {
	safetyCheck(&e)

	return fmt.Sprintf("%d%s%s", e.code, codeSeparate, e.traceback)
}

// Unwrap returns the original cause.
func (e *fvError) Unwrap() error {
	safetyCheck(&e)

	return e.cause
}

// UnwrapLastError returns the most recent traceback segment.
func (e *fvError) UnwrapLastError() string {
	safetyCheck(&e)

	end := strings.Index(e.traceback, errorSeparate)
	if end == -1 {
		return e.traceback
	}

	return e.traceback[:end]
}

func (e *fvError) Wrap(msg string) Error {
	safetyCheck(&e)
	e.traceback = fmt.Sprintf("%s%s%s", msg, errorSeparate, e.traceback)

	return e
}

func (e *fvError) WrapWithLog(msg string, log fvlog.Logger) Error {
	log.Error(msg)

	return e.Wrap(msg)
}

// Code returns the numeric code carried by this error.
func (e *fvError) Code() int {
	safetyCheck(&e)

	return e.code
}

// safetyCheck keeps a nil receiver from panicking. Someone dereferencing a
// nil Error gets the teapot instead of a crash.
func safetyCheck(err **fvError) {
	if *err == nil {
		*err = &fvError{
			code:      http.StatusTeapot,
			cause:     ErrTeapot,
			traceback: ErrTeapot.Error(),
		}
	}
}
