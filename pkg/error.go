package pkg

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Cause classifies a driver failure. It is the code returned across the
// kernel boundary, so values are stable and zero means success.
type Cause uint8

// Failure causes.
const (
	CauseSuccess           Cause = iota // No error
	CauseTimeout                        // A bounded poll did not observe the expected condition
	CauseNoSuchDevice                   // Port or slot is out of range or not configured
	CauseTransferFailed                 // Transfer completion code reports an error
	CauseCommandFailed                  // Command completion code reports an error
	CauseInvalidDescriptor              // Fetched descriptor failed validation
	CauseNoResources                    // Static arena or slot pool exhausted
	CauseInvalidState                   // Operation not valid in the current state
)

// String returns a human-readable cause name.
func (c Cause) String() string {
	switch c {
	case CauseSuccess:
		return "success"
	case CauseTimeout:
		return "timeout"
	case CauseNoSuchDevice:
		return "no such device"
	case CauseTransferFailed:
		return "transfer failed"
	case CauseCommandFailed:
		return "command failed"
	case CauseInvalidDescriptor:
		return "invalid descriptor"
	case CauseNoResources:
		return "no resources"
	case CauseInvalidState:
		return "invalid state"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per cause. An *Error matches the sentinel of its
// cause with errors.Is.
var (
	// ErrTimeout indicates a bounded poll expired.
	ErrTimeout = errors.New("timeout")

	// ErrNoSuchDevice indicates a port or slot that does not exist or is
	// not configured.
	ErrNoSuchDevice = errors.New("no such device")

	// ErrTransferFailed indicates a transfer completed with an error code.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrCommandFailed indicates a command completed with an error code.
	ErrCommandFailed = errors.New("command failed")

	// ErrInvalidDescriptor indicates a malformed USB descriptor.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrNoResources indicates static storage is exhausted.
	ErrNoResources = errors.New("no resources available")

	// ErrInvalidState indicates the operation is not valid right now.
	ErrInvalidState = errors.New("invalid state")
)

// Err returns the sentinel error for the cause, or nil for CauseSuccess.
func (c Cause) Err() error {
	switch c {
	case CauseSuccess:
		return nil
	case CauseTimeout:
		return ErrTimeout
	case CauseNoSuchDevice:
		return ErrNoSuchDevice
	case CauseTransferFailed:
		return ErrTransferFailed
	case CauseCommandFailed:
		return ErrCommandFailed
	case CauseInvalidDescriptor:
		return ErrInvalidDescriptor
	case CauseNoResources:
		return ErrNoResources
	default:
		return ErrInvalidState
	}
}

// Error is a driver error carrying its cause and the source location that
// raised it.
type Error struct {
	Cause Cause
	File  string
	Line  int

	// Code is the hardware completion code for CauseTransferFailed and
	// CauseCommandFailed, zero otherwise.
	Code uint8

	// Detail is a short description of what failed.
	Detail string

	// Err is the underlying error, if any.
	Err error
}

// NewError returns an *Error for cause, located at the caller.
func NewError(cause Cause, detail string) *Error {
	return newError(2, cause, detail, nil)
}

// Errorf is like NewError with a formatted detail.
func Errorf(cause Cause, format string, args ...any) *Error {
	return newError(2, cause, fmt.Sprintf(format, args...), nil)
}

// WrapError returns an *Error for cause wrapping err, located at the caller.
func WrapError(cause Cause, detail string, err error) *Error {
	return newError(2, cause, detail, err)
}

// CodeError returns an *Error for a failed hardware completion code.
func CodeError(cause Cause, code uint8, detail string) *Error {
	e := newError(2, cause, detail, nil)
	e.Code = code
	return e
}

func newError(skip int, cause Cause, detail string, err error) *Error {
	e := &Error{Cause: cause, Detail: detail, Err: err}
	if _, file, line, ok := runtime.Caller(skip); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := e.Cause.String()
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	if e.Code != 0 {
		s += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s [%s:%d]", s, e.File, e.Line)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's cause.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Cause.Err()
}

// CauseOf returns the cause of err. A nil error maps to CauseSuccess and an
// error without a cause maps to CauseInvalidState.
func CauseOf(err error) Cause {
	if err == nil {
		return CauseSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Cause
	}
	for c := CauseTimeout; c <= CauseInvalidState; c++ {
		if errors.Is(err, c.Err()) {
			return c
		}
	}
	return CauseInvalidState
}
