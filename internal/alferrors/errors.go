// Package alferrors defines the error taxonomy shared by every layer of
// Alfred: the store, the validation package, the workflow engine, and
// the generic tool handler. A *Error carries a Kind so callers at the
// MCP boundary can map it to a ToolResponse without string matching.
package alferrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for dispatch at the MCP boundary. Every tool
// invocation that fails surfaces one of these, never a panic.
type Kind int

const (
	// KindNotFound means the referenced task, state, or artifact does
	// not exist.
	KindNotFound Kind = iota
	// KindInvalidState means a task's persisted state is inconsistent
	// with what the operation expects (e.g. no active tool state when
	// one was required).
	KindInvalidState
	// KindInvalidTransition means the requested trigger is not valid
	// from the task's current state.
	KindInvalidTransition
	// KindValidationError means a submitted artifact failed schema or
	// cross-artifact validation.
	KindValidationError
	// KindLockContention means another process holds the task's
	// advisory lock.
	KindLockContention
	// KindFatal means an unexpected, non-recoverable condition (I/O
	// failure, corrupt on-disk state, programmer error surfaced at
	// runtime).
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindValidationError:
		return "validation_error"
	case KindLockContention:
		return "lock_contention"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across package boundaries
// in Alfred. It wraps an underlying cause, if any, so errors.Is/As still
// reaches sentinel errors like context.DeadlineExceeded.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &alferrors.Error{Kind: alferrors.KindNotFound}) matches
// any error of that kind. A target with a non-empty Message must also
// match the Message exactly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" {
		return t.Kind == e.Kind && t.Message == e.Message
	}
	return t.Kind == e.Kind
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef builds a KindInvalidState error.
func InvalidStatef(format string, args ...any) *Error {
	return New(KindInvalidState, fmt.Sprintf(format, args...))
}

// InvalidTransitionf builds a KindInvalidTransition error.
func InvalidTransitionf(format string, args ...any) *Error {
	return New(KindInvalidTransition, fmt.Sprintf(format, args...))
}

// ValidationErrorf builds a KindValidationError error.
func ValidationErrorf(format string, args ...any) *Error {
	return New(KindValidationError, fmt.Sprintf(format, args...))
}

// LockContentionf builds a KindLockContention error.
func LockContentionf(format string, args ...any) *Error {
	return New(KindLockContention, fmt.Sprintf(format, args...))
}

// Fatalf builds a KindFatal error.
func Fatalf(format string, args ...any) *Error {
	return New(KindFatal, fmt.Sprintf(format, args...))
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// defaulting to KindFatal for anything else — an un-kinded error
// reaching the MCP boundary is treated as unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}
