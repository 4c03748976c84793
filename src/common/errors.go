package common

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnauthorized      ErrorKind = "unauthorized"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindAlreadyTerminal   ErrorKind = "already_terminal"
	KindInvalidState      ErrorKind = "invalid_state"
	KindAlreadyStarted    ErrorKind = "already_started"
	KindInvalidDateRange  ErrorKind = "invalid_date_range"
	KindDateConflict      ErrorKind = "date_conflict"
	KindDateBlocked       ErrorKind = "date_blocked"
	KindInternal          ErrorKind = "internal"
)

// OpError is the structured error returned by lifecycle operations. Handlers
// map the kind to an HTTP status; the message is safe to show to callers.
type OpError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.cause
}

func opErr(kind ErrorKind, format string, args ...any) *OpError {
	return &OpError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalErr(cause error) *OpError {
	return &OpError{Kind: KindInternal, Message: "Unexpected error while processing request", cause: cause}
}

// KindOf extracts the error kind, defaulting to internal for plain errors.
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindInternal
}
