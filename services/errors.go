package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies service failures so controllers can pick an HTTP
// status without string matching.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindForbidden
	KindConflict
	KindValidation
	KindMissingCapabilities
)

// Error is the failure type returned by every service operation. Message
// is always safe to show to the caller. Missing is populated only for
// KindMissingCapabilities.
type Error struct {
	Kind    ErrorKind
	Message string
	Missing []string
}

func (e *Error) Error() string { return e.Message }

func NotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func ForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func ConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func ValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func MissingCapabilitiesError(missing []string) *Error {
	return &Error{
		Kind:    KindMissingCapabilities,
		Message: fmt.Sprintf("Agent missing required capabilities: %s", strings.Join(missing, ", ")),
		Missing: missing,
	}
}

// KindOf returns the kind of a service error, or 0 for any other error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
