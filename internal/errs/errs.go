// Package errs carries the error taxonomy shared by all services.
// Handlers translate kinds to HTTP statuses; services never let raw
// persistence errors cross the API boundary.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the API boundary.
type Kind string

const (
	KindValidation    Kind = "VALIDATION_FAILED"
	KindNotFound      Kind = "NOT_FOUND"
	KindRevisionLimit Kind = "REVISION_LIMIT_EXCEEDED"
	KindDependency    Kind = "DEPENDENCY_FAILED"
)

// Error is a classified service error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad input (empty prompt, out-of-range rating, ...).
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity, including entities the caller is
// not allowed to see.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// RevisionLimit reports a revision request beyond max_revisions.
func RevisionLimit(message string) *Error {
	return &Error{Kind: KindRevisionLimit, Message: message}
}

// Dependency wraps a persistence or downstream failure.
func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindDependency for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
