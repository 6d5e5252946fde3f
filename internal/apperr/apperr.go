// Package apperr defines the typed business errors returned by the PPA core.
// Callers distinguish the kinds to decide whether to correct input and retry
// (validation, not-found, conflict) or to inspect the underlying cause first
// (storage).
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	// KindValidation marks malformed or incomplete input.
	KindValidation Kind = "validation"
	// KindNotFound marks a referenced id that does not exist or is not
	// visible to the tenant.
	KindNotFound Kind = "not_found"
	// KindConflict marks an operation that would violate an invariant
	// given current state.
	KindConflict Kind = "conflict"
	// KindStorage marks a persistence-layer failure. The transaction has
	// been rolled back; callers should not retry blindly.
	KindStorage Kind = "storage"
)

// Error is a typed business error. IDs carries the offending entity ids when
// the operation can name them (missing action ids, conflicting processes).
type Error struct {
	Kind    Kind
	Message string
	IDs     []string
	cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.IDs) > 0 {
		msg += " [" + strings.Join(e.IDs, ", ") + "]"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validation creates a KindValidation error naming the offending ids, if any.
func Validation(message string, ids ...string) *Error {
	return &Error{Kind: KindValidation, Message: message, IDs: ids}
}

// NotFound creates a KindNotFound error naming the missing ids.
func NotFound(message string, ids ...string) *Error {
	return &Error{Kind: KindNotFound, Message: message, IDs: ids}
}

// Conflict creates a KindConflict error naming the conflicting ids.
func Conflict(message string, ids ...string) *Error {
	return &Error{Kind: KindConflict, Message: message, IDs: ids}
}

// Storage wraps a persistence failure.
func Storage(message string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: message, cause: cause}
}

// KindOf returns the kind of err, or KindStorage for untyped errors so that
// unexpected failures never masquerade as business errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IDsOf returns the entity ids carried by err, or nil for untyped errors.
func IDsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.IDs
	}
	return nil
}

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, KindValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return is(err, KindConflict) }

// IsStorage reports whether err is a storage error.
func IsStorage(err error) bool { return is(err, KindStorage) }
