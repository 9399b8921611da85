package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is the closed set of failure categories a progression operation can
// report.
type Kind string

const (
	KindNotAuthenticated  Kind = "NOT_AUTHENTICATED"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindContentIncomplete Kind = "CONTENT_INCOMPLETE"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindConflict          Kind = "CONFLICT"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// AppError carries a Kind alongside a human-readable message
type AppError struct {
	Kind    Kind   // Failure category
	Message string // Human-readable error message
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err. Errors that are not an *AppError are
// reported as internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is errors.As re-exported so callers importing this package under the
// name "errors" keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func NewNotAuthenticatedError() *AppError {
	return &AppError{
		Kind:    KindNotAuthenticated,
		Message: "no authenticated user",
	}
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
	}
}

func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Kind:    KindInvalidState,
		Message: message,
	}
}

func NewContentIncompleteError(courseID string) *AppError {
	return &AppError{
		Kind:    KindContentIncomplete,
		Message: fmt.Sprintf("course %s has no published unit with published lessons", courseID),
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
	}
}

func NewConflictError(err error) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: "progress was modified concurrently, retry the operation",
		Err:     err,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}
