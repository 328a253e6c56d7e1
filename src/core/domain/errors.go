package domain

import (
	"errors"
	"fmt"
)

// Domain error kinds. Every failure returned by the core wraps exactly one of
// these so the HTTP layer can pick a status code without inspecting messages.
var (
	// ErrNotFound is returned when a lobby, user, game, round or player does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a unique resource collides (subject id,
	// username, lobby code, duplicate guess).
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when an operation is not valid for the
	// current lobby, game or round status.
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized is returned when a caller identity cannot be established.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when a non-host attempts a host-only operation.
	ErrForbidden = errors.New("forbidden")

	// ErrCapacityExceeded is returned when a lobby is full or its capacity
	// would drop below the current membership.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInsufficientPlayers is returned when a game is started with too few members.
	ErrInsufficientPlayers = errors.New("insufficient players")

	// ErrUnavailable is returned when a backing store or collaborator fails.
	ErrUnavailable = errors.New("service unavailable")
)

// DomainError wraps a base error with additional context.
type DomainError struct {
	// Base is the error kind (e.g., ErrNotFound)
	Base error

	// Message provides human-readable context
	Message string

	// Field indicates which field caused the error (for validation errors)
	Field string

	// Err is the underlying cause, if any. It is never shown to API callers.
	Err error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := e.Base.Error()
	switch {
	case e.Field != "":
		msg = fmt.Sprintf("%s: %s (field: %s)", msg, e.Message, e.Field)
	case e.Message != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *DomainError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Base, e.Err}
	}
	return []error{e.Base}
}

// NewNotFoundError creates a not found error for the named resource.
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{Base: ErrNotFound, Message: resource}
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{Base: ErrInvalidInput, Message: message, Field: field}
}

// NewInvalidStateError creates an invalid state error.
func NewInvalidStateError(message string) *DomainError {
	return &DomainError{Base: ErrInvalidState, Message: message}
}

// NewAlreadyExistsError creates a duplicate resource error.
func NewAlreadyExistsError(message string) *DomainError {
	return &DomainError{Base: ErrAlreadyExists, Message: message}
}

// NewForbiddenError creates a forbidden error with context.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Base: ErrForbidden, Message: message}
}

// NewUnauthorizedError creates an unauthorized error with context.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Base: ErrUnauthorized, Message: message}
}

// NewCapacityError creates a capacity exceeded error.
func NewCapacityError(message string) *DomainError {
	return &DomainError{Base: ErrCapacityExceeded, Message: message}
}

// NewInsufficientPlayersError reports how many members are present versus required.
func NewInsufficientPlayersError(have, need int) *DomainError {
	return &DomainError{
		Base:    ErrInsufficientPlayers,
		Message: fmt.Sprintf("%d players in lobby, at least %d required", have, need),
	}
}

// Unavailable wraps an infrastructure failure. Errors that already carry a
// domain kind are returned unchanged.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &DomainError{Base: ErrUnavailable, Message: "backing store failure", Err: err}
}

// IsDomainError reports whether err already carries one of the kinds above.
func IsDomainError(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrInvalidState, ErrUnauthorized,
		ErrForbidden, ErrCapacityExceeded, ErrInsufficientPlayers, ErrUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInvalidState checks if an error is an invalid state error.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsAlreadyExists checks if an error is a duplicate resource error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsForbidden checks if an error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnauthorized checks if an error is unauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsCapacityExceeded checks if an error is a capacity error.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsInsufficientPlayers checks if an error is an insufficient players error.
func IsInsufficientPlayers(err error) bool {
	return errors.Is(err, ErrInsufficientPlayers)
}

// IsUnavailable checks if an error is an infrastructure failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
