package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated is returned when an operation is invoked without a caller identity.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrExpired is returned when a wave or broadcast is past its expiry.
	ErrExpired = errors.New("application: expired")
	// ErrConflict is returned when the request clashes with existing state.
	ErrConflict = errors.New("application: conflict")
	// ErrForbidden is returned when the caller may not perform the operation.
	ErrForbidden = errors.New("application: forbidden")
)

var (
	ErrAlreadyMatched         = fmt.Errorf("%w: users are already matched", ErrConflict)
	ErrNotParticipant         = fmt.Errorf("%w: not a participant of this wave", ErrConflict)
	ErrRecipientStatusExpired = fmt.Errorf("%w: recipient has no active status", ErrExpired)
	ErrCreatorCannotLeave     = fmt.Errorf("%w: the creator cannot leave their own wave", ErrForbidden)
	ErrNotWaveCreator         = fmt.Errorf("%w: only the creator may do this", ErrForbidden)
	ErrNotChatMember          = fmt.Errorf("%w: not a member of this chat", ErrForbidden)

	// ErrSelfMatch is carried by the validation error returned when a user tries to match themselves.
	ErrSelfMatch = errors.New("application: cannot match with yourself")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string

	cause error
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + v.FieldErrors[field]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the specific sentinel, if any, behind the validation failure.
func (v *ValidationError) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.cause
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func newSelfMatchError() *ValidationError {
	v := &ValidationError{cause: ErrSelfMatch}
	v.add("recipient_id", "cannot match with yourself")
	return v
}
