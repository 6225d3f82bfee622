package application

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"note": "too long", "latitude": "out of range"}}
	if got := withFields.Error(); got != "validation failed: latitude: out of range; note: too long" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_Add(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	base.add("second", "other")
	base.add("first", "replaced")

	if len(base.FieldErrors) != 2 || base.FieldErrors["first"] != "replaced" {
		t.Fatalf("unexpected field errors: %v", base.FieldErrors)
	}
}

func TestSelfMatchErrorIsValidation(t *testing.T) {
	t.Parallel()

	err := error(newSelfMatchError())
	if !errors.Is(err, ErrSelfMatch) {
		t.Fatalf("expected ErrSelfMatch in chain")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["recipient_id"] == "" {
		t.Fatalf("expected validation error on recipient_id, got %v", err)
	}
	if ErrorKind(err) != "validation" {
		t.Fatalf("expected validation kind, got %q", ErrorKind(err))
	}
}

func TestSpecializedErrorsWrapCategories(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err      error
		category error
		kind     string
	}{
		{ErrAlreadyMatched, ErrConflict, "conflict"},
		{ErrNotParticipant, ErrConflict, "conflict"},
		{ErrRecipientStatusExpired, ErrExpired, "expired"},
		{ErrCreatorCannotLeave, ErrForbidden, "forbidden"},
		{ErrNotWaveCreator, ErrForbidden, "forbidden"},
		{ErrNotChatMember, ErrForbidden, "forbidden"},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.category) {
			t.Fatalf("%v should wrap %v", tc.err, tc.category)
		}
		if got := ErrorKind(tc.err); got != tc.kind {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
}
