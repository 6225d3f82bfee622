package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrExpired is returned when a time-bounded record is past its expiry.
	ErrExpired = errors.New("persistence: expired")
	// ErrNotParticipant is returned when leaving a wave the user never joined.
	ErrNotParticipant = errors.New("persistence: not a participant")
	// ErrConflict is returned when a conditional update lost a race.
	ErrConflict = errors.New("persistence: conflicting update")
)
