package application

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/example/wavemeet/internal/activity"
	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

func requirePrincipal(p Principal) error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func validateCoordinates(v *ValidationError, lat, lng float64) {
	if !geo.ValidLatitude(lat) {
		v.add("latitude", "must be between -90 and 90")
	}
	if !geo.ValidLongitude(lng) {
		v.add("longitude", "must be between -180 and 180")
	}
}

func parseActivityType(v *ValidationError, code string) activity.Type {
	if strings.TrimSpace(code) == "" {
		v.add("activity_type", "is required")
		return activity.Unknown
	}
	t, err := activity.Parse(code)
	if err != nil {
		v.add("activity_type", "is not a supported activity")
		return activity.Unknown
	}
	return t
}

// normalizeNote trims the note, treating blank as absent.
func normalizeNote(v *ValidationError, note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) > MaxNoteLength {
		v.add("note", fmt.Sprintf("must be at most %d characters", MaxNoteLength))
		return nil
	}
	return &trimmed
}

// storedActivity decodes an activity code read back from storage.
func storedActivity(code string) activity.Type {
	t, err := activity.Parse(code)
	if err != nil {
		return activity.Unknown
	}
	return t
}

// mapRepoError translates persistence sentinels into application sentinels,
// keeping the original error in the chain.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, persistence.ErrExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, persistence.ErrNotParticipant):
		return fmt.Errorf("%w: %w", ErrNotParticipant, err)
	case errors.Is(err, persistence.ErrDuplicate), errors.Is(err, persistence.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
