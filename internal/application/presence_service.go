package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

// PresenceService manages each user's single availability broadcast.
type PresenceService struct {
	presence persistence.PresenceRepository
	policy   Policy
	now      func() time.Time
	logger   *slog.Logger
}

// NewPresenceService constructs a presence service with the provided dependencies.
func NewPresenceService(presence persistence.PresenceRepository, policy Policy, now func() time.Time) *PresenceService {
	return NewPresenceServiceWithLogger(presence, policy, now, nil)
}

// NewPresenceServiceWithLogger constructs a presence service with a specified logger.
func NewPresenceServiceWithLogger(presence persistence.PresenceRepository, policy Policy, now func() time.Time, logger *slog.Logger) *PresenceService {
	if now == nil {
		now = time.Now
	}
	return &PresenceService{presence: presence, policy: policy.withDefaults(), now: now, logger: defaultLogger(logger)}
}

func (s *PresenceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PresenceService", operation, attrs...)
}

// SetStatus creates or replaces the caller's broadcast. The expiry is always
// set-at plus the presence TTL.
func (s *PresenceService) SetStatus(ctx context.Context, params SetStatusParams) (status PresenceStatus, err error) {
	if s == nil || s.presence == nil {
		err = fmt.Errorf("PresenceService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetStatus",
		"principal_id", params.Principal.UserID,
		"activity_type", params.ActivityType,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "status set", "expires_at", status.ExpiresAt)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	activityType := parseActivityType(vErr, params.ActivityType)
	validateCoordinates(vErr, params.Latitude, params.Longitude)
	note := normalizeNote(vErr, params.Note)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	setAt := s.now().UTC()
	status = PresenceStatus{
		OwnerID:      params.Principal.UserID,
		ActivityType: activityType,
		Note:         note,
		Location:     geo.Point{Lat: params.Latitude, Lng: params.Longitude},
		SetAt:        setAt,
		ExpiresAt:    setAt.Add(s.policy.PresenceTTL),
	}

	if err = s.presence.UpsertBroadcast(ctx, toBroadcastRecord(status)); err != nil {
		err = mapRepoError(err)
		status = PresenceStatus{}
		return
	}
	return
}

// GetStatus returns ownerID's broadcast if it has not expired. An expired or
// missing broadcast is reported as ErrNotFound.
func (s *PresenceService) GetStatus(ctx context.Context, principal Principal, ownerID string) (PresenceStatus, error) {
	if s == nil || s.presence == nil {
		return PresenceStatus{}, fmt.Errorf("PresenceService is not configured")
	}
	if err := requirePrincipal(principal); err != nil {
		return PresenceStatus{}, err
	}

	record, err := s.presence.GetActiveBroadcast(ctx, ownerID, s.now().UTC())
	if err != nil {
		err = mapRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetStatus", "owner_id", ownerID).
				ErrorContext(ctx, "failed to load status", "error", err, "error_kind", ErrorKind(err))
		}
		return PresenceStatus{}, err
	}
	return fromBroadcastRecord(record), nil
}

// ClearStatus removes the caller's broadcast. Clearing an absent broadcast succeeds.
func (s *PresenceService) ClearStatus(ctx context.Context, principal Principal) error {
	if s == nil || s.presence == nil {
		return fmt.Errorf("PresenceService is not configured")
	}
	if err := requirePrincipal(principal); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "ClearStatus", "principal_id", principal.UserID)
	if err := s.presence.DeleteBroadcast(ctx, principal.UserID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to clear status", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "status cleared")
	return nil
}

func toBroadcastRecord(status PresenceStatus) persistence.PresenceBroadcast {
	return persistence.PresenceBroadcast{
		OwnerID:      status.OwnerID,
		ActivityType: status.ActivityType.Code(),
		Note:         status.Note,
		Latitude:     status.Location.Lat,
		Longitude:    status.Location.Lng,
		SetAt:        status.SetAt,
		ExpiresAt:    status.ExpiresAt,
	}
}

func fromBroadcastRecord(record persistence.PresenceBroadcast) PresenceStatus {
	return PresenceStatus{
		OwnerID:      record.OwnerID,
		ActivityType: storedActivity(record.ActivityType),
		Note:         record.Note,
		Location:     geo.Point{Lat: record.Latitude, Lng: record.Longitude},
		SetAt:        record.SetAt,
		ExpiresAt:    record.ExpiresAt,
	}
}
