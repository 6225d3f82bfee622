package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/wavemeet/internal/activity"
	"github.com/example/wavemeet/internal/persistence"
)

// BuddyService pairs a user with someone whose broadcast they respond to.
type BuddyService struct {
	buddies     persistence.BuddyRepository
	presence    persistence.PresenceRepository
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBuddyService constructs a buddy service with the provided dependencies.
func NewBuddyService(buddies persistence.BuddyRepository, presence persistence.PresenceRepository, notifier Notifier, idGenerator func() string, now func() time.Time) *BuddyService {
	return NewBuddyServiceWithLogger(buddies, presence, notifier, idGenerator, now, nil)
}

// NewBuddyServiceWithLogger constructs a buddy service with a specified logger.
func NewBuddyServiceWithLogger(buddies persistence.BuddyRepository, presence persistence.PresenceRepository, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BuddyService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BuddyService{
		buddies:     buddies,
		presence:    presence,
		notifier:    notifier,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BuddyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BuddyService", operation, attrs...)
}

// CreateMatch confirms a match between the caller and the owner of a live
// broadcast. The match and its private chat are written together or not at all.
// An empty activity type inherits the recipient's broadcast activity.
func (s *BuddyService) CreateMatch(ctx context.Context, params CreateMatchParams) (match BuddyMatch, err error) {
	if s == nil || s.buddies == nil || s.presence == nil {
		err = fmt.Errorf("BuddyService is not configured")
		return
	}

	initiator := params.Principal.UserID
	recipient := strings.TrimSpace(params.RecipientID)
	logger := s.loggerWith(ctx, "CreateMatch",
		"principal_id", initiator,
		"recipient_id", recipient,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create match", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "match created", "match_id", match.ID, "chat_id", match.ChatID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	if recipient == "" {
		vErr.add("recipient_id", "is required")
	}
	var activityType activity.Type
	if strings.TrimSpace(params.ActivityType) != "" {
		activityType = parseActivityType(vErr, params.ActivityType)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if recipient == initiator {
		err = newSelfMatchError()
		return
	}

	// An existing pair is a conflict whether or not the recipient is still broadcasting.
	var exists bool
	exists, err = s.buddies.MatchExists(ctx, initiator, recipient)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if exists {
		err = ErrAlreadyMatched
		return
	}

	now := s.now().UTC()
	var status persistence.PresenceBroadcast
	status, err = s.presence.GetActiveBroadcast(ctx, recipient, now)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrRecipientStatusExpired
			return
		}
		err = mapRepoError(err)
		return
	}
	if activityType == activity.Unknown {
		activityType = storedActivity(status.ActivityType)
	}

	match = BuddyMatch{
		ID:           s.idGenerator(),
		InitiatorID:  initiator,
		RecipientID:  recipient,
		ActivityType: activityType,
		ChatID:       s.idGenerator(),
		MatchedAt:    now,
	}
	err = s.buddies.CreateMatch(ctx, persistence.NewBuddyMatch{
		Match: persistence.BuddyMatch{
			ID:           match.ID,
			InitiatorID:  match.InitiatorID,
			RecipientID:  match.RecipientID,
			ActivityType: match.ActivityType.Code(),
			ChatID:       match.ChatID,
			MatchedAt:    match.MatchedAt,
		},
		Chat: persistence.CrewChat{
			ID:           match.ChatID,
			Kind:         persistence.ChatKindBuddy,
			ActivityType: match.ActivityType.Code(),
			CreatedAt:    now,
		},
	})
	if err != nil {
		// A racing request for the same pair loses on the unique index.
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrAlreadyMatched
		} else {
			err = mapRepoError(err)
		}
		match = BuddyMatch{}
		return
	}

	notify(ctx, s.notifier, []string{initiator, recipient}, Event{Type: EventBuddyMatched, Payload: match})
	return match, nil
}

// ListMatches returns the caller's matches, newest first.
func (s *BuddyService) ListMatches(ctx context.Context, principal Principal) ([]BuddyMatch, error) {
	if s == nil || s.buddies == nil {
		return nil, fmt.Errorf("BuddyService is not configured")
	}
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	records, err := s.buddies.ListMatchesForUser(ctx, principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListMatches", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to list matches", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	matches := make([]BuddyMatch, 0, len(records))
	for _, r := range records {
		matches = append(matches, BuddyMatch{
			ID:           r.ID,
			InitiatorID:  r.InitiatorID,
			RecipientID:  r.RecipientID,
			ActivityType: storedActivity(r.ActivityType),
			ChatID:       r.ChatID,
			MatchedAt:    r.MatchedAt,
		})
	}
	return matches, nil
}
