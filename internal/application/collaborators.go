package application

import (
	"context"
	"log/slog"
)

// Profile is the presentation data the user directory knows about a user.
type Profile struct {
	UserID      string
	Username    string
	DisplayName string
	AvatarURL   string
}

// UserDirectory resolves users to presentation profiles. Unknown users are
// simply absent from the returned map.
type UserDirectory interface {
	LookupProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
}

// BlockResolver returns every user in a block relationship with userID, in either direction.
type BlockResolver interface {
	BlockedUserIDs(ctx context.Context, userID string) ([]string, error)
}

// Event types pushed to connected clients.
const (
	EventMessagePosted = "chat.message"
	EventWaveUnlocked  = "wave.unlocked"
	EventBuddyMatched  = "buddy.matched"
)

// Event is a realtime notification.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Notifier pushes events to connected users. Delivery is best effort.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []string, event Event)
}

// fallbackDisplayName is shown when the directory has neither a display name nor a username.
const fallbackDisplayName = "Crew member"

// displayName applies the fallback chain display name, username, placeholder.
func displayName(profile Profile, ok bool) string {
	if !ok {
		return fallbackDisplayName
	}
	if profile.DisplayName != "" {
		return profile.DisplayName
	}
	if profile.Username != "" {
		return profile.Username
	}
	return fallbackDisplayName
}

// lookupProfiles tolerates a missing or failing directory; presentation data is optional.
func lookupProfiles(ctx context.Context, directory UserDirectory, logger *slog.Logger, userIDs []string) map[string]Profile {
	if directory == nil || len(userIDs) == 0 {
		return nil
	}
	profiles, err := directory.LookupProfiles(ctx, userIDs)
	if err != nil {
		logger.WarnContext(ctx, "user directory lookup failed", "error", err, "count", len(userIDs))
		return nil
	}
	return profiles
}

func notify(ctx context.Context, notifier Notifier, userIDs []string, event Event) {
	if notifier == nil || len(userIDs) == 0 {
		return
	}
	notifier.NotifyUsers(ctx, userIDs, event)
}
