package persistence

import (
	"context"
	"time"

	"github.com/example/wavemeet/internal/geo"
)

// BroadcastQuery narrows the nearby presence scan.
type BroadcastQuery struct {
	Box            geo.BoundingBox
	ExcludeOwnerID string
	Now            time.Time
}

// PresenceRepository stores presence broadcasts.
type PresenceRepository interface {
	UpsertBroadcast(ctx context.Context, broadcast PresenceBroadcast) error
	// GetActiveBroadcast returns ErrNotFound when no row exists or it expired at or before now.
	GetActiveBroadcast(ctx context.Context, ownerID string, now time.Time) (PresenceBroadcast, error)
	DeleteBroadcast(ctx context.Context, ownerID string) error
	ListActiveBroadcasts(ctx context.Context, query BroadcastQuery) ([]PresenceBroadcast, error)
}

// NewBuddyMatch bundles the rows written atomically when a match is confirmed.
type NewBuddyMatch struct {
	Match BuddyMatch
	Chat  CrewChat
}

// BuddyRepository stores buddy matches and their private chats.
type BuddyRepository interface {
	MatchExists(ctx context.Context, userA, userB string) (bool, error)
	CreateMatch(ctx context.Context, record NewBuddyMatch) error
	ListMatchesForUser(ctx context.Context, userID string) ([]BuddyMatch, error)
}

// JoinWaveRequest carries everything the join transaction needs.
// Chat is only written if this join crosses the unlock threshold.
type JoinWaveRequest struct {
	WaveID         string
	UserID         string
	Now            time.Time
	Chat           CrewChat
	IncludeCreator bool
}

// JoinWaveOutcome reports the state observed inside the join transaction.
type JoinWaveOutcome struct {
	AlreadyJoined    bool
	ParticipantCount int
	Unlocked         bool
	UnlockedNow      bool
	ChatID           *string
	ChatMembers      []string
}

// LeaveWaveOutcome reports what leaving removed.
type LeaveWaveOutcome struct {
	Unlocked bool
	ChatID   *string
}

// WaveQuery narrows the nearby wave scan to open waves.
type WaveQuery struct {
	Box geo.BoundingBox
	Now time.Time
}

// WaveRepository stores waves and their participant rosters.
type WaveRepository interface {
	CreateWave(ctx context.Context, wave Wave) error
	GetWave(ctx context.Context, id string) (Wave, error)
	CountParticipants(ctx context.Context, waveID string) (int, error)
	ListParticipants(ctx context.Context, waveID string) ([]WaveParticipant, error)
	IsParticipant(ctx context.Context, waveID, userID string) (bool, error)
	JoinWave(ctx context.Context, req JoinWaveRequest) (JoinWaveOutcome, error)
	LeaveWave(ctx context.Context, waveID, userID string) (LeaveWaveOutcome, error)
	DeleteWave(ctx context.Context, id string) error
	ListOpenWaves(ctx context.Context, query WaveQuery) ([]Wave, error)
}

// MessageQuery selects the most recent messages of a chat.
type MessageQuery struct {
	ChatID           string
	ExcludeSenderIDs []string
	Limit            int
}

// ChatRepository stores chats, members and messages.
type ChatRepository interface {
	GetChat(ctx context.Context, id string) (CrewChat, error)
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
	ListMembers(ctx context.Context, chatID string) ([]ChatMember, error)
	// CreateMessage inserts the message and advances last_message_at atomically.
	CreateMessage(ctx context.Context, message ChatMessage) error
	// ListMessages returns up to Limit of the newest messages in chronological order.
	ListMessages(ctx context.Context, query MessageQuery) ([]ChatMessage, error)
	ListChatsForUser(ctx context.Context, userID string) ([]CrewChat, error)
}

// ProfileRepository backs the default user directory.
type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile UserProfile) error
	GetProfiles(ctx context.Context, userIDs []string) (map[string]UserProfile, error)
}

// BlockRepository backs the default block resolver.
type BlockRepository interface {
	BlockUser(ctx context.Context, blockerID, blockedID string, at time.Time) error
	// ListBlockedUserIDs returns users blocked by or blocking userID.
	ListBlockedUserIDs(ctx context.Context, userID string) ([]string, error)
}
