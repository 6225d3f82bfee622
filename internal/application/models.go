package application

import (
	"time"

	"github.com/example/wavemeet/internal/activity"
	"github.com/example/wavemeet/internal/geo"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// PresenceStatus is an owner's active availability broadcast.
type PresenceStatus struct {
	OwnerID      string
	ActivityType activity.Type
	Note         *string
	Location     geo.Point
	SetAt        time.Time
	ExpiresAt    time.Time
}

// SetStatusParams wraps the data required to broadcast availability.
type SetStatusParams struct {
	Principal    Principal
	ActivityType string
	Note         *string
	Latitude     float64
	Longitude    float64
}

// FindNearbyParams describes a proximity search around a point.
// Zero RadiusKm and Limit select the configured defaults.
type FindNearbyParams struct {
	Principal Principal
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}

// NearbyStatus is a broadcast found by a proximity search.
type NearbyStatus struct {
	Status      PresenceStatus
	DistanceKm  float64
	DisplayName string
	AvatarURL   string
}

// BuddyMatch is a confirmed 1:1 pairing with its private chat.
type BuddyMatch struct {
	ID           string        `json:"id"`
	InitiatorID  string        `json:"initiator_id"`
	RecipientID  string        `json:"recipient_id"`
	ActivityType activity.Type `json:"activity_type"`
	ChatID       string        `json:"chat_id"`
	MatchedAt    time.Time     `json:"matched_at"`
}

// CreateMatchParams wraps the data required to respond to a broadcast.
type CreateMatchParams struct {
	Principal    Principal
	RecipientID  string
	ActivityType string
}

// Wave is a group-formation proposal.
type Wave struct {
	ID           string
	CreatorID    string
	ActivityType activity.Type
	Area         string
	Location     geo.Point
	ScheduledFor *time.Time
	Note         *string
	Threshold    int
	StartedAt    time.Time
	ExpiresAt    time.Time
	Unlocked     bool
	ChatID       *string
}

// Expired reports whether the wave is inert at now.
func (w Wave) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

// WaveDetail is a wave as seen by a particular caller. Participants is only
// populated once the wave is unlocked.
type WaveDetail struct {
	Wave             Wave
	ParticipantCount int
	Participants     []string
	Joined           bool
	IsCreator        bool
	Expired          bool
}

// CreateWaveParams wraps the data required to start a wave.
// Zero Threshold and TTL select the configured defaults.
type CreateWaveParams struct {
	Principal    Principal
	ActivityType string
	Area         string
	Latitude     float64
	Longitude    float64
	Threshold    int
	TTL          time.Duration
	ScheduledFor *time.Time
	Note         *string
}

// JoinResult reports the outcome of joining a wave.
type JoinResult struct {
	AlreadyJoined    bool
	ParticipantCount int
	Unlocked         bool
	ChatID           *string
}

// ListNearbyWavesParams describes a search for open waves around a point.
type ListNearbyWavesParams struct {
	Principal Principal
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Limit     int
}

// NearbyWave is an open wave found by a proximity search.
type NearbyWave struct {
	Wave             Wave
	DistanceKm       float64
	ParticipantCount int
}

// Chat is a crew chat or a buddy chat.
type Chat struct {
	ID            string
	Kind          string
	ActivityType  activity.Type
	LocationLabel string
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

// ChatMember is a chat member resolved for presentation.
type ChatMember struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	JoinedAt    time.Time
}

// Message is a chat message.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PostMessageParams wraps the data required to post a message.
type PostMessageParams struct {
	Principal Principal
	ChatID    string
	Content   string
}

// GetMessagesParams selects the most recent messages of a chat.
type GetMessagesParams struct {
	Principal Principal
	ChatID    string
	Limit     int
}
