package persistence

import "time"

// Chat kinds stored in crew_chats.kind.
const (
	ChatKindCrew  = "crew"
	ChatKindBuddy = "buddy"
)

// PresenceBroadcast is the single availability record an owner may hold.
type PresenceBroadcast struct {
	OwnerID      string
	ActivityType string
	Note         *string
	Latitude     float64
	Longitude    float64
	SetAt        time.Time
	ExpiresAt    time.Time
}

// BuddyMatch is a confirmed pairing between two users.
type BuddyMatch struct {
	ID           string
	InitiatorID  string
	RecipientID  string
	ActivityType string
	ChatID       string
	MatchedAt    time.Time
}

// Wave is a group-formation proposal. Unlocked is true exactly when ChatID is set.
type Wave struct {
	ID           string
	CreatorID    string
	ActivityType string
	Area         string
	Latitude     float64
	Longitude    float64
	ScheduledFor *time.Time
	Note         *string
	Threshold    int
	StartedAt    time.Time
	ExpiresAt    time.Time
	Unlocked     bool
	ChatID       *string
}

// WaveParticipant is one row of a wave's join roster.
type WaveParticipant struct {
	WaveID   string
	UserID   string
	JoinedAt time.Time
}

// CrewChat is a conversation created by a wave unlock or a buddy match.
type CrewChat struct {
	ID            string
	Kind          string
	ActivityType  string
	LocationLabel string
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

// ChatMember associates a user with a chat.
type ChatMember struct {
	ChatID   string
	UserID   string
	JoinedAt time.Time
}

// ChatMessage is a message posted to a chat.
type ChatMessage struct {
	ID        string
	ChatID    string
	SenderID  string
	Content   string
	CreatedAt time.Time
}

// UserProfile is the denormalized directory entry used for presentation.
type UserProfile struct {
	UserID      string
	Username    string
	DisplayName string
	AvatarURL   string
	UpdatedAt   time.Time
}
