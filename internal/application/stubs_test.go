package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var baseTime = time.Date(2024, time.June, 1, 18, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// memoryStore is an in-memory stand-in for the SQLite repositories.
type memoryStore struct {
	mu           sync.Mutex
	broadcasts   map[string]persistence.PresenceBroadcast
	matches      []persistence.BuddyMatch
	waves        map[string]persistence.Wave
	participants map[string][]persistence.WaveParticipant
	chats        map[string]persistence.CrewChat
	members      map[string][]persistence.ChatMember
	messages     []persistence.ChatMessage

	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		broadcasts:   map[string]persistence.PresenceBroadcast{},
		waves:        map[string]persistence.Wave{},
		participants: map[string][]persistence.WaveParticipant{},
		chats:        map[string]persistence.CrewChat{},
		members:      map[string][]persistence.ChatMember{},
	}
}

// presence

func (m *memoryStore) UpsertBroadcast(_ context.Context, b persistence.PresenceBroadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.broadcasts[b.OwnerID] = b
	return nil
}

func (m *memoryStore) GetActiveBroadcast(_ context.Context, ownerID string, now time.Time) (persistence.PresenceBroadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.broadcasts[ownerID]
	if !ok || !b.ExpiresAt.After(now) {
		return persistence.PresenceBroadcast{}, persistence.ErrNotFound
	}
	return b, nil
}

func (m *memoryStore) DeleteBroadcast(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.broadcasts, ownerID)
	return nil
}

func (m *memoryStore) ListActiveBroadcasts(_ context.Context, q persistence.BroadcastQuery) ([]persistence.PresenceBroadcast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.PresenceBroadcast
	for _, b := range m.broadcasts {
		if b.ExpiresAt.After(q.Now) && b.OwnerID != q.ExcludeOwnerID {
			out = append(out, b)
		}
	}
	return out, nil
}

// buddies

func (m *memoryStore) MatchExists(_ context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchExistsLocked(a, b), nil
}

func (m *memoryStore) matchExistsLocked(a, b string) bool {
	for _, match := range m.matches {
		if (match.InitiatorID == a && match.RecipientID == b) || (match.InitiatorID == b && match.RecipientID == a) {
			return true
		}
	}
	return false
}

func (m *memoryStore) CreateMatch(_ context.Context, record persistence.NewBuddyMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.matchExistsLocked(record.Match.InitiatorID, record.Match.RecipientID) {
		return persistence.ErrDuplicate
	}
	m.matches = append(m.matches, record.Match)
	m.chats[record.Chat.ID] = record.Chat
	for _, id := range []string{record.Match.InitiatorID, record.Match.RecipientID} {
		m.members[record.Chat.ID] = append(m.members[record.Chat.ID], persistence.ChatMember{ChatID: record.Chat.ID, UserID: id, JoinedAt: record.Match.MatchedAt})
	}
	return nil
}

func (m *memoryStore) ListMatchesForUser(_ context.Context, userID string) ([]persistence.BuddyMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.BuddyMatch
	for i := len(m.matches) - 1; i >= 0; i-- {
		if m.matches[i].InitiatorID == userID || m.matches[i].RecipientID == userID {
			out = append(out, m.matches[i])
		}
	}
	return out, nil
}

// waves

func (m *memoryStore) CreateWave(_ context.Context, w persistence.Wave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waves[w.ID] = w
	return nil
}

func (m *memoryStore) GetWave(_ context.Context, id string) (persistence.Wave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[id]
	if !ok {
		return persistence.Wave{}, persistence.ErrNotFound
	}
	return w, nil
}

func (m *memoryStore) CountParticipants(_ context.Context, waveID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants[waveID]), nil
}

func (m *memoryStore) ListParticipants(_ context.Context, waveID string) ([]persistence.WaveParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]persistence.WaveParticipant(nil), m.participants[waveID]...), nil
}

func (m *memoryStore) IsParticipant(_ context.Context, waveID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isParticipantLocked(waveID, userID), nil
}

func (m *memoryStore) isParticipantLocked(waveID, userID string) bool {
	for _, p := range m.participants[waveID] {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (m *memoryStore) JoinWave(_ context.Context, req persistence.JoinWaveRequest) (persistence.JoinWaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[req.WaveID]
	if !ok {
		return persistence.JoinWaveOutcome{}, persistence.ErrNotFound
	}
	if !req.Now.Before(w.ExpiresAt) {
		return persistence.JoinWaveOutcome{}, persistence.ErrExpired
	}
	if req.UserID == w.CreatorID || m.isParticipantLocked(w.ID, req.UserID) {
		return persistence.JoinWaveOutcome{AlreadyJoined: true, ParticipantCount: len(m.participants[w.ID]), Unlocked: w.Unlocked, ChatID: w.ChatID}, nil
	}
	m.participants[w.ID] = append(m.participants[w.ID], persistence.WaveParticipant{WaveID: w.ID, UserID: req.UserID, JoinedAt: req.Now})
	count := len(m.participants[w.ID])
	out := persistence.JoinWaveOutcome{ParticipantCount: count, Unlocked: w.Unlocked, ChatID: w.ChatID}

	switch {
	case w.Unlocked:
		m.members[*w.ChatID] = append(m.members[*w.ChatID], persistence.ChatMember{ChatID: *w.ChatID, UserID: req.UserID, JoinedAt: req.Now})
		out.ChatMembers = []string{req.UserID}
	case count >= w.Threshold:
		chat := req.Chat
		chat.ActivityType = w.ActivityType
		chat.LocationLabel = w.Area
		chat.CreatedAt = req.Now
		m.chats[chat.ID] = chat
		var ids []string
		for _, p := range m.participants[w.ID] {
			ids = append(ids, p.UserID)
		}
		if req.IncludeCreator {
			ids = append(ids, w.CreatorID)
		}
		for _, id := range ids {
			m.members[chat.ID] = append(m.members[chat.ID], persistence.ChatMember{ChatID: chat.ID, UserID: id, JoinedAt: req.Now})
		}
		chatID := chat.ID
		w.Unlocked = true
		w.ChatID = &chatID
		m.waves[w.ID] = w
		out.Unlocked = true
		out.UnlockedNow = true
		out.ChatID = &chatID
		out.ChatMembers = ids
	}
	return out, nil
}

func (m *memoryStore) LeaveWave(_ context.Context, waveID, userID string) (persistence.LeaveWaveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[waveID]
	if !ok {
		return persistence.LeaveWaveOutcome{}, persistence.ErrNotFound
	}
	idx := -1
	for i, p := range m.participants[waveID] {
		if p.UserID == userID {
			idx = i
		}
	}
	if idx < 0 {
		return persistence.LeaveWaveOutcome{}, persistence.ErrNotParticipant
	}
	m.participants[waveID] = append(m.participants[waveID][:idx], m.participants[waveID][idx+1:]...)
	if w.Unlocked {
		m.removeMemberLocked(*w.ChatID, userID)
	}
	return persistence.LeaveWaveOutcome{Unlocked: w.Unlocked, ChatID: w.ChatID}, nil
}

func (m *memoryStore) removeMemberLocked(chatID, userID string) {
	kept := m.members[chatID][:0]
	for _, member := range m.members[chatID] {
		if member.UserID != userID {
			kept = append(kept, member)
		}
	}
	m.members[chatID] = kept
}

func (m *memoryStore) DeleteWave(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waves[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if w.ChatID != nil {
		delete(m.chats, *w.ChatID)
		delete(m.members, *w.ChatID)
	}
	delete(m.participants, id)
	delete(m.waves, id)
	return nil
}

func (m *memoryStore) ListOpenWaves(_ context.Context, q persistence.WaveQuery) ([]persistence.Wave, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Wave
	for _, w := range m.waves {
		if w.ExpiresAt.After(q.Now) {
			out = append(out, w)
		}
	}
	return out, nil
}

// chats

func (m *memoryStore) GetChat(_ context.Context, id string) (persistence.CrewChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return persistence.CrewChat{}, persistence.ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) IsMember(_ context.Context, chatID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members[chatID] {
		if member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) ListMembers(_ context.Context, chatID string) ([]persistence.ChatMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]persistence.ChatMember(nil), m.members[chatID]...), nil
}

func (m *memoryStore) CreateMessage(_ context.Context, msg persistence.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[msg.ChatID]
	if !ok {
		return persistence.ErrNotFound
	}
	at := msg.CreatedAt
	chat.LastMessageAt = &at
	m.chats[msg.ChatID] = chat
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memoryStore) ListMessages(_ context.Context, q persistence.MessageQuery) ([]persistence.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	excluded := map[string]bool{}
	for _, id := range q.ExcludeSenderIDs {
		excluded[id] = true
	}
	var out []persistence.ChatMessage
	for _, msg := range m.messages {
		if msg.ChatID == q.ChatID && !excluded[msg.SenderID] {
			out = append(out, msg)
		}
	}
	if len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

func (m *memoryStore) ListChatsForUser(_ context.Context, userID string) ([]persistence.CrewChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.CrewChat
	for chatID, members := range m.members {
		for _, member := range members {
			if member.UserID == userID {
				out = append(out, m.chats[chatID])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) memberIDs(chatID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, member := range m.members[chatID] {
		ids = append(ids, member.UserID)
	}
	sort.Strings(ids)
	return ids
}

type stubDirectory map[string]Profile

func (d stubDirectory) LookupProfiles(_ context.Context, ids []string) (map[string]Profile, error) {
	out := map[string]Profile{}
	for _, id := range ids {
		if p, ok := d[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubBlocks map[string][]string

func (b stubBlocks) BlockedUserIDs(_ context.Context, userID string) ([]string, error) {
	return b[userID], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

type notifiedEvent struct {
	UserIDs []string
	Event   Event
}

func (n *recordingNotifier) NotifyUsers(_ context.Context, userIDs []string, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedEvent{UserIDs: append([]string(nil), userIDs...), Event: event})
}

func (n *recordingNotifier) ofType(eventType string) []notifiedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifiedEvent
	for _, e := range n.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func principal(id string) Principal { return Principal{UserID: id} }

func strPtr(s string) *string { return &s }

func persistenceBroadcast(owner string, p geo.Point, setAt time.Time) persistence.PresenceBroadcast {
	return persistence.PresenceBroadcast{
		OwnerID:      owner,
		ActivityType: "RUN",
		Latitude:     p.Lat,
		Longitude:    p.Lng,
		SetAt:        setAt,
		ExpiresAt:    setAt.Add(2 * time.Hour),
	}
}
