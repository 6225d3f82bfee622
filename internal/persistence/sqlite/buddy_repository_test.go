package sqlite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wavemeet/internal/persistence"
)

func newMatch(id, initiator, recipient string, matchedAt time.Time) persistence.NewBuddyMatch {
	return persistence.NewBuddyMatch{
		Match: persistence.BuddyMatch{
			ID:           id,
			InitiatorID:  initiator,
			RecipientID:  recipient,
			ActivityType: "RUN",
			MatchedAt:    matchedAt,
		},
		Chat: persistence.CrewChat{
			ID:           "chat-" + id,
			ActivityType: "RUN",
			CreatedAt:    matchedAt,
		},
	}
}

func TestBuddyRepositoryCreateMatchWritesChat(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Buddies

	require.NoError(t, repo.CreateMatch(ctx, newMatch("m1", "alice", "bob", baseTime)))

	exists, err := repo.MatchExists(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	chat, err := storage.Chats.GetChat(ctx, "chat-m1")
	require.NoError(t, err)
	assert.Equal(t, persistence.ChatKindBuddy, chat.Kind)

	members, err := storage.Chats.ListMembers(ctx, "chat-m1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.ElementsMatch(t, []string{"alice", "bob"}, []string{members[0].UserID, members[1].UserID})
}

func TestBuddyRepositoryRejectsReversePair(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Buddies

	require.NoError(t, repo.CreateMatch(ctx, newMatch("m1", "alice", "bob", baseTime)))

	err := repo.CreateMatch(ctx, newMatch("m2", "bob", "alice", at(time.Minute)))
	assert.ErrorIs(t, err, persistence.ErrDuplicate)

	// the failed match must not leave its chat behind
	assert.Equal(t, 0, countRows(t, storage, `SELECT COUNT(*) FROM crew_chats WHERE id = ?`, "chat-m2"))
	assert.Equal(t, 0, countRows(t, storage, `SELECT COUNT(*) FROM crew_chat_members WHERE chat_id = ?`, "chat-m2"))
}

func TestBuddyRepositoryRejectsSelfMatch(t *testing.T) {
	storage, ctx := newStorage(t)

	err := storage.Buddies.CreateMatch(ctx, newMatch("m1", "alice", "alice", baseTime))
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestBuddyRepositoryListMatchesNewestFirst(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Buddies

	require.NoError(t, repo.CreateMatch(ctx, newMatch("m1", "alice", "bob", baseTime)))
	require.NoError(t, repo.CreateMatch(ctx, newMatch("m2", "carol", "alice", at(time.Hour))))
	require.NoError(t, repo.CreateMatch(ctx, newMatch("m3", "carol", "bob", at(2*time.Hour))))

	matches, err := repo.ListMatchesForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m2", matches[0].ID)
	assert.Equal(t, "m1", matches[1].ID)
	assert.Equal(t, "chat-m1", matches[1].ChatID)
}
