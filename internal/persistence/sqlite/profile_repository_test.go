package sqlite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wavemeet/internal/persistence"
)

func TestProfileRepositoryUpsertAndGet(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Profiles

	require.NoError(t, repo.UpsertProfile(ctx, persistence.UserProfile{UserID: "alice", Username: "al", UpdatedAt: baseTime}))
	require.NoError(t, repo.UpsertProfile(ctx, persistence.UserProfile{
		UserID: "alice", Username: "al", DisplayName: "Alice", AvatarURL: "https://cdn.example/a.png", UpdatedAt: at(time.Minute),
	}))
	require.NoError(t, repo.UpsertProfile(ctx, persistence.UserProfile{UserID: "bob", DisplayName: "Bob", UpdatedAt: baseTime}))

	profiles, err := repo.GetProfiles(ctx, []string{"alice", "bob", "ghost"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Alice", profiles["alice"].DisplayName)
	assert.Equal(t, "https://cdn.example/a.png", profiles["alice"].AvatarURL)
	assert.NotContains(t, profiles, "ghost")

	empty, err := repo.GetProfiles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.ErrorIs(t, repo.UpsertProfile(ctx, persistence.UserProfile{}), persistence.ErrConstraintViolation)
}

func TestBlockRepositoryListsBothDirections(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Blocks

	require.NoError(t, repo.BlockUser(ctx, "alice", "bob", baseTime))
	require.NoError(t, repo.BlockUser(ctx, "alice", "bob", at(time.Minute)))
	require.NoError(t, repo.BlockUser(ctx, "carol", "alice", baseTime))
	require.NoError(t, repo.BlockUser(ctx, "dave", "erin", baseTime))

	ids, err := repo.ListBlockedUserIDs(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, ids)

	ids, err = repo.ListBlockedUserIDs(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	assert.ErrorIs(t, repo.BlockUser(ctx, "alice", "alice", baseTime), persistence.ErrConstraintViolation)
}
