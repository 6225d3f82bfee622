package sqlite_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wavemeet/internal/activity"
	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
	"github.com/example/wavemeet/internal/testfixtures"
)

func TestPresenceRepositoryUpsertReplacesBroadcast(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Presence

	first := testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("alice")).Persistence()
	require.NoError(t, repo.UpsertBroadcast(ctx, first))

	second := testfixtures.NewBroadcastFixture(
		testfixtures.WithBroadcastOwner("alice"),
		testfixtures.WithBroadcastActivity(activity.Coffee),
		testfixtures.WithBroadcastNote("flat white?"),
		testfixtures.WithBroadcastSetAt(at(10*time.Minute)),
	).Persistence()
	require.NoError(t, repo.UpsertBroadcast(ctx, second))

	got, err := repo.GetActiveBroadcast(ctx, "alice", at(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "COFFEE", got.ActivityType)
	require.NotNil(t, got.Note)
	assert.Equal(t, "flat white?", *got.Note)
	assert.True(t, second.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, 1, countRows(t, storage, `SELECT COUNT(*) FROM presence_broadcasts WHERE owner_id = ?`, "alice"))
}

func TestPresenceRepositoryExpiryBoundary(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Presence

	b := testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("bob")).Persistence()
	require.NoError(t, repo.UpsertBroadcast(ctx, b))

	_, err := repo.GetActiveBroadcast(ctx, "bob", b.ExpiresAt.Add(-time.Nanosecond))
	require.NoError(t, err)

	_, err = repo.GetActiveBroadcast(ctx, "bob", b.ExpiresAt)
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = repo.GetActiveBroadcast(ctx, "nobody", baseTime)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestPresenceRepositoryDeleteIsIdempotent(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Presence

	require.NoError(t, repo.UpsertBroadcast(ctx, testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("carol")).Persistence()))
	require.NoError(t, repo.DeleteBroadcast(ctx, "carol"))
	require.NoError(t, repo.DeleteBroadcast(ctx, "carol"))

	_, err := repo.GetActiveBroadcast(ctx, "carol", baseTime)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestPresenceRepositoryListActiveBroadcasts(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Presence

	for _, b := range []testfixtures.BroadcastFixture{
		testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("me")),
		testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("near"), testfixtures.WithBroadcastKmNorth(2)),
		testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("far"), testfixtures.WithBroadcastKmNorth(40)),
		testfixtures.NewBroadcastFixture(testfixtures.WithBroadcastOwner("stale"), testfixtures.WithBroadcastSetAt(at(-3*time.Hour))),
	} {
		require.NoError(t, repo.UpsertBroadcast(ctx, b.Persistence()))
	}

	got, err := repo.ListActiveBroadcasts(ctx, persistence.BroadcastQuery{
		Box:            geo.BoundingBoxAround(testfixtures.DefaultLocation, 5),
		ExcludeOwnerID: "me",
		Now:            baseTime,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].OwnerID)
}

func TestPresenceRepositoryListAcrossAntimeridian(t *testing.T) {
	storage, ctx := newStorage(t)
	repo := storage.Presence

	east := geo.Point{Lat: -16.5, Lng: 179.99}
	west := geo.Point{Lat: -16.5, Lng: -179.99}
	require.NoError(t, repo.UpsertBroadcast(ctx, testfixtures.NewBroadcastFixture(
		testfixtures.WithBroadcastOwner("west"), testfixtures.WithBroadcastLocation(west)).Persistence()))

	got, err := repo.ListActiveBroadcasts(ctx, persistence.BroadcastQuery{
		Box: geo.BoundingBoxAround(east, 5),
		Now: baseTime,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "west", got[0].OwnerID)
}
