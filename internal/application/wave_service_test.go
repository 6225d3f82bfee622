package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/wavemeet/internal/geo"
)

type waveFixture struct {
	svc      *WaveService
	store    *memoryStore
	clock    *testClock
	notifier *recordingNotifier
}

func newWaveFixture(policy Policy) waveFixture {
	store := newMemoryStore()
	clock := newTestClock()
	notifier := &recordingNotifier{}
	return waveFixture{
		svc:      NewWaveServiceWithLogger(store, notifier, policy, sequentialIDs("w"), clock.Now, discardLogger),
		store:    store,
		clock:    clock,
		notifier: notifier,
	}
}

func (f waveFixture) create(t *testing.T, threshold int) Wave {
	t.Helper()
	wave, err := f.svc.Create(context.Background(), CreateWaveParams{
		Principal:    principal("creator"),
		ActivityType: "BOARD_GAMES",
		Area:         "Kreuzberg",
		Latitude:     origin.Lat,
		Longitude:    origin.Lng,
		Threshold:    threshold,
	})
	require.NoError(t, err)
	return wave
}

func TestWaveService_CreateDefaults(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	wave := f.create(t, 0)

	assert.Equal(t, 3, wave.Threshold)
	assert.Equal(t, wave.StartedAt.Add(8*time.Hour), wave.ExpiresAt)
	assert.False(t, wave.Unlocked)
	assert.Nil(t, wave.ChatID)
	assert.Empty(t, f.store.participants[wave.ID], "creator gets no participant row")
}

func TestWaveService_CreateValidation(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	past := baseTime.Add(-time.Hour)

	_, err := f.svc.Create(context.Background(), CreateWaveParams{
		Principal:    principal("creator"),
		ActivityType: "RUN",
		Threshold:    1,
		TTL:          25 * time.Hour,
		Latitude:     100,
		ScheduledFor: &past,
	})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	for _, field := range []string{"area", "threshold", "ttl", "latitude", "scheduled_for"} {
		assert.Contains(t, vErr.FieldErrors, field)
	}
}

func TestWaveService_ThresholdUnlockScenario(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	ctx := context.Background()
	wave := f.create(t, 3)

	r1, err := f.svc.Join(ctx, principal("u1"), wave.ID)
	require.NoError(t, err)
	assert.Equal(t, JoinResult{ParticipantCount: 1}, r1)

	r2, err := f.svc.Join(ctx, principal("u2"), wave.ID)
	require.NoError(t, err)
	assert.False(t, r2.Unlocked)

	detail, err := f.svc.Get(ctx, principal("u1"), wave.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.ParticipantCount)
	assert.Nil(t, detail.Participants, "identities hidden before unlock")
	assert.True(t, detail.Joined)

	r3, err := f.svc.Join(ctx, principal("u3"), wave.ID)
	require.NoError(t, err)
	assert.True(t, r3.Unlocked)
	require.NotNil(t, r3.ChatID)
	assert.Equal(t, 3, r3.ParticipantCount)
	assert.Equal(t, []string{"u1", "u2", "u3"}, f.store.memberIDs(*r3.ChatID))

	detail, err = f.svc.Get(ctx, principal("creator"), wave.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsCreator)
	assert.Equal(t, []string{"u1", "u2", "u3"}, detail.Participants)

	unlocks := f.notifier.ofType(EventWaveUnlocked)
	require.Len(t, unlocks, 1)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, unlocks[0].UserIDs)
}

func TestWaveService_JoinIsIdempotent(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	ctx := context.Background()
	wave := f.create(t, 3)

	_, err := f.svc.Join(ctx, principal("u1"), wave.ID)
	require.NoError(t, err)
	again, err := f.svc.Join(ctx, principal("u1"), wave.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyJoined)
	assert.Equal(t, 1, again.ParticipantCount)

	own, err := f.svc.Join(ctx, principal("creator"), wave.ID)
	require.NoError(t, err)
	assert.True(t, own.AlreadyJoined)
	assert.Len(t, f.store.participants[wave.ID], 1)
}

func TestWaveService_JoinExpired(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	wave := f.create(t, 3)

	f.clock.Advance(8*time.Hour - time.Nanosecond)
	_, err := f.svc.Join(context.Background(), principal("u1"), wave.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Nanosecond)
	_, err = f.svc.Join(context.Background(), principal("u2"), wave.ID)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = f.svc.Join(context.Background(), principal("u2"), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaveService_LeaveAfterUnlockKeepsChat(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	ctx := context.Background()
	wave := f.create(t, 3)
	var last JoinResult
	for _, u := range []string{"u1", "u2", "u3"} {
		var err error
		last, err = f.svc.Join(ctx, principal(u), wave.ID)
		require.NoError(t, err)
	}
	require.True(t, last.Unlocked)

	require.NoError(t, f.svc.Leave(ctx, principal("u2"), wave.ID))

	detail, err := f.svc.Get(ctx, principal("u1"), wave.ID)
	require.NoError(t, err)
	assert.True(t, detail.Wave.Unlocked)
	require.NotNil(t, detail.Wave.ChatID)
	assert.Equal(t, *last.ChatID, *detail.Wave.ChatID)
	assert.Equal(t, 2, detail.ParticipantCount)
	assert.Equal(t, []string{"u1", "u3"}, f.store.memberIDs(*last.ChatID))
}

func TestWaveService_LeaveRules(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	ctx := context.Background()
	wave := f.create(t, 3)

	assert.ErrorIs(t, f.svc.Leave(ctx, principal("creator"), wave.ID), ErrCreatorCannotLeave)
	assert.ErrorIs(t, f.svc.Leave(ctx, principal("creator"), wave.ID), ErrForbidden)
	assert.ErrorIs(t, f.svc.Leave(ctx, principal("stranger"), wave.ID), ErrNotParticipant)
	assert.ErrorIs(t, f.svc.Leave(ctx, principal("u1"), "missing"), ErrNotFound)
}

func TestWaveService_IncludeCreatorInChat(t *testing.T) {
	policy := DefaultPolicy()
	policy.IncludeCreatorInChat = true
	f := newWaveFixture(policy)
	ctx := context.Background()
	wave := f.create(t, 2)

	_, err := f.svc.Join(ctx, principal("u1"), wave.ID)
	require.NoError(t, err)
	res, err := f.svc.Join(ctx, principal("u2"), wave.ID)
	require.NoError(t, err)
	require.True(t, res.Unlocked)
	assert.Equal(t, []string{"creator", "u1", "u2"}, f.store.memberIDs(*res.ChatID))
}

func TestWaveService_DeleteCreatorOnly(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	ctx := context.Background()
	wave := f.create(t, 2)

	assert.ErrorIs(t, f.svc.Delete(ctx, principal("u1"), wave.ID), ErrNotWaveCreator)
	require.NoError(t, f.svc.Delete(ctx, principal("creator"), wave.ID))

	_, err := f.svc.Get(ctx, principal("creator"), wave.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaveService_ListNearby(t *testing.T) {
	f := newWaveFixture(DefaultPolicy())
	ctx := context.Background()

	far, err := f.svc.Create(ctx, CreateWaveParams{Principal: principal("c1"), ActivityType: "RUN", Area: "far", Latitude: geo.OffsetNorth(origin, 3).Lat, Longitude: origin.Lng})
	require.NoError(t, err)
	near, err := f.svc.Create(ctx, CreateWaveParams{Principal: principal("c2"), ActivityType: "RUN", Area: "near", Latitude: geo.OffsetNorth(origin, 1).Lat, Longitude: origin.Lng})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateWaveParams{Principal: principal("c3"), ActivityType: "RUN", Area: "out", Latitude: geo.OffsetNorth(origin, 9).Lat, Longitude: origin.Lng})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, principal("u1"), near.ID)
	require.NoError(t, err)

	results, err := f.svc.ListNearby(ctx, ListNearbyWavesParams{Principal: principal("me"), Latitude: origin.Lat, Longitude: origin.Lng})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, near.ID, results[0].Wave.ID)
	assert.Equal(t, 1, results[0].ParticipantCount)
	assert.Equal(t, far.ID, results[1].Wave.ID)
}
