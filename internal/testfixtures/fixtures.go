package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/wavemeet/internal/activity"
	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

var (
	waveCounter      uint64
	broadcastCounter uint64
)

// DefaultLocation is the anchor point fixtures are placed around (Berlin Mitte).
var DefaultLocation = geo.Point{Lat: 52.52, Lng: 13.405}

// ----------------------------- Wave fixtures -----------------------------

// WaveFixture is a deterministic wave that can be materialised for
// application or persistence tests.
type WaveFixture struct {
	ID           string
	CreatorID    string
	ActivityType activity.Type
	Area         string
	Location     geo.Point
	Threshold    int
	StartedAt    time.Time
	TTL          time.Duration
	Note         *string
}

// WaveOption configures the generated wave fixture.
type WaveOption func(*WaveFixture)

// NewWaveFixture returns a proposed wave with threshold 3 and an 8 hour TTL.
func NewWaveFixture(opts ...WaveOption) WaveFixture {
	idx := atomic.AddUint64(&waveCounter, 1)
	fixture := WaveFixture{
		ID:           fmt.Sprintf("wave-%03d", idx),
		CreatorID:    fmt.Sprintf("creator-%03d", idx),
		ActivityType: activity.BoardGames,
		Area:         "Mitte",
		Location:     DefaultLocation,
		Threshold:    3,
		StartedAt:    referenceTime,
		TTL:          8 * time.Hour,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithWaveID overrides the generated wave ID.
func WithWaveID(id string) WaveOption {
	return func(f *WaveFixture) { f.ID = id }
}

// WithWaveCreator overrides the creator.
func WithWaveCreator(id string) WaveOption {
	return func(f *WaveFixture) { f.CreatorID = id }
}

// WithWaveThreshold overrides the unlock threshold.
func WithWaveThreshold(n int) WaveOption {
	return func(f *WaveFixture) { f.Threshold = n }
}

// WithWaveLocation places the wave at p.
func WithWaveLocation(p geo.Point) WaveOption {
	return func(f *WaveFixture) { f.Location = p }
}

// WithWaveStartedAt sets the start time; expiry follows from the TTL.
func WithWaveStartedAt(t time.Time) WaveOption {
	return func(f *WaveFixture) { f.StartedAt = t }
}

// WithWaveTTL overrides the lifetime.
func WithWaveTTL(ttl time.Duration) WaveOption {
	return func(f *WaveFixture) { f.TTL = ttl }
}

// ExpiresAt returns StartedAt plus TTL.
func (f WaveFixture) ExpiresAt() time.Time {
	return f.StartedAt.Add(f.TTL)
}

// Persistence converts the fixture into a storage record in the proposed state.
func (f WaveFixture) Persistence() persistence.Wave {
	return persistence.Wave{
		ID:           f.ID,
		CreatorID:    f.CreatorID,
		ActivityType: f.ActivityType.Code(),
		Area:         f.Area,
		Latitude:     f.Location.Lat,
		Longitude:    f.Location.Lng,
		Note:         f.Note,
		Threshold:    f.Threshold,
		StartedAt:    f.StartedAt,
		ExpiresAt:    f.ExpiresAt(),
	}
}

// Params converts the fixture into service input.
func (f WaveFixture) Params() application.CreateWaveParams {
	return application.CreateWaveParams{
		Principal:    application.Principal{UserID: f.CreatorID},
		ActivityType: f.ActivityType.Code(),
		Area:         f.Area,
		Latitude:     f.Location.Lat,
		Longitude:    f.Location.Lng,
		Threshold:    f.Threshold,
		TTL:          f.TTL,
		Note:         f.Note,
	}
}

// --------------------------- Broadcast fixtures ---------------------------

// BroadcastFixture is a deterministic presence broadcast.
type BroadcastFixture struct {
	OwnerID      string
	ActivityType activity.Type
	Location     geo.Point
	SetAt        time.Time
	TTL          time.Duration
	Note         *string
}

// BroadcastOption configures the generated broadcast fixture.
type BroadcastOption func(*BroadcastFixture)

// NewBroadcastFixture returns a RUN broadcast at DefaultLocation with a 2 hour TTL.
func NewBroadcastFixture(opts ...BroadcastOption) BroadcastFixture {
	idx := atomic.AddUint64(&broadcastCounter, 1)
	fixture := BroadcastFixture{
		OwnerID:      fmt.Sprintf("user-%03d", idx),
		ActivityType: activity.Run,
		Location:     DefaultLocation,
		SetAt:        referenceTime,
		TTL:          2 * time.Hour,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBroadcastOwner overrides the owner.
func WithBroadcastOwner(id string) BroadcastOption {
	return func(f *BroadcastFixture) { f.OwnerID = id }
}

// WithBroadcastActivity overrides the activity.
func WithBroadcastActivity(t activity.Type) BroadcastOption {
	return func(f *BroadcastFixture) { f.ActivityType = t }
}

// WithBroadcastLocation places the broadcast at p.
func WithBroadcastLocation(p geo.Point) BroadcastOption {
	return func(f *BroadcastFixture) { f.Location = p }
}

// WithBroadcastKmNorth places the broadcast distanceKm north of DefaultLocation.
func WithBroadcastKmNorth(distanceKm float64) BroadcastOption {
	return func(f *BroadcastFixture) { f.Location = geo.OffsetNorth(DefaultLocation, distanceKm) }
}

// WithBroadcastSetAt overrides the set time.
func WithBroadcastSetAt(t time.Time) BroadcastOption {
	return func(f *BroadcastFixture) { f.SetAt = t }
}

// WithBroadcastNote attaches a note.
func WithBroadcastNote(note string) BroadcastOption {
	return func(f *BroadcastFixture) { f.Note = &note }
}

// Persistence converts the fixture into a storage record.
func (f BroadcastFixture) Persistence() persistence.PresenceBroadcast {
	return persistence.PresenceBroadcast{
		OwnerID:      f.OwnerID,
		ActivityType: f.ActivityType.Code(),
		Note:         f.Note,
		Latitude:     f.Location.Lat,
		Longitude:    f.Location.Lng,
		SetAt:        f.SetAt,
		ExpiresAt:    f.SetAt.Add(f.TTL),
	}
}

// Params converts the fixture into service input.
func (f BroadcastFixture) Params() application.SetStatusParams {
	return application.SetStatusParams{
		Principal:    application.Principal{UserID: f.OwnerID},
		ActivityType: f.ActivityType.Code(),
		Note:         f.Note,
		Latitude:     f.Location.Lat,
		Longitude:    f.Location.Lng,
	}
}
