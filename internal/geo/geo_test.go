package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	berlin = Point{Lat: 52.5200, Lng: 13.4050}
	paris  = Point{Lat: 48.8566, Lng: 2.3522}
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	for _, p := range []Point{berlin, paris, {Lat: 90, Lng: 0}, {Lat: -33.86, Lng: 151.2}} {
		assert.Equal(t, 0.0, DistanceKm(p, p))
	}
}

func TestDistanceKm_IsSymmetric(t *testing.T) {
	assert.InDelta(t, DistanceKm(berlin, paris), DistanceKm(paris, berlin), 1e-9)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Berlin to Paris is roughly 878 km along the great circle.
	assert.InDelta(t, 878, DistanceKm(berlin, paris), 5)
}

func TestDistanceKm_SmallLatitudeStep(t *testing.T) {
	a := Point{Lat: 40.0, Lng: -73.0}
	b := Point{Lat: 40.01, Lng: -73.0}
	d := DistanceKm(a, b)
	assert.Less(t, d, 1.5)
	assert.Greater(t, d, 1.0)
}

func TestOffsetNorth_MatchesDistance(t *testing.T) {
	for _, km := range []float64{0.5, 4.999, 5.0001, 25} {
		moved := OffsetNorth(berlin, km)
		assert.InDelta(t, km, DistanceKm(berlin, moved), 1e-7, "offset %v km", km)
	}
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, Point{Lat: 90, Lng: -180}.Valid())
	assert.False(t, Point{Lat: 90.0001, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: 180.5}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: math.Inf(1)}.Valid())
}

func TestBoundingBoxAround_ContainsCircle(t *testing.T) {
	box := BoundingBoxAround(berlin, 5)
	require.Len(t, box.LngRanges, 1)

	for _, bearing := range []float64{0, 45, 90, 135, 180, 225, 270, 315} {
		p := destination(berlin, 4.99, bearing)
		assert.True(t, box.Contains(p), "bearing %v should be inside", bearing)
	}
	assert.False(t, box.Contains(paris))
}

func TestBoundingBoxAround_SplitsAtAntimeridian(t *testing.T) {
	centre := Point{Lat: -17.7, Lng: 179.98}
	box := BoundingBoxAround(centre, 10)
	require.Len(t, box.LngRanges, 2)

	east := Point{Lat: -17.7, Lng: -179.97}
	assert.LessOrEqual(t, DistanceKm(centre, east), 10.0)
	assert.True(t, box.Contains(east))
	assert.True(t, box.Contains(Point{Lat: -17.7, Lng: 179.95}))
	assert.False(t, box.Contains(Point{Lat: -17.7, Lng: 0}))
}

func TestBoundingBoxAround_PoleCoversAllLongitudes(t *testing.T) {
	box := BoundingBoxAround(Point{Lat: 89.99, Lng: 10}, 5)
	require.Len(t, box.LngRanges, 1)
	assert.Equal(t, -180.0, box.LngRanges[0].Min)
	assert.Equal(t, 180.0, box.LngRanges[0].Max)
	assert.Equal(t, 90.0, box.MaxLat)
}

// destination walks distanceKm from p along the initial bearing (degrees).
func destination(p Point, distanceKm, bearing float64) Point {
	d := distanceKm / EarthRadiusKm
	lat1 := toRadians(p.Lat)
	lng1 := toRadians(p.Lng)
	brg := toRadians(bearing)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	return Point{Lat: toDegrees(lat2), Lng: toDegrees(lng2)}
}
