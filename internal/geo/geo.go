// Package geo provides great-circle distance and bounding box helpers used to
// match broadcasts and waves near a point.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Point is a WGS84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the coordinates are finite and inside the WGS84 range.
func (p Point) Valid() bool {
	return ValidLatitude(p.Lat) && ValidLongitude(p.Lng)
}

// ValidLatitude reports whether lat is finite and within [-90, 90].
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && !math.IsInf(lat, 0) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is finite and within [-180, 180].
func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && !math.IsInf(lng, 0) && lng >= -180 && lng <= 180
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// rounding can push h marginally outside [0, 1] for antipodal or identical points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// LngRange is an inclusive longitude interval that never crosses the antimeridian.
type LngRange struct {
	Min float64
	Max float64
}

// BoundingBox is a coarse rectangle that contains every point within a radius of
// its centre. Near the antimeridian the longitude span is split into two ranges.
type BoundingBox struct {
	MinLat    float64
	MaxLat    float64
	LngRanges []LngRange
}

// Contains reports whether p falls inside the box.
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LngRanges {
		if p.Lng >= r.Min && p.Lng <= r.Max {
			return true
		}
	}
	return false
}

// BoundingBoxAround returns the box enclosing the circle of radiusKm around centre.
// When the circle reaches a pole every longitude is included.
func BoundingBoxAround(centre Point, radiusKm float64) BoundingBox {
	if radiusKm < 0 {
		radiusKm = 0
	}
	angular := radiusKm / EarthRadiusKm
	lat := toRadians(centre.Lat)

	minLat := lat - angular
	maxLat := lat + angular

	const halfPi = math.Pi / 2
	if minLat <= -halfPi || maxLat >= halfPi {
		return BoundingBox{
			MinLat:    math.Max(-90, toDegrees(minLat)),
			MaxLat:    math.Min(90, toDegrees(maxLat)),
			LngRanges: []LngRange{{Min: -180, Max: 180}},
		}
	}

	dLng := toDegrees(math.Asin(math.Min(1, math.Sin(angular)/math.Cos(lat))))
	minLng := centre.Lng - dLng
	maxLng := centre.Lng + dLng

	box := BoundingBox{MinLat: toDegrees(minLat), MaxLat: toDegrees(maxLat)}
	switch {
	case dLng >= 180:
		box.LngRanges = []LngRange{{Min: -180, Max: 180}}
	case minLng < -180:
		box.LngRanges = []LngRange{{Min: minLng + 360, Max: 180}, {Min: -180, Max: maxLng}}
	case maxLng > 180:
		box.LngRanges = []LngRange{{Min: minLng, Max: 180}, {Min: -180, Max: maxLng - 360}}
	default:
		box.LngRanges = []LngRange{{Min: minLng, Max: maxLng}}
	}
	return box
}

// OffsetNorth returns the point distanceKm due north of p along its meridian.
// Negative distances move south.
func OffsetNorth(p Point, distanceKm float64) Point {
	return Point{Lat: p.Lat + toDegrees(distanceKm/EarthRadiusKm), Lng: p.Lng}
}
