package application

import "time"

// Limits that are not configurable.
const (
	MaxNoteLength       = 200
	MaxMessageLength    = 500
	MaxAreaLength       = 120
	MaxNearbyRadiusKm   = 50.0
	MaxNearbyLimit      = 100
	MinWaveThreshold    = 2
	MaxWaveThreshold    = 50
	MaxWaveTTL          = 24 * time.Hour
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// Policy carries the configurable defaults applied by the services.
type Policy struct {
	PresenceTTL          time.Duration
	WaveTTL              time.Duration
	WaveDefaultThreshold int
	NearbyRadiusKm       float64
	NearbyLimit          int
	IncludeCreatorInChat bool
}

// DefaultPolicy returns the stock defaults.
func DefaultPolicy() Policy {
	return Policy{
		PresenceTTL:          2 * time.Hour,
		WaveTTL:              8 * time.Hour,
		WaveDefaultThreshold: 3,
		NearbyRadiusKm:       5,
		NearbyLimit:          20,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.PresenceTTL <= 0 {
		p.PresenceTTL = d.PresenceTTL
	}
	if p.WaveTTL <= 0 {
		p.WaveTTL = d.WaveTTL
	}
	if p.WaveDefaultThreshold <= 0 {
		p.WaveDefaultThreshold = d.WaveDefaultThreshold
	}
	if p.NearbyRadiusKm <= 0 {
		p.NearbyRadiusKm = d.NearbyRadiusKm
	}
	if p.NearbyLimit <= 0 {
		p.NearbyLimit = d.NearbyLimit
	}
	return p
}
