package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

// ProximityService finds live broadcasts near a point.
type ProximityService struct {
	presence  persistence.PresenceRepository
	directory UserDirectory
	policy    Policy
	now       func() time.Time
	logger    *slog.Logger
}

// NewProximityService constructs a proximity service. directory may be nil.
func NewProximityService(presence persistence.PresenceRepository, directory UserDirectory, policy Policy, now func() time.Time) *ProximityService {
	return NewProximityServiceWithLogger(presence, directory, policy, now, nil)
}

// NewProximityServiceWithLogger constructs a proximity service with a specified logger.
func NewProximityServiceWithLogger(presence persistence.PresenceRepository, directory UserDirectory, policy Policy, now func() time.Time, logger *slog.Logger) *ProximityService {
	if now == nil {
		now = time.Now
	}
	return &ProximityService{
		presence:  presence,
		directory: directory,
		policy:    policy.withDefaults(),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// FindNearby returns unexpired broadcasts other than the caller's own whose
// haversine distance from the point is at most the radius, nearest first.
func (s *ProximityService) FindNearby(ctx context.Context, params FindNearbyParams) (results []NearbyStatus, err error) {
	if s == nil || s.presence == nil {
		err = fmt.Errorf("ProximityService is not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ProximityService", "FindNearby",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "nearby search failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "nearby search completed", "results", len(results))
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	validateCoordinates(vErr, params.Latitude, params.Longitude)
	radius := resolveRadius(vErr, params.RadiusKm, s.policy.NearbyRadiusKm)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	limit := clampLimit(params.Limit, s.policy.NearbyLimit, MaxNearbyLimit)
	centre := geo.Point{Lat: params.Latitude, Lng: params.Longitude}

	var records []persistence.PresenceBroadcast
	records, err = s.presence.ListActiveBroadcasts(ctx, persistence.BroadcastQuery{
		Box:            geo.BoundingBoxAround(centre, radius),
		ExcludeOwnerID: params.Principal.UserID,
		Now:            s.now().UTC(),
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	for _, record := range records {
		if record.OwnerID == params.Principal.UserID {
			continue
		}
		status := fromBroadcastRecord(record)
		d := geo.DistanceKm(centre, status.Location)
		if d > radius {
			continue
		}
		results = append(results, NearbyStatus{Status: status, DistanceKm: d})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Status.OwnerID < results[j].Status.OwnerID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Status.OwnerID
	}
	profiles := lookupProfiles(ctx, s.directory, logger, ids)
	for i := range results {
		profile, ok := profiles[results[i].Status.OwnerID]
		results[i].DisplayName = displayName(profile, ok)
		results[i].AvatarURL = profile.AvatarURL
	}
	return results, nil
}

// resolveRadius applies the default and rejects radii outside (0, MaxNearbyRadiusKm].
func resolveRadius(v *ValidationError, radiusKm, def float64) float64 {
	switch {
	case math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm < 0:
		v.add("radius_km", "must be a positive number")
		return 0
	case radiusKm == 0:
		return def
	case radiusKm > MaxNearbyRadiusKm:
		v.add("radius_km", fmt.Sprintf("must be at most %g", MaxNearbyRadiusKm))
		return 0
	}
	return radiusKm
}
