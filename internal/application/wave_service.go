package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

// WaveService runs the wave lifecycle: proposed, then unlocked once enough
// people join, never back.
type WaveService struct {
	waves       persistence.WaveRepository
	notifier    Notifier
	policy      Policy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewWaveService constructs a wave service with the provided dependencies.
func NewWaveService(waves persistence.WaveRepository, notifier Notifier, policy Policy, idGenerator func() string, now func() time.Time) *WaveService {
	return NewWaveServiceWithLogger(waves, notifier, policy, idGenerator, now, nil)
}

// NewWaveServiceWithLogger constructs a wave service with a specified logger.
func NewWaveServiceWithLogger(waves persistence.WaveRepository, notifier Notifier, policy Policy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *WaveService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WaveService{
		waves:       waves,
		notifier:    notifier,
		policy:      policy.withDefaults(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *WaveService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WaveService", operation, attrs...)
}

func (s *WaveService) configured() error {
	if s == nil || s.waves == nil {
		return fmt.Errorf("WaveService is not configured")
	}
	return nil
}

// Create starts a wave in the proposed state. The creator does not get a participant row.
func (s *WaveService) Create(ctx context.Context, params CreateWaveParams) (wave Wave, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", params.Principal.UserID,
		"activity_type", params.ActivityType,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create wave", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "wave created", "wave_id", wave.ID, "threshold", wave.Threshold)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	activityType := parseActivityType(vErr, params.ActivityType)
	validateCoordinates(vErr, params.Latitude, params.Longitude)
	note := normalizeNote(vErr, params.Note)

	area := strings.TrimSpace(params.Area)
	switch {
	case area == "":
		vErr.add("area", "is required")
	case utf8.RuneCountInString(area) > MaxAreaLength:
		vErr.add("area", fmt.Sprintf("must be at most %d characters", MaxAreaLength))
	}

	threshold := params.Threshold
	if threshold == 0 {
		threshold = s.policy.WaveDefaultThreshold
	}
	if threshold < MinWaveThreshold || threshold > MaxWaveThreshold {
		vErr.add("threshold", fmt.Sprintf("must be between %d and %d", MinWaveThreshold, MaxWaveThreshold))
	}

	ttl := params.TTL
	if ttl == 0 {
		ttl = s.policy.WaveTTL
	}
	if ttl < 0 || ttl > MaxWaveTTL {
		vErr.add("ttl", fmt.Sprintf("must be positive and at most %s", MaxWaveTTL))
	}

	startedAt := s.now().UTC()
	var scheduledFor *time.Time
	if params.ScheduledFor != nil {
		t := params.ScheduledFor.UTC()
		if t.Before(startedAt) {
			vErr.add("scheduled_for", "must not be in the past")
		}
		scheduledFor = &t
	}

	if vErr.HasErrors() {
		err = vErr
		return
	}

	wave = Wave{
		ID:           s.idGenerator(),
		CreatorID:    params.Principal.UserID,
		ActivityType: activityType,
		Area:         area,
		Location:     geo.Point{Lat: params.Latitude, Lng: params.Longitude},
		ScheduledFor: scheduledFor,
		Note:         note,
		Threshold:    threshold,
		StartedAt:    startedAt,
		ExpiresAt:    startedAt.Add(ttl),
	}
	if err = s.waves.CreateWave(ctx, toWaveRecord(wave)); err != nil {
		err = mapRepoError(err)
		wave = Wave{}
		return
	}
	return
}

// Join adds the caller to the wave. Joining twice, or joining one's own wave,
// reports AlreadyJoined without changing anything. The join that brings the
// count to the threshold creates the crew chat and unlocks the wave.
func (s *WaveService) Join(ctx context.Context, principal Principal, waveID string) (result JoinResult, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Join",
		"principal_id", principal.UserID,
		"wave_id", waveID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to join wave", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "wave joined",
			"already_joined", result.AlreadyJoined,
			"participant_count", result.ParticipantCount,
			"unlocked", result.Unlocked,
		)
	}()

	if err = requirePrincipal(principal); err != nil {
		return
	}

	var outcome persistence.JoinWaveOutcome
	outcome, err = s.waves.JoinWave(ctx, persistence.JoinWaveRequest{
		WaveID:         waveID,
		UserID:         principal.UserID,
		Now:            s.now().UTC(),
		Chat:           persistence.CrewChat{ID: s.idGenerator(), Kind: persistence.ChatKindCrew},
		IncludeCreator: s.policy.IncludeCreatorInChat,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result = JoinResult{
		AlreadyJoined:    outcome.AlreadyJoined,
		ParticipantCount: outcome.ParticipantCount,
		Unlocked:         outcome.Unlocked,
		ChatID:           outcome.ChatID,
	}
	if outcome.UnlockedNow {
		logger.InfoContext(ctx, "wave unlocked", "chat_id", *outcome.ChatID, "members", len(outcome.ChatMembers))
		notify(ctx, s.notifier, outcome.ChatMembers, Event{
			Type: EventWaveUnlocked,
			Payload: map[string]any{
				"wave_id": waveID,
				"chat_id": *outcome.ChatID,
			},
		})
	}
	return result, nil
}

// Leave removes the caller from the wave and, once unlocked, from its chat.
// The wave stays unlocked even if the count drops below the threshold.
func (s *WaveService) Leave(ctx context.Context, principal Principal, waveID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Leave",
		"principal_id", principal.UserID,
		"wave_id", waveID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to leave wave", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "wave left")
	}()

	if err = requirePrincipal(principal); err != nil {
		return
	}

	var record persistence.Wave
	record, err = s.waves.GetWave(ctx, waveID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if record.CreatorID == principal.UserID {
		err = ErrCreatorCannotLeave
		return
	}

	if _, err = s.waves.LeaveWave(ctx, waveID, principal.UserID); err != nil {
		err = mapRepoError(err)
		return
	}
	return nil
}

// Delete removes the wave together with its participants and chat. Only the creator may delete.
func (s *WaveService) Delete(ctx context.Context, principal Principal, waveID string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"wave_id", waveID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete wave", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "wave deleted")
	}()

	if err = requirePrincipal(principal); err != nil {
		return
	}

	var record persistence.Wave
	record, err = s.waves.GetWave(ctx, waveID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if record.CreatorID != principal.UserID {
		err = ErrNotWaveCreator
		return
	}

	if err = s.waves.DeleteWave(ctx, waveID); err != nil {
		err = mapRepoError(err)
		return
	}
	return nil
}

// Get returns the wave as seen by the caller. Until the wave unlocks only the
// participant count is visible, never who joined.
func (s *WaveService) Get(ctx context.Context, principal Principal, waveID string) (WaveDetail, error) {
	if err := s.configured(); err != nil {
		return WaveDetail{}, err
	}
	if err := requirePrincipal(principal); err != nil {
		return WaveDetail{}, err
	}

	detail, err := s.detail(ctx, principal, waveID)
	if err != nil {
		s.loggerWith(ctx, "Get", "principal_id", principal.UserID, "wave_id", waveID).
			ErrorContext(ctx, "failed to load wave", "error", err, "error_kind", ErrorKind(err))
		return WaveDetail{}, err
	}
	return detail, nil
}

func (s *WaveService) detail(ctx context.Context, principal Principal, waveID string) (WaveDetail, error) {
	record, err := s.waves.GetWave(ctx, waveID)
	if err != nil {
		return WaveDetail{}, mapRepoError(err)
	}
	wave := fromWaveRecord(record)

	count, err := s.waves.CountParticipants(ctx, waveID)
	if err != nil {
		return WaveDetail{}, mapRepoError(err)
	}
	detail := WaveDetail{
		Wave:             wave,
		ParticipantCount: count,
		IsCreator:        wave.CreatorID == principal.UserID,
		Expired:          wave.Expired(s.now()),
	}
	if !detail.IsCreator {
		if detail.Joined, err = s.waves.IsParticipant(ctx, waveID, principal.UserID); err != nil {
			return WaveDetail{}, mapRepoError(err)
		}
	}

	if wave.Unlocked {
		participants, err := s.waves.ListParticipants(ctx, waveID)
		if err != nil {
			return WaveDetail{}, mapRepoError(err)
		}
		detail.Participants = make([]string, 0, len(participants))
		for _, p := range participants {
			detail.Participants = append(detail.Participants, p.UserID)
		}
	}
	return detail, nil
}

// ListNearby returns open waves within the radius of a point, nearest first.
func (s *WaveService) ListNearby(ctx context.Context, params ListNearbyWavesParams) (results []NearbyWave, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListNearby", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "nearby wave search failed", "error", err, "error_kind", ErrorKind(err))
		}
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

	var records []persistence.Wave
	records, err = s.waves.ListOpenWaves(ctx, persistence.WaveQuery{
		Box: geo.BoundingBoxAround(centre, radius),
		Now: s.now().UTC(),
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	for _, record := range records {
		wave := fromWaveRecord(record)
		d := geo.DistanceKm(centre, wave.Location)
		if d > radius {
			continue
		}
		results = append(results, NearbyWave{Wave: wave, DistanceKm: d})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Wave.ID < results[j].Wave.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		if results[i].ParticipantCount, err = s.waves.CountParticipants(ctx, results[i].Wave.ID); err != nil {
			err = mapRepoError(err)
			results = nil
			return
		}
	}
	return results, nil
}

func toWaveRecord(w Wave) persistence.Wave {
	return persistence.Wave{
		ID:           w.ID,
		CreatorID:    w.CreatorID,
		ActivityType: w.ActivityType.Code(),
		Area:         w.Area,
		Latitude:     w.Location.Lat,
		Longitude:    w.Location.Lng,
		ScheduledFor: w.ScheduledFor,
		Note:         w.Note,
		Threshold:    w.Threshold,
		StartedAt:    w.StartedAt,
		ExpiresAt:    w.ExpiresAt,
		Unlocked:     w.Unlocked,
		ChatID:       w.ChatID,
	}
}

func fromWaveRecord(r persistence.Wave) Wave {
	return Wave{
		ID:           r.ID,
		CreatorID:    r.CreatorID,
		ActivityType: storedActivity(r.ActivityType),
		Area:         r.Area,
		Location:     geo.Point{Lat: r.Latitude, Lng: r.Longitude},
		ScheduledFor: r.ScheduledFor,
		Note:         r.Note,
		Threshold:    r.Threshold,
		StartedAt:    r.StartedAt,
		ExpiresAt:    r.ExpiresAt,
		Unlocked:     r.Unlocked,
		ChatID:       r.ChatID,
	}
}
