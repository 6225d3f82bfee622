package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
)

type waveService interface {
	Create(ctx context.Context, params application.CreateWaveParams) (application.Wave, error)
	Join(ctx context.Context, principal application.Principal, waveID string) (application.JoinResult, error)
	Leave(ctx context.Context, principal application.Principal, waveID string) error
	Delete(ctx context.Context, principal application.Principal, waveID string) error
	Get(ctx context.Context, principal application.Principal, waveID string) (application.WaveDetail, error)
	ListNearby(ctx context.Context, params application.ListNearbyWavesParams) ([]application.NearbyWave, error)
}

// WaveHandler serves the wave lifecycle.
type WaveHandler struct {
	service   waveService
	responder responder
	logger    *slog.Logger
}

// NewWaveHandler wires the wave endpoints.
func NewWaveHandler(service waveService, logger *slog.Logger) *WaveHandler {
	base := defaultLogger(logger)
	return &WaveHandler{service: service, responder: newResponder(base), logger: base}
}

type createWaveRequest struct {
	ActivityType string     `json:"activity_type"`
	Area         string     `json:"area"`
	Latitude     float64    `json:"lat"`
	Longitude    float64    `json:"lng"`
	Threshold    int        `json:"threshold"`
	TTLMinutes   int        `json:"ttl_minutes"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	Note         *string    `json:"note"`
}

type waveDTO struct {
	ID           string      `json:"id"`
	CreatorID    string      `json:"creator_id"`
	Activity     activityDTO `json:"activity"`
	Area         string      `json:"area"`
	Latitude     float64     `json:"lat"`
	Longitude    float64     `json:"lng"`
	ScheduledFor *time.Time  `json:"scheduled_for,omitempty"`
	Note         *string     `json:"note,omitempty"`
	Threshold    int         `json:"threshold"`
	StartedAt    time.Time   `json:"started_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	Unlocked     bool        `json:"unlocked"`
	ChatID       *string     `json:"chat_id,omitempty"`
}

type waveDetailDTO struct {
	Wave             waveDTO  `json:"wave"`
	ParticipantCount int      `json:"participant_count"`
	Participants     []string `json:"participants,omitempty"`
	Joined           bool     `json:"joined"`
	IsCreator        bool     `json:"is_creator"`
	Expired          bool     `json:"expired"`
}

type joinResultDTO struct {
	AlreadyJoined    bool    `json:"already_joined"`
	ParticipantCount int     `json:"participant_count"`
	Unlocked         bool    `json:"unlocked"`
	ChatID           *string `json:"chat_id,omitempty"`
}

type nearbyWaveDTO struct {
	Wave             waveDTO `json:"wave"`
	DistanceKm       float64 `json:"distance_km"`
	ParticipantCount int     `json:"participant_count"`
}

func toWaveDTO(w application.Wave, viewerCanSeeChat bool) waveDTO {
	dto := waveDTO{
		ID:           w.ID,
		CreatorID:    w.CreatorID,
		Activity:     toActivityDTO(w.ActivityType),
		Area:         w.Area,
		Latitude:     w.Location.Lat,
		Longitude:    w.Location.Lng,
		ScheduledFor: w.ScheduledFor,
		Note:         w.Note,
		Threshold:    w.Threshold,
		StartedAt:    w.StartedAt,
		ExpiresAt:    w.ExpiresAt,
		Unlocked:     w.Unlocked,
	}
	if viewerCanSeeChat {
		dto.ChatID = w.ChatID
	}
	return dto
}

// Create handles POST /waves.
func (h *WaveHandler) Create(c *fiber.Ctx) error {
	ctx := requestContext(c)
	principal, _ := PrincipalFromCtx(c)

	var req createWaveRequest
	if err := c.BodyParser(&req); err != nil {
		handlerLogger(c, h.logger, "WaveHandler", "Create", "error_kind", "bad_request").
			WarnContext(ctx, "failed to decode wave request", "error", err)
		return h.responder.badRequest(c, errBadRequestBody)
	}

	wave, err := h.service.Create(ctx, application.CreateWaveParams{
		Principal:    principal,
		ActivityType: req.ActivityType,
		Area:         req.Area,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Threshold:    req.Threshold,
		TTL:          time.Duration(req.TTLMinutes) * time.Minute,
		ScheduledFor: req.ScheduledFor,
		Note:         req.Note,
	})
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusCreated, fiber.Map{"wave": toWaveDTO(wave, true)})
}

// Get handles GET /waves/:id.
func (h *WaveHandler) Get(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	detail, err := h.service.Get(requestContext(c), principal, c.Params("id"))
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusOK, waveDetailDTO{
		Wave:             toWaveDTO(detail.Wave, detail.Joined || detail.IsCreator),
		ParticipantCount: detail.ParticipantCount,
		Participants:     detail.Participants,
		Joined:           detail.Joined,
		IsCreator:        detail.IsCreator,
		Expired:          detail.Expired,
	})
}

// Delete handles DELETE /waves/:id.
func (h *WaveHandler) Delete(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	if err := h.service.Delete(requestContext(c), principal, c.Params("id")); err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusNoContent, nil)
}

// Join handles POST /waves/:id/participants.
func (h *WaveHandler) Join(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	result, err := h.service.Join(requestContext(c), principal, c.Params("id"))
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusOK, joinResultDTO{
		AlreadyJoined:    result.AlreadyJoined,
		ParticipantCount: result.ParticipantCount,
		Unlocked:         result.Unlocked,
		ChatID:           result.ChatID,
	})
}

// Leave handles DELETE /waves/:id/participants.
func (h *WaveHandler) Leave(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	if err := h.service.Leave(requestContext(c), principal, c.Params("id")); err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusNoContent, nil)
}

// Nearby handles GET /waves/nearby.
func (h *WaveHandler) Nearby(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)

	var v application.ValidationError
	params := application.ListNearbyWavesParams{
		Principal: principal,
		Latitude:  requireQueryFloat(c, &v, "lat"),
		Longitude: requireQueryFloat(c, &v, "lng"),
		RadiusKm:  queryFloat(c, &v, "radius_km", 0),
		Limit:     queryInt(c, &v, "limit"),
	}
	if v.HasErrors() {
		return h.responder.handleServiceError(c, &v)
	}

	results, err := h.service.ListNearby(requestContext(c), params)
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	items := make([]nearbyWaveDTO, 0, len(results))
	for _, r := range results {
		items = append(items, nearbyWaveDTO{
			Wave:             toWaveDTO(r.Wave, false),
			DistanceKm:       r.DistanceKm,
			ParticipantCount: r.ParticipantCount,
		})
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"results": items})
}
