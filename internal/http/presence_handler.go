package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
)

type presenceService interface {
	SetStatus(ctx context.Context, params application.SetStatusParams) (application.PresenceStatus, error)
	GetStatus(ctx context.Context, principal application.Principal, ownerID string) (application.PresenceStatus, error)
	ClearStatus(ctx context.Context, principal application.Principal) error
}

type proximityService interface {
	FindNearby(ctx context.Context, params application.FindNearbyParams) ([]application.NearbyStatus, error)
}

// PresenceHandler serves the caller's broadcast and proximity search.
type PresenceHandler struct {
	presence  presenceService
	proximity proximityService
	responder responder
	logger    *slog.Logger
}

// NewPresenceHandler wires the presence endpoints.
func NewPresenceHandler(presence presenceService, proximity proximityService, logger *slog.Logger) *PresenceHandler {
	base := defaultLogger(logger)
	return &PresenceHandler{presence: presence, proximity: proximity, responder: newResponder(base), logger: base}
}

type setStatusRequest struct {
	ActivityType string  `json:"activity_type"`
	Note         *string `json:"note"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lng"`
}

type statusDTO struct {
	OwnerID      string      `json:"owner_id"`
	ActivityType activityDTO `json:"activity"`
	Note         *string     `json:"note,omitempty"`
	Latitude     float64     `json:"lat"`
	Longitude    float64     `json:"lng"`
	SetAt        time.Time   `json:"set_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

type nearbyStatusDTO struct {
	statusDTO
	DistanceKm  float64 `json:"distance_km"`
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
}

func toStatusDTO(s application.PresenceStatus) statusDTO {
	return statusDTO{
		OwnerID:      s.OwnerID,
		ActivityType: toActivityDTO(s.ActivityType),
		Note:         s.Note,
		Latitude:     s.Location.Lat,
		Longitude:    s.Location.Lng,
		SetAt:        s.SetAt,
		ExpiresAt:    s.ExpiresAt,
	}
}

// SetStatus handles PUT /presence.
func (h *PresenceHandler) SetStatus(c *fiber.Ctx) error {
	ctx := requestContext(c)
	principal, _ := PrincipalFromCtx(c)

	var req setStatusRequest
	if err := c.BodyParser(&req); err != nil {
		handlerLogger(c, h.logger, "PresenceHandler", "SetStatus", "error_kind", "bad_request").
			WarnContext(ctx, "failed to decode status request", "error", err)
		return h.responder.badRequest(c, errBadRequestBody)
	}

	status, err := h.presence.SetStatus(ctx, application.SetStatusParams{
		Principal:    principal,
		ActivityType: req.ActivityType,
		Note:         req.Note,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"status": toStatusDTO(status)})
}

// GetOwnStatus handles GET /presence.
func (h *PresenceHandler) GetOwnStatus(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	return h.getStatus(c, principal, principal.UserID)
}

// GetStatus handles GET /presence/:userID.
func (h *PresenceHandler) GetStatus(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	return h.getStatus(c, principal, c.Params("userID"))
}

func (h *PresenceHandler) getStatus(c *fiber.Ctx, principal application.Principal, ownerID string) error {
	status, err := h.presence.GetStatus(requestContext(c), principal, ownerID)
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"status": toStatusDTO(status)})
}

// ClearStatus handles DELETE /presence.
func (h *PresenceHandler) ClearStatus(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	if err := h.presence.ClearStatus(requestContext(c), principal); err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusNoContent, nil)
}

// Nearby handles GET /presence/nearby.
func (h *PresenceHandler) Nearby(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)

	var v application.ValidationError
	params := application.FindNearbyParams{
		Principal: principal,
		Latitude:  requireQueryFloat(c, &v, "lat"),
		Longitude: requireQueryFloat(c, &v, "lng"),
		RadiusKm:  queryFloat(c, &v, "radius_km", 0),
		Limit:     queryInt(c, &v, "limit"),
	}
	if v.HasErrors() {
		return h.responder.handleServiceError(c, &v)
	}

	results, err := h.proximity.FindNearby(requestContext(c), params)
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}

	items := make([]nearbyStatusDTO, 0, len(results))
	for _, r := range results {
		items = append(items, nearbyStatusDTO{
			statusDTO:   toStatusDTO(r.Status),
			DistanceKm:  r.DistanceKm,
			DisplayName: r.DisplayName,
			AvatarURL:   r.AvatarURL,
		})
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"results": items})
}
