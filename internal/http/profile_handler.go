package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
)

type profileStore interface {
	SaveProfile(ctx context.Context, principal application.Principal, profile application.Profile) (application.Profile, error)
}

type blockStore interface {
	Block(ctx context.Context, principal application.Principal, blockedID string) error
}

// ProfileHandler serves the caller's directory entry and block list.
type ProfileHandler struct {
	profiles  profileStore
	blocks    blockStore
	responder responder
	logger    *slog.Logger
}

// NewProfileHandler wires the profile and block endpoints.
func NewProfileHandler(profiles profileStore, blocks blockStore, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{profiles: profiles, blocks: blocks, responder: newResponder(base), logger: base}
}

type profileDTO struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type blockRequest struct {
	UserID string `json:"user_id"`
}

// SaveProfile handles PUT /profile.
func (h *ProfileHandler) SaveProfile(c *fiber.Ctx) error {
	ctx := requestContext(c)
	principal, _ := PrincipalFromCtx(c)

	var req profileDTO
	if err := c.BodyParser(&req); err != nil {
		handlerLogger(c, h.logger, "ProfileHandler", "SaveProfile", "error_kind", "bad_request").
			WarnContext(ctx, "failed to decode profile", "error", err)
		return h.responder.badRequest(c, errBadRequestBody)
	}

	profile, err := h.profiles.SaveProfile(ctx, principal, application.Profile{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	handlerLogger(c, h.logger, "ProfileHandler", "SaveProfile").InfoContext(ctx, "profile saved")
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"profile": profileDTO{
		UserID:      profile.UserID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}})
}

// Block handles POST /blocks.
func (h *ProfileHandler) Block(c *fiber.Ctx) error {
	ctx := requestContext(c)
	principal, _ := PrincipalFromCtx(c)

	var req blockRequest
	if err := c.BodyParser(&req); err != nil {
		return h.responder.badRequest(c, errBadRequestBody)
	}
	if err := h.blocks.Block(ctx, principal, req.UserID); err != nil {
		return h.responder.handleServiceError(c, err)
	}
	handlerLogger(c, h.logger, "ProfileHandler", "Block", "blocked_id", req.UserID).InfoContext(ctx, "user blocked")
	return h.responder.writeJSON(c, fiber.StatusNoContent, nil)
}
