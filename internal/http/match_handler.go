package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
)

type buddyService interface {
	CreateMatch(ctx context.Context, params application.CreateMatchParams) (application.BuddyMatch, error)
	ListMatches(ctx context.Context, principal application.Principal) ([]application.BuddyMatch, error)
}

// MatchHandler serves buddy matches.
type MatchHandler struct {
	service   buddyService
	responder responder
	logger    *slog.Logger
}

// NewMatchHandler wires the match endpoints.
func NewMatchHandler(service buddyService, logger *slog.Logger) *MatchHandler {
	base := defaultLogger(logger)
	return &MatchHandler{service: service, responder: newResponder(base), logger: base}
}

type createMatchRequest struct {
	RecipientID  string `json:"recipient_id"`
	ActivityType string `json:"activity_type"`
}

type matchDTO struct {
	ID          string      `json:"id"`
	InitiatorID string      `json:"initiator_id"`
	RecipientID string      `json:"recipient_id"`
	Activity    activityDTO `json:"activity"`
	ChatID      string      `json:"chat_id"`
	MatchedAt   time.Time   `json:"matched_at"`
}

func toMatchDTO(m application.BuddyMatch) matchDTO {
	return matchDTO{
		ID:          m.ID,
		InitiatorID: m.InitiatorID,
		RecipientID: m.RecipientID,
		Activity:    toActivityDTO(m.ActivityType),
		ChatID:      m.ChatID,
		MatchedAt:   m.MatchedAt,
	}
}

// Create handles POST /matches.
func (h *MatchHandler) Create(c *fiber.Ctx) error {
	ctx := requestContext(c)
	principal, _ := PrincipalFromCtx(c)

	var req createMatchRequest
	if err := c.BodyParser(&req); err != nil {
		handlerLogger(c, h.logger, "MatchHandler", "Create", "error_kind", "bad_request").
			WarnContext(ctx, "failed to decode match request", "error", err)
		return h.responder.badRequest(c, errBadRequestBody)
	}

	match, err := h.service.CreateMatch(ctx, application.CreateMatchParams{
		Principal:    principal,
		RecipientID:  req.RecipientID,
		ActivityType: req.ActivityType,
	})
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusCreated, fiber.Map{"match": toMatchDTO(match)})
}

// List handles GET /matches.
func (h *MatchHandler) List(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	matches, err := h.service.ListMatches(requestContext(c), principal)
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	items := make([]matchDTO, 0, len(matches))
	for _, m := range matches {
		items = append(items, toMatchDTO(m))
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"matches": items})
}
