package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
)

type chatService interface {
	ListChats(ctx context.Context, principal application.Principal) ([]application.Chat, error)
	ListMembers(ctx context.Context, principal application.Principal, chatID string) ([]application.ChatMember, error)
	PostMessage(ctx context.Context, params application.PostMessageParams) (application.Message, error)
	GetMessages(ctx context.Context, params application.GetMessagesParams) ([]application.Message, error)
}

// ChatHandler serves crew and buddy chats.
type ChatHandler struct {
	service   chatService
	responder responder
	logger    *slog.Logger
}

// NewChatHandler wires the chat endpoints.
func NewChatHandler(service chatService, logger *slog.Logger) *ChatHandler {
	base := defaultLogger(logger)
	return &ChatHandler{service: service, responder: newResponder(base), logger: base}
}

type chatDTO struct {
	ID            string      `json:"id"`
	Kind          string      `json:"kind"`
	Activity      activityDTO `json:"activity"`
	LocationLabel string      `json:"location_label,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	LastMessageAt *time.Time  `json:"last_message_at,omitempty"`
}

type memberDTO struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func toMessageDTO(m application.Message) messageDTO {
	return messageDTO{ID: m.ID, ChatID: m.ChatID, SenderID: m.SenderID, Content: m.Content, CreatedAt: m.CreatedAt}
}

// List handles GET /chats.
func (h *ChatHandler) List(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	chats, err := h.service.ListChats(requestContext(c), principal)
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	items := make([]chatDTO, 0, len(chats))
	for _, chat := range chats {
		items = append(items, chatDTO{
			ID:            chat.ID,
			Kind:          chat.Kind,
			Activity:      toActivityDTOWithPrompts(chat.ActivityType),
			LocationLabel: chat.LocationLabel,
			CreatedAt:     chat.CreatedAt,
			LastMessageAt: chat.LastMessageAt,
		})
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"chats": items})
}

// Members handles GET /chats/:id/members.
func (h *ChatHandler) Members(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)
	members, err := h.service.ListMembers(requestContext(c), principal, c.Params("id"))
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	items := make([]memberDTO, 0, len(members))
	for _, m := range members {
		items = append(items, memberDTO{UserID: m.UserID, DisplayName: m.DisplayName, AvatarURL: m.AvatarURL, JoinedAt: m.JoinedAt})
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"members": items})
}

// PostMessage handles POST /chats/:id/messages.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	ctx := requestContext(c)
	principal, _ := PrincipalFromCtx(c)

	var req postMessageRequest
	if err := c.BodyParser(&req); err != nil {
		handlerLogger(c, h.logger, "ChatHandler", "PostMessage", "error_kind", "bad_request").
			WarnContext(ctx, "failed to decode message", "error", err)
		return h.responder.badRequest(c, errBadRequestBody)
	}

	message, err := h.service.PostMessage(ctx, application.PostMessageParams{
		Principal: principal,
		ChatID:    c.Params("id"),
		Content:   req.Content,
	})
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	return h.responder.writeJSON(c, fiber.StatusCreated, fiber.Map{"message": toMessageDTO(message)})
}

// Messages handles GET /chats/:id/messages?limit=.
func (h *ChatHandler) Messages(c *fiber.Ctx) error {
	principal, _ := PrincipalFromCtx(c)

	var v application.ValidationError
	limit := queryInt(c, &v, "limit")
	if v.HasErrors() {
		return h.responder.handleServiceError(c, &v)
	}

	messages, err := h.service.GetMessages(requestContext(c), application.GetMessagesParams{
		Principal: principal,
		ChatID:    c.Params("id"),
		Limit:     limit,
	})
	if err != nil {
		return h.responder.handleServiceError(c, err)
	}
	items := make([]messageDTO, 0, len(messages))
	for _, m := range messages {
		items = append(items, toMessageDTO(m))
	}
	return h.responder.writeJSON(c, fiber.StatusOK, fiber.Map{"messages": items})
}
