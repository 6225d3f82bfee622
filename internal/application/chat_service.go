package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/wavemeet/internal/persistence"
)

// ChatService exposes crew and buddy chats to their members.
type ChatService struct {
	chats       persistence.ChatRepository
	directory   UserDirectory
	blocks      BlockResolver
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// ChatServiceDeps captures the collaborators of a chat service. Directory,
// Blocks and Notifier are optional.
type ChatServiceDeps struct {
	Chats       persistence.ChatRepository
	Directory   UserDirectory
	Blocks      BlockResolver
	Notifier    Notifier
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewChatService constructs a chat service with the provided dependencies.
func NewChatService(deps ChatServiceDeps) *ChatService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ChatService{
		chats:       deps.Chats,
		directory:   deps.Directory,
		blocks:      deps.Blocks,
		notifier:    deps.Notifier,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *ChatService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ChatService", operation, attrs...)
}

func (s *ChatService) configured() error {
	if s == nil || s.chats == nil {
		return fmt.Errorf("ChatService is not configured")
	}
	return nil
}

// requireMember loads the chat and checks that userID belongs to it.
func (s *ChatService) requireMember(ctx context.Context, chatID, userID string) (persistence.CrewChat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return persistence.CrewChat{}, mapRepoError(err)
	}
	member, err := s.chats.IsMember(ctx, chatID, userID)
	if err != nil {
		return persistence.CrewChat{}, mapRepoError(err)
	}
	if !member {
		return persistence.CrewChat{}, ErrNotChatMember
	}
	return chat, nil
}

// ListChats returns the chats the caller belongs to, most recently active first.
func (s *ChatService) ListChats(ctx context.Context, principal Principal) ([]Chat, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}

	records, err := s.chats.ListChatsForUser(ctx, principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		s.loggerWith(ctx, "ListChats", "principal_id", principal.UserID).
			ErrorContext(ctx, "failed to list chats", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	chats := make([]Chat, 0, len(records))
	for _, r := range records {
		chats = append(chats, fromChatRecord(r))
	}
	return chats, nil
}

// ListMembers returns the chat's members with display names resolved through
// the fallback chain display name, username, "Crew member".
func (s *ChatService) ListMembers(ctx context.Context, principal Principal, chatID string) (members []ChatMember, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListMembers", "principal_id", principal.UserID, "chat_id", chatID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list members", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = requirePrincipal(principal); err != nil {
		return
	}
	if _, err = s.requireMember(ctx, chatID, principal.UserID); err != nil {
		return
	}

	var records []persistence.ChatMember
	records, err = s.chats.ListMembers(ctx, chatID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.UserID
	}
	profiles := lookupProfiles(ctx, s.directory, logger, ids)

	members = make([]ChatMember, 0, len(records))
	for _, r := range records {
		profile, ok := profiles[r.UserID]
		members = append(members, ChatMember{
			UserID:      r.UserID,
			DisplayName: displayName(profile, ok),
			AvatarURL:   profile.AvatarURL,
			JoinedAt:    r.JoinedAt,
		})
	}
	return members, nil
}

// PostMessage stores a message from a chat member and pushes it to the chat.
// Content is trimmed and must hold between 1 and MaxMessageLength characters.
func (s *ChatService) PostMessage(ctx context.Context, params PostMessageParams) (message Message, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "PostMessage",
		"principal_id", params.Principal.UserID,
		"chat_id", params.ChatID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to post message", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "message posted", "message_id", message.ID)
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}

	content := strings.TrimSpace(params.Content)
	vErr := &ValidationError{}
	switch {
	case content == "":
		vErr.add("content", "is required")
	case utf8.RuneCountInString(content) > MaxMessageLength:
		vErr.add("content", fmt.Sprintf("must be at most %d characters", MaxMessageLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.requireMember(ctx, params.ChatID, params.Principal.UserID); err != nil {
		return
	}

	message = Message{
		ID:        s.idGenerator(),
		ChatID:    params.ChatID,
		SenderID:  params.Principal.UserID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	err = s.chats.CreateMessage(ctx, persistence.ChatMessage{
		ID:        message.ID,
		ChatID:    message.ChatID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	})
	if err != nil {
		err = mapRepoError(err)
		message = Message{}
		return
	}

	if s.notifier != nil {
		if members, listErr := s.chats.ListMembers(ctx, params.ChatID); listErr != nil {
			logger.WarnContext(ctx, "skipping message push", "error", listErr)
		} else {
			ids := make([]string, len(members))
			for i, m := range members {
				ids[i] = m.UserID
			}
			notify(ctx, s.notifier, ids, Event{Type: EventMessagePosted, Payload: message})
		}
	}
	return message, nil
}

// GetMessages returns the most recent messages in chronological order,
// leaving out senders in a block relationship with the caller.
func (s *ChatService) GetMessages(ctx context.Context, params GetMessagesParams) (messages []Message, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "GetMessages",
		"principal_id", params.Principal.UserID,
		"chat_id", params.ChatID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get messages", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = requirePrincipal(params.Principal); err != nil {
		return
	}
	if _, err = s.requireMember(ctx, params.ChatID, params.Principal.UserID); err != nil {
		return
	}

	var blocked []string
	if s.blocks != nil {
		blocked, err = s.blocks.BlockedUserIDs(ctx, params.Principal.UserID)
		if err != nil {
			err = fmt.Errorf("resolve blocked users: %w", err)
			return
		}
	}

	var records []persistence.ChatMessage
	records, err = s.chats.ListMessages(ctx, persistence.MessageQuery{
		ChatID:           params.ChatID,
		ExcludeSenderIDs: blocked,
		Limit:            clampLimit(params.Limit, DefaultMessageLimit, MaxMessageLimit),
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	messages = make([]Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, Message{
			ID:        r.ID,
			ChatID:    r.ChatID,
			SenderID:  r.SenderID,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	return messages, nil
}

func fromChatRecord(r persistence.CrewChat) Chat {
	return Chat{
		ID:            r.ID,
		Kind:          r.Kind,
		ActivityType:  storedActivity(r.ActivityType),
		LocationLabel: r.LocationLabel,
		CreatedAt:     r.CreatedAt,
		LastMessageAt: r.LastMessageAt,
	}
}
