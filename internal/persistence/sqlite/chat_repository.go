package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/wavemeet/internal/persistence"
)

// ChatRepository implements persistence.ChatRepository using SQLite
type ChatRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewChatRepository creates a new SQLite chat repository
func NewChatRepository(pool *ConnectionPool) *ChatRepository {
	return &ChatRepository{pool: pool, mapper: NewErrorMapper()}
}

const chatColumns = `id, kind, activity_type, location_label, created_at, last_message_at`

// GetChat retrieves a chat by ID.
func (r *ChatRepository) GetChat(ctx context.Context, id string) (persistence.CrewChat, error) {
	chat, err := scanChat(r.pool.DB().QueryRowContext(ctx, `SELECT `+chatColumns+` FROM crew_chats WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.CrewChat{}, persistence.ErrNotFound
		}
		return persistence.CrewChat{}, r.mapper.MapError(err)
	}
	return chat, nil
}

// IsMember reports whether userID belongs to chatID.
func (r *ChatRepository) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	var exists int
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM crew_chat_members WHERE chat_id = ? AND user_id = ?)`,
		chatID, userID,
	).Scan(&exists)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return exists == 1, nil
}

// ListMembers returns the chat's members ordered by join time.
func (r *ChatRepository) ListMembers(ctx context.Context, chatID string) ([]persistence.ChatMember, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT chat_id, user_id, joined_at
		FROM crew_chat_members
		WHERE chat_id = ?
		ORDER BY joined_at, user_id
	`, chatID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.ChatMember
	for rows.Next() {
		var (
			m        persistence.ChatMember
			joinedAt string
		)
		if err := rows.Scan(&m.ChatID, &m.UserID, &joinedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if m.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, fmt.Errorf("joined_at: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

// CreateMessage inserts the message and advances the chat's last_message_at in one transaction.
func (r *ChatRepository) CreateMessage(ctx context.Context, msg persistence.ChatMessage) error {
	if msg.ID == "" || msg.ChatID == "" || msg.SenderID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		at := formatTime(msg.CreatedAt)
		res, err := tx.ExecContext(ctx, `
			UPDATE crew_chats
			SET last_message_at = CASE
				WHEN last_message_at IS NULL OR last_message_at < ? THEN ?
				ELSE last_message_at
			END
			WHERE id = ?
		`, at, at, msg.ChatID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO crew_messages (id, chat_id, sender_id, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, msg.ID, msg.ChatID, msg.SenderID, msg.Content, at)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
}

// ListMessages returns the newest q.Limit messages in chronological order,
// skipping messages from q.ExcludeSenderIDs.
func (r *ChatRepository) ListMessages(ctx context.Context, q persistence.MessageQuery) ([]persistence.ChatMessage, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	inner := `SELECT rowid AS seq, id, chat_id, sender_id, content, created_at FROM crew_messages WHERE chat_id = ?`
	args := []any{q.ChatID}
	if len(q.ExcludeSenderIDs) > 0 {
		inner += ` AND sender_id NOT IN (` + placeholders(len(q.ExcludeSenderIDs)) + `)`
		for _, id := range q.ExcludeSenderIDs {
			args = append(args, id)
		}
	}
	inner += ` ORDER BY created_at DESC, seq DESC LIMIT ?`
	args = append(args, q.Limit)

	query := `SELECT id, chat_id, sender_id, content, created_at FROM (` + inner + `) ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var messages []persistence.ChatMessage
	for rows.Next() {
		var (
			m         persistence.ChatMessage
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return messages, nil
}

// ListChatsForUser returns the user's chats, most recently active first.
func (r *ChatRepository) ListChatsForUser(ctx context.Context, userID string) ([]persistence.CrewChat, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT c.id, c.kind, c.activity_type, c.location_label, c.created_at, c.last_message_at
		FROM crew_chats c
		JOIN crew_chat_members m ON m.chat_id = c.id
		WHERE m.user_id = ?
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id
	`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var chats []persistence.CrewChat
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return chats, nil
}

func scanChat(row rowScanner) (persistence.CrewChat, error) {
	var (
		c             persistence.CrewChat
		createdAt     string
		lastMessageAt sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Kind, &c.ActivityType, &c.LocationLabel, &createdAt, &lastMessageAt); err != nil {
		return persistence.CrewChat{}, err
	}
	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.CrewChat{}, fmt.Errorf("created_at: %w", err)
	}
	if c.LastMessageAt, err = parseNullTime(lastMessageAt); err != nil {
		return persistence.CrewChat{}, fmt.Errorf("last_message_at: %w", err)
	}
	return c, nil
}

// insertChat is the chat creation primitive shared by buddy matches and wave unlocks.
func insertChat(ctx context.Context, tx *sql.Tx, chat persistence.CrewChat) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO crew_chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, chat.ID, chat.Kind, chat.ActivityType, chat.LocationLabel, formatTime(chat.CreatedAt), nullTime(chat.LastMessageAt))
	return err
}

func insertMembers(ctx context.Context, tx *sql.Tx, chatID string, userIDs []string, joinedAt time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	query := `INSERT INTO crew_chat_members (chat_id, user_id, joined_at) VALUES `
	args := make([]any, 0, len(userIDs)*3)
	for i, userID := range userIDs {
		if i > 0 {
			query += `, `
		}
		query += `(?, ?, ?)`
		args = append(args, chatID, userID, formatTime(joinedAt))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// deleteChat removes a chat's messages, then its members, then the chat itself.
func deleteChat(ctx context.Context, tx *sql.Tx, chatID string) error {
	for _, stmt := range []string{
		`DELETE FROM crew_messages WHERE chat_id = ?`,
		`DELETE FROM crew_chat_members WHERE chat_id = ?`,
		`DELETE FROM crew_chats WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, chatID); err != nil {
			return err
		}
	}
	return nil
}
