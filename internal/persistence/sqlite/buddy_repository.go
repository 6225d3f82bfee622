package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/wavemeet/internal/persistence"
)

// BuddyRepository implements persistence.BuddyRepository using SQLite
type BuddyRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewBuddyRepository creates a new SQLite buddy match repository
func NewBuddyRepository(pool *ConnectionPool) *BuddyRepository {
	return &BuddyRepository{pool: pool, mapper: NewErrorMapper()}
}

// orderedPair normalizes an unordered pair so (a,b) and (b,a) share one index key.
func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// MatchExists reports whether a match exists between the two users in either direction.
func (r *BuddyRepository) MatchExists(ctx context.Context, userA, userB string) (bool, error) {
	low, high := orderedPair(userA, userB)
	var exists int
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM buddy_matches WHERE user_low = ? AND user_high = ?)`,
		low, high,
	).Scan(&exists)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return exists == 1, nil
}

// CreateMatch writes the chat, both members and the match row in one transaction.
// A match that already exists for the pair fails with persistence.ErrDuplicate.
func (r *BuddyRepository) CreateMatch(ctx context.Context, record persistence.NewBuddyMatch) error {
	m := record.Match
	if m.ID == "" || record.Chat.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if m.InitiatorID == m.RecipientID {
		return persistence.ErrConstraintViolation
	}
	chat := record.Chat
	chat.Kind = persistence.ChatKindBuddy
	m.ChatID = chat.ID

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insertChat(ctx, tx, chat); err != nil {
			return r.mapper.MapError(err)
		}
		if err := insertMembers(ctx, tx, chat.ID, []string{m.InitiatorID, m.RecipientID}, m.MatchedAt); err != nil {
			return r.mapper.MapError(err)
		}

		low, high := orderedPair(m.InitiatorID, m.RecipientID)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO buddy_matches (id, initiator_id, recipient_id, user_low, user_high, activity_type, chat_id, matched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, m.InitiatorID, m.RecipientID, low, high, m.ActivityType, m.ChatID, formatTime(m.MatchedAt))
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
}

// ListMatchesForUser returns every match the user is part of, newest first.
func (r *BuddyRepository) ListMatchesForUser(ctx context.Context, userID string) ([]persistence.BuddyMatch, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, initiator_id, recipient_id, activity_type, chat_id, matched_at
		FROM buddy_matches
		WHERE initiator_id = ? OR recipient_id = ?
		ORDER BY matched_at DESC, id
	`, userID, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var matches []persistence.BuddyMatch
	for rows.Next() {
		var (
			m         persistence.BuddyMatch
			matchedAt string
		)
		if err := rows.Scan(&m.ID, &m.InitiatorID, &m.RecipientID, &m.ActivityType, &m.ChatID, &matchedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if m.MatchedAt, err = parseTime(matchedAt); err != nil {
			return nil, fmt.Errorf("matched_at: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return matches, nil
}
