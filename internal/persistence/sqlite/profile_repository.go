package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/wavemeet/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite
type ProfileRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewProfileRepository creates a new SQLite profile repository
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{pool: pool, mapper: NewErrorMapper()}
}

// UpsertProfile inserts or replaces the directory entry for a user.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p persistence.UserProfile) error {
	if p.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, username, display_name, avatar_url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
	`, p.UserID, p.Username, p.DisplayName, p.AvatarURL, formatTime(p.UpdatedAt))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetProfiles returns the known profiles for userIDs. Unknown IDs are absent from the map.
func (r *ProfileRepository) GetProfiles(ctx context.Context, userIDs []string) (map[string]persistence.UserProfile, error) {
	profiles := make(map[string]persistence.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT user_id, username, display_name, avatar_url, updated_at
		FROM user_profiles
		WHERE user_id IN (`+placeholders(len(userIDs))+`)
	`, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p         persistence.UserProfile
			updatedAt string
		)
		if err := rows.Scan(&p.UserID, &p.Username, &p.DisplayName, &p.AvatarURL, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("updated_at: %w", err)
		}
		profiles[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return profiles, nil
}

// BlockRepository implements persistence.BlockRepository using SQLite
type BlockRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewBlockRepository creates a new SQLite block repository
func NewBlockRepository(pool *ConnectionPool) *BlockRepository {
	return &BlockRepository{pool: pool, mapper: NewErrorMapper()}
}

// BlockUser records that blockerID blocked blockedID. Repeating a block is a no-op.
func (r *BlockRepository) BlockUser(ctx context.Context, blockerID, blockedID string, at time.Time) error {
	if blockerID == "" || blockedID == "" || blockerID == blockedID {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO user_blocks (blocker_id, blocked_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(blocker_id, blocked_id) DO NOTHING
	`, blockerID, blockedID, formatTime(at))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ListBlockedUserIDs returns everyone userID blocked or was blocked by.
func (r *BlockRepository) ListBlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT blocked_id FROM user_blocks WHERE blocker_id = ?
		UNION
		SELECT blocker_id FROM user_blocks WHERE blocked_id = ?
	`, userID, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return ids, nil
}
