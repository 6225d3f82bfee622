package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/wavemeet/internal/persistence"
)

// WaveRepository implements persistence.WaveRepository using SQLite
type WaveRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewWaveRepository creates a new SQLite wave repository
func NewWaveRepository(pool *ConnectionPool) *WaveRepository {
	return &WaveRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const waveColumns = `id, creator_id, activity_type, area, latitude, longitude, scheduled_for, note, threshold, started_at, expires_at, unlocked, chat_id`

// CreateWave inserts a new wave in the proposed state.
func (r *WaveRepository) CreateWave(ctx context.Context, w persistence.Wave) error {
	if w.ID == "" || w.CreatorID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO waves (`+waveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL)
	`,
		w.ID,
		w.CreatorID,
		w.ActivityType,
		w.Area,
		w.Latitude,
		w.Longitude,
		nullTime(w.ScheduledFor),
		nullString(w.Note),
		w.Threshold,
		formatTime(w.StartedAt),
		formatTime(w.ExpiresAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetWave retrieves a wave by ID.
func (r *WaveRepository) GetWave(ctx context.Context, id string) (persistence.Wave, error) {
	return r.getWave(ctx, r.pool.DB(), id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *WaveRepository) getWave(ctx context.Context, q queryRower, id string) (persistence.Wave, error) {
	w, err := scanWave(q.QueryRowContext(ctx, `SELECT `+waveColumns+` FROM waves WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Wave{}, persistence.ErrNotFound
		}
		return persistence.Wave{}, r.mapper.MapError(err)
	}
	return w, nil
}

// CountParticipants returns the number of join rows for the wave.
func (r *WaveRepository) CountParticipants(ctx context.Context, waveID string) (int, error) {
	return r.countParticipants(ctx, r.pool.DB(), waveID)
}

func (r *WaveRepository) countParticipants(ctx context.Context, q queryRower, waveID string) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wave_participants WHERE wave_id = ?`, waveID).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// ListParticipants returns the roster ordered by join time.
func (r *WaveRepository) ListParticipants(ctx context.Context, waveID string) ([]persistence.WaveParticipant, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT wave_id, user_id, joined_at
		FROM wave_participants
		WHERE wave_id = ?
		ORDER BY joined_at, rowid
	`, waveID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var participants []persistence.WaveParticipant
	for rows.Next() {
		var (
			p        persistence.WaveParticipant
			joinedAt string
		)
		if err := rows.Scan(&p.WaveID, &p.UserID, &joinedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if p.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, fmt.Errorf("joined_at: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return participants, nil
}

// IsParticipant reports whether the user has a join row for the wave.
func (r *WaveRepository) IsParticipant(ctx context.Context, waveID, userID string) (bool, error) {
	return r.isParticipant(ctx, r.pool.DB(), waveID, userID)
}

func (r *WaveRepository) isParticipant(ctx context.Context, q queryRower, waveID, userID string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM wave_participants WHERE wave_id = ? AND user_id = ?)`,
		waveID, userID,
	).Scan(&exists)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return exists == 1, nil
}

// JoinWave adds the user to the wave and unlocks it when the post-insert count
// reaches the threshold. Everything happens in one immediate transaction; the
// unlock is a conditional update on unlocked = 0 so it can succeed at most once.
func (r *WaveRepository) JoinWave(ctx context.Context, req persistence.JoinWaveRequest) (persistence.JoinWaveOutcome, error) {
	var outcome persistence.JoinWaveOutcome
	err := r.retry.WithRetry(ctx, func() error {
		var err error
		outcome, err = r.joinWave(ctx, req)
		return err
	})
	if err != nil {
		return persistence.JoinWaveOutcome{}, err
	}
	return outcome, nil
}

func (r *WaveRepository) joinWave(ctx context.Context, req persistence.JoinWaveRequest) (persistence.JoinWaveOutcome, error) {
	var outcome persistence.JoinWaveOutcome

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		wave, err := r.getWave(ctx, tx, req.WaveID)
		if err != nil {
			return err
		}
		if !req.Now.Before(wave.ExpiresAt) {
			return persistence.ErrExpired
		}

		joined := req.UserID == wave.CreatorID
		if !joined {
			if joined, err = r.isParticipant(ctx, tx, wave.ID, req.UserID); err != nil {
				return err
			}
		}
		if joined {
			count, err := r.countParticipants(ctx, tx, wave.ID)
			if err != nil {
				return err
			}
			outcome = persistence.JoinWaveOutcome{
				AlreadyJoined:    true,
				ParticipantCount: count,
				Unlocked:         wave.Unlocked,
				ChatID:           wave.ChatID,
			}
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wave_participants (wave_id, user_id, joined_at) VALUES (?, ?, ?)`,
			wave.ID, req.UserID, formatTime(req.Now),
		); err != nil {
			return r.mapper.MapError(err)
		}

		// Count after the insert, inside the same transaction.
		count, err := r.countParticipants(ctx, tx, wave.ID)
		if err != nil {
			return err
		}
		outcome = persistence.JoinWaveOutcome{ParticipantCount: count, Unlocked: wave.Unlocked, ChatID: wave.ChatID}

		switch {
		case wave.Unlocked:
			// Late joiners enter the existing chat, mirroring leave removing them from it.
			if err := insertMembers(ctx, tx, *wave.ChatID, []string{req.UserID}, req.Now); err != nil {
				return r.mapper.MapError(err)
			}
			outcome.ChatMembers = []string{req.UserID}
		case count >= wave.Threshold:
			members, err := r.unlock(ctx, tx, wave, req)
			if err != nil {
				return err
			}
			chatID := req.Chat.ID
			outcome.Unlocked = true
			outcome.UnlockedNow = true
			outcome.ChatID = &chatID
			outcome.ChatMembers = members
		}
		return nil
	})
	if err != nil {
		return persistence.JoinWaveOutcome{}, err
	}
	return outcome, nil
}

// unlock creates the crew chat, snapshots the roster into it and flips the wave.
func (r *WaveRepository) unlock(ctx context.Context, tx *sql.Tx, wave persistence.Wave, req persistence.JoinWaveRequest) ([]string, error) {
	if req.Chat.ID == "" {
		return nil, persistence.ErrConstraintViolation
	}
	chat := req.Chat
	chat.Kind = persistence.ChatKindCrew
	chat.ActivityType = wave.ActivityType
	chat.LocationLabel = wave.Area
	chat.CreatedAt = req.Now
	chat.LastMessageAt = nil

	if err := insertChat(ctx, tx, chat); err != nil {
		return nil, r.mapper.MapError(err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT user_id FROM wave_participants WHERE wave_id = ? ORDER BY joined_at, rowid`, wave.ID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if req.IncludeCreator {
		members = append(members, wave.CreatorID)
	}
	if err := insertMembers(ctx, tx, chat.ID, members, req.Now); err != nil {
		return nil, r.mapper.MapError(err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE waves SET unlocked = 1, chat_id = ? WHERE id = ? AND unlocked = 0`, chat.ID, wave.ID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected != 1 {
		return nil, persistence.ErrConflict
	}
	return members, nil
}

// LeaveWave deletes the participant row and, for unlocked waves, the chat membership.
// The unlocked state is never reverted.
func (r *WaveRepository) LeaveWave(ctx context.Context, waveID, userID string) (persistence.LeaveWaveOutcome, error) {
	var outcome persistence.LeaveWaveOutcome
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			wave, err := r.getWave(ctx, tx, waveID)
			if err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `DELETE FROM wave_participants WHERE wave_id = ? AND user_id = ?`, waveID, userID)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return persistence.ErrNotParticipant
			}

			if wave.Unlocked && wave.ChatID != nil {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM crew_chat_members WHERE chat_id = ? AND user_id = ?`,
					*wave.ChatID, userID,
				); err != nil {
					return r.mapper.MapError(err)
				}
			}
			outcome = persistence.LeaveWaveOutcome{Unlocked: wave.Unlocked, ChatID: wave.ChatID}
			return nil
		})
	})
	if err != nil {
		return persistence.LeaveWaveOutcome{}, err
	}
	return outcome, nil
}

// DeleteWave removes the wave and everything hanging off it, children first.
func (r *WaveRepository) DeleteWave(ctx context.Context, id string) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			wave, err := r.getWave(ctx, tx, id)
			if err != nil {
				return err
			}

			if wave.ChatID != nil {
				for _, stmt := range []string{
					`DELETE FROM crew_messages WHERE chat_id = ?`,
					`DELETE FROM crew_chat_members WHERE chat_id = ?`,
				} {
					if _, err := tx.ExecContext(ctx, stmt, *wave.ChatID); err != nil {
						return r.mapper.MapError(err)
					}
				}
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM wave_participants WHERE wave_id = ?`, id); err != nil {
				return r.mapper.MapError(err)
			}
			if wave.ChatID != nil {
				if _, err := tx.ExecContext(ctx, `UPDATE waves SET chat_id = NULL WHERE id = ?`, id); err != nil {
					return r.mapper.MapError(err)
				}
				if err := deleteChat(ctx, tx, *wave.ChatID); err != nil {
					return r.mapper.MapError(err)
				}
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM waves WHERE id = ?`, id); err != nil {
				return r.mapper.MapError(err)
			}
			return nil
		})
	})
}

// ListOpenWaves returns unexpired waves inside the bounding box.
func (r *WaveRepository) ListOpenWaves(ctx context.Context, q persistence.WaveQuery) ([]persistence.Wave, error) {
	boxSQL, args := boxPredicate(q.Box)
	query := `SELECT ` + waveColumns + ` FROM waves WHERE expires_at > ? AND ` + boxSQL
	args = append([]any{formatTime(q.Now)}, args...)

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var waves []persistence.Wave
	for rows.Next() {
		w, err := scanWave(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		waves = append(waves, w)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return waves, nil
}

func scanWave(row rowScanner) (persistence.Wave, error) {
	var (
		w                    persistence.Wave
		scheduledFor, note   sql.NullString
		chatID               sql.NullString
		startedAt, expiresAt string
		unlocked             int
	)
	err := row.Scan(
		&w.ID,
		&w.CreatorID,
		&w.ActivityType,
		&w.Area,
		&w.Latitude,
		&w.Longitude,
		&scheduledFor,
		&note,
		&w.Threshold,
		&startedAt,
		&expiresAt,
		&unlocked,
		&chatID,
	)
	if err != nil {
		return persistence.Wave{}, err
	}

	w.Note = stringPtr(note)
	w.ChatID = stringPtr(chatID)
	w.Unlocked = unlocked == 1
	if w.ScheduledFor, err = parseNullTime(scheduledFor); err != nil {
		return persistence.Wave{}, fmt.Errorf("scheduled_for: %w", err)
	}
	if w.StartedAt, err = parseTime(startedAt); err != nil {
		return persistence.Wave{}, fmt.Errorf("started_at: %w", err)
	}
	if w.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Wave{}, fmt.Errorf("expires_at: %w", err)
	}
	return w, nil
}
