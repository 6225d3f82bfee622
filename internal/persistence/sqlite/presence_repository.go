package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/wavemeet/internal/geo"
	"github.com/example/wavemeet/internal/persistence"
)

// PresenceRepository implements persistence.PresenceRepository using SQLite
type PresenceRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewPresenceRepository creates a new SQLite presence repository
func NewPresenceRepository(pool *ConnectionPool) *PresenceRepository {
	return &PresenceRepository{pool: pool, mapper: NewErrorMapper()}
}

const presenceColumns = `owner_id, activity_type, note, latitude, longitude, set_at, expires_at`

// UpsertBroadcast inserts the owner's broadcast or replaces it in place.
func (r *PresenceRepository) UpsertBroadcast(ctx context.Context, b persistence.PresenceBroadcast) error {
	if b.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO presence_broadcasts (` + presenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			activity_type = excluded.activity_type,
			note = excluded.note,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			set_at = excluded.set_at,
			expires_at = excluded.expires_at
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		b.OwnerID,
		b.ActivityType,
		nullString(b.Note),
		b.Latitude,
		b.Longitude,
		formatTime(b.SetAt),
		formatTime(b.ExpiresAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetActiveBroadcast returns the owner's broadcast if it expires strictly after now.
func (r *PresenceRepository) GetActiveBroadcast(ctx context.Context, ownerID string, now time.Time) (persistence.PresenceBroadcast, error) {
	query := `SELECT ` + presenceColumns + ` FROM presence_broadcasts WHERE owner_id = ? AND expires_at > ?`
	b, err := scanBroadcast(r.pool.DB().QueryRowContext(ctx, query, ownerID, formatTime(now)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.PresenceBroadcast{}, persistence.ErrNotFound
		}
		return persistence.PresenceBroadcast{}, r.mapper.MapError(err)
	}
	return b, nil
}

// DeleteBroadcast removes the owner's broadcast. Deleting a missing row is not an error.
func (r *PresenceRepository) DeleteBroadcast(ctx context.Context, ownerID string) error {
	if _, err := r.pool.DB().ExecContext(ctx, `DELETE FROM presence_broadcasts WHERE owner_id = ?`, ownerID); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ListActiveBroadcasts returns unexpired broadcasts inside the bounding box.
// Exact distance filtering is left to the caller.
func (r *PresenceRepository) ListActiveBroadcasts(ctx context.Context, q persistence.BroadcastQuery) ([]persistence.PresenceBroadcast, error) {
	boxSQL, args := boxPredicate(q.Box)
	query := `SELECT ` + presenceColumns + ` FROM presence_broadcasts WHERE expires_at > ? AND ` + boxSQL
	args = append([]any{formatTime(q.Now)}, args...)
	if q.ExcludeOwnerID != "" {
		query += ` AND owner_id <> ?`
		args = append(args, q.ExcludeOwnerID)
	}

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var broadcasts []persistence.PresenceBroadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		broadcasts = append(broadcasts, b)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return broadcasts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBroadcast(row rowScanner) (persistence.PresenceBroadcast, error) {
	var (
		b                persistence.PresenceBroadcast
		note             sql.NullString
		setAt, expiresAt string
	)
	if err := row.Scan(&b.OwnerID, &b.ActivityType, &note, &b.Latitude, &b.Longitude, &setAt, &expiresAt); err != nil {
		return persistence.PresenceBroadcast{}, err
	}
	b.Note = stringPtr(note)

	var err error
	if b.SetAt, err = parseTime(setAt); err != nil {
		return persistence.PresenceBroadcast{}, fmt.Errorf("set_at: %w", err)
	}
	if b.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.PresenceBroadcast{}, fmt.Errorf("expires_at: %w", err)
	}
	return b, nil
}

// boxPredicate renders the coarse bounding-box filter over latitude/longitude columns.
func boxPredicate(box geo.BoundingBox) (string, []any) {
	args := []any{box.MinLat, box.MaxLat}
	ranges := make([]string, 0, len(box.LngRanges))
	for _, lr := range box.LngRanges {
		ranges = append(ranges, `longitude BETWEEN ? AND ?`)
		args = append(args, lr.Min, lr.Max)
	}
	if len(ranges) == 0 {
		return `latitude BETWEEN ? AND ?`, args
	}
	return `latitude BETWEEN ? AND ? AND (` + strings.Join(ranges, ` OR `) + `)`, args
}
