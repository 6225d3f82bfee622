package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/wavemeet/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite-backed repositories over one connection pool.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Presence *PresenceRepository
	Buddies  *BuddyRepository
	Waves    *WaveRepository
	Chats    *ChatRepository
	Profiles *ProfileRepository
	Blocks   *BlockRepository
}

// Open connects to the database described by config and builds the repositories.
// Call Migrate before serving traffic.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	return &Storage{
		pool:     pool,
		logger:   logger,
		Presence: NewPresenceRepository(pool),
		Buddies:  NewBuddyRepository(pool),
		Waves:    NewWaveRepository(pool),
		Chats:    NewChatRepository(pool),
		Profiles: NewProfileRepository(pool),
		Blocks:   NewBlockRepository(pool),
	}, nil
}

// Migrate applies every embedded migration that has not run yet.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Pool exposes the connection pool, mainly for health checks and tests.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
