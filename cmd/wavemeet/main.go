package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/config"
	"github.com/example/wavemeet/internal/directory"
	httptransport "github.com/example/wavemeet/internal/http"
	"github.com/example/wavemeet/internal/logging"
	"github.com/example/wavemeet/internal/persistence/sqlite"
	"github.com/example/wavemeet/internal/persistence/sqlite/migration"
	"github.com/example/wavemeet/internal/realtime"
)

const shutdownTimeout = 10 * time.Second

func main() {
	bootLogger := logging.New(os.Stdout, slog.LevelInfo)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		bootLogger.Error("failed to read .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return err
	}

	app := buildApp(cfg, storage, time.Now, uuid.NewString, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wavemeet API listening", "addr", cfg.Address())
		errCh <- app.Listen(cfg.Address())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// buildApp wires storage, services and handlers into the HTTP application.
func buildApp(cfg config.Config, storage *sqlite.Storage, now func() time.Time, ids func() string, logger *slog.Logger) *fiber.App {
	policy := application.Policy{
		PresenceTTL:          cfg.PresenceTTL,
		WaveTTL:              cfg.WaveTTL,
		WaveDefaultThreshold: cfg.WaveDefaultThreshold,
		NearbyRadiusKm:       cfg.NearbyRadiusKm,
		NearbyLimit:          cfg.NearbyLimit,
		IncludeCreatorInChat: cfg.IncludeCreatorInChat,
	}

	hub := realtime.NewHub(logger)
	profiles := directory.NewProfileDirectory(storage.Profiles, cfg.ProfileCacheSize, cfg.ProfileCacheTTL, now, logger)
	blocks := directory.NewBlockList(storage.Blocks, now)

	presenceService := application.NewPresenceServiceWithLogger(storage.Presence, policy, now, logger)
	proximityService := application.NewProximityServiceWithLogger(storage.Presence, profiles, policy, now, logger)
	buddyService := application.NewBuddyServiceWithLogger(storage.Buddies, storage.Presence, hub, ids, now, logger)
	waveService := application.NewWaveServiceWithLogger(storage.Waves, hub, policy, ids, now, logger)
	chatService := application.NewChatService(application.ChatServiceDeps{
		Chats:       storage.Chats,
		Directory:   profiles,
		Blocks:      blocks,
		Notifier:    hub,
		IDGenerator: ids,
		Now:         now,
		Logger:      logger,
	})

	return httptransport.NewApp(httptransport.RouterConfig{
		Verifier: httptransport.NewTokenVerifier(cfg.JWTSecret, now),
		Presence: httptransport.NewPresenceHandler(presenceService, proximityService, logger),
		Matches:  httptransport.NewMatchHandler(buddyService, logger),
		Waves:    httptransport.NewWaveHandler(waveService, logger),
		Chats:    httptransport.NewChatHandler(chatService, logger),
		Profiles: httptransport.NewProfileHandler(profiles, blocks, logger),
		Stream:   hub,
		Health:   storage.Pool(),
		Logger:   logger,
	})
}
