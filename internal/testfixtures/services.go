package testfixtures

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/persistence/sqlite"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ServiceFactory assists tests with constructing application services over a
// real SQLite storage using deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Policy      application.Policy
	Storage     *sqlite.Storage
	Notifier    application.Notifier
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory backed by a fresh database.
func NewServiceFactory(tb testing.TB, opts ...ServiceFactoryOption) *ServiceFactory {
	tb.Helper()
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(tb.Name()),
		Policy:      application.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Storage == nil {
		factory.Storage = NewSQLiteStorage(tb)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

// WithPolicy overrides the service policy.
func WithPolicy(policy application.Policy) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Policy = policy }
}

// WithNotifier sets the notifier handed to services that push events.
func WithNotifier(n application.Notifier) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Notifier = n }
}

// Services groups every application service.
type Services struct {
	Presence  *application.PresenceService
	Proximity *application.ProximityService
	Buddies   *application.BuddyService
	Waves     *application.WaveService
	Chats     *application.ChatService
}

// Build wires every service to the factory's storage. directory and blocks may be nil.
func (f *ServiceFactory) Build(directory application.UserDirectory, blocks application.BlockResolver) Services {
	now := f.Clock.NowFunc()
	ids := f.IDGenerator.NextFunc()
	logger := DiscardLogger()
	store := f.Storage

	return Services{
		Presence:  application.NewPresenceServiceWithLogger(store.Presence, f.Policy, now, logger),
		Proximity: application.NewProximityServiceWithLogger(store.Presence, directory, f.Policy, now, logger),
		Buddies:   application.NewBuddyServiceWithLogger(store.Buddies, store.Presence, f.Notifier, ids, now, logger),
		Waves:     application.NewWaveServiceWithLogger(store.Waves, f.Notifier, f.Policy, ids, now, logger),
		Chats: application.NewChatService(application.ChatServiceDeps{
			Chats:       store.Chats,
			Directory:   directory,
			Blocks:      blocks,
			Notifier:    f.Notifier,
			IDGenerator: ids,
			Now:         now,
			Logger:      logger,
		}),
	}
}
