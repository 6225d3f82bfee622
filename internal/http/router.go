package http

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// Streamer serves an authenticated websocket connection until it closes.
type Streamer interface {
	Serve(conn *websocket.Conn, userID string)
}

// HealthChecker reports whether storage is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig lists the handlers mounted by NewApp. Nil handlers leave their routes out.
type RouterConfig struct {
	Verifier *TokenVerifier
	Presence *PresenceHandler
	Matches  *MatchHandler
	Waves    *WaveHandler
	Chats    *ChatHandler
	Profiles *ProfileHandler
	Stream   Streamer
	Health   HealthChecker
	Logger   *slog.Logger
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(cfg RouterConfig) *fiber.App {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	app := fiber.New(fiber.Config{
		AppName:               "wavemeet",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return responder.writeJSON(c, fiberErr.Code, errorResponse{ErrorCode: codeForStatus(fiberErr.Code), Message: fiberErr.Message})
			}
			responder.loggerFor(requestContext(c)).ErrorContext(requestContext(c), "unhandled error", "error", err)
			return responder.writeError(c, fiber.StatusInternalServerError, codeInternal, nil)
		},
	})

	app.Use(requestid.New())
	app.Use(RequestLogger(logger))
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if cfg.Health != nil {
			if err := cfg.Health.Ping(requestContext(c)); err != nil {
				responder.loggerFor(requestContext(c)).ErrorContext(requestContext(c), "health check failed", "error", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	if cfg.Stream != nil {
		api.Get("/ws",
			func(c *fiber.Ctx) error {
				if !websocket.IsWebSocketUpgrade(c) {
					return fiber.ErrUpgradeRequired
				}
				return c.Next()
			},
			RequireAuth(AuthConfig{Verifier: cfg.Verifier, AllowQueryToken: true, Logger: logger}),
			func(c *fiber.Ctx) error {
				principal, _ := PrincipalFromCtx(c)
				c.Locals("user_id", principal.UserID)
				return c.Next()
			},
			websocket.New(func(conn *websocket.Conn) {
				userID, _ := conn.Locals("user_id").(string)
				cfg.Stream.Serve(conn, userID)
			}),
		)
	}

	api.Use(RequireAuth(AuthConfig{Verifier: cfg.Verifier, Logger: logger}))
	api.Get("/activities", ListActivities)

	if h := cfg.Presence; h != nil {
		api.Put("/presence", h.SetStatus)
		api.Get("/presence", h.GetOwnStatus)
		api.Delete("/presence", h.ClearStatus)
		api.Get("/presence/nearby", h.Nearby)
		api.Get("/presence/:userID", h.GetStatus)
	}
	if h := cfg.Matches; h != nil {
		api.Post("/matches", h.Create)
		api.Get("/matches", h.List)
	}
	if h := cfg.Waves; h != nil {
		api.Post("/waves", h.Create)
		api.Get("/waves/nearby", h.Nearby)
		api.Get("/waves/:id", h.Get)
		api.Delete("/waves/:id", h.Delete)
		api.Post("/waves/:id/participants", h.Join)
		api.Delete("/waves/:id/participants", h.Leave)
	}
	if h := cfg.Chats; h != nil {
		api.Get("/chats", h.List)
		api.Get("/chats/:id/members", h.Members)
		api.Get("/chats/:id/messages", h.Messages)
		api.Post("/chats/:id/messages", h.PostMessage)
	}
	if h := cfg.Profiles; h != nil {
		api.Put("/profile", h.SaveProfile)
		api.Post("/blocks", h.Block)
	}

	return app
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return codeUnauthenticated
	case fiber.StatusForbidden:
		return codePermissionDenied
	case fiber.StatusNotFound:
		return codeNotFound
	case fiber.StatusConflict:
		return codeConflict
	case fiber.StatusGone:
		return codeExpired
	}
	if status >= fiber.StatusBadRequest && status < fiber.StatusInternalServerError {
		return codeInvalidArgument
	}
	return codeInternal
}
