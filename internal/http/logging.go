package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request-scoped logger installed by RequestLogger,
// which already carries request_id, method, path and principal_id.
func handlerLogger(c *fiber.Ctx, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(requestContext(c))
	if logger == nil {
		logger = defaultLogger(fallback).With("method", c.Method(), "path", c.Path())
	}

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if id := c.Params("id"); id != "" {
		pairs = append(pairs, "resource_id", id)
	}
	return logger.With(append(pairs, attrs...)...)
}
