package http

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/logging"
)

// Error codes carried in the error_code field.
const (
	codeUnauthenticated  = "UNAUTHENTICATED"
	codeNotFound         = "NOT_FOUND"
	codeExpired          = "EXPIRED"
	codeConflict         = "CONFLICT"
	codePermissionDenied = "PERMISSION_DENIED"
	codeInvalidArgument  = "INVALID_ARGUMENT"
	codeInternal         = "INTERNAL"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errMissingToken   = errors.New("a bearer token is required")
	errInvalidToken   = errors.New("the bearer token is invalid or expired")
)

type errorResponse struct {
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(c *fiber.Ctx, status int, payload any) error {
	if status == fiber.StatusNoContent || payload == nil {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(payload)
}

func (r responder) writeError(c *fiber.Ctx, status int, code string, err error) error {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	return r.writeJSON(c, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) badRequest(c *fiber.Ctx, err error) error {
	return r.writeError(c, fiber.StatusBadRequest, codeInvalidArgument, err)
}

// handleServiceError maps the application error taxonomy onto HTTP.
func (r responder) handleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return r.writeError(c, fiber.StatusInternalServerError, codeInternal, nil)
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		return r.writeJSON(c, fiber.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeInvalidArgument,
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
	case errors.Is(err, application.ErrUnauthenticated):
		return r.writeError(c, fiber.StatusUnauthorized, codeUnauthenticated, nil)
	case errors.Is(err, application.ErrNotFound):
		return r.writeError(c, fiber.StatusNotFound, codeNotFound, nil)
	case errors.Is(err, application.ErrExpired):
		return r.writeError(c, fiber.StatusGone, codeExpired, publicMessage(err))
	case errors.Is(err, application.ErrConflict):
		return r.writeError(c, fiber.StatusConflict, codeConflict, publicMessage(err))
	case errors.Is(err, application.ErrForbidden):
		return r.writeError(c, fiber.StatusForbidden, codePermissionDenied, publicMessage(err))
	}

	r.loggerFor(requestContext(c)).ErrorContext(requestContext(c), "unhandled service error", "error", err)
	return r.writeError(c, fiber.StatusInternalServerError, codeInternal, nil)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// publicErrors are the specific failures whose text is safe to show callers.
var publicErrors = []struct {
	err     error
	message string
}{
	{application.ErrAlreadyMatched, "users are already matched"},
	{application.ErrNotParticipant, "not a participant of this wave"},
	{application.ErrRecipientStatusExpired, "recipient has no active status"},
	{application.ErrCreatorCannotLeave, "the creator cannot leave their own wave"},
	{application.ErrNotWaveCreator, "only the creator may do this"},
	{application.ErrNotChatMember, "not a member of this chat"},
}

// publicMessage returns the caller-facing text for err, or nil for the status default.
func publicMessage(err error) error {
	for _, pe := range publicErrors {
		if errors.Is(err, pe.err) {
			return errors.New(pe.message)
		}
	}
	return nil
}

func statusMessage(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "the request is malformed"
	case fiber.StatusUnauthorized:
		return "authentication is required"
	case fiber.StatusForbidden:
		return "you are not allowed to do this"
	case fiber.StatusNotFound:
		return "the requested resource was not found"
	case fiber.StatusConflict:
		return "the request conflicts with the current state"
	case fiber.StatusGone:
		return "the resource has expired"
	case fiber.StatusUnprocessableEntity:
		return "the request contains invalid fields"
	default:
		return "an internal error occurred"
	}
}

// queryFloat parses an optional float query parameter. Absent parameters yield def.
func queryFloat(c *fiber.Ctx, v *application.ValidationError, name string, def float64) float64 {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		addFieldError(v, name, "must be a number")
		return def
	}
	return f
}

// requireQueryFloat parses a mandatory float query parameter.
func requireQueryFloat(c *fiber.Ctx, v *application.ValidationError, name string) float64 {
	if strings.TrimSpace(c.Query(name)) == "" {
		addFieldError(v, name, "is required")
		return 0
	}
	return queryFloat(c, v, name, 0)
}

func queryInt(c *fiber.Ctx, v *application.ValidationError, name string) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		addFieldError(v, name, "must be an integer")
		return 0
	}
	return n
}

func addFieldError(v *application.ValidationError, field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
