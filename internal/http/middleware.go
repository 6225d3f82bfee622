package http

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/logging"
)

// TokenVerifier validates HS256 bearer tokens minted by the identity provider.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier constructs a verifier for tokens signed with secret.
func NewTokenVerifier(secret string, now func() time.Time) *TokenVerifier {
	if now == nil {
		now = time.Now
	}
	return &TokenVerifier{secret: []byte(secret), now: now}
}

// Verify parses the token and returns the principal named by its subject.
func (v *TokenVerifier) Verify(token string) (application.Principal, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return application.Principal{}, fmt.Errorf("%w: %v", application.ErrUnauthenticated, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return application.Principal{}, fmt.Errorf("%w: token has no subject", application.ErrUnauthenticated)
	}
	return application.Principal{UserID: claims.Subject}, nil
}

// AuthConfig controls RequireAuth.
type AuthConfig struct {
	Verifier *TokenVerifier
	// AllowQueryToken accepts ?access_token= when no Authorization header is
	// present. Only the websocket route enables it.
	AllowQueryToken bool
	Logger          *slog.Logger
}

// RequireAuth rejects requests without a valid bearer token and stores the principal in Locals.
func RequireAuth(cfg AuthConfig) fiber.Handler {
	responder := newResponder(cfg.Logger)

	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" && cfg.AllowQueryToken {
			token = strings.TrimSpace(c.Query("access_token"))
		}
		if token == "" {
			return responder.writeError(c, fiber.StatusUnauthorized, codeUnauthenticated, errMissingToken)
		}

		principal, err := cfg.Verifier.Verify(token)
		if err != nil {
			handlerLogger(c, cfg.Logger, "RequireAuth", "").
				WarnContext(requestContext(c), "rejected bearer token", "error", err, "error_kind", application.ErrorKind(err))
			return responder.writeError(c, fiber.StatusUnauthorized, codeUnauthenticated, errInvalidToken)
		}

		setPrincipal(c, principal)
		if logger := logging.FromContext(requestContext(c)); logger != nil {
			c.SetUserContext(logging.ContextWithLogger(requestContext(c), logger.With("principal_id", principal.UserID)))
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestLogger attaches a request-scoped logger, keyed by the requestid
// middleware's ID, to the user context and logs each request's outcome.
func RequestLogger(base *slog.Logger) fiber.Handler {
	base = defaultLogger(base)

	return func(c *fiber.Ctx) error {
		requestID, _ := c.Locals("requestid").(string)
		logger := base.With(
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
		)
		ctx := logging.ContextWithLogger(requestContext(c), logger)
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		attrs := []any{"status", status, "duration", time.Since(start)}
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "request failed", append(attrs, "error", err)...)
		case status >= fiber.StatusInternalServerError:
			logger.ErrorContext(ctx, "request completed", attrs...)
		default:
			logger.InfoContext(ctx, "request completed", attrs...)
		}
		return err
	}
}
