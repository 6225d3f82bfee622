package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/application"
)

const principalLocalsKey = "principal"

func setPrincipal(c *fiber.Ctx, principal application.Principal) {
	c.Locals(principalLocalsKey, principal)
}

// PrincipalFromCtx returns the caller resolved by RequireAuth.
func PrincipalFromCtx(c *fiber.Ctx) (application.Principal, bool) {
	principal, ok := c.Locals(principalLocalsKey).(application.Principal)
	return principal, ok
}

// requestContext returns the request's context.Context, which carries the request logger.
func requestContext(c *fiber.Ctx) context.Context {
	return c.UserContext()
}
