package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"webmail/service"
	"webmail/utils"
)

// RequireAuth validates the Bearer token and stores the claims in locals
// under "claims"; handlers read the owner identity from there.
func RequireAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return utils.UnauthorizedError("access token required", nil)
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return utils.UnauthorizedError("malformed authorization header", nil)
		}

		claims, err := service.ValidateToken(token, secret)
		if err != nil {
			return utils.UnauthorizedError("invalid or expired token", err)
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequireAdmin rejects non-admin callers. Must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*service.Claims)
		if !ok || !claims.IsAdmin {
			return utils.ForbiddenError("admin access required", nil)
		}
		return c.Next()
	}
}

// UserID extracts the authenticated user ID from locals.
func UserID(c *fiber.Ctx) string {
	if claims, ok := c.Locals("claims").(*service.Claims); ok {
		return claims.UserID
	}
	return ""
}
