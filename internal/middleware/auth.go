package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const tokenKey = "access_token"

// RequireToken rejects requests that carry no source-host access token.
// The token comes from the caller's session provider (external to this
// service) as a bearer Authorization header or an X-Access-Token header.
// Absence is rejected before any core logic runs.
func RequireToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Access-Token")
		if token == "" {
			if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "unauthenticated",
				"message": "an access token is required",
			})
		}

		c.Locals(tokenKey, token)
		return c.Next()
	}
}

// Token returns the access token stored by RequireToken.
func Token(c *fiber.Ctx) string {
	if tok, ok := c.Locals(tokenKey).(string); ok {
		return tok
	}
	return ""
}
