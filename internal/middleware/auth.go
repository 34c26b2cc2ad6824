// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"strings"

	"agora/internal/identity"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// IdentityLocal is the Fiber locals key the resolved caller identity is
// stored under.
const IdentityLocal = "identity"

var provider identity.Provider

// InitMiddleware initializes authentication middleware with the given identity provider.
func InitMiddleware(p identity.Provider) {
	provider = p
}

// CallerIdentity returns the identity resolved by AuthRequired for this
// request, or false when the route ran without authentication.
func CallerIdentity(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals(IdentityLocal).(models.Identity)
	return id, ok
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	id, err := provider.Verify(c.UserContext(), parts[1])
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals(IdentityLocal, id)
	return c.Next()
}

// WebSocketAuthRequired is middleware that validates tokens from query parameters for WebSocket connections.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	// Try to get token from query parameter first (for WebSocket)
	token := c.Query("token")
	if token == "" {
		// Fall back to Authorization header (for regular HTTP)
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}
		token = parts[1]
	}

	id, err := provider.Verify(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals(IdentityLocal, id)
	return c.Next()
}
