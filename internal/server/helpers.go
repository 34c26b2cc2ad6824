package server

import (
	"agora/internal/middleware"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// caller returns the authenticated identity set by the auth middleware.
// Routes behind AuthRequired always have one; the zero Identity is returned
// otherwise and service-level checks reject it.
func caller(c *fiber.Ctx) models.Identity {
	id, _ := middleware.CallerIdentity(c)
	return id
}

// respondServiceError maps a service error to its HTTP status and writes the
// JSON error body.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}
