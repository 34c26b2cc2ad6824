package server

import (
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// toggleReaction toggles the caller's reaction on the document at path and
// returns the action plus the refreshed aggregate.
func (s *Server) toggleReaction(c *fiber.Ctx, path string) error {
	ctx := c.Context()
	viewer := caller(c)

	var req struct {
		Kind string `json:"kind"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	action, err := s.reactions.Toggle(ctx, path, viewer, req.Kind)
	if err != nil {
		return respondServiceError(c, err)
	}

	summary, err := s.reactions.Summary(ctx, path, viewer)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"action":  action.String(),
		"summary": summary,
	})
}

// ToggleThreadReaction handles POST /api/themata/:themaId/threads/:threadId/reactions
func (s *Server) ToggleThreadReaction(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.ThreadPath(c.Params("themaId"), c.Params("threadId")))
}

// ToggleCommentReaction handles POST /api/themata/:themaId/threads/:threadId/comments/:commentId/reactions
func (s *Server) ToggleCommentReaction(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.CommentPath(
		c.Params("themaId"), c.Params("threadId"), c.Params("commentId")))
}
