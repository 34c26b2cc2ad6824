package server

import (
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateThema handles POST /api/themata
func (s *Server) CreateThema(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	thema, err := s.forum.CreateThema(ctx, caller(c), req.Name, req.Description)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(thema)
}

// GetThemata handles GET /api/themata
func (s *Server) GetThemata(c *fiber.Ctx) error {
	themata, err := s.forum.ListThemata(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(themata)
}

// DeleteThema handles DELETE /api/themata/:themaId
func (s *Server) DeleteThema(c *fiber.Ctx) error {
	if err := s.forum.DeleteThema(c.Context(), caller(c), c.Params("themaId")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateThread handles POST /api/themata/:themaId/threads
func (s *Server) CreateThread(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Title          string `json:"title"`
		InitialComment string `json:"initialComment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	thread, err := s.forum.CreateThread(ctx, caller(c), c.Params("themaId"), req.Title, req.InitialComment)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(thread)
}

// GetThreads handles GET /api/themata/:themaId/threads
func (s *Server) GetThreads(c *fiber.Ctx) error {
	views, err := s.forum.ListThreads(c.Context(), caller(c), c.Params("themaId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(views)
}

// DeleteThread handles DELETE /api/themata/:themaId/threads/:threadId
func (s *Server) DeleteThread(c *fiber.Ctx) error {
	err := s.forum.DeleteThread(c.Context(), caller(c), c.Params("themaId"), c.Params("threadId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateComment handles POST /api/themata/:themaId/threads/:threadId/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Content  string `json:"content"`
		ParentID string `json:"parentId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.forum.AddComment(ctx, caller(c),
		c.Params("themaId"), c.Params("threadId"), req.ParentID, req.Content)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/themata/:themaId/threads/:threadId/comments.
// The response is the flattened rendering: depth-annotated rows in pre-order,
// orphaned replies surfacing as roots.
func (s *Server) GetComments(c *fiber.Ctx) error {
	views, err := s.forum.ListComments(c.Context(), caller(c),
		c.Params("themaId"), c.Params("threadId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(views)
}

// UpdateComment handles PUT /api/themata/:themaId/threads/:threadId/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.forum.UpdateComment(c.Context(), caller(c),
		c.Params("themaId"), c.Params("threadId"), c.Params("commentId"), req.Content)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteComment handles DELETE /api/themata/:themaId/threads/:threadId/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	err := s.forum.DeleteComment(c.Context(), caller(c),
		c.Params("themaId"), c.Params("threadId"), c.Params("commentId"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
