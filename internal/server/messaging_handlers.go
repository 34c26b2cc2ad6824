package server

import (
	"agora/internal/messaging"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateConversation handles POST /api/conversations
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Participants []string `json:"participants"`
		Name         string   `json:"name"`
		Image        string   `json:"image"`
		Type         string   `json:"type"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	summary, err := s.messaging.CreateConversation(ctx, caller(c), req.Participants, req.Name, req.Image, req.Type)
	if err != nil {
		if fe, ok := messaging.IsFanoutError(err); ok {
			// Some mailboxes got their copy; surface which ones did not so
			// the client can retry or repair.
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":        fe.Error(),
				"failed":       fe.Failed,
				"conversation": summary,
			})
		}
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(summary)
}

// GetConversations handles GET /api/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	summaries, err := s.messaging.ListConversations(c.Context(), caller(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(summaries)
}

// GetMessages handles GET /api/conversations/:id/messages
func (s *Server) GetMessages(c *fiber.Ctx) error {
	msgs, err := s.messaging.ListMessages(c.Context(), caller(c), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/conversations/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messaging.SendMessage(ctx, caller(c), c.Params("id"), req.Content)
	if err != nil {
		if fe, ok := messaging.IsFanoutError(err); ok {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   fe.Error(),
				"failed":  fe.Failed,
				"message": msg,
			})
		}
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// EditMessage handles PUT /api/conversations/:id/messages/:messageId
func (s *Server) EditMessage(c *fiber.Ctx) error {
	if !s.featureEnabled(c, "message_edit") {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Message editing is disabled"))
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	err := s.messaging.EditMessage(c.Context(), caller(c), c.Params("id"), c.Params("messageId"), req.Content)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkConversationRead handles POST /api/conversations/:id/read
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	if err := s.messaging.MarkRead(c.Context(), caller(c), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RenameConversation handles PUT /api/conversations/:id
func (s *Server) RenameConversation(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.messaging.RenameConversation(c.Context(), caller(c), c.Params("id"), req.Name); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RepairConversation handles POST /api/conversations/:id/repair. It converges
// every participant's mirrored copy onto the most recently active one and
// reports which mailboxes were rewritten.
func (s *Server) RepairConversation(c *fiber.Ctx) error {
	if !s.featureEnabled(c, "conversation_repair") {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Conversation repair is disabled"))
	}

	repaired, err := s.messaging.Repair(c.Context(), caller(c).UID, c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	if repaired == nil {
		repaired = []string{}
	}
	return c.JSON(fiber.Map{"repaired": repaired})
}

// DeleteConversation handles DELETE /api/conversations/:id
func (s *Server) DeleteConversation(c *fiber.Ctx) error {
	if err := s.messaging.DeleteConversation(c.Context(), caller(c), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
