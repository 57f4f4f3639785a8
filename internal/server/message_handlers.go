package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/messages
func (s *Server) GetConversations(c *fiber.Ctx) error {
	conversations, err := s.messageService.ListConversations(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

// SendDirectMessage handles POST /api/messages
func (s *Server) SendDirectMessage(c *fiber.Ctx) error {
	var req struct {
		RecipientID uint   `json:"recipientId"`
		Content     string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	senderID := callerID(c)
	msg, err := s.messageService.Send(c.UserContext(), senderID, req.RecipientID, req.Content)
	if err != nil {
		return respondError(c, err)
	}

	s.publishUserEvent(c.UserContext(), msg.RecipientID, EventMessageReceived, map[string]interface{}{
		"conversation_id": msg.ConversationID,
		"message":         msg,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// GetConversationMessages handles GET /api/messages/:conversationId?limit=&before=
func (s *Server) GetConversationMessages(c *fiber.Ctx) error {
	q, err := parsePageQuery(c)
	if err != nil {
		return nil
	}

	page, err := s.messageService.ListMessages(c.UserContext(), c.Params("conversationId"), callerID(c), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// MarkConversationRead handles PATCH /api/messages/:conversationId
func (s *Server) MarkConversationRead(c *fiber.Ctx) error {
	count, err := s.messageService.MarkRead(c.UserContext(), c.Params("conversationId"), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Conversation marked as read",
		"count":   count,
	})
}
