package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetPlanMessages handles GET /api/shared-plans/:planId/messages?limit=&before=
func (s *Server) GetPlanMessages(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	q, err := parsePageQuery(c)
	if err != nil {
		return nil
	}

	page, err := s.planChatService.List(c.UserContext(), planID, callerID(c), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SendPlanMessage handles POST /api/shared-plans/:planId/messages
func (s *Server) SendPlanMessage(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.planChatService.Send(c.UserContext(), callerID(c), planID, req.Content)
	if err != nil {
		return respondError(c, err)
	}

	s.publishPlanEvent(c.UserContext(), planID, EventPlanMessageCreated, map[string]interface{}{
		"plan_id": planID,
		"message": msg,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}
