package server

import (
	"tandem/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications?limit=
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	notes, err := s.sink.ListForUser(c.UserContext(), callerID(c), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"notifications": notes})
}

// MarkNotificationsRead handles POST /api/notifications/read
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	count, err := s.sink.MarkAllRead(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Notifications marked as read", "count": count})
}
