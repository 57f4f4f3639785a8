package server

import (
	"tandem/internal/models"

	"github.com/gofiber/fiber/v2"
)

// InviteToPlan handles POST /api/shared-plans/:planId/invitations
func (s *Server) InviteToPlan(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	var req struct {
		UserID uint   `json:"userId"`
		Role   string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("userId is required"))
	}

	inv, err := s.invitationService.Invite(c.UserContext(), callerID(c), planID, req.UserID, req.Role)
	if err != nil {
		return respondError(c, err)
	}

	s.publishUserEvent(c.UserContext(), inv.InviteeID, EventInvitationReceived, map[string]interface{}{
		"invitation_id": inv.ID,
		"plan_id":       inv.PlanID,
		"role":          inv.Role,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invitation": inv})
}

// GetInvitations handles GET /api/shared-plans/invitations
func (s *Server) GetInvitations(c *fiber.Ctx) error {
	invitations, err := s.invitationService.ListInvitations(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"invitations": invitations})
}

// RespondToInvitation handles PATCH /api/shared-plans/invitations with
// body {invitationId, action: "accept"|"decline"}.
func (s *Server) RespondToInvitation(c *fiber.Ctx) error {
	var req struct {
		InvitationID uint   `json:"invitationId"`
		Action       string `json:"action"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.InvitationID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("invitationId is required"))
	}

	var accept bool
	switch req.Action {
	case "accept":
		accept = true
	case "decline":
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("action must be 'accept' or 'decline'"))
	}

	inv, err := s.invitationService.Respond(c.UserContext(), callerID(c), req.InvitationID, accept)
	if err != nil {
		return respondError(c, err)
	}

	if !accept {
		return c.JSON(fiber.Map{"message": "Invitation declined"})
	}

	s.publishUserEvent(c.UserContext(), inv.InviterID, EventInvitationAccepted, map[string]interface{}{
		"invitation_id": inv.ID,
		"plan_id":       inv.PlanID,
		"user_id":       inv.InviteeID,
	})
	return c.JSON(fiber.Map{"message": "Invitation accepted", "planId": inv.PlanID})
}
