package server

import (
	"tandem/internal/models"
	"tandem/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPlans handles GET /api/shared-plans
func (s *Server) GetPlans(c *fiber.Ctx) error {
	plans, err := s.planService.ListPlans(c.UserContext(), callerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// CreatePlan handles POST /api/shared-plans
func (s *Server) CreatePlan(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	plan, err := s.planService.CreatePlan(c.UserContext(), callerID(c), req.Name, req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"plan": plan})
}

// GetPlan handles GET /api/shared-plans/:planId
func (s *Server) GetPlan(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}

	plan, err := s.planService.GetPlan(c.UserContext(), callerID(c), planID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"plan": plan})
}

// UpdatePlan handles PATCH /api/shared-plans/:planId
func (s *Server) UpdatePlan(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	plan, err := s.planService.UpdatePlan(c.UserContext(), callerID(c), planID, service.UpdatePlanInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"plan": plan})
}

// DeletePlan handles DELETE /api/shared-plans/:planId
func (s *Server) DeletePlan(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}

	if err := s.planService.DeletePlan(c.UserContext(), callerID(c), planID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Plan deleted"})
}

// ChangeMemberRole handles PATCH /api/shared-plans/:planId/members
func (s *Server) ChangeMemberRole(c *fiber.Ctx) error {
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

	if err := s.planService.ChangeRole(c.UserContext(), callerID(c), planID, req.UserID, req.Role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member role updated"})
}

// RemoveMember handles DELETE /api/shared-plans/:planId/members?userId=
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	targetID := c.QueryInt("userId", 0)
	if targetID <= 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("userId is required"))
	}

	userID := callerID(c)
	if err := s.planService.RemoveMember(c.UserContext(), userID, planID, uint(targetID)); err != nil {
		return respondError(c, err)
	}

	message := "Member removed"
	if uint(targetID) == userID {
		message = "Left plan"
	}
	return c.JSON(fiber.Map{"message": message})
}

// AddTask handles POST /api/shared-plans/:planId/tasks
func (s *Server) AddTask(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		AssignedTo  *uint  `json:"assignedTo"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	task, err := s.planService.AddTask(c.UserContext(), callerID(c), planID, service.AddTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"task": task})
}

// UpdateTask handles PATCH /api/shared-plans/:planId/tasks/:taskId
func (s *Server) UpdateTask(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	taskID, err := s.parseID(c, "taskId")
	if err != nil {
		return nil
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	task, err := s.planService.UpdateTaskStatus(c.UserContext(), callerID(c), planID, taskID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"task": task})
}

// DeleteTask handles DELETE /api/shared-plans/:planId/tasks/:taskId
func (s *Server) DeleteTask(c *fiber.Ctx) error {
	planID, err := s.parseID(c, "planId")
	if err != nil {
		return nil
	}
	taskID, err := s.parseID(c, "taskId")
	if err != nil {
		return nil
	}

	if err := s.planService.DeleteTask(c.UserContext(), callerID(c), planID, taskID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task deleted"})
}
