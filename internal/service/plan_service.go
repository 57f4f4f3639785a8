package service

import (
	"context"
	"time"

	"tandem/internal/models"
	"tandem/internal/repository"
	"tandem/internal/validation"
)

// PlanService manages shared plans, their membership and their tasks.
// Every check loads the plan fresh so membership is never cached.
type PlanService struct {
	planRepo repository.PlanRepository
}

// UpdatePlanInput carries optional plan field changes.
type UpdatePlanInput struct {
	Name        *string
	Description *string
}

// AddTaskInput carries the fields of a new plan task.
type AddTaskInput struct {
	Title       string
	Description string
	AssignedTo  *uint
}

func NewPlanService(planRepo repository.PlanRepository) *PlanService {
	return &PlanService{planRepo: planRepo}
}

// CreatePlan creates a plan owned by ownerID with no other members.
func (s *PlanService) CreatePlan(ctx context.Context, ownerID uint, name, description string) (*models.PlanDetail, error) {
	name, err := validation.RequiredText("Plan name", name, validation.MaxPlanNameLength)
	if err != nil {
		return nil, err
	}
	description, err = validation.OptionalText("Description", description, validation.MaxPlanDescriptionLength)
	if err != nil {
		return nil, err
	}

	plan := &models.SharedPlan{OwnerID: ownerID, Name: name, Description: description}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return s.detail(ctx, plan.ID, ownerID)
}

// ListPlans returns every plan userID owns or belongs to.
func (s *PlanService) ListPlans(ctx context.Context, userID uint) ([]models.PlanDetail, error) {
	plans, err := s.planRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	details := make([]models.PlanDetail, 0, len(plans))
	for i := range plans {
		details = append(details, plans[i].DetailFor(userID))
	}
	return details, nil
}

// GetPlan returns a plan to one of its members.
func (s *PlanService) GetPlan(ctx context.Context, callerID, planID uint) (*models.PlanDetail, error) {
	plan, err := s.requireMember(ctx, planID, callerID)
	if err != nil {
		return nil, err
	}
	detail := plan.DetailFor(callerID)
	return &detail, nil
}

// UpdatePlan changes name or description. Owner and editors only.
func (s *PlanService) UpdatePlan(ctx context.Context, callerID, planID uint, in UpdatePlanInput) (*models.PlanDetail, error) {
	if _, err := s.requireEditor(ctx, planID, callerID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name, err := validation.RequiredText("Plan name", *in.Name, validation.MaxPlanNameLength)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.Description != nil {
		description, err := validation.OptionalText("Description", *in.Description, validation.MaxPlanDescriptionLength)
		if err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if len(updates) > 0 {
		if err := s.planRepo.Update(ctx, planID, updates); err != nil {
			return nil, err
		}
	}
	return s.detail(ctx, planID, callerID)
}

// DeletePlan removes the plan with its members, tasks, invitations and chat.
func (s *PlanService) DeletePlan(ctx context.Context, callerID, planID uint) error {
	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return err
	}
	if plan.OwnerID != callerID {
		return models.NewForbiddenError("Only the plan owner can delete the plan")
	}
	return s.planRepo.Delete(ctx, planID)
}

// ChangeRole sets a member's role. Only the owner may do this, and the
// owner's own role can never change.
func (s *PlanService) ChangeRole(ctx context.Context, callerID, planID, targetUserID uint, role string) error {
	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return err
	}
	if plan.OwnerID != callerID {
		return models.NewForbiddenError("Only the plan owner can change roles")
	}
	newRole, err := models.ParseMemberRole(role)
	if err != nil {
		return err
	}
	if targetUserID == plan.OwnerID {
		return models.NewValidationError("The owner's role cannot be changed")
	}

	found, err := s.planRepo.UpdateMemberRole(ctx, planID, targetUserID, newRole)
	if err != nil {
		return err
	}
	if !found {
		return models.NewNotFoundError("Member", targetUserID)
	}
	return nil
}

// RemoveMember lets a member leave or the owner remove someone else. The
// owner can never be removed.
func (s *PlanService) RemoveMember(ctx context.Context, callerID, planID, targetUserID uint) error {
	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return err
	}

	if targetUserID == plan.OwnerID {
		if callerID == plan.OwnerID {
			return models.NewValidationError("The owner cannot leave the plan; delete it instead")
		}
		return models.NewForbiddenError("The plan owner cannot be removed")
	}
	if callerID != targetUserID && callerID != plan.OwnerID {
		return models.NewForbiddenError("Only the plan owner can remove other members")
	}
	if !plan.IsMember(targetUserID) {
		return models.NewNotFoundError("Member", targetUserID)
	}

	removed, err := s.planRepo.RemoveMember(ctx, planID, targetUserID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Member", targetUserID)
	}
	return nil
}

// AddTask appends a task. Owner and editors only; an assignee must be a
// current member.
func (s *PlanService) AddTask(ctx context.Context, callerID, planID uint, in AddTaskInput) (*models.PlanTask, error) {
	plan, err := s.requireEditor(ctx, planID, callerID)
	if err != nil {
		return nil, err
	}
	title, err := validation.RequiredText("Task title", in.Title, validation.MaxTaskTitleLength)
	if err != nil {
		return nil, err
	}
	description, err := validation.OptionalText("Task description", in.Description, validation.MaxTaskDescriptionLength)
	if err != nil {
		return nil, err
	}
	if in.AssignedTo != nil && !plan.IsMember(*in.AssignedTo) {
		return nil, models.NewValidationError("Tasks can only be assigned to plan members")
	}

	task := &models.PlanTask{
		PlanID:      planID,
		Title:       title,
		Description: description,
		AssignedTo:  in.AssignedTo,
		Status:      models.TaskStatusPending,
		CreatedBy:   callerID,
	}
	if err := s.planRepo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskStatus moves a task between statuses. Owner, editors and the
// task's assignee may do this.
func (s *PlanService) UpdateTaskStatus(ctx context.Context, callerID, planID, taskID uint, status string) (*models.PlanTask, error) {
	plan, err := s.requireMember(ctx, planID, callerID)
	if err != nil {
		return nil, err
	}
	newStatus, err := models.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}
	task, err := s.planRepo.GetTask(ctx, planID, taskID)
	if err != nil {
		return nil, err
	}

	isAssignee := task.AssignedTo != nil && *task.AssignedTo == callerID
	if !plan.CanEdit(callerID) && !isAssignee {
		return nil, models.NewForbiddenError("Viewers can only update tasks assigned to them")
	}

	updates := map[string]interface{}{"status": newStatus, "completed_at": nil}
	task.CompletedAt = nil
	if newStatus == models.TaskStatusCompleted {
		now := time.Now().UTC()
		updates["completed_at"] = now
		task.CompletedAt = &now
	}
	if err := s.planRepo.UpdateTask(ctx, task, updates); err != nil {
		return nil, err
	}
	task.Status = newStatus
	return task, nil
}

// DeleteTask removes a task. Owner and editors only.
func (s *PlanService) DeleteTask(ctx context.Context, callerID, planID, taskID uint) error {
	if _, err := s.requireEditor(ctx, planID, callerID); err != nil {
		return err
	}
	deleted, err := s.planRepo.DeleteTask(ctx, planID, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewNotFoundError("Task", taskID)
	}
	return nil
}

// requireMember loads the plan and checks that userID is its owner or a member.
func (s *PlanService) requireMember(ctx context.Context, planID, userID uint) (*models.SharedPlan, error) {
	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsMember(userID) {
		return nil, models.NewForbiddenError("You are not a member of this plan")
	}
	return plan, nil
}

func (s *PlanService) requireEditor(ctx context.Context, planID, userID uint) (*models.SharedPlan, error) {
	plan, err := s.requireMember(ctx, planID, userID)
	if err != nil {
		return nil, err
	}
	if !plan.CanEdit(userID) {
		return nil, models.NewForbiddenError("Only the owner and editors can change this plan")
	}
	return plan, nil
}

func (s *PlanService) detail(ctx context.Context, planID, userID uint) (*models.PlanDetail, error) {
	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return nil, err
	}
	detail := plan.DetailFor(userID)
	return &detail, nil
}
