package service

import (
	"context"

	"tandem/internal/models"
	"tandem/internal/observability"
	"tandem/internal/repository"
	"tandem/internal/validation"
)

// PlanChatService implements member-only plan chat.
type PlanChatService struct {
	planRepo    repository.PlanRepository
	messageRepo repository.PlanMessageRepository
	userRepo    repository.UserRepository
}

func NewPlanChatService(planRepo repository.PlanRepository, messageRepo repository.PlanMessageRepository, userRepo repository.UserRepository) *PlanChatService {
	return &PlanChatService{planRepo: planRepo, messageRepo: messageRepo, userRepo: userRepo}
}

// Send posts a message to the plan. Membership is checked against the
// store on every call.
func (s *PlanChatService) Send(ctx context.Context, senderID, planID uint, content string) (*models.PlanMessageView, error) {
	content, err := validation.MessageContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, planID, senderID); err != nil {
		return nil, err
	}

	banned, err := s.userRepo.IsBanned(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, models.NewForbiddenError("Banned users cannot send messages")
	}
	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.PlanMessage{PlanID: planID, SenderID: senderID, Content: content}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesSent.WithLabelValues("plan").Inc()

	msg.Sender = *sender
	view := msg.View()
	return &view, nil
}

// List returns one page of plan chat, oldest first.
func (s *PlanChatService) List(ctx context.Context, planID, callerID uint, q repository.PageQuery) (*models.MessagePage[models.PlanMessageView], error) {
	if err := s.requireMember(ctx, planID, callerID); err != nil {
		return nil, err
	}

	messages, hasMore, err := s.messageRepo.ListPage(ctx, planID, q)
	if err != nil {
		return nil, err
	}
	views := make([]models.PlanMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, m.View())
	}
	return &models.MessagePage[models.PlanMessageView]{Messages: views, HasMore: hasMore}, nil
}

func (s *PlanChatService) requireMember(ctx context.Context, planID, userID uint) error {
	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return err
	}
	if !plan.IsMember(userID) {
		return models.NewForbiddenError("You are not a member of this plan")
	}
	return nil
}
