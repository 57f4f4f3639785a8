package service

import (
	"context"
	"errors"
	"fmt"

	"tandem/internal/models"
	"tandem/internal/notifications"
	"tandem/internal/observability"
	"tandem/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// InvitationService runs the plan invitation workflow.
type InvitationService struct {
	invitationRepo repository.InvitationRepository
	planRepo       repository.PlanRepository
	userRepo       repository.UserRepository
	sink           notifications.Sink
}

func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	planRepo repository.PlanRepository,
	userRepo repository.UserRepository,
	sink notifications.Sink,
) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		planRepo:       planRepo,
		userRepo:       userRepo,
		sink:           sink,
	}
}

// Invite proposes adding inviteeID to the plan with role. The owner and
// editors may invite; the invitee must not already belong to the plan or
// hold a pending invitation to it.
func (s *InvitationService) Invite(ctx context.Context, inviterID, planID, inviteeID uint, role string) (*models.PlanInvitation, error) {
	memberRole, err := models.ParseMemberRole(role)
	if err != nil {
		return nil, err
	}

	plan, err := s.planRepo.GetWithMembers(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.CanEdit(inviterID) {
		return nil, models.NewForbiddenError("Only the owner and editors can invite members")
	}
	if _, err := s.userRepo.GetByID(ctx, inviteeID); err != nil {
		return nil, err
	}
	if plan.IsMember(inviteeID) {
		return nil, models.NewConflictError("User is already a member of this plan")
	}

	pending, err := s.invitationRepo.HasPending(ctx, planID, inviteeID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, models.NewConflictError("A pending invitation already exists for this user")
	}

	inv := &models.PlanInvitation{
		PlanID:    planID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Role:      memberRole,
		Status:    models.InvitationStatusPending,
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	recordNotification(ctx, s.sink, models.Notification{
		UserID:   inviteeID,
		Type:     models.NotificationInvitationReceived,
		Title:    "Plan invitation",
		Body:     fmt.Sprintf("You were invited to join %q as %s", plan.Name, memberRole),
		DedupKey: fmt.Sprintf("invitation-received:%d", inv.ID),
	})
	return inv, nil
}

// ListInvitations returns the pending invitations addressed to userID.
func (s *InvitationService) ListInvitations(ctx context.Context, userID uint) ([]models.InvitationView, error) {
	invitations, err := s.invitationRepo.ListPendingForInvitee(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]models.InvitationView, 0, len(invitations))
	for _, inv := range invitations {
		views = append(views, models.InvitationView{
			PlanInvitation: inv,
			PlanName:       inv.Plan.Name,
			Inviter:        inv.Inviter.Summary(),
		})
	}
	return views, nil
}

// Respond resolves an invitation addressed to inviteeID. The status change
// is the serialization point: of several concurrent responses exactly one
// succeeds and the rest see a Conflict with nothing written.
func (s *InvitationService) Respond(ctx context.Context, inviteeID, invitationID uint, accept bool) (inv *models.PlanInvitation, err error) {
	span, ctx := observability.NewSpan(ctx, "invitation.respond")
	defer span.End()
	span.AddAttributes(
		attribute.Int64("invitation.id", int64(invitationID)),
		attribute.Bool("invitation.accept", accept),
	)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
	}()

	inv, err = s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != inviteeID {
		return nil, models.NewForbiddenError("This invitation is not addressed to you")
	}
	if inv.Status != models.InvitationStatusPending {
		observability.InvitationResolutions.WithLabelValues("conflict").Inc()
		return nil, models.NewConflictError("Invitation has already been resolved")
	}

	if err := s.invitationRepo.Resolve(ctx, inv, accept); err != nil {
		if errors.Is(err, repository.ErrInvitationNotPending) {
			observability.InvitationResolutions.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}
	observability.InvitationResolutions.WithLabelValues(string(inv.Status)).Inc()

	if accept {
		s.notifyAccepted(ctx, inv)
	}
	return inv, nil
}

func (s *InvitationService) notifyAccepted(ctx context.Context, inv *models.PlanInvitation) {
	body := "Your plan invitation was accepted"
	if invitee, err := s.userRepo.GetByID(ctx, inv.InviteeID); err == nil {
		body = fmt.Sprintf("%s accepted your plan invitation", invitee.Name())
	}
	recordNotification(ctx, s.sink, models.Notification{
		UserID:   inv.InviterID,
		Type:     models.NotificationInvitationAccepted,
		Title:    "Invitation accepted",
		Body:     body,
		DedupKey: InvitationAcceptedKey(inv.ID),
	})
}

// InvitationAcceptedKey is the notification dedup key of an accepted invitation.
func InvitationAcceptedKey(invitationID uint) string {
	return fmt.Sprintf("invitation-accepted:%d", invitationID)
}
