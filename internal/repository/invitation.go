package repository

import (
	"context"
	"errors"
	"time"

	"tandem/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvitationNotPending is returned by Resolve when another request has
// already moved the invitation out of pending.
var ErrInvitationNotPending = models.NewConflictError("Invitation is no longer pending")

// InvitationRepository persists plan invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *models.PlanInvitation) error
	GetByID(ctx context.Context, id uint) (*models.PlanInvitation, error)
	HasPending(ctx context.Context, planID, inviteeID uint) (bool, error)
	ListPendingForInvitee(ctx context.Context, inviteeID uint) ([]models.PlanInvitation, error)
	Resolve(ctx context.Context, inv *models.PlanInvitation, accept bool) error
}

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new plan invitation repository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

// Create inserts a pending invitation. A second pending invitation for the
// same plan and invitee yields a Conflict.
func (r *invitationRepository) Create(ctx context.Context, inv *models.PlanInvitation) error {
	if err := r.db.WithContext(ctx).Omit("Plan", "Inviter").Create(inv).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A pending invitation already exists for this user")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id uint) (*models.PlanInvitation, error) {
	var inv models.PlanInvitation
	if err := r.db.WithContext(ctx).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Invitation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &inv, nil
}

func (r *invitationRepository) HasPending(ctx context.Context, planID, inviteeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PlanInvitation{}).
		Where("pending_key = ?", models.InvitationPendingKey(planID, inviteeID)).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *invitationRepository) ListPendingForInvitee(ctx context.Context, inviteeID uint) ([]models.PlanInvitation, error) {
	var invitations []models.PlanInvitation
	if err := r.db.WithContext(ctx).
		Where("invitee_id = ? AND status = ?", inviteeID, models.InvitationStatusPending).
		Preload("Plan").
		Preload("Inviter").
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return invitations, nil
}

// Resolve moves a pending invitation to its terminal status. The status
// compare-and-swap runs first; only the request that wins it inserts the
// member row, and that insert is itself a no-op if the row already exists.
func (r *invitationRepository) Resolve(ctx context.Context, inv *models.PlanInvitation, accept bool) error {
	status := models.InvitationStatusDeclined
	if accept {
		status = models.InvitationStatusAccepted
	}
	now := time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PlanInvitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationStatusPending).
			Updates(map[string]interface{}{
				"status":       status,
				"pending_key":  gorm.Expr("NULL"),
				"responded_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvitationNotPending
		}
		if !accept {
			return nil
		}

		member := models.PlanMember{
			PlanID:   inv.PlanID,
			UserID:   inv.InviteeID,
			Role:     inv.Role,
			JoinedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("User").Create(&member).Error; err != nil {
			return err
		}
		return tx.Model(&models.SharedPlan{}).Where("id = ?", inv.PlanID).Update("updated_at", now).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvitationNotPending) {
			return ErrInvitationNotPending
		}
		return models.NewInternalError(err)
	}

	inv.Status = status
	inv.PendingKey = nil
	inv.RespondedAt = &now
	return nil
}
