package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// InvitationStatus represents the lifecycle of a plan invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)

// PlanInvitation proposes adding a user to a plan with a role. PendingKey
// is set only while the invitation is pending; its unique index keeps one
// pending invitation per (plan, invitee).
type PlanInvitation struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	PlanID      uint             `gorm:"not null;index" json:"planId"`
	InviterID   uint             `gorm:"not null" json:"inviterId"`
	InviteeID   uint             `gorm:"not null;index:idx_plan_invitations_invitee_status,priority:1" json:"inviteeId"`
	Role        MemberRole       `gorm:"type:varchar(20);not null" json:"role"`
	Status      InvitationStatus `gorm:"type:varchar(20);default:'pending';index:idx_plan_invitations_invitee_status,priority:2" json:"status"`
	PendingKey  *string          `gorm:"size:64;uniqueIndex:idx_plan_invitations_pending" json:"-"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`

	Plan    SharedPlan `gorm:"foreignKey:PlanID" json:"-"`
	Inviter User       `gorm:"foreignKey:InviterID" json:"-"`
}

// TableName specifies the table name for GORM
func (PlanInvitation) TableName() string {
	return "plan_invitations"
}

// InvitationPendingKey is the uniqueness key of a pending invitation.
func InvitationPendingKey(planID, inviteeID uint) string {
	return fmt.Sprintf("%d:%d", planID, inviteeID)
}

// BeforeCreate sets PendingKey for invitations created pending.
func (i *PlanInvitation) BeforeCreate(_ *gorm.DB) error {
	if i.Status == "" {
		i.Status = InvitationStatusPending
	}
	if i.Status == InvitationStatusPending {
		key := InvitationPendingKey(i.PlanID, i.InviteeID)
		i.PendingKey = &key
	}
	return nil
}

// InvitationView is a pending invitation as shown to its invitee.
type InvitationView struct {
	PlanInvitation
	PlanName string      `json:"planName"`
	Inviter  UserSummary `json:"inviter"`
}
