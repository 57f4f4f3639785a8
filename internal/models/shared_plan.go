package models

import (
	"time"
)

// PlanRole is a user's effective role in a shared plan.
type PlanRole string

const (
	PlanRoleOwner  PlanRole = "owner"
	PlanRoleEditor PlanRole = "editor"
	PlanRoleViewer PlanRole = "viewer"
)

// MemberRole is the role stored on a plan member. Ownership is not a
// member role: the owner is SharedPlan.OwnerID and is never a PlanMember.
type MemberRole string

const (
	MemberRoleEditor MemberRole = "editor"
	MemberRoleViewer MemberRole = "viewer"
)

// ParseMemberRole accepts only roles that can be granted to a member.
func ParseMemberRole(s string) (MemberRole, error) {
	switch MemberRole(s) {
	case MemberRoleEditor, MemberRoleViewer:
		return MemberRole(s), nil
	}
	return "", NewValidationError("Role must be 'editor' or 'viewer'")
}

// PlanRole converts a stored member role to its effective role.
func (r MemberRole) PlanRole() PlanRole {
	return PlanRole(r)
}

// SharedPlan is a collaborative plan. OwnerID is written once at creation.
type SharedPlan struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OwnerID     uint         `gorm:"<-:create;not null;index" json:"ownerId"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Description string       `gorm:"size:500" json:"description"`
	Members     []PlanMember `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks       []PlanTask   `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"tasks"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

// TableName specifies the table name for GORM
func (SharedPlan) TableName() string {
	return "shared_plans"
}

// RoleOf returns userID's effective role. Members must be loaded.
func (p *SharedPlan) RoleOf(userID uint) (PlanRole, bool) {
	if userID == p.OwnerID {
		return PlanRoleOwner, true
	}
	if m := p.member(userID); m != nil {
		return m.Role.PlanRole(), true
	}
	return "", false
}

// IsMember reports whether userID is the owner or a listed member.
func (p *SharedPlan) IsMember(userID uint) bool {
	_, ok := p.RoleOf(userID)
	return ok
}

// CanEdit reports whether userID may change plan content.
func (p *SharedPlan) CanEdit(userID uint) bool {
	role, ok := p.RoleOf(userID)
	return ok && (role == PlanRoleOwner || role == PlanRoleEditor)
}

func (p *SharedPlan) member(userID uint) *PlanMember {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return &p.Members[i]
		}
	}
	return nil
}

// MemberViews lists the owner first, followed by members in join order.
func (p *SharedPlan) MemberViews() []MemberView {
	views := make([]MemberView, 0, len(p.Members)+1)
	owner := MemberView{UserID: p.OwnerID, Role: PlanRoleOwner, JoinedAt: p.CreatedAt}
	if p.Owner.ID != 0 {
		summary := p.Owner.Summary()
		owner.User = &summary
	}
	views = append(views, owner)
	for _, m := range p.Members {
		view := MemberView{UserID: m.UserID, Role: m.Role.PlanRole(), JoinedAt: m.JoinedAt}
		if m.User.ID != 0 {
			summary := m.User.Summary()
			view.User = &summary
		}
		views = append(views, view)
	}
	return views
}

// PlanMember is a non-owner participant of a plan.
type PlanMember struct {
	PlanID   uint       `gorm:"primaryKey" json:"planId"`
	UserID   uint       `gorm:"primaryKey;index" json:"userId"`
	Role     MemberRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt time.Time  `gorm:"not null" json:"joinedAt"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for GORM
func (PlanMember) TableName() string {
	return "plan_members"
}

// MemberView is a member entry as returned to clients, owner included.
type MemberView struct {
	UserID   uint         `json:"userId"`
	Role     PlanRole     `json:"role"`
	JoinedAt time.Time    `json:"joinedAt"`
	User     *UserSummary `json:"user,omitempty"`
}

// PlanDetail is a plan annotated for a specific caller.
type PlanDetail struct {
	SharedPlan
	UserRole PlanRole     `json:"userRole"`
	Members  []MemberView `json:"members"`
}

// DetailFor builds the caller-specific view of p.
func (p *SharedPlan) DetailFor(userID uint) PlanDetail {
	role, _ := p.RoleOf(userID)
	return PlanDetail{SharedPlan: *p, UserRole: role, Members: p.MemberViews()}
}

// TaskStatus is the lifecycle state of a plan task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ParseTaskStatus validates a task status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return TaskStatus(s), nil
	}
	return "", NewValidationError("Status must be 'pending', 'in-progress' or 'completed'")
}

// PlanTask is an entry of a plan's task list.
type PlanTask struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PlanID      uint       `gorm:"not null;index" json:"planId"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"size:1000" json:"description"`
	AssignedTo  *uint      `json:"assignedTo,omitempty"`
	Status      TaskStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedBy   uint       `gorm:"not null" json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TableName specifies the table name for GORM
func (PlanTask) TableName() string {
	return "plan_tasks"
}
