package models

import "time"

// PlanMessage is a chat message visible to all members of a plan.
type PlanMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PlanID    uint      `gorm:"not null;index:idx_plan_messages_plan_created,priority:1" json:"planId"`
	SenderID  uint      `gorm:"not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_plan_messages_plan_created,priority:2" json:"createdAt"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

// TableName specifies the table name for GORM
func (PlanMessage) TableName() string {
	return "plan_messages"
}

// MessagePage is one page of a timestamp-cursor paginated message list,
// ordered oldest first.
type MessagePage[T any] struct {
	Messages []T  `json:"messages"`
	HasMore  bool `json:"hasMore"`
}

// PlanMessageView is a plan message with its sender's public profile.
type PlanMessageView struct {
	PlanMessage
	Sender UserSummary `json:"sender"`
}

// View attaches the preloaded sender summary to m.
func (m PlanMessage) View() PlanMessageView {
	return PlanMessageView{PlanMessage: m, Sender: m.Sender.Summary()}
}
