package models

import "time"

// NotificationType names the event a notification records.
type NotificationType string

const (
	NotificationInvitationAccepted NotificationType = "invitation_accepted"
	NotificationInvitationReceived NotificationType = "invitation_received"
	NotificationFriendRequest      NotificationType = "friend_request"
	NotificationFriendAccepted     NotificationType = "friend_accepted"
)

// Notification is a fire-and-forget record for a user. DedupKey makes
// repeated writes of the same event collapse into one record.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id,omitempty" bson:"-"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_created,priority:1" json:"userId" bson:"user_id"`
	Type      NotificationType `gorm:"type:varchar(40);not null" json:"type" bson:"type"`
	Title     string           `gorm:"size:200" json:"title" bson:"title"`
	Body      string           `gorm:"size:1000" json:"body" bson:"body"`
	DedupKey  string           `gorm:"size:128;not null;uniqueIndex" json:"-" bson:"dedup_key"`
	IsRead    bool             `gorm:"default:false" json:"read" bson:"is_read"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"createdAt" bson:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
