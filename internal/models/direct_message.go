package models

import (
	"strconv"
	"strings"
	"time"
)

// MaxMessageLength bounds direct and plan message content, in characters.
const MaxMessageLength = 2000

// conversationSeparator never appears in a decimal user ID.
const conversationSeparator = "_"

// DirectMessage is one message between two users. Conversations are not
// stored; they are the set of messages sharing a ConversationID.
type DirectMessage struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID string     `gorm:"size:64;not null;index:idx_dm_conversation_created,priority:1" json:"conversationId"`
	SenderID       uint       `gorm:"not null;index" json:"senderId"`
	RecipientID    uint       `gorm:"not null;index:idx_dm_recipient_read,priority:1" json:"recipientId"`
	Content        string     `gorm:"type:text;not null" json:"content"`
	IsRead         bool       `gorm:"default:false;index:idx_dm_recipient_read,priority:2" json:"read"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `gorm:"index:idx_dm_conversation_created,priority:2" json:"createdAt"`
}

// TableName specifies the table name for GORM
func (DirectMessage) TableName() string {
	return "direct_messages"
}

// ConversationIDOf returns the conversation ID shared by users a and b,
// independent of argument order.
func ConversationIDOf(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return strconv.FormatUint(uint64(a), 10) + conversationSeparator + strconv.FormatUint(uint64(b), 10)
}

// ParseConversationID returns the two participants encoded in id. Only the
// canonical form produced by ConversationIDOf is accepted.
func ParseConversationID(id string) (uint, uint, error) {
	left, right, ok := strings.Cut(id, conversationSeparator)
	if !ok {
		return 0, 0, NewValidationError("Invalid conversation ID")
	}
	a, errA := strconv.ParseUint(left, 10, strconv.IntSize)
	b, errB := strconv.ParseUint(right, 10, strconv.IntSize)
	if errA != nil || errB != nil || a == 0 || b == 0 || a == b {
		return 0, 0, NewValidationError("Invalid conversation ID")
	}
	if ConversationIDOf(uint(a), uint(b)) != id {
		return 0, 0, NewValidationError("Invalid conversation ID")
	}
	return uint(a), uint(b), nil
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ConversationID string        `json:"conversationId"`
	OtherUser      UserSummary   `json:"otherUser"`
	LastMessage    DirectMessage `json:"lastMessage"`
	UnreadCount    int           `json:"unreadCount"`
}
