package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus represents the status of a friendship request.
type FriendshipStatus string

const (
	// FriendshipStatusPending indicates a pending friendship request.
	FriendshipStatusPending FriendshipStatus = "pending"
	// FriendshipStatusAccepted indicates an accepted friendship request.
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	// FriendshipStatusDeclined indicates the recipient declined the request.
	FriendshipStatusDeclined FriendshipStatus = "declined"
	// FriendshipStatusBlocked indicates a blocked friendship.
	FriendshipStatusBlocked FriendshipStatus = "blocked"
)

// Friendship is the single relationship record between two users. The
// requester/recipient direction is kept for display; PairKey is identical
// for both directions so the store holds at most one record per pair.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;index" json:"requesterId"`
	RecipientID uint             `gorm:"not null;index" json:"recipientId"`
	PairKey     string           `gorm:"size:64;not null;uniqueIndex:idx_friendship_pair" json:"-"`
	Status      FriendshipStatus `gorm:"type:varchar(20);default:'pending';index:idx_friendships_status" json:"status"`
	BlockedByID *uint            `json:"blockedById,omitempty"`
	RespondedAt *time.Time       `json:"respondedAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`

	Requester User `gorm:"foreignKey:RequesterID" json:"-"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"-"`
}

// FriendshipView is a friendship with both participants reduced to their
// public summaries.
type FriendshipView struct {
	Friendship
	Requester UserSummary `json:"requester"`
	Recipient UserSummary `json:"recipient"`
}

// View attaches the preloaded participant summaries to f.
func (f Friendship) View() FriendshipView {
	return FriendshipView{Friendship: f, Requester: f.Requester.Summary(), Recipient: f.Recipient.Summary()}
}

// FriendshipViews maps View over a slice of friendships.
func FriendshipViews(friendships []Friendship) []FriendshipView {
	views := make([]FriendshipView, 0, len(friendships))
	for _, f := range friendships {
		views = append(views, f.View())
	}
	return views
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// FriendshipPairKey returns the direction-independent key for two users.
func FriendshipPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// BeforeCreate derives PairKey from the two participants.
func (f *Friendship) BeforeCreate(_ *gorm.DB) error {
	f.PairKey = FriendshipPairKey(f.RequesterID, f.RecipientID)
	return nil
}

// Involves reports whether userID is either side of the friendship.
func (f *Friendship) Involves(userID uint) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// OtherUserID returns the participant that is not userID.
func (f *Friendship) OtherUserID(userID uint) uint {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}
