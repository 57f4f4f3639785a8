package repository

import (
	"context"
	"time"

	"tandem/internal/models"

	"gorm.io/gorm"
)

const (
	// DefaultPageSize is used when a caller does not pass a limit.
	DefaultPageSize = 50
	// MaxPageSize caps every message page.
	MaxPageSize = 100
)

// PageQuery selects a backward page of a timestamp-ordered message list.
type PageQuery struct {
	Limit  int
	Before *time.Time
}

// Normalize clamps Limit into [1, MaxPageSize], defaulting to DefaultPageSize.
func (q PageQuery) Normalize() PageQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

// MessageRepository stores direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.DirectMessage) error
	ListForUser(ctx context.Context, userID uint) ([]models.DirectMessage, error)
	ListPage(ctx context.Context, conversationID string, q PageQuery) ([]models.DirectMessage, bool, error)
	MarkRead(ctx context.Context, conversationID string, recipientID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new direct message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.DirectMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListForUser returns every message the user sent or received, newest first.
func (r *messageRepository) ListForUser(ctx context.Context, userID uint) ([]models.DirectMessage, error) {
	var messages []models.DirectMessage
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *messageRepository) ListPage(ctx context.Context, conversationID string, q PageQuery) ([]models.DirectMessage, bool, error) {
	var messages []models.DirectMessage
	err := pageQuery(r.db.WithContext(ctx).Where("conversation_id = ?", conversationID), q).
		Find(&messages).Error
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	hasMore := len(messages) == q.Normalize().Limit
	reverse(messages)
	return messages, hasMore, nil
}

// MarkRead flags every unread message addressed to recipientID and returns
// how many rows changed.
func (r *messageRepository) MarkRead(ctx context.Context, conversationID string, recipientID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DirectMessage{}).
		Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conversationID, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}

// pageQuery applies the newest-first window shared by direct and plan
// messages. Callers reverse the result to present it oldest first.
func pageQuery(db *gorm.DB, q PageQuery) *gorm.DB {
	q = q.Normalize()
	if q.Before != nil {
		db = db.Where("created_at < ?", q.Before.UTC())
	}
	return db.Order("created_at DESC").Order("id DESC").Limit(q.Limit)
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
