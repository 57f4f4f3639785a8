package repository

import (
	"context"
	"errors"
	"time"

	"tandem/internal/models"

	"gorm.io/gorm"
)

// FriendRepository defines the interface for friend data operations
type FriendRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetByID(ctx context.Context, id uint) (*models.Friendship, error)
	GetBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error)
	GetBetweenMany(ctx context.Context, userID uint, others []uint) ([]models.Friendship, error)
	IsAccepted(ctx context.Context, userID1, userID2 uint) (bool, error)
	TransitionFromPending(ctx context.Context, friendshipID uint, status models.FriendshipStatus) (bool, error)
	Block(ctx context.Context, blockerID, targetID uint) (*models.Friendship, error)
	GetFriends(ctx context.Context, userID uint) ([]models.User, error)
	GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error)
	GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error)
}

// friendRepository implements FriendRepository
type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

// Create inserts a pending request. A record for the same unordered pair
// already in the store yields a Conflict.
func (r *friendRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if err := r.db.WithContext(ctx).Create(friendship).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Friendship already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *friendRepository) GetByID(ctx context.Context, id uint) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).Preload("Requester").Preload("Recipient").First(&friendship, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Friendship", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

// GetBetween returns the record for the unordered pair, or nil if none exists.
func (r *friendRepository) GetBetween(ctx context.Context, userID1, userID2 uint) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).
		Where("pair_key = ?", models.FriendshipPairKey(userID1, userID2)).
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

// GetBetweenMany returns every record linking userID with one of others.
func (r *friendRepository) GetBetweenMany(ctx context.Context, userID uint, others []uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	if len(others) == 0 {
		return friendships, nil
	}
	keys := make([]string, 0, len(others))
	for _, id := range others {
		keys = append(keys, models.FriendshipPairKey(userID, id))
	}
	if err := r.db.WithContext(ctx).Where("pair_key IN ?", keys).Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}

func (r *friendRepository) IsAccepted(ctx context.Context, userID1, userID2 uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("pair_key = ? AND status = ?", models.FriendshipPairKey(userID1, userID2), models.FriendshipStatusAccepted).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// TransitionFromPending moves a pending record to status. It reports false
// when the record was no longer pending.
func (r *friendRepository) TransitionFromPending(ctx context.Context, friendshipID uint, status models.FriendshipStatus) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ? AND status = ?", friendshipID, models.FriendshipStatusPending).
		Updates(map[string]interface{}{"status": status, "responded_at": now})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Block marks the pair blocked by blockerID, creating the record if the
// pair has none.
func (r *friendRepository) Block(ctx context.Context, blockerID, targetID uint) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Where("pair_key = ?", models.FriendshipPairKey(blockerID, targetID)).First(&friendship).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			friendship = models.Friendship{
				RequesterID: blockerID,
				RecipientID: targetID,
				Status:      models.FriendshipStatusBlocked,
				BlockedByID: &blockerID,
				RespondedAt: &now,
			}
			return tx.Create(&friendship).Error
		}
		if err != nil {
			return err
		}

		friendship.Status = models.FriendshipStatusBlocked
		friendship.BlockedByID = &blockerID
		friendship.RespondedAt = &now
		return tx.Model(&friendship).Updates(map[string]interface{}{
			"status":        friendship.Status,
			"blocked_by_id": blockerID,
			"responded_at":  now,
		}).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, models.NewConflictError("Friendship changed concurrently")
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

func (r *friendRepository) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User

	// The other participant of each accepted record.
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN friendships f ON (users.id = f.requester_id OR users.id = f.recipient_id)").
		Where("f.status = ? AND (f.requester_id = ? OR f.recipient_id = ?) AND users.id <> ?",
			models.FriendshipStatusAccepted, userID, userID, userID).
		Order("users.username ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return users, nil
}

func (r *friendRepository) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Preload("Requester").
		Preload("Recipient").
		Order("created_at DESC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}

func (r *friendRepository) GetSentRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	var friendships []models.Friendship
	if err := r.db.WithContext(ctx).
		Where("requester_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Preload("Requester").
		Preload("Recipient").
		Order("created_at DESC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}
