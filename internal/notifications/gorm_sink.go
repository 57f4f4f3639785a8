package notifications

import (
	"context"

	"tandem/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSink stores notifications in the primary database.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink creates a sink over db.
func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) Record(ctx context.Context, n models.Notification) (created bool, err error) {
	defer func() { recordWrite("gorm", created, err) }()

	if err := prepare(&n); err != nil {
		return false, err
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedup_key"}}, DoNothing: true}).
		Create(&n)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormSink) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var list []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&list).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return list, nil
}

func (s *GormSink) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}
