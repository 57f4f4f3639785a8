package repository

import (
	"context"

	"tandem/internal/models"

	"gorm.io/gorm"
)

// PlanMessageRepository stores plan chat messages.
type PlanMessageRepository interface {
	Create(ctx context.Context, msg *models.PlanMessage) error
	ListPage(ctx context.Context, planID uint, q PageQuery) ([]models.PlanMessage, bool, error)
}

type planMessageRepository struct {
	db *gorm.DB
}

// NewPlanMessageRepository creates a new plan chat repository
func NewPlanMessageRepository(db *gorm.DB) PlanMessageRepository {
	return &planMessageRepository{db: db}
}

func (r *planMessageRepository) Create(ctx context.Context, msg *models.PlanMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *planMessageRepository) ListPage(ctx context.Context, planID uint, q PageQuery) ([]models.PlanMessage, bool, error) {
	var messages []models.PlanMessage
	err := pageQuery(r.db.WithContext(ctx).Where("plan_id = ?", planID), q).
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	hasMore := len(messages) == q.Normalize().Limit
	reverse(messages)
	return messages, hasMore, nil
}
