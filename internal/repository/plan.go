package repository

import (
	"context"
	"errors"

	"tandem/internal/models"

	"gorm.io/gorm"
)

// PlanRepository persists shared plans, their members and their tasks.
type PlanRepository interface {
	Create(ctx context.Context, plan *models.SharedPlan) error
	GetWithMembers(ctx context.Context, id uint) (*models.SharedPlan, error)
	ListForUser(ctx context.Context, userID uint) ([]models.SharedPlan, error)
	Update(ctx context.Context, planID uint, updates map[string]interface{}) error
	Delete(ctx context.Context, planID uint) error
	UpdateMemberRole(ctx context.Context, planID, userID uint, role models.MemberRole) (bool, error)
	RemoveMember(ctx context.Context, planID, userID uint) (bool, error)

	CreateTask(ctx context.Context, task *models.PlanTask) error
	GetTask(ctx context.Context, planID, taskID uint) (*models.PlanTask, error)
	UpdateTask(ctx context.Context, task *models.PlanTask, updates map[string]interface{}) error
	DeleteTask(ctx context.Context, planID, taskID uint) (bool, error)
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new shared plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *models.SharedPlan) error {
	if err := r.db.WithContext(ctx).Omit("Members", "Tasks", "Owner").Create(plan).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func withPlanAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC").Order("user_id ASC")
		}).
		Preload("Members.User").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

// GetWithMembers loads a plan with owner, members and tasks. Membership
// checks are always made against a fresh load.
func (r *planRepository) GetWithMembers(ctx context.Context, id uint) (*models.SharedPlan, error) {
	var plan models.SharedPlan
	if err := withPlanAssociations(r.db.WithContext(ctx)).First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Plan", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &plan, nil
}

// ListForUser returns plans the user owns or belongs to, most recently
// updated first.
func (r *planRepository) ListForUser(ctx context.Context, userID uint) ([]models.SharedPlan, error) {
	var plans []models.SharedPlan
	memberOf := r.db.Model(&models.PlanMember{}).Select("plan_id").Where("user_id = ?", userID)
	if err := withPlanAssociations(r.db.WithContext(ctx)).
		Where("owner_id = ? OR id IN (?)", userID, memberOf).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&plans).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return plans, nil
}

func (r *planRepository) Update(ctx context.Context, planID uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.SharedPlan{}).Where("id = ?", planID).Updates(updates)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Plan", planID)
	}
	return nil
}

// Delete removes the plan and everything scoped to it.
func (r *planRepository) Delete(ctx context.Context, planID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.PlanMessage{},
			&models.PlanInvitation{},
			&models.PlanTask{},
			&models.PlanMember{},
		} {
			if err := tx.Where("plan_id = ?", planID).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&models.SharedPlan{}, planID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Plan", planID)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateMemberRole reports false when userID is not a member of the plan.
func (r *planRepository) UpdateMemberRole(ctx context.Context, planID, userID uint, role models.MemberRole) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PlanMember{}).
		Where("plan_id = ? AND user_id = ?", planID, userID).
		Update("role", role)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// RemoveMember reports false when userID was not a member, so of two
// concurrent removals only one observes true.
func (r *planRepository) RemoveMember(ctx context.Context, planID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("plan_id = ? AND user_id = ?", planID, userID).
		Delete(&models.PlanMember{})
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *planRepository) CreateTask(ctx context.Context, task *models.PlanTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *planRepository) GetTask(ctx context.Context, planID, taskID uint) (*models.PlanTask, error) {
	var task models.PlanTask
	if err := r.db.WithContext(ctx).Where("plan_id = ?", planID).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Task", taskID)
		}
		return nil, models.NewInternalError(err)
	}
	return &task, nil
}

func (r *planRepository) UpdateTask(ctx context.Context, task *models.PlanTask, updates map[string]interface{}) error {
	if err := r.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *planRepository) DeleteTask(ctx context.Context, planID, taskID uint) (bool, error) {
	result := r.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&models.PlanTask{}, taskID)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}
