package database

import "tandem/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Friendship{},
		&models.DirectMessage{},
		&models.SharedPlan{},
		&models.PlanMember{},
		&models.PlanTask{},
		&models.PlanInvitation{},
		&models.PlanMessage{},
		&models.Notification{},
	}
}
