package services

import (
	"gorm.io/gorm"

	"github.com/wcrooks/studiobooks/internal/models"
)

// recordActivity appends an audit row inside the caller's transaction.
// Activity is history, not state: a failure here fails the transaction so
// the log never diverges from what actually happened.
func recordActivity(tx *gorm.DB, userID *uint, entityType string, entityID uint, action, detail string) error {
	return tx.Create(&models.Activity{
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Detail:     detail,
	}).Error
}
