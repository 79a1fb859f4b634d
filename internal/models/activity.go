package models

import "time"

// Activity logging
type Activity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `json:"user_id,omitempty"` // who triggered the change, nil for system actions
	EntityType string    `gorm:"not null;index:idx_activity_entity,priority:1" json:"entity_type"` // "invoice", "payment", "proposal", ...
	EntityID   uint      `gorm:"not null;index:idx_activity_entity,priority:2" json:"entity_id"`
	Action     string    `gorm:"not null" json:"action"` // "created", "sent", "paid", "closed", ...
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
