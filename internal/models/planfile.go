package models

import (
	"time"

	"gorm.io/gorm"
)

// PlanFile is the metadata for a drawing or document shared with a client.
// The bytes themselves live outside this service; only references are kept.
type PlanFile struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	ClientID     uint     `gorm:"not null;index" json:"client_id"`
	Client       Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID    *uint    `gorm:"index" json:"project_id,omitempty"`
	Project      *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Name         string   `gorm:"not null" json:"name"`
	FilePath     string   `gorm:"not null" json:"file_path"`
	MimeType     string   `json:"mime_type"`
	SizeBytes    int64    `json:"size_bytes"`
	Notes        string   `json:"notes"`
	UploadedByID uint     `gorm:"not null" json:"uploaded_by_id"`
	UploadedBy   User     `gorm:"foreignKey:UploadedByID" json:"-"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
