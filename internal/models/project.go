package models

import "time"

// Project belongs to a client and carries its own close bookkeeping.
// A closed project keeps its status; closing only succeeds once every
// invoice on the project is paid in full.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ClientID    uint       `gorm:"not null;index" json:"client_id"`
	Client      Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Name        string     `gorm:"not null;index" json:"name"`
	Description string     `json:"description"`
	Status      string     `gorm:"not null;default:'in_progress'" json:"status"` // in_progress, completed, on_hold, cancelled
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Budget      float64    `json:"budget"`
	IsClosed    bool       `gorm:"not null;default:false" json:"is_closed"`
	ClosedDate  *time.Time `json:"closed_date,omitempty"`
	ClosedByID  *uint      `json:"closed_by_id,omitempty"`
	ClosedBy    *User      `gorm:"foreignKey:ClosedByID" json:"closed_by,omitempty"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
